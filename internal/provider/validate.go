package provider

import (
	"fmt"
	"strings"
)

// Validate reports the first missing setting for the selected backend, naming
// the environment variable that supplies it.
func (c *Config) Validate() error {
	var missing []string
	req := func(v, env string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, env)
		}
	}

	switch c.Backend {
	case BackendOllama:
		req(c.Ollama.Host, "OLLAMA_HOST")
		req(c.Ollama.Model, "OLLAMA_MODEL")
	case BackendOpenAI:
		req(c.OpenAI.APIKey, "OPENAI_API_KEY")
		req(c.OpenAI.Model, "OPENAI_MODEL")
	case BackendAzure:
		req(c.AzureOpenAI.APIKey, "AZURE_OPENAI_API_KEY")
		req(c.AzureOpenAI.Endpoint, "AZURE_OPENAI_ENDPOINT")
		req(c.AzureOpenAI.Deployment, "AZURE_OPENAI_DEPLOYMENT")
	case BackendArk:
		req(c.Ark.APIKey, "ARK_API_KEY")
		req(c.Ark.Model, "ARK_MODEL")
	case BackendGemini:
		req(c.Gemini.APIKey, "GOOGLE_API_KEY")
		req(c.Gemini.Model, "GEMINI_MODEL")
	default:
		return fmt.Errorf("provider: unknown backend %q (valid: ollama, openai, azure, ark, gemini)", c.Backend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("provider: %s backend requires %s", c.Backend, strings.Join(missing, ", "))
	}
	if c.Tuning.Temperature < 0 || c.Tuning.Temperature > 2 {
		return fmt.Errorf("provider: MODEL_TEMPERATURE must be in [0, 2], got %v", c.Tuning.Temperature)
	}
	return nil
}
