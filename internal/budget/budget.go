// Package budget estimates prompt size and trims retrieved context to fit the
// answer model's window. Because docqa supports several LLM backends with
// different tokenizers, it uses a character heuristic: 1 token ≈ 4 characters.
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// messageOverhead approximates the per-message framing most chat APIs add.
	messageOverhead = 4

	// DefaultMaxContextTokens is the default prompt budget in tokens. It fits
	// 4k-context models with room left for the answer.
	DefaultMaxContextTokens = 3000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += messageOverhead
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimContext drops excerpts from the end of the slice until fixed plus the
// remaining excerpts fit within maxTokens. Excerpts are expected in rank
// order, so the least relevant go first. fixed holds the prompt messages that
// are never trimmed (system instruction, question).
//
// The highest-ranked excerpt is always kept even when it alone exceeds the
// budget: an answer over a truncated prompt is more useful than an answer
// with no context at all. maxTokens <= 0 disables trimming.
func TrimContext(fixed []*schema.Message, excerpts []string, maxTokens int) []string {
	if maxTokens <= 0 || len(excerpts) <= 1 {
		return excerpts
	}

	used := EstimateMessages(fixed)
	for i, e := range excerpts {
		used += Estimate(e) + 1
		if used > maxTokens && i > 0 {
			return excerpts[:i]
		}
	}
	return excerpts
}
