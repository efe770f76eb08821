package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"),
		schema.UserMessage("hello world"),
	}
	// Each message: 4 overhead + Estimate("user")=1 + Estimate("hello world")=2 = 7
	if got := EstimateMessages(msgs); got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func Test_TrimContext(t *testing.T) {
	t.Parallel()

	fixed := []*schema.Message{schema.SystemMessage("sys")} // 4 + 1 + 1 = 6
	excerpt := strings.Repeat("x", 40)                      // 10 + 1 separator = 11 each
	three := []string{excerpt, excerpt, excerpt}

	cases := []struct {
		name      string
		excerpts  []string
		maxTokens int
		want      int
	}{
		{"fits", three, 100, 3},
		{"drops lowest ranked", three, 30, 2},
		{"keeps top excerpt when over budget", three, 5, 1},
		{"disabled", three, 0, 3},
		{"empty", nil, 10, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := TrimContext(fixed, tc.excerpts, tc.maxTokens); len(got) != tc.want {
				t.Errorf("kept %d excerpts, want %d", len(got), tc.want)
			}
		})
	}
}

func Test_TrimContext_PreservesOrder(t *testing.T) {
	t.Parallel()
	got := TrimContext(nil, []string{"first", "second", strings.Repeat("z", 400)}, 10)
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("got %v", got)
	}
}
