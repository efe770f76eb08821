package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/54b3r/docqa-go/internal/answer"
	"github.com/54b3r/docqa-go/internal/rag"
)

type fakeAsker struct {
	questions []string
	answer    *answer.Answer
	err       error
}

func (f *fakeAsker) Ask(_ context.Context, q string) (*answer.Answer, error) {
	f.questions = append(f.questions, q)
	return f.answer, f.err
}

func sized(t *testing.T, a Asker) Model {
	t.Helper()
	next, _ := New(context.Background(), a, "local index, 3 entries").Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

// submit types q, presses Enter and feeds the resulting command's message back.
func submit(t *testing.T, m Model, q string) Model {
	t.Helper()
	m.input.SetValue(q)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if !m.pending {
		t.Fatal("expected model to be pending after Enter")
	}
	if cmd == nil {
		t.Fatal("expected an ask command")
	}
	next, _ = m.Update(cmd())
	return next.(Model)
}

func TestModel_AnswerRendered(t *testing.T) {
	t.Parallel()

	a := &fakeAsker{answer: &answer.Answer{
		Text: "The notice period is 30 days.",
		Sources: []rag.Result{
			{Chunk: rag.Chunk{Text: "notice", Source: "lease.pdf", Page: 4}, Score: 0.9},
		},
	}}
	m := submit(t, sized(t, a), "  what is the notice period?  ")

	if len(a.questions) != 1 || a.questions[0] != "what is the notice period?" {
		t.Fatalf("questions = %q", a.questions)
	}
	if m.pending {
		t.Error("still pending after answer")
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}

	view := m.View()
	for _, want := range []string{"what is the notice period?", "30 days", "[1] lease.pdf, page 4", "1 source(s)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModel_NoIndexHint(t *testing.T) {
	t.Parallel()

	a := &fakeAsker{err: fmt.Errorf("retrieve: %w", rag.ErrNoIndex)}
	m := submit(t, sized(t, a), "anything")

	if !strings.Contains(m.View(), "docqa ingest") {
		t.Errorf("expected ingest hint in view:\n%s", m.View())
	}
}

func TestModel_IgnoresBlankAndQuits(t *testing.T) {
	t.Parallel()

	a := &fakeAsker{}
	m := sized(t, a)

	m.input.SetValue("   ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || next.(Model).pending || len(a.questions) != 0 {
		t.Error("blank question should be ignored")
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Ctrl+C did not quit")
	}
}

func TestModel_LoadingBeforeSize(t *testing.T) {
	t.Parallel()
	if got := New(context.Background(), &fakeAsker{}, "").View(); got != "Loading..." {
		t.Errorf("View() = %q", got)
	}
}
