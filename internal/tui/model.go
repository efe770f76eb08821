// Package tui implements the `docqa chat` terminal interface: a scrolling
// transcript of questions and cited answers above a single-line prompt.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/54b3r/docqa-go/internal/answer"
	"github.com/54b3r/docqa-go/internal/rag"
)

// Asker is the TUI-facing subset of the answer service.
type Asker interface {
	Ask(ctx context.Context, question string) (*answer.Answer, error)
}

// turn is one question and, once it arrives, its answer or error.
type turn struct {
	question string
	answer   *answer.Answer
	err      error
}

// answerMsg carries the result of an Ask call back into Update.
type answerMsg struct {
	answer *answer.Answer
	err    error
}

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	ctx      context.Context
	asker    Asker
	input    textinput.Model
	viewport viewport.Model
	turns    []turn
	summary  string
	status   string
	pending  bool
	ready    bool
}

// New creates a chat model. summary is shown under the header, typically
// the index backend and entry count.
func New(ctx context.Context, asker Asker, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	return Model{
		ctx:      ctx,
		asker:    asker,
		input:    ti,
		viewport: viewport.New(0, 0),
		summary:  summary,
		status:   "Ready. Esc or Ctrl+C to quit.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles window, key and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := transcriptStyle.GetFrameSize()
		_, ih := inputStyle.GetFrameSize()
		// header, summary and status lines plus the input box
		reserved := 3 + ih + 1
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-bh)
		m.refresh()
		return m, nil

	case answerMsg:
		m.pending = false
		if n := len(m.turns); n > 0 {
			m.turns[n-1].answer = msg.answer
			m.turns[n-1].err = msg.err
		}
		if msg.err != nil {
			m.status = "Error: " + describe(msg.err)
		} else {
			m.status = fmt.Sprintf("Answered from %d source(s).", len(msg.answer.Sources))
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.input.Reset()
			m.turns = append(m.turns, turn{question: q})
			m.pending = true
			m.status = "Thinking..."
			m.refresh()
			return m, ask(m.ctx, m.asker, q)
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the header, transcript, prompt and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("docqa")
	summary := faintStyle.Render(m.summary)
	body := transcriptStyle.Render(m.viewport.View())
	input := inputStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + body + "\n" + input + "\n" + status
}

func ask(ctx context.Context, a Asker, question string) tea.Cmd {
	return func() tea.Msg {
		ans, err := a.Ask(ctx, question)
		return answerMsg{answer: ans, err: err}
	}
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return faintStyle.Render("No questions yet.")
	}
	wrap := lipgloss.NewStyle().Width(max(20, m.viewport.Width))

	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("you: " + t.question))
		b.WriteString("\n")
		switch {
		case t.err != nil:
			b.WriteString(errorStyle.Render(describe(t.err)))
		case t.answer == nil:
			b.WriteString(faintStyle.Render("thinking..."))
		default:
			b.WriteString(wrap.Render(t.answer.Text))
			for n, s := range t.answer.Sources {
				b.WriteString("\n")
				b.WriteString(sourceStyle.Render(fmt.Sprintf("[%d] %s, page %d", n+1, s.Chunk.Source, s.Chunk.Page)))
			}
		}
	}
	return b.String()
}

// describe turns the errors a user can act on into short hints.
func describe(err error) string {
	switch {
	case errors.Is(err, rag.ErrNoIndex):
		return "no documents loaded, run `docqa ingest` first"
	case errors.Is(err, context.DeadlineExceeded):
		return "the request timed out"
	}
	return err.Error()
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	faintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	questionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
