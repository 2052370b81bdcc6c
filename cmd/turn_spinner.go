package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/bnema/jobchat-cli/internal/conversation"
	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	labelThinking  = "Thinking..."
	labelSearching = "Searching jobs..."
	labelStreaming = "Writing answer..."
)

// turnSubmitter runs one turn and returns the transcript it left behind.
type turnSubmitter func(ctx context.Context, status func(string)) ([]domain.Message, error)

type turnDoneMsg struct {
	messages []domain.Message
	err      error
}

type spinnerLabelMsg string

type turnSpinnerModel struct {
	spinner spinner.Model
	label   string
	done    bool
}

func newTurnSpinnerModel() turnSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return turnSpinnerModel{
		spinner: s,
		label:   labelThinking,
	}
}

func (m turnSpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m turnSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case spinnerLabelMsg:
		m.label = string(msg)
		return m, nil
	case turnDoneMsg:
		m.done = true
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m turnSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// indicatorLabel tracks typing and job search toggles and names what the
// agent is doing right now.
type indicatorLabel struct {
	typing    bool
	searching bool
}

func (l *indicatorLabel) apply(effect conversation.Effect) string {
	switch effect.Kind {
	case conversation.EffectShowTyping:
		l.typing = true
	case conversation.EffectHideTyping:
		l.typing = false
	case conversation.EffectShowJobSearch:
		l.searching = true
	case conversation.EffectHideJobSearch:
		l.searching = false
	}

	switch {
	case l.searching:
		return labelSearching
	case l.typing:
		return labelThinking
	default:
		return labelStreaming
	}
}

// runTurnSpinner draws a spinner on output while submit runs, then returns
// what submit returned. It only returns once submit has finished, even when ctx
// is cancelled and the program is killed first.
func runTurnSpinner(ctx context.Context, output io.Writer, submit turnSubmitter) ([]domain.Message, error) {
	p := tea.NewProgram(
		newTurnSpinnerModel(),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	done := make(chan turnDoneMsg, 1)
	go func() {
		messages, err := submit(ctx, func(label string) { p.Send(spinnerLabelMsg(label)) })
		result := turnDoneMsg{messages: messages, err: err}
		done <- result
		p.Send(result)
	}()

	_, runErr := p.Run()
	result := <-done

	if result.err == nil && runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return result.messages, runErr
	}

	return result.messages, result.err
}
