package transcript

import (
	"errors"
	"io"

	"github.com/bnema/jobchat-cli/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	messages []domain.Message
	renderer *Renderer
	output   string
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.renderer.Transcript(m.messages)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// Render draws a finished transcript once.
func Render(messages []domain.Message, opts RenderOptions) (string, error) {
	renderer, err := NewRenderer(opts)
	if err != nil {
		return "", err
	}

	p := tea.NewProgram(
		model{messages: messages, renderer: renderer},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
