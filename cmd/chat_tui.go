package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/bnema/jobchat-cli/internal/adapters/render/transcript"
	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	chatHeaderHeight = 1
	chatFooterHeight = 2
	chatHint         = "Enter to send · Ctrl+R new session · Ctrl+C cancel · Esc quit"
)

type turnRunner interface {
	Submit(ctx context.Context, text string) error
	Reset(ctx context.Context) error
}

type transcriptMsg []domain.Message

type statusMsg string

type chatTurnDoneMsg struct {
	err error
}

type chatResetDoneMsg struct {
	err error
}

type chatModel struct {
	ctx        context.Context
	runner     turnRunner
	renderOpts transcript.RenderOptions
	renderer   *transcript.Renderer

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	messages   []domain.Message
	status     string
	busy       bool
	cancelTurn context.CancelFunc
	lastErr    error
	ready      bool

	title   lipgloss.Style
	hint    lipgloss.Style
	warning lipgloss.Style
}

func newChatModel(ctx context.Context, runner turnRunner, renderer *transcript.Renderer, renderOpts transcript.RenderOptions) chatModel {
	input := textinput.New()
	input.Placeholder = "Ask about jobs or career advice..."
	input.Prompt = "› "
	input.CharLimit = 2000
	input.Focus()

	return chatModel{
		ctx:        ctx,
		runner:     runner,
		renderOpts: renderOpts,
		renderer:   renderer,
		input:      input,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141")),
		hint:    lipgloss.NewStyle().Faint(true),
		warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case transcriptMsg:
		m.messages = msg
		m.refresh()
		return m, nil
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case chatTurnDoneMsg:
		m.busy = false
		m.cancelTurn = nil
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.lastErr = msg.err
		}
		return m, nil
	case chatResetDoneMsg:
		m.busy = false
		m.lastErr = msg.err
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
}

func (m chatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.busy && m.cancelTurn != nil {
			m.cancelTurn()
			return m, nil
		}
		return m, tea.Quit
	case tea.KeyEsc:
		if m.cancelTurn != nil {
			m.cancelTurn()
		}
		return m, tea.Quit
	case tea.KeyCtrlR:
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.lastErr = nil
		runner, ctx := m.runner, m.ctx
		return m, func() tea.Msg {
			return chatResetDoneMsg{err: runner.Reset(ctx)}
		}
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.busy {
			return m, nil
		}
		m.input.Reset()
		m.busy = true
		m.lastErr = nil
		m.status = labelThinking

		turnCtx, cancel := context.WithCancel(m.ctx)
		m.cancelTurn = cancel
		runner := m.runner
		submit := func() tea.Msg {
			defer cancel()
			return chatTurnDoneMsg{err: runner.Submit(turnCtx, text)}
		}
		return m, tea.Batch(m.spinner.Tick, submit)
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m chatModel) resize(msg tea.WindowSizeMsg) chatModel {
	height := msg.Height - chatHeaderHeight - chatFooterHeight
	if height < 1 {
		height = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, height)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = height
	}
	m.input.Width = msg.Width - 4

	m.renderOpts.Width = msg.Width
	if renderer, err := transcript.NewRenderer(m.renderOpts); err == nil {
		m.renderer = renderer
	}
	m.refresh()

	return m
}

func (m *chatModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderer.Transcript(m.messages))
	m.viewport.GotoBottom()
}

func (m chatModel) View() string {
	if !m.ready {
		return "Starting jobchat..."
	}

	var footer string
	switch {
	case m.busy:
		footer = m.spinner.View() + " " + m.status
	case m.lastErr != nil:
		footer = m.warning.Render(m.lastErr.Error())
	default:
		footer = m.hint.Render(chatHint)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.title.Render("jobchat"),
		m.viewport.View(),
		footer,
		m.input.View(),
	)
}
