package cmd

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/jobchat-cli/internal/adapters/render/transcript"
	"github.com/bnema/jobchat-cli/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu        sync.Mutex
	submitted []string
	resets    int
	err       error
}

func (f *fakeRunner) Submit(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, text)
	return f.err
}

func (f *fakeRunner) Reset(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func newTestChatModel(t *testing.T, runner turnRunner) chatModel {
	t.Helper()

	opts := transcript.RenderOptions{Style: transcript.StylePlain, Location: time.UTC}
	renderer, err := transcript.NewRenderer(opts)
	require.NoError(t, err)

	m := newChatModel(context.Background(), runner, renderer, opts)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(chatModel)
}

// runBatch executes cmd and every command nested in a batch, returning the
// messages they produce.
func runBatch(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}

	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}

	var out []tea.Msg
	for _, c := range batch {
		out = append(out, runBatch(c)...)
	}
	return out
}

func findTurnDone(t *testing.T, msgs []tea.Msg) chatTurnDoneMsg {
	t.Helper()

	for _, msg := range msgs {
		if done, ok := msg.(chatTurnDoneMsg); ok {
			return done
		}
	}
	require.FailNow(t, "no chatTurnDoneMsg produced")
	return chatTurnDoneMsg{}
}

func TestChatModelSubmitsTrimmedInput(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	m := newTestChatModel(t, runner)
	m.input.SetValue("  find go jobs  ")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(chatModel)
	require.True(t, m.busy)
	assert.Empty(t, m.input.Value())
	assert.Contains(t, m.View(), labelThinking)

	done := findTurnDone(t, runBatch(cmd))
	assert.NoError(t, done.err)
	assert.Equal(t, []string{"find go jobs"}, runner.submitted)

	updated, _ = m.Update(done)
	m = updated.(chatModel)
	assert.False(t, m.busy)
	assert.Contains(t, m.View(), chatHint)
}

func TestChatModelIgnoresEnterWhileBusyOrEmpty(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	m := newTestChatModel(t, runner)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	m.busy = true
	m.input.SetValue("second question")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, runner.submitted)
}

func TestChatModelRendersTranscriptAndStatus(t *testing.T) {
	t.Parallel()

	m := newTestChatModel(t, &fakeRunner{})
	assert.Contains(t, m.View(), "No messages yet")

	updated, _ := m.Update(transcriptMsg([]domain.Message{
		{ID: "m1", Author: domain.AuthorUser, Text: "hello there"},
		{ID: "m2", Author: domain.AuthorAssistant, Text: "Consider networking."},
	}))
	m = updated.(chatModel)
	m.busy = true

	updated, _ = m.Update(statusMsg(labelSearching))
	m = updated.(chatModel)

	view := m.View()
	assert.Contains(t, view, "hello there")
	assert.Contains(t, view, "Consider networking.")
	assert.Contains(t, view, labelSearching)
}

func TestChatModelShowsTurnErrorButNotCancellation(t *testing.T) {
	t.Parallel()

	m := newTestChatModel(t, &fakeRunner{})
	m.busy = true

	updated, _ := m.Update(chatTurnDoneMsg{err: context.Canceled})
	m = updated.(chatModel)
	assert.NoError(t, m.lastErr)

	m.busy = true
	updated, _ = m.Update(chatTurnDoneMsg{err: errors.New("agent unreachable")})
	m = updated.(chatModel)
	assert.Contains(t, m.View(), "agent unreachable")
}

func TestChatModelCtrlCCancelsTurnBeforeQuitting(t *testing.T) {
	t.Parallel()

	m := newTestChatModel(t, &fakeRunner{})
	ctx, cancel := context.WithCancel(context.Background())
	m.busy = true
	m.cancelTurn = cancel

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	m.busy = false
	m.cancelTurn = nil
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestChatModelCtrlRResetsSession(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	m := newTestChatModel(t, runner)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m = updated.(chatModel)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	updated, _ = m.Update(cmd())
	m = updated.(chatModel)
	assert.False(t, m.busy)
	assert.Equal(t, 1, runner.resets)
}
