package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	memorystore "github.com/bnema/jobchat-cli/internal/adapters/session/memory"
	"github.com/bnema/jobchat-cli/internal/conversation"
	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/bnema/jobchat-cli/internal/ports/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const jobSearchStream = `data: {"thinking":"Searching..."}
data: {"job_search_started":true}
data: {"job_agent_result":"[{\"id\":\"1\",\"title\":\"Engineer\"}]","response":"Here you go"}
data: {"final_result":"done"}
`

type transportFunc func(ctx context.Context, req domain.TurnRequest) (io.ReadCloser, error)

func (f transportFunc) Open(ctx context.Context, req domain.TurnRequest) (io.ReadCloser, error) {
	return f(ctx, req)
}

func streamOf(body string) transportFunc {
	return func(context.Context, domain.TurnRequest) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	}
}

// brokenBody yields data and then fails with err.
type brokenBody struct {
	data []byte
	err  error
}

func (b *brokenBody) Read(p []byte) (int, error) {
	if len(b.data) > 0 {
		n := copy(p, b.data)
		b.data = b.data[n:]
		return n, nil
	}
	return 0, b.err
}

func (b *brokenBody) Close() error { return nil }

func newSessions() *SessionService {
	return NewSessionService(memorystore.NewStore(), SessionOptions{})
}

func assistantTexts(messages []domain.Message) []string {
	var out []string
	for _, m := range messages {
		if m.Author == domain.AuthorAssistant {
			out = append(out, m.Text)
		}
	}
	return out
}

func TestSubmitFoldsStreamAndCallsBackInOrder(t *testing.T) {
	t.Parallel()

	var (
		requests   []domain.TurnRequest
		events     []string
		indicators []conversation.EffectKind
		snapshots  int
	)
	transport := transportFunc(func(_ context.Context, req domain.TurnRequest) (io.ReadCloser, error) {
		requests = append(requests, req)
		return io.NopCloser(strings.NewReader(jobSearchStream)), nil
	})

	sessions := newSessions()
	ctrl := NewTurnController(transport, sessions, TurnOptions{
		Email:    "ada@example.com",
		ReadSize: 7,
		Callbacks: Callbacks{
			OnThinking:         func(text string) { events = append(events, "thinking:"+text) },
			OnJobSearchStarted: func() { events = append(events, "job_search_started") },
			OnJobResults: func(jobs []domain.Job, text string) {
				events = append(events, fmt.Sprintf("job_results:%d:%s", len(jobs), text))
			},
			OnResponse:    func(text string) { events = append(events, "response:"+text) },
			OnFinalResult: func(text string) { events = append(events, "final_result:"+text) },
			OnError:       func(text string) { events = append(events, "error:"+text) },
			OnIndicator:   func(e conversation.Effect) { indicators = append(indicators, e.Kind) },
			OnTranscript:  func([]domain.Message) { snapshots++ },
		},
	})

	require.NoError(t, ctrl.Submit(context.Background(), "  find jobs  "))

	assert.Equal(t, []string{
		"thinking:Searching...",
		"job_search_started",
		"job_results:1:Here you go",
		"final_result:done",
	}, events)
	assert.Equal(t, []conversation.EffectKind{
		conversation.EffectShowTyping,
		conversation.EffectHideTyping,
		conversation.EffectShowJobSearch,
		conversation.EffectHideJobSearch,
	}, indicators)
	assert.Positive(t, snapshots)

	require.Len(t, requests, 1)
	token := sessions.GetOrCreateSessionID(context.Background())
	assert.Equal(t, domain.TurnRequest{
		RuntimeSessionID: token,
		Payload: domain.TurnPayload{
			Prompt:    "find jobs",
			SessionID: token,
			Source:    domain.DefaultSource,
			Email:     "ada@example.com",
		},
	}, requests[0])

	transcript := ctrl.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "find jobs", transcript[0].Text)
	assert.Equal(t, []domain.Job{{ID: "1", Title: "Engineer"}}, transcript[1].Jobs)
	assert.False(t, transcript[1].Streaming)
}

func TestSubmitReusesSessionAcrossTurns(t *testing.T) {
	t.Parallel()

	var tokens []domain.SessionToken
	transport := transportFunc(func(_ context.Context, req domain.TurnRequest) (io.ReadCloser, error) {
		tokens = append(tokens, req.RuntimeSessionID)
		return io.NopCloser(strings.NewReader("data: {\"response\":\"ok\"}\n")), nil
	})
	ctrl := NewTurnController(transport, newSessions(), TurnOptions{})

	require.NoError(t, ctrl.Submit(context.Background(), "one"))
	require.NoError(t, ctrl.Submit(context.Background(), "two"))

	require.Len(t, tokens, 2)
	assert.Equal(t, tokens[0], tokens[1])
	assert.Equal(t, []string{"ok", "ok"}, assistantTexts(ctrl.Transcript()))

	require.NoError(t, ctrl.Reset(context.Background()))
	assert.Empty(t, ctrl.Transcript())

	require.NoError(t, ctrl.Submit(context.Background(), "three"))
	require.Len(t, tokens, 3)
	assert.NotEqual(t, tokens[0], tokens[2])
}

func TestSubmitFlushesUnterminatedTrailingFrame(t *testing.T) {
	t.Parallel()

	ctrl := NewTurnController(streamOf(`data: {"response":"tail"}`), newSessions(), TurnOptions{})
	require.NoError(t, ctrl.Submit(context.Background(), "hi"))

	transcript := ctrl.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "tail", transcript[1].Text)
	assert.False(t, transcript[1].Streaming)
}

func TestSubmitRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	ctrl := NewTurnController(streamOf(""), newSessions(), TurnOptions{})
	require.ErrorIs(t, ctrl.Submit(context.Background(), "   "), domain.ErrEmptyMessage)
	assert.Empty(t, ctrl.Transcript())
}

func TestSubmitRejectsOverlappingTurn(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	opened := make(chan struct{})
	var calls int
	transport := transportFunc(func(context.Context, domain.TurnRequest) (io.ReadCloser, error) {
		calls++
		close(opened)
		return pr, nil
	})
	ctrl := NewTurnController(transport, newSessions(), TurnOptions{})

	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Submit(context.Background(), "first") }()
	<-opened

	require.ErrorIs(t, ctrl.Submit(context.Background(), "second"), domain.ErrTurnInFlight)
	require.ErrorIs(t, ctrl.Reset(context.Background()), domain.ErrTurnInFlight)

	_, err := pw.Write([]byte("data: {\"response\":\"done\"}\n"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	require.NoError(t, <-errCh)

	assert.Equal(t, 1, calls)
	transcript := ctrl.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "first", transcript[0].Text)
}

func TestSubmitOpenFailureSurfacesNetworkError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	var reported []string
	transport := transportFunc(func(context.Context, domain.TurnRequest) (io.ReadCloser, error) {
		return nil, cause
	})
	ctrl := NewTurnController(transport, newSessions(), TurnOptions{
		Callbacks: Callbacks{OnError: func(text string) { reported = append(reported, text) }},
	})

	err := ctrl.Submit(context.Background(), "hi")
	require.Error(t, err)

	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.ErrorIs(t, err, cause)

	assert.Equal(t, []string{NetworkErrorMessage}, reported)
	assert.Equal(t, []string{NetworkErrorMessage}, assistantTexts(ctrl.Transcript()))
}

func TestSubmitPartialReadFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "error shown when nothing landed",
			body: "data: {\"thinking\":\"Looking\"}\n",
			want: []string{"Looking", NetworkErrorMessage},
		},
		{
			name: "error suppressed after job results",
			body: "data: {\"job_agent_result\":[{\"id\":\"1\",\"title\":\"Engineer\"}]}\n",
			want: []string{"Here are your job recommendations:"},
		},
		{
			name: "error suppressed after career advice",
			body: "data: {\"carrier_advice_result\":\"Network.\"}\n",
			want: []string{"Network."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reset := errors.New("connection reset by peer")
			transport := transportFunc(func(context.Context, domain.TurnRequest) (io.ReadCloser, error) {
				return &brokenBody{data: []byte(tt.body), err: reset}, nil
			})
			ctrl := NewTurnController(transport, newSessions(), TurnOptions{})

			err := ctrl.Submit(context.Background(), "hi")
			var transportErr *domain.TransportError
			require.ErrorAs(t, err, &transportErr)
			require.ErrorIs(t, err, reset)

			transcript := ctrl.Transcript()
			assert.Equal(t, tt.want, assistantTexts(transcript))
			for _, m := range transcript {
				assert.False(t, m.Streaming)
			}
		})
	}
}

func TestSubmitCancellationLeavesCleanState(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	first := true
	transport := transportFunc(func(context.Context, domain.TurnRequest) (io.ReadCloser, error) {
		if first {
			first = false
			return pr, nil
		}
		return io.NopCloser(strings.NewReader("data: {\"thinking\":\"Fresh\"}\n")), nil
	})
	ctrl := NewTurnController(transport, newSessions(), TurnOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Submit(ctx, "first") }()

	_, err := pw.Write([]byte("data: {\"thinking\":\"Half\"}\n"))
	require.NoError(t, err)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	for _, m := range ctrl.Transcript() {
		assert.False(t, m.Streaming)
	}

	require.NoError(t, ctrl.Submit(context.Background(), "second"))
	texts := assistantTexts(ctrl.Transcript())
	assert.Equal(t, "Fresh", texts[len(texts)-1])
}

func TestSubmitSettlesOrchestratorAfterDelay(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	transport := transportFunc(func(context.Context, domain.TurnRequest) (io.ReadCloser, error) {
		return pr, nil
	})
	ctrl := NewTurnController(transport, newSessions(), TurnOptions{
		Conversation: conversation.Options{SettleDelay: 10 * time.Millisecond},
	})

	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Submit(context.Background(), "advice") }()

	_, err := pw.Write([]byte("data: {\"thinking\":\"Routing\"}\ndata: {\"carrier_advice_started\":true}\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		transcript := ctrl.Transcript()
		return len(transcript) == 3 && !transcript[1].Streaming && transcript[2].Streaming
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, pw.Close())
	require.NoError(t, <-errCh)
}

func TestSubmitCallbacksRunOnSubmitGoroutine(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		texts []string
	)
	stream := strings.Repeat("data: {\"carrier_advice_streaming\":\"x\"}\n", 50) + "data: {\"carrier_advice_result\":\"\"}\n"
	ctrl := NewTurnController(streamOf(stream), newSessions(), TurnOptions{
		ReadSize: 3,
		Callbacks: Callbacks{
			OnCareerAdviceStreaming: func(chunk string) {
				mu.Lock()
				texts = append(texts, chunk)
				mu.Unlock()
			},
		},
	})

	require.NoError(t, ctrl.Submit(context.Background(), "advice"))
	assert.Len(t, texts, 50)
	assert.Equal(t, []string{strings.Repeat("x", 50)}, assistantTexts(ctrl.Transcript()))
}

func TestSubmitSendsPromptWithSessionAndSource(t *testing.T) {
	t.Parallel()

	transport := mocks.NewMockTransport(t)
	sessions := newSessions()
	ctrl := NewTurnController(transport, sessions, TurnOptions{Source: "cli"})

	transport.EXPECT().
		Open(mock.Anything, mock.MatchedBy(func(req domain.TurnRequest) bool {
			return req.Payload.Prompt == "hello" &&
				req.Payload.Source == "cli" &&
				req.Payload.SessionID == req.RuntimeSessionID &&
				req.RuntimeSessionID.Valid()
		})).
		Return(io.NopCloser(strings.NewReader(`data: {"final_result":"done"}`+"\n")), nil).
		Once()

	require.NoError(t, ctrl.Submit(context.Background(), "hello"))
}

func TestSubmitForwardsOnlyIndicatorEffects(t *testing.T) {
	t.Parallel()

	var kinds []conversation.EffectKind
	stream := "data: {\"thinking\":\"Routing\"}\n" +
		"data: {\"carrier_advice_started\":true}\n" +
		"data: {\"carrier_advice_result\":\"Network more.\"}\n" +
		"data: {\"final_result\":\"done\"}\n"
	ctrl := NewTurnController(streamOf(stream), newSessions(), TurnOptions{
		Callbacks: Callbacks{
			OnIndicator: func(e conversation.Effect) { kinds = append(kinds, e.Kind) },
		},
	})

	require.NoError(t, ctrl.Submit(context.Background(), "advice"))
	require.NotEmpty(t, kinds)
	for _, kind := range kinds {
		assert.True(t, conversation.Effect{Kind: kind}.IsIndicator(), kind)
	}
}
