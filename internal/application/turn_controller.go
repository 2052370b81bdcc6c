package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/jobchat-cli/internal/conversation"
	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/bnema/jobchat-cli/internal/ports"
	"github.com/bnema/jobchat-cli/internal/protocol"
	"github.com/rs/zerolog"
)

const (
	NetworkErrorMessage = "Network error. Please check your connection and try again."

	defaultReadSize = 4096
)

type SessionIdentity interface {
	GetOrCreateSessionID(ctx context.Context) domain.SessionToken
	ForceNewSessionID(ctx context.Context) domain.SessionToken
}

// Callbacks are invoked on the goroutine running Submit, one call per
// classified event in arrival order. OnTranscript receives a snapshot taken
// after the event was folded in; OnIndicator receives typing and job search
// toggles.
type Callbacks struct {
	OnThinking              func(text string)
	OnJobSearchStarted      func()
	OnCareerAdviceStarted   func()
	OnJobResults            func(jobs []domain.Job, text string)
	OnCareerAdviceStreaming func(chunk string)
	OnCareerAdvice          func(text string)
	OnSources               func(citations []domain.Citation)
	OnResponse              func(text string)
	OnFinalResult           func(text string)
	OnError                 func(text string)

	OnTranscript func(messages []domain.Message)
	OnIndicator  func(effect conversation.Effect)
}

type TurnOptions struct {
	Source       string
	Email        string
	Conversation conversation.Options
	Callbacks    Callbacks
	Logger       zerolog.Logger
	ReadSize     int
}

type TurnController struct {
	transport ports.Transport
	sessions  SessionIdentity
	callbacks Callbacks
	logger    zerolog.Logger
	source    string
	email     string
	readSize  int

	inFlight atomic.Bool

	mu   sync.Mutex
	conv *conversation.Conversation
}

func NewTurnController(transport ports.Transport, sessions SessionIdentity, opts TurnOptions) *TurnController {
	if opts.Source == "" {
		opts.Source = domain.DefaultSource
	}
	if opts.ReadSize <= 0 {
		opts.ReadSize = defaultReadSize
	}

	return &TurnController{
		transport: transport,
		sessions:  sessions,
		callbacks: opts.Callbacks,
		logger:    opts.Logger,
		source:    opts.Source,
		email:     strings.TrimSpace(opts.Email),
		readSize:  opts.ReadSize,
		conv:      conversation.New(opts.Conversation),
	}
}

func (c *TurnController) Transcript() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conv.Transcript()
}

// Reset clears the transcript and starts a new session.
func (c *TurnController) Reset(ctx context.Context) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return domain.ErrTurnInFlight
	}
	defer c.inFlight.Store(false)

	c.mu.Lock()
	effects := c.conv.Reset()
	c.mu.Unlock()

	t := newTurn(c)
	defer t.stop()
	t.apply(effects)
	t.publish()

	token := c.sessions.ForceNewSessionID(ctx)
	c.logger.Debug().Str("session_id", string(token)).Msg("conversation reset")

	return nil
}

// Submit runs one turn to completion. A call made while another turn is still
// draining is rejected with domain.ErrTurnInFlight before any I/O.
func (c *TurnController) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyMessage
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return domain.ErrTurnInFlight
	}
	defer c.inFlight.Store(false)

	token := c.sessions.GetOrCreateSessionID(ctx)
	req := domain.TurnRequest{
		RuntimeSessionID: token,
		Payload: domain.TurnPayload{
			Prompt:    text,
			SessionID: token,
			Source:    c.source,
			Email:     c.email,
		},
	}

	t := newTurn(c)
	defer t.stop()

	c.mu.Lock()
	effects := c.conv.BeginTurn(text)
	c.mu.Unlock()
	t.apply(effects)
	t.publish()

	c.logger.Debug().Str("session_id", string(token)).Msg("turn started")

	body, err := c.transport.Open(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			t.end()
			return ctxErr
		}
		return t.fail(fmt.Errorf("open stream: %w", err))
	}
	defer func() { _ = body.Close() }()

	return t.run(ctx, body)
}

type readResult struct {
	data []byte
	err  error
}

// turn holds the state of one Submit call. Everything in it is touched only by
// the goroutine running Submit.
type turn struct {
	c       *TurnController
	decoder *protocol.Decoder
	timers  map[conversation.TimerID]*time.Timer
	fired   chan conversation.TimerID
	done    chan struct{}
}

func newTurn(c *TurnController) *turn {
	return &turn{
		c:       c,
		decoder: protocol.NewDecoder(c.logger),
		timers:  map[conversation.TimerID]*time.Timer{},
		fired:   make(chan conversation.TimerID, 8),
		done:    make(chan struct{}),
	}
}

func (t *turn) run(ctx context.Context, body io.Reader) error {
	results := make(chan readResult)
	go t.read(body, results)

	for {
		select {
		case <-ctx.Done():
			t.end()
			return ctx.Err()
		case id := <-t.fired:
			delete(t.timers, id)
			t.c.mu.Lock()
			effects := t.c.conv.Fire(id)
			t.c.mu.Unlock()
			t.apply(effects)
			t.publish()
		case res := <-results:
			if len(res.data) > 0 {
				t.process(t.decoder.Feed(res.data))
			}
			if res.err == nil {
				continue
			}
			if errors.Is(res.err, io.EOF) {
				t.process(t.decoder.Flush())
				t.end()
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				t.end()
				return ctxErr
			}
			return t.fail(fmt.Errorf("read stream: %w", res.err))
		}
	}
}

func (t *turn) read(body io.Reader, results chan<- readResult) {
	buf := make([]byte, t.c.readSize)
	for {
		n, err := body.Read(buf)
		res := readResult{err: err}
		if n > 0 {
			res.data = append([]byte(nil), buf[:n]...)
		}
		if n == 0 && err == nil {
			continue
		}

		select {
		case results <- res:
		case <-t.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (t *turn) process(frames []protocol.Frame) {
	for _, frame := range frames {
		event, ok := protocol.Classify(frame.Payload)
		if !ok {
			continue
		}
		t.handle(event)
	}
}

func (t *turn) handle(event domain.Event) {
	t.c.logger.Debug().Str("event", string(event.Kind())).Msg("stream event")

	t.c.mu.Lock()
	effects := t.c.conv.Apply(event)
	t.c.mu.Unlock()

	t.apply(effects)
	t.publish()
	t.c.callbacks.dispatch(event)
}

// fail surfaces a transport failure through the reducer, so the usual
// suppression rules decide whether the user sees it.
func (t *turn) fail(cause error) error {
	t.c.logger.Warn().Err(cause).Msg("turn failed")
	t.handle(domain.StreamError{Message: NetworkErrorMessage})
	t.end()

	return &domain.TransportError{Err: cause}
}

func (t *turn) end() {
	t.c.mu.Lock()
	effects := t.c.conv.EndTurn()
	t.c.mu.Unlock()

	t.apply(effects)
	t.publish()
}

func (t *turn) stop() {
	close(t.done)
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

func (t *turn) apply(effects []conversation.Effect) {
	for _, effect := range effects {
		switch effect.Kind {
		case conversation.EffectScheduleTimer:
			id := effect.Timer
			t.timers[id] = time.AfterFunc(effect.After, func() {
				select {
				case t.fired <- id:
				case <-t.done:
				}
			})
		case conversation.EffectCancelTimer:
			if timer, ok := t.timers[effect.Timer]; ok {
				timer.Stop()
				delete(t.timers, effect.Timer)
			}
		}
		if effect.IsIndicator() && t.c.callbacks.OnIndicator != nil {
			t.c.callbacks.OnIndicator(effect)
		}
	}
}

func (t *turn) publish() {
	if t.c.callbacks.OnTranscript == nil {
		return
	}

	t.c.callbacks.OnTranscript(t.c.Transcript())
}

func (cb Callbacks) dispatch(event domain.Event) {
	switch e := event.(type) {
	case domain.Thinking:
		callText(cb.OnThinking, e.Text)
	case domain.JobSearchStarted:
		if cb.OnJobSearchStarted != nil {
			cb.OnJobSearchStarted()
		}
	case domain.CareerAdviceStarted:
		if cb.OnCareerAdviceStarted != nil {
			cb.OnCareerAdviceStarted()
		}
	case domain.JobResults:
		if cb.OnJobResults != nil {
			cb.OnJobResults(e.Jobs, e.Summary)
		}
	case domain.CareerAdviceChunk:
		callText(cb.OnCareerAdviceStreaming, e.Text)
	case domain.CareerAdviceResult:
		callText(cb.OnCareerAdvice, e.Text)
	case domain.Sources:
		if cb.OnSources != nil {
			cb.OnSources(e.Citations)
		}
	case domain.AssistantTextChunk:
		callText(cb.OnResponse, e.Text)
	case domain.FinalResult:
		callText(cb.OnFinalResult, e.Text)
	case domain.StreamError:
		callText(cb.OnError, e.Message)
	}
}

func callText(fn func(string), text string) {
	if fn != nil {
		fn(text)
	}
}
