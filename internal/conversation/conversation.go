// Package conversation folds classified stream events into a renderable transcript.
//
// A Conversation is a synchronous state machine: callers feed it one event at a
// time from a single goroutine and carry out the effects it returns. Lane state
// (which message is open per lane, accumulated text) lives for one turn only and
// is reset by BeginTurn.
package conversation

import (
	"strings"
	"time"

	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/bnema/jobchat-cli/internal/ports"
	"github.com/google/uuid"
)

const (
	DefaultSettleDelay = 2 * time.Second

	// NoisyOutputError is a backend error the agent runtime emits after it has
	// already streamed a usable answer.
	NoisyOutputError = "Error processing request: 'output'"
)

type Options struct {
	// SettleDelay is how long the orchestrator message keeps streaming after
	// career advice starts. Zero or negative settles immediately.
	SettleDelay time.Duration
	// SuppressedErrors lists substrings of error texts that are never shown.
	SuppressedErrors []string
	Clock            ports.Clock
	NewID            func() string
}

func DefaultOptions() Options {
	return Options{
		SettleDelay:      DefaultSettleDelay,
		SuppressedErrors: []string{NoisyOutputError},
	}
}

type Conversation struct {
	opts     Options
	messages []domain.Message
	index    map[string]int

	turn             turnState
	typingVisible    bool
	jobSearchVisible bool
	nextTimer        TimerID
}

type turnState struct {
	orchestratorID string
	careerAdviceID string
	responseID     string
	jobTargetID    string

	orchestratorText string
	careerAdviceText string
	responseText     string

	thinkingSeen    bool
	hasJobResults   bool
	hasCareerAdvice bool

	// pendingAdviceID is a finalized career advice message still waiting for sources.
	pendingAdviceID string
	heldCitations   []domain.Citation

	timers map[TimerID]string
}

func newTurnState() turnState {
	return turnState{timers: map[TimerID]string{}}
}

func New(opts Options) *Conversation {
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Conversation{
		opts:  opts,
		index: map[string]int{},
		turn:  newTurnState(),
	}
}

// BeginTurn records the user's message and starts a fresh turn. Anything still
// open from a previous turn is closed and its timers are cancelled.
func (c *Conversation) BeginTurn(text string) []Effect {
	effects := c.closeTurn()
	c.turn = newTurnState()

	c.appendMessage(domain.Message{
		Author: domain.AuthorUser,
		Text:   text,
		Lane:   domain.LaneNone,
	})

	c.typingVisible = true
	effects = append(effects, Effect{Kind: EffectShowTyping})

	return effects
}

// EndTurn closes every open message and drops pending timers. It is called once
// the stream has ended, whatever the outcome.
func (c *Conversation) EndTurn() []Effect {
	effects := c.closeTurn()
	c.turn = newTurnState()

	return effects
}

// Reset drops the whole transcript.
func (c *Conversation) Reset() []Effect {
	effects := c.closeTurn()
	c.turn = newTurnState()
	c.messages = nil
	c.index = map[string]int{}

	return effects
}

// Fire applies a scheduled settle. Timers that were cancelled or belong to an
// earlier turn are ignored.
func (c *Conversation) Fire(id TimerID) []Effect {
	messageID, ok := c.turn.timers[id]
	if !ok {
		return nil
	}
	delete(c.turn.timers, id)

	c.closeMessage(messageID)
	if c.turn.orchestratorID == messageID {
		c.turn.orchestratorID = ""
		c.turn.orchestratorText = ""
	}

	return nil
}

func (c *Conversation) Transcript() []domain.Message {
	out := make([]domain.Message, 0, len(c.messages))
	for _, message := range c.messages {
		out = append(out, message.Clone())
	}

	return out
}

func (c *Conversation) lookup(id string) (domain.Message, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Message{}, false
	}

	return c.messages[i].Clone(), true
}

// pendingTimers reports how many settle timers the current turn still owns.
func (c *Conversation) pendingTimers() int {
	return len(c.turn.timers)
}

func (c *Conversation) closeTurn() []Effect {
	var effects []Effect
	for id := range c.turn.timers {
		effects = append(effects, Effect{Kind: EffectCancelTimer, Timer: id})
	}
	c.turn.timers = map[TimerID]string{}

	c.closeAllOpen()
	effects = append(effects, c.hideTyping()...)
	effects = append(effects, c.hideJobSearch()...)

	return effects
}

func (c *Conversation) appendMessage(message domain.Message) string {
	if message.ID == "" {
		message.ID = c.opts.NewID()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = c.opts.Clock.Now()
	}

	c.index[message.ID] = len(c.messages)
	c.messages = append(c.messages, message)

	return message.ID
}

func (c *Conversation) update(id string, fn func(*domain.Message)) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	fn(&c.messages[i])

	return true
}

func (c *Conversation) closeMessage(id string) {
	c.update(id, func(m *domain.Message) { m.Streaming = false })
}

func (c *Conversation) closeAllOpen() {
	for i := range c.messages {
		c.messages[i].Streaming = false
	}
}

func (c *Conversation) hideTyping() []Effect {
	if !c.typingVisible {
		return nil
	}
	c.typingVisible = false

	return []Effect{{Kind: EffectHideTyping}}
}

func (c *Conversation) hideJobSearch() []Effect {
	if !c.jobSearchVisible {
		return nil
	}
	c.jobSearchVisible = false

	return []Effect{{Kind: EffectHideJobSearch}}
}

func (c *Conversation) suppressed(text string) bool {
	if c.turn.hasJobResults || c.turn.hasCareerAdvice {
		return true
	}
	for _, pattern := range c.opts.SuppressedErrors {
		if pattern != "" && strings.Contains(text, pattern) {
			return true
		}
	}

	return false
}
