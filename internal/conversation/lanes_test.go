package conversation

import (
	"math/rand"
	"testing"

	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/stretchr/testify/require"
)

var laneEvents = []domain.Event{
	domain.Thinking{Text: "t"},
	domain.JobSearchStarted{},
	domain.CareerAdviceStarted{},
	domain.JobResults{Jobs: []domain.Job{{ID: "1", Title: "Engineer"}}, Summary: "s"},
	domain.JobResults{Summary: "none"},
	domain.CareerAdviceChunk{Text: "c"},
	domain.CareerAdviceResult{Text: "r"},
	domain.Sources{Citations: []domain.Citation{{URL: "u", Score: 1}}},
	domain.AssistantTextChunk{Text: "a"},
	domain.FinalResult{Text: "f"},
	domain.StreamError{Message: "e"},
}

func requireLaneExclusive(t *testing.T, c *Conversation, step int) {
	t.Helper()

	open := map[domain.Lane]int{}
	for _, m := range c.Transcript() {
		if m.Streaming {
			open[m.Lane]++
		}
	}
	for lane, n := range open {
		require.LessOrEqualf(t, n, 1, "step %d: lane %s has %d open messages", step, lane, n)
	}
}

func TestLaneExclusivityUnderRandomEventSequences(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 300; round++ {
		c := newTestConversation(DefaultOptions())
		var timers []TimerID

		for step := 0; step < 40; step++ {
			var effects []Effect
			switch roll := rng.Intn(20); {
			case roll == 0:
				effects = c.BeginTurn("next")
			case roll == 1 && len(timers) > 0:
				i := rng.Intn(len(timers))
				effects = c.Fire(timers[i])
				timers = append(timers[:i], timers[i+1:]...)
			default:
				effects = c.Apply(laneEvents[rng.Intn(len(laneEvents))])
			}

			for _, effect := range effects {
				if effect.Kind == EffectScheduleTimer {
					timers = append(timers, effect.Timer)
				}
			}
			requireLaneExclusive(t, c, step)
		}

		c.Apply(domain.FinalResult{})
		for _, m := range c.Transcript() {
			require.False(t, m.Streaming, "round %d: %s still open after final result", round, m.ID)
		}
	}
}
