package conversation

import "time"

type EffectKind string

const (
	EffectShowTyping    EffectKind = "show_typing"
	EffectHideTyping    EffectKind = "hide_typing"
	EffectShowJobSearch EffectKind = "show_job_search"
	EffectHideJobSearch EffectKind = "hide_job_search"
	EffectScheduleTimer EffectKind = "schedule_timer"
	EffectCancelTimer   EffectKind = "cancel_timer"
)

type TimerID uint64

// Effect is a side effect the caller must carry out after a transition. Timer
// effects ask the caller to call Fire(Timer) once After has elapsed, or to drop
// the timer on EffectCancelTimer.
type Effect struct {
	Kind      EffectKind
	Timer     TimerID
	After     time.Duration
	MessageID string
}

func (e Effect) IsIndicator() bool {
	switch e.Kind {
	case EffectShowTyping, EffectHideTyping, EffectShowJobSearch, EffectHideJobSearch:
		return true
	default:
		return false
	}
}
