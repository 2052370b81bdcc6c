package domain

import "time"

type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// Lane names one logical sub-conversation multiplexed over the stream.
type Lane string

const (
	LaneNone         Lane = "none"
	LaneOrchestrator Lane = "orchestrator"
	LaneCareerAdvice Lane = "career_advice"
	LaneJobResults   Lane = "job_results"
	LaneResponse     Lane = "response"
)

type Message struct {
	ID        string     `json:"id"`
	Author    Author     `json:"author"`
	Text      string     `json:"text"`
	CreatedAt time.Time  `json:"created_at"`
	Jobs      []Job      `json:"jobs,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
	Lane      Lane       `json:"lane"`
	Streaming bool       `json:"streaming"`
}

func (m Message) Clone() Message {
	out := m
	if m.Jobs != nil {
		out.Jobs = append([]Job(nil), m.Jobs...)
	}
	if m.Citations != nil {
		out.Citations = append([]Citation(nil), m.Citations...)
	}

	return out
}
