package domain

type EventKind string

const (
	EventThinking            EventKind = "thinking"
	EventJobSearchStarted    EventKind = "job_search_started"
	EventCareerAdviceStarted EventKind = "career_advice_started"
	EventJobResults          EventKind = "job_results"
	EventCareerAdviceChunk   EventKind = "career_advice_chunk"
	EventCareerAdviceResult  EventKind = "career_advice_result"
	EventSources             EventKind = "sources"
	EventAssistantTextChunk  EventKind = "assistant_text_chunk"
	EventFinalResult         EventKind = "final_result"
	EventError               EventKind = "error"
)

// Event is the closed set of semantic events classified out of stream frames.
// Only the types in this file implement it.
type Event interface {
	Kind() EventKind
	sealed()
}

type Thinking struct{ Text string }

type JobSearchStarted struct{}

type CareerAdviceStarted struct{}

type JobResults struct {
	Jobs    []Job
	Summary string
}

type CareerAdviceChunk struct{ Text string }

type CareerAdviceResult struct{ Text string }

type Sources struct{ Citations []Citation }

type AssistantTextChunk struct{ Text string }

type FinalResult struct{ Text string }

type StreamError struct{ Message string }

func (Thinking) Kind() EventKind            { return EventThinking }
func (JobSearchStarted) Kind() EventKind    { return EventJobSearchStarted }
func (CareerAdviceStarted) Kind() EventKind { return EventCareerAdviceStarted }
func (JobResults) Kind() EventKind          { return EventJobResults }
func (CareerAdviceChunk) Kind() EventKind   { return EventCareerAdviceChunk }
func (CareerAdviceResult) Kind() EventKind  { return EventCareerAdviceResult }
func (Sources) Kind() EventKind             { return EventSources }
func (AssistantTextChunk) Kind() EventKind  { return EventAssistantTextChunk }
func (FinalResult) Kind() EventKind         { return EventFinalResult }
func (StreamError) Kind() EventKind         { return EventError }

func (Thinking) sealed()            {}
func (JobSearchStarted) sealed()    {}
func (CareerAdviceStarted) sealed() {}
func (JobResults) sealed()          {}
func (CareerAdviceChunk) sealed()   {}
func (CareerAdviceResult) sealed()  {}
func (Sources) sealed()             {}
func (AssistantTextChunk) sealed()  {}
func (FinalResult) sealed()         {}
func (StreamError) sealed()         {}
