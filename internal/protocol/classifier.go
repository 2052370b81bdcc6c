package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/bnema/jobchat-cli/internal/domain"
)

const (
	JobResultsParseErrorMessage = "Sorry, I'm having trouble processing the job results. Please try again later."
	DefaultJobResultsSummary    = "Here are your job recommendations:"
)

// Field names as the producer emits them. "carrier" is the producer's spelling.
const (
	fieldThinking              = "thinking"
	fieldJobSearchStarted      = "job_search_started"
	fieldCareerAdviceStarted   = "carrier_advice_started"
	fieldJobAgentResult        = "job_agent_result"
	fieldCareerAdviceStreaming = "carrier_advice_streaming"
	fieldCareerAdviceResult    = "carrier_advice_result"
	fieldSources               = "sources"
	fieldResponse              = "response"
	fieldFinalResult           = "final_result"
	fieldError                 = "error"
)

var errNoJobArray = errors.New("no well-formed job array found")

type rule struct {
	field    string
	classify func(p Payload, raw json.RawMessage) (domain.Event, bool)
}

// rules are tried in order and the first match wins.
var rules = []rule{
	{field: fieldThinking, classify: textRule(func(s string) domain.Event { return domain.Thinking{Text: s} })},
	{field: fieldJobSearchStarted, classify: flagRule(domain.JobSearchStarted{})},
	{field: fieldCareerAdviceStarted, classify: flagRule(domain.CareerAdviceStarted{})},
	{field: fieldJobAgentResult, classify: classifyJobResults},
	{field: fieldCareerAdviceStreaming, classify: textRule(func(s string) domain.Event { return domain.CareerAdviceChunk{Text: s} })},
	{field: fieldCareerAdviceResult, classify: textRule(func(s string) domain.Event { return domain.CareerAdviceResult{Text: s} })},
	{field: fieldSources, classify: classifySources},
	{field: fieldResponse, classify: textRule(func(s string) domain.Event { return domain.AssistantTextChunk{Text: s} })},
	{field: fieldFinalResult, classify: textRule(func(s string) domain.Event { return domain.FinalResult{Text: s} })},
	{field: fieldError, classify: textRule(func(s string) domain.Event { return domain.StreamError{Message: s} })},
}

// Classify maps a frame payload to exactly one event. Payloads matching no rule
// return false and are ignored by callers.
func Classify(p Payload) (domain.Event, bool) {
	for _, r := range rules {
		raw, ok := p[r.field]
		if !ok {
			continue
		}
		if event, ok := r.classify(p, raw); ok {
			return event, true
		}
	}

	return nil, false
}

func textRule(build func(string) domain.Event) func(Payload, json.RawMessage) (domain.Event, bool) {
	return func(_ Payload, raw json.RawMessage) (domain.Event, bool) {
		if !truthy(raw) {
			return nil, false
		}
		return build(textOf(raw)), true
	}
}

func flagRule(event domain.Event) func(Payload, json.RawMessage) (domain.Event, bool) {
	return func(_ Payload, raw json.RawMessage) (domain.Event, bool) {
		var flag bool
		if err := json.Unmarshal(raw, &flag); err != nil || !flag {
			return nil, false
		}
		return event, true
	}
}

func classifyJobResults(p Payload, raw json.RawMessage) (domain.Event, bool) {
	if !truthy(raw) {
		return nil, false
	}

	jobs, err := decodeJobs(raw)
	if err != nil {
		return domain.StreamError{Message: JobResultsParseErrorMessage}, true
	}

	summary := DefaultJobResultsSummary
	if response, ok := p[fieldResponse]; ok && truthy(response) {
		summary = textOf(response)
	}

	return domain.JobResults{Jobs: jobs, Summary: summary}, true
}

func decodeJobs(raw json.RawMessage) ([]domain.Job, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var jobs []domain.Job
		if err := json.Unmarshal(trimmed, &jobs); err != nil {
			return nil, err
		}
		return jobs, nil
	}

	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return nil, err
	}

	return extractJobArray(text)
}

// extractJobArray returns the first substring of text that decodes as a JSON array
// of jobs. The agent often wraps the array in prose or a code fence.
func extractJobArray(text string) ([]domain.Job, error) {
	text = strings.TrimSpace(text)
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}

		var jobs []domain.Job
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&jobs); err == nil {
			return jobs, nil
		}
	}

	return nil, errNoJobArray
}

// classifySources accepts entries that are {url, score} objects or bare URL
// strings. Any other entry becomes a citation whose URL is its JSON text.
func classifySources(_ Payload, raw json.RawMessage) (domain.Event, bool) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		return nil, false
	}

	citations := make([]domain.Citation, 0, len(entries))
	for _, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
			citations = append(citations, domain.Citation{URL: textOf(entry)})
			continue
		}

		citation := domain.Citation{}
		if url, ok := fields["url"]; ok {
			citation.URL = textOf(url)
		}
		if score, ok := fields["score"]; ok {
			citation.Score = numberOf(score)
		}
		citations = append(citations, citation)
	}

	return domain.Sources{Citations: citations}, true
}

// truthy follows the producer's JavaScript consumer: false, null, 0 and "" are falsy,
// everything else (including empty arrays and objects) is truthy.
func truthy(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", "false", `""`:
		return false
	}

	var number float64
	if err := json.Unmarshal([]byte(trimmed), &number); err == nil {
		return number != 0
	}

	return true
}

func textOf(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err == nil {
		return compact.String()
	}

	return strings.TrimSpace(string(raw))
}

func numberOf(raw json.RawMessage) float64 {
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(textOf(raw)), 64)
	if err != nil {
		return 0
	}

	return parsed
}
