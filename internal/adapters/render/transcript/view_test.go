package transcript

import (
	"testing"
	"time"

	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 3, 1, 15, 4, 0, 0, time.UTC)

func plainOptions() RenderOptions {
	return RenderOptions{Style: StylePlain, Width: 100, Location: time.UTC}
}

func TestRenderJobSearchTranscript(t *testing.T) {
	output, err := Render([]domain.Message{
		{ID: "m1", Author: domain.AuthorUser, Text: "find jobs", CreatedAt: at},
		{
			ID:        "m2",
			Author:    domain.AuthorAssistant,
			Text:      "Searching...",
			CreatedAt: at,
			Lane:      domain.LaneOrchestrator,
			Jobs: []domain.Job{{
				ID:        "1",
				Title:     "Engineer",
				Company:   "ACME",
				Location:  "Berlin",
				Remote:    "yes",
				SalaryMin: "$90,000",
				SalaryMax: "120000",
				Deadline:  "2026-04-01",
				Fit:       "Matches your Go background.",
				URL:       "https://jobs.example.com/1",
			}},
		},
	}, plainOptions())

	require.NoError(t, err)
	assert.Contains(t, output, "You · 3:04 PM")
	assert.Contains(t, output, "find jobs")
	assert.Contains(t, output, "Assistant · 3:04 PM")
	assert.Contains(t, output, "▸ Engineer · ACME")
	assert.Contains(t, output, "Remote · Berlin")
	assert.Contains(t, output, "$90,000-$120,000/year · apply by 2026-04-01")
	assert.Contains(t, output, "Matches your Go background.")
	assert.Contains(t, output, "https://jobs.example.com/1")
	assert.NotContains(t, output, "typing…")
}

func TestRenderCitationsAndStreamingMarker(t *testing.T) {
	renderer, err := NewRenderer(plainOptions())
	require.NoError(t, err)

	output := renderer.Message(domain.Message{
		Author:    domain.AuthorAssistant,
		Text:      "Consider networking.",
		CreatedAt: at,
		Lane:      domain.LaneCareerAdvice,
		Streaming: true,
		Citations: []domain.Citation{
			{URL: "s3://career-kb/guides/networking.pdf", Score: 0.91},
			{URL: "https://example.com/tips.html", Score: 0.5},
		},
	})

	assert.Contains(t, output, "typing…")
	assert.Contains(t, output, "Sources (2)")
	assert.Contains(t, output, "networking.pdf https://career-kb.s3.amazonaws.com/guides/networking.pdf")
	assert.Contains(t, output, "tips.html https://example.com/tips.html")
}

func TestRenderEmptyTranscript(t *testing.T) {
	output, err := Render(nil, plainOptions())
	require.NoError(t, err)
	assert.Contains(t, output, "No messages yet")
}

func TestRenderMarkdownBody(t *testing.T) {
	renderer, err := NewRenderer(RenderOptions{Style: "notty", Width: 60, Location: time.UTC})
	require.NoError(t, err)

	output := renderer.Message(domain.Message{
		Author:    domain.AuthorAssistant,
		Text:      "# Plan\n\n- update resume\n- reach out",
		CreatedAt: at,
		Lane:      domain.LaneResponse,
	})

	assert.Contains(t, output, "Plan")
	assert.Contains(t, output, "update resume")
	assert.Contains(t, output, "reach out")
}

func TestNewRendererRejectsUnknownStyle(t *testing.T) {
	_, err := NewRenderer(RenderOptions{Style: "no-such-style"})
	require.Error(t, err)
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"s3://bucket/path/to/file.pdf": "https://bucket.s3.amazonaws.com/path/to/file.pdf",
		"s3://bucket-only":             "s3://bucket-only",
		"https://example.com/a.pdf":    "https://example.com/a.pdf",
		"relative/file.txt":            "relative/file.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, PublicURL(in), in)
	}
}

func TestFilename(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"s3://bucket/path/file.pdf":           "file.pdf",
		"https://example.com/docs/a.html?x=1": "a.html",
		"https://example.com/":                "https://example.com/",
		"plain":                               "plain",
	}
	for in, want := range tests {
		assert.Equal(t, want, Filename(in), in)
	}
}

func TestFormatSalary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		lower, upper string
		want         string
	}{
		{lower: "90000", upper: "120000", want: "$90,000-$120,000/year"},
		{lower: "$1,500,000", upper: "$2,000,000.50", want: "$1,500,000-$2,000,000/year"},
		{lower: "Not specified", upper: "100", want: "Salary not specified"},
		{lower: "competitive", upper: "100", want: "Salary information unavailable"},
		{lower: "", upper: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSalary(tt.lower, tt.upper))
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "9:05 AM", FormatTime(time.Date(2026, 1, 2, 9, 5, 0, 0, time.UTC), time.UTC))
	assert.Equal(t, "11:30 PM", FormatTime(time.Date(2026, 1, 2, 23, 30, 0, 0, time.UTC), time.UTC))
	assert.Empty(t, FormatTime(time.Time{}, time.UTC))
}
