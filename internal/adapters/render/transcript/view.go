package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth = 80
	timeLayout   = "3:04 PM"

	// StylePlain disables markdown rendering.
	StylePlain = "plain"
	StyleAuto  = "auto"
)

type RenderOptions struct {
	Width int
	// Style is a glamour standard style name, StyleAuto or StylePlain.
	Style    string
	Location *time.Location
}

// Renderer turns transcript snapshots into terminal text. It is reused across
// redraws so the markdown renderer is built once.
type Renderer struct {
	opts     RenderOptions
	styles   styles
	markdown *glamour.TermRenderer
}

func NewRenderer(opts RenderOptions) (*Renderer, error) {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if opts.Style == "" {
		opts.Style = StyleAuto
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	r := &Renderer{opts: opts, styles: newStyles()}
	if opts.Style == StylePlain {
		return r, nil
	}

	styleOption := glamour.WithStandardStyle(opts.Style)
	if opts.Style == StyleAuto {
		styleOption = glamour.WithAutoStyle()
	}

	markdown, err := glamour.NewTermRenderer(styleOption, glamour.WithWordWrap(opts.Width-4))
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	r.markdown = markdown

	return r, nil
}

func (r *Renderer) Transcript(messages []domain.Message) string {
	if len(messages) == 0 {
		return r.styles.empty.Render("No messages yet. Ask about jobs or career advice.")
	}

	blocks := make([]string, 0, len(messages))
	for i, message := range messages {
		block := r.Message(message)
		if i > 0 {
			block = r.styles.section.Render(block)
		}
		blocks = append(blocks, block)
	}

	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func (r *Renderer) Message(message domain.Message) string {
	s := r.styles

	label := s.assistant.Render("Assistant")
	if message.Author == domain.AuthorUser {
		label = s.user.Render("You")
	}
	header := label + s.timestamp.Render(" · "+FormatTime(message.CreatedAt, r.opts.Location))
	if message.Streaming {
		header += s.streaming.Render(" typing…")
	}

	parts := []string{header}
	if text := r.body(message); text != "" {
		parts = append(parts, text)
	}

	for _, job := range message.Jobs {
		parts = append(parts, renderJob(job, s))
	}

	if len(message.Citations) > 0 {
		parts = append(parts, s.sources.Render(fmt.Sprintf("Sources (%d)", len(message.Citations))))
		for _, citation := range message.Citations {
			parts = append(parts, "  • "+Filename(citation.URL)+" "+s.link.Render(PublicURL(citation.URL)))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (r *Renderer) body(message domain.Message) string {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return ""
	}

	switch {
	case message.Author == domain.AuthorUser:
		return r.styles.body.Render(text)
	case message.Lane == domain.LaneNone:
		return r.styles.warning.Render(text)
	case r.markdown == nil:
		return r.styles.body.Render(text)
	}

	rendered, err := r.markdown.Render(text)
	if err != nil {
		return r.styles.body.Render(text)
	}

	return strings.Trim(rendered, "\n")
}

// FormatTime renders a message timestamp as hours and minutes on a 12-hour clock.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(timeLayout)
}
