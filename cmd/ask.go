package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/jobchat-cli/internal/adapters/render/transcript"
	"github.com/bnema/jobchat-cli/internal/application"
	"github.com/bnema/jobchat-cli/internal/conversation"
	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/spf13/cobra"
)

type askOptions struct {
	asJSON    bool
	events    bool
	noSpinner bool
	email     string
}

func newAskCmd(deps *appLoader) *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: "Send one message and print the agent's answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := deps.load(cmd)
			if err != nil {
				return err
			}
			if err := app.cfg.RequireAgentURL(); err != nil {
				return err
			}

			return runAsk(cmd, app, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the transcript as JSON")
	cmd.Flags().BoolVar(&opts.events, "events", false, "Stream one JSON line per agent event instead of rendering")
	cmd.Flags().BoolVar(&opts.noSpinner, "no-spinner", false, "Do not draw a progress spinner")
	cmd.Flags().BoolVar(&deps.reuse, "continue", false, "Continue the session stored by the previous run")
	cmd.Flags().StringVar(&opts.email, "email", "", "Identify as this email (default user.email)")

	return cmd
}

func runAsk(cmd *cobra.Command, app *app, text string, opts askOptions) error {
	submit := func(ctx context.Context, status func(string)) ([]domain.Message, error) {
		label := &indicatorLabel{}
		callbacks := application.Callbacks{}
		if status != nil {
			callbacks.OnIndicator = func(effect conversation.Effect) { status(label.apply(effect)) }
		}
		if opts.events {
			callbacks = eventCallbacks(cmd.OutOrStdout())
		}

		ctrl := app.newController(opts.email, callbacks)
		err := ctrl.Submit(ctx, text)
		return ctrl.Transcript(), err
	}

	var (
		messages []domain.Message
		turnErr  error
	)
	if opts.asJSON || opts.events || opts.noSpinner {
		messages, turnErr = submit(cmd.Context(), nil)
	} else {
		messages, turnErr = runTurnSpinner(cmd.Context(), cmd.ErrOrStderr(), submit)
	}

	switch {
	case opts.events:
	case opts.asJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(messages); err != nil {
			return err
		}
	default:
		rendered, err := transcript.Render(assistantOnly(messages), app.render)
		if err != nil {
			return fmt.Errorf("render transcript: %w", err)
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), rendered); err != nil {
			return err
		}
	}

	return turnErr
}

func assistantOnly(messages []domain.Message) []domain.Message {
	out := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.Author == domain.AuthorAssistant {
			out = append(out, m)
		}
	}
	return out
}

type eventLine struct {
	Event     domain.EventKind  `json:"event"`
	Text      string            `json:"text,omitempty"`
	Jobs      []domain.Job      `json:"jobs,omitempty"`
	Citations []domain.Citation `json:"citations,omitempty"`
}

// eventCallbacks writes one JSON object per classified event, in arrival order.
func eventCallbacks(w io.Writer) application.Callbacks {
	enc := json.NewEncoder(w)
	emit := func(line eventLine) { _ = enc.Encode(line) }

	return application.Callbacks{
		OnThinking:         func(text string) { emit(eventLine{Event: domain.EventThinking, Text: text}) },
		OnJobSearchStarted: func() { emit(eventLine{Event: domain.EventJobSearchStarted}) },
		OnCareerAdviceStarted: func() {
			emit(eventLine{Event: domain.EventCareerAdviceStarted})
		},
		OnJobResults: func(jobs []domain.Job, text string) {
			emit(eventLine{Event: domain.EventJobResults, Text: text, Jobs: jobs})
		},
		OnCareerAdviceStreaming: func(chunk string) {
			emit(eventLine{Event: domain.EventCareerAdviceChunk, Text: chunk})
		},
		OnCareerAdvice: func(text string) { emit(eventLine{Event: domain.EventCareerAdviceResult, Text: text}) },
		OnSources: func(citations []domain.Citation) {
			emit(eventLine{Event: domain.EventSources, Citations: citations})
		},
		OnResponse:    func(text string) { emit(eventLine{Event: domain.EventAssistantTextChunk, Text: text}) },
		OnFinalResult: func(text string) { emit(eventLine{Event: domain.EventFinalResult, Text: text}) },
		OnError:       func(text string) { emit(eventLine{Event: domain.EventError, Text: text}) },
	}
}
