package cmd

import (
	"fmt"

	"github.com/bnema/jobchat-cli/internal/adapters/render/transcript"
	"github.com/bnema/jobchat-cli/internal/application"
	"github.com/bnema/jobchat-cli/internal/conversation"
	"github.com/bnema/jobchat-cli/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newChatCmd(deps *appLoader) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive chat with the agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := deps.load(cmd)
			if err != nil {
				return err
			}
			if err := app.cfg.RequireAgentURL(); err != nil {
				return err
			}

			return runChat(cmd, app, email)
		},
	}

	cmd.Flags().BoolVar(&deps.reuse, "continue", false, "Continue the session stored by the previous run")
	cmd.Flags().StringVar(&email, "email", "", "Identify as this email (default user.email)")

	return cmd
}

func runChat(cmd *cobra.Command, app *app, email string) error {
	var p *tea.Program
	label := &indicatorLabel{}

	ctrl := app.newController(email, application.Callbacks{
		OnTranscript: func(messages []domain.Message) { p.Send(transcriptMsg(messages)) },
		OnIndicator:  func(effect conversation.Effect) { p.Send(statusMsg(label.apply(effect))) },
	})

	renderer, err := transcript.NewRenderer(app.render)
	if err != nil {
		return err
	}

	p = tea.NewProgram(
		newChatModel(cmd.Context(), ctrl, renderer, app.render),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run chat: %w", err)
	}

	return nil
}
