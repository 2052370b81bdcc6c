package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	deps := &appLoader{}

	rootCmd := &cobra.Command{
		Use:           "jobchat",
		Short:         "Chat with the job search and career advice agent",
		Long:          "jobchat streams answers from the job search agent into your terminal: orchestrator reasoning, job recommendations and career advice with sources, one conversation session per run.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&deps.configPath, "config", "", "Config file (default ~/.jobchat/config.toml)")
	flags.StringVar(&deps.logLevel, "log-level", "", "Override log.level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newAskCmd(deps),
		newChatCmd(deps),
		newSessionCmd(deps),
		newConfigCmd(deps),
	)

	return rootCmd
}
