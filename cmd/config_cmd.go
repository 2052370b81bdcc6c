package cmd

import (
	"fmt"

	"github.com/bnema/jobchat-cli/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(deps *appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or print the jobchat configuration",
	}

	cmd.AddCommand(newConfigInitCmd(deps), newConfigShowCmd(deps))

	return cmd
}

func newConfigInitCmd(deps *appLoader) *cobra.Command {
	var force bool
	var agentURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := deps.configPath
			if path == "" {
				defaultPath, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}

			cfg, err := config.Defaults()
			if err != nil {
				return err
			}
			if agentURL != "" {
				cfg.AgentURL = agentURL
			}

			if err := config.Write(path, cfg, force); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	cmd.Flags().StringVar(&agentURL, "agent-url", "", "Agent proxy URL to store as agent.url")

	return cmd
}

func newConfigShowCmd(deps *appLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := deps.load(cmd)
			if err != nil {
				return err
			}

			data, err := app.cfg.TOML()
			if err != nil {
				return err
			}

			source := app.cfg.File
			if source == "" {
				source = "defaults"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n%s", source, data)
			return err
		},
	}
}
