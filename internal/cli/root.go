package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// session is the state shared by every subcommand of one invocation
type session struct {
	cfg    *Config
	client *Client
}

func (s *session) output(cmd *cobra.Command) *Output {
	return NewOutput(s.cfg.Output, cmd.OutOrStdout())
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	s := &session{cfg: &Config{Output: "text"}}
	defaults, envErr := DefaultConfig()
	if envErr == nil {
		s.cfg = defaults
	}

	rootCmd := &cobra.Command{
		Use:   "hlimbo",
		Short: "Admin CLI for the hardcore limbo service",
		Long: `hlimbo talks to the hardcore limbo service API.

It can check a player's lives and grace period, revive dead players
and override life counts.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			if err := s.cfg.Validate(); err != nil {
				return err
			}
			// Load token from file if not provided via flag/env
			if err := s.cfg.LoadToken(); err != nil {
				return err
			}

			s.client = NewClient(s.cfg.ServerURL, s.cfg.Token, s.cfg.Actor)
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&s.cfg.ServerURL, "server", s.cfg.ServerURL, "Server URL (env: HLIMBO_SERVER)")
	rootCmd.PersistentFlags().StringVar(&s.cfg.Token, "token", s.cfg.Token, "Admin token (env: HLIMBO_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&s.cfg.TokenFile, "token-file", s.cfg.TokenFile, "Token file path (env: HLIMBO_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVar(&s.cfg.Actor, "actor", s.cfg.Actor, "Name recorded in the server audit log (env: HLIMBO_ACTOR)")
	rootCmd.PersistentFlags().StringVarP(&s.cfg.Output, "output", "o", s.cfg.Output, "Output format: text, json")

	rootCmd.AddCommand(newHealthCmd(s))
	rootCmd.AddCommand(newStatusCmd(s))
	rootCmd.AddCommand(newReviveCmd(s))
	rootCmd.AddCommand(newSetLivesCmd(s))
	rootCmd.AddCommand(newHashTokenCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
