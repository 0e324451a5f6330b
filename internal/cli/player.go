package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status <player>",
		Short: "Show a player's lives and grace period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := s.client.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			s.output(cmd).Print(result)
			return nil
		},
	}
}

func newReviveCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "revive <player>",
		Short: "Revive a dead player",
		Long: `Revive a dead player with the configured revive lives.

If the player is waiting in limbo they are sent back to the main server
on the next release check.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := s.client.Revive(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := s.output(cmd)
			if s.cfg.Output == "json" {
				out.Print(result)
				return nil
			}
			out.PrintMessage(fmt.Sprintf("Revived %s with %d %s", result.DisplayName, result.Lives, plural(result.Lives)))
			return nil
		},
	}
}

func newSetLivesCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "setlives <player> <lives>",
		Short: "Override a player's life count",
		Long: `Override a player's life count.

Setting 0 marks the player dead. Any positive count revives a dead player.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lives, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("lives must be a number: %q", args[1])
			}

			result, err := s.client.SetLives(cmd.Context(), args[0], lives)
			if err != nil {
				return err
			}

			out := s.output(cmd)
			if s.cfg.Output == "json" {
				out.Print(result)
				return nil
			}
			out.PrintMessage(fmt.Sprintf("Set %s to %d %s", result.DisplayName, result.Lives, plural(result.Lives)))
			return nil
		},
	}
}

func plural(lives int) string {
	if lives == 1 {
		return "life"
	}
	return "lives"
}
