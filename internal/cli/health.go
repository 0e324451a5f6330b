package cli

import (
	"github.com/spf13/cobra"
)

func newHealthCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := s.client.Health(cmd.Context())
			if err != nil {
				return err
			}

			s.output(cmd).Print(result)
			return nil
		},
	}
}
