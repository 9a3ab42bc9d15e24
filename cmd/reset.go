package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <token>",
	Short: "Forget a learner's session (and, with --mastery, what they have mastered)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withMastery, _ := cmd.Flags().GetBool("mastery")
		token := args[0]

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.SessionRepo().Delete(cmd.Context(), token); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if withMastery {
			if err := s.MasteryRepo().Reset(cmd.Context(), token); err != nil {
				return fmt.Errorf("reset mastery: %w", err)
			}
		}

		if withMastery {
			fmt.Fprintln(cmd.OutOrStdout(), "Session and mastery cleared.")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "Session cleared. Mastered skills were kept.")
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("mastery", false, "Also revoke every mastered skill")
}
