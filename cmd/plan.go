package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/stepwise/internal/coach"
)

var planCmd = &cobra.Command{
	Use:   "plan <token>",
	Short: "Show the skills a learner still has to work through",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		// Reading the plan needs no oracle.
		c := coach.New(coach.Deps{
			Curriculum: s.CurriculumRepo(),
			Mastery:    s.MasteryRepo(),
			Sessions:   s.SessionRepo(),
		})
		skills, err := c.CurrentPlan(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(skills) == 0 {
			fmt.Fprintln(out, "No active plan.")
			return nil
		}
		for i, sk := range skills {
			fmt.Fprintf(out, "%2d. %s (#%d)\n", i+1, sk.Name, sk.ID)
		}
		return nil
	},
}
