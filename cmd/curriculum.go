package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/stepwise/internal/curriculum"
	"github.com/abhisek/stepwise/internal/skillgraph"
)

var curriculumCmd = &cobra.Command{
	Use:   "curriculum",
	Short: "Manage the stored skill graph",
}

var curriculumImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the stored curriculum with a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cur, err := curriculum.Load(args[0])
		if err != nil {
			return err
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.CurriculumRepo().Replace(cmd.Context(), cur.Skills); err != nil {
			return fmt.Errorf("import curriculum: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d skills from %s.\n", len(cur.Skills), args[0])
		return nil
	},
}

var curriculumListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored skills with their prerequisites",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		skills, err := s.CurriculumRepo().LoadSkills(cmd.Context())
		if err != nil {
			return fmt.Errorf("load curriculum: %w", err)
		}
		if len(skills) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No curriculum stored yet. Run \"stepwise curriculum import <file>\" or start the tutor once.")
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-4s  %-32s  %-12s  %-14s  %s\n", "ID", "Name", "Subject", "Stage", "Requires")
		fmt.Fprintln(out, strings.Repeat("─", 80))
		for _, sk := range skills {
			if subject != "" && !strings.EqualFold(sk.Subject, subject) {
				continue
			}
			reqs := make([]string, len(sk.Prerequisites))
			for i, p := range sk.Prerequisites {
				reqs[i] = p.String()
			}
			fmt.Fprintf(out, "%-4d  %-32s  %-12s  %-14s  %s\n",
				sk.ID, truncate(sk.Name, 32), sk.Subject, sk.Stage, strings.Join(reqs, ", "))
		}
		return nil
	},
}

var curriculumExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the stored curriculum as YAML (stdout when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		skills, err := s.CurriculumRepo().LoadSkills(cmd.Context())
		if err != nil {
			return fmt.Errorf("load curriculum: %w", err)
		}
		if err := skillgraph.Validate(skills); err != nil {
			return err
		}
		data, err := curriculum.Marshal(&curriculum.Curriculum{Skills: skills})
		if err != nil {
			return err
		}

		if len(args) == 0 {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		return os.WriteFile(args[0], data, 0o644)
	},
}

func init() {
	curriculumListCmd.Flags().String("subject", "", "Only list skills of this subject")

	curriculumCmd.AddCommand(curriculumImportCmd)
	curriculumCmd.AddCommand(curriculumListCmd)
	curriculumCmd.AddCommand(curriculumExportCmd)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
