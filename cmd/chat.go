package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/stepwise/internal/app"
	"github.com/abhisek/stepwise/internal/logger"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the tutor in the terminal",
	Long:  "Starts a line-oriented tutoring session. Type \"quit\" or press Ctrl+D to leave; the session is kept for next time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		offline, _ := cmd.Flags().GetBool("offline")
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			token = uuid.NewString()
		}

		// Logs would interleave with the conversation.
		a, err := app.New(cmd.Context(), cfg, logger.Nop(), app.Options{Offline: offline})
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session token: %s (resume with --token %s)\n\n", token, token)

		reply, err := a.Coach.HandleTurn(cmd.Context(), token, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "tutor> %s\n\n", reply.Text)

		in := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "you> ")
			if !in.Scan() {
				fmt.Fprintln(out)
				return in.Err()
			}
			line := strings.TrimSpace(in.Text())
			if line == "quit" || line == "exit" {
				return nil
			}

			reply, err := a.Coach.HandleTurn(cmd.Context(), token, line)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\ntutor> %s\n\n", reply.Text)
			for _, id := range reply.Mastered {
				fmt.Fprintf(out, "  ✓ mastered skill %s\n", id)
			}
		}
	},
}

func init() {
	chatCmd.Flags().String("token", "", "Learner token to resume (default: a new random token)")
	chatCmd.Flags().Bool("offline", false, "Use the canned offline oracle instead of an LLM")
}
