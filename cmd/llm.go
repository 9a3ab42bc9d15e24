package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/stepwise/internal/llm"
	"github.com/abhisek/stepwise/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM usage and models",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		events = slices.DeleteFunc(events, func(e store.LLMRequestEvent) bool {
			return purpose != "" && e.Purpose != purpose
		})
		if limit > 0 && len(events) > limit {
			events = events[len(events)-limit:]
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM events found.")
			return nil
		}

		fmt.Fprintf(out, "%-6s  %-19s  %-10s  %-28s  %-6s  %-6s  %-7s  %s\n",
			"Seq", "Timestamp", "Purpose", "Model", "In", "Out", "Ms", "OK")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, e := range events {
			ok := "✓"
			if !e.Success {
				ok = "✗ " + truncate(e.ErrorMessage, 40)
			}
			fmt.Fprintf(out, "%-6d  %-19s  %-10s  %-28s  %-6d  %-6d  %-7d  %s\n",
				e.Sequence,
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				e.Purpose,
				truncate(e.Model, 28),
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				ok,
			)
		}
		return nil
	},
}

type usage struct {
	calls, in, out int
	latencyMs      int64
	cost           float64
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage and estimated cost by purpose",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No LLM usage recorded yet.")
			return nil
		}

		byPurpose := make(map[string]*usage)
		var total usage
		for _, e := range events {
			u, ok := byPurpose[e.Purpose]
			if !ok {
				u = &usage{}
				byPurpose[e.Purpose] = u
			}
			for _, t := range []*usage{u, &total} {
				t.calls++
				t.in += e.InputTokens
				t.out += e.OutputTokens
				t.latencyMs += e.LatencyMs
				t.cost += e.CostUSD
			}
		}

		fmt.Fprintf(out, "%-12s  %6s  %10s  %10s  %8s  %10s\n", "Purpose", "Calls", "Input", "Output", "Avg Ms", "Cost USD")
		fmt.Fprintln(out, strings.Repeat("─", 66))
		purposes := make([]string, 0, len(byPurpose))
		for p := range byPurpose {
			purposes = append(purposes, p)
		}
		slices.Sort(purposes)
		for _, p := range purposes {
			u := byPurpose[p]
			fmt.Fprintf(out, "%-12s  %6d  %10d  %10d  %8d  %10.4f\n", p, u.calls, u.in, u.out, u.latencyMs/int64(u.calls), u.cost)
		}
		fmt.Fprintln(out, strings.Repeat("─", 66))
		fmt.Fprintf(out, "%-12s  %6d  %10d  %10d  %8d  %10.4f\n", "TOTAL", total.calls, total.in, total.out, total.latencyMs/int64(total.calls), total.cost)
		return nil
	},
}

var llmModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models with known pricing",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-36s  %10s  %10s\n", "Model", "In $/MTok", "Out $/MTok")
		fmt.Fprintln(out, strings.Repeat("─", 60))
		for _, id := range llm.PricedModels() {
			c := llm.LookupCost(id)
			fmt.Fprintf(out, "%-36s  %10.3f  %10.3f\n", id, c.InputPerMTok, c.OutputPerMTok)
		}
	},
}

func init() {
	llmListCmd.Flags().Int("limit", 20, "Maximum number of events to show")
	llmListCmd.Flags().String("purpose", "", "Filter by purpose (explain, practice, assess, summary, complete, judge)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmStatsCmd)
	llmCmd.AddCommand(llmModelsCmd)
}
