package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/stepwise/internal/app"
	"github.com/abhisek/stepwise/internal/config"
	"github.com/abhisek/stepwise/internal/logger"
	"github.com/abhisek/stepwise/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "stepwise",
	Short:         "Adaptive prerequisite-aware tutor",
	Long:          "Stepwise places a learner on a skill graph with a few probe questions, then teaches the missing skills one at a time.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite path or postgres:// DSN (overrides STEPWISE_DB)")
	rootCmd.PersistentFlags().String("curriculum", "", "Curriculum YAML file (overrides STEPWISE_CURRICULUM)")
	rootCmd.PersistentFlags().String("log-mode", "", "Log mode: dev or prod (overrides STEPWISE_LOG_MODE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(curriculumCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, err
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DB = v
	}
	if v, _ := cmd.Flags().GetString("curriculum"); v != "" {
		cfg.Curriculum = v
	}
	if v, _ := cmd.Flags().GetString("log-mode"); v != "" {
		cfg.LogMode = v
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// openStore opens the store named by flags and environment, for commands
// that need no tutor.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.OpenStore(cmd.Context(), cfg)
}
