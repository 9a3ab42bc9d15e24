package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/stepwise/internal/app"
	"github.com/abhisek/stepwise/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP tutoring API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetString("addr"); v != "" {
			cfg.Addr = v
		}
		offline, _ := cmd.Flags().GetBool("offline")

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		if cfg.LogMode == "prod" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, log, app.Options{Offline: offline})
		if err != nil {
			return err
		}
		defer a.Close()

		return server.New(cfg.Addr, a.Coach, log).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides STEPWISE_ADDR)")
	serveCmd.Flags().Bool("offline", false, "Use the canned offline oracle instead of an LLM")
}
