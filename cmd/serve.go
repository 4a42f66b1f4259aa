package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/bz888/seally/internal/api/server"
	"github.com/bz888/seally/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := initLogger(cfg, nil); err != nil {
			return err
		}
		defer logger.NewLogger("main").Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.NewFromConfig(cfg).Run(ctx)
	},
}
