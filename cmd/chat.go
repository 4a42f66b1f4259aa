package cmd

import (
	"context"
	"time"

	"github.com/bz888/seally/internal/api"
	"github.com/bz888/seally/internal/config"
	"github.com/bz888/seally/internal/logger"
	"github.com/bz888/seally/internal/ui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the chat UI against a running relay server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		chatUI, err := newChatUI(cfg)
		if err != nil {
			return err
		}
		if err := initLogger(cfg, chatUI.DebugConsole()); err != nil {
			return err
		}
		defer logger.NewLogger("main").Close()

		checkServer(cmd.Context(), cfg)
		return chatUI.Run()
	},
}

func newChatUI(cfg *config.Config) (*ui.UI, error) {
	client, err := api.NewClient(cfg.ServerURL, nil)
	if err != nil {
		return nil, err
	}
	return ui.New(client, cfg.Dev), nil
}

// checkServer only warns, the relay may come up after the UI.
func checkServer(ctx context.Context, cfg *config.Config) {
	client, err := api.NewClient(cfg.ServerURL, nil)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Status(ctx); err != nil {
		logger.NewLogger("main").Warn("Relay server not reachable at", cfg.ServerURL+":", err)
	}
}
