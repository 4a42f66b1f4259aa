package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bz888/seally/internal/api/server"
	"github.com/bz888/seally/internal/config"
	"github.com/bz888/seally/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "seally",
	Short: "Chat with Seally, a seal expert, from your terminal",
	Long: `Seally relays a conversation to a Groq hosted model and streams the reply back.

Without a subcommand the relay server is started in the background and the chat
UI is opened against it.`,
	SilenceUsage: true,
	RunE:         runAll,
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(serveCmd, chatCmd)
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runAll runs the relay in the background and the chat UI in the foreground.
// Quitting the UI shuts the relay down.
func runAll(cmd *cobra.Command, args []string) error {
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
	mainLogger := logger.NewLogger("main")
	defer mainLogger.Close()

	relay := server.NewFromConfig(cfg)
	listener, err := relay.Listen()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- relay.Serve(ctx, listener)
	}()
	go func() {
		<-ctx.Done()
		chatUI.Stop()
	}()

	uiErr := chatUI.Run()
	stop()
	serverErr := <-serverDone
	if serverErr != nil {
		mainLogger.Error("Server stopped:", serverErr)
	}
	return errors.Join(uiErr, serverErr)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	return cfg, nil
}

func initLogger(cfg *config.Config, view *tview.TextView) error {
	if err := logger.InitLogger(cfg.Dev, cfg.LogPath, view); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}
