package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkravets/shipmate/internal/config"
	"github.com/mkravets/shipmate/internal/docker"
	"github.com/mkravets/shipmate/internal/executor"
	"github.com/mkravets/shipmate/internal/menu"
	"github.com/mkravets/shipmate/internal/notification"
	"github.com/mkravets/shipmate/internal/telegram"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	Long: `Serve starts the long-polling Telegram bot and handles button
interactions until interrupted.

Every interaction is an independent unit of work; concurrent button presses
from one or many users are handled in parallel. The only shared state is the
immutable configuration loaded at startup.`,
	Example: `  # Run with ./config.yaml or environment variables
  shipmate serve

  # Run with an explicit config file
  shipmate serve --config /etc/shipmate/config.yaml`,
	RunE: runServe,
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync errors not actionable

	runner, closeRunner, err := newRunner(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRunner()

	facade := docker.New(runner, logger, cfg.Docker.LogTailLines, cfg.Docker.LogTailChars)

	notifier, err := notification.NewNotifier(cfg.Notification.Enabled, cfg.Notification.ShoutrrURL)
	if err != nil {
		return err
	}

	gate := menu.NewAllowList(cfg.Telegram.AllowedUsers)
	if len(gate) == 0 {
		logger.Warn("telegram.allowed_users is empty, every caller is permitted")
	}

	router := menu.NewRouter(facade, gate, notifier, logger)

	bot, err := telegram.New(cfg.Telegram.BotToken, router, logger)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("shipmate serving",
		zap.String("mode", cfg.Executor.Mode),
		zap.String("host", cfg.SSH.Host),
		zap.Int("allowed_users", len(gate)))

	bot.Start(ctx)
	logger.Info("shipmate stopped")
	return nil
}

// newLogger builds the process logger; verbose mode switches to the
// human-readable development encoder.
func newLogger() (*zap.Logger, error) {
	if IsVerbose() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newRunner builds the command transport selected by executor.mode. The
// returned closer tears down any cached connection.
func newRunner(cfg *config.Config, logger *zap.Logger) (executor.Runner, func(), error) {
	switch cfg.Executor.Mode {
	case "local":
		return executor.NewLocal(cfg.Timeout(), logger), func() {}, nil
	case "ssh":
		runner, err := executor.NewSSH(executor.SSHOptions{
			Host:     cfg.SSH.Host,
			Port:     cfg.SSH.Port,
			User:     cfg.SSH.User,
			Password: cfg.SSH.Password,
			KeyFile:  cfg.SSH.KeyFile,
			Timeout:  cfg.Timeout(),
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return runner, func() { _ = runner.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown executor mode %q", cfg.Executor.Mode)
}
