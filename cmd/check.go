package cmd

import (
	"context"
	"fmt"

	"github.com/mkravets/shipmate/internal/docker"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify connectivity to the Docker host",
	Long: `Check runs one docker command through the configured transport and
reports the engine version and container count. Use it to validate SSH
credentials and Docker availability before starting the bot.`,
	Example: `  shipmate check
  shipmate check --config /etc/shipmate/config.yaml`,
	RunE: runCheck,
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, _ []string) error {
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
	ctx := context.Background()

	target := cfg.SSH.Host
	if cfg.Executor.Mode == "local" {
		target = "local"
	}
	fmt.Printf("🔍 Checking Docker on %s...\n", target)

	engineVersion, err := facade.ServerVersion(ctx)
	if err != nil {
		return fmt.Errorf("docker not reachable: %w", err)
	}
	fmt.Printf("✅ Docker engine %s\n", engineVersion)

	containers, err := facade.ListContainers(ctx)
	if err != nil {
		return fmt.Errorf("listing containers: %w", err)
	}

	running := 0
	for _, c := range containers {
		if c.Running() {
			running++
		}
	}
	fmt.Printf("📦 %d container(s), %d running\n", len(containers), running)

	return nil
}
