//go:build integration

package executor

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestSSH_Integration runs a trivial command against a real SSH host.
// Configure via environment and run with: go test -tags=integration ./internal/executor/...
func TestSSH_Integration(t *testing.T) {
	host := os.Getenv("SHIPMATE_TEST_SSH_HOST")
	user := os.Getenv("SHIPMATE_TEST_SSH_USER")
	password := os.Getenv("SHIPMATE_TEST_SSH_PASSWORD")
	if host == "" || user == "" || password == "" {
		t.Skip("Skipping test - SHIPMATE_TEST_SSH_* environment not configured")
	}

	runner, err := NewSSH(SSHOptions{
		Host:     host,
		User:     user,
		Password: password,
		Timeout:  10 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("NewSSH: %v", err)
	}
	defer runner.Close() //nolint:errcheck

	result, err := runner.Run(context.Background(), "echo", []string{"shipmate"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success() {
		t.Errorf("expected success, got exit %d (stderr: %s)", result.ExitCode, result.Stderr)
	}
	if result.Stdout != "shipmate\n" {
		t.Errorf("unexpected stdout %q", result.Stdout)
	}

	// Second call reuses the cached connection.
	if _, err := runner.Run(context.Background(), "true", nil); err != nil {
		t.Errorf("second run: %v", err)
	}
}
