// Package docker exposes typed, validated container operations built on the
// command executor and the tabular parser.
//
// Every operation shells out to the Docker CLI on the target host with a
// --format template whose fields are tab-separated; tabular.Delimiter is the
// contract that makes that safe (Docker never emits tabs inside the selected
// fields). Identifier arguments are validated against the Docker name
// character set before any command is constructed, so nothing
// attacker-influenced ever reaches the transport unchecked.
package docker

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "github.com/mkravets/shipmate/internal/errors"
	"github.com/mkravets/shipmate/internal/executor"
	"github.com/mkravets/shipmate/internal/tabular"
	"go.uber.org/zap"
)

// Common errors
var (
	// ErrNotFound is returned when no container matches the requested name.
	ErrNotFound = errors.New("container not found")
)

// runningPrefix is the exact marker the Docker CLI puts at the front of the
// status column for an active container. Case-sensitive by contract.
const runningPrefix = "Up"

// stoppedPrefix marks a cleanly exited container.
const stoppedPrefix = "Exited"

// Format templates for the listing commands. Field counts below must match.
const (
	psFormat     = "{{.ID}}\t{{.Names}}\t{{.Status}}\t{{.Image}}"
	psFields     = 4
	imagesFormat = "{{.Repository}}\t{{.Tag}}\t{{.Size}}\t{{.CreatedAt}}"
	imagesFields = 4
	statsFormat  = "{{.Name}}\t{{.CPUPerc}}\t{{.MemPerc}}\t{{.MemUsage}}"
	statsFields  = 4
)

// DefaultLogTailLines is how many trailing log lines are requested from the
// remote host when the config does not say otherwise.
const DefaultLogTailLines = 50

// DefaultLogTailChars bounds the log text handed to the transport. Telegram
// rejects messages over 4096 characters; the headroom covers the screen
// header and the truncation marker.
const DefaultLogTailChars = 3500

// TruncationMarker is appended whenever log output is cut at the tail.
const TruncationMarker = "\n… (older output truncated)"

// identifierPattern is the Docker container name/id character set. Anything
// outside it is rejected before a command line is built.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateIdentifier checks id against the allowed character set.
func ValidateIdentifier(id string) error {
	if !identifierPattern.MatchString(id) {
		return &apperrors.InvalidIdentifierError{ID: id}
	}
	return nil
}

// Facade executes Docker operations through a Runner and maps the raw output
// to typed records. Safe for concurrent use.
type Facade struct {
	runner    executor.Runner
	log       *zap.Logger
	tailLines int
	tailChars int
}

// New builds a Facade over runner. Non-positive tail settings fall back to
// the package defaults.
func New(runner executor.Runner, log *zap.Logger, tailLines, tailChars int) *Facade {
	if log == nil {
		log = zap.NewNop()
	}
	if tailLines <= 0 {
		tailLines = DefaultLogTailLines
	}
	if tailChars <= 0 {
		tailChars = DefaultLogTailChars
	}
	return &Facade{runner: runner, log: log, tailLines: tailLines, tailChars: tailChars}
}

// ListContainers returns a snapshot of all containers on the host, running
// or not. An empty host yields an empty slice and no error.
func (f *Facade) ListContainers(ctx context.Context) ([]Container, error) {
	res, err := f.run(ctx, "ps", "-a", "--format", psFormat)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, commandError("ps", res)
	}

	rows, skipped := tabular.Parse(res.Stdout, psFields)
	if skipped > 0 {
		f.log.Warn("container listing rows skipped", zap.Int("skipped", skipped))
	}

	containers := make([]Container, 0, len(rows))
	for _, row := range rows {
		containers = append(containers, Container{
			ID:     row[0],
			Name:   row[1],
			State:  classifyStatus(row[2]),
			Status: row[2],
			Image:  row[3],
		})
	}
	return containers, nil
}

// ContainerByName returns the current snapshot record for the named
// container, or ErrNotFound. The container name is the canonical identifier
// throughout shipmate; ids appear only as display data.
func (f *Facade) ContainerByName(ctx context.Context, name string) (Container, error) {
	if err := ValidateIdentifier(name); err != nil {
		return Container{}, err
	}

	containers, err := f.ListContainers(ctx)
	if err != nil {
		return Container{}, err
	}
	for _, c := range containers {
		if c.Name == name {
			return c, nil
		}
	}
	return Container{}, ErrNotFound
}

// ListImages returns a snapshot of the images present on the host.
func (f *Facade) ListImages(ctx context.Context) ([]Image, error) {
	res, err := f.run(ctx, "images", "--format", imagesFormat)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, commandError("images", res)
	}

	rows, skipped := tabular.Parse(res.Stdout, imagesFields)
	if skipped > 0 {
		f.log.Warn("image listing rows skipped", zap.Int("skipped", skipped))
	}

	images := make([]Image, 0, len(rows))
	for _, row := range rows {
		images = append(images, Image{
			Repository: row[0],
			Tag:        row[1],
			Size:       row[2],
			Created:    row[3],
		})
	}
	return images, nil
}

// Start starts the named container.
func (f *Facade) Start(ctx context.Context, name string) error {
	return f.action(ctx, "start", name)
}

// Stop stops the named container.
func (f *Facade) Stop(ctx context.Context, name string) error {
	return f.action(ctx, "stop", name)
}

// Restart restarts the named container.
func (f *Facade) Restart(ctx context.Context, name string) error {
	return f.action(ctx, "restart", name)
}

// Logs returns the tail of the named container's log output. Text longer
// than the configured character ceiling is cut at the tail only, keeping the
// newest output, with TruncationMarker appended; shorter text passes through
// byte-for-byte.
func (f *Facade) Logs(ctx context.Context, name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", err
	}

	res, err := f.run(ctx, "logs", "--tail", strconv.Itoa(f.tailLines), name)
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", commandError("logs", res)
	}

	// docker logs replays the container's stdout and stderr on the matching
	// streams; both are part of "the logs" here.
	text := res.Stdout + res.Stderr
	if len(text) > f.tailChars {
		text = tailRunes(text, f.tailChars) + TruncationMarker
	}
	return text, nil
}

// tailRunes returns at most max trailing bytes of s without starting inside a
// multi-byte rune. Telegram rejects messages carrying invalid UTF-8, so a
// byte-exact cut through a rune would cost the user the whole screen.
func tailRunes(s string, max int) string {
	cut := len(s) - max
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return s[cut:]
}

// Stats returns one instantaneous resource sample per running container.
func (f *Facade) Stats(ctx context.Context) ([]StatsSample, error) {
	res, err := f.run(ctx, "stats", "--no-stream", "--format", statsFormat)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, commandError("stats", res)
	}

	rows, skipped := tabular.Parse(res.Stdout, statsFields)
	samples := make([]StatsSample, 0, len(rows))
	for _, row := range rows {
		cpu, cpuErr := parsePercent(row[1])
		mem, memErr := parsePercent(row[2])
		if cpuErr != nil || memErr != nil {
			skipped++
			continue
		}
		samples = append(samples, StatsSample{
			Name:       row[0],
			CPUPercent: cpu,
			MemPercent: mem,
			MemUsage:   row[3],
		})
	}
	if skipped > 0 {
		f.log.Warn("stats rows skipped", zap.Int("skipped", skipped))
	}
	return samples, nil
}

// ServerVersion reports the Docker engine version on the target host. Used by
// the connectivity check.
func (f *Facade) ServerVersion(ctx context.Context) (string, error) {
	res, err := f.run(ctx, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", commandError("version", res)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// run invokes the docker binary through the runner. Transport failures and
// timeouts pass through with their own error types; exit-code handling stays
// with each operation.
func (f *Facade) run(ctx context.Context, args ...string) (executor.Result, error) {
	res, err := f.runner.Run(ctx, "docker", args)
	if err != nil {
		return executor.Result{}, err
	}
	return res, nil
}

// action validates name and performs a state-changing docker command on it.
func (f *Facade) action(ctx context.Context, verb, name string) error {
	if err := ValidateIdentifier(name); err != nil {
		return err
	}

	res, err := f.run(ctx, verb, name)
	if err != nil {
		return err
	}
	if !res.Success() {
		return commandError(verb, res)
	}
	return nil
}

// commandError maps a failed Result to the error taxonomy: stderr-bearing
// failures carry the message, silent ones become the ambiguous empty case.
func commandError(op string, res executor.Result) error {
	stderr := strings.TrimSpace(res.Stderr)
	if stderr == "" && strings.TrimSpace(res.Stdout) == "" {
		return &apperrors.EmptyResultError{Op: op}
	}
	return &apperrors.RemoteCommandError{Op: op, ExitCode: res.ExitCode, Stderr: stderr}
}

// classifyStatus derives the running-state enum from Docker's status column.
// "Up ..." means running, "Exited ..." means stopped, anything else
// (created, restarting, paused, dead) is other.
func classifyStatus(status string) State {
	switch {
	case strings.HasPrefix(status, runningPrefix):
		return StateRunning
	case strings.HasPrefix(status, stoppedPrefix):
		return StateStopped
	default:
		return StateOther
	}
}

// parsePercent parses Docker's "NN.NN%" stat tokens.
func parsePercent(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
}
