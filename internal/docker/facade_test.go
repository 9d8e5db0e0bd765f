package docker

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	apperrors "github.com/mkravets/shipmate/internal/errors"
	"github.com/mkravets/shipmate/internal/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner implements executor.Runner for testing. It records every call
// and replies from a canned table keyed by the docker subcommand.
type fakeRunner struct {
	calls   [][]string
	results map[string]executor.Result
	err     error
}

func (r *fakeRunner) Run(_ context.Context, name string, args []string) (executor.Result, error) {
	call := append([]string{name}, args...)
	r.calls = append(r.calls, call)
	if r.err != nil {
		return executor.Result{}, r.err
	}
	if len(args) > 0 {
		if res, ok := r.results[args[0]]; ok {
			return res, nil
		}
	}
	return executor.Result{}, nil
}

func okResult(stdout string) executor.Result {
	return executor.Result{ExitCode: 0, Stdout: stdout}
}

func TestFacade_ListContainers(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]executor.Result{
		"ps": okResult("abc123\twebapp1\tUp 3 hours\tnginx:latest\n" +
			"def456\tdb_main\tExited (0) 2 minutes ago\tpostgres:16\n" +
			"ghi789\tworker\tCreated\tbusybox:latest\n"),
	}}
	f := New(runner, nil, 0, 0)

	containers, err := f.ListContainers(context.Background())
	require.NoError(t, err)
	require.Len(t, containers, 3)

	assert.Equal(t, Container{
		ID: "abc123", Name: "webapp1", State: StateRunning,
		Status: "Up 3 hours", Image: "nginx:latest",
	}, containers[0])
	assert.Equal(t, StateStopped, containers[1].State)
	assert.Equal(t, StateOther, containers[2].State)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"docker", "ps", "-a", "--format", psFormat}, runner.calls[0])
}

func TestFacade_ListContainers_EmptyHost(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]executor.Result{"ps": okResult("")}}
	f := New(runner, nil, 0, 0)

	containers, err := f.ListContainers(context.Background())
	require.NoError(t, err, "an empty host is a zero-length success, not an error")
	assert.Empty(t, containers)
}

func TestFacade_ListContainers_TransportErrorPropagates(t *testing.T) {
	t.Parallel()

	wantErr := &apperrors.ExecutionError{Host: "docker.example.net:22", Op: "docker"}
	runner := &fakeRunner{err: wantErr}
	f := New(runner, nil, 0, 0)

	_, err := f.ListContainers(context.Background())
	var execErr *apperrors.ExecutionError
	require.ErrorAs(t, err, &execErr)
}

func TestFacade_ContainerByName(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]executor.Result{
		"ps": okResult("abc123\twebapp1\tUp 3 hours\tnginx:latest\n" +
			"def456\tdb_main\tExited (0) 2 minutes ago\tpostgres:16\n"),
	}}
	f := New(runner, nil, 0, 0)

	c, err := f.ContainerByName(context.Background(), "db_main")
	require.NoError(t, err)
	assert.Equal(t, "def456", c.ID)
	assert.False(t, c.Running())

	_, err = f.ContainerByName(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFacade_IdentifierValidation(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	f := New(runner, nil, 0, 0)
	ctx := context.Background()

	bad := []string{"", "web app", "a;b", "$(reboot)", "x\ty", "-leading-dash", "web:app"}
	for _, id := range bad {
		_, err := f.ContainerByName(ctx, id)
		var invalidErr *apperrors.InvalidIdentifierError
		assert.ErrorAs(t, err, &invalidErr, "id %q", id)

		assert.ErrorAs(t, f.Start(ctx, id), &invalidErr, "start %q", id)
		assert.ErrorAs(t, f.Stop(ctx, id), &invalidErr, "stop %q", id)
		assert.ErrorAs(t, f.Restart(ctx, id), &invalidErr, "restart %q", id)
		_, err = f.Logs(ctx, id)
		assert.ErrorAs(t, err, &invalidErr, "logs %q", id)
	}

	// Nothing reached the runner: validation gates every remote call.
	assert.Empty(t, runner.calls)
}

func TestFacade_Actions(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]executor.Result{
		"start":   okResult("webapp1\n"),
		"stop":    okResult("webapp1\n"),
		"restart": {ExitCode: 1, Stderr: "Error response from daemon: No such container: webapp1"},
	}}
	f := New(runner, nil, 0, 0)
	ctx := context.Background()

	require.NoError(t, f.Start(ctx, "webapp1"))
	require.NoError(t, f.Stop(ctx, "webapp1"))

	err := f.Restart(ctx, "webapp1")
	var cmdErr *apperrors.RemoteCommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Contains(t, cmdErr.Stderr, "No such container")

	assert.Equal(t, []string{"docker", "start", "webapp1"}, runner.calls[0])
	assert.Equal(t, []string{"docker", "stop", "webapp1"}, runner.calls[1])
	assert.Equal(t, []string{"docker", "restart", "webapp1"}, runner.calls[2])
}

func TestFacade_Action_SilentFailureIsEmptyResult(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]executor.Result{
		"start": {ExitCode: 1},
	}}
	f := New(runner, nil, 0, 0)

	err := f.Start(context.Background(), "webapp1")
	var emptyErr *apperrors.EmptyResultError
	assert.ErrorAs(t, err, &emptyErr)
}

func TestFacade_Logs_Truncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 80) + strings.Repeat("y", 20)
	runner := &fakeRunner{results: map[string]executor.Result{
		"logs": okResult(long),
	}}
	f := New(runner, nil, 10, 50)

	logs, err := f.Logs(context.Background(), "webapp1")
	require.NoError(t, err)

	// Exactly the tail 50 characters, newest output kept, marker appended.
	assert.Equal(t, strings.Repeat("x", 30)+strings.Repeat("y", 20)+TruncationMarker, logs)

	assert.Equal(t, []string{"docker", "logs", "--tail", "10", "webapp1"}, runner.calls[0])
}

func TestFacade_Logs_TruncationKeepsRunesIntact(t *testing.T) {
	t.Parallel()

	// 200 two-byte runes; a ceiling of 101 bytes lands mid-rune, so the cut
	// must advance to the next boundary instead of emitting invalid UTF-8.
	long := strings.Repeat("ы", 200)
	runner := &fakeRunner{results: map[string]executor.Result{
		"logs": okResult(long),
	}}
	f := New(runner, nil, 10, 101)

	logs, err := f.Logs(context.Background(), "webapp1")
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(logs))
	assert.Equal(t, strings.Repeat("ы", 50)+TruncationMarker, logs)
}

func TestFacade_Logs_ShortPassesThroughUnchanged(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]executor.Result{
		"logs": okResult("short log\n"),
	}}
	f := New(runner, nil, 0, 0)

	logs, err := f.Logs(context.Background(), "webapp1")
	require.NoError(t, err)
	assert.Equal(t, "short log\n", logs)
}

func TestFacade_Logs_IncludesStderrStream(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]executor.Result{
		"logs": {ExitCode: 0, Stdout: "out\n", Stderr: "err\n"},
	}}
	f := New(runner, nil, 0, 0)

	logs, err := f.Logs(context.Background(), "webapp1")
	require.NoError(t, err)
	assert.Equal(t, "out\nerr\n", logs)
}

func TestFacade_Stats(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{results: map[string]executor.Result{
		"stats": okResult("webapp1\t12.34%\t5.60%\t120MiB / 2GiB\n" +
			"db_main\tbroken\t1.00%\t50MiB / 2GiB\n"),
	}}
	f := New(runner, nil, 0, 0)

	samples, err := f.Stats(context.Background())
	require.NoError(t, err)
	require.Len(t, samples, 1, "unparsable rows are skipped, not fatal")

	assert.Equal(t, StatsSample{
		Name:       "webapp1",
		CPUPercent: 12.34,
		MemPercent: 5.6,
		MemUsage:   "120MiB / 2GiB",
	}, samples[0])
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status string
		want   State
	}{
		{"Up 3 hours", StateRunning},
		{"Up About a minute (healthy)", StateRunning},
		{"Exited (0) 2 minutes ago", StateStopped},
		{"Exited (137) 3 days ago", StateStopped},
		{"Created", StateOther},
		{"Restarting (1) 5 seconds ago", StateOther},
		{"up 3 hours", StateOther}, // marker is case-sensitive
		{"", StateOther},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.status, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, classifyStatus(tt.status))
		})
	}
}
