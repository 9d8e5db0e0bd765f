package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	apperrors "github.com/mkravets/shipmate/internal/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// SSHOptions are the connection parameters for an SSH runner. Password and
// KeyFile are alternatives; when both are set the key is tried first.
type SSHOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyFile  string
	Timeout  time.Duration
}

// SSH runs commands on a remote host over SSH. The connection is dialed
// lazily on first use and reused across calls; each call gets its own
// session, so concurrent outstanding commands are supported. A broken
// connection is dropped and redialed on the next call.
type SSH struct {
	addr    string
	user    string
	auth    []ssh.AuthMethod
	timeout time.Duration
	log     *zap.Logger

	mu     sync.Mutex
	client *ssh.Client
}

// Compile-time verification that SSH implements Runner
var _ Runner = (*SSH)(nil)

// NewSSH builds an SSH runner from opts. It fails if no credential is
// configured or the key file cannot be parsed; it does not dial yet.
func NewSSH(opts SSHOptions, log *zap.Logger) (*SSH, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var auth []ssh.AuthMethod
	if opts.KeyFile != "" {
		pem, err := os.ReadFile(opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading ssh key %s: %w", opts.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parsing ssh key %s: %w", opts.KeyFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if opts.Password != "" {
		auth = append(auth, ssh.Password(opts.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("ssh runner for %s: no password or key file configured", opts.Host)
	}

	port := opts.Port
	if port == 0 {
		port = 22
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &SSH{
		addr:    fmt.Sprintf("%s:%d", opts.Host, port),
		user:    opts.User,
		auth:    auth,
		timeout: timeout,
		log:     log,
	}, nil
}

// Run executes name with args on the remote host.
//
// SSH carries a single remote command string, so the discrete argument list
// is joined here. That string is treated as an opaque payload: the docker
// facade validates every caller-influenced argument against the identifier
// character set before it reaches this point, and the remaining arguments are
// fixed literals.
func (s *SSH) Run(ctx context.Context, name string, args []string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client, err := s.ensureClient()
	if err != nil {
		return Result{}, &apperrors.ExecutionError{Host: s.addr, Op: name, Err: err}
	}

	session, err := client.NewSession()
	if err != nil {
		// Stale connection; force a redial on the next call.
		s.dropClient(client)
		return Result{}, &apperrors.ExecutionError{Host: s.addr, Op: name, Err: err}
	}
	defer session.Close() //nolint:errcheck // session already consumed

	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	commandLine := joinCommand(name, args)
	start := time.Now()

	done := make(chan error, 1)
	go func() {
		done <- session.Run(commandLine)
	}()

	select {
	case <-ctx.Done():
		// Tear down the in-flight session; the goroutine above unblocks once
		// the session closes.
		_ = session.Close()
		if errors.Is(ctx.Err(), context.Canceled) {
			return Result{}, &apperrors.ExecutionError{Host: s.addr, Op: name, Err: ctx.Err()}
		}
		s.log.Warn("remote command timed out",
			zap.String("host", s.addr),
			zap.String("command", name),
			zap.Duration("limit", s.timeout))
		return Result{}, &apperrors.TimeoutError{Host: s.addr, Op: name, Limit: s.timeout}
	case runErr := <-done:
		elapsed := time.Since(start)
		if runErr != nil {
			var exitErr *ssh.ExitError
			if errors.As(runErr, &exitErr) {
				return Result{
					ExitCode: exitErr.ExitStatus(),
					Stdout:   stdout.String(),
					Stderr:   stderr.String(),
					Elapsed:  elapsed,
				}, nil
			}
			s.dropClient(client)
			return Result{}, &apperrors.ExecutionError{Host: s.addr, Op: name, Err: runErr}
		}
		return Result{
			ExitCode: 0,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Elapsed:  elapsed,
		}, nil
	}
}

// Close tears down the cached connection, if any.
func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// ensureClient returns the cached connection, dialing if needed.
func (s *SSH) ensureClient() (*ssh.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	cfg := &ssh.ClientConfig{
		User: s.user,
		Auth: s.auth,
		// Target hosts are operator-owned; strict host key checking is
		// intentionally off.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         s.timeout,
	}

	client, err := ssh.Dial("tcp", s.addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", s.addr, err)
	}

	s.log.Info("ssh connection established",
		zap.String("host", s.addr),
		zap.String("user", s.user))
	s.client = client
	return client, nil
}

// dropClient discards the cached connection if it is still the one the
// failing call used, so a concurrent redial is not thrown away.
func (s *SSH) dropClient(failed *ssh.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == failed {
		_ = s.client.Close()
		s.client = nil
	}
}

// plainArg matches arguments that can travel unquoted through the remote
// shell: flags, identifiers, plain paths.
var plainArg = regexp.MustCompile(`^[A-Za-z0-9_.,=/:@%+-]+$`)

// joinCommand assembles the single remote command string from a discrete
// argument list. Arguments outside the plain set (notably --format templates
// containing tabs) are single-quoted so the remote shell passes them through
// as one word.
func joinCommand(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, arg := range args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if plainArg.MatchString(arg) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
