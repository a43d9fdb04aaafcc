// Package ssh opens authenticated sessions on the managed host and runs
// single commands over them.
package ssh

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/gallois/duniter-node-manager/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// DefaultConnectTimeout bounds the TCP connect. Nothing else is bounded.
const DefaultConnectTimeout = 2 * time.Second

// Service defines the interface for remote session operations.
type Service interface {
	Open(ctx context.Context, address, credential string) (SSHClient, error)
	Run(client SSHClient, command string) error
	Capture(client SSHClient, command string) (string, error)
	ListIdentities() []string
	TestConnection(ctx context.Context, address, credential string) (*models.SSHResult, error)
}

// SSHClient wraps ssh.Client for mocking.
type SSHClient interface {
	NewSession() (SSHSession, error)
	Close() error
}

// SSHSession wraps ssh.Session for mocking.
type SSHSession interface {
	Output(cmd string) ([]byte, error)
	Run(cmd string) error
	Close() error
}

// Dialer opens the transport connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type defaultSSHClient struct {
	client *ssh.Client
}

func (c *defaultSSHClient) NewSession() (SSHSession, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (c *defaultSSHClient) Close() error {
	return c.client.Close()
}

// Impl implements the SSH Service interface.
type Impl struct {
	dialer         Dialer
	agents         AgentConnector
	connectTimeout time.Duration
	logger         zerolog.Logger
}

// New creates a new SSH service. A zero connectTimeout means DefaultConnectTimeout.
func New(logger zerolog.Logger, connectTimeout time.Duration) *Impl {
	return NewWithDeps(logger, &net.Dialer{}, &DefaultAgentConnector{}, connectTimeout)
}

// NewWithDeps creates a new SSH service with a custom dialer and agent (for testing).
func NewWithDeps(logger zerolog.Logger, dialer Dialer, agents AgentConnector, connectTimeout time.Duration) *Impl {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &Impl{
		dialer:         dialer,
		agents:         agents,
		connectTimeout: connectTimeout,
		logger:         logger,
	}
}

// Open parses the address, connects, performs the handshake and
// authenticates. Every failure is a *SessionError. The caller owns the
// returned client and must close it.
func (s *Impl) Open(ctx context.Context, address, credential string) (SSHClient, error) {
	params, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	cred := ClassifyCredential(credential)

	s.logger.Debug().
		Str("user", params.User).
		Str("addr", params.Addr()).
		Stringer("credential", cred).
		Msg("opening session")

	dialCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	conn, err := s.dialer.DialContext(dialCtx, "tcp", params.Addr())
	if err != nil {
		return nil, sessionError(KindConnect, err)
	}

	auth, release, err := s.Authenticate(params.User, cred)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	defer release()

	config := &ssh.ClientConfig{
		User:            params.User,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // hosts are addressed by raw IP, no known_hosts
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, params.Addr(), config)
	if err != nil {
		_ = conn.Close()
		return nil, handshakeError(err)
	}

	s.logger.Debug().Str("addr", params.Addr()).Msg("session established")

	return &defaultSSHClient{client: ssh.NewClient(c, chans, reqs)}, nil
}

func handshakeError(err error) *SessionError {
	if strings.Contains(err.Error(), "unable to authenticate") {
		return &SessionError{Kind: KindAuth, Message: ErrRejected.Error(), Err: errors.Join(ErrRejected, err)}
	}
	return sessionError(KindHandshake, err)
}

// Run executes one command on a fresh channel, discards its output and
// waits for the channel to close.
func (s *Impl) Run(client SSHClient, command string) error {
	session, err := client.NewSession()
	if err != nil {
		return &CommandError{Command: command, Op: "open channel", Err: err}
	}
	defer func() { _ = session.Close() }()

	s.logger.Debug().Str("command", command).Msg("executing command")

	if err := session.Run(command); err != nil && !isExitStatus(err) {
		return &CommandError{Command: command, Op: "execute", Err: err}
	}
	return nil
}

// Capture executes one command on a fresh channel and returns everything it
// wrote to stdout.
func (s *Impl) Capture(client SSHClient, command string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", &CommandError{Command: command, Op: "open channel", Err: err}
	}
	defer func() { _ = session.Close() }()

	s.logger.Debug().Str("command", command).Msg("executing command")

	output, err := session.Output(command)
	if err != nil && !isExitStatus(err) {
		return "", &CommandError{Command: command, Op: "execute", Err: err}
	}

	s.logger.Debug().
		Str("command", command).
		Int("bytes", len(output)).
		Msg("command completed")

	return string(output), nil
}

// isExitStatus reports whether err only carries the remote exit status.
// Probes like grep and command -v exit non-zero when nothing matches.
func isExitStatus(err error) bool {
	var exitErr *ssh.ExitError
	var missingErr *ssh.ExitMissingError
	return errors.As(err, &exitErr) || errors.As(err, &missingErr)
}

// TestConnection verifies that a session can be opened and a command run.
func (s *Impl) TestConnection(ctx context.Context, address, credential string) (*models.SSHResult, error) {
	result := &models.SSHResult{}

	s.logger.Debug().Str("address", address).Msg("testing SSH connection")

	client, err := s.Open(ctx, address, credential)
	if err != nil {
		result.Error = err
		return result, nil
	}
	defer func() { _ = client.Close() }()

	output, err := s.Capture(client, "echo OK")
	if err != nil {
		result.Error = err
		return result, nil
	}
	result.Output = output
	result.CommandRun = true

	return result, nil
}
