// Package operator implements the named lifecycle operations on a managed
// Duniter host. Each operation opens its own session, runs a fixed recipe
// of remote commands and publishes the result to a state.Store.
package operator

import (
	"context"
	"errors"
	"strings"

	"github.com/gallois/duniter-node-manager/internal/services/ssh"
	"github.com/gallois/duniter-node-manager/internal/state"
	"github.com/rs/zerolog"
)

const (
	msgNoBinary   = "No duniter on the system"
	msgNoServices = "\nNo duniter services on the system"

	prefixSessionFailed = "Failed to open session: "
	prefixCommandFailed = "Failed to execute command: "
)

// IsFailure reports whether an output value is an operation failure message.
func IsFailure(output string) bool {
	return strings.HasPrefix(output, prefixSessionFailed) || strings.HasPrefix(output, prefixCommandFailed)
}

// Service defines the interface for node lifecycle operations.
type Service interface {
	CheckInstallation(ctx context.Context, address, credential string)
	SeeLogs(ctx context.Context, address, credential, nodeType string)
	StartNode(ctx context.Context, address, credential, nodeType string)
	StopNode(ctx context.Context, address, credential, nodeType string)
	StartOracle(ctx context.Context, address, credential string)
	StopOracle(ctx context.Context, address, credential string)
	GetConfig(ctx context.Context, address, credential string)
	WriteConfig(ctx context.Context, address, credential, config string)
	ListIdentities() []string
}

// Impl implements the operator Service interface.
type Impl struct {
	sshSvc ssh.Service
	store  *state.Store
	logger zerolog.Logger
}

// New creates a new operator publishing to store.
func New(logger zerolog.Logger, sshSvc ssh.Service, store *state.Store) *Impl {
	return &Impl{
		sshSvc: sshSvc,
		store:  store,
		logger: logger,
	}
}

// Store returns the store operations publish to.
func (s *Impl) Store() *state.Store {
	return s.store
}

// withSession opens a session, runs body on it and closes it on every
// path. A session failure or a body error is written to the output.
func (s *Impl) withSession(ctx context.Context, op, address, credential string, body func(client ssh.SSHClient) error) {
	client, err := s.sshSvc.Open(ctx, address, credential)
	if err != nil {
		s.logger.Error().Err(err).Str("operation", op).Str("stage", stage(err)).Msg("failed to open session")
		s.store.SetOutput(prefixSessionFailed + err.Error())
		return
	}
	defer func() {
		if err := client.Close(); err != nil {
			s.logger.Debug().Err(err).Str("operation", op).Msg("session close")
		}
	}()

	if err := body(client); err != nil {
		s.logger.Error().Err(err).Str("operation", op).Msg("remote command failed")
		s.store.SetOutput(prefixCommandFailed + err.Error())
	}
}

func stage(err error) string {
	var sessErr *ssh.SessionError
	if errors.As(err, &sessErr) {
		return sessErr.Kind.String()
	}
	return "unknown"
}

// command runs one command and discards its output.
func (s *Impl) command(ctx context.Context, op, address, credential, cmd string) {
	s.withSession(ctx, op, address, credential, func(client ssh.SSHClient) error {
		return s.sshSvc.Run(client, cmd)
	})
}

// showLogs captures a journal query into the output.
func (s *Impl) showLogs(ctx context.Context, op, address, credential, cmd string) {
	s.withSession(ctx, op, address, credential, func(client ssh.SSHClient) error {
		logs, err := s.sshSvc.Capture(client, cmd)
		if err != nil {
			return err
		}
		s.store.SetOutput("\n " + logs)
		return nil
	})
}

// CheckInstallation reports whether the duniter2 binary and its systemd
// units are present.
func (s *Impl) CheckInstallation(ctx context.Context, address, credential string) {
	s.logger.Info().Str("address", address).Msg("checking installation")

	s.withSession(ctx, "check_installation", address, credential, func(client ssh.SSHClient) error {
		binary, err := s.sshSvc.Capture(client, cmdDetectBinary)
		if err != nil {
			return err
		}
		if binary == "" {
			s.store.SetOutput(msgNoBinary)
		} else {
			s.store.SetOutput("Duniter detected at " + binary)
		}

		services, err := s.sshSvc.Capture(client, cmdDetectServices)
		if err != nil {
			return err
		}
		if services == "" {
			s.store.AppendOutput(msgNoServices)
		} else {
			s.store.AppendOutput("\nDuniter services detected at " + services)
		}
		return nil
	})
}

// SeeLogs shows the last 100 journal lines of the node and the oracle.
func (s *Impl) SeeLogs(ctx context.Context, address, credential, nodeType string) {
	s.logger.Info().Str("address", address).Str("node", nodeType).Msg("reading logs")
	s.showLogs(ctx, "see_logs", address, credential, NodeLogsCommand(nodeType))
}

// StartNode starts the node unit then shows its logs from a new session.
func (s *Impl) StartNode(ctx context.Context, address, credential, nodeType string) {
	s.logger.Info().Str("address", address).Str("node", nodeType).Msg("starting node")
	s.command(ctx, "start_node", address, credential, StartNodeCommand(nodeType))
	s.SeeLogs(ctx, address, credential, nodeType)
}

// StopNode stops the node unit then shows its logs from a new session.
func (s *Impl) StopNode(ctx context.Context, address, credential, nodeType string) {
	s.logger.Info().Str("address", address).Str("node", nodeType).Msg("stopping node")
	s.command(ctx, "stop_node", address, credential, StopNodeCommand(nodeType))
	s.SeeLogs(ctx, address, credential, nodeType)
}

// StartOracle starts the distance oracle then shows its logs.
func (s *Impl) StartOracle(ctx context.Context, address, credential string) {
	s.logger.Info().Str("address", address).Msg("starting oracle")
	s.command(ctx, "start_oracle", address, credential, cmdStartOracle)
	s.showLogs(ctx, "start_oracle", address, credential, cmdOracleLogs)
}

// StopOracle stops the distance oracle then shows its logs.
func (s *Impl) StopOracle(ctx context.Context, address, credential string) {
	s.logger.Info().Str("address", address).Msg("stopping oracle")
	s.command(ctx, "stop_oracle", address, credential, cmdStopOracle)
	s.showLogs(ctx, "stop_oracle", address, credential, cmdOracleLogs)
}

// GetConfig reads the remote env file into the config value.
func (s *Impl) GetConfig(ctx context.Context, address, credential string) {
	s.logger.Info().Str("address", address).Msg("reading config")

	s.withSession(ctx, "get_config", address, credential, func(client ssh.SSHClient) error {
		content, err := s.sshSvc.Capture(client, cmdReadConfig)
		if err != nil {
			return err
		}
		s.store.SetConfig(strings.TrimSpace(content))
		return nil
	})
}

// WriteConfig replaces the remote env file. The output is left untouched
// unless the write fails.
func (s *Impl) WriteConfig(ctx context.Context, address, credential, config string) {
	s.logger.Info().Str("address", address).Int("bytes", len(config)).Msg("writing config")
	s.command(ctx, "write_config", address, credential, WriteConfigCommand(config))
}

// ListIdentities returns the agent identity tokens, empty when no agent is reachable.
func (s *Impl) ListIdentities() []string {
	return s.sshSvc.ListIdentities()
}
