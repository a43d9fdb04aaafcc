package ssh

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/gallois/duniter-node-manager/internal/models"
	"golang.org/x/crypto/ssh/agent"
)

// AgentConnector opens a connection to the local SSH agent.
type AgentConnector interface {
	Connect() (agent.Agent, io.Closer, error)
}

// DefaultAgentConnector talks to the agent listening on $SSH_AUTH_SOCK.
type DefaultAgentConnector struct{}

// Connect dials the agent socket.
func (c *DefaultAgentConnector) Connect() (agent.Agent, io.Closer, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, nil, errors.New("SSH_AUTH_SOCK is not set")
	}

	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to ssh agent: %w", err)
	}

	return agent.NewClient(conn), conn, nil
}

// Checksum sums the key blob bytes, wrapping at 32 bits.
func Checksum(blob []byte) uint32 {
	var sum uint32
	for _, b := range blob {
		sum += uint32(b)
	}
	return sum
}

// IdentityFromKey converts an agent key listing into an Identity.
func IdentityFromKey(k *agent.Key) models.Identity {
	return models.Identity{
		Comment:  k.Comment,
		Checksum: Checksum(k.Blob),
		Blob:     k.Blob,
	}
}

// EncodeToken returns the selectable token for a key comment and blob.
func EncodeToken(comment string, blob []byte) string {
	return models.Identity{Comment: comment, Checksum: Checksum(blob)}.Token()
}

// ListIdentities returns the token of every identity held by the local
// agent. Any agent failure yields an empty list.
func (s *Impl) ListIdentities() []string {
	tokens := []string{}

	ag, closer, err := s.agents.Connect()
	if err != nil {
		s.logger.Debug().Err(err).Msg("ssh agent unavailable")
		return tokens
	}
	defer func() { _ = closer.Close() }()

	keys, err := ag.List()
	if err != nil {
		s.logger.Debug().Err(err).Msg("failed to list agent identities")
		return tokens
	}

	for _, k := range keys {
		tokens = append(tokens, IdentityFromKey(k).Token())
	}

	s.logger.Debug().Int("count", len(tokens)).Msg("listed agent identities")
	return tokens
}
