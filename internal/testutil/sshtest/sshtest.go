// Package sshtest runs an in-process SSH server whose shell answers exec
// requests from a scripted handler.
package sshtest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"
)

// Handler answers one exec request with its stdout and exit status.
type Handler func(command string) (stdout string, status uint32)

// Options configures the accepted login and the fake shell.
type Options struct {
	User          string
	Password      string        // empty disables password auth
	AuthorizedKey ssh.PublicKey // nil disables public key auth
	Handler       Handler
}

// Server is a running fake host.
type Server struct {
	listener net.Listener
	handler  Handler

	mu       sync.Mutex
	commands []string
	sessions int
}

// Start listens on a loopback port and serves until the test ends.
func Start(t testing.TB, opts Options) *Server {
	t.Helper()

	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(hostKey)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if opts.Password != "" && c.User() == opts.User && string(pass) == opts.Password {
				return nil, nil
			}
			return nil, errors.New("password rejected")
		},
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if opts.AuthorizedKey != nil && c.User() == opts.User &&
				bytes.Equal(key.Marshal(), opts.AuthorizedKey.Marshal()) {
				return nil, nil
			}
			return nil, errors.New("key rejected")
		},
	}
	config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	handler := opts.Handler
	if handler == nil {
		handler = func(string) (string, uint32) { return "", 0 }
	}

	s := &Server{listener: ln, handler: handler}
	go s.serve(config)
	t.Cleanup(func() { _ = ln.Close() })

	return s
}

// Address returns "user@127.0.0.1:port" for the given user.
func (s *Server) Address(user string) string {
	return user + "@" + s.listener.Addr().String()
}

// Addr returns the listening "127.0.0.1:port".
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Commands returns every exec request received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Sessions returns how many connections completed the handshake.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

func (s *Server) serve(config *ssh.ServerConfig) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn, config)
	}
}

func (s *Server) handleConn(conn net.Conn, config *ssh.ServerConfig) {
	sconn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		_ = conn.Close()
		return
	}
	defer func() { _ = sconn.Close() }()

	s.mu.Lock()
	s.sessions++
	s.mu.Unlock()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		ch, chReqs, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go s.handleChannel(ch, chReqs)
	}
}

func (s *Server) handleChannel(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer func() { _ = ch.Close() }()

	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			return
		}
		_ = req.Reply(true, nil)

		s.mu.Lock()
		s.commands = append(s.commands, payload.Command)
		s.mu.Unlock()

		stdout, status := s.handler(payload.Command)
		_, _ = io.WriteString(ch, stdout)
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		_ = ch.CloseWrite()
		return
	}
}
