package ssh

import (
	"errors"
	"fmt"
)

// Kind classifies where a session or command failed. Callers display the
// message and only log the kind.
type Kind int

const (
	KindParse Kind = iota
	KindConnect
	KindHandshake
	KindAuth
	KindChannel
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindConnect:
		return "connect"
	case KindHandshake:
		return "handshake"
	case KindAuth:
		return "auth"
	case KindChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// Messages below are shown to the operator verbatim.
//
//nolint:stylecheck // capitalised and punctuated on purpose
var (
	ErrBadFormat        = errors.New("Invalid input format: Expected 'username@ip:port'.")
	ErrBadAddress       = errors.New("Connexion Error: invalid IPv4 socket address")
	ErrRejected         = errors.New("Authentication failed")
	ErrIdentityNotFound = errors.New("Identity not found")
)

// SessionError is returned for any failure while opening a session.
// Error() is the human readable message only.
type SessionError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *SessionError) Error() string {
	return e.Message
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func sessionError(kind Kind, err error) *SessionError {
	return &SessionError{Kind: kind, Message: err.Error(), Err: err}
}

// CommandError is returned when a command could not be run on an
// established session. A non-zero exit status is not a CommandError.
type CommandError struct {
	Command string
	Op      string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
