package models

import (
	"net/netip"
	"strconv"
)

// KeyMarker distinguishes an agent identity token from a plain password.
const KeyMarker = "🔑"

// ConnectionParams is the parsed form of a "user@ip:port" address.
type ConnectionParams struct {
	User string
	Host netip.Addr // always IPv4
	Port uint16
}

// Addr returns the dialable "ip:port" form.
func (p ConnectionParams) Addr() string {
	return netip.AddrPortFrom(p.Host, p.Port).String()
}

// CredentialKind tells how a credential authenticates.
type CredentialKind int

const (
	// CredentialPassword is sent as-is to the remote password login.
	CredentialPassword CredentialKind = iota
	// CredentialAgent selects an identity held by the local SSH agent.
	CredentialAgent
)

func (k CredentialKind) String() string {
	if k == CredentialAgent {
		return "agent"
	}
	return "password"
}

// Credential is held only for the duration of one operation.
type Credential struct {
	Kind   CredentialKind
	Secret string // the password, or the selector token
}

// String never reveals the secret.
func (c Credential) String() string {
	return c.Kind.String()
}

// Identity is a public key listed by the local agent.
type Identity struct {
	Comment  string
	Checksum uint32 // byte sum of the key blob, not a digest
	Blob     []byte
}

// Label is the comment followed by the decimal checksum. Selector tokens
// are matched by containing a label, so one label may shadow another.
func (i Identity) Label() string {
	return i.Comment + strconv.FormatUint(uint64(i.Checksum), 10)
}

// Token returns the selectable encoding: marker + comment + decimal checksum.
func (i Identity) Token() string {
	return KeyMarker + i.Label()
}

// SSHResult holds the result of a connectivity probe.
type SSHResult struct {
	CommandRun bool
	Output     string
	Error      error
}
