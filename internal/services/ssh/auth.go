package ssh

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gallois/duniter-node-manager/internal/models"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Authenticate resolves a credential into an auth method for the handshake.
// The returned release func must be called once the handshake is over; for
// agent credentials it closes the agent connection.
func (s *Impl) Authenticate(user string, cred models.Credential) (ssh.AuthMethod, func(), error) {
	if cred.Kind == models.CredentialPassword {
		return ssh.Password(cred.Secret), func() {}, nil
	}

	ag, closer, err := s.agents.Connect()
	if err != nil {
		return nil, nil, &SessionError{Kind: KindAuth, Message: err.Error(), Err: err}
	}
	release := func() { _ = closer.Close() }

	identity, signer, err := selectIdentity(ag, cred.Secret)
	if err != nil {
		release()
		return nil, nil, err
	}

	s.logger.Debug().
		Str("user", user).
		Str("identity", identity.Comment).
		Msg("selected agent identity")

	return ssh.PublicKeys(signer), release, nil
}

// selectIdentity picks the first agent identity whose label is contained in
// the selector.
func selectIdentity(ag agent.Agent, selector string) (models.Identity, ssh.Signer, error) {
	keys, err := ag.List()
	if err != nil {
		return models.Identity{}, nil, &SessionError{
			Kind:    KindAuth,
			Message: fmt.Sprintf("failed to list agent identities: %v", err),
			Err:     err,
		}
	}

	for _, k := range keys {
		identity := IdentityFromKey(k)
		if !strings.Contains(selector, identity.Label()) {
			continue
		}

		signers, err := ag.Signers()
		if err != nil {
			return models.Identity{}, nil, &SessionError{
				Kind:    KindAuth,
				Message: fmt.Sprintf("failed to load agent signers: %v", err),
				Err:     err,
			}
		}
		for _, signer := range signers {
			if bytes.Equal(signer.PublicKey().Marshal(), k.Blob) {
				return identity, signer, nil
			}
		}
	}

	return models.Identity{}, nil, sessionError(KindAuth, ErrIdentityNotFound)
}
