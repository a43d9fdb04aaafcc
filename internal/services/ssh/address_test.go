package ssh

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/gallois/duniter-node-manager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress_Valid(t *testing.T) {
	params, err := ParseAddress("alice@10.0.0.5:22")

	require.NoError(t, err)
	assert.Equal(t, "alice", params.User)
	assert.Equal(t, netip.MustParseAddr("10.0.0.5"), params.Host)
	assert.Equal(t, uint16(22), params.Port)
	assert.Equal(t, "10.0.0.5:22", params.Addr())
}

func TestParseAddress_RoundTrip(t *testing.T) {
	inputs := []string{
		"alice@10.0.0.5:22",
		"root@192.168.1.100:2222",
		"duniter@127.0.0.1:65535",
		"@1.2.3.4:1",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			params, err := ParseAddress(in)
			require.NoError(t, err)
			assert.Equal(t, in, FormatAddress(params))
		})
	}
}

func TestParseAddress_BadFormat(t *testing.T) {
	inputs := []string{"", "aliceNoAt", "10.0.0.5:22", "a@b@10.0.0.5:22", "@@"}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAddress(in)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBadFormat))
			assert.Equal(t, "Invalid input format: Expected 'username@ip:port'.", err.Error())

			var sessErr *SessionError
			require.ErrorAs(t, err, &sessErr)
			assert.Equal(t, KindParse, sessErr.Kind)
		})
	}
}

func TestParseAddress_BadAddress(t *testing.T) {
	inputs := []string{
		"alice@10.0.0.5",
		"alice@host.example:22",
		"alice@10.0.0.5:70000",
		"alice@[::1]:22",
		"alice@[::ffff:10.0.0.5]:22",
		"alice@10.0.0:22",
		"alice@",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAddress(in)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBadAddress))
			assert.Contains(t, err.Error(), "Connexion Error")
		})
	}
}

func TestClassifyCredential(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want models.CredentialKind
	}{
		{name: "plain password", in: "secret", want: models.CredentialPassword},
		{name: "empty", in: "", want: models.CredentialPassword},
		{name: "token", in: "🔑alice@laptop4242", want: models.CredentialAgent},
		{name: "marker anywhere", in: "pass🔑word", want: models.CredentialAgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := ClassifyCredential(tt.in)
			assert.Equal(t, tt.want, cred.Kind)
			assert.Equal(t, tt.in, cred.Secret)
			// deterministic
			assert.Equal(t, cred, ClassifyCredential(tt.in))
		})
	}
}

func TestCredential_StringHidesSecret(t *testing.T) {
	cred := ClassifyCredential("hunter2")

	assert.Equal(t, "password", cred.String())
	assert.NotContains(t, cred.String(), "hunter2")
}
