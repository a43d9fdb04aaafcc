package ssh

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/gallois/duniter-node-manager/internal/models"
)

// ParseAddress splits "user@ip:port" into its parts. The host must be a
// literal IPv4 address.
func ParseAddress(s string) (models.ConnectionParams, error) {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return models.ConnectionParams{}, sessionError(KindParse, ErrBadFormat)
	}

	ap, err := netip.ParseAddrPort(parts[1])
	if err != nil || !ap.Addr().Is4() {
		return models.ConnectionParams{}, &SessionError{
			Kind:    KindParse,
			Message: fmt.Sprintf("%s %q", ErrBadAddress.Error(), parts[1]),
			Err:     ErrBadAddress,
		}
	}

	return models.ConnectionParams{
		User: parts[0],
		Host: ap.Addr(),
		Port: ap.Port(),
	}, nil
}

// ClassifyCredential tells a password from an agent identity token by the
// presence of the key marker.
func ClassifyCredential(s string) models.Credential {
	if strings.Contains(s, models.KeyMarker) {
		return models.Credential{Kind: models.CredentialAgent, Secret: s}
	}
	return models.Credential{Kind: models.CredentialPassword, Secret: s}
}

// FormatAddress is the inverse of ParseAddress.
func FormatAddress(p models.ConnectionParams) string {
	return p.User + "@" + p.Host.String() + ":" + strconv.FormatUint(uint64(p.Port), 10)
}
