package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gallois/duniter-node-manager/internal/models"
	"github.com/gallois/duniter-node-manager/internal/services/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_LoadReader_MinimalConfig(t *testing.T) {
	yaml := `
remote:
  address: "alice@10.0.0.5:22"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "alice@10.0.0.5:22", cfg.Remote.Address)
	assert.Empty(t, cfg.Remote.Credential)
	// Check defaults
	assert.Equal(t, 2*time.Second, cfg.Remote.ConnectTimeout)
	assert.Equal(t, "mirror", cfg.Node.Type)
}

func TestParser_LoadReader_FullConfig(t *testing.T) {
	yaml := `
remote:
  address: "duniter@192.168.1.100:2222"
  credential: "🔑alice@laptop4242"
  connect_timeout: 5s

node:
  type: smith
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "duniter@192.168.1.100:2222", cfg.Remote.Address)
	assert.Equal(t, "🔑alice@laptop4242", cfg.Remote.Credential)
	assert.Equal(t, 5*time.Second, cfg.Remote.ConnectTimeout)
	assert.Equal(t, "smith", cfg.Node.Type)
}

func TestParser_LoadReader_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DNM_PASSWORD", "env_secret")

	yaml := `
remote:
  address: "alice@10.0.0.5:22"
  credential: "${TEST_DNM_PASSWORD}"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "env_secret", cfg.Remote.Credential)
}

func TestParser_LoadReader_EmptyConfig(t *testing.T) {
	parser := NewParser()
	cfg, err := parser.LoadReader("{}")

	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestParser_LoadReader_InvalidAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		target  error
	}{
		{name: "no at", address: "aliceNoAt", target: ssh.ErrBadFormat},
		{name: "hostname", address: "alice@node.example:22", target: ssh.ErrBadAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yaml := "remote:\n  address: \"" + tt.address + "\"\n"
			_, err := NewParser().LoadReader(yaml)

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target))
			assert.Contains(t, err.Error(), "remote.address")
		})
	}
}

func TestParser_LoadReader_InvalidTimeout(t *testing.T) {
	yaml := `
remote:
  address: "alice@10.0.0.5:22"
  connect_timeout: 0s
`
	_, err := NewParser().LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect_timeout")
}

func TestParser_LoadReader_InvalidYAML(t *testing.T) {
	_, err := NewParser().LoadReader("remote: [unclosed")

	assert.Error(t, err)
}

func TestParser_LoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	content := `
remote:
  address: "alice@10.0.0.5:22"
node:
  type: smith
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewParser().LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "smith", cfg.Node.Type)
}

func TestParser_LoadFile_NotFound(t *testing.T) {
	_, err := NewParser().LoadFile("/nonexistent/config.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestValidate(t *testing.T) {
	valid := func() *models.AppConfig {
		cfg := Defaults()
		cfg.Remote.Address = "alice@10.0.0.5:22"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *models.AppConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*models.AppConfig) {}},
		{name: "missing address", mutate: func(cfg *models.AppConfig) { cfg.Remote.Address = "" }, wantErr: "remote.address is required"},
		{name: "bad address", mutate: func(cfg *models.AppConfig) { cfg.Remote.Address = "alice" }, wantErr: "remote.address"},
		{name: "missing node type", mutate: func(cfg *models.AppConfig) { cfg.Node.Type = "" }, wantErr: "node.type is required"},
		{name: "zero timeout", mutate: func(cfg *models.AppConfig) { cfg.Remote.ConnectTimeout = 0 }, wantErr: "connect_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := Validate(cfg)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Nil(t *testing.T) {
	assert.Error(t, Validate(nil))
}
