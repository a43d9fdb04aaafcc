// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/gallois/duniter-node-manager/internal/models"
	"github.com/gallois/duniter-node-manager/internal/services/ssh"
	"github.com/spf13/viper"
)

// DefaultNodeType is used when node.type is not set.
const DefaultNodeType = "mirror"

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.AppConfig, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.AppConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

// Defaults returns the configuration used when no file is given.
func Defaults() *models.AppConfig {
	return &models.AppConfig{
		Remote: models.RemoteConfig{ConnectTimeout: ssh.DefaultConnectTimeout},
		Node:   models.NodeConfig{Type: DefaultNodeType},
	}
}

func (p *Parser) parse() (*models.AppConfig, error) {
	cfg := Defaults()

	cfg.Remote.Address = p.v.GetString("remote.address")
	cfg.Remote.Credential = p.expandEnv(p.v.GetString("remote.credential"))

	if p.v.IsSet("remote.connect_timeout") {
		cfg.Remote.ConnectTimeout = p.v.GetDuration("remote.connect_timeout")
		if cfg.Remote.ConnectTimeout <= 0 {
			return nil, fmt.Errorf("remote.connect_timeout must be positive")
		}
	}

	if nodeType := p.v.GetString("node.type"); nodeType != "" {
		cfg.Node.Type = nodeType
	}

	if cfg.Remote.Address != "" {
		if _, err := ssh.ParseAddress(cfg.Remote.Address); err != nil {
			return nil, fmt.Errorf("remote.address: %w", err)
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate checks that the configuration is complete enough to run an
// operation against the remote host.
func Validate(cfg *models.AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Remote.Address == "" {
		return fmt.Errorf("remote.address is required")
	}

	if _, err := ssh.ParseAddress(cfg.Remote.Address); err != nil {
		return fmt.Errorf("remote.address: %w", err)
	}

	if cfg.Node.Type == "" {
		return fmt.Errorf("node.type is required")
	}

	if cfg.Remote.ConnectTimeout <= 0 {
		return fmt.Errorf("remote.connect_timeout must be positive")
	}

	return nil
}
