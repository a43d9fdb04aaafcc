package main

import (
	"fmt"

	"github.com/gallois/duniter-node-manager/internal/models"
	"github.com/gallois/duniter-node-manager/internal/services/ssh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Validate the configuration (file, env file and flags) without connecting to the remote host.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  Address: %s\n", cfg.Remote.Address)
	fmt.Fprintf(out, "  Connect timeout: %s\n", cfg.Remote.ConnectTimeout)
	fmt.Fprintf(out, "  Node unit: duniter-%s.service\n", cfg.Node.Type)
	fmt.Fprintf(out, "  Credential: %s\n", credentialSummary(cfg))

	return nil
}

func credentialSummary(cfg *models.AppConfig) string {
	if cfg.Remote.Credential == "" {
		return "(prompted)"
	}
	return "(configured, " + ssh.ClassifyCredential(cfg.Remote.Credential).String() + ")"
}
