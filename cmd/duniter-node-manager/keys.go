package main

import (
	"fmt"

	"github.com/gallois/duniter-node-manager/internal/services/ssh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List SSH agent identities as credential tokens",
	Long: `List the identities held by the local SSH agent. Each line can be
passed as --credential to authenticate with that identity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens := ssh.New(log.Logger, 0).ListIdentities()
		if len(tokens) == 0 {
			log.Warn().Msg("no identities available from the SSH agent")
			return nil
		}
		for _, token := range tokens {
			fmt.Fprintln(cmd.OutOrStdout(), token)
		}
		return nil
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Open a session and run a trivial command",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			log.Error().Err(err).Msg("invalid configuration")
			return err
		}
		cred, err := resolveCredential(cfg)
		if err != nil {
			return err
		}

		result, err := ssh.New(log.Logger, cfg.Remote.ConnectTimeout).TestConnection(cmd.Context(), cfg.Remote.Address, cred)
		if err != nil {
			return err
		}
		if result.Error != nil {
			log.Error().Err(result.Error).Str("address", cfg.Remote.Address).Msg("connection test failed")
			return result.Error
		}

		log.Info().Str("address", cfg.Remote.Address).Msg("connection OK")
		return nil
	},
}
