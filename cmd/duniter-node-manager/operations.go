package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gallois/duniter-node-manager/internal/models"
	"github.com/gallois/duniter-node-manager/internal/services/operator"
	"github.com/gallois/duniter-node-manager/internal/services/ssh"
	"github.com/gallois/duniter-node-manager/internal/state"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errOperationFailed = errors.New("operation failed")

// operationFunc runs one operator operation with a resolved credential.
type operationFunc func(ctx context.Context, svc *operator.Impl, cfg *models.AppConfig, cred string)

var configInputFile string

func operationCommands() []*cobra.Command {
	writeConfigCmd := &cobra.Command{
		Use:   "write-config [TEXT]",
		Short: "Replace /etc/duniter/env_file with TEXT or the content of --file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := configText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return runOperation(cmd, "write_config", state.FieldOutput,
				func(ctx context.Context, svc *operator.Impl, cfg *models.AppConfig, cred string) {
					svc.WriteConfig(ctx, cfg.Remote.Address, cred, text)
				})
		},
	}
	writeConfigCmd.Flags().StringVarP(&configInputFile, "file", "f", "", "read the config from a file, - for stdin")

	return []*cobra.Command{
		{
			Use:   "check",
			Short: "Detect the duniter2 binary and its systemd units",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOperation(cmd, "check_installation", state.FieldOutput,
					func(ctx context.Context, svc *operator.Impl, cfg *models.AppConfig, cred string) {
						svc.CheckInstallation(ctx, cfg.Remote.Address, cred)
					})
			},
		},
		{
			Use:   "logs",
			Short: "Show the last 100 journal lines of the node and the oracle",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOperation(cmd, "see_logs", state.FieldOutput,
					func(ctx context.Context, svc *operator.Impl, cfg *models.AppConfig, cred string) {
						svc.SeeLogs(ctx, cfg.Remote.Address, cred, cfg.Node.Type)
					})
			},
		},
		{
			Use:   "start-node",
			Short: "Start duniter-<node>.service and show its logs",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOperation(cmd, "start_node", state.FieldOutput,
					func(ctx context.Context, svc *operator.Impl, cfg *models.AppConfig, cred string) {
						svc.StartNode(ctx, cfg.Remote.Address, cred, cfg.Node.Type)
					})
			},
		},
		{
			Use:   "stop-node",
			Short: "Stop duniter-<node>.service and show its logs",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOperation(cmd, "stop_node", state.FieldOutput,
					func(ctx context.Context, svc *operator.Impl, cfg *models.AppConfig, cred string) {
						svc.StopNode(ctx, cfg.Remote.Address, cred, cfg.Node.Type)
					})
			},
		},
		{
			Use:   "start-oracle",
			Short: "Start distance-oracle.service and show its logs",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOperation(cmd, "start_oracle", state.FieldOutput,
					func(ctx context.Context, svc *operator.Impl, cfg *models.AppConfig, cred string) {
						svc.StartOracle(ctx, cfg.Remote.Address, cred)
					})
			},
		},
		{
			Use:   "stop-oracle",
			Short: "Stop distance-oracle.service and show its logs",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOperation(cmd, "stop_oracle", state.FieldOutput,
					func(ctx context.Context, svc *operator.Impl, cfg *models.AppConfig, cred string) {
						svc.StopOracle(ctx, cfg.Remote.Address, cred)
					})
			},
		},
		{
			Use:   "get-config",
			Short: "Print /etc/duniter/env_file",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runOperation(cmd, "get_config", state.FieldConfig,
					func(ctx context.Context, svc *operator.Impl, cfg *models.AppConfig, cred string) {
						svc.GetConfig(ctx, cfg.Remote.Address, cred)
					})
			},
		},
		writeConfigCmd,
	}
}

func configText(stdin io.Reader, args []string) (string, error) {
	switch {
	case configInputFile == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading config from stdin: %w", err)
		}
		return string(b), nil
	case configInputFile != "":
		b, err := os.ReadFile(configInputFile)
		if err != nil {
			return "", fmt.Errorf("reading config file: %w", err)
		}
		return string(b), nil
	case len(args) == 1:
		return args[0], nil
	default:
		return "", errors.New("config text or --file is required")
	}
}

// runOperation executes op on a worker and prints the resulting field.
// An interrupt abandons the in-flight operation.
func runOperation(cmd *cobra.Command, name string, field state.Field, op operationFunc) error {
	cfg, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	cred, err := resolveCredential(cfg)
	if err != nil {
		return err
	}

	store := state.New()
	unsubscribe := store.Subscribe(func(e state.Event) {
		log.Debug().Stringer("field", e.Field).Int("bytes", len(e.Value)).Msg("state changed")
	})
	defer unsubscribe()

	svc := operator.New(log.Logger, ssh.New(log.Logger, cfg.Remote.ConnectTimeout), store)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := operator.NewDispatcher(log.Logger, 1)
	done := dispatcher.Submit(name, func() { op(ctx, svc, cfg, cred) })

	select {
	case <-done:
		dispatcher.Close()
	case <-ctx.Done():
		log.Warn().Str("operation", name).Msg("interrupted, abandoning operation")
		return ctx.Err()
	}

	out := cmd.OutOrStdout()
	if field == state.FieldConfig && store.Config() != "" {
		fmt.Fprintln(out, store.Config())
	}
	if output := store.Output(); output != "" {
		fmt.Fprintln(out, output)
		if operator.IsFailure(output) {
			return errOperationFailed
		}
	}

	log.Info().Str("operation", name).Msg("operation completed")
	return nil
}
