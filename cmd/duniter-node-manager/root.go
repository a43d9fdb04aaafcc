package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gallois/duniter-node-manager/internal/config"
	"github.com/gallois/duniter-node-manager/internal/models"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultEnvFile = ".env"

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile string
	envFile    string
	logFile    string
	verbose    bool
	quiet      bool
	jsonOutput bool

	// Connection flags, overriding the config file.
	address    string
	credential string
	nodeType   string
)

var rootCmd = &cobra.Command{
	Use:   "duniter-node-manager",
	Short: "Drive a remote Duniter node over SSH",
	Long: `duniter-node-manager controls the lifecycle of a Duniter host over SSH:
  - detect the duniter2 binary and its systemd units
  - start/stop the node and the distance oracle
  - read the journal
  - read and write /etc/duniter/env_file

The credential is either a password or an SSH agent identity token as
printed by the "keys" command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	SilenceUsage: true,
	Version:      Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a rotated file instead of stderr")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	rootCmd.PersistentFlags().StringVarP(&address, "address", "a", "", "remote address as user@ip:port")
	rootCmd.PersistentFlags().StringVar(&credential, "credential", "", "password or agent identity token (prompted when empty)")
	rootCmd.PersistentFlags().StringVarP(&nodeType, "node", "n", "", "node type, the duniter-<node>.service suffix")

	rootCmd.AddCommand(operationCommands()...)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(validateCmd)
}

func setupLogging() {
	var out io.Writer = os.Stderr
	if logFile != "" {
		out = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}

	// Set output format
	if jsonOutput || logFile != "" {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set log level
	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// loadEnvFile loads the dotenv file. The default file may be absent.
func loadEnvFile() error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); errors.Is(err, os.ErrNotExist) && envFile == defaultEnvFile {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("loading env file %s: %w", envFile, err)
	}
	return nil
}

// loadConfig merges defaults, the config file and the command line flags.
func loadConfig() (*models.AppConfig, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := config.Defaults()
	if configFile != "" {
		var err error
		cfg, err = config.NewParser().LoadFile(configFile)
		if err != nil {
			return nil, err
		}
	}

	if address != "" {
		cfg.Remote.Address = address
	}
	if credential != "" {
		cfg.Remote.Credential = credential
	}
	if nodeType != "" {
		cfg.Node.Type = nodeType
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveCredential prompts for a password when none is configured and
// stdin is a terminal.
func resolveCredential(cfg *models.AppConfig) (string, error) {
	if cfg.Remote.Credential != "" {
		return cfg.Remote.Credential, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", cfg.Remote.Address)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pass), nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
