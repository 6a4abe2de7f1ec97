package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/declarative-routeros/rosexec/internal/config"
	"github.com/declarative-routeros/rosexec/internal/logging"
	"github.com/declarative-routeros/rosexec/internal/ssh"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	verbose        bool
	cfgFile        string
	logFormat      string
	nonInteractive bool // CI/CD: never prompt for a password

	globalCfg = config.DefaultGlobalConfig()
	logger    = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "rosexec",
	Short: "Run commands on RouterOS routers over SSH",
	Long: `rosexec connects to a RouterOS router over SSH and runs a single
command, printing its output and returning its exit status.

Authentication tries the keys held by your SSH agent (and unencrypted
keys in ~/.ssh) first, then falls back to a password.

Quick start:
  rosexec exec -u admin 192.168.88.1 /system identity print

Environment Variables:
  ROUTEROS_SSH_PASSWORD            Password used when key authentication fails
  ROUTEROS_KNOWN_HOSTS             SSH known_hosts content
  ROUTEROS_SKIP_HOST_KEY_CHECK     Skip host key verification (true/false)
  SSH_AUTH_SOCK                    SSH agent socket`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute runs the root command. Ctrl-C aborts a pending connection.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	// A failed remote command has already been printed and logged
	var cmdErr *ssh.CommandFailedError
	if err != nil && !errors.As(err, &cmdErr) {
		PrintError("%v", err)
	}
	return err
}

// GetRootCmd returns the root command, used by the docs generator
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed logs")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/rosexec/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt for a password (CI/CD mode)")

	rootCmd.SetVersionTemplate(`rosexec {{.Version}}
`)
}

// setup loads the global config and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadGlobalConfig(cfgFile)
	if err != nil {
		return err
	}
	globalCfg = cfg

	level := cfg.LogLevel
	if verbose {
		level = logrus.DebugLevel.String()
	}
	format := cfg.LogFormat
	if logFormat != "" {
		format = logFormat
	}

	l, err := logging.NewLoggerTo(cmd.ErrOrStderr(), level, format)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// ExitCode maps an error returned by Execute to a process exit status.
// A failed remote command passes its own exit status through.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *ssh.CommandFailedError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 && cmdErr.ExitCode < 256 {
		return cmdErr.ExitCode
	}
	return 1
}

// PrintError prints a formatted error message
func PrintError(msg string, args ...interface{}) {
	fmt.Fprintf(rootCmd.ErrOrStderr(), "❌ "+msg+"\n", args...)
}
