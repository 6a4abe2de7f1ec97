package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/declarative-routeros/rosexec/internal/security"
)

var execCmd = &cobra.Command{
	Use:   "exec <router-address> <command>...",
	Short: "Run a command on a router",
	Long: `Connects to the router over SSH and runs one command.

The command is sent to the router as is. Its output is printed on stdout;
when it fails, rosexec exits with the router's exit status.

Example:
  rosexec exec -u admin 192.168.88.1 /system identity print
  ROUTEROS_SSH_PASSWORD=... rosexec exec -u backup 10.0.0.1 /export file=nightly`,
	Args: cobra.MinimumNArgs(2),
	RunE: runExec,
}

var execUser string

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringVarP(&execUser, "username", "u", "", "User to log in as (default: username from config)")
}

func runExec(cmd *cobra.Command, args []string) error {
	address := args[0]
	command := strings.Join(args[1:], " ")

	if err := security.ValidateCommand(command); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	username := execUser
	if username == "" {
		username = globalCfg.Username
	}
	if err := security.ValidatePrincipal(username); err != nil {
		return fmt.Errorf("invalid username: %w", err)
	}

	session, err := connectFunc(cmd.Context(), username, address)
	if err != nil {
		return err
	}
	defer session.Close()

	result, err := session.Exec(cmd.Context(), command)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), result.Output)
	if result.Stderr != "" {
		fmt.Fprint(cmd.ErrOrStderr(), result.Stderr)
	}

	return result.Err()
}
