package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/frahmantamala/expense-tracker/internal/user"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
}

var userPassword string

var createUserCmd = &cobra.Command{
	Use:   "create [username]",
	Short: "Create a user, prompting for the password when it is not given",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := userPassword
		if password == "" {
			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			var err error
			password, err = readPassword(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}

		cfg := mustLoadConfig()
		ctx := context.Background()
		app, err := newApp(ctx, cfg, logger.LoggerWrapper())
		if err != nil {
			return err
		}
		defer func() { _ = app.Close(ctx) }()

		created, err := app.Users.Create(ctx, user.CreateUserDTO{Username: args[0], Password: password})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User %s created with ID %s\n", created.Username, created.ID)
		return nil
	},
}

// readPassword reads without echo from a terminal and falls back to one line
// of plain input for pipes.
func readPassword(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	createUserCmd.Flags().StringVarP(&userPassword, "password", "p", "", "password (prompted when omitted)")
	userCmd.AddCommand(createUserCmd)
	rootCmd.AddCommand(userCmd)
}
