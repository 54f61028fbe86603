package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage catalog administrators",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account, or promote an existing one",
	RunE:  runAdminCreate,
}

func init() {
	adminCreateCmd.Flags().String("email", "", "Admin email (prompted when empty)")
	adminCreateCmd.Flags().String("name", "", "Display name (prompted when empty)")
	adminCmd.AddCommand(adminCreateCmd)
}

func runAdminCreate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	fmt.Fprintln(out, "=== Create Admin User ===")

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		fmt.Fprint(out, "Enter Email: ")
		line, _ := reader.ReadString('\n')
		email = strings.TrimSpace(line)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email %q", email)
	}

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		fmt.Fprint(out, "Enter Name: ")
		line, _ := reader.ReadString('\n')
		name = strings.TrimSpace(line)
	}
	if name == "" {
		return errors.New("name is required")
	}

	password, err := readPassword(cmd, reader)
	if err != nil {
		return err
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.close()

	user, created, err := a.auth.EnsureAdmin(cmd.Context(), email, name, password)
	if err != nil {
		return err
	}

	if created {
		fmt.Fprintf(out, "\nSuccess! Admin '%s' (%s) created with ID: %s\n", user.DisplayName, user.Email, user.ID)
	} else {
		fmt.Fprintf(out, "\nSuccess! Existing user %s promoted to admin, password reset.\n", user.Email)
	}
	return nil
}

// readPassword reads without echo on a terminal, or a plain line when piped.
func readPassword(cmd *cobra.Command, reader *bufio.Reader) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Enter Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout()) // Newline after password input
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
