package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/greymark/gatewatch/internal/authz"
	"github.com/greymark/gatewatch/internal/config"
	"github.com/greymark/gatewatch/internal/ui"
)

var loginUsername string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the control server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		if a.variant != config.VariantServer {
			return fmt.Errorf("login applies to the server variant; the broker variant uses `gatewatch unlock`")
		}

		username := strings.TrimSpace(loginUsername)
		if username == "" {
			fmt.Fprint(os.Stderr, "Username: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return err
			}
			username = strings.TrimSpace(line)
		}
		password, err := ui.ReadPassphrase("Password: ")
		if err != nil {
			return err
		}
		if username == "" || password == "" {
			return fmt.Errorf("username and password are required")
		}

		if err := a.gate.Authorize(context.Background(), authz.Credentials{
			Username: username,
			Password: password,
		}); err != nil {
			return err
		}

		session := a.gate.(*authz.SessionGate).Session()
		fmt.Printf("Signed in as %s (%s)\n", session.Username, session.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		if a.variant != config.VariantServer {
			return fmt.Errorf("logout applies to the server variant; the broker variant uses `gatewatch lock`")
		}
		a.gate.Revoke("Signed out")
		fmt.Println("Signed out")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
