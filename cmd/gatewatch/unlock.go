package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greymark/gatewatch/internal/authz"
	"github.com/greymark/gatewatch/internal/config"
	"github.com/greymark/gatewatch/internal/ui"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock gate commands with the configured passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		if a.variant != config.VariantBroker {
			return fmt.Errorf("unlock applies to the broker variant; the server variant uses `gatewatch login`")
		}
		gate := a.gate.(*authz.DigestGate)
		if gate.Open() {
			fmt.Println("No passphrase configured — commands are open")
			return nil
		}
		if gate.Resume() {
			fmt.Println("Commands already unlocked")
			return nil
		}

		passphrase, err := ui.ReadPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		if err := gate.Authorize(context.Background(), authz.Credentials{Passphrase: passphrase}); err != nil {
			return err
		}
		fmt.Println("Commands unlocked")
		return nil
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock gate commands and clear the stored unlock",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		if a.variant != config.VariantBroker {
			return fmt.Errorf("lock applies to the broker variant")
		}
		a.gate.Revoke("Commands locked")
		fmt.Println("Commands locked")
		return nil
	},
}

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Print the SHA-256 digest of a passphrase for command_digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := ui.ReadPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		fmt.Println(authz.DigestPassphrase(passphrase))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(hashCmd)
}
