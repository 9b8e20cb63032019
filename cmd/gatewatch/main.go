// Command gatewatch is a terminal monitoring-and-control console for a
// physical gate controller. It reconciles telemetry from either the
// control server's event stream or a direct broker connection into one
// live view, and lets authorized operators issue gate commands.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/greymark/gatewatch/internal/activity"
	"github.com/greymark/gatewatch/internal/authz"
	"github.com/greymark/gatewatch/internal/client"
	"github.com/greymark/gatewatch/internal/config"
	"github.com/greymark/gatewatch/internal/console"
	"github.com/greymark/gatewatch/internal/transport"
	"github.com/greymark/gatewatch/internal/ui"
)

var (
	configPath string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "gatewatch <command>",
	Short: "Monitoring and control console for the gate controller",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "profile path (default ~/.config/gatewatch/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")
}

// app is one fully wired console plus the pieces commands poke at
// directly.
type app struct {
	cfg     *config.Config
	variant config.Variant
	con     *console.Console
	gate    authz.Gate
	api     *client.API // server variant only
}

// buildApp loads the profile and wires the variant it selects.
func buildApp() (*app, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	variant, err := cfg.Variant()
	if err != nil {
		return nil, err
	}
	stateDir, err := config.StateDir()
	if err != nil {
		return nil, err
	}

	log := activity.New()
	a := &app{cfg: cfg, variant: variant}

	switch variant {
	case config.VariantServer:
		store := authz.NewFileStore(filepath.Join(stateDir, "session.toml"))
		var gate *authz.SessionGate
		api := client.New(cfg.Server.URL, func() string {
			if gate == nil {
				return ""
			}
			return gate.Token()
		})
		gate = authz.NewSessionGate(store, api.Login, log)
		adapter := transport.NewStream(api, log, gate.Revoke)
		a.con = console.New(gate, adapter, log, true)
		a.gate = gate
		a.api = api
	case config.VariantBroker:
		store := authz.NewFileStore(filepath.Join(stateDir, "digest"))
		gate := authz.NewDigestGate(cfg.Broker.CommandDigest, store, log)
		adapter := transport.NewBroker(cfg.Broker.URL, transport.BrokerOptions{
			Username:      cfg.Broker.Username,
			Password:      cfg.Broker.Password,
			ClientID:      cfg.Broker.ClientID,
			Keepalive:     time.Duration(cfg.Broker.Keepalive),
			ReconnectWait: time.Duration(cfg.Broker.ReconnectPeriod),
		}, cfg.Broker.Topics.Table(), log)
		a.con = console.New(gate, adapter, log, false)
		a.gate = gate
	}
	return a, nil
}

// startOrExplain starts the console, translating a missing session into
// actionable advice.
func (a *app) startOrExplain(ctx context.Context) error {
	err := a.con.Start(ctx)
	if err == console.ErrNotAuthorized {
		return fmt.Errorf("no session: run `gatewatch login` first")
	}
	return err
}

// waitConnected polls until the transport reports a live connection.
// The stream adapter attaches asynchronously after Start.
func (a *app) waitConnected(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if a.con.Adapter.Connected() {
			return true
		}
		time.Sleep(25 * time.Millisecond)
	}
	return a.con.Adapter.Connected()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
