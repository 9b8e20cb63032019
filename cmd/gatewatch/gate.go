package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/greymark/gatewatch/internal/config"
	"github.com/greymark/gatewatch/internal/telemetry"
)

var gateTimeout time.Duration

var gateCmd = &cobra.Command{
	Use:       "gate <open|close|toggle|pulse>",
	Short:     "Issue a one-shot gate command",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"open", "close", "toggle", "pulse"},
	RunE: func(cmd *cobra.Command, args []string) error {
		action := telemetry.Action(args[0])
		if _, ok := telemetry.ActionPayload(action); !ok {
			return fmt.Errorf("unknown action %q", args[0])
		}

		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.con.Close()

		ctx, cancel := context.WithTimeout(context.Background(), gateTimeout)
		defer cancel()

		if err := a.startOrExplain(ctx); err != nil {
			return err
		}
		if !a.gate.CanCommand() {
			return fmt.Errorf("gate commands are not permitted: %s", commandAdvice(a))
		}
		if !a.waitConnected(gateTimeout) {
			return fmt.Errorf("transport never connected")
		}

		if err := a.con.Dispatch(ctx, action); err != nil {
			return err
		}
		fmt.Printf("command → %s\n", action)
		return nil
	},
}

func commandAdvice(a *app) string {
	if a.variant == config.VariantServer {
		return "an admin session is required"
	}
	return "run `gatewatch unlock` first"
}

func init() {
	gateCmd.Flags().DurationVar(&gateTimeout, "timeout", 10*time.Second, "command timeout")
	rootCmd.AddCommand(gateCmd)
}
