package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/greymark/gatewatch/internal/ui"
)

var statusWait time.Duration

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current controller state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.con.Close()

		ctx, cancel := context.WithTimeout(context.Background(), statusWait)
		defer cancel()

		changed := make(chan struct{}, 1)
		a.con.Reconciler.OnChange(func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})

		if err := a.startOrExplain(ctx); err != nil {
			return err
		}

		select {
		case <-changed:
		case <-ctx.Done():
			// Print whatever we have, even if nothing arrived.
		}

		fmt.Print(ui.RenderView(a.con.View()))
		return nil
	},
}

func init() {
	statusCmd.Flags().DurationVar(&statusWait, "wait", 5*time.Second, "how long to wait for telemetry")
	rootCmd.AddCommand(statusCmd)
}
