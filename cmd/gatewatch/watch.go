package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/greymark/gatewatch/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail controller activity until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.con.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		// Register before Start so the connection banner is not missed.
		a.con.Log.OnAppend(func(entry string) {
			fmt.Println(ui.RenderMuted(entry))
		})

		if err := a.startOrExplain(ctx); err != nil {
			return err
		}

		<-ctx.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
