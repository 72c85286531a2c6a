package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var sayTimeout time.Duration

var sayCmd = &cobra.Command{
	Use:   "say <text>",
	Short: "Order by text instead of voice",
	Long: `Run one text turn through intent extraction and print the reply and
the resulting cart. Capture and recognition are not used.`,
	Example: `  voiceorder say "一杯大杯少糖拿铁"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := buildApp(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.orch.Submit(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		waitCtx, cancel := context.WithTimeout(ctx, sayTimeout)
		defer cancel()
		run, err := a.orch.Wait(waitCtx, id)
		if err != nil {
			return err
		}

		ui.Run(run)
		ui.Cart(a.orch.Cart())
		return nil
	},
}

func init() {
	sayCmd.Flags().DurationVar(&sayTimeout, "timeout", time.Minute, "Maximum time to wait for the reply")
}
