package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/timecalc"
)

var (
	stopContent string
	stopType    string
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the timer and log a work record",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopContent, "content", "", "What the time was spent on (required)")
	stopCmd.Flags().StringVar(&stopType, "type", "", "Work type (defaults to the first configured type)")
}

func runStop(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer app.Close()

	ctx := cmd.Context()
	view, err := app.observer.Attach(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if view.Snapshot.StartTime == 0 {
		fmt.Fprintln(os.Stderr, "No active timer to stop.")
		os.Exit(1)
	}

	rec, err := app.observer.Stop(ctx, view, stopContent, stopType)
	switch {
	case err != nil && rec.ID != 0:
		// The record is safe; only the timer reset failed.
		fmt.Fprintln(os.Stderr, "Warning:", err)
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrInvalidState):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	case err != nil:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Stopped timer. Logged %s of %q: %s\n",
		timecalc.FormatMinutes(int(rec.Duration)), rec.Type, rec.Content)
	return nil
}

func formatElapsed(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
