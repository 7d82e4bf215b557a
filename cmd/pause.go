package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running timer",
	Args:  cobra.NoArgs,
	RunE:  runPause,
}

func runPause(cmd *cobra.Command, args []string) error {
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
	if !view.Snapshot.Running {
		fmt.Fprintln(os.Stderr, "No running timer to pause.")
		os.Exit(1)
	}

	corrective, err := app.observer.Pause(ctx, view)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if corrective {
		warnCorrective()
	}

	elapsed := int64(time.Since(view.Snapshot.StartedAt()).Seconds())
	fmt.Printf("Paused. Elapsed: %s\n", formatElapsed(elapsed))
	return nil
}
