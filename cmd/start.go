package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the timer",
	Args:  cobra.NoArgs,
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
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
	if !view.Settings.FeatureEnabled("timer") {
		fmt.Fprintln(os.Stderr, "The timer feature is disabled. Enable it with: workclock feature timer on")
		os.Exit(1)
	}
	if view.Snapshot.Running {
		fmt.Fprintln(os.Stderr, "Timer already running. Use `workclock status` to inspect it.")
		os.Exit(1)
	}
	if view.Snapshot.StartTime != 0 {
		fmt.Fprintln(os.Stderr, "Timer is paused. Resume it with `workclock resume` or discard it with `workclock clear`.")
		os.Exit(1)
	}

	corrective, err := app.observer.Start(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if corrective {
		warnCorrective()
	}

	fmt.Printf("Started timer at %s\n", time.Now().Format("15:04:05"))
	return nil
}
