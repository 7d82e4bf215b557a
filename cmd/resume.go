package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the paused timer",
	Args:  cobra.NoArgs,
	RunE:  runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
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
	if view.Snapshot.Running {
		fmt.Fprintln(os.Stderr, "Timer already running.")
		os.Exit(1)
	}
	if view.Snapshot.StartTime == 0 && view.Snapshot.ElapsedTime == 0 {
		fmt.Fprintln(os.Stderr, "No paused timer to resume. Start one with `workclock start`.")
		os.Exit(1)
	}

	corrective, err := app.observer.Resume(ctx, view)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if corrective {
		warnCorrective()
	}

	fmt.Printf("Resumed. On the clock: %s\n", formatElapsed(view.Snapshot.ElapsedTime/1000))
	return nil
}
