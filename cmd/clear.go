package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Reset the timer without logging anything",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func runClear(cmd *cobra.Command, args []string) error {
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
	if !view.Snapshot.Running && view.Snapshot.StartTime == 0 && view.Snapshot.ElapsedTime == 0 {
		fmt.Println("Nothing to clear.")
		return nil
	}

	corrective, err := app.observer.Clear(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if corrective {
		warnCorrective()
	}

	fmt.Println("Timer cleared.")
	return nil
}
