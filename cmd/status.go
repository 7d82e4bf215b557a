package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/workclock/workclock/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current timer status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer app.Close()

	view, err := app.observer.Attach(cmd.Context())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if !view.Authoritative {
		fmt.Fprintln(os.Stderr, "Warning: timer daemon unreachable; showing persisted state.")
	}

	snap := view.Snapshot
	switch {
	case snap.Running:
		fmt.Println("Running:")
		fmt.Printf("  Since: %s\n", snap.StartedAt().Format("15:04"))
		fmt.Printf("  Elapsed: %s\n", timecalc.FormatDurationHHMMSS(snap.ElapsedTime/1000))
	case snap.StartTime != 0 || snap.ElapsedTime > 0:
		fmt.Println("Paused:")
		if snap.StartTime != 0 {
			fmt.Printf("  Since: %s\n", snap.StartedAt().Format("15:04"))
		}
		fmt.Printf("  Elapsed: %s\n", timecalc.FormatDurationHHMMSS(snap.ElapsedTime/1000))
	default:
		total, err := app.ledger.TotalMinutes(timecalc.DayString(time.Now()))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Println("No active timer.")
		fmt.Printf("Today: %s logged.\n", timecalc.FormatMinutes(total))
	}
	return nil
}
