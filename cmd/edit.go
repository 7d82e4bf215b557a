package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/workclock/workclock/internal/ledger"
	"github.com/workclock/workclock/internal/model"
)

var (
	editID       int64
	editDate     string
	editStart    string
	editEnd      string
	editDuration int
	editContent  string
	editType     string
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit fields of a work record",
	Args:  cobra.NoArgs,
	RunE:  runEdit,
}

func init() {
	editCmd.Flags().Int64Var(&editID, "id", 0, "Record id (required)")
	editCmd.Flags().StringVar(&editDate, "date", "", "New day (YYYY-MM-DD)")
	editCmd.Flags().StringVar(&editStart, "start", "", "New start clock time (HH:MM)")
	editCmd.Flags().StringVar(&editEnd, "end", "", "New end clock time (HH:MM)")
	editCmd.Flags().IntVar(&editDuration, "duration", 0, "New duration in minutes")
	editCmd.Flags().StringVar(&editContent, "content", "", "New content")
	editCmd.Flags().StringVar(&editType, "type", "", "New work type")
}

func runEdit(cmd *cobra.Command, args []string) error {
	if editID == 0 {
		fmt.Fprintln(os.Stderr, "Missing --id.")
		os.Exit(1)
	}

	app, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer app.Close()

	var patch model.RecordPatch
	flags := cmd.Flags()
	if flags.Changed("date") {
		patch.Date = &editDate
	}
	if flags.Changed("start") {
		patch.StartTime = &editStart
	}
	if flags.Changed("end") {
		patch.EndTime = &editEnd
	}
	if flags.Changed("duration") {
		patch.Duration = &editDuration
	}
	if flags.Changed("content") {
		patch.Content = &editContent
	}
	if flags.Changed("type") {
		patch.Type = &editType
	}

	settings, err := app.settings.Get()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := patch.Validate(settings); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rec, err := app.ledger.Update(editID, patch)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Println("Updated record", recordLine(rec))
	return nil
}
