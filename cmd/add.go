package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/timecalc"
)

var (
	addDate     string
	addStart    string
	addEnd      string
	addDuration int
	addContent  string
	addType     string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a work record by hand",
	Args:  cobra.NoArgs,
	RunE:  runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addDate, "date", "", "Day of the record (YYYY-MM-DD, default today)")
	addCmd.Flags().StringVar(&addStart, "start", "", "Start clock time (HH:MM)")
	addCmd.Flags().StringVar(&addEnd, "end", "", "End clock time (HH:MM)")
	addCmd.Flags().IntVar(&addDuration, "duration", 0, "Duration in minutes (default end minus start)")
	addCmd.Flags().StringVar(&addContent, "content", "", "What the time was spent on (required)")
	addCmd.Flags().StringVar(&addType, "type", "", "Work type (defaults to the first configured type)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer app.Close()

	settings, err := app.settings.Get()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	rec := model.WorkRecord{
		Date:      addDate,
		StartTime: addStart,
		EndTime:   addEnd,
		Duration:  model.Minutes(addDuration),
		Content:   addContent,
		Type:      addType,
	}
	if rec.Date == "" {
		rec.Date = timecalc.DayString(time.Now())
	}
	if rec.Type == "" && len(settings.WorkTypes) > 0 {
		rec.Type = settings.WorkTypes[0]
	}
	if rec.Duration == 0 && rec.StartTime != "" && rec.EndTime != "" {
		mins, err := minutesBetween(rec.StartTime, rec.EndTime)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		rec.Duration = model.Minutes(mins)
	}

	if err := model.ValidateRecord(rec, settings); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rec, err = app.ledger.Add(rec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Println("Added record", recordLine(rec))
	return nil
}

// minutesBetween computes whole minutes from start to end, wrapping past
// midnight when end is earlier than start.
func minutesBetween(start, end string) (int, error) {
	s, err := time.Parse("15:04", start)
	if err != nil {
		return 0, fmt.Errorf("invalid --start %q: want HH:MM", start)
	}
	e, err := time.Parse("15:04", end)
	if err != nil {
		return 0, fmt.Errorf("invalid --end %q: want HH:MM", end)
	}
	d := e.Sub(s)
	if d < 0 {
		d += 24 * time.Hour
	}
	return int(d.Minutes()), nil
}
