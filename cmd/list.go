package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/timecalc"
)

var listDate string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List work records for a day",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listDate, "date", "", "Day to list (YYYY-MM-DD, default today)")
}

func runList(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer app.Close()

	date := listDate
	if date == "" {
		date = timecalc.DayString(time.Now())
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid --date; want YYYY-MM-DD.")
		os.Exit(1)
	}

	records, err := app.ledger.ByDate(date)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	printRecords(date, records)
	return nil
}

// printRecords prints one line per record, newest first, with a day total.
func printRecords(date string, records []model.WorkRecord) {
	if len(records) == 0 {
		fmt.Println("No records found.")
		return
	}

	fmt.Println(date)
	var total model.Minutes
	for _, r := range records {
		fmt.Printf("#%-6d %s–%s  [%s] %s (%s)\n",
			r.ID, r.StartTime, r.EndTime, r.Type, r.Content,
			timecalc.FormatMinutes(int(r.Duration)))
		total += r.Duration
	}
	fmt.Printf("Total: %s\n", timecalc.FormatMinutes(int(total)))
}

// recordLine is the one-line summary used by add/edit confirmations.
func recordLine(r model.WorkRecord) string {
	return fmt.Sprintf("#%d %s %s–%s [%s] %s (%s)",
		r.ID, r.Date, r.StartTime, r.EndTime, r.Type, r.Content,
		timecalc.FormatMinutes(int(r.Duration)))
}
