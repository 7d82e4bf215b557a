package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/timecalc"
)

var (
	exportOut  string
	exportDate string
	exportWeek bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export work records as CSV",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Write to a file instead of stdout")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "Export a single day (YYYY-MM-DD)")
	exportCmd.Flags().BoolVar(&exportWeek, "week", false, "Export the current ISO week")
}

func runExport(cmd *cobra.Command, args []string) error {
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
	if !settings.FeatureEnabled("export") {
		fmt.Fprintln(os.Stderr, "The export feature is disabled. Enable it with: workclock feature export on")
		os.Exit(1)
	}

	var records []model.WorkRecord
	switch {
	case exportWeek:
		for _, d := range timecalc.WeekDays(time.Now()) {
			dayRecs, err := app.ledger.ByDate(d)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			records = append(records, dayRecs...)
		}
	case exportDate != "":
		if _, err := time.Parse("2006-01-02", exportDate); err != nil {
			fmt.Fprintln(os.Stderr, "Invalid --date; want YYYY-MM-DD.")
			os.Exit(1)
		}
		records, err = app.ledger.ByDate(exportDate)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	default:
		records, err = app.ledger.All()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		defer f.Close()
		w = f
	}

	if err := writeCSV(w, records); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if exportOut != "" {
		fmt.Printf("Exported %d records to %s\n", len(records), exportOut)
	}
	return nil
}

// writeCSV writes records with a UTF-8 BOM so spreadsheet apps detect the
// encoding of non-ASCII work types.
func writeCSV(w io.Writer, records []model.WorkRecord) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "ID,Date,StartTime,EndTime,DurationMinutes,Type,Content"); err != nil {
		return err
	}
	for _, r := range records {
		_, err := fmt.Fprintf(w, "%d,%s,%s,%s,%d,%s,%s\n",
			r.ID,
			csvEscape(r.Date),
			csvEscape(r.StartTime),
			csvEscape(r.EndTime),
			r.Duration,
			csvEscape(r.Type),
			csvEscape(r.Content),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	needsQuote := false
	for _, c := range s {
		if c == ',' || c == '"' || c == '\n' || c == '\r' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return s
	}
	// Escape internal double quotes by doubling them.
	escaped := ""
	for _, c := range s {
		if c == '"' {
			escaped += "\""
		}
		escaped += string(c)
	}
	return `"` + escaped + `"`
}
