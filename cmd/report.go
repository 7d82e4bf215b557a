package cmd

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/timecalc"
)

var (
	reportDate   string
	reportWeek   bool
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show an aggregated work report",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Day to report (YYYY-MM-DD, default today)")
	reportCmd.Flags().BoolVar(&reportWeek, "week", false, "Report the current ISO week instead")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, html")
}

func runReport(cmd *cobra.Command, args []string) error {
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
	if !settings.FeatureEnabled("report") {
		fmt.Fprintln(os.Stderr, "The report feature is disabled. Enable it with: workclock feature report on")
		os.Exit(1)
	}

	now := time.Now()
	var dates []string
	var label string
	if reportWeek {
		dates = timecalc.WeekDays(now)
		label = "Week " + timecalc.ISOWeekLabel(now)
	} else {
		date := reportDate
		if date == "" {
			date = timecalc.DayString(now)
		}
		if _, err := time.Parse("2006-01-02", date); err != nil {
			fmt.Fprintln(os.Stderr, "Invalid --date; want YYYY-MM-DD.")
			os.Exit(1)
		}
		dates = []string{date}
		label = date
	}

	var records []model.WorkRecord
	for _, d := range dates {
		dayRecs, err := app.ledger.ByDate(d)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		records = append(records, dayRecs...)
	}

	rep := buildReport(label, records)
	switch reportFormat {
	case "html":
		if err := writeReportHTML(os.Stdout, rep); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	default: // md
		printReportMD(rep)
	}
	return nil
}

// typeTotal is one work type's share of a report.
type typeTotal struct {
	Type    string
	Minutes int
}

type report struct {
	Label   string
	Totals  []typeTotal
	Records []model.WorkRecord
	Total   int
}

// buildReport aggregates records by work type, largest share first.
func buildReport(label string, records []model.WorkRecord) report {
	totals := map[string]int{}
	var order []string
	for _, r := range records {
		if _, seen := totals[r.Type]; !seen {
			order = append(order, r.Type)
		}
		totals[r.Type] += int(r.Duration)
	}
	sort.Slice(order, func(i, j int) bool {
		if totals[order[i]] != totals[order[j]] {
			return totals[order[i]] > totals[order[j]]
		}
		return order[i] < order[j]
	})

	rep := report{Label: label, Records: records}
	for _, t := range order {
		rep.Totals = append(rep.Totals, typeTotal{Type: t, Minutes: totals[t]})
		rep.Total += totals[t]
	}
	return rep
}

func printReportMD(rep report) {
	fmt.Println(rep.Label)
	fmt.Println("--------------------------------")
	for _, t := range rep.Totals {
		fmt.Printf("%-20s%s\n", t.Type, timecalc.FormatMinutes(t.Minutes))
	}
	fmt.Println("--------------------------------")
	fmt.Printf("%-20s%s\n", "Total", timecalc.FormatMinutes(rep.Total))
}

const reportTemplate = `<!DOCTYPE html>
<html lang="zh">
<head>
<meta charset="utf-8">
<title>{{.Label}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; margin-bottom: 2rem; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.8rem; text-align: left; }
tfoot td { font-weight: bold; }
</style>
</head>
<body>
<h1>{{.Label}}</h1>
<table>
<thead><tr><th>Type</th><th>Minutes</th></tr></thead>
<tbody>
{{range .Totals}}<tr><td>{{.Type}}</td><td>{{.Minutes}}</td></tr>
{{end}}</tbody>
<tfoot><tr><td>Total</td><td>{{.Total}}</td></tr></tfoot>
</table>
<h2>Records</h2>
<table>
<thead><tr><th>Date</th><th>Start</th><th>End</th><th>Type</th><th>Content</th><th>Minutes</th></tr></thead>
<tbody>
{{range .Records}}<tr><td>{{.Date}}</td><td>{{.StartTime}}</td><td>{{.EndTime}}</td><td>{{.Type}}</td><td>{{.Content}}</td><td>{{.Duration}}</td></tr>
{{end}}</tbody>
</table>
</body>
</html>
`

var reportTmpl = template.Must(template.New("report").Parse(reportTemplate))

func writeReportHTML(w io.Writer, rep report) error {
	return reportTmpl.Execute(w, rep)
}
