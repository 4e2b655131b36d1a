package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
)

// AggregatedName is the name of the row that sums up all entries.
const AggregatedName = "Aggregated"

// StatsRow is an aggregated view of requests with the same method and name.
type StatsRow struct {
	Method   string
	Name     string
	Requests int
	Failures int

	// Latencies in milliseconds.
	Median float64
	Avg    float64
	Min    float64
	Max    float64
	P90    float64
	P95    float64
	P99    float64

	AvgSize        float64
	RPS            float64
	FailuresPerSec float64
}

// FailureRow counts occurrences of a failure reason.
type FailureRow struct {
	Method      string
	Name        string
	Error       string
	Occurrences int
}

func ftoa(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// WriteStatsCSV writes rows in a format compatible with Locust stats csv.
func WriteStatsCSV(w io.Writer, rows []StatsRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{
		"Type", "Name", "Request Count", "Failure Count",
		"Median Response Time", "Average Response Time", "Min Response Time", "Max Response Time",
		"Average Content Size", "Requests/s", "Failures/s",
		"90%", "95%", "99%",
	}); err != nil {
		return err
	}

	for _, r := range rows {
		if err := cw.Write([]string{
			r.Method, r.Name, strconv.Itoa(r.Requests), strconv.Itoa(r.Failures),
			ftoa(r.Median, 0), ftoa(r.Avg, 2), ftoa(r.Min, 2), ftoa(r.Max, 2),
			ftoa(r.AvgSize, 0), ftoa(r.RPS, 4), ftoa(r.FailuresPerSec, 4),
			ftoa(r.P90, 0), ftoa(r.P95, 0), ftoa(r.P99, 0),
		}); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteFailuresCSV writes failure reasons with their occurrences.
func WriteFailuresCSV(w io.Writer, rows []FailureRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Method", "Name", "Error", "Occurrences"}); err != nil {
		return err
	}

	for _, r := range rows {
		if err := cw.Write([]string{r.Method, r.Name, r.Error, strconv.Itoa(r.Occurrences)}); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// CSVFiles returns names of files produced by WriteCSVFiles.
func CSVFiles(prefix string) []string {
	return []string{prefix + "_stats.csv", prefix + "_failures.csv"}
}

// WriteCSVFiles writes stats and failures into files named with prefix.
func WriteCSVFiles(prefix string, stats []StatsRow, failures []FailureRow) error {
	names := CSVFiles(prefix)

	if err := writeFile(names[0], func(w io.Writer) error { return WriteStatsCSV(w, stats) }); err != nil {
		return err
	}

	return writeFile(names[1], func(w io.Writer) error { return WriteFailuresCSV(w, failures) })
}

func writeFile(name string, write func(w io.Writer) error) (err error) {
	f, err := os.Create(name) //nolint:gosec // File name is provided by user.
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	defer func() {
		if clErr := f.Close(); clErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", name, clErr)
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return nil
}

// StatsTable prints rows as an aligned table.
func StatsTable(w io.Writer, rows []StatsRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "Type\tName\t# reqs\t# fails\tMedian, ms\t90%, ms\t99%, ms\tMax, ms\tAvg size\treq/s\tfail/s\t")

	for _, r := range rows {
		fails := strconv.Itoa(r.Failures)
		if r.Requests > 0 {
			fails += fmt.Sprintf("(%.2f%%)", 100*float64(r.Failures)/float64(r.Requests))
		}

		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%.0f\t%.0f\t%.0f\t%.0f\t%s\t%.2f\t%.2f\t\n",
			r.Method, r.Name, r.Requests, fails,
			r.Median, r.P90, r.P99, r.Max,
			ByteSize(int64(r.AvgSize)), r.RPS, r.FailuresPerSec,
		)
	}

	return tw.Flush()
}
