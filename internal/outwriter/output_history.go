package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteHistoryResults outputs replay run records, dispatching based on the
// output format configured.
func WriteHistoryResults(runs []schema.ReplayRunRecord, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeHistoryJSONResults(runs, cfg); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeHistoryCSVResults(runs, cfg); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeHistoryTable(runs, cfg, w)
		}, "Wrote table")
	}
	return nil
}

// writeHistoryJSONResults handles opening the file and calling the JSON writer.
func writeHistoryJSONResults(runs []schema.ReplayRunRecord, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		type JSONRunResult struct {
			RunID     int64      `json:"run_id"`
			Trigger   string     `json:"trigger"`
			StartTime time.Time  `json:"start_time"`
			EndTime   *time.Time `json:"end_time,omitempty"`
			Successes int32      `json:"successes"`
			Failures  int32      `json:"failures"`
			Skipped   int32      `json:"skipped"`
			Duration  string     `json:"duration,omitempty"`
		}
		output := make([]JSONRunResult, len(runs))
		for i, r := range runs {
			output[i] = JSONRunResult{
				RunID:     r.RunID,
				Trigger:   r.Trigger,
				StartTime: r.StartTime,
				EndTime:   r.EndTime,
				Successes: r.Successes,
				Failures:  r.Failures,
				Skipped:   r.Skipped,
				Duration:  formatRunDuration(r),
			}
		}
		return writeJSON(w, output)
	}, "Wrote JSON")
}

// writeHistoryCSVResults handles opening the file and calling the CSV writer.
func writeHistoryCSVResults(runs []schema.ReplayRunRecord, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeCSVWithHeader(w,
			[]string{"run_id", "trigger", "start_time", "end_time", "successes", "failures", "skipped"},
			func(csvWriter *csv.Writer) error {
				for _, r := range runs {
					endTime := ""
					if r.EndTime != nil {
						endTime = r.EndTime.Format(contract.DateTimeFormat)
					}
					rec := []string{
						strconv.FormatInt(r.RunID, 10),
						r.Trigger,
						r.StartTime.Format(contract.DateTimeFormat),
						endTime,
						strconv.Itoa(int(r.Successes)),
						strconv.Itoa(int(r.Failures)),
						strconv.Itoa(int(r.Skipped)),
					}
					if err := csvWriter.Write(rec); err != nil {
						return err
					}
				}
				return nil
			})
	}, "Wrote CSV")
}

// writeHistoryTable generates and writes the human-readable table.
func writeHistoryTable(runs []schema.ReplayRunRecord, cfg *contract.Config, writer io.Writer) error {
	table := tablewriter.NewWriter(writer)

	table.Header([]string{"Run", "Trigger", "Started", "Duration", "Success", "Failure", "Skipped"})

	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, r := range runs {
		duration := formatRunDuration(r)
		if duration == "" {
			duration = "running"
		}
		data = append(data, []string{
			strconv.FormatInt(r.RunID, 10),
			r.Trigger,
			r.StartTime.Format(contract.DateTimeFormat),
			duration,
			strconv.Itoa(int(r.Successes)),
			strconv.Itoa(int(r.Failures)),
			strconv.Itoa(int(r.Skipped)),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	// Compute summary stats
	var successes, failures, skipped int32
	for _, r := range runs {
		successes += r.Successes
		failures += r.Failures
		skipped += r.Skipped
	}
	if _, err := fmt.Fprintf(writer, "Showing %d replay runs (successes: %d, failures: %d, skipped: %d)\n", len(runs), successes, failures, skipped); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "History backend: %s\n", cfg.HistoryBackend); err != nil {
		return err
	}
	return nil
}

// formatRunDuration renders the wall-clock duration of a finished run.
// Unfinished runs have no end time and yield an empty string.
func formatRunDuration(r schema.ReplayRunRecord) string {
	if r.EndTime == nil {
		return ""
	}
	return r.EndTime.Sub(r.StartTime).Round(time.Millisecond).String()
}
