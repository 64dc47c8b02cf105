package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteQueueResults outputs the pending mutation queue, dispatching based on
// the output format configured.
func WriteQueueResults(mutations []schema.DeferredMutation, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeQueueJSONResults(mutations, cfg); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeQueueCSVResults(mutations, cfg); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeQueueTable(mutations, cfg, w)
		}, "Wrote table")
	}
	return nil
}

// writeQueueJSONResults handles opening the file and calling the JSON writer.
func writeQueueJSONResults(mutations []schema.DeferredMutation, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeJSONResultsForQueue(w, mutations, cfg)
	}, "Wrote JSON")
}

// writeQueueCSVResults handles opening the file and calling the CSV writer.
func writeQueueCSVResults(mutations []schema.DeferredMutation, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeCSVWithHeader(w,
			[]string{"rank", "id", "tag", "endpoint", "method", "enqueued_at", "attempts", "label"},
			func(csvWriter *csv.Writer) error {
				return writeCSVResultsForQueue(csvWriter, mutations, cfg)
			})
	}, "Wrote CSV")
}

// writeQueueTable generates and writes the human-readable table.
func writeQueueTable(mutations []schema.DeferredMutation, cfg *contract.Config, writer io.Writer) error {
	table := tablewriter.NewWriter(writer)

	headers := []string{"Rank", "Endpoint", "Method", "Enqueued", "Attempts", "Label"}
	table.Header(headers)

	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})

	maxWidth := GetMaxTableEndpointWidth(cfg)
	var data [][]string
	for i, m := range mutations {
		label := contract.GetPlainAttemptLabel(m.Attempts, cfg.ReplayMaxAttempts)
		if cfg.UseColors {
			label = contract.GetColorAttemptLabel(m.Attempts, cfg.ReplayMaxAttempts)
		}
		row := []string{
			strconv.Itoa(i + 1),                        // Rank
			contract.TruncateURL(m.Endpoint, maxWidth), // Endpoint
			m.Method, // Method
			m.EnqueuedAt.Format(contract.DateTimeFormat), // Enqueued
			strconv.Itoa(m.Attempts),                     // Attempts
			label,                                        // Label
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	// Compute summary stats
	pending := len(mutations)
	stuck := 0
	for _, m := range mutations {
		if cfg.ReplayMaxAttempts > 0 && m.Attempts >= cfg.ReplayMaxAttempts {
			stuck++
		}
	}
	if _, err := fmt.Fprintf(writer, "Showing %d pending mutations (%d at attempt ceiling)\n", pending, stuck); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "Queue tag: %s. Cache backend: %s\n", cfg.QueueTag, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// writeCSVResultsForQueue writes the queue listing in CSV format.
func writeCSVResultsForQueue(w *csv.Writer, mutations []schema.DeferredMutation, cfg *contract.Config) error {
	for i, m := range mutations {
		rec := []string{
			strconv.Itoa(i + 1), // Rank
			m.ID,                // Mutation ID
			m.QueueTag,          // Queue Tag
			m.Endpoint,          // Endpoint
			m.Method,            // Method
			m.EnqueuedAt.Format(contract.DateTimeFormat),                     // Enqueued At
			strconv.Itoa(m.Attempts),                                         // Attempts
			contract.GetPlainAttemptLabel(m.Attempts, cfg.ReplayMaxAttempts), // Label
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// writeJSONResultsForQueue writes the queue listing in JSON format.
func writeJSONResultsForQueue(w io.Writer, mutations []schema.DeferredMutation, cfg *contract.Config) error {
	// 1. Prepare the data structure for JSON with rank and label added
	type JSONQueueResult struct {
		Rank  int    `json:"rank"`
		Label string `json:"label"`
		schema.DeferredMutation
	}

	output := make([]JSONQueueResult, len(mutations))
	for i, m := range mutations {
		output[i] = JSONQueueResult{
			Rank:             i + 1,
			Label:            contract.GetPlainAttemptLabel(m.Attempts, cfg.ReplayMaxAttempts),
			DeferredMutation: m,
		}
	}

	// 2. Use the generic JSON writer
	return writeJSON(w, output)
}
