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

// WriteKeyResults outputs the cache keys of a namespace, dispatching based on
// the output format configured.
func WriteKeyResults(namespace string, keys []string, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeKeyJSONResults(namespace, keys, cfg); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeKeyCSVResults(namespace, keys, cfg); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeKeyTable(namespace, keys, cfg, w)
		}, "Wrote table")
	}
	return nil
}

// writeKeyJSONResults handles opening the file and calling the JSON writer.
func writeKeyJSONResults(namespace string, keys []string, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		type JSONKeyListing struct {
			Namespace string   `json:"namespace"`
			Keys      []string `json:"keys"`
		}
		return writeJSON(w, JSONKeyListing{Namespace: namespace, Keys: keys})
	}, "Wrote JSON")
}

// writeKeyCSVResults handles opening the file and calling the CSV writer.
func writeKeyCSVResults(namespace string, keys []string, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeCSVWithHeader(w,
			[]string{"rank", "namespace", "key"},
			func(csvWriter *csv.Writer) error {
				for i, key := range keys {
					rec := []string{strconv.Itoa(i + 1), namespace, key}
					if err := csvWriter.Write(rec); err != nil {
						return err
					}
				}
				return nil
			})
	}, "Wrote CSV")
}

// writeKeyTable generates and writes the human-readable table.
func writeKeyTable(namespace string, keys []string, cfg *contract.Config, writer io.Writer) error {
	table := tablewriter.NewWriter(writer)

	table.Header([]string{"Rank", "Key"})

	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})

	maxWidth := GetMaxTableEndpointWidth(cfg)
	var data [][]string
	for i, key := range keys {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncateURL(key, maxWidth),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(writer, "Showing %d keys in namespace %s. Cache backend: %s\n", len(keys), namespace, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}
