package iostore

import (
	"fmt"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// PrintCacheStatus prints cache status information.
func PrintCacheStatus(status schema.CacheStatus) {
	fmt.Printf("Cache Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Namespaces: %d\n", status.Namespaces)
	fmt.Printf("Total Entries: %d\n", status.TotalEntries)
	if status.TotalEntries > 0 {
		fmt.Printf("Last Entry: %s\n", status.LastEntryTime.Format(contract.DateTimeFormat))
		fmt.Printf("Oldest Entry: %s\n", status.OldestEntryTime.Format(contract.DateTimeFormat))
	}
	fmt.Printf("Table Size: %d bytes\n", status.TableSizeBytes)
}

// PrintQueueStatus prints mutation queue status information.
func PrintQueueStatus(status schema.QueueStatus) {
	fmt.Printf("Queue Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Pending Mutations: %d\n", status.PendingMutations)
	if status.PendingMutations > 0 {
		fmt.Printf("Exhausted: %d\n", status.Exhausted)
		fmt.Printf("Oldest Enqueued: %s\n", status.OldestEnqueuedAt.Format(contract.DateTimeFormat))
		fmt.Printf("Newest Enqueued: %s\n", status.NewestEnqueuedAt.Format(contract.DateTimeFormat))
		fmt.Println("Tag Counts:")
		for tag, count := range status.Tags {
			fmt.Printf("  %s: %d\n", tag, count)
		}
	}
}

// PrintHistoryStatus prints replay history status information.
func PrintHistoryStatus(status schema.HistoryStatus) {
	fmt.Printf("History Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		fmt.Printf("Last Run ID: %d\n", status.LastRunID)
		fmt.Printf("Last Run: %s\n", status.LastRunTime.Format(contract.DateTimeFormat))
		fmt.Printf("Oldest Run: %s\n", status.OldestRunTime.Format(contract.DateTimeFormat))
		fmt.Printf("Total Outcomes: %d\n", status.TotalOutcomes)
	}
	fmt.Println("Table Sizes:")
	for table, size := range status.TableSizes {
		fmt.Printf("  %s: %d rows\n", table, size)
	}
}
