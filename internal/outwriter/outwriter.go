// Package outwriter has output and writer logic.
package outwriter

import (
	"os"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteQueue prints pending mutations using the configured output format.
func (ow *OutWriter) WriteQueue(mutations []schema.DeferredMutation, cfg *contract.Config) error {
	return WriteQueueResults(mutations, cfg)
}

// WriteKeys prints cache key listings using the configured output format.
func (ow *OutWriter) WriteKeys(namespace string, keys []string, cfg *contract.Config) error {
	return WriteKeyResults(namespace, keys, cfg)
}

// WriteHistory prints replay run records using the configured output format.
func (ow *OutWriter) WriteHistory(runs []schema.ReplayRunRecord, cfg *contract.Config) error {
	return WriteHistoryResults(runs, cfg)
}

// GetMaxTableEndpointWidth calculates the maximum width for endpoints and keys
// in table output based on terminal width and table configuration.
func GetMaxTableEndpointWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		// Get terminal width
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Fallback to conservative default if terminal size can't be detected
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve space for fixed columns with table formatting:
	// Rank + Method + Enqueued + Attempts + Label with borders/padding
	baseWidth := 45

	// Reserve generous space for table borders, separators, and padding
	baseWidth += 10

	// Calculate available space for the endpoint
	available := termWidth - baseWidth
	if available < 15 {
		// Minimum reasonable endpoint width
		return 15
	}
	if available > 70 {
		// Maximum endpoint width to prevent overly long rows
		return 70
	}
	return available
}
