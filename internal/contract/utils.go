package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Attempt label constants.
const (
	StuckValue    = "Stuck"    // at or past the attempt ceiling
	RetryingValue = "Retrying" // failed at least once
	FreshValue    = "Fresh"    // never attempted
)

// Color variables for console output.
var (
	StuckColor    = color.New(color.FgRed, color.Bold) // stuckColor flags entries needing operator attention.
	RetryingColor = color.New(color.FgYellow)          // retryingColor represents standard caution, not bold.
	FreshColor    = color.New(color.FgCyan)            // freshColor represents informational / low-priority signal.
)

// GetPlainAttemptLabel returns a plain text label for a mutation's replay
// state. This is the core logic used for CSV, JSON, and table printing.
func GetPlainAttemptLabel(attempts, maxAttempts int) string {
	switch {
	case maxAttempts > 0 && attempts >= maxAttempts:
		return StuckValue
	case attempts > 0:
		return RetryingValue
	default:
		return FreshValue
	}
}

// GetColorAttemptLabel returns a colored text label for console output.
// It uses GetPlainAttemptLabel to determine the string, then applies the
// appropriate color.
func GetColorAttemptLabel(attempts, maxAttempts int) string {
	text := GetPlainAttemptLabel(attempts, maxAttempts)

	switch text {
	case StuckValue:
		return StuckColor.Sprint(text)
	case RetryingValue:
		return RetryingColor.Sprint(text)
	default: // "Fresh"
		return FreshColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on
// the provided file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for cache and
// queue storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".outpost_cache.db"
	}
	return filepath.Join(homeDir, ".outpost_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for replay
// history storage.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".outpost_history.db"
	}
	return filepath.Join(homeDir, ".outpost_history.db")
}

// TruncateURL truncates a URL or key to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 so there is room for the "..." prefix and at least
// one character of content.
func TruncateURL(u string, maxWidth int) string {
	runes := []rune(u)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return u
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
