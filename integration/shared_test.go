//go:build basic || database

package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	// sharedOutpostPath holds the path to a shared outpost binary built once for all tests.
	sharedOutpostPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	// Run all tests
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getOutpostBinary returns the path to the outpost binary, building it once if needed.
func getOutpostBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		// Create a temp directory for the binary
		var err error
		tempDir, err = os.MkdirTemp("", "outpost-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		outpostPath := filepath.Join(tempDir, "outpost")
		buildCmd := exec.Command("go", "build", "-o", outpostPath, "./cmd/outpost")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		err = buildCmd.Run()
		if err != nil {
			panic(fmt.Sprintf("failed to build outpost: %v", err))
		}

		sharedOutpostPath = outpostPath
	})

	return sharedOutpostPath
}

// runOutpostCommand runs the shared binary with the given arguments from the
// project root and logs combined output on failure.
func runOutpostCommand(t *testing.T, args ...string) (string, error) {
	outpostPath := getOutpostBinary()
	cmd := exec.Command(outpostPath, args...)
	cmd.Dir = "../" // Run from project root
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("Command failed: %s\nOutput: %s", cmd.String(), string(output))
	}
	return string(output), err
}
