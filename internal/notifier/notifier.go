// Package notifier provides host-side notification and prompt surfaces.
// The default implementations write to the terminal; embedding hosts supply
// their own platform bridges.
package notifier

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/fatih/color"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// ConsoleNotifier renders notifications as colored lines on stderr.
type ConsoleNotifier struct {
	granted bool
}

var _ contract.Notifier = &ConsoleNotifier{} // Compile-time check

// NewConsoleNotifier creates a ConsoleNotifier. granted models the host
// notification permission.
func NewConsoleNotifier(granted bool) *ConsoleNotifier {
	return &ConsoleNotifier{granted: granted}
}

// PermissionGranted implements the Notifier interface.
func (n *ConsoleNotifier) PermissionGranted() bool {
	return n.granted
}

// Notify implements the Notifier interface.
func (n *ConsoleNotifier) Notify(_ context.Context, p schema.NotificationPayload) error {
	title := color.New(color.FgCyan, color.Bold).Sprint(p.Title)
	if _, err := fmt.Fprintf(os.Stderr, "[notification] %s: %s\n", title, p.Body); err != nil {
		return fmt.Errorf("failed to render notification: %w", err)
	}
	if p.DeepLinkURL != "" {
		if _, err := fmt.Fprintf(os.Stderr, "[notification]   -> %s\n", p.DeepLinkURL); err != nil {
			return fmt.Errorf("failed to render notification link: %w", err)
		}
	}
	return nil
}

// SystemOpener opens URLs with the platform's default handler.
type SystemOpener struct{}

var _ contract.HostOpener = &SystemOpener{} // Compile-time check

// NewSystemOpener creates a SystemOpener.
func NewSystemOpener() *SystemOpener {
	return &SystemOpener{}
}

// OpenURL implements the HostOpener interface.
func (o *SystemOpener) OpenURL(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}

// ConsolePrompter resolves install prompts with a fixed policy. Interactive
// hosts replace this with a real prompt surface.
type ConsolePrompter struct {
	accept bool
}

var _ contract.InstallPrompter = &ConsolePrompter{} // Compile-time check

// NewConsolePrompter creates a ConsolePrompter that answers every prompt
// with the given choice.
func NewConsolePrompter(accept bool) *ConsolePrompter {
	return &ConsolePrompter{accept: accept}
}

// Prompt implements the InstallPrompter interface.
func (p *ConsolePrompter) Prompt(_ context.Context, sig schema.InstallSignal) (bool, error) {
	fmt.Fprintf(os.Stderr, "[prompt] install available (signal from %s)\n", sig.ReceivedAt.Format("15:04:05"))
	return p.accept, nil
}
