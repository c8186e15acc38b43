package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/core"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/driver/mock"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/executor"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/macro"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

func onStepStarted(out io.Writer, index int, step macro.Step) {
	label := ""
	if l := step.TrimmedLabel(); l != "" {
		label = color(colorCyan) + l + color(colorReset) + " "
	}
	fmt.Fprintf(out, "  %s▸%s %s%3d%s %s%s\n",
		color(colorCyan), color(colorReset), color(colorGray), index+1, color(colorReset), label, step.Describe())
}

func printDryRunEvents(out io.Writer, d *mock.Desktop) {
	events := d.Events()
	launches := d.Launches()
	if len(events) == 0 && len(launches) == 0 {
		return
	}
	fmt.Fprintf(out, "\n  %sWould send:%s\n", color(colorBold), color(colorReset))
	for _, e := range events {
		fmt.Fprintf(out, "    %s\n", e)
	}
	for _, l := range launches {
		fmt.Fprintf(out, "    launch %s %s\n", l.Path, strings.Join(l.Args, " "))
	}
}

func printRunSummary(out io.Writer, result executor.RunResult) {
	fmt.Fprintln(out, strings.Repeat("─", 60))
	ms := result.Duration.Milliseconds()
	switch result.Status {
	case core.RunCompleted:
		fmt.Fprintf(out, "%s✓ Completed%s %d steps %s%s%s\n",
			color(colorGreen), color(colorReset), result.StepsExecuted, color(colorGray), formatDuration(ms), color(colorReset))
	case core.RunCancelled:
		fmt.Fprintf(out, "%s⚠ Cancelled%s after %d steps %s%s%s\n",
			color(colorYellow), color(colorReset), result.StepsExecuted, color(colorGray), formatDuration(ms), color(colorReset))
	default:
		fmt.Fprintf(out, "%s✗ Failed%s after %d steps %s%s%s\n",
			color(colorRed), color(colorReset), result.StepsExecuted, color(colorGray), formatDuration(ms), color(colorReset))
		if result.Err != nil {
			fmt.Fprintf(out, "  %s╰─%s %v\n", color(colorGray), color(colorReset), result.Err)
		}
	}
}

// formatDuration formats milliseconds to a human-readable string.
// Shows milliseconds for values < 1s, seconds otherwise.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
