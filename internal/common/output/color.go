package output

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	// Outcome colors
	Changed   = color.New(color.FgGreen)
	Baseline  = color.New(color.FgCyan)
	Unchanged = color.New(color.Faint)
	NotFound  = color.New(color.FgYellow)
	Failed    = color.New(color.FgRed)

	// Message colors
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Dim     = color.New(color.Faint)

	// Structural colors
	Header  = color.New(color.FgWhite, color.Bold)
	Package = color.New(color.FgBlue, color.Bold)
)

// NoColor disables color output
func NoColor() {
	color.NoColor = true
}

// ForceColor enables color output even when not a TTY
func ForceColor() {
	color.NoColor = false
}

// OutcomeColor returns the color used for an invocation outcome
func OutcomeColor(outcome string) *color.Color {
	switch outcome {
	case "changed":
		return Changed
	case "baseline":
		return Baseline
	case "unchanged":
		return Unchanged
	case "not-found":
		return NotFound
	case "failed":
		return Failed
	default:
		return color.New(color.Reset)
	}
}

// FormatOutcome formats an outcome string with appropriate color
func FormatOutcome(outcome string) string {
	return OutcomeColor(outcome).Sprintf("[%s]", outcome)
}

// FormatTransition renders "old → new", or just new when there is no old value
func FormatTransition(from, to string) string {
	if from == "" {
		return Changed.Sprint(to)
	}
	return fmt.Sprintf("%s → %s", Dim.Sprint(from), Changed.Sprint(to))
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	Success.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	Error.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	Warning.Printf("⚠ "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	Info.Printf("→ "+format+"\n", args...)
}
