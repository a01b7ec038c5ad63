// Package ui holds the ANSI styling used by the CLI commands.
package ui

const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[97m"
)

// Bold emphasizes column headers and in-flight state.
func Bold(s string) string { return ColorBold + s + ColorReset }

// Success marks a completed action.
func Success(s string) string { return ColorGreen + s + ColorReset }

// Info renders a low-urgency notice.
func Info(s string) string { return ColorDim + ColorYellow + s + ColorReset }

// Error marks a failure line.
func Error(s string) string { return ColorRed + s + ColorReset }
