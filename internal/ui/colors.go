// Package ui holds the ANSI styling used by CLI output. Colors are
// disabled when NO_COLOR is set, per the informal convention.
package ui

import "os"

const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

var noColor = os.Getenv("NO_COLOR") != ""

// paint wraps s in the given codes unless colors are disabled.
func paint(s string, codes ...string) string {
	if noColor {
		return s
	}
	out := ""
	for _, c := range codes {
		out += c
	}
	return out + s + ColorReset
}

func Bold(s string) string    { return paint(s, ColorBold) }
func Success(s string) string { return paint(s, ColorGreen) }
func Info(s string) string    { return paint(s, ColorDim, ColorYellow) }
func Warn(s string) string    { return paint(s, ColorYellow) }
func Error(s string) string   { return paint(s, ColorRed) }
