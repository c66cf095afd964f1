package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PrintSuccess prints a styled success message with the [galley] prefix.
func PrintSuccess(msg string) {
	if IsPlainMode() {
		fmt.Printf("[galley] OK: %s\n", msg)
		return
	}
	fmt.Printf("%s %s %s\n", Prefix(), StyleSuccess.Render(IconCheck), msg)
}

// PrintError prints a styled error message with the [galley] prefix.
func PrintError(msg string) {
	if IsPlainMode() {
		fmt.Fprintf(os.Stderr, "[galley] ERROR: %s\n", msg)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s %s\n", Prefix(), StyleError.Render(IconCross), msg)
}

// PrintWarning prints a styled warning message with the [galley] prefix.
func PrintWarning(msg string) {
	if IsPlainMode() {
		fmt.Printf("[galley] WARNING: %s\n", msg)
		return
	}
	fmt.Printf("%s %s %s\n", Prefix(), StyleWarning.Render(IconWarning), msg)
}

// PrintInfo prints a styled info message with the [galley] prefix.
func PrintInfo(msg string) {
	if IsPlainMode() {
		fmt.Printf("[galley] %s\n", msg)
		return
	}
	fmt.Printf("%s %s %s\n", Prefix(), StyleInfo.Render(IconInfo), msg)
}

// AlignColumns renders rows of two-column data with the left column
// padded to the widest entry, producing aligned output.
// Each row is [left, right]. styleLeft and styleRight are applied to
// the raw text of each column. indent is prepended to every line.
// gap is the number of spaces between columns.
func AlignColumns(rows [][2]string, indent string, gap int, styleLeft, styleRight lipgloss.Style) string {
	if len(rows) == 0 {
		return ""
	}

	// Find the widest left column (using visual width, not byte length)
	maxWidth := 0
	for _, row := range rows {
		w := lipgloss.Width(row[0])
		if w > maxWidth {
			maxWidth = w
		}
	}

	gapStr := strings.Repeat(" ", gap)
	var sb strings.Builder
	for _, row := range rows {
		left := styleLeft.Render(row[0])
		// Pad the styled left column to align right columns.
		// lipgloss.Width handles ANSI escape codes correctly.
		pad := maxWidth - lipgloss.Width(row[0])
		right := styleRight.Render(row[1])
		sb.WriteString(indent)
		sb.WriteString(left)
		sb.WriteString(strings.Repeat(" ", pad))
		sb.WriteString(gapStr)
		sb.WriteString(right)
		sb.WriteByte('\n')
	}
	return sb.String()
}
