// Package ui styles terminal output for the songstream CLI with lipgloss.
//
// [Styles] is the shared [Palette]. Renders degrade to plain text when stdout is not a color
// terminal, so output stays readable in logs and pipes.
package ui
