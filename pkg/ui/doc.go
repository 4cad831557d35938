// Package ui renders redditsaver's terminal output with lipgloss.
//
// All printing goes through one writer (stdout unless SetOutput is used)
// and respects quiet mode, in which only errors and raw output appear.
package ui
