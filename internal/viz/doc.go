// Package viz renders terminal output for the CLI: lipgloss status styles,
// metric summaries and ASCII plots of recorded series.
package viz
