// Package report provides run report generation for the sync tool.
// It defines the ReportWriter interface and provides implementations for
// the Excel and HTML output formats.
package report

import (
	"librenms-netbox-sync/internal/model"
)

// ReportWriter defines the interface for generating run reports.
type ReportWriter interface {
	// Write renders the run result to outputPath. The path should carry the
	// file extension of the format.
	Write(result *model.RunResult, outputPath string) error

	// Format returns the format identifier for this writer ("excel" or "html").
	Format() string
}
