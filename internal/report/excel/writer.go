// Package excel provides Excel report generation for the sync tool.
// It implements the report.ReportWriter interface to generate .xlsx files
// with a run summary, per-device outcomes and the skipped devices.
package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"librenms-netbox-sync/internal/model"
)

const (
	// Sheet names
	sheetSummary = "Summary"
	sheetDevices = "Devices"
	sheetSkipped = "Skipped"

	// Default sheet to remove
	defaultSheet = "Sheet1"

	// Colors for state highlighting (RGB without #)
	colorSkippedBg = "FFEB9C" // Yellow background for skipped
	colorSkippedFg = "9C6500" // Dark yellow text for skipped
	colorCreatedBg = "C6EFCE" // Green background for created
	colorCreatedFg = "006100" // Dark green text for created
	colorHeaderBg  = "4472C4" // Blue background for header
	colorHeaderFg  = "FFFFFF" // White text for header

	// Column widths
	defaultColWidth = 15.0
	wideColWidth    = 25.0
	narrowColWidth  = 10.0
)

// Writer implements report.ReportWriter for Excel format.
type Writer struct {
	timezone *time.Location
}

// NewWriter creates a new Excel report writer.
// If timezone is nil, it defaults to UTC.
func NewWriter(timezone *time.Location) *Writer {
	if timezone == nil {
		timezone = time.UTC
	}
	return &Writer{
		timezone: timezone,
	}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() string {
	return "excel"
}

// Write generates an Excel report from the run result.
func (w *Writer) Write(result *model.RunResult, outputPath string) error {
	if result == nil {
		return fmt.Errorf("run result is nil")
	}
	if result.Summary == nil {
		result.Summary = model.NewRunSummary(result.Outcomes)
	}

	// Ensure output path has .xlsx extension
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := w.createSummarySheet(f, result); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if err := w.createDevicesSheet(f, result); err != nil {
		return fmt.Errorf("failed to create devices sheet: %w", err)
	}

	if err := w.createSkippedSheet(f, result); err != nil {
		return fmt.Errorf("failed to create skipped sheet: %w", err)
	}

	// Sheet1 always exists in a new file
	_ = f.DeleteSheet(defaultSheet)

	idx, _ := f.GetSheetIndex(sheetSummary)
	f.SetActiveSheet(idx)

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}

	return nil
}

type summaryRow struct {
	label string
	value interface{}
}

// createSummarySheet creates the run summary worksheet.
func (w *Writer) createSummarySheet(f *excelize.File, result *model.RunResult) error {
	idx, err := f.NewSheet(sheetSummary)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	labelStyle, err := w.createHeaderStyle(f)
	if err != nil {
		return err
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 18},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	valueStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	f.SetColWidth(sheetSummary, "A", "A", 24)
	f.SetColWidth(sheetSummary, "B", "B", 30)

	f.MergeCell(sheetSummary, "A1", "B1")
	f.SetCellValue(sheetSummary, "A1", "LibreNMS to NetBox Sync Report")
	f.SetCellStyle(sheetSummary, "A1", "B1", titleStyle)
	f.SetRowHeight(sheetSummary, 1, 30)

	s := result.Summary
	rows := []summaryRow{
		{"Started at", result.StartedAt.In(w.timezone).Format("2006-01-02 15:04:05")},
		{"Duration", formatDuration(result.Duration)},
		{"Dry run", boolToText(result.DryRun)},
		{"Catalog entries", result.CatalogSize},
		{"Devices", s.TotalDevices},
		{"Created", s.CreatedDevices},
		{"Matched", s.MatchedDevices},
		{"Skipped", s.SkippedDevices},
		{"Interfaces created", s.InterfacesCreated},
		{"Addresses created", s.AddressesCreated},
		{"Primary IPs set", s.PrimaryIPsSet},
	}
	for _, reason := range s.Reasons() {
		rows = append(rows, summaryRow{"Skipped: " + string(reason), s.SkippedByReason[reason]})
	}
	if result.Version != "" {
		rows = append(rows, summaryRow{"Tool version", result.Version})
	}

	for i, item := range rows {
		row := i + 3 // Start from row 3
		a, b := fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row)
		f.SetCellValue(sheetSummary, a, item.label)
		f.SetCellValue(sheetSummary, b, item.value)
		f.SetCellStyle(sheetSummary, a, a, labelStyle)
		f.SetCellStyle(sheetSummary, b, b, valueStyle)
		f.SetRowHeight(sheetSummary, row, 22)
	}

	return nil
}

var deviceHeaders = []string{
	"Device ID", "Name", "Vendor", "Model", "State", "Reason", "Step",
	"Device Type", "NetBox ID", "Interfaces", "Addresses", "Primary IP", "Error",
}

// createDevicesSheet creates one row per device outcome.
func (w *Writer) createDevicesSheet(f *excelize.File, result *model.RunResult) error {
	return w.writeOutcomeSheet(f, sheetDevices, result.Outcomes)
}

// createSkippedSheet lists the skipped devices only.
func (w *Writer) createSkippedSheet(f *excelize.File, result *model.RunResult) error {
	return w.writeOutcomeSheet(f, sheetSkipped, result.SkippedOutcomes())
}

func (w *Writer) writeOutcomeSheet(f *excelize.File, sheet string, outcomes []*model.Outcome) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headerStyle, err := w.createHeaderStyle(f)
	if err != nil {
		return err
	}
	createdStyle, err := w.createStateStyle(f, colorCreatedFg, colorCreatedBg)
	if err != nil {
		return err
	}
	skippedStyle, err := w.createStateStyle(f, colorSkippedFg, colorSkippedBg)
	if err != nil {
		return err
	}

	for i, header := range deviceHeaders {
		cell := fmt.Sprintf("%s1", columnName(i))
		f.SetCellValue(sheet, cell, header)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	f.SetColWidth(sheet, "A", "A", narrowColWidth)
	f.SetColWidth(sheet, "B", "D", wideColWidth)
	f.SetColWidth(sheet, "E", "L", defaultColWidth)
	f.SetColWidth(sheet, columnName(len(deviceHeaders)-1), columnName(len(deviceHeaders)-1), 60)
	f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, o := range outcomes {
		row := i + 2
		values := []interface{}{
			o.SourceID, o.Name, o.Vendor, o.Model, string(o.State), string(o.Reason), string(o.Step),
			o.DeviceTypeSlug, o.DeviceID, o.InterfacesCreated, o.AddressesCreated,
			boolToText(o.PrimaryIPAssigned), o.Error,
		}
		for col, v := range values {
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", columnName(col), row), v)
		}

		stateCell := fmt.Sprintf("E%d", row)
		switch o.State {
		case model.StateCreated:
			f.SetCellStyle(sheet, stateCell, stateCell, createdStyle)
		case model.StateSkipped:
			f.SetCellStyle(sheet, stateCell, stateCell, skippedStyle)
		}
	}

	if len(outcomes) > 0 {
		last := fmt.Sprintf("%s%d", columnName(len(deviceHeaders)-1), len(outcomes)+1)
		if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
			return err
		}
	}

	return nil
}

func (w *Writer) createHeaderStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: colorHeaderFg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{colorHeaderBg},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
}

func (w *Writer) createStateStyle(f *excelize.File, fg, bg string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Color: fg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{bg},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
}

// columnName converts a 0-based column index to an Excel column name.
func columnName(index int) string {
	name, _ := excelize.ColumnNumberToName(index + 1)
	return name
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

func boolToText(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
