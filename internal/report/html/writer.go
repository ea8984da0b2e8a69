// Package html provides HTML report generation for the sync tool.
// It implements the report.ReportWriter interface to generate .html files
// with the run summary and per-device outcomes.
package html

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"librenms-netbox-sync/internal/model"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// Writer implements report.ReportWriter for HTML format.
type Writer struct {
	timezone     *time.Location
	templatePath string // User-defined template path (optional)
}

// TemplateData holds all data passed to the HTML template.
type TemplateData struct {
	Title       string
	StartedAt   string
	Duration    string
	DryRun      bool
	CatalogSize int
	Summary     *model.RunSummary
	Reasons     []*ReasonData
	Devices     []*DeviceData
	Skipped     []*DeviceData
	Version     string
	GeneratedAt string
}

// ReasonData is one skip reason with its device count.
type ReasonData struct {
	Reason string
	Count  int
}

// DeviceData represents one device outcome formatted for template rendering.
type DeviceData struct {
	SourceID          string
	Name              string
	Vendor            string
	Model             string
	State             string
	StateClass        string
	Reason            string
	Step              string
	DeviceType        string
	NetBoxID          int64
	InterfacesCreated int
	AddressesCreated  int
	PrimaryIPAssigned bool
	Error             string
}

// NewWriter creates a new HTML report writer.
// If timezone is nil, it defaults to UTC.
// If templatePath is empty, the embedded default template will be used.
func NewWriter(timezone *time.Location, templatePath string) *Writer {
	if timezone == nil {
		timezone = time.UTC
	}
	return &Writer{
		timezone:     timezone,
		templatePath: templatePath,
	}
}

// Format returns the format identifier for this writer.
func (w *Writer) Format() string {
	return "html"
}

// Write generates an HTML report from the run result.
func (w *Writer) Write(result *model.RunResult, outputPath string) error {
	if result == nil {
		return fmt.Errorf("run result is nil")
	}

	if !strings.HasSuffix(strings.ToLower(outputPath), ".html") {
		outputPath = outputPath + ".html"
	}

	tmpl, err := w.loadTemplate()
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}

	data := w.prepareTemplateData(result)

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := tmpl.Execute(file, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

// loadTemplate loads the user-defined template when it exists, and the
// embedded default otherwise.
func (w *Writer) loadTemplate() (*template.Template, error) {
	funcMap := template.FuncMap{
		"yesNo": yesNo,
	}

	if w.templatePath != "" {
		if _, err := os.Stat(w.templatePath); err == nil {
			tmpl, err := template.New(filepath.Base(w.templatePath)).Funcs(funcMap).ParseFiles(w.templatePath)
			if err != nil {
				return nil, fmt.Errorf("failed to parse user template: %w", err)
			}
			return tmpl, nil
		}
	}

	tmpl, err := template.New("default.html").Funcs(funcMap).ParseFS(embeddedTemplates, "templates/default.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}

// prepareTemplateData converts a RunResult to TemplateData for rendering.
func (w *Writer) prepareTemplateData(result *model.RunResult) *TemplateData {
	summary := result.Summary
	if summary == nil {
		summary = model.NewRunSummary(result.Outcomes)
	}

	devices := make([]*DeviceData, 0, len(result.Outcomes))
	skipped := make([]*DeviceData, 0)
	for _, o := range result.Outcomes {
		d := convertDeviceData(o)
		devices = append(devices, d)
		if o.State == model.StateSkipped {
			skipped = append(skipped, d)
		}
	}

	reasons := make([]*ReasonData, 0, len(summary.SkippedByReason))
	for reason, count := range summary.SkippedByReason {
		reasons = append(reasons, &ReasonData{Reason: string(reason), Count: count})
	}
	sort.Slice(reasons, func(i, j int) bool {
		if reasons[i].Count != reasons[j].Count {
			return reasons[i].Count > reasons[j].Count
		}
		return reasons[i].Reason < reasons[j].Reason
	})

	return &TemplateData{
		Title:       "LibreNMS to NetBox Sync Report",
		StartedAt:   result.StartedAt.In(w.timezone).Format("2006-01-02 15:04:05"),
		Duration:    formatDuration(result.Duration),
		DryRun:      result.DryRun,
		CatalogSize: result.CatalogSize,
		Summary:     summary,
		Reasons:     reasons,
		Devices:     devices,
		Skipped:     skipped,
		Version:     result.Version,
		GeneratedAt: time.Now().In(w.timezone).Format("2006-01-02 15:04:05"),
	}
}

func convertDeviceData(o *model.Outcome) *DeviceData {
	return &DeviceData{
		SourceID:          o.SourceID,
		Name:              o.Name,
		Vendor:            o.Vendor,
		Model:             o.Model,
		State:             string(o.State),
		StateClass:        stateClass(o.State),
		Reason:            string(o.Reason),
		Step:              string(o.Step),
		DeviceType:        o.DeviceTypeSlug,
		NetBoxID:          o.DeviceID,
		InterfacesCreated: o.InterfacesCreated,
		AddressesCreated:  o.AddressesCreated,
		PrimaryIPAssigned: o.PrimaryIPAssigned,
		Error:             o.Error,
	}
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

// stateClass returns the CSS class for a device state.
func stateClass(state model.State) string {
	switch state {
	case model.StateCreated:
		return "status-created"
	case model.StateMatched:
		return "status-matched"
	case model.StateSkipped:
		return "status-skipped"
	default:
		return "status-unknown"
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
