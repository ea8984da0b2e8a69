package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"librenms-netbox-sync/internal/report/excel"
	"librenms-netbox-sync/internal/report/html"
)

// Registry manages report writers for different formats.
type Registry struct {
	writers map[string]ReportWriter
}

// NewRegistry creates a registry with the Excel and HTML writers registered.
// A nil timezone defaults to UTC. htmlTemplatePath is optional; when empty the
// HTML writer uses its embedded template.
func NewRegistry(timezone *time.Location, htmlTemplatePath string) *Registry {
	if timezone == nil {
		timezone = time.UTC
	}

	r := &Registry{
		writers: make(map[string]ReportWriter),
	}
	r.Register(excel.NewWriter(timezone))
	r.Register(html.NewWriter(timezone, htmlTemplatePath))

	return r
}

// Register adds or replaces the writer for its format.
func (r *Registry) Register(w ReportWriter) {
	r.writers[w.Format()] = w
}

// Get returns a writer for the specified format.
// Format names are case-insensitive.
func (r *Registry) Get(format string) (ReportWriter, error) {
	writer, ok := r.writers[normalizeFormat(format)]
	if !ok {
		return nil, fmt.Errorf("unsupported report format %q, supported formats: %s",
			format, strings.Join(r.GetAll(), ", "))
	}
	return writer, nil
}

// GetAll returns all supported format names in sorted order.
func (r *Registry) GetAll() []string {
	formats := make([]string, 0, len(r.writers))
	for format := range r.writers {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

// Has checks if the specified format is supported.
func (r *Registry) Has(format string) bool {
	_, ok := r.writers[normalizeFormat(format)]
	return ok
}

// Extension returns the file extension used for a format.
func Extension(format string) string {
	f := normalizeFormat(format)
	if f == "excel" {
		return ".xlsx"
	}
	return "." + f
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}
