// Package catalog provides access to the public device-type catalog: a
// one-shot listing of manifest paths (Index) and per-path manifest downloads.
package catalog

import (
	"context"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"librenms-netbox-sync/internal/model"
)

// manifestExts are the file extensions recognized as manifests.
var manifestExts = []string{".yaml", ".yml"}

// Entry is one device-type manifest known to the catalog.
type Entry struct {
	Path   string // Repository path used for downloads, e.g. "device-types/Synology/DS420+.yaml"
	Vendor string // Normalized vendor folder, e.g. "synology"
	Slug   string // Normalized file base name, e.g. "ds420-plus"
}

// Key returns the "vendor/slug" identity used for exact matching.
func (e Entry) Key() string {
	return e.Vendor + "/" + e.Slug
}

// Index is an immutable listing of catalog entries for one run.
type Index struct {
	entries  []Entry
	byKey    map[string]int
	byVendor map[string][]int
}

// NewIndex builds an index from repository paths. Paths outside root, paths not
// shaped "<vendor>/<file><ext>" below root, and non-manifest files are ignored.
// An empty root accepts "<vendor>/<file><ext>" paths directly.
func NewIndex(root string, paths []string) *Index {
	idx := &Index{
		byKey:    make(map[string]int),
		byVendor: make(map[string][]int),
	}

	for _, p := range paths {
		entry, ok := parseEntry(root, p)
		if !ok {
			continue
		}
		if _, dup := idx.byKey[entry.Key()]; dup {
			continue
		}
		pos := len(idx.entries)
		idx.entries = append(idx.entries, entry)
		idx.byKey[entry.Key()] = pos
		idx.byVendor[entry.Vendor] = append(idx.byVendor[entry.Vendor], pos)
	}

	return idx
}

func parseEntry(root, p string) (Entry, bool) {
	rel := p
	if root = strings.Trim(root, "/"); root != "" {
		if !strings.HasPrefix(p, root+"/") {
			return Entry{}, false
		}
		rel = strings.TrimPrefix(p, root+"/")
	}

	vendorDir, file, ok := strings.Cut(rel, "/")
	if !ok || vendorDir == "" || strings.Contains(file, "/") {
		return Entry{}, false
	}

	ext := strings.ToLower(path.Ext(file))
	if !isManifestExt(ext) {
		return Entry{}, false
	}

	entry := Entry{
		Path:   p,
		Vendor: model.NormalizeSlug(vendorDir),
		Slug:   model.NormalizeSlug(strings.TrimSuffix(file, path.Ext(file))),
	}
	if entry.Vendor == "" || entry.Slug == "" {
		return Entry{}, false
	}
	return entry, true
}

func isManifestExt(ext string) bool {
	for _, e := range manifestExts {
		if ext == e {
			return true
		}
	}
	return false
}

// PathLister lists every path in the catalog repository.
type PathLister interface {
	ListPaths(ctx context.Context) ([]string, error)
}

// Load fetches the catalog listing once. A failed listing is not fatal: it is
// logged as a warning and an empty index is returned, leaving only the generic
// device type available for resolution.
func Load(ctx context.Context, lister PathLister, root string, logger zerolog.Logger) *Index {
	paths, err := lister.ListPaths(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load device-type catalog, continuing with an empty index")
		return NewIndex(root, nil)
	}

	idx := NewIndex(root, paths)
	logger.Info().Int("paths", len(paths)).Int("entries", idx.Len()).Msg("device-type catalog loaded")
	return idx
}

// Entries returns a copy of all entries in listing order.
func (i *Index) Entries() []Entry {
	out := make([]Entry, len(i.entries))
	copy(out, i.entries)
	return out
}

// Len returns the number of entries.
func (i *Index) Len() int {
	return len(i.entries)
}

// Empty reports whether the index holds no entries.
func (i *Index) Empty() bool {
	return len(i.entries) == 0
}

// Lookup returns the entry for the normalized vendor and slug.
func (i *Index) Lookup(vendor, slug string) (Entry, bool) {
	pos, ok := i.byKey[vendor+"/"+slug]
	if !ok {
		return Entry{}, false
	}
	return i.entries[pos], true
}

// HasVendor reports whether the catalog has a folder for the normalized vendor.
func (i *Index) HasVendor(vendor string) bool {
	return len(i.byVendor[vendor]) > 0
}

// Vendor returns the entries of one normalized vendor in listing order.
func (i *Index) Vendor(vendor string) []Entry {
	positions := i.byVendor[vendor]
	out := make([]Entry, 0, len(positions))
	for _, pos := range positions {
		out = append(out, i.entries[pos])
	}
	return out
}
