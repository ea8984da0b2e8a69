// Package service provides the device-type resolution and reconciliation
// services of the sync tool.
package service

import (
	"sort"

	"github.com/agnivade/levenshtein"

	"librenms-netbox-sync/internal/catalog"
	"librenms-netbox-sync/internal/model"
)

// Resolver defaults.
const (
	DefaultCutoff         = 0.4
	DefaultMaxSuggestions = 4
)

// ResolutionKind classifies the result of a resolution.
type ResolutionKind int

const (
	NotFound ResolutionKind = iota
	Exact
	Ambiguous
)

// String returns the kind name used in logs.
func (k ResolutionKind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Ambiguous:
		return "ambiguous"
	default:
		return "not-found"
	}
}

// Candidate is a scored fuzzy match.
type Candidate struct {
	Entry catalog.Entry
	Score float64
}

// Resolution is the outcome of resolving a vendor/model pair.
type Resolution struct {
	Kind       ResolutionKind
	Vendor     string        // Normalized vendor
	Slug       string        // Normalized model
	Entry      catalog.Entry // Set for Exact
	Candidates []Candidate   // Set for Ambiguous, best first
}

// Resolver maps free-text vendor/model pairs onto catalog entries.
type Resolver struct {
	index          *catalog.Index
	cutoff         float64
	maxSuggestions int
}

// ResolverOption is a functional option for configuring a Resolver.
type ResolverOption func(*Resolver)

// WithCutoff sets the minimum similarity a fuzzy candidate must reach.
func WithCutoff(cutoff float64) ResolverOption {
	return func(r *Resolver) {
		if cutoff > 0 {
			r.cutoff = cutoff
		}
	}
}

// WithMaxSuggestions caps the number of fuzzy candidates.
func WithMaxSuggestions(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.maxSuggestions = n
		}
	}
}

// NewResolver creates a resolver over a loaded catalog index.
func NewResolver(index *catalog.Index, opts ...ResolverOption) *Resolver {
	if index == nil {
		index = catalog.NewIndex("", nil)
	}
	r := &Resolver{
		index:          index,
		cutoff:         DefaultCutoff,
		maxSuggestions: DefaultMaxSuggestions,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Index returns the catalog snapshot the resolver works on.
func (r *Resolver) Index() *catalog.Index {
	return r.index
}

// Resolve normalizes vendor and rawModel and looks them up in the index:
// an exact "vendor/slug" hit wins, otherwise up to maxSuggestions fuzzy
// candidates are collected from the vendor's folder and then from the
// whole catalog.
func (r *Resolver) Resolve(vendor, rawModel string) Resolution {
	res := Resolution{
		Vendor: model.NormalizeSlug(vendor),
		Slug:   model.NormalizeSlug(rawModel),
	}
	if res.Slug == "" {
		return res
	}

	if entry, ok := r.index.Lookup(res.Vendor, res.Slug); ok {
		res.Kind = Exact
		res.Entry = entry
		return res
	}

	candidates := r.rank(res.Slug, r.index.Vendor(res.Vendor), nil)
	if len(candidates) < r.maxSuggestions {
		seen := make(map[string]bool, len(candidates))
		for _, c := range candidates {
			seen[c.Entry.Key()] = true
		}
		global := r.rank(res.Slug, r.index.Entries(), seen)
		for _, c := range global {
			if len(candidates) >= r.maxSuggestions {
				break
			}
			candidates = append(candidates, c)
		}
	}

	if len(candidates) > 0 {
		res.Kind = Ambiguous
		res.Candidates = candidates
	}
	return res
}

// rank scores entries against slug and returns those at or above the cutoff,
// best first and capped. Equal scores keep their listing order.
func (r *Resolver) rank(slug string, entries []catalog.Entry, exclude map[string]bool) []Candidate {
	var scored []Candidate
	for _, e := range entries {
		if exclude[e.Key()] {
			continue
		}
		if score := Similarity(slug, e.Slug); score >= r.cutoff {
			scored = append(scored, Candidate{Entry: e, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > r.maxSuggestions {
		scored = scored[:r.maxSuggestions]
	}
	return scored
}

// Similarity returns 1 - distance/maxLen for the Levenshtein distance of a
// and b, so identical strings score 1 and disjoint ones approach 0.
func Similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
