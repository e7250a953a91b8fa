// Package router maps category labels returned by the refinement model to
// question bank files.
package router

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackFile receives questions whose category matches no table entry.
const FallbackFile = "blandat.yaml"

// Entry binds a category key to its bank file.
type Entry struct {
	Key  string
	File string
}

// defaultTable lists every category the refinement prompt can emit. Order
// matters: the substring fallback scans top to bottom, first match wins.
var defaultTable = []Entry{
	{"neurologi", "neurologi.yaml"},
	{"internmedicin", "internmedicin.yaml"},
	{"allmanmedicin", "allmanmedicin.yaml"},
	{"psykiatri", "psykiatri.yaml"},
	{"ortopedi", "ortopedi.yaml"},
	{"kirurgi", "kirurgi.yaml"},
	{"akutmedicin", "akutmedicin.yaml"},
	{"diabetologi", "diabetologi.yaml"},
	{"endokrinologi", "endokrinologi.yaml"},
	{"gastroenterologi", "gastroenterologi.yaml"},
	{"hepatologi", "hepatologi.yaml"},
	{"hematologi", "hematologi.yaml"},
	{"kardiologi", "kardiologi.yaml"},
	{"lungmedicin", "lungmedicin.yaml"},
	{"njurmedicin", "njurmedicin.yaml"},
	{"klinisk farmakologi", "klinisk_farmakologi.yaml"},
	{"oron-nasa-hals", "oron_nasa_hals.yaml"},
	{"oron-nasa-hals-sjukdomar", "oron_nasa_hals.yaml"},
}

// Router resolves category labels to bank filenames. Keys are held in a
// slice, not a map, so the substring scan order is reproducible.
type Router struct {
	entries  []Entry
	exact    map[string]string
	fallback string
}

// New builds a Router from entries. Keys and labels go through the same
// normalization, so "Öron-Näsa-Hals" and "oron-nasa-hals" meet in the
// middle.
func New(entries []Entry, fallback string) *Router {
	r := &Router{
		entries:  make([]Entry, 0, len(entries)),
		exact:    make(map[string]string, len(entries)),
		fallback: fallback,
	}
	for _, e := range entries {
		key := Normalize(e.Key)
		r.entries = append(r.entries, Entry{Key: key, File: e.File})
		if _, dup := r.exact[key]; !dup {
			r.exact[key] = e.File
		}
	}
	return r
}

// Default returns a Router over the standard category table.
func Default() *Router {
	return New(defaultTable, FallbackFile)
}

// Route returns the bank file for a category label: exact key match first,
// then the first table entry whose key occurs inside the label, then the
// fallback file.
func (r *Router) Route(category string) string {
	key := Normalize(category)
	if file, ok := r.exact[key]; ok {
		return file
	}
	for _, e := range r.entries {
		if strings.Contains(key, e.Key) {
			return e.File
		}
	}
	zap.L().Warn("router: unknown category",
		zap.String("category", category),
		zap.String("file", r.fallback),
	)
	return r.fallback
}

// Normalize folds a category label to its key form: trimmed, lowercased,
// diacritics removed, spaces and hyphens unified to underscores.
func Normalize(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
