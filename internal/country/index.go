// Package country infers the catalog country of a phone number by longest calling-code prefix.
package country

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	"session-issuance-console/internal/country/domain"
)

// ErrNotFound is returned when no catalog record matches a phone number.
var ErrNotFound = errors.New("country: no catalog entry for phone number")

// PrefixConflict records a catalog prefix claimed by more than one record. The first record in
// catalog order keeps it.
type PrefixConflict struct {
	Prefix  string
	Kept    int64
	Dropped int64
}

// LoadReport describes how the calling-code and alias tables bound to a catalog snapshot.
type LoadReport struct {
	// Unbound lists canonical codes whose aliases match no catalog record.
	Unbound []string
	// Unaliased lists canonical codes used by the calling-code table but missing from the alias table.
	Unaliased []string
	Conflicts []PrefixConflict
	// Ambiguous lists alias matches that could not be settled. None of them is bound.
	Ambiguous []AliasAmbiguity
}

// AliasAmbiguity is a display name matching aliases of several codes equally well, or a code whose
// aliases match several display names.
type AliasAmbiguity struct {
	Codes   []string
	Records []int64
}

// Clean reports whether every table entry bound without conflict.
func (r LoadReport) Clean() bool {
	return len(r.Unbound) == 0 && len(r.Unaliased) == 0 && len(r.Conflicts) == 0 && len(r.Ambiguous) == 0
}

// Index is an immutable prefix lookup built from one catalog snapshot.
type Index struct {
	byPrefix map[string]domain.Record
	maxLen   int
	size     int
}

// NewIndex binds codes to records through aliases and merges prefixes carried by the records.
// Record prefixes take precedence over table prefixes. codes and aliases may be nil.
func NewIndex(records []domain.Record, codes CallingCodes, aliases Aliases) (*Index, LoadReport) {
	ix := &Index{byPrefix: make(map[string]domain.Record), size: len(records)}
	var report LoadReport

	owner := make(map[string]int64)
	for _, rec := range records {
		for _, raw := range rec.CallingCodePrefixes {
			p := normalizePrefix(raw)
			if p == "" {
				continue
			}
			if kept, ok := owner[p]; ok {
				if kept != rec.ID {
					report.Conflicts = append(report.Conflicts, PrefixConflict{Prefix: p, Kept: kept, Dropped: rec.ID})
				}
				continue
			}
			owner[p] = rec.ID
			ix.add(p, rec)
		}
	}

	bound, ambiguous := bindAliases(records, aliases)
	report.Ambiguous = ambiguous

	used := make(map[string]bool)
	prefixes := make([]string, 0, len(codes))
	for p := range codes {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	unbound := make(map[string]bool)
	unaliased := make(map[string]bool)
	for _, raw := range prefixes {
		code := codes[raw]
		used[code] = true
		if _, ok := aliases[code]; !ok {
			unaliased[code] = true
			continue
		}
		rec, ok := bound[code]
		if !ok {
			unbound[code] = true
			continue
		}
		p := normalizePrefix(raw)
		if p == "" {
			continue
		}
		if _, taken := owner[p]; taken {
			continue
		}
		ix.add(p, rec)
	}
	report.Unbound = sortedKeys(unbound)
	report.Unaliased = sortedKeys(unaliased)
	return ix, report
}

func (ix *Index) add(prefix string, rec domain.Record) {
	ix.byPrefix[prefix] = rec
	if len(prefix) > ix.maxLen {
		ix.maxLen = len(prefix)
	}
}

// Resolve returns the record owning the longest prefix of phone, or ErrNotFound.
func (ix *Index) Resolve(phone string) (domain.Record, error) {
	if ix == nil {
		return domain.Record{}, ErrNotFound
	}
	p := NormalizePhone(phone)
	if !strings.HasPrefix(p, "+") {
		return domain.Record{}, ErrNotFound
	}
	n := ix.maxLen
	if len(p) < n {
		n = len(p)
	}
	for l := n; l >= 2; l-- {
		if rec, ok := ix.byPrefix[p[:l]]; ok {
			return rec, nil
		}
	}
	return domain.Record{}, ErrNotFound
}

// Prefixes returns how many prefixes the index can match.
func (ix *Index) Prefixes() int {
	if ix == nil {
		return 0
	}
	return len(ix.byPrefix)
}

// Records returns the size of the catalog the index was built from.
func (ix *Index) Records() int {
	if ix == nil {
		return 0
	}
	return ix.size
}

// Resolve resolves phone against catalog using the built-in tables.
func Resolve(phone string, catalog []domain.Record) (domain.Record, error) {
	ix, _ := NewIndex(catalog, DefaultCallingCodes(), DefaultAliases())
	return ix.Resolve(phone)
}

// NormalizePhone strips formatting characters and rewrites a leading 00 as +.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch {
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '-', r == '(', r == ')', r == '.':
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	return s
}

func normalizePrefix(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "+" + b.String()
}

// bindAliases maps canonical codes to catalog records. Exact case-insensitive name matches are
// bound first. A remaining record then goes to the code whose alias covers the most words of its
// display name. Ties between codes, and codes won by more than one record, are left unbound and
// returned as ambiguities.
func bindAliases(records []domain.Record, aliases Aliases) (map[string]domain.Record, []AliasAmbiguity) {
	bound := make(map[string]domain.Record)
	claimed := make(map[int64]bool)
	codes := make([]string, 0, len(aliases))
	for code := range aliases {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		for _, rec := range records {
			if claimed[rec.ID] {
				continue
			}
			if matchesExact(rec.DisplayName, aliases[code]) {
				bound[code] = rec
				claimed[rec.ID] = true
				break
			}
		}
	}

	var ambiguous []AliasAmbiguity
	won := make(map[string][]domain.Record)
	for _, rec := range records {
		if claimed[rec.ID] {
			continue
		}
		top := 0
		var topCodes []string
		for _, code := range codes {
			if _, ok := bound[code]; ok {
				continue
			}
			n := wordCoverage(rec.DisplayName, aliases[code])
			switch {
			case n == 0 || n < top:
			case n > top:
				top, topCodes = n, []string{code}
			default:
				topCodes = append(topCodes, code)
			}
		}
		switch len(topCodes) {
		case 0:
		case 1:
			won[topCodes[0]] = append(won[topCodes[0]], rec)
		default:
			ambiguous = append(ambiguous, AliasAmbiguity{Codes: topCodes, Records: []int64{rec.ID}})
		}
	}
	for _, code := range codes {
		recs := won[code]
		switch len(recs) {
		case 0:
		case 1:
			bound[code] = recs[0]
		default:
			ids := make([]int64, 0, len(recs))
			for _, rec := range recs {
				ids = append(ids, rec.ID)
			}
			ambiguous = append(ambiguous, AliasAmbiguity{Codes: []string{code}, Records: ids})
		}
	}
	return bound, ambiguous
}

func matchesExact(display string, names []string) bool {
	d := strings.TrimSpace(display)
	for _, n := range names {
		if strings.EqualFold(d, strings.TrimSpace(n)) {
			return true
		}
	}
	return false
}

// wordCoverage returns the word count of the longest alias found in display as whole words, or 0.
func wordCoverage(display string, names []string) int {
	hay := words(display)
	best := 0
	for _, n := range names {
		needle := words(n)
		if len(needle) <= best || len(needle) > len(hay) {
			continue
		}
		for i := 0; i+len(needle) <= len(hay); i++ {
			if equalWords(hay[i:i+len(needle)], needle) {
				best = len(needle)
				break
			}
		}
	}
	return best
}

func equalWords(a, b []string) bool {
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
