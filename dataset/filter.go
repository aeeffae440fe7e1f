/*
filter.go - Declarative filter specification and evaluation

PURPOSE:
  One fixed filter vocabulary applied uniformly to Sales, Claims and the
  Merged View. A dimension the target table cannot resolve is silently a
  no-op, which is what lets a single filter set drive every reporting view.

SEMANTICS:
  - Predicates are AND-combined.
  - "" or "All" means no constraint for that dimension.
  - Unparseable year/month/date values skip the predicate, never error.
  - Search is a case-insensitive substring match across the string form of
    every cell in the row.
  - Output preserves row order and never mutates the input table.
*/
package dataset

import (
	"sort"
	"strconv"
	"strings"
)

// FilterAll is the sentinel meaning "no constraint".
const FilterAll = "All"

// Filter is the common filter specification. One field per recognized
// dimension keeps equality and cache-keying well-defined.
type Filter struct {
	Dealer      string
	Product     string
	Year        string
	Month       string
	Make        string
	ClaimStatus string
	DateFrom    string
	DateTo      string
	Search      string
}

// IsZero reports whether no dimension is constrained.
func (f Filter) IsZero() bool {
	for _, v := range f.values() {
		if isSet(v.val) {
			return false
		}
	}
	return true
}

type dimension struct {
	name string
	val  string
}

func (f Filter) values() []dimension {
	return []dimension{
		{"claim_status", f.ClaimStatus},
		{"date_from", f.DateFrom},
		{"date_to", f.DateTo},
		{"dealer", f.Dealer},
		{"make", f.Make},
		{"month", f.Month},
		{"product", f.Product},
		{"search", f.Search},
		{"year", f.Year},
	}
}

// Key returns the canonical cache key fragment for this filter: set
// dimensions only, sorted by name.
func (f Filter) Key() string {
	var parts []string
	for _, d := range f.values() {
		if isSet(d.val) {
			parts = append(parts, d.name+"="+d.val)
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

// Active returns the set dimensions as name→value, for display contexts.
func (f Filter) Active() map[string]string {
	out := make(map[string]string)
	for _, d := range f.values() {
		if isSet(d.val) {
			out[d.name] = d.val
		}
	}
	return out
}

func isSet(v string) bool { return v != "" && v != FilterAll }

// =============================================================================
// EVALUATION
// =============================================================================

// Apply returns a new table containing exactly the rows satisfying every
// applicable predicate, in original order. Predicates whose column does not
// resolve in t are skipped.
func (f Filter) Apply(t Table) Table {
	preds := f.compile(t)
	if len(preds) == 0 {
		return t.subset(t.Rows)
	}

	rows := make([]Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		pass := true
		for _, p := range preds {
			if !p(row) {
				pass = false
				break
			}
		}
		if pass {
			rows = append(rows, row)
		}
	}
	return t.subset(rows)
}

type predicate func(Row) bool

// compile turns the set dimensions into row predicates against t's schema.
// Single pass per row afterwards, the way a filter engine should be.
func (f Filter) compile(t Table) []predicate {
	var preds []predicate
	s := t.Schema

	equals := func(col, want string) predicate {
		return func(r Row) bool { return CellString(r.Cells[col]) == want }
	}

	if isSet(f.Dealer) && s.Has(FieldDealer) {
		preds = append(preds, equals(s.Col(FieldDealer), f.Dealer))
	}
	if isSet(f.Product) && s.Has(FieldProduct) {
		preds = append(preds, equals(s.Col(FieldProduct), f.Product))
	}
	if isSet(f.Make) && s.Has(FieldMake) {
		preds = append(preds, equals(s.Col(FieldMake), f.Make))
	}
	if isSet(f.ClaimStatus) && s.Has(FieldClaimStatus) {
		preds = append(preds, equals(s.Col(FieldClaimStatus), f.ClaimStatus))
	}

	if isSet(f.Year) && s.Has(FieldYear) {
		if want, ok := atoiFilter(f.Year); ok {
			col := s.Col(FieldYear)
			preds = append(preds, func(r Row) bool {
				got, ok := CellInt(r.Cells[col])
				return ok && got == want
			})
		}
	}
	if isSet(f.Month) && s.Has(FieldMonth) {
		if want, ok := atoiFilter(f.Month); ok {
			col := s.Col(FieldMonth)
			preds = append(preds, func(r Row) bool {
				got, ok := CellInt(r.Cells[col])
				return ok && got == want
			})
		}
	}

	if s.Has(FieldDate) {
		col := s.Col(FieldDate)
		if isSet(f.DateFrom) {
			if from, ok := ParseDate(f.DateFrom); ok {
				preds = append(preds, func(r Row) bool {
					d, ok := CellTime(r.Cells[col])
					return ok && !d.Before(from)
				})
			}
		}
		if isSet(f.DateTo) {
			if to, ok := ParseDate(f.DateTo); ok {
				preds = append(preds, func(r Row) bool {
					d, ok := CellTime(r.Cells[col])
					return ok && !d.After(to)
				})
			}
		}
	}

	if isSet(f.Search) {
		needle := strings.ToLower(f.Search)
		preds = append(preds, func(r Row) bool {
			for col, v := range r.Cells {
				if col == RowIDColumn {
					continue
				}
				if strings.Contains(strings.ToLower(CellString(v)), needle) {
					return true
				}
			}
			return false
		})
	}

	return preds
}

func atoiFilter(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil
}
