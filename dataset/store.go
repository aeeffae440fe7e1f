/*
store.go - The tabular store

PURPOSE:
  Store owns the working Sales and Claims tables, their load-time snapshots,
  the derived Merged View, the change log and the query cache. It is an
  explicit object created by the host process and passed to every query and
  mutation entry point -- there is no ambient global state.

LIFECYCLE:
  Load(sales, claims)  wholesale replacement: normalize, snapshot, link
  Reset()              restore from snapshot (not a reload from source)

CONCURRENCY:
  Single-writer, synchronous. The store has no internal locking; the host
  API layer serializes requests against one instance.

SEE ALSO:
  - linkage.go:  rebuildMerged
  - mutation.go: UpdateCell / BulkUpdate / Reset / change log
*/
package dataset

import (
	"sort"
	"strings"
	"time"
)

// Table names understood by the store.
const (
	TableSales  = "sales"
	TableClaims = "claims"
)

// canonicalStatuses seeds the claim-status domain. Statuses observed in the
// loaded data extend it.
var canonicalStatuses = []string{"Approved", "Rejected", "Reversed", "Pending"}

// Store is the in-memory two-table analytics store.
type Store struct {
	sales  Table
	claims Table
	merged Table

	origSales  Table
	origClaims Table
	loaded     bool

	changeLog []ChangeEntry
	cache     map[string]any

	statuses map[string]bool
}

// NewStore creates an empty store. Nothing can be queried until Load.
func NewStore() *Store {
	return &Store{cache: make(map[string]any)}
}

// Loaded reports whether data has ever been loaded.
func (s *Store) Loaded() bool { return s.loaded }

// Load installs freshly parsed Sales and Claims tables: trims nothing (the
// reader already trimmed headers), assigns row IDs, derives Year/Month where
// absent, resolves schemas, snapshots the originals, rebuilds the Merged
// View and clears cache and change log.
func (s *Store) Load(sales, claims Table) {
	sales.Name, claims.Name = TableSales, TableClaims
	normalize(&sales)
	normalize(&claims)

	s.origSales = sales
	s.origClaims = claims
	s.sales = sales.Clone()
	s.claims = claims.Clone()
	s.loaded = true

	s.statuses = make(map[string]bool)
	for _, st := range canonicalStatuses {
		s.statuses[st] = true
	}
	if col := claims.Schema.Col(FieldClaimStatus); col != "" {
		for _, r := range claims.Rows {
			if v := CellString(r.Cells[col]); v != "" {
				s.statuses[v] = true
			}
		}
	}

	s.rebuildMerged()
	s.clearCache()
	s.changeLog = nil
}

// normalize assigns row IDs, derives Year/Month and resolves the schema.
// Row IDs are positional at load time and never change afterwards.
func normalize(t *Table) {
	for i := range t.Rows {
		t.Rows[i].ID = i
		if t.Rows[i].Cells == nil {
			t.Rows[i].Cells = make(map[string]any)
		}
	}
	ensureDateColumns(t)
	t.Schema = ResolveSchema(t.Columns)
}

// ensureDateColumns derives Year and Month from the resolvable date column.
// Once present they are cached on the row and not re-derived.
func ensureDateColumns(t *Table) {
	hasYear := t.HasColumn("Year")
	hasMonth := t.HasColumn("Month")
	if hasYear && hasMonth {
		return
	}

	dateCol := FindColumn(t.Columns, fieldCandidates[FieldDate]...)
	if dateCol == "" {
		return
	}

	if !hasYear {
		t.Columns = append(t.Columns, "Year")
	}
	if !hasMonth {
		t.Columns = append(t.Columns, "Month")
	}
	for i := range t.Rows {
		year, month := 0, 0
		if d, ok := CellTime(t.Rows[i].Cells[dateCol]); ok {
			year, month = d.Year(), int(d.Month())
		}
		if !hasYear {
			t.Rows[i].Cells["Year"] = year
		}
		if !hasMonth {
			t.Rows[i].Cells["Month"] = month
		}
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Sales returns the working sales table.
func (s *Store) Sales() Table { return s.sales }

// Claims returns the working claims table.
func (s *Store) Claims() Table { return s.claims }

// Merged returns the current Merged View. It is rebuilt synchronously after
// every mutation, so it is never stale.
func (s *Store) Merged() Table { return s.merged }

// Table looks a table up by name.
func (s *Store) Table(name string) (Table, error) {
	switch name {
	case TableSales:
		return s.sales, nil
	case TableClaims:
		return s.claims, nil
	default:
		return Table{}, ErrTableNotFound
	}
}

// KnownStatuses returns the claim-status validation domain.
func (s *Store) KnownStatuses() []string {
	out := make([]string, 0, len(s.statuses))
	for st := range s.statuses {
		out = append(out, st)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// QUERY CACHE
// =============================================================================
// Read-through: every mutation clears the whole cache before it can be read
// again, so a hit always equals a fresh computation.

// CacheGet returns the cached result for (operation, filter), if any.
func (s *Store) CacheGet(op string, f Filter) (any, bool) {
	v, ok := s.cache[op+"|"+f.Key()]
	return v, ok
}

// CachePut stores a computed result and returns it.
func (s *Store) CachePut(op string, f Filter, v any) any {
	s.cache[op+"|"+f.Key()] = v
	return v
}

func (s *Store) clearCache() {
	s.cache = make(map[string]any)
}

// =============================================================================
// FILTER OPTIONS
// =============================================================================

// FilterOptions enumerates distinct values per filterable dimension, for
// populating UI filter controls.
type FilterOptions struct {
	Dealers       []string `json:"dealers,omitempty"`
	Products      []string `json:"products,omitempty"`
	Years         []int    `json:"years,omitempty"`
	Months        []int    `json:"months,omitempty"`
	Makes         []string `json:"makes,omitempty"`
	Countries     []string `json:"countries,omitempty"`
	Coverages     []string `json:"coverages,omitempty"`
	VehicleTypes  []string `json:"vehicleTypes,omitempty"`
	BodyTypes     []string `json:"bodyTypes,omitempty"`
	ClaimStatuses []string `json:"claimStatuses,omitempty"`
	PartTypes     []string `json:"partTypes,omitempty"`
	MinDate       string   `json:"minDate,omitempty"`
	MaxDate       string   `json:"maxDate,omitempty"`
}

// GetFilterOptions scans the working tables for the observed value domains.
func (s *Store) GetFilterOptions() FilterOptions {
	if !s.loaded {
		return FilterOptions{}
	}

	opts := FilterOptions{
		Dealers:       distinctStrings(s.sales, "Dealer"),
		Products:      distinctStrings(s.sales, "Product"),
		Years:         distinctInts(s.sales, "Year"),
		Months:        distinctInts(s.sales, "Month"),
		Makes:         distinctStrings(s.sales, "Make"),
		Countries:     distinctStrings(s.sales, "Country Name"),
		Coverages:     distinctStrings(s.sales, "Coverage"),
		VehicleTypes:  distinctStrings(s.sales, "Vehicle Type"),
		BodyTypes:     distinctStrings(s.sales, "Body Type"),
		ClaimStatuses: distinctStrings(s.claims, "Claim Status"),
		PartTypes:     distinctStrings(s.claims, "Part Type"),
	}

	if col := s.sales.Schema.Col(FieldDate); col != "" {
		var min, max time.Time
		for _, r := range s.sales.Rows {
			d, ok := CellTime(r.Cells[col])
			if !ok {
				continue
			}
			if min.IsZero() || d.Before(min) {
				min = d
			}
			if max.IsZero() || d.After(max) {
				max = d
			}
		}
		if !min.IsZero() {
			opts.MinDate = min.Format("2006-01-02")
			opts.MaxDate = max.Format("2006-01-02")
		}
	}

	return opts
}

func distinctStrings(t Table, col string) []string {
	if !t.HasColumn(col) {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rows {
		v := CellString(r.Cells[col])
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func distinctInts(t Table, col string) []int {
	if !t.HasColumn(col) {
		return nil
	}
	seen := make(map[int]bool)
	var out []int
	for _, r := range t.Rows {
		n, ok := CellInt(r.Cells[col])
		if ok && n != 0 && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

// =============================================================================
// RAW DATA (paginated)
// =============================================================================

// RawPage is one page of raw rows for the data manager view.
type RawPage struct {
	Rows    []map[string]any `json:"rows"`
	Columns []string         `json:"columns"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	Pages   int              `json:"pages"`
	Limit   int              `json:"limit"`
}

// GetRawData returns a filtered, optionally sorted page of a table. The
// identity column is excluded from the reported column list but each row
// still carries it so the UI can address cells for editing.
func (s *Store) GetRawData(table string, page, limit int, f Filter, sortBy, sortDir string) (RawPage, error) {
	t, err := s.Table(table)
	if err != nil {
		return RawPage{}, err
	}
	if !s.loaded {
		return RawPage{}, ErrNoDataLoaded
	}

	filtered := f.Apply(t)

	if sortBy != "" && filtered.HasColumn(sortBy) {
		asc := !strings.EqualFold(sortDir, "desc")
		rows := append([]Row(nil), filtered.Rows...)
		sort.SliceStable(rows, func(i, j int) bool {
			less := cellLess(rows[i].Cells[sortBy], rows[j].Cells[sortBy])
			if asc {
				return less
			}
			return cellLess(rows[j].Cells[sortBy], rows[i].Cells[sortBy])
		})
		filtered = filtered.subset(rows)
	}

	if limit <= 0 {
		limit = 100
	}
	total := filtered.Len()
	pages := (total + limit - 1) / limit
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	out := RawPage{
		Columns: make([]string, 0, len(filtered.Columns)),
		Total:   total,
		Page:    page,
		Pages:   pages,
		Limit:   limit,
	}
	for _, c := range filtered.Columns {
		if c != RowIDColumn {
			out.Columns = append(out.Columns, c)
		}
	}
	for _, r := range filtered.Rows[start:end] {
		rec := make(map[string]any, len(r.Cells)+1)
		rec[RowIDColumn] = r.ID
		for col, v := range r.Cells {
			rec[col] = Serialize(v)
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, nil
}

// cellLess orders two cells: numerically when both are numeric, then by
// date, then lexically.
func cellLess(a, b any) bool {
	if da, ok := CellDecimal(a); ok {
		if db, ok := CellDecimal(b); ok {
			return da.LessThan(db)
		}
	}
	if ta, ok := CellTime(a); ok {
		if tb, ok := CellTime(b); ok {
			return ta.Before(tb)
		}
	}
	return CellString(a) < CellString(b)
}
