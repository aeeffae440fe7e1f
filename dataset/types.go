/*
Package dataset owns the in-memory Sales/Claims tabular store.

PURPOSE:
  This package contains the data model for the analytics engine: tables of
  loosely-typed rows, the load-time schema mapping, the filter engine, the
  Sales↔Claims linkage, and the mutation/audit subsystem.

KEY CONCEPTS IN THIS FILE (types.go):
  - Row: a single record with a stable process-lifetime row ID
  - Table: an ordered collection of rows plus its resolved Schema
  - Field: a logical column name (policy, dealer, premium, ...)
  - Schema: the field → physical column mapping, resolved once at load

DESIGN PRINCIPLES:
  1. Explicit schema: column-name variation ("Policy No" vs "Policy Number")
     is resolved exactly once, at load time. Everything downstream asks the
     Schema, never re-scans headers.
  2. Precision: monetary cells are read through decimal.Decimal.
  3. Capability checks: an operation that needs a field the dataset lacks
     degrades to an empty result instead of erroring.

SEE ALSO:
  - store.go:    Store, snapshots, query cache
  - filter.go:   Filter specification and evaluation
  - linkage.go:  Merged View construction
  - mutation.go: Cell edits, change log, reset
*/
package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RowIDColumn is the reserved identity column. It is assigned at load time,
// never reused, never reported and never editable.
const RowIDColumn = "_row_id"

// =============================================================================
// ROW / TABLE
// =============================================================================

// Row is a single record. Cells are keyed by physical column name and hold
// nil, string, float64, int, bool, time.Time or decimal.Decimal.
type Row struct {
	ID    int
	Cells map[string]any
}

// Clone deep-copies the row so edits to the copy never leak into the original.
func (r Row) Clone() Row {
	cells := make(map[string]any, len(r.Cells))
	for k, v := range r.Cells {
		cells[k] = v
	}
	return Row{ID: r.ID, Cells: cells}
}

// Table is an ordered collection of rows sharing one column set.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
	Schema  Schema
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Clone deep-copies the table (rows included). Used for the load-time
// snapshot and for Reset.
func (t Table) Clone() Table {
	out := Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
		Schema:  t.Schema.clone(),
	}
	for i, r := range t.Rows {
		out.Rows[i] = r.Clone()
	}
	return out
}

// subset returns a table sharing t's columns and schema but containing only
// the given rows, in their given order. Rows are shared, not copied: subsets
// are read-only projections.
func (t Table) subset(rows []Row) Table {
	return Table{Name: t.Name, Columns: t.Columns, Rows: rows, Schema: t.Schema}
}

// HasColumn reports whether the physical column exists.
func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// RowByID finds a row by its identity. Returns the index or -1.
func (t Table) RowByID(id int) int {
	for i := range t.Rows {
		if t.Rows[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// LOGICAL FIELDS
// =============================================================================

// Field is a logical column name. The Schema maps each field to whichever
// physical column header the loaded workbook actually uses.
type Field string

const (
	FieldPolicy       Field = "policy"
	FieldDealer       Field = "dealer"
	FieldProduct      Field = "product"
	FieldMake         Field = "make"
	FieldGrossPremium Field = "gross_premium"
	FieldRiskPremium  Field = "risk_premium"
	FieldDate         Field = "date"
	FieldYear         Field = "year"
	FieldMonth        Field = "month"
	FieldClaimStatus  Field = "claim_status"
	FieldPartType     Field = "part_type"
	FieldLabor        Field = "labor"
	FieldParts        Field = "parts"
	FieldAuthAmount   Field = "auth_amount"
)

// fieldCandidates lists the physical header spellings observed in practice,
// in preference order. Matching is case- and whitespace-tolerant.
var fieldCandidates = map[Field][]string{
	FieldPolicy:       {"Policy No", "PolicyNo", "POLICY_NO", "Policy Number"},
	FieldDealer:       {"Dealer", "Dealer AJA"},
	FieldProduct:      {"Product", "Coverage"},
	FieldMake:         {"Make"},
	FieldGrossPremium: {"Gross Premium"},
	FieldRiskPremium:  {"Risk Premium"},
	FieldDate:         {"Policy Sold Date", "Failure Date", "Date", "Invoice Date"},
	FieldYear:         {"Year"},
	FieldMonth:        {"Month"},
	FieldClaimStatus:  {"Claim Status"},
	FieldPartType:     {"Part Type"},
	FieldLabor:        {"Labor"},
	FieldParts:        {"Parts"},
	FieldAuthAmount:   {"Total Auth Amount"},
}

// =============================================================================
// SCHEMA - resolved once at load time
// =============================================================================

// Schema maps logical fields to physical columns. A missing entry means the
// dataset does not carry that field; callers check Has before depending on it.
type Schema struct {
	cols map[Field]string
}

// ResolveSchema builds the schema for a column set. Headers are assumed to be
// trimmed already (the loader does that once).
func ResolveSchema(columns []string) Schema {
	s := Schema{cols: make(map[Field]string)}
	for field, candidates := range fieldCandidates {
		if col := FindColumn(columns, candidates...); col != "" {
			s.cols[field] = col
		}
	}
	return s
}

// FindColumn returns the first candidate present in columns, matched
// case-insensitively, or "" when none is.
func FindColumn(columns []string, candidates ...string) string {
	for _, cand := range candidates {
		for _, col := range columns {
			if strings.EqualFold(col, strings.TrimSpace(cand)) {
				return col
			}
		}
	}
	return ""
}

// Has reports whether the field resolved to a physical column.
func (s Schema) Has(f Field) bool {
	_, ok := s.cols[f]
	return ok
}

// Col returns the physical column for a field, or "" when unresolved.
func (s Schema) Col(f Field) string { return s.cols[f] }

func (s Schema) clone() Schema {
	out := Schema{cols: make(map[Field]string, len(s.cols))}
	for k, v := range s.cols {
		out.cols[k] = v
	}
	return out
}

// =============================================================================
// CELL COERCION
// =============================================================================

// CellString renders any cell as a string. nil renders as "".
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02")
	case decimal.Decimal:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}

// CellDecimal coerces a cell to a decimal. Returns ok=false for cells that
// carry no numeric value.
func CellDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case float64:
		return decimal.NewFromFloat(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}

// CellFloat coerces a cell to a float64.
func CellFloat(v any) (float64, bool) {
	d, ok := CellDecimal(v)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// CellInt coerces a cell to an int, truncating fractional values.
func CellInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case decimal.Decimal:
		return int(x.IntPart()), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return n, true
	default:
		return 0, false
	}
}

// dateLayouts are the formats accepted for date cells and date filters.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
	"2-Jan-06",
}

// CellTime coerces a cell to a time. Returns ok=false when the cell holds no
// parseable date.
func CellTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		return ParseDate(x)
	default:
		return time.Time{}, false
	}
}

// ParseDate parses a date string against the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
