/*
mutation.go - Validated cell edits, change log, reset

PURPOSE:
  The only write path into the store. Every successful edit:
    1. overwrites the cell in place
    2. appends an immutable change-log entry (old and new value serialized
       to JSON-safe primitives)
    3. clears the query cache
    4. rebuilds the Merged View synchronously
  so derived state is consistent before the call returns.

VALIDATION:
  - Unknown table or row ID        -> ErrTableNotFound / ErrRowNotFound
  - Unknown or reserved column     -> ErrInvalidColumn
  - Numeric column, non-numeric    -> ValidationError
  - Premium/cost column, negative  -> ValidationError
  - Claim status outside domain    -> ValidationError
  A rejected edit leaves the stored value and the change log untouched.
*/
package dataset

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChangeEntry is one append-only audit record. Entries are removed only by
// an explicit Reset, which clears the whole log together with the data.
type ChangeEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Table     string    `json:"table"`
	RowID     int       `json:"row_id"`
	Column    string    `json:"column"`
	OldValue  any       `json:"old_value"`
	NewValue  any       `json:"new_value"`
}

// CellUpdate is one requested edit.
type CellUpdate struct {
	RowID    int    `json:"row_id"`
	Column   string `json:"column"`
	NewValue any    `json:"new_value"`
}

// UpdateResult reports a committed edit.
type UpdateResult struct {
	OldValue any `json:"old_value"`
	NewValue any `json:"new_value"`
}

// UpdateCell applies one validated edit. On success the returned result
// carries the serialized old and new values.
func (s *Store) UpdateCell(table string, rowID int, column string, value any) (UpdateResult, error) {
	if !s.loaded {
		return UpdateResult{}, ErrNoDataLoaded
	}
	t, err := s.tableRef(table)
	if err != nil {
		return UpdateResult{}, err
	}
	if column == RowIDColumn {
		return UpdateResult{}, fmt.Errorf("%w: %s is reserved", ErrInvalidColumn, RowIDColumn)
	}
	if !t.HasColumn(column) {
		return UpdateResult{}, fmt.Errorf("%w: %s", ErrInvalidColumn, column)
	}
	idx := t.RowByID(rowID)
	if idx < 0 {
		return UpdateResult{}, fmt.Errorf("%w: %d", ErrRowNotFound, rowID)
	}

	validated, err := s.validateValue(table, t, column, value)
	if err != nil {
		return UpdateResult{}, err
	}

	old := t.Rows[idx].Cells[column]
	t.Rows[idx].Cells[column] = validated

	entry := ChangeEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Table:     table,
		RowID:     rowID,
		Column:    column,
		OldValue:  Serialize(old),
		NewValue:  Serialize(validated),
	}
	s.changeLog = append(s.changeLog, entry)

	s.clearCache()
	s.rebuildMerged()

	return UpdateResult{OldValue: entry.OldValue, NewValue: entry.NewValue}, nil
}

// BulkResult reports a bulk edit: one result per item plus an overall flag.
type BulkResult struct {
	Results []ItemResult `json:"results"`
	Success bool         `json:"success"`
}

// ItemResult is the outcome of one item of a bulk edit.
type ItemResult struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	OldValue any    `json:"old_value,omitempty"`
	NewValue any    `json:"new_value,omitempty"`
}

// BulkUpdate applies a sequence of edits. Each item commits independently;
// a failed item does not roll back the ones already applied. The overall
// Success flag means every item succeeded.
func (s *Store) BulkUpdate(table string, updates []CellUpdate) BulkResult {
	out := BulkResult{Results: make([]ItemResult, 0, len(updates)), Success: true}
	for _, u := range updates {
		res, err := s.UpdateCell(table, u.RowID, u.Column, u.NewValue)
		if err != nil {
			out.Results = append(out.Results, ItemResult{Success: false, Error: err.Error()})
			out.Success = false
			continue
		}
		out.Results = append(out.Results, ItemResult{Success: true, OldValue: res.OldValue, NewValue: res.NewValue})
	}
	return out
}

// Reset restores both tables from the load-time snapshot, rebuilds the
// Merged View and clears the cache and the change log. Idempotent.
func (s *Store) Reset() error {
	if !s.loaded {
		return ErrNoDataLoaded
	}
	s.sales = s.origSales.Clone()
	s.claims = s.origClaims.Clone()
	s.rebuildMerged()
	s.clearCache()
	s.changeLog = nil
	return nil
}

// ChangeLog returns the audit trail, oldest first.
func (s *Store) ChangeLog() []ChangeEntry {
	return append([]ChangeEntry(nil), s.changeLog...)
}

// tableRef returns a pointer to the working table, for in-place edits.
func (s *Store) tableRef(name string) (*Table, error) {
	switch name {
	case TableSales:
		return &s.sales, nil
	case TableClaims:
		return &s.claims, nil
	default:
		return nil, ErrTableNotFound
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// numericFields lists the schema fields holding numbers. Year and Month may
// be negative-free in practice but only monetary fields reject negatives.
var numericFields = map[string][]Field{
	TableSales:  {FieldGrossPremium, FieldRiskPremium, FieldYear, FieldMonth},
	TableClaims: {FieldLabor, FieldParts, FieldAuthAmount, FieldYear, FieldMonth},
}

var moneyFields = map[Field]bool{
	FieldGrossPremium: true,
	FieldRiskPremium:  true,
	FieldLabor:        true,
	FieldParts:        true,
	FieldAuthAmount:   true,
}

func (s *Store) validateValue(table string, t *Table, column string, value any) (any, error) {
	for _, f := range numericFields[table] {
		if t.Schema.Col(f) != column {
			continue
		}
		d, ok := CellDecimal(value)
		if !ok {
			return nil, &ValidationError{Column: column, Reason: "must be numeric"}
		}
		if moneyFields[f] && d.IsNegative() {
			return nil, &ValidationError{Column: column, Reason: "cannot be negative"}
		}
		if f == FieldYear || f == FieldMonth {
			return int(d.IntPart()), nil
		}
		return d, nil
	}

	if t.Schema.Col(FieldClaimStatus) == column {
		status := CellString(value)
		if !s.statuses[status] {
			return nil, &ValidationError{Column: column, Reason: "unrecognized claim status"}
		}
		return status, nil
	}

	return value, nil
}

// Serialize converts a cell to a JSON-safe primitive: nil stays nil, numbers
// become int/float, dates become ISO-8601 strings.
func Serialize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.Format(time.RFC3339)
	case decimal.Decimal:
		return x.InexactFloat64()
	default:
		return x
	}
}
