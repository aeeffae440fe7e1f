/*
Package metrics is the aggregation and reporting engine.

PURPOSE:
  A family of grouping operations over the dataset store, all shaped the
  same way: apply the filter, group by one or more dimensions, compute
  aggregates, return an ordered sequence of per-group records. Every
  operation is cacheable under (operation name, canonical filter); the store
  clears the cache on any mutation, so a cache hit always equals a fresh
  computation.

NUMERIC POLICY:
  Monetary aggregates accumulate in decimal.Decimal and are rounded to two
  decimal places only at the result boundary; rates and ratios to one. Any
  ratio with a zero denominator reports zero, never NaN or infinity. An
  operation whose required columns are absent returns an empty result.

SEE ALSO:
  - kpi.go:      KPI summary, correlations
  - sales.go:    monthly trend, dealers, products, vehicle makes
  - claims.go:   status, part types, monthly trend, recent claims
  - forecast.go: loss-ratio forecaster
*/
package metrics

import (
	"fmt"
	"sort"

	"github.com/clarity-bi/clarity/dataset"
	"github.com/shopspring/decimal"
)

// Engine runs reporting queries against one store instance.
type Engine struct {
	store *dataset.Store
}

// NewEngine creates an engine bound to a store.
func NewEngine(store *dataset.Store) *Engine {
	return &Engine{store: store}
}

// Store exposes the underlying store to collaborators (API layer, AI
// context rendering).
func (e *Engine) Store() *dataset.Store { return e.store }

// =============================================================================
// SHARED HELPERS
// =============================================================================

// sumField sums a schema field across a table. Absent field sums to zero.
func sumField(t dataset.Table, f dataset.Field) decimal.Decimal {
	col := t.Schema.Col(f)
	if col == "" {
		return decimal.Zero
	}
	return sumColumn(t, col)
}

func sumColumn(t dataset.Table, col string) decimal.Decimal {
	total := decimal.Zero
	for _, r := range t.Rows {
		if d, ok := dataset.CellDecimal(r.Cells[col]); ok {
			total = total.Add(d)
		}
	}
	return total
}

// groupByColumn groups rows by a column's string value, preserving first-seen
// order. Rows with an empty value group under "".
func groupByColumn(t dataset.Table, col string) ([]string, map[string][]dataset.Row) {
	grouped := make(map[string][]dataset.Row)
	var order []string
	for _, r := range t.Rows {
		key := dataset.CellString(r.Cells[col])
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], r)
	}
	return order, grouped
}

// monthKey identifies one calendar month.
type monthKey struct {
	Year  int
	Month int
}

func (k monthKey) period() string { return fmt.Sprintf("%d-%02d", k.Year, k.Month) }

// groupByMonth groups rows by (Year, Month), returned chronologically.
// Requires both columns resolved; callers check capability first.
func groupByMonth(t dataset.Table) ([]monthKey, map[monthKey][]dataset.Row) {
	yearCol := t.Schema.Col(dataset.FieldYear)
	monthCol := t.Schema.Col(dataset.FieldMonth)
	grouped := make(map[monthKey][]dataset.Row)
	for _, r := range t.Rows {
		y, okY := dataset.CellInt(r.Cells[yearCol])
		m, okM := dataset.CellInt(r.Cells[monthCol])
		if !okY || !okM {
			continue
		}
		k := monthKey{Year: y, Month: m}
		grouped[k] = append(grouped[k], r)
	}
	keys := make([]monthKey, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Month < keys[j].Month
	})
	return keys, grouped
}

// hasMonthColumns reports whether the table can be grouped by calendar month.
func hasMonthColumns(t dataset.Table) bool {
	return t.Schema.Has(dataset.FieldYear) && t.Schema.Has(dataset.FieldMonth)
}

// rowsDecimalSum sums one column over a row group.
func rowsDecimalSum(rows []dataset.Row, col string) decimal.Decimal {
	total := decimal.Zero
	if col == "" {
		return total
	}
	for _, r := range rows {
		if d, ok := dataset.CellDecimal(r.Cells[col]); ok {
			total = total.Add(d)
		}
	}
	return total
}

// =============================================================================
// PRESENTATION ROUNDING
// =============================================================================

// money rounds a monetary aggregate to 2 decimal places.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// rate computes num/den*100 rounded to 1 decimal place; zero when den is zero.
func rate(num, den decimal.Decimal) float64 {
	if den.IsZero() {
		return 0
	}
	return num.Div(den).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
}

// rateInt is rate over integer counts.
func rateInt(num, den int) float64 {
	return rate(decimal.NewFromInt(int64(num)), decimal.NewFromInt(int64(den)))
}

// avg computes num/den rounded to 2 decimal places; zero when den is zero.
func avg(num decimal.Decimal, den int) float64 {
	if den == 0 {
		return 0
	}
	return num.Div(decimal.NewFromInt(int64(den))).Round(2).InexactFloat64()
}
