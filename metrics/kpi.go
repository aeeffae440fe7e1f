package metrics

import (
	"sort"

	"github.com/clarity-bi/clarity/dataset"
)

// Summary is the whole-portfolio KPI view over the filtered dataset.
type Summary struct {
	TotalPremium       float64 `json:"totalPremium"`
	TotalRiskPremium   float64 `json:"totalRiskPremium"`
	TotalClaimsAmount  float64 `json:"totalClaimsAmount"`
	TotalPolicies      int     `json:"totalPolicies"`
	TotalClaims        int     `json:"totalClaims"`
	ClaimRate          float64 `json:"claimRate"`
	LossRatio          float64 `json:"lossRatio"`
	AvgClaimCost       float64 `json:"avgClaimCost"`
	AvgPremium         float64 `json:"avgPremium"`
	PoliciesWithClaims int     `json:"policiesWithClaims"`
	UniqueMakes        int     `json:"uniqueMakes"`
	UniqueDealers      int     `json:"uniqueDealers"`
}

// GetSummary computes the KPI summary for a filter set.
func (e *Engine) GetSummary(f dataset.Filter) Summary {
	if !e.store.Loaded() {
		return Summary{}
	}
	if v, ok := e.store.CacheGet("summary", f); ok {
		return v.(Summary)
	}

	sales := f.Apply(e.store.Sales())
	claims := f.Apply(e.store.Claims())
	merged := f.Apply(e.store.Merged())

	totalPremium := sumField(sales, dataset.FieldGrossPremium)
	totalClaimsAmount := sumField(claims, dataset.FieldAuthAmount)
	totalPolicies := sales.Len()
	totalClaims := claims.Len()

	withClaims := 0
	for _, r := range merged.Rows {
		if hc, ok := r.Cells[dataset.ColHasClaim].(bool); ok && hc {
			withClaims++
		}
	}

	out := Summary{
		TotalPremium:       money(totalPremium),
		TotalRiskPremium:   money(sumField(sales, dataset.FieldRiskPremium)),
		TotalClaimsAmount:  money(totalClaimsAmount),
		TotalPolicies:      totalPolicies,
		TotalClaims:        totalClaims,
		ClaimRate:          rateInt(withClaims, totalPolicies),
		LossRatio:          rate(totalClaimsAmount, totalPremium),
		AvgClaimCost:       avg(totalClaimsAmount, totalClaims),
		AvgPremium:         avg(totalPremium, totalPolicies),
		PoliciesWithClaims: withClaims,
		UniqueMakes:        distinctCount(sales, dataset.FieldMake),
		UniqueDealers:      distinctCount(sales, dataset.FieldDealer),
	}
	e.store.CachePut("summary", f, out)
	return out
}

func distinctCount(t dataset.Table, field dataset.Field) int {
	col := t.Schema.Col(field)
	if col == "" {
		return 0
	}
	seen := make(map[string]bool)
	for _, r := range t.Rows {
		if v := dataset.CellString(r.Cells[col]); v != "" {
			seen[v] = true
		}
	}
	return len(seen)
}

// =============================================================================
// CORRELATIONS - claim behaviour by dimension over the Merged View
// =============================================================================

// CorrelationRow is one group of the Merged View with its claim metrics.
type CorrelationRow struct {
	Key              string  `json:"key"`
	Policies         int     `json:"policies"`
	WithClaims       int     `json:"withClaims"`
	TotalPremium     float64 `json:"totalPremium"`
	TotalClaimAmount float64 `json:"totalClaimAmount"`
	ClaimRate        float64 `json:"claimRate"`
	LossRatio        float64 `json:"lossRatio"`
}

// Correlations breaks claim behaviour down by dealer, product, vehicle make
// (top 15 by policy volume) and year, each independently.
type Correlations struct {
	ByDealer  []CorrelationRow `json:"byDealer,omitempty"`
	ByProduct []CorrelationRow `json:"byProduct,omitempty"`
	ByMake    []CorrelationRow `json:"byMake,omitempty"`
	ByYear    []CorrelationRow `json:"byYear,omitempty"`
}

// GetCorrelations computes every per-dimension breakdown the Merged View's
// schema supports. Missing dimensions are omitted, not errors.
func (e *Engine) GetCorrelations(f dataset.Filter) Correlations {
	if !e.store.Loaded() {
		return Correlations{}
	}
	if v, ok := e.store.CacheGet("correlations", f); ok {
		return v.(Correlations)
	}

	merged := f.Apply(e.store.Merged())
	out := Correlations{
		ByDealer:  correlateBy(merged, dataset.FieldDealer, 0),
		ByProduct: correlateBy(merged, dataset.FieldProduct, 0),
		ByMake:    correlateBy(merged, dataset.FieldMake, 15),
		ByYear:    correlateBy(merged, dataset.FieldYear, 0),
	}
	e.store.CachePut("correlations", f, out)
	return out
}

// correlateBy groups the Merged View by one dimension. top > 0 keeps only
// the top-N groups by policy volume.
func correlateBy(merged dataset.Table, field dataset.Field, top int) []CorrelationRow {
	col := merged.Schema.Col(field)
	if col == "" {
		return nil
	}
	premiumCol := merged.Schema.Col(dataset.FieldGrossPremium)

	order, grouped := groupByColumn(merged, col)
	rows := make([]CorrelationRow, 0, len(order))
	for _, key := range order {
		group := grouped[key]
		withClaims := 0
		for _, r := range group {
			if hc, ok := r.Cells[dataset.ColHasClaim].(bool); ok && hc {
				withClaims++
			}
		}
		premium := rowsDecimalSum(group, premiumCol)
		claimAmount := rowsDecimalSum(group, dataset.ColTotalClaimAmount)
		rows = append(rows, CorrelationRow{
			Key:              key,
			Policies:         len(group),
			WithClaims:       withClaims,
			TotalPremium:     money(premium),
			TotalClaimAmount: money(claimAmount),
			ClaimRate:        rateInt(withClaims, len(group)),
			LossRatio:        rate(claimAmount, premium),
		})
	}

	if top > 0 && len(rows) > top {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Policies > rows[j].Policies })
		rows = rows[:top]
	}
	return rows
}
