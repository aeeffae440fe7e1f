package metrics

import (
	"sort"

	"github.com/clarity-bi/clarity/dataset"
)

// statusColors are the chart colors the dashboard expects per claim status.
var statusColors = map[string]string{
	"Approved": "#10b981",
	"Rejected": "#ef4444",
	"Reversed": "#f59e0b",
	"Pending":  "#3b82f6",
}

const statusColorDefault = "#64748b"

// ClaimStatusGroup is one claim-status bucket.
type ClaimStatusGroup struct {
	Status      string  `json:"status"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
	Color       string  `json:"color"`
}

// GetClaimsStatus returns the claim-status distribution.
func (e *Engine) GetClaimsStatus(f dataset.Filter) []ClaimStatusGroup {
	if !e.store.Loaded() {
		return nil
	}
	if v, ok := e.store.CacheGet("claims_status", f); ok {
		return v.([]ClaimStatusGroup)
	}

	claims := f.Apply(e.store.Claims())
	statusCol := claims.Schema.Col(dataset.FieldClaimStatus)
	if statusCol == "" {
		return nil
	}
	amountCol := claims.Schema.Col(dataset.FieldAuthAmount)

	order, grouped := groupByColumn(claims, statusCol)
	out := make([]ClaimStatusGroup, 0, len(order))
	for _, status := range order {
		group := grouped[status]
		color := statusColors[status]
		if color == "" {
			color = statusColorDefault
		}
		out = append(out, ClaimStatusGroup{
			Status:      status,
			Count:       len(group),
			TotalAmount: money(rowsDecimalSum(group, amountCol)),
			Color:       color,
		})
	}
	e.store.CachePut("claims_status", f, out)
	return out
}

// PartTypeGroup is one part-type failure bucket, sorted by count descending.
type PartTypeGroup struct {
	PartType    string  `json:"partType"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
	AvgCost     float64 `json:"avgCost"`
}

// GetClaimsParts returns the part-type failure analysis.
func (e *Engine) GetClaimsParts(f dataset.Filter) []PartTypeGroup {
	if !e.store.Loaded() {
		return nil
	}
	if v, ok := e.store.CacheGet("claims_parts", f); ok {
		return v.([]PartTypeGroup)
	}

	claims := f.Apply(e.store.Claims())
	partCol := claims.Schema.Col(dataset.FieldPartType)
	if partCol == "" {
		return nil
	}
	amountCol := claims.Schema.Col(dataset.FieldAuthAmount)

	order, grouped := groupByColumn(claims, partCol)
	out := make([]PartTypeGroup, 0, len(order))
	for _, part := range order {
		group := grouped[part]
		total := rowsDecimalSum(group, amountCol)
		out = append(out, PartTypeGroup{
			PartType:    part,
			Count:       len(group),
			TotalAmount: money(total),
			AvgCost:     avg(total, len(group)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	e.store.CachePut("claims_parts", f, out)
	return out
}

// MonthlyClaims is one month of the claims trend, chronological.
type MonthlyClaims struct {
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	Period      string  `json:"period"`
	Count       int     `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
	LaborCost   float64 `json:"laborCost"`
	PartsCost   float64 `json:"partsCost"`
}

// GetClaimsTrends returns the monthly claims trend.
func (e *Engine) GetClaimsTrends(f dataset.Filter) []MonthlyClaims {
	if !e.store.Loaded() {
		return nil
	}
	if v, ok := e.store.CacheGet("claims_trends", f); ok {
		return v.([]MonthlyClaims)
	}

	claims := f.Apply(e.store.Claims())
	if !hasMonthColumns(claims) {
		return nil
	}
	amountCol := claims.Schema.Col(dataset.FieldAuthAmount)
	laborCol := claims.Schema.Col(dataset.FieldLabor)
	partsCol := claims.Schema.Col(dataset.FieldParts)

	keys, grouped := groupByMonth(claims)
	out := make([]MonthlyClaims, 0, len(keys))
	for _, k := range keys {
		group := grouped[k]
		out = append(out, MonthlyClaims{
			Year:        k.Year,
			Month:       k.Month,
			Period:      k.period(),
			Count:       len(group),
			TotalAmount: money(rowsDecimalSum(group, amountCol)),
			LaborCost:   money(rowsDecimalSum(group, laborCol)),
			PartsCost:   money(rowsDecimalSum(group, partsCol)),
		})
	}
	e.store.CachePut("claims_trends", f, out)
	return out
}

// GetClaimsRecent returns the most recent claims by failure/authorized date,
// newest first, without the identity column.
func (e *Engine) GetClaimsRecent(f dataset.Filter, limit int) []map[string]any {
	if !e.store.Loaded() {
		return nil
	}
	if limit <= 0 {
		limit = 50
	}

	claims := f.Apply(e.store.Claims())
	rows := append([]dataset.Row(nil), claims.Rows...)

	if dateCol := dataset.FindColumn(claims.Columns, "Failure Date", "Authorized Date"); dateCol != "" {
		sort.SliceStable(rows, func(i, j int) bool {
			di, _ := dataset.CellTime(rows[i].Cells[dateCol])
			dj, _ := dataset.CellTime(rows[j].Cells[dateCol])
			return dj.Before(di)
		})
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		rec := make(map[string]any, len(r.Cells))
		for col, v := range r.Cells {
			if col == dataset.RowIDColumn {
				continue
			}
			rec[col] = dataset.Serialize(v)
		}
		out = append(out, rec)
	}
	return out
}
