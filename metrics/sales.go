package metrics

import (
	"sort"

	"github.com/clarity-bi/clarity/dataset"
	"github.com/shopspring/decimal"
)

// MonthlySales is one month of the sales trend, chronological.
type MonthlySales struct {
	Year        int     `json:"year"`
	Month       int     `json:"month"`
	Period      string  `json:"period"`
	Premium     float64 `json:"premium"`
	RiskPremium float64 `json:"riskPremium"`
	Policies    int     `json:"policies"`
}

// GetSalesMonthly returns the monthly sales trend, sorted chronologically
// with YYYY-MM period labels. Empty when the dataset has no time columns.
func (e *Engine) GetSalesMonthly(f dataset.Filter) []MonthlySales {
	if !e.store.Loaded() {
		return nil
	}
	if v, ok := e.store.CacheGet("sales_monthly", f); ok {
		return v.([]MonthlySales)
	}

	sales := f.Apply(e.store.Sales())
	if !hasMonthColumns(sales) {
		return nil
	}
	premiumCol := sales.Schema.Col(dataset.FieldGrossPremium)
	riskCol := sales.Schema.Col(dataset.FieldRiskPremium)

	keys, grouped := groupByMonth(sales)
	out := make([]MonthlySales, 0, len(keys))
	for _, k := range keys {
		group := grouped[k]
		out = append(out, MonthlySales{
			Year:        k.Year,
			Month:       k.Month,
			Period:      k.period(),
			Premium:     money(rowsDecimalSum(group, premiumCol)),
			RiskPremium: money(rowsDecimalSum(group, riskCol)),
			Policies:    len(group),
		})
	}
	e.store.CachePut("sales_monthly", f, out)
	return out
}

// DealerPerformance is one dealer's sales volume plus its claim exposure
// from the Merged View.
type DealerPerformance struct {
	Dealer           string  `json:"dealer"`
	Premium          float64 `json:"premium"`
	RiskPremium      float64 `json:"riskPremium"`
	Policies         int     `json:"policies"`
	ClaimsCount      int     `json:"claimsCount"`
	TotalClaimAmount float64 `json:"totalClaimAmount"`
	LossRatio        float64 `json:"lossRatio"`
	ClaimRate        float64 `json:"claimRate"`
}

// GetSalesDealers returns the per-dealer breakdown. Claim columns come from
// the Merged View grouped by the same dealer column.
func (e *Engine) GetSalesDealers(f dataset.Filter) []DealerPerformance {
	if !e.store.Loaded() {
		return nil
	}
	if v, ok := e.store.CacheGet("sales_dealers", f); ok {
		return v.([]DealerPerformance)
	}

	sales := f.Apply(e.store.Sales())
	dealerCol := sales.Schema.Col(dataset.FieldDealer)
	if dealerCol == "" {
		return nil
	}
	premiumCol := sales.Schema.Col(dataset.FieldGrossPremium)
	riskCol := sales.Schema.Col(dataset.FieldRiskPremium)

	// Claim aggregates per dealer from the merged view.
	type claimAgg struct {
		withClaims int
		amount     decimal.Decimal
	}
	claimsByDealer := make(map[string]claimAgg)
	merged := f.Apply(e.store.Merged())
	if mcol := merged.Schema.Col(dataset.FieldDealer); mcol != "" {
		for _, r := range merged.Rows {
			key := dataset.CellString(r.Cells[mcol])
			a := claimsByDealer[key]
			if hc, ok := r.Cells[dataset.ColHasClaim].(bool); ok && hc {
				a.withClaims++
			}
			if d, ok := dataset.CellDecimal(r.Cells[dataset.ColTotalClaimAmount]); ok {
				a.amount = a.amount.Add(d)
			}
			claimsByDealer[key] = a
		}
	}

	order, grouped := groupByColumn(sales, dealerCol)
	out := make([]DealerPerformance, 0, len(order))
	for _, dealer := range order {
		group := grouped[dealer]
		premium := rowsDecimalSum(group, premiumCol)
		agg := claimsByDealer[dealer]
		out = append(out, DealerPerformance{
			Dealer:           dealer,
			Premium:          money(premium),
			RiskPremium:      money(rowsDecimalSum(group, riskCol)),
			Policies:         len(group),
			ClaimsCount:      agg.withClaims,
			TotalClaimAmount: money(agg.amount),
			LossRatio:        rate(agg.amount, premium),
			ClaimRate:        rateInt(agg.withClaims, len(group)),
		})
	}
	e.store.CachePut("sales_dealers", f, out)
	return out
}

// ProductMix is one product/coverage group of the sales table.
type ProductMix struct {
	Product     string  `json:"product"`
	Premium     float64 `json:"premium"`
	RiskPremium float64 `json:"riskPremium"`
	Count       int     `json:"count"`
}

// GetSalesProducts returns the product mix, grouped by whichever of
// Product/Coverage resolves.
func (e *Engine) GetSalesProducts(f dataset.Filter) []ProductMix {
	if !e.store.Loaded() {
		return nil
	}
	if v, ok := e.store.CacheGet("sales_products", f); ok {
		return v.([]ProductMix)
	}

	sales := f.Apply(e.store.Sales())
	prodCol := sales.Schema.Col(dataset.FieldProduct)
	if prodCol == "" {
		return nil
	}
	premiumCol := sales.Schema.Col(dataset.FieldGrossPremium)
	riskCol := sales.Schema.Col(dataset.FieldRiskPremium)

	order, grouped := groupByColumn(sales, prodCol)
	out := make([]ProductMix, 0, len(order))
	for _, product := range order {
		group := grouped[product]
		out = append(out, ProductMix{
			Product:     product,
			Premium:     money(rowsDecimalSum(group, premiumCol)),
			RiskPremium: money(rowsDecimalSum(group, riskCol)),
			Count:       len(group),
		})
	}
	e.store.CachePut("sales_products", f, out)
	return out
}

// VehicleMake is one vehicle-make group of the sales table.
type VehicleMake struct {
	Make    string  `json:"make"`
	Premium float64 `json:"premium"`
	Count   int     `json:"count"`
}

// GetSalesVehicles returns the top 20 vehicle makes by policy count.
func (e *Engine) GetSalesVehicles(f dataset.Filter) []VehicleMake {
	if !e.store.Loaded() {
		return nil
	}
	if v, ok := e.store.CacheGet("sales_vehicles", f); ok {
		return v.([]VehicleMake)
	}

	sales := f.Apply(e.store.Sales())
	makeCol := sales.Schema.Col(dataset.FieldMake)
	if makeCol == "" {
		return nil
	}
	premiumCol := sales.Schema.Col(dataset.FieldGrossPremium)

	order, grouped := groupByColumn(sales, makeCol)
	out := make([]VehicleMake, 0, len(order))
	for _, mk := range order {
		group := grouped[mk]
		out = append(out, VehicleMake{
			Make:    mk,
			Premium: money(rowsDecimalSum(group, premiumCol)),
			Count:   len(group),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > 20 {
		out = out[:20]
	}
	e.store.CachePut("sales_vehicles", f, out)
	return out
}
