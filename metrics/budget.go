package metrics

import (
	"github.com/clarity-bi/clarity/dataset"
	"github.com/shopspring/decimal"
)

// Budget targets are synthesized as a 15% stretch over actuals until a real
// budget source (sheet or table) exists.
// TODO: replace the synthetic target with a Budget sheet once the workbook
// format carries one.
const budgetStretch = 1.15

// Thresholds and fallbacks for the synthetic budget.
const (
	budgetOnTrackPct       = 90
	fallbackRevenueTarget  = 1000000
	fallbackPoliciesTarget = 1000
)

// BudgetLine compares one measure against its target.
type BudgetLine struct {
	Actual      float64 `json:"actual"`
	Target      float64 `json:"target"`
	Achievement float64 `json:"achievement"`
	Status      string  `json:"status"`
}

// Budget is the budget-vs-achieved view.
type Budget struct {
	Revenue  BudgetLine `json:"revenue"`
	Policies BudgetLine `json:"policies"`
}

// GetBudget computes budget vs achieved for the filtered sales.
func (e *Engine) GetBudget(f dataset.Filter) Budget {
	if !e.store.Loaded() {
		return Budget{}
	}
	if v, ok := e.store.CacheGet("budget", f); ok {
		return v.(Budget)
	}

	sales := f.Apply(e.store.Sales())
	revenue := sumField(sales, dataset.FieldGrossPremium)
	policies := sales.Len()

	revenueTarget := decimal.NewFromInt(fallbackRevenueTarget)
	if revenue.IsPositive() {
		revenueTarget = revenue.Mul(decimal.NewFromFloat(budgetStretch))
	}
	policiesTarget := fallbackPoliciesTarget
	if policies > 0 {
		policiesTarget = int(float64(policies) * budgetStretch)
	}

	out := Budget{
		Revenue: BudgetLine{
			Actual:      money(revenue),
			Target:      money(revenueTarget),
			Achievement: rate(revenue, revenueTarget),
		},
		Policies: BudgetLine{
			Actual:      float64(policies),
			Target:      float64(policiesTarget),
			Achievement: rateInt(policies, policiesTarget),
		},
	}
	out.Revenue.Status = budgetStatus(out.Revenue.Achievement)
	out.Policies.Status = budgetStatus(out.Policies.Achievement)

	e.store.CachePut("budget", f, out)
	return out
}

func budgetStatus(achievement float64) string {
	if achievement >= budgetOnTrackPct {
		return "On Track"
	}
	return "At Risk"
}
