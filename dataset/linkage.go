/*
linkage.go - Merged View construction

PURPOSE:
  Derives the read-only Merged View: every Sales row extended with the
  per-policy claim aggregate (claim_count, total_claim_amount, has_claim).
  The view is a pure function of the current tables; every mutation rebuilds
  it synchronously so it is never read stale.

DEGRADATION:
  If the policy-identifier column cannot be resolved in either table, the
  view falls back to zero claims on every row. Never an error.
*/
package dataset

import "github.com/shopspring/decimal"

// Merged View columns added on top of the Sales columns.
const (
	ColClaimCount       = "claim_count"
	ColTotalClaimAmount = "total_claim_amount"
	ColHasClaim         = "has_claim"
)

// rebuildMerged recomputes the Merged View from the working tables.
// Idempotent; side-effect free apart from replacing s.merged.
func (s *Store) rebuildMerged() {
	salesPolicy := s.sales.Schema.Col(FieldPolicy)
	claimsPolicy := s.claims.Schema.Col(FieldPolicy)

	type agg struct {
		count int
		total decimal.Decimal
	}
	perPolicy := make(map[string]agg)

	if salesPolicy != "" && claimsPolicy != "" {
		authCol := s.claims.Schema.Col(FieldAuthAmount)
		for _, r := range s.claims.Rows {
			policy := CellString(r.Cells[claimsPolicy])
			a := perPolicy[policy]
			a.count++
			if authCol != "" {
				if amt, ok := CellDecimal(r.Cells[authCol]); ok {
					a.total = a.total.Add(amt)
				}
			}
			perPolicy[policy] = a
		}
	}

	merged := Table{
		Name:    "merged",
		Columns: append(append([]string(nil), s.sales.Columns...), ColClaimCount, ColTotalClaimAmount, ColHasClaim),
		Rows:    make([]Row, len(s.sales.Rows)),
	}
	for i, r := range s.sales.Rows {
		row := r.Clone()
		var a agg
		if salesPolicy != "" {
			a = perPolicy[CellString(r.Cells[salesPolicy])]
		}
		row.Cells[ColClaimCount] = a.count
		row.Cells[ColTotalClaimAmount] = a.total
		row.Cells[ColHasClaim] = a.count > 0
		merged.Rows[i] = row
	}
	merged.Schema = ResolveSchema(merged.Columns)
	s.merged = merged
}
