/*
Package ai renders the analytics data context for the chat assistant and
talks to the Gemini API.

The engine → ai dependency runs one way: this package reads reporting views
and produces text; nothing in the core depends on it.
*/
package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/clarity-bi/clarity/dataset"
	"github.com/clarity-bi/clarity/metrics"
)

// RenderDataContext produces the plain-text data summary the assistant
// grounds its answers in: overall KPIs plus the top rows of every breakdown,
// so it can answer "which month", "top dealer", "best product" questions
// from exact figures.
func RenderDataContext(e *metrics.Engine, f dataset.Filter) string {
	if !e.Store().Loaded() {
		return "No data loaded."
	}

	summary := e.GetSummary(f)
	var b strings.Builder

	b.WriteString("=== OVERALL KPIs ===\n")
	fmt.Fprintf(&b, "Total Policies      : %d\n", summary.TotalPolicies)
	fmt.Fprintf(&b, "Total Gross Premium : %.2f\n", summary.TotalPremium)
	fmt.Fprintf(&b, "Total Claims        : %d\n", summary.TotalClaims)
	fmt.Fprintf(&b, "Total Claims Amount : %.2f\n", summary.TotalClaimsAmount)
	fmt.Fprintf(&b, "Claim Rate          : %.1f%%\n", summary.ClaimRate)
	fmt.Fprintf(&b, "Loss Ratio          : %.1f%%\n", summary.LossRatio)
	fmt.Fprintf(&b, "Avg Claim Cost      : %.2f\n", summary.AvgClaimCost)
	fmt.Fprintf(&b, "Avg Premium         : %.2f\n", summary.AvgPremium)
	fmt.Fprintf(&b, "Unique Dealers      : %d\n", summary.UniqueDealers)
	fmt.Fprintf(&b, "Unique Makes        : %d\n", summary.UniqueMakes)

	if active := f.Active(); len(active) > 0 {
		b.WriteString("\n=== ACTIVE FILTERS ===\n")
		names := make([]string, 0, len(active))
		for k := range active {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(&b, "  %s: %s\n", k, active[k])
		}
	}

	if monthly := e.GetSalesMonthly(f); len(monthly) > 0 {
		b.WriteString("\n=== MONTHLY SALES (sorted by period) ===\n")
		fmt.Fprintf(&b, "%-12s %14s %10s\n", "Period", "Premium", "Policies")
		b.WriteString(strings.Repeat("-", 38) + "\n")
		best, worst := monthly[0], monthly[0]
		for _, m := range monthly {
			fmt.Fprintf(&b, "%-12s %14.2f %10d\n", m.Period, m.Premium, m.Policies)
			if m.Premium > best.Premium {
				best = m
			}
			if m.Premium < worst.Premium {
				worst = m
			}
		}
		fmt.Fprintf(&b, "\n-> Highest premium month : %s (%.2f)\n", best.Period, best.Premium)
		fmt.Fprintf(&b, "-> Lowest  premium month : %s (%.2f)\n", worst.Period, worst.Premium)
	}

	if dealers := e.GetSalesDealers(f); len(dealers) > 0 {
		sorted := append([]metrics.DealerPerformance(nil), dealers...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Premium > sorted[j].Premium })
		b.WriteString("\n=== DEALER PERFORMANCE (top 15 by premium) ===\n")
		fmt.Fprintf(&b, "%-30s %14s %10s %12s\n", "Dealer", "Premium", "Policies", "Loss Ratio")
		b.WriteString(strings.Repeat("-", 68) + "\n")
		for i, d := range sorted {
			if i == 15 {
				break
			}
			fmt.Fprintf(&b, "%-30s %14.2f %10d %11.1f%%\n", d.Dealer, d.Premium, d.Policies, d.LossRatio)
		}
		fmt.Fprintf(&b, "\n-> Top dealer by premium : %s (%.2f)\n", sorted[0].Dealer, sorted[0].Premium)
	}

	if products := e.GetSalesProducts(f); len(products) > 0 {
		sorted := append([]metrics.ProductMix(nil), products...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Premium > sorted[j].Premium })
		b.WriteString("\n=== PRODUCT MIX ===\n")
		fmt.Fprintf(&b, "%-35s %14s %10s\n", "Product", "Premium", "Policies")
		b.WriteString(strings.Repeat("-", 61) + "\n")
		for _, p := range sorted {
			fmt.Fprintf(&b, "%-35s %14.2f %10d\n", p.Product, p.Premium, p.Count)
		}
	}

	if vehicles := e.GetSalesVehicles(f); len(vehicles) > 0 {
		b.WriteString("\n=== TOP VEHICLE MAKES ===\n")
		fmt.Fprintf(&b, "%-25s %10s %14s\n", "Make", "Policies", "Premium")
		b.WriteString(strings.Repeat("-", 51) + "\n")
		for i, v := range vehicles {
			if i == 15 {
				break
			}
			fmt.Fprintf(&b, "%-25s %10d %14.2f\n", v.Make, v.Count, v.Premium)
		}
	}

	if statuses := e.GetClaimsStatus(f); len(statuses) > 0 {
		b.WriteString("\n=== CLAIMS BY STATUS ===\n")
		fmt.Fprintf(&b, "%-15s %10s %16s\n", "Status", "Count", "Total Amount")
		b.WriteString(strings.Repeat("-", 43) + "\n")
		for _, s := range statuses {
			fmt.Fprintf(&b, "%-15s %10d %16.2f\n", s.Status, s.Count, s.TotalAmount)
		}
	}

	if trends := e.GetClaimsTrends(f); len(trends) > 0 {
		b.WriteString("\n=== MONTHLY CLAIMS TREND ===\n")
		fmt.Fprintf(&b, "%-12s %14s %16s\n", "Period", "Claims Count", "Total Amount")
		b.WriteString(strings.Repeat("-", 44) + "\n")
		peak := trends[0]
		for _, tr := range trends {
			fmt.Fprintf(&b, "%-12s %14d %16.2f\n", tr.Period, tr.Count, tr.TotalAmount)
			if tr.TotalAmount > peak.TotalAmount {
				peak = tr
			}
		}
		fmt.Fprintf(&b, "\n-> Highest claims month : %s (%.2f)\n", peak.Period, peak.TotalAmount)
	}

	opts := e.Store().GetFilterOptions()
	b.WriteString("\n=== AVAILABLE FILTER VALUES ===\n")
	fmt.Fprintf(&b, "Dealers        : %s\n", strings.Join(opts.Dealers, ", "))
	fmt.Fprintf(&b, "Products       : %s\n", strings.Join(opts.Products, ", "))
	fmt.Fprintf(&b, "Years          : %s\n", joinInts(opts.Years))
	fmt.Fprintf(&b, "Makes          : %s\n", strings.Join(capSlice(opts.Makes, 30), ", "))
	fmt.Fprintf(&b, "Claim Statuses : %s\n", strings.Join(opts.ClaimStatuses, ", "))
	if opts.MinDate != "" {
		fmt.Fprintf(&b, "Date Range     : %s to %s\n", opts.MinDate, opts.MaxDate)
	}

	return b.String()
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}

func capSlice(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
