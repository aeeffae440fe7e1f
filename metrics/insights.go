package metrics

import (
	"fmt"

	"github.com/clarity-bi/clarity/dataset"
)

// Insight is one rule-driven observation over the filtered portfolio.
type Insight struct {
	Type        string `json:"type"` // danger, warning, info, success, forecast
	Title       string `json:"title"`
	Description string `json:"description"`
	Metric      string `json:"metric"`
	Trend       string `json:"trend"` // up, down, neutral
}

// Loss-ratio and claim-rate alert thresholds, in percent.
const (
	lossRatioDanger  = 80
	lossRatioWarning = 60
	claimRateWarning = 20
)

// GetInsights evaluates the alerting rules against the KPI summary and the
// forecaster. The forecast insight is skipped silently when the series is
// too short.
func (e *Engine) GetInsights(f dataset.Filter) []Insight {
	if !e.store.Loaded() {
		return nil
	}

	summary := e.GetSummary(f)
	var out []Insight

	switch {
	case summary.LossRatio > lossRatioDanger:
		out = append(out, Insight{
			Type:        "danger",
			Title:       "High Loss Ratio Alert",
			Description: "Loss Ratio exceeds 80% threshold — immediate attention required.",
			Metric:      fmt.Sprintf("%.1f%%", summary.LossRatio),
			Trend:       "down",
		})
	case summary.LossRatio > lossRatioWarning:
		out = append(out, Insight{
			Type:        "warning",
			Title:       "Elevated Loss Ratio",
			Description: "Loss Ratio is above the 60% caution level. Monitor closely.",
			Metric:      fmt.Sprintf("%.1f%%", summary.LossRatio),
			Trend:       "down",
		})
	default:
		out = append(out, Insight{
			Type:        "success",
			Title:       "Healthy Loss Ratio",
			Description: "Loss Ratio is within acceptable range — strong portfolio health.",
			Metric:      fmt.Sprintf("%.1f%%", summary.LossRatio),
			Trend:       "up",
		})
	}

	if summary.ClaimRate > claimRateWarning {
		out = append(out, Insight{
			Type:        "warning",
			Title:       "High Claim Rate",
			Description: "More than 1 in 5 policies has a claim. Review underwriting criteria.",
			Metric:      fmt.Sprintf("%.1f%%", summary.ClaimRate),
			Trend:       "down",
		})
	} else if summary.ClaimRate > 0 {
		out = append(out, Insight{
			Type:        "info",
			Title:       "Claim Rate",
			Description: fmt.Sprintf("%d claims recorded across the filtered period.", summary.TotalClaims),
			Metric:      fmt.Sprintf("%.1f%%", summary.ClaimRate),
			Trend:       "neutral",
		})
	}

	if forecast, err := e.PredictLossRatio(f); err == nil {
		direction, trend, sign := "decreasing", "up", ""
		if forecast.HistoricalSlope > 0 {
			direction, trend, sign = "increasing", "down", "+"
		}
		out = append(out, Insight{
			Type:        "forecast",
			Title:       "Loss Ratio Forecast",
			Description: fmt.Sprintf("Historical trend shows loss ratio is %s. Plan accordingly.", direction),
			Metric:      fmt.Sprintf("%s%.1f%% /mo", sign, forecast.HistoricalSlope),
			Trend:       trend,
		})
	}

	return out
}
