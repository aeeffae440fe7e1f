/*
forecast.go - Loss-ratio trend forecasting

PURPOSE:
  Builds the monthly (premium, claims amount) series for the caller's filter
  set, fits an ordinary-least-squares line of loss ratio against a zero-based
  month index and extrapolates three calendar months ahead.

SERIES CONSTRUCTION:
  Sales months are the spine (left join): a month with sales but no claims
  contributes a zero claims amount; a month with claims but no sales does not
  appear. Loss ratio is zero when the month's premium is zero.

The regression is straight OLS on float64. No stats dependency exists in
this codebase and none is needed for a single straight-line fit.
*/
package metrics

import (
	"math"

	"github.com/clarity-bi/clarity/dataset"
)

// forecastHorizon is how many months ahead the forecast extends.
const forecastHorizon = 3

// minForecastPoints is the minimum monthly series length for a fit.
const minForecastPoints = 3

// ForecastPoint is one predicted month.
type ForecastPoint struct {
	Period             string  `json:"period"`
	PredictedLossRatio float64 `json:"predictedLossRatio"`
	Trend              string  `json:"trend"`
}

// Forecast is the fitted trend plus the 3-month projection.
type Forecast struct {
	HistoricalSlope float64         `json:"historicalSlope"`
	RSquared        float64         `json:"rSquared"`
	Points          []ForecastPoint `json:"forecast"`
}

// PredictLossRatio fits the loss-ratio trend for a filter set. Returns
// ErrInsufficientData when fewer than three monthly points exist.
func (e *Engine) PredictLossRatio(f dataset.Filter) (Forecast, error) {
	if !e.store.Loaded() {
		return Forecast{}, dataset.ErrNoDataLoaded
	}

	sales := f.Apply(e.store.Sales())
	claims := f.Apply(e.store.Claims())
	if !hasMonthColumns(sales) {
		return Forecast{}, dataset.ErrInsufficientData
	}

	premiumCol := sales.Schema.Col(dataset.FieldGrossPremium)
	amountCol := claims.Schema.Col(dataset.FieldAuthAmount)

	claimTotals := make(map[monthKey]float64)
	if hasMonthColumns(claims) {
		keys, grouped := groupByMonth(claims)
		for _, k := range keys {
			claimTotals[k] = rowsDecimalSum(grouped[k], amountCol).InexactFloat64()
		}
	}

	keys, grouped := groupByMonth(sales)
	if len(keys) < minForecastPoints {
		return Forecast{}, dataset.ErrInsufficientData
	}

	lossRatios := make([]float64, len(keys))
	for i, k := range keys {
		premium := rowsDecimalSum(grouped[k], premiumCol).InexactFloat64()
		if premium > 0 {
			lossRatios[i] = claimTotals[k] / premium * 100
		}
	}

	slope, intercept, r2 := linearFit(lossRatios)

	last := keys[len(keys)-1]
	year, month := last.Year, last.Month
	points := make([]ForecastPoint, 0, forecastHorizon)
	for i := 1; i <= forecastHorizon; i++ {
		month++
		if month > 12 {
			month = 1
			year++
		}
		predicted := slope*float64(len(keys)-1+i) + intercept
		if predicted < 0 {
			predicted = 0
		}
		trend := "Decreasing"
		if slope > 0 {
			trend = "Increasing"
		}
		points = append(points, ForecastPoint{
			Period:             monthKey{Year: year, Month: month}.period(),
			PredictedLossRatio: round(predicted, 2),
			Trend:              trend,
		})
	}

	return Forecast{
		HistoricalSlope: round(slope, 4),
		RSquared:        round(r2, 4),
		Points:          points,
	}, nil
}

// linearFit runs OLS of y against its zero-based index. Returns slope,
// intercept and the coefficient of determination. A flat series reports
// slope 0 and R² 0.
func linearFit(y []float64) (slope, intercept, r2 float64) {
	n := float64(len(y))
	var sumX, sumY, sumXX, sumXY, sumYY float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXX += x * x
		sumXY += x * v
		sumYY += v * v
	}

	varX := sumXX - sumX*sumX/n
	varY := sumYY - sumY*sumY/n
	covXY := sumXY - sumX*sumY/n
	if varX == 0 {
		return 0, sumY / n, 0
	}

	slope = covXY / varX
	intercept = (sumY - slope*sumX) / n
	if varY == 0 {
		return slope, intercept, 0
	}
	r := covXY / math.Sqrt(varX*varY)
	return slope, intercept, r * r
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
