/*
efficiency.go - Year-over-year efficiency trend aggregator

PURPOSE:
  Tracks per-head productivity across the known years: for a chosen metric
  and grouping dimension, value[year] = metric summed over the agents active
  (FYP > 0) that year, divided by the active count.

SEMANTICS:
  - yoy_change = (value[year] - value[year-1]) / value[year-1], taken
    strictly against the immediate prior year: nil when that year is
    outside the known range, had no active agents, or a zero value
  - A year with no active agents still emits a point (count 0, value 0,
    yoy nil) so trend lines render every year
*/
package analytics

import "github.com/shopspring/decimal"

// Metric selects the efficiency numerator.
type Metric string

const (
	MetricAvgFYP    Metric = "avg_fyp"
	MetricAvgAPE    Metric = "avg_ape"
	MetricAvgFYC    Metric = "avg_fyc"
	MetricAvgMargin Metric = "avg_margin"
)

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricAvgFYP, MetricAvgAPE, MetricAvgFYC, MetricAvgMargin:
		return true
	}
	return false
}

// EfficiencyRequest selects scope, grouping and metric for a trend analysis.
// Year pins tier/MD evaluation, as in RetentionRequest; 0 means DefaultYear.
type EfficiencyRequest struct {
	Filter  Filter
	GroupBy Dimension
	Metric  Metric
	Year    int
}

// TrendPoint is one year of a group's trend.
type TrendPoint struct {
	Year      int
	Count     int
	Value     decimal.Decimal
	YoYChange *decimal.Decimal
}

// EfficiencyGroup is the trend for one group value.
type EfficiencyGroup struct {
	GroupName string
	Trend     []TrendPoint
}

// EfficiencyResult is the trend aggregator output.
type EfficiencyResult struct {
	Groups []EfficiencyGroup
	Years  []int
	Metric Metric
}

// AggregateEfficiency computes the per-year, per-group efficiency trend.
func AggregateEfficiency(s *Snapshot, req EfficiencyRequest) (*EfficiencyResult, error) {
	if err := CheckDimension(req.GroupBy); err != nil {
		return nil, err
	}
	if !req.Metric.Valid() {
		return nil, ErrUnknownMetric
	}
	year := req.Year
	if year == 0 {
		year = DefaultYear
	}
	if !KnownYear(year) {
		return nil, ErrUnknownYear
	}

	agents := s.filtered(&req.Filter, year)
	groups := groupAgents(agents, req.GroupBy, year)

	res := &EfficiencyResult{
		Years:  append([]int{}, Years...),
		Metric: req.Metric,
	}
	for _, name := range groups.order {
		res.Groups = append(res.Groups, EfficiencyGroup{
			GroupName: name,
			Trend:     groupTrend(groups.members[name], req.Metric),
		})
	}
	return res, nil
}

// groupTrend walks the known years, averaging the metric over each year's
// active agents.
func groupTrend(agents []*AgentRecord, metric Metric) []TrendPoint {
	type yearValue struct {
		count int
		value decimal.Decimal
	}
	values := make(map[int]yearValue, len(Years))

	for _, year := range Years {
		count := 0
		total := decimal.Zero
		for _, a := range agents {
			if !a.Active(year) {
				continue
			}
			count++
			total = total.Add(metricValue(a, metric, year))
		}
		v := yearValue{count: count, value: decimal.Zero}
		if count > 0 {
			v.value = total.Div(decimal.NewFromInt(int64(count)))
		}
		values[year] = v
	}

	trend := make([]TrendPoint, 0, len(Years))
	for _, year := range Years {
		v := values[year]
		pt := TrendPoint{Year: year, Count: v.count, Value: round2(v.value)}

		if v.count > 0 && KnownYear(year-1) {
			prev := values[year-1]
			if prev.count > 0 && !prev.value.IsZero() {
				pt.YoYChange = ratio4(v.value.Sub(prev.value), prev.value)
			}
		}
		trend = append(trend, pt)
	}
	return trend
}

func metricValue(a *AgentRecord, metric Metric, year int) decimal.Decimal {
	switch metric {
	case MetricAvgAPE:
		return a.APE.Get(year)
	case MetricAvgFYC:
		return a.FYC.Get(year)
	case MetricAvgMargin:
		return a.Margin(year)
	default:
		return a.FYP.Get(year)
	}
}
