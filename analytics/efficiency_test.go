package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/agent-analytics/analytics"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// trendSnapshot builds one region with:
//
//	agent 1  FYP 2023: 100   2024: 300   (FYC 2024: 30, income 2024: 10)
//	agent 2  FYP 2023: 300
//
// 2022 and 2025 have no active agents.
func trendSnapshot() *analytics.Snapshot {
	a1 := newAgent(1, "Alice", "北京", 2022)
	a1.FYP = yv(map[int]float64{2023: 100, 2024: 300})
	a1.FYC = yv(map[int]float64{2024: 30})
	a1.Income = yv(map[int]float64{2024: 10})

	a2 := newAgent(2, "Bob", "北京", 2022)
	a2.FYP = yv(map[int]float64{2023: 300})

	return snapshotOf(a1, a2)
}

// =============================================================================
// TREND POINTS
// =============================================================================

func TestAggregateEfficiency_AvgFYPTrend(t *testing.T) {
	// GIVEN: The two-agent fixture
	// WHEN: Computing the avg_fyp trend
	// THEN: Each year averages the metric over that year's active agents,
	//       and every covered year emits a point even with nobody active

	res, err := analytics.AggregateEfficiency(trendSnapshot(), analytics.EfficiencyRequest{
		GroupBy: analytics.DimRegion,
		Metric:  analytics.MetricAvgFYP,
	})
	require.NoError(t, err)

	assert.Equal(t, analytics.MetricAvgFYP, res.Metric)
	assert.Equal(t, []int{2022, 2023, 2024, 2025}, res.Years)
	require.Len(t, res.Groups, 1)

	trend := res.Groups[0].Trend
	require.Len(t, trend, 4)

	assert.Equal(t, 0, trend[0].Count, "2022: nobody active")
	assertDec(t, "0", trend[0].Value, "2022 value")

	assert.Equal(t, 2, trend[1].Count, "2023: both active")
	assertDec(t, "200", trend[1].Value, "(100+300)/2")

	assert.Equal(t, 1, trend[2].Count, "2024: only agent 1")
	assertDec(t, "300", trend[2].Value, "2024 value")

	assert.Equal(t, 0, trend[3].Count, "2025: nobody active")
	assertDec(t, "0", trend[3].Value, "2025 value")
}

func TestAggregateEfficiency_YoYAgainstImmediatePriorOnly(t *testing.T) {
	// GIVEN: The two-agent fixture
	// WHEN: Computing the avg_fyp trend
	// THEN: yoy is nil for the first year and for years whose immediate
	//       prior had no active agents; otherwise it is the relative change

	res, err := analytics.AggregateEfficiency(trendSnapshot(), analytics.EfficiencyRequest{
		GroupBy: analytics.DimRegion,
		Metric:  analytics.MetricAvgFYP,
	})
	require.NoError(t, err)

	trend := res.Groups[0].Trend
	assert.Nil(t, trend[0].YoYChange, "2022: no prior year in range")
	assert.Nil(t, trend[1].YoYChange, "2023: 2022 had no active agents")
	assertRatio(t, "0.5", trend[2].YoYChange, "(300-200)/200")
	assert.Nil(t, trend[3].YoYChange, "2025: nobody active, no comparison")
}

func TestAggregateEfficiency_ZeroPriorValueYieldsNilYoY(t *testing.T) {
	// GIVEN: An agent active in 2023 with zero FYC, active again in 2024
	// WHEN: Computing the avg_fyc trend
	// THEN: 2024 has no yoy; a zero prior value leaves the change undefined

	a := newAgent(1, "Alice", "北京", 2022)
	a.FYP = yv(map[int]float64{2023: 100, 2024: 100})
	a.FYC = yv(map[int]float64{2024: 50})

	res, err := analytics.AggregateEfficiency(snapshotOf(a), analytics.EfficiencyRequest{
		GroupBy: analytics.DimRegion,
		Metric:  analytics.MetricAvgFYC,
	})
	require.NoError(t, err)

	trend := res.Groups[0].Trend
	assertDec(t, "0", trend[1].Value, "2023 avg FYC")
	assertDec(t, "50", trend[2].Value, "2024 avg FYC")
	assert.Nil(t, trend[2].YoYChange)
}

func TestAggregateEfficiency_AvgMarginMetric(t *testing.T) {
	// GIVEN: Agent 1 with FYC 30 and income 10 in 2024
	// WHEN: Computing the avg_margin trend
	// THEN: The metric is the full margin, not raw FYC

	res, err := analytics.AggregateEfficiency(trendSnapshot(), analytics.EfficiencyRequest{
		GroupBy: analytics.DimRegion,
		Metric:  analytics.MetricAvgMargin,
	})
	require.NoError(t, err)

	trend := res.Groups[0].Trend
	assertDec(t, "20", trend[2].Value, "2024: (30-10)/1")
}

// =============================================================================
// REQUEST VALIDATION
// =============================================================================

func TestAggregateEfficiency_RejectsUnknownMetric(t *testing.T) {
	_, err := analytics.AggregateEfficiency(trendSnapshot(), analytics.EfficiencyRequest{
		GroupBy: analytics.DimRegion,
		Metric:  "avg_commission",
	})
	assert.ErrorIs(t, err, analytics.ErrUnknownMetric)
}

func TestAggregateEfficiency_RejectsUnknownDimension(t *testing.T) {
	_, err := analytics.AggregateEfficiency(trendSnapshot(), analytics.EfficiencyRequest{
		GroupBy: "shoe_size",
		Metric:  analytics.MetricAvgFYP,
	})
	assert.ErrorIs(t, err, analytics.ErrUnknownDimension)
}
