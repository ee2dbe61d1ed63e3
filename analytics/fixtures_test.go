package analytics_test

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/agent-analytics/analytics"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func yv(values map[int]float64) analytics.YearValues {
	out := make(analytics.YearValues, len(values))
	for year, v := range values {
		out[year] = decimal.NewFromFloat(v)
	}
	return out
}

// newAgent builds a roster row with empty metric maps; tests fill in what
// they need.
func newAgent(id int64, name, region string, joinYear int) analytics.AgentRecord {
	a := analytics.AgentRecord{
		ID:          analytics.AgentID(id),
		Name:        name,
		Region:      region,
		JoinYear:    joinYear,
		FYP:         analytics.YearValues{},
		APE:         analytics.YearValues{},
		FYC:         analytics.YearValues{},
		Income:      analytics.YearValues{},
		MDQualified: map[int]bool{},
	}
	if joinYear > 0 {
		a.JoinDate = fmt.Sprintf("%d-01-15", joinYear)
	}
	return a
}

func snapshotOf(agents ...analytics.AgentRecord) *analytics.Snapshot {
	return analytics.BuildSnapshot(nil, analytics.SourceTables{Agents: agents})
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// =============================================================================
// DECIMAL ASSERTIONS
// =============================================================================

func assertDec(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "%s: want %s, got %s", msg, want, got)
}

func assertRatio(t *testing.T, want string, got *decimal.Decimal, msg string) {
	t.Helper()
	require.NotNil(t, got, msg)
	assert.True(t, got.Equal(dec(want)), "%s: want %s, got %s", msg, want, got)
}
