package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/agent-analytics/analytics"
)

func TestTierOf_BoundariesLowerInclusive(t *testing.T) {
	// GIVEN: Amounts at and around every band boundary
	// WHEN: Classifying each amount into a tier
	// THEN: Boundaries are lower-inclusive (exactly 50,000 is the second band)

	cases := []struct {
		amount string
		label  string
	}{
		{"-100", "0-5w"},
		{"0", "0-5w"},
		{"49999.99", "0-5w"},
		{"50000", "5-10w"},
		{"99999.99", "5-10w"},
		{"100000", "10-30w"},
		{"299999.99", "10-30w"},
		{"300000", "30-50w"},
		{"499999.99", "30-50w"},
		{"500000", "50w+"},
		{"1250000", "50w+"},
	}
	for _, tc := range cases {
		got := analytics.TierOf(dec(tc.amount)).Label()
		assert.Equal(t, tc.label, got, "amount %s", tc.amount)
	}
}

func TestTierBand_OutOfRangeLabelsAsUnknown(t *testing.T) {
	assert.Equal(t, analytics.UnknownGroup, analytics.TierBand(-1).Label())
	assert.Equal(t, analytics.UnknownGroup, analytics.TierBand(99).Label())
}

func TestTierLabels_LowToHigh(t *testing.T) {
	assert.Equal(t,
		[]string{"0-5w", "5-10w", "10-30w", "30-50w", "50w+"},
		analytics.TierLabels())
}
