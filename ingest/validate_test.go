package ingest_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/agent-analytics/ingest"
)

// =============================================================================
// CLEAN PAYLOADS
// =============================================================================

func TestValidate_CleanPayloadPasses(t *testing.T) {
	err := ingest.Validate(ingest.Rows{
		Agents: []ingest.AgentRow{{
			AgentID:  1,
			Name:     "张伟",
			JoinDate: "2022-03-01",
			Region:   "北京",
			FYP:      map[int]float64{2024: 60000},
		}},
		Points: []ingest.PointsRow{
			{AgentID: 1, Year: 2024, Type: "accrued", Amount: 100},
			{ExternalID: "EXT-1", Year: 2024, Type: "cash-out", Amount: 40},
		},
		SocialSecurity: []ingest.SocialSecurityRow{
			{Name: "张伟", Region: "北京", ServiceMonth: "2024-03", CompanyTotal: 1200.5},
			{Name: "张伟", Region: "北京", ServiceMonth: "202404", CompanyTotal: 800},
		},
		Mappings: []ingest.MappingRow{{ExternalID: "EXT-1", UID: 1}},
	})
	assert.NoError(t, err)
}

func TestValidate_ExternallyKeyedAgentRowAccepted(t *testing.T) {
	// GIVEN: Roster rows without a numeric ID
	// WHEN: Validating
	// THEN: A row carrying an external ID passes; a row with neither is
	//       rejected

	err := ingest.Validate(ingest.Rows{
		Agents: []ingest.AgentRow{{ExternalID: "EXT-9", Name: "李娜"}},
	})
	assert.NoError(t, err)

	err = ingest.Validate(ingest.Rows{
		Agents: []ingest.AgentRow{{Name: "no key at all"}},
	})
	var verr *ingest.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 1)
	assert.Equal(t, "agent_id", verr.Problems[0].Column)
	assert.Contains(t, verr.Problems[0].Reason, "external_id")
}

// =============================================================================
// PROBLEM COLLECTION
// =============================================================================

func TestValidate_CollectsEveryProblemBeforeGivingUp(t *testing.T) {
	// GIVEN: A payload with one problem in every sheet
	// WHEN: Validating
	// THEN: All problems come back in one error, sorted by sheet then row,
	//       so a single upload round-trip surfaces the complete fix list

	err := ingest.Validate(ingest.Rows{
		Agents: []ingest.AgentRow{
			{AgentID: 0, Name: "no id"},
			{AgentID: 2, JoinDate: "March 1st"},
		},
		Points: []ingest.PointsRow{
			{AgentID: 1, Year: 2019, Type: "gifted", Amount: 10},
		},
		SocialSecurity: []ingest.SocialSecurityRow{
			{Name: "", ServiceMonth: "2024/03"},
		},
		Mappings: []ingest.MappingRow{
			{ExternalID: "", UID: 0},
		},
	})

	var verr *ingest.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 8)

	var sheets []string
	for _, p := range verr.Problems {
		sheets = append(sheets, p.Sheet)
	}
	assert.Equal(t, []string{
		ingest.SheetAgents, ingest.SheetAgents,
		ingest.SheetMappings, ingest.SheetMappings,
		ingest.SheetPoints, ingest.SheetPoints,
		ingest.SheetSocialSecurity, ingest.SheetSocialSecurity,
	}, sheets, "problems sorted by sheet, then row")

	assert.Equal(t, "agent_id", verr.Problems[0].Column)
	assert.Equal(t, 0, verr.Problems[0].Row)
	assert.Equal(t, "join_date", verr.Problems[1].Column)
}

func TestValidate_DuplicateAgentID(t *testing.T) {
	err := ingest.Validate(ingest.Rows{
		Agents: []ingest.AgentRow{
			{AgentID: 7, Name: "first"},
			{AgentID: 7, Name: "second"},
		},
	})

	var verr *ingest.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 1)
	assert.Equal(t, 1, verr.Problems[0].Row, "the second occurrence is the duplicate")
	assert.Equal(t, "agent_id", verr.Problems[0].Column)
	assert.Contains(t, verr.Problems[0].Reason, "duplicate of row 0")
}

func TestValidate_UnknownYearInMetricMap(t *testing.T) {
	err := ingest.Validate(ingest.Rows{
		Agents: []ingest.AgentRow{{
			AgentID: 1,
			FYP:     map[int]float64{2019: 100},
		}},
	})

	var verr *ingest.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 1)
	assert.Equal(t, "fyp", verr.Problems[0].Column)
	assert.Contains(t, verr.Problems[0].Reason, "2019")
}

func TestValidate_NonFiniteAmountRejected(t *testing.T) {
	err := ingest.Validate(ingest.Rows{
		Points: []ingest.PointsRow{
			{AgentID: 1, Year: 2024, Type: "accrued", Amount: math.NaN()},
		},
	})

	var verr *ingest.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Problems, 1)
	assert.Equal(t, "amount", verr.Problems[0].Column)
}

func TestValidate_ServiceMonthFormats(t *testing.T) {
	cases := []struct {
		month string
		ok    bool
	}{
		{"2024-03", true},
		{"202403", true},
		{"2024/03", false},
		{"2024-3", false},
		{"24-03", false},
		{"", false},
	}
	for _, tc := range cases {
		err := ingest.Validate(ingest.Rows{
			SocialSecurity: []ingest.SocialSecurityRow{
				{Name: "张伟", ServiceMonth: tc.month},
			},
		})
		if tc.ok {
			assert.NoError(t, err, "month %q", tc.month)
		} else {
			assert.Error(t, err, "month %q", tc.month)
		}
	}
}
