/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model (decimal.Decimal, pointer-laden filters) from
  the external API contract:
  - Monetary fields serialize as plain numbers for the frontend
  - Undefined ratios serialize as null, never 0
  - Field renaming never ripples into the engine

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Analysis:
    MarginAnalysisRequest/Response, RetentionAnalysisRequest/Response,
    EfficiencyTrendRequest/Response, GroupStatsDTO

  Drill-down:
    AgentDetailDTO, GroupAgentsRequest/Response

  Overview:
    SummaryDTO, FiltersDTO

VALIDATION:
  Validation is done in handlers and in the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - analytics/: The engine types these project
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/agent-analytics/analytics"
)

// =============================================================================
// FILTER
// =============================================================================

// FilterDTO carries the optional equality constraints of an analysis
// request. Absent keys mean "no constraint".
type FilterDTO struct {
	Region        *string `json:"region,omitempty"`
	JoinYear      *int    `json:"join_year,omitempty"`
	IsPeer        *string `json:"is_peer,omitempty"`
	PersonalLevel *string `json:"personal_level,omitempty"`
	ManagerLevel  *string `json:"manager_level,omitempty"`
	DirectorLevel *string `json:"director_level,omitempty"`
	Education     *string `json:"education,omitempty"`
	FYPTier       *string `json:"fyp_tier,omitempty"`
	APETier       *string `json:"ape_tier,omitempty"`
	MDQualified   *bool   `json:"md_qualified,omitempty"`
}

func (f FilterDTO) toFilter() analytics.Filter {
	return analytics.Filter{
		Region:        f.Region,
		JoinYear:      f.JoinYear,
		IsPeer:        f.IsPeer,
		PersonalLevel: f.PersonalLevel,
		ManagerLevel:  f.ManagerLevel,
		DirectorLevel: f.DirectorLevel,
		Education:     f.Education,
		FYPTier:       f.FYPTier,
		APETier:       f.APETier,
		MDQualified:   f.MDQualified,
	}
}

// =============================================================================
// MARGIN ANALYSIS
// =============================================================================

// MarginAnalysisRequest is the POST /api/margin-analysis body.
type MarginAnalysisRequest struct {
	Filters      FilterDTO `json:"filters"`
	GroupBy      string    `json:"group_by"`
	CrossGroupBy string    `json:"cross_group_by,omitempty"`
	Year         int       `json:"year"`
	Compare      bool      `json:"compare,omitempty"`
}

// GroupStatsDTO is the statistics block for one group, cell or summary.
type GroupStatsDTO struct {
	GroupName           string   `json:"group_name"`
	AgentCount          int      `json:"agent_count"`
	TotalFYC            float64  `json:"total_fyc"`
	TotalIncome         float64  `json:"total_income"`
	TotalPoints         float64  `json:"total_points"`
	TotalSocialSecurity float64  `json:"total_social_security"`
	TotalMargin         float64  `json:"total_margin"`
	MarginRate          *float64 `json:"margin_rate"` // null when no FYC
	AvgFYP              float64  `json:"avg_fyp"`
	AvgAPE              float64  `json:"avg_ape"`
	AvgFYC              float64  `json:"avg_fyc"`
	AvgMargin           float64  `json:"avg_margin"`
}

// MarginRowDTO is one row of a cross-grouping matrix.
type MarginRowDTO struct {
	RowName string          `json:"row_name"`
	Cells   []GroupStatsDTO `json:"cells"`
}

// MarginComparisonDTO carries relative year-over-year deltas of the
// summary scope. Null fields mean the delta is undefined.
type MarginComparisonDTO struct {
	Year         int      `json:"year"`
	PriorYear    int      `json:"prior_year"`
	FYCChange    *float64 `json:"fyc_change"`
	MarginChange *float64 `json:"margin_change"`
	RateChange   *float64 `json:"rate_change"`
	CountChange  *float64 `json:"count_change"`
}

// MarginAnalysisResponse is the margin analysis result. Groups is set for
// single-dimension requests, Columns/Matrix for cross requests.
type MarginAnalysisResponse struct {
	Year       int                  `json:"year"`
	Groups     []GroupStatsDTO      `json:"groups,omitempty"`
	Columns    []string             `json:"columns,omitempty"`
	Matrix     []MarginRowDTO       `json:"matrix,omitempty"`
	Summary    GroupStatsDTO        `json:"summary"`
	Comparison *MarginComparisonDTO `json:"comparison,omitempty"`
}

// =============================================================================
// RETENTION ANALYSIS
// =============================================================================

// RetentionAnalysisRequest is the POST /api/retention-analysis body.
// Year pins tier/MD filter evaluation; 0 means the default year.
type RetentionAnalysisRequest struct {
	Filters FilterDTO `json:"filters"`
	GroupBy string    `json:"group_by"`
	Year    int       `json:"year,omitempty"`
}

// RetentionPointDTO is one later-year measurement of a cohort.
type RetentionPointDTO struct {
	Year           int      `json:"year"`
	YearsAfterJoin int      `json:"years_after_join"`
	Count          int      `json:"count"`
	FYP            float64  `json:"fyp"`
	CountRetention *float64 `json:"count_retention"`
	FYPRetention   *float64 `json:"fyp_retention"` // null when base FYP is 0
}

// CohortDTO is one baseline cohort inside a group.
type CohortDTO struct {
	JoinYear  int                 `json:"join_year"`
	BaseYear  int                 `json:"base_year"`
	BaseCount int                 `json:"base_count"`
	BaseFYP   float64             `json:"base_fyp"`
	Years     []RetentionPointDTO `json:"years"`
}

// RetentionGroupDTO is the cohort list for one group value.
type RetentionGroupDTO struct {
	GroupName string      `json:"group_name"`
	Cohorts   []CohortDTO `json:"cohorts"`
}

// RetentionAnalysisResponse is the retention engine output.
type RetentionAnalysisResponse struct {
	Groups  []RetentionGroupDTO `json:"groups"`
	Offsets []int               `json:"offsets"`
}

// =============================================================================
// EFFICIENCY TREND
// =============================================================================

// EfficiencyTrendRequest is the POST /api/efficiency-trend body.
type EfficiencyTrendRequest struct {
	Filters FilterDTO `json:"filters"`
	GroupBy string    `json:"group_by"`
	Metric  string    `json:"metric"`
	Year    int       `json:"year,omitempty"`
}

// TrendPointDTO is one year of a group's trend.
type TrendPointDTO struct {
	Year      int      `json:"year"`
	Count     int      `json:"count"`
	Value     float64  `json:"value"`
	YoYChange *float64 `json:"yoy_change"` // null when undefined
}

// EfficiencyGroupDTO is the trend for one group value.
type EfficiencyGroupDTO struct {
	GroupName string          `json:"group_name"`
	Trend     []TrendPointDTO `json:"trend"`
}

// EfficiencyTrendResponse is the trend aggregator output.
type EfficiencyTrendResponse struct {
	Groups []EfficiencyGroupDTO `json:"groups"`
	Years  []int                `json:"years"`
	Metric string               `json:"metric"`
}

// =============================================================================
// OVERVIEW
// =============================================================================

// YearActiveDTO is one year's active-agent count.
type YearActiveDTO struct {
	Year   int `json:"year"`
	Active int `json:"active"`
}

// SummaryDTO is the GET /api/summary response.
type SummaryDTO struct {
	SnapshotVersion    string          `json:"snapshot_version"`
	IngestedAt         string          `json:"ingested_at"`
	TotalAgents        int             `json:"total_agents"`
	ActiveByYear       []YearActiveDTO `json:"active_by_year"`
	SocialSecurityRows int             `json:"social_security_rows"`
	MatchedRows        int             `json:"matched_rows"`
	MatchRate          *float64        `json:"match_rate"` // null when no rows
	PointsRows         int             `json:"points_rows"`
}

// FiltersDTO is the GET /api/filters response: the distinct values each
// filter key can take against the current snapshot.
type FiltersDTO struct {
	Regions        []string `json:"regions"`
	JoinYears      []int    `json:"join_years"`
	PersonalLevels []string `json:"personal_levels"`
	ManagerLevels  []string `json:"manager_levels"`
	DirectorLevels []string `json:"director_levels"`
	Educations     []string `json:"educations"`
	IsPeer         []string `json:"is_peer"`
	Tiers          []string `json:"tiers"`
	Years          []int    `json:"years"`
	Dimensions     []string `json:"dimensions"`
	Metrics        []string `json:"metrics"`
}

// =============================================================================
// DRILL-DOWN
// =============================================================================

// AgentYearDTO is one year of an agent's cost breakdown.
type AgentYearDTO struct {
	Year           int     `json:"year"`
	FYP            float64 `json:"fyp"`
	APE            float64 `json:"ape"`
	FYC            float64 `json:"fyc"`
	Income         float64 `json:"income"`
	PointsCost     float64 `json:"points_cost"`
	SocialSecurity float64 `json:"social_security"`
	Margin         float64 `json:"margin"`
	Active         bool    `json:"active"`
	MDQualified    bool    `json:"md_qualified"`
}

// AgentDetailDTO is the GET /api/agent-detail/{id} response.
type AgentDetailDTO struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	JoinDate      string         `json:"join_date,omitempty"`
	JoinYear      int            `json:"join_year,omitempty"`
	Region        string         `json:"region,omitempty"`
	Education     string         `json:"education,omitempty"`
	IsPeer        string         `json:"is_peer,omitempty"`
	PersonalLevel string         `json:"personal_level,omitempty"`
	ManagerLevel  string         `json:"manager_level,omitempty"`
	DirectorLevel string         `json:"director_level,omitempty"`
	Years         []AgentYearDTO `json:"years"`
}

// GroupAgentsRequest is the POST /api/group-agents body: which agents make
// up one group value of a grouped analysis.
type GroupAgentsRequest struct {
	Filters    FilterDTO `json:"filters"`
	GroupBy    string    `json:"group_by"`
	GroupValue string    `json:"group_value"`
	Year       int       `json:"year,omitempty"`
}

// GroupAgentDTO is one agent row of a drill-down listing.
type GroupAgentDTO struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Region   string  `json:"region,omitempty"`
	JoinYear int     `json:"join_year,omitempty"`
	FYP      float64 `json:"fyp"`
	FYC      float64 `json:"fyc"`
	Margin   float64 `json:"margin"`
}

// GroupAgentsResponse lists the agents behind one group value.
type GroupAgentsResponse struct {
	GroupBy    string          `json:"group_by"`
	GroupValue string          `json:"group_value"`
	Year       int             `json:"year"`
	AgentCount int             `json:"agent_count"`
	Agents     []GroupAgentDTO `json:"agents"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response. Details is populated with
// the per-row problem list for ingestion validation failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func floatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func toGroupStatsDTO(g analytics.GroupStats) GroupStatsDTO {
	return GroupStatsDTO{
		GroupName:           g.GroupName,
		AgentCount:          g.AgentCount,
		TotalFYC:            g.TotalFYC.InexactFloat64(),
		TotalIncome:         g.TotalIncome.InexactFloat64(),
		TotalPoints:         g.TotalPoints.InexactFloat64(),
		TotalSocialSecurity: g.TotalSocialSecurity.InexactFloat64(),
		TotalMargin:         g.TotalMargin.InexactFloat64(),
		MarginRate:          floatPtr(g.MarginRate),
		AvgFYP:              g.AvgFYP.InexactFloat64(),
		AvgAPE:              g.AvgAPE.InexactFloat64(),
		AvgFYC:              g.AvgFYC.InexactFloat64(),
		AvgMargin:           g.AvgMargin.InexactFloat64(),
	}
}

func toMarginResponse(res *analytics.MarginResult, cmp *analytics.MarginComparison) MarginAnalysisResponse {
	out := MarginAnalysisResponse{
		Year:    res.Year,
		Columns: res.Columns,
		Summary: toGroupStatsDTO(res.Summary),
	}
	for _, g := range res.Groups {
		out.Groups = append(out.Groups, toGroupStatsDTO(g))
	}
	for _, row := range res.Matrix {
		dto := MarginRowDTO{RowName: row.RowName, Cells: make([]GroupStatsDTO, 0, len(row.Cells))}
		for _, cell := range row.Cells {
			dto.Cells = append(dto.Cells, toGroupStatsDTO(cell))
		}
		out.Matrix = append(out.Matrix, dto)
	}
	if cmp != nil {
		out.Comparison = &MarginComparisonDTO{
			Year:         cmp.Year,
			PriorYear:    cmp.PriorYear,
			FYCChange:    floatPtr(cmp.FYCChange),
			MarginChange: floatPtr(cmp.MarginChange),
			RateChange:   floatPtr(cmp.RateChange),
			CountChange:  floatPtr(cmp.CountChange),
		}
	}
	return out
}

func toRetentionResponse(res *analytics.RetentionResult) RetentionAnalysisResponse {
	out := RetentionAnalysisResponse{Offsets: res.Offsets}
	for _, g := range res.Groups {
		dto := RetentionGroupDTO{GroupName: g.GroupName}
		for _, c := range g.Cohorts {
			cd := CohortDTO{
				JoinYear:  c.JoinYear,
				BaseYear:  c.BaseYear,
				BaseCount: c.BaseCount,
				BaseFYP:   c.BaseFYP.InexactFloat64(),
			}
			for _, p := range c.Years {
				cd.Years = append(cd.Years, RetentionPointDTO{
					Year:           p.Year,
					YearsAfterJoin: p.YearsAfterJoin,
					Count:          p.Count,
					FYP:            p.FYP.InexactFloat64(),
					CountRetention: floatPtr(p.CountRetention),
					FYPRetention:   floatPtr(p.FYPRetention),
				})
			}
			dto.Cohorts = append(dto.Cohorts, cd)
		}
		out.Groups = append(out.Groups, dto)
	}
	return out
}

func toEfficiencyResponse(res *analytics.EfficiencyResult) EfficiencyTrendResponse {
	out := EfficiencyTrendResponse{Years: res.Years, Metric: string(res.Metric)}
	for _, g := range res.Groups {
		dto := EfficiencyGroupDTO{GroupName: g.GroupName}
		for _, p := range g.Trend {
			dto.Trend = append(dto.Trend, TrendPointDTO{
				Year:      p.Year,
				Count:     p.Count,
				Value:     p.Value.InexactFloat64(),
				YoYChange: floatPtr(p.YoYChange),
			})
		}
		out.Groups = append(out.Groups, dto)
	}
	return out
}

func toAgentDetailDTO(a *analytics.AgentRecord) AgentDetailDTO {
	dto := AgentDetailDTO{
		ID:            int64(a.ID),
		Name:          a.Name,
		JoinDate:      a.JoinDate,
		JoinYear:      a.JoinYear,
		Region:        a.Region,
		Education:     a.Education,
		IsPeer:        a.IsPeer,
		PersonalLevel: a.PersonalLevel,
		ManagerLevel:  a.ManagerLevel,
		DirectorLevel: a.DirectorLevel,
	}
	for _, year := range analytics.Years {
		dto.Years = append(dto.Years, AgentYearDTO{
			Year:           year,
			FYP:            a.FYP.Get(year).InexactFloat64(),
			APE:            a.APE.Get(year).InexactFloat64(),
			FYC:            a.FYC.Get(year).InexactFloat64(),
			Income:         a.Income.Get(year).InexactFloat64(),
			PointsCost:     a.PointsCost.Get(year).InexactFloat64(),
			SocialSecurity: a.SocialSecurity.Get(year).InexactFloat64(),
			Margin:         a.Margin(year).Round(2).InexactFloat64(),
			Active:         a.Active(year),
			MDQualified:    a.MDQualified[year],
		})
	}
	return dto
}
