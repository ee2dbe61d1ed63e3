/*
retention.go - Cohort retention engine

PURPOSE:
  Measures how much of a joining cohort keeps writing business in the years
  after its baseline. A cohort is the set of agents sharing a baseline year
  who were active (FYP > 0) in that baseline year; membership is frozen at
  that set and never recomputed from later data.

SEMANTICS:
  - baseline year = max(join_year, 2022): agents who joined before the data
    range fold into the 2022 cohort; later joiners use their actual year
  - For offsets 0..3 within the known years: count = frozen members active
    in that later year; count_retention = count/base_count; fyp_retention =
    later-year FYP summed over the frozen membership divided by base FYP
  - Offset 0 is the baseline measured against itself: both ratios are 1.0
  - base_count = 0 means the ratios are undefined, so no cohort row is
    emitted for that join-year/group combination
  - Ratios are uncapped; a cohort can out-produce its baseline
*/
package analytics

import "github.com/shopspring/decimal"

// RetentionRequest selects scope and grouping for a retention analysis.
// Year only pins the evaluation year for tier/MD filter constraints and
// tier/MD grouping values; 0 means DefaultYear.
type RetentionRequest struct {
	Filter  Filter
	GroupBy Dimension
	Year    int
}

// RetentionPoint is one later-year measurement of a cohort.
type RetentionPoint struct {
	Year           int
	YearsAfterJoin int
	Count          int
	FYP            decimal.Decimal
	CountRetention *decimal.Decimal // nil only if base_count is 0 (row omitted)
	FYPRetention   *decimal.Decimal // nil when base FYP is 0
}

// Cohort is one baseline cohort inside a group.
type Cohort struct {
	JoinYear  int
	BaseYear  int
	BaseCount int
	BaseFYP   decimal.Decimal
	Years     []RetentionPoint
}

// RetentionGroup is the cohort list for one group value.
type RetentionGroup struct {
	GroupName string
	Cohorts   []Cohort
}

// RetentionResult is the retention engine output.
type RetentionResult struct {
	Groups  []RetentionGroup
	Offsets []int // years-after-join offsets covered, 0..3
}

// BaselineYear clamps a join year onto the data range.
func BaselineYear(joinYear int) int {
	if joinYear < FirstYear {
		return FirstYear
	}
	return joinYear
}

// AggregateRetention computes cohort retention per group value.
func AggregateRetention(s *Snapshot, req RetentionRequest) (*RetentionResult, error) {
	if err := CheckDimension(req.GroupBy); err != nil {
		return nil, err
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

	res := &RetentionResult{Offsets: []int{0, 1, 2, 3}}
	for _, name := range groups.order {
		res.Groups = append(res.Groups, RetentionGroup{
			GroupName: name,
			Cohorts:   groupCohorts(groups.members[name]),
		})
	}
	return res, nil
}

// groupCohorts builds the cohort rows for one group's agents, keyed by join
// year in first-seen order.
func groupCohorts(agents []*AgentRecord) []Cohort {
	byJoinYear := make(map[int][]*AgentRecord)
	var order []int
	for _, a := range agents {
		if a.JoinYear == 0 {
			continue
		}
		if _, seen := byJoinYear[a.JoinYear]; !seen {
			order = append(order, a.JoinYear)
		}
		byJoinYear[a.JoinYear] = append(byJoinYear[a.JoinYear], a)
	}

	var cohorts []Cohort
	for _, joinYear := range order {
		if c, ok := buildCohort(joinYear, byJoinYear[joinYear]); ok {
			cohorts = append(cohorts, c)
		}
	}
	return cohorts
}

// buildCohort freezes the baseline-active membership and measures it in each
// later known year. Returns ok=false for an empty baseline.
func buildCohort(joinYear int, agents []*AgentRecord) (Cohort, bool) {
	baseYear := BaselineYear(joinYear)
	if !KnownYear(baseYear) {
		return Cohort{}, false
	}

	// Frozen membership: active in the baseline year.
	var members []*AgentRecord
	baseFYP := decimal.Zero
	for _, a := range agents {
		if a.Active(baseYear) {
			members = append(members, a)
			baseFYP = baseFYP.Add(a.FYP.Get(baseYear))
		}
	}
	if len(members) == 0 {
		return Cohort{}, false
	}

	c := Cohort{
		JoinYear:  joinYear,
		BaseYear:  baseYear,
		BaseCount: len(members),
		BaseFYP:   round2(baseFYP),
	}

	baseCount := decimal.NewFromInt(int64(len(members)))
	for _, year := range Years {
		offset := year - baseYear
		if offset < 0 || offset > 3 {
			continue
		}

		count := 0
		fyp := decimal.Zero
		for _, m := range members {
			// Inactive members contribute zero FYP but stay in the cohort.
			if m.Active(year) {
				count++
				fyp = fyp.Add(m.FYP.Get(year))
			}
		}

		c.Years = append(c.Years, RetentionPoint{
			Year:           year,
			YearsAfterJoin: offset,
			Count:          count,
			FYP:            round2(fyp),
			CountRetention: ratio4(decimal.NewFromInt(int64(count)), baseCount),
			FYPRetention:   ratio4(fyp, baseFYP),
		})
	}
	return c, true
}
