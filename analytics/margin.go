/*
margin.go - Margin contribution aggregator

PURPOSE:
  Computes grouped margin contribution statistics for a statistical year:
  per-agent margin = FYC - personal income - accrued points - employer SS
  share, rolled up per group, per cross-group cell, and for the whole
  filtered scope (summary row).

SEMANTICS:
  - margin_rate of a scope = sum(margin)/sum(FYC); nil when sum(FYC) is
    zero - a reporting condition, never a division error
  - Group order is first-seen order over the snapshot's agent list, so the
    same snapshot always produces the same output bytes
  - Cross grouping yields a rectangular row x column matrix over the values
    observed in scope, with zero-stat cells where a combination has no
    agents, plus a trailing per-row "total" cell
  - The year-over-year comparison aggregates the prior year with the same
    request and reports relative deltas; it is omitted when the prior year
    is not in the known year set
*/
package analytics

import "github.com/shopspring/decimal"

// TotalColumn is the name of the trailing per-row total cell in a cross
// grouping matrix.
const TotalColumn = "total"

// MarginRequest selects scope, grouping and year for a margin aggregation.
type MarginRequest struct {
	Filter  Filter
	GroupBy Dimension
	CrossBy Dimension // optional; "" means single-dimension grouping
	Year    int
}

// GroupStats is the statistics block for one group, cell or summary scope.
type GroupStats struct {
	GroupName           string
	AgentCount          int
	TotalFYC            decimal.Decimal
	TotalIncome         decimal.Decimal
	TotalPoints         decimal.Decimal
	TotalSocialSecurity decimal.Decimal
	TotalMargin         decimal.Decimal
	MarginRate          *decimal.Decimal // nil when TotalFYC is zero
	AvgFYP              decimal.Decimal
	AvgAPE              decimal.Decimal
	AvgFYC              decimal.Decimal
	AvgMargin           decimal.Decimal
}

// MarginRow is one row of a cross-grouping matrix.
type MarginRow struct {
	RowName string
	Cells   []GroupStats // one per column, then the row total
}

// MarginResult is the aggregator output. Groups is set for single-dimension
// requests; Columns/Matrix for cross requests. Summary always covers the
// whole filtered scope.
type MarginResult struct {
	Year    int
	Groups  []GroupStats
	Columns []string
	Matrix  []MarginRow
	Summary GroupStats
}

// MarginComparison carries relative year-over-year deltas for the summary
// scope. Rate deltas are nil when the denominator side is zero or undefined.
type MarginComparison struct {
	Year         int
	PriorYear    int
	FYCChange    *decimal.Decimal
	MarginChange *decimal.Decimal
	RateChange   *decimal.Decimal
	CountChange  *decimal.Decimal
}

// AggregateMargin runs the margin aggregation against one snapshot.
func AggregateMargin(s *Snapshot, req MarginRequest) (*MarginResult, error) {
	if err := CheckDimension(req.GroupBy); err != nil {
		return nil, err
	}
	if req.CrossBy != "" {
		if err := CheckDimension(req.CrossBy); err != nil {
			return nil, err
		}
	}
	if !KnownYear(req.Year) {
		return nil, ErrUnknownYear
	}

	agents := s.filtered(&req.Filter, req.Year)
	res := &MarginResult{
		Year:    req.Year,
		Summary: groupStats("", agents, req.Year),
	}

	if req.CrossBy == "" {
		res.Groups = singleGroup(agents, req.GroupBy, req.Year)
	} else {
		res.Columns, res.Matrix = crossGroup(agents, req.GroupBy, req.CrossBy, req.Year)
	}
	return res, nil
}

// CompareMarginYoY aggregates the request's year and the prior year and
// returns the relative deltas of the summary scope. Returns nil (no
// comparison) when the prior year is outside the known year set.
func CompareMarginYoY(s *Snapshot, req MarginRequest) (*MarginComparison, error) {
	prior := req.Year - 1
	if !KnownYear(prior) {
		return nil, nil
	}

	cur, err := AggregateMargin(s, req)
	if err != nil {
		return nil, err
	}
	prevReq := req
	prevReq.Year = prior
	prev, err := AggregateMargin(s, prevReq)
	if err != nil {
		return nil, err
	}

	cmp := &MarginComparison{Year: req.Year, PriorYear: prior}
	cmp.FYCChange = relativeDelta(cur.Summary.TotalFYC, prev.Summary.TotalFYC)
	cmp.MarginChange = relativeDelta(cur.Summary.TotalMargin, prev.Summary.TotalMargin)
	cmp.CountChange = relativeDelta(
		decimal.NewFromInt(int64(cur.Summary.AgentCount)),
		decimal.NewFromInt(int64(prev.Summary.AgentCount)))
	if cur.Summary.MarginRate != nil && prev.Summary.MarginRate != nil {
		cmp.RateChange = relativeDelta(*cur.Summary.MarginRate, *prev.Summary.MarginRate)
	}
	return cmp, nil
}

// relativeDelta returns (cur-prev)/prev at 4 places, nil when prev is zero.
func relativeDelta(cur, prev decimal.Decimal) *decimal.Decimal {
	if prev.IsZero() {
		return nil
	}
	return ratio4(cur.Sub(prev), prev)
}

// =============================================================================
// GROUPING
// =============================================================================

// grouping is a typed group-by accumulator: one pass over the agents,
// first-seen key order preserved.
type grouping struct {
	order   []string
	members map[string][]*AgentRecord
}

func groupAgents(agents []*AgentRecord, dim Dimension, year int) *grouping {
	g := &grouping{members: make(map[string][]*AgentRecord)}
	for _, a := range agents {
		key := dim.Value(a, year)
		if _, seen := g.members[key]; !seen {
			g.order = append(g.order, key)
		}
		g.members[key] = append(g.members[key], a)
	}
	return g
}

func singleGroup(agents []*AgentRecord, dim Dimension, year int) []GroupStats {
	g := groupAgents(agents, dim, year)
	out := make([]GroupStats, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, groupStats(name, g.members[name], year))
	}
	return out
}

func crossGroup(agents []*AgentRecord, rowBy, colBy Dimension, year int) ([]string, []MarginRow) {
	rows := groupAgents(agents, rowBy, year)

	// Column set is the values observed across the whole scope, first-seen.
	cols := groupAgents(agents, colBy, year)

	matrix := make([]MarginRow, 0, len(rows.order))
	for _, rowName := range rows.order {
		rowAgents := rows.members[rowName]
		cells := groupAgents(rowAgents, colBy, year)

		row := MarginRow{RowName: rowName, Cells: make([]GroupStats, 0, len(cols.order)+1)}
		for _, colName := range cols.order {
			row.Cells = append(row.Cells, groupStats(colName, cells.members[colName], year))
		}
		row.Cells = append(row.Cells, groupStats(TotalColumn, rowAgents, year))
		matrix = append(matrix, row)
	}

	columns := append(append([]string{}, cols.order...), TotalColumn)
	return columns, matrix
}

// groupStats computes the statistics block for one set of agents. An empty
// set yields zero totals and a nil margin rate.
func groupStats(name string, agents []*AgentRecord, year int) GroupStats {
	st := GroupStats{
		GroupName:           name,
		AgentCount:          len(agents),
		TotalFYC:            decimal.Zero,
		TotalIncome:         decimal.Zero,
		TotalPoints:         decimal.Zero,
		TotalSocialSecurity: decimal.Zero,
		TotalMargin:         decimal.Zero,
		AvgFYP:              decimal.Zero,
		AvgAPE:              decimal.Zero,
		AvgFYC:              decimal.Zero,
		AvgMargin:           decimal.Zero,
	}
	if len(agents) == 0 {
		return st
	}

	totalFYP := decimal.Zero
	totalAPE := decimal.Zero
	for _, a := range agents {
		st.TotalFYC = st.TotalFYC.Add(a.FYC.Get(year))
		st.TotalIncome = st.TotalIncome.Add(a.Income.Get(year))
		st.TotalPoints = st.TotalPoints.Add(a.PointsCost.Get(year))
		st.TotalSocialSecurity = st.TotalSocialSecurity.Add(a.SocialSecurity.Get(year))
		st.TotalMargin = st.TotalMargin.Add(a.Margin(year))
		totalFYP = totalFYP.Add(a.FYP.Get(year))
		totalAPE = totalAPE.Add(a.APE.Get(year))
	}

	count := decimal.NewFromInt(int64(len(agents)))
	st.MarginRate = ratio4(st.TotalMargin, st.TotalFYC)
	st.AvgFYP = round2(totalFYP.Div(count))
	st.AvgAPE = round2(totalAPE.Div(count))
	st.AvgFYC = round2(st.TotalFYC.Div(count))
	st.AvgMargin = round2(st.TotalMargin.Div(count))

	st.TotalFYC = round2(st.TotalFYC)
	st.TotalIncome = round2(st.TotalIncome)
	st.TotalPoints = round2(st.TotalPoints)
	st.TotalSocialSecurity = round2(st.TotalSocialSecurity)
	st.TotalMargin = round2(st.TotalMargin)
	return st
}
