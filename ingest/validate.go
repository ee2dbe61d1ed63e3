/*
validate.go - Structural validation of ingestion rows

PURPOSE:
  Checks every row of every table and collects ALL problems before giving
  up, so one upload round-trip surfaces the complete fix list. Any problem
  is fatal to the whole attempt: nothing is applied.

  Validation is strictly structural (identifiers present, dates and years
  parseable, amounts finite, enums known). Business conditions - an
  unmatched social-security name, a points row for an unknown agent - are
  reconciliation data, not validation errors.
*/
package ingest

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/warp/agent-analytics/analytics"
)

// Sheet names used in validation errors; they mirror the upload contract.
const (
	SheetAgents         = "agents"
	SheetPoints         = "points"
	SheetSocialSecurity = "social_security"
	SheetMappings       = "mappings"
)

// RowError pinpoints one structural problem.
type RowError struct {
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"` // 0-based index within the sheet
	Column string `json:"column"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s[%d].%s: %s", e.Sheet, e.Row, e.Column, e.Reason)
}

// ValidationError aggregates every structural problem found in one payload.
type ValidationError struct {
	Problems []RowError
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "validation failed: " + e.Problems[0].Error()
	}
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Error())
	}
	return fmt.Sprintf("validation failed (%d problems): %s",
		len(e.Problems), strings.Join(msgs, "; "))
}

type validator struct {
	problems []RowError
}

func (v *validator) add(sheet string, row int, column, reason string) {
	v.problems = append(v.problems, RowError{Sheet: sheet, Row: row, Column: column, Reason: reason})
}

// Validate checks the payload and returns a *ValidationError listing every
// problem, or nil when the payload is structurally sound.
func Validate(rows Rows) error {
	v := &validator{}

	seen := make(map[int64]int)
	for i, a := range rows.Agents {
		if a.AgentID <= 0 {
			if strings.TrimSpace(a.ExternalID) == "" {
				v.add(SheetAgents, i, "agent_id", "neither agent_id nor external_id set")
			}
		} else if prev, dup := seen[a.AgentID]; dup {
			v.add(SheetAgents, i, "agent_id", fmt.Sprintf("duplicate of row %d", prev))
		} else {
			seen[a.AgentID] = i
		}
		if a.JoinDate != "" {
			if _, err := time.Parse("2006-01-02", a.JoinDate); err != nil {
				v.add(SheetAgents, i, "join_date", "not a YYYY-MM-DD date")
			}
		}
		v.checkYearMap(SheetAgents, i, "fyp", a.FYP)
		v.checkYearMap(SheetAgents, i, "ape", a.APE)
		v.checkYearMap(SheetAgents, i, "fyc", a.FYC)
		v.checkYearMap(SheetAgents, i, "income", a.Income)
		for year := range a.MDQualified {
			if !analytics.KnownYear(year) {
				v.add(SheetAgents, i, "md_qualified", fmt.Sprintf("unknown year %d", year))
			}
		}
	}

	for i, p := range rows.Points {
		if p.AgentID <= 0 && p.ExternalID == "" {
			v.add(SheetPoints, i, "agent_id", "neither agent_id nor external_id set")
		}
		if !analytics.KnownYear(p.Year) {
			v.add(SheetPoints, i, "year", fmt.Sprintf("unknown year %d", p.Year))
		}
		switch analytics.PointsType(p.Type) {
		case analytics.PointsAccrued, analytics.PointsCashOut:
		default:
			v.add(SheetPoints, i, "type", fmt.Sprintf("unknown transaction type %q", p.Type))
		}
		if !finite(p.Amount) {
			v.add(SheetPoints, i, "amount", "not a finite number")
		}
	}

	for i, ss := range rows.SocialSecurity {
		if strings.TrimSpace(ss.Name) == "" {
			v.add(SheetSocialSecurity, i, "name", "missing name")
		}
		if !validServiceMonth(ss.ServiceMonth) {
			v.add(SheetSocialSecurity, i, "service_month", "not YYYY-MM or YYYYMM")
		}
		if !finite(ss.CompanyTotal) || !finite(ss.PersonalTotal) {
			v.add(SheetSocialSecurity, i, "company_total", "not a finite number")
		}
	}

	for i, m := range rows.Mappings {
		if strings.TrimSpace(m.ExternalID) == "" {
			v.add(SheetMappings, i, "external_id", "missing external identifier")
		}
		if m.UID <= 0 {
			v.add(SheetMappings, i, "uid", "missing or non-positive internal identifier")
		}
	}

	if len(v.problems) == 0 {
		return nil
	}
	sort.SliceStable(v.problems, func(a, b int) bool {
		if v.problems[a].Sheet != v.problems[b].Sheet {
			return v.problems[a].Sheet < v.problems[b].Sheet
		}
		return v.problems[a].Row < v.problems[b].Row
	})
	return &ValidationError{Problems: v.problems}
}

func (v *validator) checkYearMap(sheet string, row int, column string, m map[int]float64) {
	for year, val := range m {
		if !analytics.KnownYear(year) {
			v.add(sheet, row, column, fmt.Sprintf("unknown year %d", year))
		}
		if !finite(val) {
			v.add(sheet, row, column, fmt.Sprintf("year %d: not a finite number", year))
		}
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func validServiceMonth(s string) bool {
	switch len(s) {
	case 6: // YYYYMM
		return allDigits(s)
	case 7: // YYYY-MM
		return allDigits(s[:4]) && s[4] == '-' && allDigits(s[5:])
	}
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
