/*
Package analytics provides the agent reconciliation and aggregation engine.

PURPOSE:
  This package contains the core business logic for turning four loosely
  linked tabular sources (agent roster, points ledger, social-security
  ledger, external-ID map) into one enriched per-agent record set, and for
  deriving the three analytical views from it: margin contribution, cohort
  retention, and year-over-year efficiency trend.

KEY CONCEPTS IN THIS FILE (types.go):
  - AgentRecord: One enriched record per unique agent identifier
  - PointsTransaction: A points ledger entry (accrued or cash-out)
  - SocialSecurityRecord: A monthly employer/personal contribution row
  - IDMapping: External textual ID to internal numeric ID relation
  - SourceTables: The four tables as handed over by the ingestion layer

DESIGN PRINCIPLES:
  1. Immutability: Records are frozen once a snapshot is built; a new
     ingestion produces a new snapshot rather than mutating in place
  2. Precision: Uses decimal.Decimal for all monetary values so grouped
     financial totals are bit-exact
  3. Explicitness: No dataframe-style duck typing; grouping is a typed
     map from group key to accumulator, built in one pass

SEE ALSO:
  - reconcile.go: Identity matching and snapshot construction
  - margin.go, retention.go, efficiency.go: The three aggregators
  - snapshot.go: Immutable snapshot + atomic publication
*/
package analytics

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// KNOWN YEARS
// =============================================================================

// Years is the fixed statistical year range covered by the source data.
var Years = []int{2022, 2023, 2024, 2025}

// DefaultYear is the statistical year used when a request does not pin one.
// Tier and MD-qualification filters need a concrete year to evaluate against.
const DefaultYear = 2024

// FirstYear is the earliest year with data. Agents who joined before it are
// folded into its baseline cohort.
const FirstYear = 2022

// KnownYear reports whether year is inside the covered range.
func KnownYear(year int) bool {
	for _, y := range Years {
		if y == year {
			return true
		}
	}
	return false
}

// =============================================================================
// AGENT RECORD - One per unique agent identifier
// =============================================================================

// AgentID is the internal numeric agent identifier.
type AgentID int64

// YearValues holds one monetary metric keyed by statistical year.
// Absent years read as zero.
type YearValues map[int]decimal.Decimal

// Get returns the value for year, or zero when the year is absent.
func (v YearValues) Get(year int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return v[year]
}

// AgentRecord is the enriched per-agent record. The base fields come from the
// roster table; PointsCost and SocialSecurity are filled by reconciliation.
// Records are immutable once the owning snapshot is published.
type AgentRecord struct {
	ID AgentID
	// ExternalID carries the textual roster key when the row arrived without
	// a numeric ID; reconciliation resolves it through the ID mapping.
	ExternalID string
	Name       string
	JoinDate   string // YYYY-MM-DD, may be empty
	JoinYear   int    // derived from JoinDate; 0 when unknown

	Region        string
	Education     string
	IsPeer        string // "yes"/"no"/"" as provided by the roster
	PersonalLevel string
	ManagerLevel  string
	DirectorLevel string

	FYP    YearValues
	APE    YearValues
	FYC    YearValues
	Income YearValues

	MDQualified map[int]bool

	// Enrichment from reconciliation. PointsCost sums accrued points
	// transactions per year (cash-out excluded); SocialSecurity sums the
	// employer-paid share of matched social-security rows per year.
	PointsCost     YearValues
	SocialSecurity YearValues
}

// Active reports whether the agent wrote business (FYP > 0) in year.
func (a *AgentRecord) Active(year int) bool {
	return a.FYP.Get(year).IsPositive()
}

// Margin is the per-agent, per-year margin contribution:
// FYC minus personal income, accrued points cost and employer SS share.
// One point is one currency unit.
func (a *AgentRecord) Margin(year int) decimal.Decimal {
	return a.FYC.Get(year).
		Sub(a.Income.Get(year)).
		Sub(a.PointsCost.Get(year)).
		Sub(a.SocialSecurity.Get(year))
}

// =============================================================================
// POINTS TRANSACTION
// =============================================================================

type PointsType string

const (
	PointsAccrued PointsType = "accrued"
	PointsCashOut PointsType = "cash-out"
)

// PointsTransaction is one row of the points ledger. AgentID may be zero when
// the source row carried only an external textual identifier; reconciliation
// resolves it through the ID mapping.
type PointsTransaction struct {
	AgentID    AgentID
	ExternalID string
	Year       int
	Type       PointsType
	Amount     decimal.Decimal
}

// =============================================================================
// SOCIAL SECURITY RECORD
// =============================================================================

// UnmatchedReason explains why a social-security row stayed unmatched.
// Ambiguity is data, not an error: a key shared by several agents must never
// silently assign cost to the wrong one.
type UnmatchedReason string

const (
	UnmatchedNone      UnmatchedReason = ""
	UnmatchedNoAgent   UnmatchedReason = "no_agent"
	UnmatchedAmbiguous UnmatchedReason = "ambiguous"
	UnmatchedBadMonth  UnmatchedReason = "bad_service_month"
)

// SocialSecurityRecord is one monthly contribution row. MatchedAgentID is set
// by reconciliation; unmatched rows are retained for audit but excluded from
// cost.
type SocialSecurityRecord struct {
	Name          string
	Region        string
	ServiceMonth  string // "YYYY-MM" or "YYYYMM"
	CompanyTotal  decimal.Decimal
	PersonalTotal decimal.Decimal

	MatchedAgentID  AgentID // 0 when unmatched
	UnmatchedReason UnmatchedReason
}

// Matched reports whether the record resolved to an agent.
func (r *SocialSecurityRecord) Matched() bool { return r.MatchedAgentID != 0 }

// =============================================================================
// ID MAPPING
// =============================================================================

// IDMapping links an external textual identifier to the internal numeric one.
// It is consumed during reconciliation only and not retained downstream.
type IDMapping struct {
	ExternalID string
	InternalID AgentID
}

// =============================================================================
// SOURCE TABLES - Ingestion hand-off
// =============================================================================

// SourceTables is the already-parsed, already-validated input to snapshot
// construction. The ingest package owns column-level validation; by the time
// a SourceTables reaches the engine it is structurally sound.
type SourceTables struct {
	Agents         []AgentRecord
	Points         []PointsTransaction
	SocialSecurity []SocialSecurityRecord
	Mappings       []IDMapping
}

// =============================================================================
// ROUNDING DISCIPLINE
// =============================================================================

// Monetary totals and averages are reported at 2 decimal places, ratios at 4.
// Rounding happens once, at result construction, so repeated aggregation of
// the same snapshot is byte-identical.

func round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }
func round4(d decimal.Decimal) decimal.Decimal { return d.Round(4) }

// ratio4 returns num/den rounded to 4 places, or nil when den is zero.
func ratio4(num, den decimal.Decimal) *decimal.Decimal {
	if den.IsZero() {
		return nil
	}
	r := round4(num.Div(den))
	return &r
}
