/*
dimension.go - Categorical dimensions and filter predicates

PURPOSE:
  Defines the categorical dimensions agents can be grouped and filtered by,
  and the equality-based filter predicate shared by all three aggregators.

DIMENSIONS:
  region, join_year, personal_level, manager_level, director_level,
  education, is_peer, fyp_tier, ape_tier, md_qualified

  Tier and MD-qualification values depend on a statistical year, so
  dimension evaluation always takes one. Missing values group as "unknown".

FILTERS:
  Each filter key is an optional equality constraint; constraints combine
  with logical AND. An unsupported key is rejected with ErrUnknownDimension
  before aggregation begins.
*/
package analytics

import "strconv"

// Dimension is a categorical grouping/filter key.
type Dimension string

const (
	DimRegion        Dimension = "region"
	DimJoinYear      Dimension = "join_year"
	DimPersonalLevel Dimension = "personal_level"
	DimManagerLevel  Dimension = "manager_level"
	DimDirectorLevel Dimension = "director_level"
	DimEducation     Dimension = "education"
	DimIsPeer        Dimension = "is_peer"
	DimFYPTier       Dimension = "fyp_tier"
	DimAPETier       Dimension = "ape_tier"
	DimMDQualified   Dimension = "md_qualified"
)

// UnknownGroup is the bucket for agents with no value in a dimension.
const UnknownGroup = "unknown"

var allDimensions = map[Dimension]bool{
	DimRegion:        true,
	DimJoinYear:      true,
	DimPersonalLevel: true,
	DimManagerLevel:  true,
	DimDirectorLevel: true,
	DimEducation:     true,
	DimIsPeer:        true,
	DimFYPTier:       true,
	DimAPETier:       true,
	DimMDQualified:   true,
}

// Valid reports whether d is a supported dimension.
func (d Dimension) Valid() bool { return allDimensions[d] }

// CheckDimension validates a dimension key, returning a DimensionError for
// anything unsupported.
func CheckDimension(d Dimension) error {
	if !d.Valid() {
		return &DimensionError{Key: string(d)}
	}
	return nil
}

// Value extracts the agent's group value for this dimension. Tier and MD
// values are evaluated for the given year.
func (d Dimension) Value(a *AgentRecord, year int) string {
	switch d {
	case DimRegion:
		return orUnknown(a.Region)
	case DimJoinYear:
		if a.JoinYear == 0 {
			return UnknownGroup
		}
		return strconv.Itoa(a.JoinYear)
	case DimPersonalLevel:
		return orUnknown(a.PersonalLevel)
	case DimManagerLevel:
		return orUnknown(a.ManagerLevel)
	case DimDirectorLevel:
		return orUnknown(a.DirectorLevel)
	case DimEducation:
		return orUnknown(a.Education)
	case DimIsPeer:
		return orUnknown(a.IsPeer)
	case DimFYPTier:
		return TierOf(a.FYP.Get(year)).Label()
	case DimAPETier:
		return TierOf(a.APE.Get(year)).Label()
	case DimMDQualified:
		if a.MDQualified[year] {
			return "qualified"
		}
		return "not_qualified"
	}
	return UnknownGroup
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownGroup
	}
	return s
}

// =============================================================================
// FILTER
// =============================================================================

// Filter is a conjunction of optional equality constraints over agent fields.
// Nil pointers mean "no constraint". Tier and MDQualified constraints are
// evaluated against the statistical year the caller passes to Match.
type Filter struct {
	Region        *string
	JoinYear      *int
	IsPeer        *string
	PersonalLevel *string
	ManagerLevel  *string
	DirectorLevel *string
	Education     *string
	FYPTier       *string // tier label, e.g. "5-10w"
	APETier       *string
	MDQualified   *bool
}

// Match reports whether the agent satisfies every set constraint.
func (f *Filter) Match(a *AgentRecord, year int) bool {
	if f == nil {
		return true
	}
	if f.Region != nil && a.Region != *f.Region {
		return false
	}
	if f.JoinYear != nil && a.JoinYear != *f.JoinYear {
		return false
	}
	if f.IsPeer != nil && a.IsPeer != *f.IsPeer {
		return false
	}
	if f.PersonalLevel != nil && a.PersonalLevel != *f.PersonalLevel {
		return false
	}
	if f.ManagerLevel != nil && a.ManagerLevel != *f.ManagerLevel {
		return false
	}
	if f.DirectorLevel != nil && a.DirectorLevel != *f.DirectorLevel {
		return false
	}
	if f.Education != nil && a.Education != *f.Education {
		return false
	}
	if f.FYPTier != nil && TierOf(a.FYP.Get(year)).Label() != *f.FYPTier {
		return false
	}
	if f.APETier != nil && TierOf(a.APE.Get(year)).Label() != *f.APETier {
		return false
	}
	if f.MDQualified != nil && a.MDQualified[year] != *f.MDQualified {
		return false
	}
	return true
}
