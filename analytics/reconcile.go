/*
reconcile.go - Identity reconciliation and snapshot construction

PURPOSE:
  Links the four source tables into one enriched agent record set:

  1. External textual identifiers (roster or points rows that arrived
     without a numeric ID) are resolved through the ID mapping.
  2. Roster rows upsert into the previous snapshot's agent set by ID:
     matching identifiers are replaced, unseen identifiers appended.
  3. Social-security rows join to agents by canonical match key
     (romanized name + normalized region) via a single hash join.
  4. Accrued points and matched employer SS shares are summed per agent
     per year onto the enriched records.

POLICY:
  A match key claimed by two or more agents is ambiguous: every
  social-security row with that key is recorded unmatched rather than
  assigned arbitrarily. Reconciliation never fails on a single bad row -
  it flags or skips and carries on. Source tables are never mutated; all
  annotation happens on copies owned by the new snapshot.
*/
package analytics

import (
	"time"

	"github.com/google/uuid"
)

// BuildSnapshot reconciles the source tables into a new immutable snapshot.
// prev supplies the existing agent set for upsert semantics; pass nil (or an
// empty snapshot) for a full replace. Points, social security and mappings
// are replaced wholesale, which keeps re-ingestion of identical input
// idempotent.
func BuildSnapshot(prev *Snapshot, in SourceTables) *Snapshot {
	s := &Snapshot{
		Version:    uuid.NewString(),
		IngestedAt: time.Now().UTC(),
		byID:       make(map[AgentID]*AgentRecord),
	}

	extToID := make(map[string]AgentID, len(in.Mappings))
	for _, m := range in.Mappings {
		if m.ExternalID != "" && m.InternalID != 0 {
			extToID[m.ExternalID] = m.InternalID
		}
	}

	// Upsert: previous agents first (base fields only - enrichment is
	// recomputed below), then incoming rows replace or append by ID.
	if prev != nil {
		for _, a := range prev.Agents {
			s.upsertAgent(*a)
		}
	}
	for _, row := range in.Agents {
		if row.ID == 0 {
			// Roster rows may arrive keyed by external ID only.
			id, ok := extToID[row.ExternalID]
			if !ok {
				continue
			}
			row.ID = id
		}
		s.upsertAgent(row)
	}

	s.applyPoints(in.Points, extToID)
	s.applySocialSecurity(in.SocialSecurity)
	return s
}

// upsertAgent copies the base fields of row into the snapshot, resetting
// enrichment so a re-ingested agent never carries stale cost totals.
func (s *Snapshot) upsertAgent(row AgentRecord) {
	row.PointsCost = make(YearValues)
	row.SocialSecurity = make(YearValues)

	if existing, ok := s.byID[row.ID]; ok {
		*existing = row
		return
	}
	a := row
	s.Agents = append(s.Agents, &a)
	s.byID[a.ID] = &a
}

// applyPoints replays the points ledger onto the agent set. Only accrued
// transactions contribute to cost; cash-out rows are kept in the snapshot's
// ledger but excluded from margin. Rows whose agent cannot be resolved are
// skipped, never fatal.
func (s *Snapshot) applyPoints(points []PointsTransaction, extToID map[string]AgentID) {
	s.Points = make([]PointsTransaction, 0, len(points))
	for _, tx := range points {
		if tx.AgentID == 0 && tx.ExternalID != "" {
			tx.AgentID = extToID[tx.ExternalID]
		}
		agent := s.byID[tx.AgentID]
		if agent == nil {
			continue
		}
		s.Points = append(s.Points, tx)

		if tx.Type != PointsAccrued || !KnownYear(tx.Year) {
			continue
		}
		agent.PointsCost[tx.Year] = agent.PointsCost.Get(tx.Year).Add(tx.Amount)
	}
}

// applySocialSecurity hash-joins SS rows to agents by match key and sums the
// employer share per agent per service year.
func (s *Snapshot) applySocialSecurity(records []SocialSecurityRecord) {
	// Key index over agents; keys claimed more than once become ambiguous.
	byKey := make(map[string]*AgentRecord, len(s.Agents))
	ambiguous := make(map[string]bool)
	for _, a := range s.Agents {
		key := MatchKey(a.Name, a.Region)
		if key == "" {
			continue
		}
		if _, taken := byKey[key]; taken {
			ambiguous[key] = true
			continue
		}
		byKey[key] = a
	}

	s.SocialSecurity = make([]SocialSecurityRecord, 0, len(records))
	for _, rec := range records {
		rec.MatchedAgentID = 0
		rec.UnmatchedReason = UnmatchedNoAgent

		key := MatchKey(rec.Name, rec.Region)
		switch {
		case key == "":
			// No usable name characters.
		case ambiguous[key]:
			rec.UnmatchedReason = UnmatchedAmbiguous
		default:
			if agent, ok := byKey[key]; ok {
				year, valid := serviceYear(rec.ServiceMonth)
				if !valid {
					rec.UnmatchedReason = UnmatchedBadMonth
					break
				}
				rec.MatchedAgentID = agent.ID
				rec.UnmatchedReason = UnmatchedNone
				if KnownYear(year) {
					agent.SocialSecurity[year] = agent.SocialSecurity.Get(year).Add(rec.CompanyTotal)
				}
			}
		}
		s.SocialSecurity = append(s.SocialSecurity, rec)
	}
}

// serviceYear extracts the year from a "YYYY-MM" or "YYYYMM" service month.
func serviceYear(month string) (int, bool) {
	if len(month) < 4 {
		return 0, false
	}
	year := 0
	for _, r := range month[:4] {
		if r < '0' || r > '9' {
			return 0, false
		}
		year = year*10 + int(r-'0')
	}
	return year, true
}
