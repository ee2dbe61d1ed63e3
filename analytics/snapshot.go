/*
snapshot.go - Immutable dataset snapshot and atomic publication

PURPOSE:
  All aggregation runs against an immutable Snapshot of the reconciled
  dataset. Ingestion builds a new snapshot off to the side and swaps it in
  atomically, so readers never observe a half-updated dataset and the four
  aggregation paths can run concurrently with no coordination.

INVARIANTS:
  - Agents keeps roster insertion order; group iteration order and therefore
    output ordering derive from it, so identical input yields identical output
  - A snapshot is never mutated after Publish; corrections arrive as a new
    snapshot
  - Ingestion/clear are serialized by the ingest layer (single writer);
    the Holder only provides the atomic swap
*/
package analytics

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Snapshot is one immutable, versioned view of the reconciled dataset.
type Snapshot struct {
	Version    string
	IngestedAt time.Time

	// Agents in first-ingested order. The slice and the records it points
	// to must not be modified after the snapshot is published.
	Agents []*AgentRecord

	// Points and SocialSecurity are the reconciled ledgers, retained for
	// audit and drill-down. Unmatched social-security rows stay here with
	// their reason; they contribute no cost.
	Points         []PointsTransaction
	SocialSecurity []SocialSecurityRecord

	byID map[AgentID]*AgentRecord
}

// EmptySnapshot returns a published-ready snapshot with no data.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Version:    uuid.NewString(),
		IngestedAt: time.Now().UTC(),
		byID:       make(map[AgentID]*AgentRecord),
	}
}

// Agent returns the record for id, or nil.
func (s *Snapshot) Agent(id AgentID) *AgentRecord {
	return s.byID[id]
}

// AgentCount returns the number of agents in the snapshot.
func (s *Snapshot) AgentCount() int { return len(s.Agents) }

// ActiveCount returns how many agents wrote business in year.
func (s *Snapshot) ActiveCount(year int) int {
	n := 0
	for _, a := range s.Agents {
		if a.Active(year) {
			n++
		}
	}
	return n
}

// MatchedSocialSecurity returns how many SS rows resolved to an agent.
func (s *Snapshot) MatchedSocialSecurity() int {
	n := 0
	for i := range s.SocialSecurity {
		if s.SocialSecurity[i].Matched() {
			n++
		}
	}
	return n
}

// filtered returns the agents passing the filter, preserving order.
func (s *Snapshot) filtered(f *Filter, year int) []*AgentRecord {
	out := make([]*AgentRecord, 0, len(s.Agents))
	for _, a := range s.Agents {
		if f.Match(a, year) {
			out = append(out, a)
		}
	}
	return out
}

// =============================================================================
// HOLDER - Atomic snapshot publication
// =============================================================================

// Holder publishes the current snapshot. Reads are lock-free; writers build a
// complete snapshot first and swap it in with Publish.
type Holder struct {
	cur atomic.Pointer[Snapshot]
}

// NewHolder returns a holder publishing an empty snapshot.
func NewHolder() *Holder {
	h := &Holder{}
	h.cur.Store(EmptySnapshot())
	return h
}

// Current returns the published snapshot. Never nil.
func (h *Holder) Current() *Snapshot { return h.cur.Load() }

// Publish atomically replaces the published snapshot.
func (h *Holder) Publish(s *Snapshot) { h.cur.Store(s) }
