/*
service.go - Single-writer ingestion service

PURPOSE:
  Serializes the only two mutating operations (ingest, clear) against each
  other, builds the replacement snapshot off to the side, persists the
  source tables, and publishes the snapshot atomically. Readers keep using
  the previous snapshot until the swap.

FAILURE ORDER:
  validate -> reconcile -> persist -> publish. A persistence failure leaves
  the previously published snapshot untouched, so the API never serves a
  dataset the store does not hold.
*/
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/agent-analytics/analytics"
)

// Store persists the four source tables. Implemented by store/sqlite; a nil
// Store runs the service memory-only (tests, ephemeral deployments).
type Store interface {
	// ReplaceDataset applies one ingestion transactionally: agents upsert,
	// the other three tables are replaced wholesale.
	ReplaceDataset(ctx context.Context, tables analytics.SourceTables) error

	// LoadDataset returns all persisted source rows.
	LoadDataset(ctx context.Context) (analytics.SourceTables, error)

	// Reset drops all persisted rows.
	Reset(ctx context.Context) error
}

// Summary reports what one ingestion applied.
type Summary struct {
	SnapshotVersion      string `json:"snapshot_version"`
	AgentRows            int    `json:"agent_rows"`
	PointsRows           int    `json:"points_rows"`
	SocialSecurityRows   int    `json:"social_security_rows"`
	MappingRows          int    `json:"mapping_rows"`
	TotalAgents          int    `json:"total_agents"`
	MatchedSocialSecRows int    `json:"matched_social_security_rows"`
}

// Service owns the snapshot holder's write side.
type Service struct {
	mu     sync.Mutex
	holder *analytics.Holder
	store  Store
	log    *zap.Logger
}

// NewService wires the ingestion service. store may be nil; log must not be.
func NewService(holder *analytics.Holder, store Store, log *zap.Logger) *Service {
	return &Service{holder: holder, store: store, log: log}
}

// Ingest validates and applies one payload. On validation failure it returns
// a *ValidationError and applies nothing.
func (s *Service) Ingest(ctx context.Context, rows Rows) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	if err := Validate(rows); err != nil {
		s.log.Warn("ingestion rejected", zap.Error(err))
		return nil, err
	}

	tables := Convert(rows)
	next := analytics.BuildSnapshot(s.holder.Current(), tables)

	if s.store != nil {
		// Persist the reconciled agent set, not the raw roster, so rows
		// keyed by external ID land under their resolved numeric identifier.
		persisted := tables
		persisted.Agents = make([]analytics.AgentRecord, len(next.Agents))
		for i, a := range next.Agents {
			persisted.Agents[i] = *a
		}
		if err := s.store.ReplaceDataset(ctx, persisted); err != nil {
			s.log.Error("ingestion persistence failed", zap.Error(err))
			return nil, err
		}
	}
	s.holder.Publish(next)

	s.log.Info("ingestion applied",
		zap.String("snapshot_version", next.Version),
		zap.Int("agents", len(rows.Agents)),
		zap.Int("points", len(rows.Points)),
		zap.Int("social_security", len(rows.SocialSecurity)),
		zap.Duration("took", time.Since(started)),
	)

	return &Summary{
		SnapshotVersion:      next.Version,
		AgentRows:            len(rows.Agents),
		PointsRows:           len(rows.Points),
		SocialSecurityRows:   len(rows.SocialSecurity),
		MappingRows:          len(rows.Mappings),
		TotalAgents:          next.AgentCount(),
		MatchedSocialSecRows: next.MatchedSocialSecurity(),
	}, nil
}

// Clear drops all data and publishes an empty snapshot.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Reset(ctx); err != nil {
			return err
		}
	}
	s.holder.Publish(analytics.EmptySnapshot())
	s.log.Info("dataset cleared")
	return nil
}

// Restore rebuilds the published snapshot from the store. Called once at
// startup; a nil store publishes nothing.
func (s *Service) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	tables, err := s.store.LoadDataset(ctx)
	if err != nil {
		return err
	}
	next := analytics.BuildSnapshot(nil, tables)
	s.holder.Publish(next)
	s.log.Info("snapshot restored",
		zap.String("snapshot_version", next.Version),
		zap.Int("agents", next.AgentCount()),
	)
	return nil
}

// =============================================================================
// ROW CONVERSION
// =============================================================================

// Convert turns validated rows into engine source tables. Conversion assumes
// Validate passed; it does not re-check.
func Convert(rows Rows) analytics.SourceTables {
	tables := analytics.SourceTables{
		Agents:         make([]analytics.AgentRecord, 0, len(rows.Agents)),
		Points:         make([]analytics.PointsTransaction, 0, len(rows.Points)),
		SocialSecurity: make([]analytics.SocialSecurityRecord, 0, len(rows.SocialSecurity)),
		Mappings:       make([]analytics.IDMapping, 0, len(rows.Mappings)),
	}

	for _, a := range rows.Agents {
		rec := analytics.AgentRecord{
			ID:            analytics.AgentID(a.AgentID),
			ExternalID:    a.ExternalID,
			Name:          a.Name,
			JoinDate:      a.JoinDate,
			Region:        a.Region,
			Education:     a.Education,
			IsPeer:        a.IsPeer,
			PersonalLevel: a.PersonalLevel,
			ManagerLevel:  a.ManagerLevel,
			DirectorLevel: a.DirectorLevel,
			FYP:           yearValues(a.FYP),
			APE:           yearValues(a.APE),
			FYC:           yearValues(a.FYC),
			Income:        yearValues(a.Income),
			MDQualified:   copyBoolMap(a.MDQualified),
		}
		if a.JoinDate != "" {
			if t, err := time.Parse("2006-01-02", a.JoinDate); err == nil {
				rec.JoinYear = t.Year()
			}
		}
		tables.Agents = append(tables.Agents, rec)
	}

	for _, p := range rows.Points {
		tables.Points = append(tables.Points, analytics.PointsTransaction{
			AgentID:    analytics.AgentID(p.AgentID),
			ExternalID: p.ExternalID,
			Year:       p.Year,
			Type:       analytics.PointsType(p.Type),
			Amount:     decimal.NewFromFloat(p.Amount),
		})
	}

	for _, ss := range rows.SocialSecurity {
		tables.SocialSecurity = append(tables.SocialSecurity, analytics.SocialSecurityRecord{
			Name:          ss.Name,
			Region:        ss.Region,
			ServiceMonth:  ss.ServiceMonth,
			CompanyTotal:  decimal.NewFromFloat(ss.CompanyTotal),
			PersonalTotal: decimal.NewFromFloat(ss.PersonalTotal),
		})
	}

	for _, m := range rows.Mappings {
		tables.Mappings = append(tables.Mappings, analytics.IDMapping{
			ExternalID: m.ExternalID,
			InternalID: analytics.AgentID(m.UID),
		})
	}
	return tables
}

func yearValues(m map[int]float64) analytics.YearValues {
	if len(m) == 0 {
		return analytics.YearValues{}
	}
	out := make(analytics.YearValues, len(m))
	for year, val := range m {
		out[year] = decimal.NewFromFloat(val)
	}
	return out
}

func copyBoolMap(m map[int]bool) map[int]bool {
	out := make(map[int]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
