/*
Package sqlite persists the four source tables behind the ingestion service.

PURPOSE:
  The engine aggregates purely in memory; SQLite only makes ingested data
  survive restarts. On startup the ingestion service reloads these tables
  and rebuilds the published snapshot from scratch.

KEY TABLES:
  agents:          Roster base fields, one row per agent identifier
  agent_metrics:   Per-agent, per-year FYP/APE/FYC/income and the MD flag
  points:          Points ledger rows (accruals and cash-outs)
  social_security: Monthly contribution rows, stored pre-reconciliation
  id_mapping:      External textual ID to internal numeric ID

APPLY SEMANTICS:
  ReplaceDataset runs in a single transaction. Agent rows upsert by
  identifier and their metric rows are rewritten; the three ledger tables
  are replaced wholesale. Either everything lands or nothing does, which
  is what makes re-ingesting the same file a no-op.

AMOUNTS:
  Monetary values are stored as decimal strings, never floats, so a
  reload reproduces the exact figures that were ingested.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so the startup reload
  and incoming writes do not block each other.

USAGE:
  store, err := sqlite.New("./data/analytics.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ingest/service.go: The only caller of the write methods
  - analytics/reconcile.go: Rebuilds the snapshot from LoadDataset output
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/agent-analytics/analytics"
)

// Store implements the ingestion service's persistence interface on SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Roster base fields (one row per agent, upserted on ingestion)
	CREATE TABLE IF NOT EXISTS agents (
		agent_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		join_date TEXT,
		join_year INTEGER,
		region TEXT,
		education TEXT,
		is_peer TEXT,
		personal_level TEXT,
		manager_level TEXT,
		director_level TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_agents_region ON agents(region);
	CREATE INDEX IF NOT EXISTS idx_agents_join_year ON agents(join_year);

	-- Per-year performance figures, rewritten whenever the agent row lands
	CREATE TABLE IF NOT EXISTS agent_metrics (
		agent_id INTEGER NOT NULL,
		year INTEGER NOT NULL,
		fyp TEXT NOT NULL,
		ape TEXT NOT NULL,
		fyc TEXT NOT NULL,
		income TEXT NOT NULL,
		md_qualified INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (agent_id, year),
		FOREIGN KEY (agent_id) REFERENCES agents(agent_id)
	);

	-- Points ledger (replaced wholesale per ingestion)
	CREATE TABLE IF NOT EXISTS points (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id INTEGER NOT NULL,
		external_id TEXT,
		year INTEGER NOT NULL,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_points_agent ON points(agent_id);
	CREATE INDEX IF NOT EXISTS idx_points_year ON points(year);

	-- Monthly contributions, stored as-received; matching happens in memory
	CREATE TABLE IF NOT EXISTS social_security (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		region TEXT,
		service_month TEXT NOT NULL,
		company_total TEXT NOT NULL,
		personal_total TEXT NOT NULL
	);

	-- External textual ID to internal numeric ID
	CREATE TABLE IF NOT EXISTS id_mapping (
		external_id TEXT PRIMARY KEY,
		uid INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WRITE PATH
// =============================================================================

// ReplaceDataset applies one ingestion transactionally: agents upsert by
// identifier, the points/social-security/mapping tables are replaced.
func (s *Store) ReplaceDataset(ctx context.Context, tables analytics.SourceTables) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)

	for _, a := range tables.Agents {
		if err := s.upsertAgent(ctx, sqlTx, a, now); err != nil {
			return err
		}
	}

	for _, table := range []string{"points", "social_security", "id_mapping"} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, p := range tables.Points {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO points (agent_id, external_id, year, tx_type, amount)
			VALUES (?, ?, ?, ?, ?)`,
			int64(p.AgentID), p.ExternalID, p.Year, string(p.Type), p.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert points row: %w", err)
		}
	}

	for _, rec := range tables.SocialSecurity {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO social_security (name, region, service_month, company_total, personal_total)
			VALUES (?, ?, ?, ?, ?)`,
			rec.Name, rec.Region, rec.ServiceMonth,
			rec.CompanyTotal.String(), rec.PersonalTotal.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert social security row: %w", err)
		}
	}

	for _, m := range tables.Mappings {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT OR REPLACE INTO id_mapping (external_id, uid) VALUES (?, ?)`,
			m.ExternalID, int64(m.InternalID),
		)
		if err != nil {
			return fmt.Errorf("failed to insert id mapping: %w", err)
		}
	}

	return sqlTx.Commit()
}

func (s *Store) upsertAgent(ctx context.Context, sqlTx *sql.Tx, a analytics.AgentRecord, now string) error {
	query := `
		INSERT INTO agents (agent_id, name, join_date, join_year, region, education,
			is_peer, personal_level, manager_level, director_level, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			name = excluded.name,
			join_date = excluded.join_date,
			join_year = excluded.join_year,
			region = excluded.region,
			education = excluded.education,
			is_peer = excluded.is_peer,
			personal_level = excluded.personal_level,
			manager_level = excluded.manager_level,
			director_level = excluded.director_level,
			updated_at = excluded.updated_at
	`

	_, err := sqlTx.ExecContext(ctx, query,
		int64(a.ID), a.Name, a.JoinDate, a.JoinYear, a.Region, a.Education,
		a.IsPeer, a.PersonalLevel, a.ManagerLevel, a.DirectorLevel, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert agent %d: %w", a.ID, err)
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM agent_metrics WHERE agent_id = ?", int64(a.ID)); err != nil {
		return fmt.Errorf("failed to clear metrics for agent %d: %w", a.ID, err)
	}

	for _, year := range analytics.Years {
		md := 0
		if a.MDQualified[year] {
			md = 1
		}
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO agent_metrics (agent_id, year, fyp, ape, fyc, income, md_qualified)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			int64(a.ID), year,
			a.FYP.Get(year).String(), a.APE.Get(year).String(),
			a.FYC.Get(year).String(), a.Income.Get(year).String(), md,
		)
		if err != nil {
			return fmt.Errorf("failed to insert metrics for agent %d year %d: %w", a.ID, year, err)
		}
	}
	return nil
}

// Reset clears all business data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	tables := []string{"agent_metrics", "points", "social_security", "id_mapping", "agents"}
	for _, table := range tables {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

// =============================================================================
// READ PATH
// =============================================================================

// LoadDataset reads back all persisted source rows. Agents are returned in
// first-insert order so the rebuilt snapshot reproduces group ordering.
func (s *Store) LoadDataset(ctx context.Context) (analytics.SourceTables, error) {
	var tables analytics.SourceTables

	metrics, err := s.loadMetrics(ctx)
	if err != nil {
		return tables, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, name, join_date, join_year, region, education,
		       is_peer, personal_level, manager_level, director_level
		FROM agents
		ORDER BY rowid ASC
	`)
	if err != nil {
		return tables, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a analytics.AgentRecord
		var id int64
		if err := rows.Scan(&id, &a.Name, &a.JoinDate, &a.JoinYear, &a.Region,
			&a.Education, &a.IsPeer, &a.PersonalLevel, &a.ManagerLevel, &a.DirectorLevel); err != nil {
			return tables, fmt.Errorf("failed to scan agent: %w", err)
		}
		a.ID = analytics.AgentID(id)

		m, ok := metrics[a.ID]
		if !ok {
			m = newAgentMetrics()
		}
		a.FYP, a.APE, a.FYC, a.Income = m.fyp, m.ape, m.fyc, m.income
		a.MDQualified = m.md

		tables.Agents = append(tables.Agents, a)
	}
	if err := rows.Err(); err != nil {
		return tables, err
	}

	if tables.Points, err = s.loadPoints(ctx); err != nil {
		return tables, err
	}
	if tables.SocialSecurity, err = s.loadSocialSecurity(ctx); err != nil {
		return tables, err
	}
	if tables.Mappings, err = s.loadMappings(ctx); err != nil {
		return tables, err
	}
	return tables, nil
}

type agentMetrics struct {
	fyp, ape, fyc, income analytics.YearValues
	md                    map[int]bool
}

func newAgentMetrics() agentMetrics {
	return agentMetrics{
		fyp:    analytics.YearValues{},
		ape:    analytics.YearValues{},
		fyc:    analytics.YearValues{},
		income: analytics.YearValues{},
		md:     map[int]bool{},
	}
}

func (s *Store) loadMetrics(ctx context.Context) (map[analytics.AgentID]agentMetrics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, year, fyp, ape, fyc, income, md_qualified
		FROM agent_metrics
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent metrics: %w", err)
	}
	defer rows.Close()

	out := make(map[analytics.AgentID]agentMetrics)
	for rows.Next() {
		var id int64
		var year, md int
		var fyp, ape, fyc, income string
		if err := rows.Scan(&id, &year, &fyp, &ape, &fyc, &income, &md); err != nil {
			return nil, fmt.Errorf("failed to scan agent metrics: %w", err)
		}

		aid := analytics.AgentID(id)
		m, ok := out[aid]
		if !ok {
			m = newAgentMetrics()
		}
		if m.fyp[year], err = decimal.NewFromString(fyp); err != nil {
			return nil, fmt.Errorf("agent %d year %d fyp: %w", id, year, err)
		}
		if m.ape[year], err = decimal.NewFromString(ape); err != nil {
			return nil, fmt.Errorf("agent %d year %d ape: %w", id, year, err)
		}
		if m.fyc[year], err = decimal.NewFromString(fyc); err != nil {
			return nil, fmt.Errorf("agent %d year %d fyc: %w", id, year, err)
		}
		if m.income[year], err = decimal.NewFromString(income); err != nil {
			return nil, fmt.Errorf("agent %d year %d income: %w", id, year, err)
		}
		m.md[year] = md != 0
		out[aid] = m
	}
	return out, rows.Err()
}

func (s *Store) loadPoints(ctx context.Context) ([]analytics.PointsTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, external_id, year, tx_type, amount
		FROM points
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	var out []analytics.PointsTransaction
	for rows.Next() {
		var p analytics.PointsTransaction
		var id int64
		var txType, amount string
		if err := rows.Scan(&id, &p.ExternalID, &p.Year, &txType, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan points row: %w", err)
		}
		p.AgentID = analytics.AgentID(id)
		p.Type = analytics.PointsType(txType)
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("points amount: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) loadSocialSecurity(ctx context.Context) ([]analytics.SocialSecurityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, region, service_month, company_total, personal_total
		FROM social_security
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query social security: %w", err)
	}
	defer rows.Close()

	var out []analytics.SocialSecurityRecord
	for rows.Next() {
		var rec analytics.SocialSecurityRecord
		var company, personal string
		if err := rows.Scan(&rec.Name, &rec.Region, &rec.ServiceMonth, &company, &personal); err != nil {
			return nil, fmt.Errorf("failed to scan social security row: %w", err)
		}
		var err error
		if rec.CompanyTotal, err = decimal.NewFromString(company); err != nil {
			return nil, fmt.Errorf("social security company_total: %w", err)
		}
		if rec.PersonalTotal, err = decimal.NewFromString(personal); err != nil {
			return nil, fmt.Errorf("social security personal_total: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) loadMappings(ctx context.Context) ([]analytics.IDMapping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT external_id, uid FROM id_mapping ORDER BY external_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query id mapping: %w", err)
	}
	defer rows.Close()

	var out []analytics.IDMapping
	for rows.Next() {
		var m analytics.IDMapping
		var uid int64
		if err := rows.Scan(&m.ExternalID, &uid); err != nil {
			return nil, fmt.Errorf("failed to scan id mapping: %w", err)
		}
		m.InternalID = analytics.AgentID(uid)
		out = append(out, m)
	}
	return out, rows.Err()
}
