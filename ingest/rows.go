/*
Package ingest owns the ingestion contract: already-parsed rows come in from
the upload/parsing collaborator, get validated structurally, and are applied
as a new atomically published snapshot.

PURPOSE:
  The engine never sees half-ingested data. Validation collects every
  structural problem (missing required field, unparseable value) across all
  four tables and, on any failure, applies nothing. On success a new
  snapshot is reconciled off to the side, persisted, and swapped in.

APPLY SEMANTICS:
  - Agent rows upsert by identifier: matching IDs replace, unseen IDs insert
  - Points, social security and ID mappings replace wholesale, which makes
    re-ingesting an identical dataset idempotent

SEE ALSO:
  - analytics/reconcile.go: Snapshot construction this package feeds
  - store/sqlite: Persistence of the four source tables
*/
package ingest

// Rows is the ingestion payload: four tables of already-parsed rows.
// Spreadsheet mechanics (sheet names, column headers, cell coercion) are the
// upload collaborator's problem; by this point rows are plain values.
type Rows struct {
	Agents         []AgentRow          `json:"agents"`
	Points         []PointsRow         `json:"points"`
	SocialSecurity []SocialSecurityRow `json:"social_security"`
	Mappings       []MappingRow        `json:"mappings"`
}

// AgentRow is one roster row. Per-year metrics are keyed by statistical year.
// Either AgentID or ExternalID must be set; external IDs resolve through the
// mapping table during reconciliation.
type AgentRow struct {
	AgentID       int64  `json:"agent_id,omitempty"`
	ExternalID    string `json:"external_id,omitempty"`
	Name          string `json:"name"`
	JoinDate      string `json:"join_date,omitempty"` // YYYY-MM-DD
	Region        string `json:"region,omitempty"`
	Education     string `json:"education,omitempty"`
	IsPeer        string `json:"is_peer,omitempty"`
	PersonalLevel string `json:"personal_level,omitempty"`
	ManagerLevel  string `json:"manager_level,omitempty"`
	DirectorLevel string `json:"director_level,omitempty"`

	FYP         map[int]float64 `json:"fyp,omitempty"`
	APE         map[int]float64 `json:"ape,omitempty"`
	FYC         map[int]float64 `json:"fyc,omitempty"`
	Income      map[int]float64 `json:"income,omitempty"`
	MDQualified map[int]bool    `json:"md_qualified,omitempty"`
}

// PointsRow is one points ledger row. Either AgentID or ExternalID must be
// set; external IDs resolve through the mapping table during reconciliation.
type PointsRow struct {
	AgentID    int64   `json:"agent_id,omitempty"`
	ExternalID string  `json:"external_id,omitempty"`
	Year       int     `json:"year"`
	Type       string  `json:"type"` // "accrued" | "cash-out"
	Amount     float64 `json:"amount"`
}

// SocialSecurityRow is one monthly contribution row.
type SocialSecurityRow struct {
	Name          string  `json:"name"`
	Region        string  `json:"region,omitempty"`
	ServiceMonth  string  `json:"service_month"` // "YYYY-MM" or "YYYYMM"
	CompanyTotal  float64 `json:"company_total"`
	PersonalTotal float64 `json:"personal_total"`
}

// MappingRow links an external textual identifier to an internal numeric one.
type MappingRow struct {
	ExternalID string `json:"external_id"`
	UID        int64  `json:"uid"`
}
