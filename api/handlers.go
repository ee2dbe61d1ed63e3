/*
handlers.go - HTTP API handlers for the agent analytics engine

PURPOSE:
  Exposes the analytics engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Data lifecycle:
    POST   /api/ingest              Apply one validated dataset
    POST   /api/clear-data          Drop everything, publish empty snapshot

  Overview:
    GET    /api/health              Liveness + snapshot version
    GET    /api/summary             Agent counts, match rate
    GET    /api/filters             Distinct filter values

  Analysis:
    POST   /api/margin-analysis     Grouped/cross margin contribution
    POST   /api/retention-analysis  Cohort retention curves
    POST   /api/efficiency-trend    Per-year per-group averages

  Drill-down:
    GET    /api/agent-detail/{id}   One agent, per-year cost breakdown
    POST   /api/group-agents        Agents behind one group value

ARCHITECTURE:
  Handler reads from a snapshot holder, never from the database. Reads
  are lock-free; the ingestion service is the only writer and publishes
  complete snapshots atomically. Every analysis request runs against one
  consistent snapshot even while an ingest is in flight.

REQUEST FLOW:
  1. Parse HTTP request
  2. Pin the current snapshot
  3. Call the aggregation engine
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unknown dimension/metric/year
  - 404: Agent not found
  - 500: Internal errors
  Undefined ratios and empty groups are data, not errors; they come back
  as nulls and empty lists inside 200 responses.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ingest/service.go: The write side behind POST /api/ingest
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/agent-analytics/analytics"
	"github.com/warp/agent-analytics/ingest"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Snapshots *analytics.Holder
	Ingest    *ingest.Service

	log *zap.Logger
}

// NewHandler creates a new handler over the given snapshot holder and
// ingestion service.
func NewHandler(holder *analytics.Holder, svc *ingest.Service, log *zap.Logger) *Handler {
	return &Handler{Snapshots: holder, Ingest: svc, log: log}
}

// =============================================================================
// DATA LIFECYCLE
// =============================================================================

// IngestData applies one dataset.
// POST /api/ingest
func (h *Handler) IngestData(w http.ResponseWriter, r *http.Request) {
	var rows ingest.Rows
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	summary, err := h.Ingest.Ingest(r.Context(), rows)
	if err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Dataset failed validation; nothing was applied",
				Code:    "validation_failed",
				Details: verr.Problems,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to ingest dataset", err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// ClearData drops all ingested data and publishes an empty snapshot.
// POST /api/clear-data
func (h *Handler) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := h.Ingest.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// =============================================================================
// OVERVIEW
// =============================================================================

// Health reports liveness and which snapshot is being served.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.Snapshots.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"snapshot_version": snap.Version,
		"agents":           snap.AgentCount(),
	})
}

// GetSummary returns dataset-level counts for the current snapshot.
// GET /api/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	snap := h.Snapshots.Current()

	dto := SummaryDTO{
		SnapshotVersion:    snap.Version,
		IngestedAt:         snap.IngestedAt.Format(time.RFC3339),
		TotalAgents:        snap.AgentCount(),
		ActiveByYear:       make([]YearActiveDTO, 0, len(analytics.Years)),
		SocialSecurityRows: len(snap.SocialSecurity),
		MatchedRows:        snap.MatchedSocialSecurity(),
		PointsRows:         len(snap.Points),
	}
	for _, year := range analytics.Years {
		dto.ActiveByYear = append(dto.ActiveByYear, YearActiveDTO{
			Year:   year,
			Active: snap.ActiveCount(year),
		})
	}
	if dto.SocialSecurityRows > 0 {
		rate := float64(dto.MatchedRows) / float64(dto.SocialSecurityRows)
		dto.MatchRate = &rate
	}

	writeJSON(w, http.StatusOK, dto)
}

// GetFilters returns the distinct values each filter key can take.
// GET /api/filters
func (h *Handler) GetFilters(w http.ResponseWriter, r *http.Request) {
	snap := h.Snapshots.Current()

	regions := newStringSet()
	personal := newStringSet()
	manager := newStringSet()
	director := newStringSet()
	education := newStringSet()
	isPeer := newStringSet()
	joinYears := map[int]bool{}

	for _, a := range snap.Agents {
		regions.add(a.Region)
		personal.add(a.PersonalLevel)
		manager.add(a.ManagerLevel)
		director.add(a.DirectorLevel)
		education.add(a.Education)
		isPeer.add(a.IsPeer)
		if a.JoinYear != 0 {
			joinYears[a.JoinYear] = true
		}
	}

	years := make([]int, 0, len(joinYears))
	for y := range joinYears {
		years = append(years, y)
	}
	sort.Ints(years)

	writeJSON(w, http.StatusOK, FiltersDTO{
		Regions:        regions.sorted(),
		JoinYears:      years,
		PersonalLevels: personal.sorted(),
		ManagerLevels:  manager.sorted(),
		DirectorLevels: director.sorted(),
		Educations:     education.sorted(),
		IsPeer:         isPeer.sorted(),
		Tiers:          analytics.TierLabels(),
		Years:          append([]int{}, analytics.Years...),
		Dimensions: []string{
			string(analytics.DimRegion), string(analytics.DimJoinYear),
			string(analytics.DimPersonalLevel), string(analytics.DimManagerLevel),
			string(analytics.DimDirectorLevel), string(analytics.DimEducation),
			string(analytics.DimIsPeer), string(analytics.DimFYPTier),
			string(analytics.DimAPETier), string(analytics.DimMDQualified),
		},
		Metrics: []string{
			string(analytics.MetricAvgFYP), string(analytics.MetricAvgAPE),
			string(analytics.MetricAvgFYC), string(analytics.MetricAvgMargin),
		},
	})
}

// =============================================================================
// ANALYSIS
// =============================================================================

// MarginAnalysis runs the margin contribution aggregation.
// POST /api/margin-analysis
func (h *Handler) MarginAnalysis(w http.ResponseWriter, r *http.Request) {
	var req MarginAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	engineReq := analytics.MarginRequest{
		Filter:  req.Filters.toFilter(),
		GroupBy: analytics.Dimension(req.GroupBy),
		CrossBy: analytics.Dimension(req.CrossGroupBy),
		Year:    req.Year,
	}

	snap := h.Snapshots.Current()
	res, err := analytics.AggregateMargin(snap, engineReq)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var cmp *analytics.MarginComparison
	if req.Compare {
		if cmp, err = analytics.CompareMarginYoY(snap, engineReq); err != nil {
			writeEngineError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toMarginResponse(res, cmp))
}

// RetentionAnalysis runs the cohort retention aggregation.
// POST /api/retention-analysis
func (h *Handler) RetentionAnalysis(w http.ResponseWriter, r *http.Request) {
	var req RetentionAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := analytics.AggregateRetention(h.Snapshots.Current(), analytics.RetentionRequest{
		Filter:  req.Filters.toFilter(),
		GroupBy: analytics.Dimension(req.GroupBy),
		Year:    req.Year,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRetentionResponse(res))
}

// EfficiencyTrend runs the per-year efficiency aggregation.
// POST /api/efficiency-trend
func (h *Handler) EfficiencyTrend(w http.ResponseWriter, r *http.Request) {
	var req EfficiencyTrendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := analytics.AggregateEfficiency(h.Snapshots.Current(), analytics.EfficiencyRequest{
		Filter:  req.Filters.toFilter(),
		GroupBy: analytics.Dimension(req.GroupBy),
		Metric:  analytics.Metric(req.Metric),
		Year:    req.Year,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEfficiencyResponse(res))
}

// =============================================================================
// DRILL-DOWN
// =============================================================================

// AgentDetail returns one agent's enriched record.
// GET /api/agent-detail/{id}
func (h *Handler) AgentDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid agent id", err)
		return
	}

	agent := h.Snapshots.Current().Agent(analytics.AgentID(id))
	if agent == nil {
		writeError(w, http.StatusNotFound, "Agent not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toAgentDetailDTO(agent))
}

// GroupAgents lists the agents behind one group value of a grouped
// analysis, using the same filter and year the analysis used.
// POST /api/group-agents
func (h *Handler) GroupAgents(w http.ResponseWriter, r *http.Request) {
	var req GroupAgentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dim := analytics.Dimension(req.GroupBy)
	if err := analytics.CheckDimension(dim); err != nil {
		writeEngineError(w, err)
		return
	}
	year := req.Year
	if year == 0 {
		year = analytics.DefaultYear
	}
	if !analytics.KnownYear(year) {
		writeEngineError(w, analytics.ErrUnknownYear)
		return
	}

	filter := req.Filters.toFilter()
	resp := GroupAgentsResponse{
		GroupBy:    req.GroupBy,
		GroupValue: req.GroupValue,
		Year:       year,
		Agents:     []GroupAgentDTO{},
	}

	for _, a := range h.Snapshots.Current().Agents {
		if !filter.Match(a, year) || dim.Value(a, year) != req.GroupValue {
			continue
		}
		resp.Agents = append(resp.Agents, GroupAgentDTO{
			ID:       int64(a.ID),
			Name:     a.Name,
			Region:   a.Region,
			JoinYear: a.JoinYear,
			FYP:      a.FYP.Get(year).InexactFloat64(),
			FYC:      a.FYC.Get(year).InexactFloat64(),
			Margin:   a.Margin(year).Round(2).InexactFloat64(),
		})
	}
	resp.AgentCount = len(resp.Agents)

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine sentinels onto HTTP statuses. Anything the
// engine rejects up front is a client error.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analytics.ErrUnknownDimension):
		writeError(w, http.StatusBadRequest, "Unknown grouping dimension", err)
	case errors.Is(err, analytics.ErrUnknownMetric):
		writeError(w, http.StatusBadRequest, "Unknown efficiency metric", err)
	case errors.Is(err, analytics.ErrUnknownYear):
		writeError(w, http.StatusBadRequest, "Year outside covered range", err)
	default:
		writeError(w, http.StatusInternalServerError, "Analysis failed", err)
	}
}

type stringSet struct {
	seen map[string]bool
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]bool)}
}

func (s *stringSet) add(v string) {
	if v != "" {
		s.seen[v] = true
	}
}

func (s *stringSet) sorted() []string {
	out := make([]string, 0, len(s.seen))
	for v := range s.seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
