package ingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/agent-analytics/analytics"
	"github.com/warp/agent-analytics/ingest"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T, store ingest.Store) (*ingest.Service, *analytics.Holder) {
	t.Helper()
	holder := analytics.NewHolder()
	return ingest.NewService(holder, store, zap.NewNop()), holder
}

func goodRows() ingest.Rows {
	return ingest.Rows{
		Agents: []ingest.AgentRow{
			{
				AgentID:  1,
				Name:     "张伟",
				JoinDate: "2022-03-01",
				Region:   "北京",
				FYP:      map[int]float64{2024: 60000},
				FYC:      map[int]float64{2024: 1000},
			},
			{
				AgentID:  2,
				Name:     "王芳",
				JoinDate: "2023-06-10",
				Region:   "上海",
				FYP:      map[int]float64{2024: 30000},
			},
		},
		Points: []ingest.PointsRow{
			{AgentID: 1, Year: 2024, Type: "accrued", Amount: 100},
		},
		SocialSecurity: []ingest.SocialSecurityRow{
			{Name: "张伟", Region: "北京", ServiceMonth: "2024-03", CompanyTotal: 500},
			{Name: "李娜", Region: "北京", ServiceMonth: "2024-03", CompanyTotal: 500},
		},
		Mappings: []ingest.MappingRow{{ExternalID: "EXT-1", UID: 1}},
	}
}

// recordingStore keeps the last persisted dataset.
type recordingStore struct {
	last analytics.SourceTables
}

func (r *recordingStore) ReplaceDataset(_ context.Context, tables analytics.SourceTables) error {
	r.last = tables
	return nil
}
func (r *recordingStore) LoadDataset(context.Context) (analytics.SourceTables, error) {
	return r.last, nil
}
func (r *recordingStore) Reset(context.Context) error {
	r.last = analytics.SourceTables{}
	return nil
}

// failingStore rejects every write.
type failingStore struct{}

func (failingStore) ReplaceDataset(context.Context, analytics.SourceTables) error {
	return errors.New("disk full")
}
func (failingStore) LoadDataset(context.Context) (analytics.SourceTables, error) {
	return analytics.SourceTables{}, nil
}
func (failingStore) Reset(context.Context) error { return errors.New("disk full") }

// =============================================================================
// INGESTION
// =============================================================================

func TestService_IngestPublishesSnapshot(t *testing.T) {
	// GIVEN: A fresh memory-only service
	// WHEN: Ingesting a clean payload
	// THEN: The summary reports what was applied and the holder serves the
	//       new snapshot

	svc, holder := newTestService(t, nil)

	sum, err := svc.Ingest(context.Background(), goodRows())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.AgentRows)
	assert.Equal(t, 1, sum.PointsRows)
	assert.Equal(t, 2, sum.SocialSecurityRows)
	assert.Equal(t, 1, sum.MappingRows)
	assert.Equal(t, 2, sum.TotalAgents)
	assert.Equal(t, 1, sum.MatchedSocialSecRows, "李娜 has no roster row")

	s := holder.Current()
	assert.Equal(t, sum.SnapshotVersion, s.Version)
	assert.Equal(t, 2022, s.Agent(1).JoinYear, "join year derived from join date")
	assert.Equal(t, 2, s.ActiveCount(2024))
}

func TestService_IngestResolvesExternallyKeyedRosterRows(t *testing.T) {
	// GIVEN: A roster row carrying only an external textual ID, plus its
	//        mapping row
	// WHEN: Ingesting the payload end to end with a store attached
	// THEN: The row passes validation, lands under its mapped numeric ID,
	//       and the store receives the resolved identifier

	store := &recordingStore{}
	svc, holder := newTestService(t, store)

	rows := goodRows()
	rows.Agents = append(rows.Agents, ingest.AgentRow{
		ExternalID: "EXT-9",
		Name:       "李娜",
		JoinDate:   "2024-02-01",
		Region:     "北京",
	})
	rows.Mappings = append(rows.Mappings, ingest.MappingRow{ExternalID: "EXT-9", UID: 9})

	sum, err := svc.Ingest(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.TotalAgents)

	rec := holder.Current().Agent(9)
	require.NotNil(t, rec, "externally keyed row resolved to agent 9")
	assert.Equal(t, "李娜", rec.Name)
	assert.Equal(t, 2024, rec.JoinYear)

	ids := make(map[analytics.AgentID]bool)
	for _, a := range store.last.Agents {
		ids[a.ID] = true
	}
	assert.True(t, ids[9], "store holds the resolved identifier")
	assert.False(t, ids[0], "no unresolved rows persisted")
}

func TestService_ValidationFailureAppliesNothing(t *testing.T) {
	// GIVEN: A service holding a good dataset
	// WHEN: Ingesting a payload with a structural problem
	// THEN: The error lists the problem and the published snapshot is
	//       untouched

	svc, holder := newTestService(t, nil)
	sum, err := svc.Ingest(context.Background(), goodRows())
	require.NoError(t, err)

	bad := goodRows()
	bad.Points[0].Year = 2019
	_, err = svc.Ingest(context.Background(), bad)

	var verr *ingest.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, sum.SnapshotVersion, holder.Current().Version, "snapshot unchanged")
}

func TestService_PersistenceFailureKeepsPriorSnapshot(t *testing.T) {
	// GIVEN: A store that rejects writes
	// WHEN: Ingesting a valid payload
	// THEN: The error surfaces and the empty snapshot stays published; the
	//       API never serves data the store does not hold

	svc, holder := newTestService(t, failingStore{})
	before := holder.Current().Version

	_, err := svc.Ingest(context.Background(), goodRows())
	require.Error(t, err)
	assert.Equal(t, before, holder.Current().Version)
}

func TestService_ReingestIsIdempotent(t *testing.T) {
	// GIVEN: One applied payload
	// WHEN: Ingesting the identical payload again
	// THEN: Aggregates are unchanged; points and SS never double-count

	svc, holder := newTestService(t, nil)
	_, err := svc.Ingest(context.Background(), goodRows())
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), goodRows())
	require.NoError(t, err)

	res, err := analytics.AggregateMargin(holder.Current(), analytics.MarginRequest{
		GroupBy: analytics.DimRegion,
		Year:    2024,
	})
	require.NoError(t, err)

	// FYC 1000 - points 100 - employer SS 500.
	assert.Equal(t, "400", res.Summary.TotalMargin.String())
	assert.Equal(t, 2, res.Summary.AgentCount)
}

// =============================================================================
// CLEAR & RESTORE
// =============================================================================

func TestService_ClearPublishesEmptySnapshot(t *testing.T) {
	svc, holder := newTestService(t, nil)
	_, err := svc.Ingest(context.Background(), goodRows())
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background()))
	assert.Equal(t, 0, holder.Current().AgentCount())
}

func TestService_RestoreWithoutStoreIsNoop(t *testing.T) {
	svc, holder := newTestService(t, nil)
	before := holder.Current().Version

	require.NoError(t, svc.Restore(context.Background()))
	assert.Equal(t, before, holder.Current().Version)
}

// =============================================================================
// ROW CONVERSION
// =============================================================================

func TestConvert_DerivesJoinYear(t *testing.T) {
	tables := ingest.Convert(ingest.Rows{
		Agents: []ingest.AgentRow{
			{AgentID: 1, JoinDate: "2023-06-10"},
			{AgentID: 2},
		},
	})
	require.Len(t, tables.Agents, 2)
	assert.Equal(t, 2023, tables.Agents[0].JoinYear)
	assert.Equal(t, 0, tables.Agents[1].JoinYear, "no join date, cohort unknown")
}
