package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iller5/content-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleSummary() *model.RunSummary {
	return &model.RunSummary{
		RowsRead:        42,
		AlreadyImported: 10,
		Malformed:       2,
		ImageOnly:       3,
		Enriched:        25,
		Failed:          2,
		Banks:           map[string]int{"kardiologi.yaml": 15, "neurologi.yaml": 10},
		InputTokens:     52000,
		OutputTokens:    14000,
		Cost:            0.37,
		Failures: []model.RecordFailure{
			{SourceID: "MEQ-7", Reason: "refine: parse response for MEQ-7"},
		},
	}
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "New_questions.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "New_questions.csv", got.SourceFile)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Nil(t, got.Summary)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLite_CompleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "New_questions.csv")
	require.NoError(t, err)

	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunStatusComplete, sampleSummary()))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 42, got.Summary.RowsRead)
	assert.Equal(t, 25, got.Summary.Enriched)
	assert.Equal(t, 15, got.Summary.Banks["kardiologi.yaml"])
	require.Len(t, got.Summary.Failures, 1)
	assert.Equal(t, "MEQ-7", got.Summary.Failures[0].SourceID)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestSQLite_CompleteRun_NilSummary(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "New_questions.csv")
	require.NoError(t, err)

	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunStatusFailed, nil))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Nil(t, got.Summary)
}

func TestSQLite_CompleteRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.CompleteRun(context.Background(), "nonexistent-run", model.RunStatusComplete, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.CreateRun(ctx, "tenta_vt24.csv")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "tenta_ht24.csv")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "tenta_vt24.csv")
	require.NoError(t, err)

	require.NoError(t, st.CompleteRun(ctx, first.ID, model.RunStatusComplete, sampleSummary()))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, first.ID, complete[0].ID)
	require.NotNil(t, complete[0].Summary)
	assert.Equal(t, 42, complete[0].Summary.RowsRead)

	bySource, err := st.ListRuns(ctx, RunFilter{SourceFile: "tenta_vt24.csv"})
	require.NoError(t, err)
	assert.Len(t, bySource, 2)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	recent, err := st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	none, err := st.ListRuns(ctx, RunFilter{CreatedAfter: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_ListRuns_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	runs, err := st.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}
