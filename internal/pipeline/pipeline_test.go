package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accident-pipeline/internal/model"
	"accident-pipeline/internal/store"
)

func setupRunStore(t *testing.T) {
	t.Helper()
	require.NoError(t, store.InitDB(filepath.Join(t.TempDir(), "runs.db")))
}

func datedRecord(code string, date time.Time) model.GenericRecord {
	return testRecord(code, date.Format("2006-01-02"))
}

func datedRecords(n int, date time.Time) []model.GenericRecord {
	recs := make([]model.GenericRecord, n)
	for i := range recs {
		recs[i] = datedRecord("X200", date)
	}
	return recs
}

func causeColumn(t *testing.T, rows [][]string) []string {
	t.Helper()
	idx := -1
	for i, col := range rows[0] {
		if col == CauseColumn {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)

	var codes []string
	for _, row := range rows[1:] {
		codes = append(codes, row[idx])
	}
	return codes
}

func TestRunEndToEnd(t *testing.T) {
	setupRunStore(t)
	now := time.Now().UTC()

	// T001 is excluded by the built-in cause table regardless of date; the
	// 11-year-old record falls outside the lookback window.
	records := []model.GenericRecord{
		datedRecord("T001", now.AddDate(-2, 0, 0)),
		datedRecord("X200", now.AddDate(-2, 0, 0)),
		datedRecord("X201", now.AddDate(-1, 0, 0)),
		datedRecord("X202", now.AddDate(-11, 0, 0)),
	}
	srv, _ := pagedServer(t, records, 0)

	out := filepath.Join(t.TempDir(), "accidents.csv")
	job := model.ExportJobSpec{BaseURL: srv.URL, PageSize: 2, OutputFile: out}

	runID := uuid.New().String()
	require.NoError(t, store.SaveRun(runID, job))
	require.NoError(t, Run(context.Background(), runID, job))

	rows := readCSV(t, out)
	require.Len(t, rows, 3)
	assert.Equal(t, DefaultColumns, rows[0])
	assert.Equal(t, []string{"X200", "X201"}, causeColumn(t, rows))

	run, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "completed", run["status"])

	summary, err := store.GetRunSummary(runID)
	require.NoError(t, err)
	assert.Equal(t, 4, summary["fetched"])
	assert.Equal(t, 2, summary["kept"])
	assert.Equal(t, 1, summary["excludedByCode"])
	assert.Equal(t, 1, summary["outsideWindow"])
	assert.Equal(t, true, summary["complete"])
}

func TestRunFailsOnPartialFetch(t *testing.T) {
	setupRunStore(t)
	now := time.Now().UTC()

	srv, _ := pagedServer(t, datedRecords(30, now.AddDate(0, 0, -30)), 2)

	out := filepath.Join(t.TempDir(), "accidents.csv")
	job := model.ExportJobSpec{BaseURL: srv.URL, PageSize: 10, OutputFile: out}

	runID := uuid.New().String()
	require.NoError(t, store.SaveRun(runID, job))

	err := Run(context.Background(), runID, job)
	require.ErrorIs(t, err, ErrStatus)

	// No partial file left behind that could be mistaken for a complete export.
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))

	run, gerr := store.GetRun(runID)
	require.NoError(t, gerr)
	assert.Equal(t, "failed", run["status"])

	errors, eerr := store.GetRunErrors(runID)
	require.NoError(t, eerr)
	require.NotEmpty(t, errors)
}

func TestRunPartialExportAllowed(t *testing.T) {
	setupRunStore(t)
	now := time.Now().UTC()

	srv, _ := pagedServer(t, datedRecords(30, now.AddDate(0, 0, -30)), 2)

	out := filepath.Join(t.TempDir(), "accidents.csv")
	job := model.ExportJobSpec{
		BaseURL:            srv.URL,
		PageSize:           10,
		OutputFile:         out,
		AllowPartialExport: true,
	}

	runID := uuid.New().String()
	require.NoError(t, store.SaveRun(runID, job))
	require.NoError(t, Run(context.Background(), runID, job))

	// Only the page fetched before the failure is exported.
	rows := readCSV(t, out)
	require.Len(t, rows, 11)

	run, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "completed_partial", run["status"])

	summary, serr := store.GetRunSummary(runID)
	require.NoError(t, serr)
	assert.Equal(t, false, summary["complete"])
}

func TestRunSchemaViolationFatal(t *testing.T) {
	setupRunStore(t)
	now := time.Now().UTC()

	bad := datedRecord("X200", now.AddDate(0, 0, -5))
	delete(bad, "station")
	srv, _ := pagedServer(t, []model.GenericRecord{bad}, 0)

	out := filepath.Join(t.TempDir(), "accidents.csv")
	job := model.ExportJobSpec{BaseURL: srv.URL, PageSize: 10, OutputFile: out}

	runID := uuid.New().String()
	require.NoError(t, store.SaveRun(runID, job))

	err := Run(context.Background(), runID, job)
	require.ErrorIs(t, err, ErrSchema)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunWithExternalCausesFile(t *testing.T) {
	setupRunStore(t)
	now := time.Now().UTC()

	// The external table replaces the built-in one entirely: T001 passes,
	// X200 is excluded.
	causesPath := filepath.Join(t.TempDir(), "causes.json")
	table, err := json.Marshal(map[string]string{"X200": "synthetic exclusion"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(causesPath, table, 0644))

	records := []model.GenericRecord{
		datedRecord("T001", now.AddDate(0, 0, -10)),
		datedRecord("X200", now.AddDate(0, 0, -10)),
	}
	srv, _ := pagedServer(t, records, 0)

	out := filepath.Join(t.TempDir(), "accidents.csv")
	job := model.ExportJobSpec{
		BaseURL:    srv.URL,
		PageSize:   10,
		OutputFile: out,
		CausesFile: causesPath,
	}

	runID := uuid.New().String()
	require.NoError(t, store.SaveRun(runID, job))
	require.NoError(t, Run(context.Background(), runID, job))

	rows := readCSV(t, out)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"T001"}, causeColumn(t, rows))
}
