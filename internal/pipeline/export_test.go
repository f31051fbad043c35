package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accident-pipeline/internal/model"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	e := NewCSVExporter(path, nil)

	result, err := e.Export([]model.GenericRecord{
		testRecord("X200", "2025-01-02"),
		testRecord("X201", "2024-06-15"),
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.RecordCount)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, DefaultColumns, rows[0])
	// One cell per column, no index column prepended.
	assert.Len(t, rows[1], len(DefaultColumns))
}

func TestExportOverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	e := NewCSVExporter(path, nil)

	_, err := e.Export([]model.GenericRecord{
		testRecord("X200", "2025-01-02"),
		testRecord("X201", "2025-01-03"),
		testRecord("X202", "2025-01-04"),
	})
	require.NoError(t, err)

	_, err = e.Export([]model.GenericRecord{
		testRecord("X300", "2025-02-01"),
	})
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
}

func TestExportRendersScalars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	columns := []string{"accidentnumber", "trainspeed", "latitude", "station"}
	e := NewCSVExporter(path, columns)

	_, err := e.Export([]model.GenericRecord{{
		"accidentnumber": "A0001",
		"trainspeed":     float64(35),
		"latitude":       41.8781,
		"station":        nil,
	}})
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"A0001", "35", "41.8781", ""}, rows[1])
}

func TestExportEmptyDatasetStillWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	e := NewCSVExporter(path, nil)

	result, err := e.Export(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.RecordCount)

	rows := readCSV(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, DefaultColumns, rows[0])
}

func TestExportCreateFailure(t *testing.T) {
	// The target path is a directory, so os.Create must fail.
	e := NewCSVExporter(t.TempDir(), nil)

	_, err := e.Export([]model.GenericRecord{testRecord("X200", "2025-01-02")})
	assert.ErrorIs(t, err, ErrWrite)
}

func TestExportStreamingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	e := NewCSVExporter(path, nil)

	w, err := e.Begin()
	require.NoError(t, err)
	require.NoError(t, w.WriteRecord(testRecord("X200", "2025-01-02")))
	require.NoError(t, w.WriteRecord(testRecord("X201", "2025-01-03")))
	assert.Equal(t, 2, w.Count())

	result, err := w.Close()
	require.NoError(t, err)
	assert.Equal(t, 2, result.RecordCount)

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
}
