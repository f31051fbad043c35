package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accident-pipeline/internal/causes"
	"accident-pipeline/internal/model"
)

var testNow = time.Date(2026, 8, 30, 15, 42, 0, 0, time.UTC)

// testRecord builds a record with every projected column present.
func testRecord(code, date string) model.GenericRecord {
	rec := make(model.GenericRecord, len(DefaultColumns))
	for _, col := range DefaultColumns {
		rec[col] = "x"
	}
	rec[CauseColumn] = code
	rec[DateColumn] = date
	return rec
}

func daysAgo(days int) string {
	return testNow.AddDate(0, 0, -days).Format("2006-01-02")
}

func TestFilterExcludesListedCauseCodes(t *testing.T) {
	excluded := causes.Table{"T001": "Roadbed settled or soft"}
	f := NewFilter(excluded, nil, testNow, 3650)

	kept, sum, err := f.FilterRecords([]model.GenericRecord{
		testRecord("T001", daysAgo(30)),
		testRecord("X200", daysAgo(30)),
		testRecord("T001", daysAgo(60)),
	})
	require.NoError(t, err)

	require.Len(t, kept, 1)
	assert.Equal(t, "X200", kept[0][CauseColumn])
	assert.Equal(t, 2, sum.ExcludedByCode)
	for _, rec := range kept {
		assert.NotEqual(t, "T001", rec[CauseColumn])
	}
}

func TestFilterCutoffBoundary(t *testing.T) {
	f := NewFilter(causes.Table{}, nil, testNow, 3650)

	tests := []struct {
		name string
		date string
		keep bool
	}{
		{"well inside window", daysAgo(100), true},
		{"exactly at cutoff", daysAgo(3650), true},
		{"one day past cutoff", daysAgo(3651), false},
		{"today", daysAgo(0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sum model.FilterSummary
			_, keep, err := f.Apply(testRecord("X200", tt.date), &sum)
			require.NoError(t, err)
			assert.Equal(t, tt.keep, keep)
		})
	}
}

func TestFilterProjectsToColumnSubset(t *testing.T) {
	f := NewFilter(causes.Table{}, nil, testNow, 3650)

	rec := testRecord("X200", daysAgo(10))
	rec["joint_cd"] = "1"
	rec["narrative"] = "derailment near yard limit"

	var sum model.FilterSummary
	projected, keep, err := f.Apply(rec, &sum)
	require.NoError(t, err)
	require.True(t, keep)

	assert.Len(t, projected, len(DefaultColumns))
	assert.NotContains(t, projected, "narrative")
	assert.NotContains(t, projected, "joint_cd")
}

func TestFilterMissingColumnFatal(t *testing.T) {
	f := NewFilter(causes.Table{}, nil, testNow, 3650)

	rec := testRecord("X200", daysAgo(10))
	delete(rec, "station")

	var sum model.FilterSummary
	_, _, err := f.Apply(rec, &sum)
	require.ErrorIs(t, err, ErrSchema)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "station", schemaErr.Column)
}

func TestFilterUnparsableDateFatal(t *testing.T) {
	f := NewFilter(causes.Table{}, nil, testNow, 3650)

	tests := []struct {
		name string
		date interface{}
	}{
		{"garbage string", "not-a-date"},
		{"null date", nil},
		{"numeric date", 20150305.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testRecord("X200", "")
			rec[DateColumn] = tt.date
			var sum model.FilterSummary
			_, _, err := f.Apply(rec, &sum)
			assert.ErrorIs(t, err, ErrDateParse)
		})
	}
}

func TestFilterSummaryDateRange(t *testing.T) {
	f := NewFilter(causes.Table{}, nil, testNow, 3650)

	kept, sum, err := f.FilterRecords([]model.GenericRecord{
		testRecord("X200", daysAgo(700)),
		testRecord("X201", daysAgo(40)),
		testRecord("X202", daysAgo(365)),
	})
	require.NoError(t, err)
	require.Len(t, kept, 3)

	wantMin, _ := ParseDate(daysAgo(700))
	wantMax, _ := ParseDate(daysAgo(40))
	assert.Equal(t, wantMin, sum.MinDate)
	assert.Equal(t, wantMax, sum.MaxDate)
	assert.Equal(t, 3, sum.Kept)
	assert.Equal(t, 0, sum.Dropped())
}

func TestFilterCustomColumns(t *testing.T) {
	f := NewFilter(causes.Table{}, []string{"accidentnumber", "date", CauseColumn}, testNow, 3650)

	rec := testRecord("X200", daysAgo(5))
	var sum model.FilterSummary
	projected, keep, err := f.Apply(rec, &sum)
	require.NoError(t, err)
	require.True(t, keep)
	assert.Len(t, projected, 3)
}

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2015, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
	}{
		{"socrata floating timestamp", "2015-03-05T00:00:00.000"},
		{"plain date", "2015-03-05"},
		{"rfc3339", "2015-03-05T00:00:00Z"},
		{"no fraction", "2015-03-05T00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.raw)
			require.NoError(t, err)
			assert.True(t, got.Equal(want))
		})
	}
}
