package pipeline

import (
	"time"

	"accident-pipeline/internal/causes"
	"accident-pipeline/internal/model"
)

// DefaultColumns is the projected column subset. The order is the CSV header
// order and must not change without coordinating with downstream consumers.
var DefaultColumns = []string{
	"reportingrailroadcode",
	"accidentnumber",
	"date",
	"time",
	"accidenttype",
	"hazmatreleasedcars",
	"station",
	"stateabbr",
	"temperature",
	"visibility_code",
	"visibility",
	"weathercondition",
	"tracktype",
	"equipmenttype",
	"trainspeed",
	"equipmentdamagecost",
	"trackdamagecost",
	"totaldamagecost",
	"primaryaccidentcausecode",
	"latitude",
	"longitude",
}

const (
	// CauseColumn carries the primary determined cause of an incident.
	CauseColumn = "primaryaccidentcausecode"
	// DateColumn carries the incident calendar date.
	DateColumn = "date"
	// DefaultLookbackDays is the trailing window restricting output to
	// recent records.
	DefaultLookbackDays = 3650
)

// dateLayouts are the timestamp formats the source feed has been observed
// to emit.
var dateLayouts = []string{
	"2006-01-02T15:04:05.000",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Filter drops records whose cause code is excluded, projects each record to
// the configured column subset, and keeps only records inside the lookback
// window. The cutoff is computed once at construction, so every record in a
// run is compared against the same instant.
type Filter struct {
	Excluded causes.Set
	Columns  []string
	Cutoff   time.Time
}

// NewFilter builds a filter whose cutoff is the calendar date of now minus
// lookbackDays. The lower bound is inclusive: a record dated exactly at the
// cutoff is kept.
func NewFilter(excluded causes.Set, columns []string, now time.Time, lookbackDays int) *Filter {
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return &Filter{
		Excluded: excluded,
		Columns:  columns,
		Cutoff:   day.AddDate(0, 0, -lookbackDays),
	}
}

// Apply filters a single record. A nil error with keep=false means the
// record was dropped by rule; a non-nil error is fatal for the run (missing
// projected column or unparsable date, both contract violations of the
// external schema assumption).
func (f *Filter) Apply(rec model.GenericRecord, sum *model.FilterSummary) (model.GenericRecord, bool, error) {
	code, _ := rec[CauseColumn].(string)
	if f.Excluded != nil && f.Excluded.Contains(code) {
		sum.ExcludedByCode++
		return nil, false, nil
	}

	projected := make(model.GenericRecord, len(f.Columns))
	for _, col := range f.Columns {
		v, ok := rec[col]
		if !ok {
			return nil, false, &SchemaError{Column: col}
		}
		projected[col] = v
	}

	raw, _ := projected[DateColumn].(string)
	d, err := ParseDate(raw)
	if err != nil {
		return nil, false, err
	}
	if d.Before(f.Cutoff) {
		sum.OutsideWindow++
		return nil, false, nil
	}

	sum.Kept++
	sum.Observe(d)
	return projected, true, nil
}

// FilterRecords applies the filter to a collected dataset, preserving input
// order.
func (f *Filter) FilterRecords(records []model.GenericRecord) ([]model.GenericRecord, model.FilterSummary, error) {
	var sum model.FilterSummary
	kept := make([]model.GenericRecord, 0, len(records))
	for _, rec := range records {
		projected, keep, err := f.Apply(rec, &sum)
		if err != nil {
			return nil, sum, err
		}
		if keep {
			kept = append(kept, projected)
		}
	}
	return kept, sum, nil
}

// ParseDate interprets a record's date field as a calendar date.
func ParseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, nil
		}
	}
	return time.Time{}, &DateParseError{Value: raw}
}
