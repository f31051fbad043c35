package model

import "time"

// FetchResult reports how a paginated fetch ended. A complete fetch drained
// the endpoint down to its first empty page; a partial one aborted early and
// carries the cause alongside whatever was accumulated before the failure.
type FetchResult struct {
	Records  []GenericRecord `json:"-"`
	Fetched  int             `json:"fetched"`
	Pages    int             `json:"pages"`
	Calls    int             `json:"calls"`
	Complete bool            `json:"complete"`
	Cause    error           `json:"-"`
}

// FilterSummary counts what the row filter did and tracks the observed date
// range of the kept records.
type FilterSummary struct {
	Kept           int       `json:"kept"`
	ExcludedByCode int       `json:"excluded_by_code"`
	OutsideWindow  int       `json:"outside_window"`
	MinDate        time.Time `json:"min_date"`
	MaxDate        time.Time `json:"max_date"`
}

// Observe folds one kept record's date into the min/max range.
func (s *FilterSummary) Observe(d time.Time) {
	if s.MinDate.IsZero() || d.Before(s.MinDate) {
		s.MinDate = d
	}
	if d.After(s.MaxDate) {
		s.MaxDate = d
	}
}

// Dropped returns the total number of records removed by filter rules.
func (s *FilterSummary) Dropped() int {
	return s.ExcludedByCode + s.OutsideWindow
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Path        string    `json:"path"`
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}

// RunSummary is the persisted outcome of one export run.
type RunSummary struct {
	Fetched        int       `json:"fetched"`
	Pages          int       `json:"pages"`
	Kept           int       `json:"kept"`
	ExcludedByCode int       `json:"excluded_by_code"`
	OutsideWindow  int       `json:"outside_window"`
	MinDate        time.Time `json:"min_date"`
	MaxDate        time.Time `json:"max_date"`
	OutputPath     string    `json:"output_path"`
	Complete       bool      `json:"complete"`
}
