package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"accident-pipeline/internal/model"
)

// CSVExporter serializes filtered records to a comma-separated UTF-8 file
// with a header row matching the projected column list. Any existing file at
// the path is overwritten unconditionally; there is no append mode and no
// atomic-write guarantee.
type CSVExporter struct {
	Path    string
	Columns []string
}

// NewCSVExporter returns an exporter for the given target path.
func NewCSVExporter(path string, columns []string) *CSVExporter {
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	return &CSVExporter{Path: path, Columns: columns}
}

// ExportWriter is an open export target accepting one record at a time.
type ExportWriter struct {
	path    string
	file    *os.File
	writer  *csv.Writer
	columns []string
	count   int
}

// Begin truncates the target file and writes the header row.
func (e *CSVExporter) Begin() (*ExportWriter, error) {
	dir := filepath.Dir(e.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %v", ErrWrite, err)
	}

	file, err := os.Create(e.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: create output file: %v", ErrWrite, err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(e.Columns); err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: write header: %v", ErrWrite, err)
	}

	return &ExportWriter{path: e.Path, file: file, writer: w, columns: e.Columns}, nil
}

// WriteRecord appends one row in column order. No row index is emitted.
func (w *ExportWriter) WriteRecord(rec model.GenericRecord) error {
	row := make([]string, len(w.columns))
	for i, col := range w.columns {
		row[i] = renderValue(rec[col])
	}
	if err := w.writer.Write(row); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	w.count++
	return nil
}

// Count returns the number of data rows written so far.
func (w *ExportWriter) Count() int { return w.count }

// Close flushes and closes the file, reporting the export outcome.
func (w *ExportWriter) Close() (model.ExportResult, error) {
	w.writer.Flush()
	err := w.writer.Error()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}

	result := model.ExportResult{
		Path:        w.path,
		RecordCount: w.count,
		Success:     err == nil,
		ExportedAt:  time.Now().UTC(),
	}
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return result, nil
}

// Export writes a collected dataset in one call.
func (e *CSVExporter) Export(records []model.GenericRecord) (model.ExportResult, error) {
	w, err := e.Begin()
	if err != nil {
		return model.ExportResult{Path: e.Path, Error: err.Error()}, err
	}
	for _, rec := range records {
		if werr := w.WriteRecord(rec); werr != nil {
			w.file.Close()
			return model.ExportResult{Path: e.Path, RecordCount: w.count, Error: werr.Error()}, werr
		}
	}
	return w.Close()
}

// renderValue stringifies one scalar cell. JSON numbers arrive as float64;
// nulls become empty cells.
func renderValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
