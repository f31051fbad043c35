package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"accident-pipeline/internal/causes"
	"accident-pipeline/internal/model"
	"accident-pipeline/internal/store"
)

// ------------------- Pipeline Runner -------------------

// Run executes one export run: paginated fetch, row filter, CSV export,
// processed page by page so memory stays bounded by the page size.
//
// A partial fetch (non-success status or transport failure mid-walk) fails
// the run unless the job opts into AllowPartialExport, in which case the run
// completes with status completed_partial. Schema and date-parse violations
// are always fatal.
func Run(ctx context.Context, runID string, job model.ExportJobSpec) (err error) {
	start := time.Now()
	log.Printf("starting export run %s (%s)", runID, job.BaseURL)
	store.UpdateRunStatus(runID, "running")

	defer func() {
		if err != nil {
			store.UpdateRunStatus(runID, "failed")
			store.SaveRunError(runID, "run", err)
		}
	}()

	excluded := causes.Set(causes.Default)
	if job.CausesFile != "" {
		table, lerr := causes.LoadFile(job.CausesFile)
		if lerr != nil {
			return lerr
		}
		excluded = table
	}

	filter := NewFilter(excluded, job.Columns, time.Now().UTC(), job.LookbackDays)
	fetcher := &Fetcher{
		BaseURL:     job.BaseURL,
		PageSize:    job.PageSize,
		StartOffset: job.StartOffset,
	}
	exporter := NewCSVExporter(job.OutputFile, filter.Columns)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make(chan model.GenericRecord, 256)

	// --- FETCH STAGE ---
	var fetchRes model.FetchResult
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(records) // safe: only this goroutine closes records

		fetchStart := time.Now()
		store.UpdateRunStatus(runID, "fetching")
		store.SaveStageProgress(runID, "fetch", "started", &fetchStart, nil, 0)

		fetchRes = fetcher.Stream(ctx, records)

		fetchEnd := time.Now()
		status := "completed"
		if !fetchRes.Complete {
			status = "aborted"
		}
		store.SaveStageProgress(runID, "fetch", status, &fetchStart, &fetchEnd, fetchRes.Fetched)
		store.SaveRunLog(runID, "fetch", "info", "fetch stage finished", map[string]interface{}{
			"records":  fetchRes.Fetched,
			"pages":    fetchRes.Pages,
			"calls":    fetchRes.Calls,
			"complete": fetchRes.Complete,
		})
	}()

	// --- FILTER + EXPORT STAGES ---
	// A single consumer keeps the output in source page order.
	abort := func(cause error) error {
		cancel()
		for range records {
		}
		wg.Wait()
		return cause
	}

	stageStart := time.Now()
	store.UpdateRunStatus(runID, "exporting")
	store.SaveStageProgress(runID, "export", "started", &stageStart, nil, 0)

	writer, err := exporter.Begin()
	if err != nil {
		return abort(err)
	}

	var sum model.FilterSummary
	for rec := range records {
		projected, keep, ferr := filter.Apply(rec, &sum)
		if ferr == nil && keep {
			ferr = writer.WriteRecord(projected)
		}
		if ferr != nil {
			writer.Close()
			os.Remove(exporter.Path)
			store.SaveStageProgress(runID, "export", "failed", &stageStart, nil, writer.Count())
			return abort(ferr)
		}
	}
	wg.Wait()

	exportRes, err := writer.Close()
	stageEnd := time.Now()
	if err != nil {
		store.SaveStageProgress(runID, "export", "failed", &stageStart, &stageEnd, exportRes.RecordCount)
		return err
	}
	store.SaveStageProgress(runID, "export", "completed", &stageStart, &stageEnd, exportRes.RecordCount)
	store.SaveRunLog(runID, "filter", "info", "observed date range", map[string]interface{}{
		"min_date":         sum.MinDate.Format("2006-01-02"),
		"max_date":         sum.MaxDate.Format("2006-01-02"),
		"kept":             sum.Kept,
		"excluded_by_code": sum.ExcludedByCode,
		"outside_window":   sum.OutsideWindow,
	})

	status := "completed"
	if !fetchRes.Complete {
		if !job.AllowPartialExport {
			// Do not leave a partial file that could be mistaken for a
			// complete export.
			os.Remove(exporter.Path)
			if fetchRes.Cause != nil {
				return fmt.Errorf("fetch aborted after %d records: %w", fetchRes.Fetched, fetchRes.Cause)
			}
			return fmt.Errorf("fetch aborted after %d records", fetchRes.Fetched)
		}
		status = "completed_partial"
		store.SaveRunLog(runID, "fetch", "warning", "exported partial data", map[string]interface{}{
			"cause": fmt.Sprint(fetchRes.Cause),
		})
	}

	store.SaveRunSummary(runID, model.RunSummary{
		Fetched:        fetchRes.Fetched,
		Pages:          fetchRes.Pages,
		Kept:           sum.Kept,
		ExcludedByCode: sum.ExcludedByCode,
		OutsideWindow:  sum.OutsideWindow,
		MinDate:        sum.MinDate,
		MaxDate:        sum.MaxDate,
		OutputPath:     exporter.Path,
		Complete:       fetchRes.Complete,
	})
	store.UpdateRunStatus(runID, status)

	log.Printf("export run %s finished in %v: %d fetched, %d kept, %d dropped",
		runID, time.Since(start).Truncate(time.Millisecond), fetchRes.Fetched, sum.Kept, sum.Dropped())
	return nil
}
