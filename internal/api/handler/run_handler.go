package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"accident-pipeline/internal/model"
	"accident-pipeline/internal/pipeline"
	"accident-pipeline/internal/store"
	"accident-pipeline/pkg/utils"

	"github.com/google/uuid"
)

// Outputs decides where API-triggered runs write their CSV files. Tests
// point it at a temp directory.
var Outputs = utils.NewOutputManager("exports")

const outputFileName = "accidents.csv"

// CreateRun starts a new export run
// @Summary Start an export run
// @Description Start an asynchronous fetch/filter/export run against the accident feed
// @Tags runs
// @Accept json
// @Produce json
// @Param run body model.ExportJobSpec true "Run configuration"
// @Success 200 {object} map[string]interface{} "Run created successfully"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [post]
func CreateRun(w http.ResponseWriter, r *http.Request) {
	var job model.ExportJobSpec
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	if job.BaseURL == "" {
		http.Error(w, "baseUrl is required", http.StatusBadRequest)
		return
	}

	runID := uuid.New().String()

	if job.OutputFile == "" {
		path, err := Outputs.RunOutputPath(runID, outputFileName)
		if err != nil {
			http.Error(w, "Failed to prepare output directory", http.StatusInternalServerError)
			return
		}
		job.OutputFile = path
	}

	if err := store.SaveRun(runID, job); err != nil {
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	go func() {
		if err := pipeline.Run(context.Background(), runID, job); err != nil {
			store.SaveRunError(runID, "run", err)
		}
	}()

	resp := map[string]interface{}{
		"message":     "Export run started",
		"runID":       runID,
		"status":      "pending",
		"downloadUrl": Outputs.DownloadURL(runID, outputFileName),
		"createdAt":   time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListRuns retrieves all export runs
// @Summary List all runs
// @Description Get a list of all export runs with their current status
// @Tags runs
// @Produce json
// @Success 200 {array} map[string]interface{} "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// GetRun retrieves a specific export run
// @Summary Get run
// @Description Retrieve details of a specific export run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run details"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func GetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "")
	if !ok {
		return
	}

	run, err := store.GetRun(runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// GetRunErrors retrieves errors for a run
// @Summary Get run errors
// @Description Retrieve all errors that occurred during a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run errors"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/errors [get]
func GetRunErrors(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/errors")
	if !ok {
		return
	}

	errors, err := store.GetRunErrors(runID)
	if err != nil {
		http.Error(w, "Failed to fetch run errors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"runID":  runID,
		"errors": errors,
	})
}

// GetRunLogs retrieves log entries for a run
// @Summary Get run logs
// @Description Retrieve the structured log entries recorded during a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run logs"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/logs [get]
func GetRunLogs(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/logs")
	if !ok {
		return
	}

	logs, err := store.GetRunLogs(runID)
	if err != nil {
		http.Error(w, "Failed to fetch run logs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"runID": runID,
		"logs":  logs,
	})
}

// GetRunProgress retrieves per-stage progress for a run
// @Summary Get run progress
// @Description Retrieve per-stage progress for a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run progress"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/progress [get]
func GetRunProgress(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/progress")
	if !ok {
		return
	}

	progress, err := store.GetRunProgress(runID)
	if err != nil {
		http.Error(w, "Failed to fetch run progress", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"runID":    runID,
		"progress": progress,
	})
}

// GetRunSummary retrieves the outcome of a run
// @Summary Get run summary
// @Description Retrieve the final outcome of a run: record counts, observed date range, output path
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run summary"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Summary not available"
// @Router /runs/{id}/summary [get]
func GetRunSummary(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/summary")
	if !ok {
		return
	}

	summary, err := store.GetRunSummary(runID)
	if err != nil {
		http.Error(w, "Summary not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// DownloadRunFile serves a run's exported CSV
// @Summary Download run output
// @Description Download the CSV file produced by a run
// @Tags runs
// @Produce text/csv
// @Param id path string true "Run ID"
// @Param file path string true "File name"
// @Success 200 {file} file "CSV file"
// @Failure 404 {object} map[string]interface{} "File not found"
// @Router /download/{id}/{file} [get]
func DownloadRunFile(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/download/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		http.Error(w, "Run ID and file name are required", http.StatusBadRequest)
		return
	}

	path, err := Outputs.ResolveDownload(parts[0], parts[1])
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}

// runIDFromPath extracts the run ID from /api/v1/runs/{id}{suffix} paths.
func runIDFromPath(w http.ResponseWriter, r *http.Request, suffix string) (string, bool) {
	const prefix = "/api/v1/runs/"
	path := r.URL.Path

	if !strings.HasPrefix(path, prefix) || (suffix != "" && !strings.HasSuffix(path, suffix)) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return "", false
	}

	runID := strings.TrimSuffix(path[len(prefix):], suffix)
	if runID == "" || strings.Contains(runID, "/") {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return "", false
	}
	return runID, true
}
