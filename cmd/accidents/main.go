package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"accident-pipeline/internal/config"
	"accident-pipeline/internal/model"
	"accident-pipeline/internal/pipeline"
	"accident-pipeline/internal/store"

	"github.com/google/uuid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	baseURL := flag.String("url", cfg.BaseURL, "accident feed endpoint")
	pageSize := flag.Int("page-size", cfg.PageSize, "records per page")
	offset := flag.Int("offset", cfg.StartOffset, "starting offset")
	out := flag.String("out", cfg.OutputFile, "output CSV path")
	causesFile := flag.String("causes", cfg.CausesFile, "JSON cause-code table overriding the built-in exclusion set")
	lookback := flag.Int("lookback-days", cfg.LookbackDays, "trailing window in days")
	allowPartial := flag.Bool("allow-partial", cfg.AllowPartialExport, "export whatever was fetched when the loop aborts")
	dbPath := flag.String("db", cfg.DatabasePath, "run tracking database path")
	flag.Parse()

	if err := store.InitDB(*dbPath); err != nil {
		log.Fatalf("failed to init run database: %v", err)
	}

	job := model.ExportJobSpec{
		BaseURL:            *baseURL,
		PageSize:           *pageSize,
		StartOffset:        *offset,
		OutputFile:         *out,
		CausesFile:         *causesFile,
		LookbackDays:       *lookback,
		AllowPartialExport: *allowPartial,
	}

	runID := uuid.New().String()
	if err := store.SaveRun(runID, job); err != nil {
		log.Fatalf("failed to save run: %v", err)
	}

	if err := pipeline.Run(context.Background(), runID, job); err != nil {
		log.Printf("export run %s failed: %v", runID, err)
		os.Exit(1)
	}
	fmt.Printf("export run %s completed: %s\n", runID, job.OutputFile)
}
