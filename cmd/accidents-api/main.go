package main

import (
	"log"

	"accident-pipeline/internal/api"
	"accident-pipeline/internal/api/handler"
	"accident-pipeline/internal/config"
	"accident-pipeline/internal/store"
	"accident-pipeline/pkg/router"
	"accident-pipeline/pkg/utils"

	_ "accident-pipeline/docs"
)

// @title Rail Accident Export API
// @version 1.0
// @description API for running and monitoring rail accident data exports
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := store.InitDB(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to init run database: %v", err)
	}

	handler.Outputs = utils.NewOutputManager(cfg.OutputDir)

	r := router.New()
	api.RegisterRoutes(r)
	r.Start(cfg.ListenAddr)
}
