package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	"accident-pipeline/internal/api/handler"
	"accident-pipeline/pkg/router"
)

// RegisterRoutes wires the run API onto the router. More specific routes
// register first so they win over the generic run route.
func RegisterRoutes(r *router.Router) {
	r.POST("/api/v1/runs", handler.CreateRun)
	r.GET("/api/v1/runs", handler.ListRuns)
	r.GET("/api/v1/runs/*/errors", handler.GetRunErrors)
	r.GET("/api/v1/runs/*/logs", handler.GetRunLogs)
	r.GET("/api/v1/runs/*/progress", handler.GetRunProgress)
	r.GET("/api/v1/runs/*/summary", handler.GetRunSummary)
	r.GET("/api/v1/download/*", handler.DownloadRunFile)
	// Generic run route last
	r.GET("/api/v1/runs/*", handler.GetRun)

	r.GET("/swagger/*", httpSwagger.WrapHandler.ServeHTTP)
}
