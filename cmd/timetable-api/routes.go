package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
)

type routeHandlers struct {
	timetable *handler.TimetableHandler
	metrics   *handler.MetricsHandler
	verifier  internalmiddleware.TokenVerifier
}

func registerRoutes(r *gin.Engine, cfg *config.Config, h routeHandlers) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, h.metrics.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(h.verifier))
	writers := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)

	api.GET("/metrics/summary", writers, h.metrics.Summary)

	timetables := api.Group("/timetables")
	timetables.POST("/generate", writers, h.timetable.Generate)
	timetables.GET("/proposals/:id", h.timetable.Proposal)
	timetables.POST("/save", writers, h.timetable.Save)
	timetables.POST("/batch", writers, h.timetable.Batch)
	timetables.GET("/batch/:id", h.timetable.BatchStatus)

	schedules := api.Group("/semester-schedules")
	schedules.GET("", h.timetable.List)
	schedules.GET("/:id/slots", h.timetable.Slots)
	schedules.POST("/:id/review", writers, h.timetable.Review)
	schedules.DELETE("/:id", writers, h.timetable.Delete)
}
