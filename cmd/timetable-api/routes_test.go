package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/pkg/auth"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
)

func TestRegisterRoutesProtectsAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1", Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}}
	r := gin.New()
	registerRoutes(r, cfg, routeHandlers{
		timetable: handler.NewTimetableHandler(nil, nil),
		metrics:   handler.NewMetricsHandler(nil, nil),
		verifier:  auth.NewVerifier("secret", ""),
	})

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/v1/timetables/generate", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/semester-schedules", http.StatusUnauthorized},
		{http.MethodGet, "/docs/index.html", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.status, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestTimetableConfigMapsLimits(t *testing.T) {
	cfg := timetableConfig(config.SchedulerConfig{
		DefaultStrategy: "genetic",
		Limits:          config.SchedulerLimits{MaxConsecutive: 3, MaxDailyLoad: 5, MaxSubjectDaily: 2},
	})
	assert.Equal(t, "genetic", cfg.DefaultStrategy)
	assert.Equal(t, 3, cfg.Limits.MaxConsecutive)
	assert.Equal(t, 5, cfg.Limits.MaxDailyLoad)
	assert.Equal(t, 2, cfg.Limits.MaxSubjectDaily)
}
