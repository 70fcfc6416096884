/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "time"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/metrics"
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc Service, m *metrics.Manager) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context) {
        start := time.Now()
        c.Next()
        took := time.Since(start)
        m.HTTPRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), took)
        log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Dur("took", took).Msg("http")
    })

    h := NewHandlers(cfg, log, svc)

    r.GET("/healthz", h.Healthz)
    r.GET("/metrics", gin.WrapH(m.Handler()))

    sprint := r.Group("/sprint")
    sprint.POST("/create-assignments", h.CreateAssignments)
    sprint.GET("/assignments", h.ListAssignments)

    r.GET("/team", h.Teams)
    r.GET("/team/:name", h.Team)

    r.GET("/jira/issues/:project", h.Issues)
    r.POST("/jira/sync/:project", h.SyncProject)

    ai := r.Group("/ai")
    ai.GET("/sprint-report/:key", h.SprintReport)
    ai.GET("/risk-identification", h.Risks)

    r.GET("/admin/last-run", h.LastRun)
    r.POST("/admin/run", h.RunNow)

    return r
}
