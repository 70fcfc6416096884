/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/planning"
    "github.com/HamedShams/sprint-pulse/internal/services"
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
)

type Service interface {
    CreateAssignments(ctx context.Context, req planning.Request) (*planning.Result, error)
    ListAssignments(ctx context.Context) ([]domain.StoredAssignment, error)
    Teams(ctx context.Context) ([]domain.Team, error)
    TeamDetails(ctx context.Context, name string) (*domain.TeamWithMembers, error)
    Issues(ctx context.Context, project string) ([]domain.WorkItem, error)
    SyncProject(ctx context.Context, project string) (int, error)
    TaskReport(ctx context.Context, key string) (domain.TaskReport, error)
    IdentifyRisks(ctx context.Context) ([]domain.Risk, error)
    GetLastRun(ctx context.Context) (*domain.PlanningRun, error)
    RunInBackground()
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc Service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc Service) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc}
}

type createAssignmentsBody struct {
    ProjectKey string `json:"project_key" binding:"required"`
    SprintName string `json:"sprint_name" binding:"required"`
    TeamName   string `json:"team_name" binding:"required"`
}

type issueView struct {
    ID          int64    `json:"id"`
    Key         string   `json:"key"`
    Title       string   `json:"title"`
    Description string   `json:"description"`
    Priority    string   `json:"priority"`
    Assignee    *string  `json:"assignee"`
    Status      string   `json:"status"`
    StoryPoints *float64 `json:"story_points"`
    DueDate     *string  `json:"due_date"`
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) CreateAssignments(c *gin.Context) {
    var body createAssignmentsBody
    if err := c.ShouldBindJSON(&body); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    req := planning.Request{Project: strings.TrimSpace(body.ProjectKey), Sprint: strings.TrimSpace(body.SprintName), Team: strings.TrimSpace(body.TeamName)}
    res, err := h.svc.CreateAssignments(c.Request.Context(), req)
    if err != nil {
        h.fail(c, err)
        return
    }
    c.JSON(http.StatusOK, res.Assignments)
}

func (h *Handlers) ListAssignments(c *gin.Context) {
    rows, err := h.svc.ListAssignments(c.Request.Context())
    if err != nil { h.fail(c, err); return }
    c.JSON(http.StatusOK, rows)
}

func (h *Handlers) Teams(c *gin.Context) {
    teams, err := h.svc.Teams(c.Request.Context())
    if err != nil { h.fail(c, err); return }
    c.JSON(http.StatusOK, teams)
}

func (h *Handlers) Team(c *gin.Context) {
    t, err := h.svc.TeamDetails(c.Request.Context(), c.Param("name"))
    if err != nil { h.fail(c, err); return }
    c.JSON(http.StatusOK, t)
}

func (h *Handlers) Issues(c *gin.Context) {
    items, err := h.svc.Issues(c.Request.Context(), c.Param("project"))
    if err != nil { h.fail(c, err); return }
    out := make([]issueView, 0, len(items))
    for _, it := range items {
        v := issueView{ID: it.ID, Key: it.Key, Title: it.Title, Description: it.Description, Priority: it.Priority, Status: it.StatusName, StoryPoints: it.Points}
        if n, ok := it.Assignee.Name(); ok { v.Assignee = &n }
        if it.DueDate != nil { d := it.DueDate.Format("2006-01-02"); v.DueDate = &d }
        out = append(out, v)
    }
    c.JSON(http.StatusOK, out)
}

func (h *Handlers) SyncProject(c *gin.Context) {
    n, err := h.svc.SyncProject(c.Request.Context(), c.Param("project"))
    if err != nil { h.fail(c, err); return }
    c.JSON(http.StatusOK, gin.H{"project": c.Param("project"), "synced": n})
}

func (h *Handlers) SprintReport(c *gin.Context) {
    rep, err := h.svc.TaskReport(c.Request.Context(), c.Param("key"))
    if err != nil { h.fail(c, err); return }
    c.JSON(http.StatusOK, rep)
}

func (h *Handlers) Risks(c *gin.Context) {
    risks, err := h.svc.IdentifyRisks(c.Request.Context())
    if err != nil { h.fail(c, err); return }
    c.JSON(http.StatusOK, gin.H{"risks": risks})
}

func (h *Handlers) LastRun(c *gin.Context) {
    lr, err := h.svc.GetLastRun(c.Request.Context())
    if err != nil { h.fail(c, err); return }
    c.JSON(http.StatusOK, lr)
}

func (h *Handlers) RunNow(c *gin.Context) {
    // The run outlives the request; serve waits for it before closing the store.
    h.svc.RunInBackground()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// fail maps service errors onto status codes.
func (h *Handlers) fail(c *gin.Context, err error) {
    status := http.StatusInternalServerError
    switch {
    case errors.Is(err, planning.ErrTeamNotFound), errors.Is(err, planning.ErrEmptyRoster),
        errors.Is(err, services.ErrAssignmentNotFound), errors.Is(err, services.ErrNoRuns):
        status = http.StatusNotFound
    case errors.Is(err, services.ErrAIUnavailable):
        status = http.StatusServiceUnavailable
    }
    if status == http.StatusInternalServerError {
        h.log.Error().Err(err).Str("p", c.FullPath()).Msg("request failed")
    }
    c.JSON(status, gin.H{"error": err.Error()})
}
