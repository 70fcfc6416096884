package http

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/metrics"
    "github.com/HamedShams/sprint-pulse/internal/planning"
    "github.com/HamedShams/sprint-pulse/internal/services"
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/require"
)

type fakeService struct {
    lastReq planning.Request
    planErr error
    runs    int
}

func (f *fakeService) CreateAssignments(_ context.Context, req planning.Request) (*planning.Result, error) {
    f.lastReq = req
    if f.planErr != nil { return nil, f.planErr }
    return &planning.Result{Assignments: []domain.Assignment{{SprintName: req.Sprint, IssueKey: "P-1", AssigneeName: "ana", Title: "t", EstimatedDays: 3, StoryPoints: 5}}}, nil
}
func (f *fakeService) ListAssignments(context.Context) ([]domain.StoredAssignment, error) { return []domain.StoredAssignment{}, nil }
func (f *fakeService) Teams(context.Context) ([]domain.Team, error) { return []domain.Team{{Name: "alpha"}}, nil }
func (f *fakeService) TeamDetails(_ context.Context, name string) (*domain.TeamWithMembers, error) {
    if name != "alpha" { return nil, fmt.Errorf("team %q: %w", name, planning.ErrTeamNotFound) }
    return &domain.TeamWithMembers{Team: domain.Team{Name: "alpha"}, Users: []domain.Person{}}, nil
}
func (f *fakeService) Issues(context.Context, string) ([]domain.WorkItem, error) {
    return []domain.WorkItem{{Key: "P-1", Title: "t", StatusName: "To Do", Assignee: domain.PlainAssignee("ana")}}, nil
}
func (f *fakeService) SyncProject(context.Context, string) (int, error) { return 3, nil }
func (f *fakeService) TaskReport(_ context.Context, key string) (domain.TaskReport, error) {
    return domain.TaskReport{}, fmt.Errorf("%s: %w", key, services.ErrAssignmentNotFound)
}
func (f *fakeService) IdentifyRisks(context.Context) ([]domain.Risk, error) { return nil, services.ErrAIUnavailable }
func (f *fakeService) GetLastRun(context.Context) (*domain.PlanningRun, error) { return nil, services.ErrNoRuns }
func (f *fakeService) RunInBackground() { f.runs++ }

func newTestRouter(svc Service) *gin.Engine {
    gin.SetMode(gin.TestMode)
    cfg := config.Default()
    cfg.AppEnv = "test"
    return NewRouter(cfg, zerolog.Nop(), svc, metrics.New())
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    req := httptest.NewRequest(method, path, strings.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    r.ServeHTTP(rec, req)
    return rec
}

func TestCreateAssignments(t *testing.T) {
    svc := &fakeService{}
    r := newTestRouter(svc)

    rec := do(r, http.MethodPost, "/sprint/create-assignments", `{"project_key":" P ","sprint_name":"S1","team_name":"alpha"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    require.Equal(t, planning.Request{Project: "P", Sprint: "S1", Team: "alpha"}, svc.lastReq)
    var got []domain.Assignment
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
    require.Equal(t, "P-1", got[0].IssueKey)
    require.Contains(t, rec.Body.String(), `"estimated_days":3`)

    rec = do(r, http.MethodPost, "/sprint/create-assignments", `{"project_key":"P"}`)
    require.Equal(t, http.StatusBadRequest, rec.Code)

    svc.planErr = fmt.Errorf("load team %q: %w", "ghost", planning.ErrTeamNotFound)
    rec = do(r, http.MethodPost, "/sprint/create-assignments", `{"project_key":"P","sprint_name":"S1","team_name":"ghost"}`)
    require.Equal(t, http.StatusNotFound, rec.Code)

    svc.planErr = errors.New("save assignments: persist P-3: disk full")
    rec = do(r, http.MethodPost, "/sprint/create-assignments", `{"project_key":"P","sprint_name":"S1","team_name":"alpha"}`)
    require.Equal(t, http.StatusInternalServerError, rec.Code)
    require.Contains(t, rec.Body.String(), "disk full")
}

func TestReadRoutes(t *testing.T) {
    svc := &fakeService{}
    r := newTestRouter(svc)

    require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/team", "").Code)
    require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/team/alpha", "").Code)
    require.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/team/ghost", "").Code)
    require.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/ai/sprint-report/P-9", "").Code)
    require.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/ai/risk-identification", "").Code)
    require.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/admin/last-run", "").Code)
    require.Equal(t, http.StatusAccepted, do(r, http.MethodPost, "/admin/run", "").Code)
    require.Equal(t, 1, svc.runs)

    rec := do(r, http.MethodGet, "/jira/issues/P", "")
    require.Equal(t, http.StatusOK, rec.Code)
    require.Contains(t, rec.Body.String(), `"assignee":"ana"`)
    require.Contains(t, rec.Body.String(), `"story_points":null`)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
    r := newTestRouter(&fakeService{})
    do(r, http.MethodGet, "/healthz", "")
    rec := do(r, http.MethodGet, "/metrics", "")
    require.Equal(t, http.StatusOK, rec.Code)
    require.Contains(t, rec.Body.String(), `sprint_pulse_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}
