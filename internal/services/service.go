/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "errors"
    "fmt"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/planning"
    "github.com/HamedShams/sprint-pulse/internal/repo"
    "github.com/google/uuid"
    "github.com/rs/zerolog"
)

var (
    ErrAssignmentNotFound = errors.New("assignment not found")
    ErrNoRuns             = errors.New("no planning runs yet")
    ErrAIUnavailable      = errors.New("ai oracle not configured")
)

// planLockKey guards scheduled planning runs across replicas.
const planLockKey int64 = 0x5350524e54

const backgroundRunTimeout = 10 * time.Minute

// Store is the persistence surface shared by the Postgres and SQLite repos.
type Store interface {
    planning.AssignmentStore
    planning.PeopleDirectory
    IssuesByProject(ctx context.Context, project string) ([]domain.WorkItem, error)
    UpsertIssues(ctx context.Context, items []domain.WorkItem) error
    AddTeam(ctx context.Context, name string) (domain.Team, error)
    AddPerson(ctx context.Context, p domain.Person) (int64, error)
    Teams(ctx context.Context) ([]domain.Team, error)
    TeamByName(ctx context.Context, name string) (*domain.Team, error)
    ListAssignments(ctx context.Context) ([]domain.StoredAssignment, error)
    AssignmentByKey(ctx context.Context, key string) (*domain.StoredAssignment, error)
    StartRun(ctx context.Context, run domain.PlanningRun) error
    FinishRun(ctx context.Context, run domain.PlanningRun) error
    LastRun(ctx context.Context) (*domain.PlanningRun, error)
    TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error)
}

type JiraClient interface {
    Configured() bool
    SearchProject(ctx context.Context, project string) ([]domain.WorkItem, error)
}

type LLM interface {
    planning.Oracle
    Configured() bool
    TaskReport(ctx context.Context, a domain.Assignment) (domain.TaskReport, error)
    IdentifyRisks(ctx context.Context, assignments []domain.Assignment) ([]domain.Risk, error)
}

type Notifier interface {
    Configured() bool
    Broadcast(ctx context.Context, text string) error
}

type Service struct {
    cfg    config.Config
    log    zerolog.Logger
    store  Store
    jira   JiraClient
    llm    LLM
    tg     Notifier
    engine *planning.Engine

    bg        sync.WaitGroup
    bgTimeout time.Duration
}

func New(cfg config.Config, log zerolog.Logger, store Store, jira JiraClient, llm LLM, tg Notifier, rec planning.Recorder) *Service {
    s := &Service{cfg: cfg, log: log, store: store, jira: jira, llm: llm, tg: tg, bgTimeout: backgroundRunTimeout}

    var oracle planning.Oracle
    if llm != nil && llm.Configured() {
        oracle = llm
    } else {
        log.Info().Msg("openai key not set; estimates use the word-count heuristic only")
    }
    opts := []planning.EstimatorOption{planning.WithWorkers(cfg.WorkersLLM), planning.WithEstimateRecorder(rec)}
    if len(cfg.RefineKeywords) > 0 { opts = append(opts, planning.WithKeywords(cfg.RefineKeywords)) }
    if cfg.RefineDescriptionLen > 0 { opts = append(opts, planning.WithDescriptionThreshold(cfg.RefineDescriptionLen)) }
    est := planning.NewEstimator(oracle, log, opts...)
    cls := planning.NewClassifier(planning.Thresholds{SeniorMinTickets: cfg.SeniorMinTickets, JuniorMinTickets: cfg.JuniorMinTickets})
    src := &issueSource{store: store, jira: jira, log: log}
    s.engine = planning.NewEngine(src, store, est, cls, planning.NewPersister(store, log, rec), log, rec)
    return s
}

// issueSource reads issues from the DB and falls back to a Jira sync when the
// project has nothing stored yet.
type issueSource struct {
    store Store
    jira  JiraClient
    log   zerolog.Logger
}

func (s *issueSource) Issues(ctx context.Context, project string) ([]domain.WorkItem, error) {
    items, err := s.store.IssuesByProject(ctx, project)
    if err != nil { return nil, err }
    if len(items) > 0 || s.jira == nil || !s.jira.Configured() { return items, nil }
    s.log.Info().Str("project", project).Msg("no stored issues; syncing from jira")
    if _, err := syncProject(ctx, s.store, s.jira, project); err != nil { return nil, err }
    return s.store.IssuesByProject(ctx, project)
}

func syncProject(ctx context.Context, store Store, jira JiraClient, project string) (int, error) {
    fetched, err := jira.SearchProject(ctx, project)
    if err != nil { return 0, err }
    if err := store.UpsertIssues(ctx, fetched); err != nil { return 0, fmt.Errorf("store issues: %w", err) }
    return len(fetched), nil
}

// SyncProject refreshes the stored issues of a project from Jira.
func (s *Service) SyncProject(ctx context.Context, project string) (int, error) {
    if s.jira == nil || !s.jira.Configured() { return 0, errors.New("jira: not configured") }
    n, err := syncProject(ctx, s.store, s.jira, project)
    if err != nil { return 0, err }
    s.log.Info().Str("project", project).Int("issues", n).Msg("jira sync done")
    return n, nil
}

func (s *Service) Issues(ctx context.Context, project string) ([]domain.WorkItem, error) {
    return s.store.IssuesByProject(ctx, project)
}

// CreateAssignments runs the engine and records the run.
func (s *Service) CreateAssignments(ctx context.Context, req planning.Request) (*planning.Result, error) {
    run := domain.PlanningRun{ID: uuid.NewString(), Project: req.Project, Sprint: req.Sprint, Team: req.Team, StartedAt: time.Now().UTC()}
    if err := s.store.StartRun(ctx, run); err != nil { s.log.Error().Err(err).Str("run", run.ID).Msg("start planning run failed") }

    res, planErr := s.engine.Plan(ctx, req)

    fin := time.Now().UTC()
    run.FinishedAt = &fin
    run.Success = planErr == nil
    if planErr != nil {
        run.Error = planErr.Error()
    } else {
        run.Preserved, run.Allocated = res.Stats.Preserved, res.Stats.Allocated
        run.Refined, run.Fallbacks = res.Stats.Refined, res.Stats.Fallbacks
    }
    if err := s.store.FinishRun(context.WithoutCancel(ctx), run); err != nil {
        s.log.Error().Err(err).Str("run", run.ID).Msg("finish planning run failed")
    }
    return res, planErr
}

func (s *Service) ListAssignments(ctx context.Context) ([]domain.StoredAssignment, error) {
    rows, err := s.store.ListAssignments(ctx)
    if err != nil { return nil, err }
    if rows == nil { rows = []domain.StoredAssignment{} }
    return rows, nil
}

// Teams lists stored teams followed by configured default teams that are not stored.
func (s *Service) Teams(ctx context.Context) ([]domain.Team, error) {
    stored, err := s.store.Teams(ctx)
    if err != nil { return nil, err }
    seen := map[string]struct{}{}
    out := make([]domain.Team, 0, len(stored)+len(s.cfg.DefaultTeams))
    for _, t := range stored {
        seen[strings.ToLower(t.Name)] = struct{}{}
        out = append(out, t)
    }
    for _, name := range s.cfg.DefaultTeams {
        if _, ok := seen[strings.ToLower(name)]; ok { continue }
        seen[strings.ToLower(name)] = struct{}{}
        out = append(out, domain.Team{Name: name})
    }
    return out, nil
}

// TeamDetails returns a stored or default team with its members.
func (s *Service) TeamDetails(ctx context.Context, name string) (*domain.TeamWithMembers, error) {
    team, err := s.store.TeamByName(ctx, name)
    switch {
    case errors.Is(err, repo.ErrNotFound):
        team = s.defaultTeam(name)
        if team == nil { return nil, fmt.Errorf("team %q: %w", name, planning.ErrTeamNotFound) }
    case err != nil:
        return nil, err
    }
    members, err := s.store.PeopleByTeam(ctx, team.Name)
    if err != nil && !errors.Is(err, planning.ErrTeamNotFound) { return nil, err }
    if members == nil { members = []domain.Person{} }
    return &domain.TeamWithMembers{Team: *team, Users: members}, nil
}

func (s *Service) defaultTeam(name string) *domain.Team {
    for _, d := range s.cfg.DefaultTeams {
        if strings.EqualFold(d, strings.TrimSpace(name)) { return &domain.Team{Name: d} }
    }
    return nil
}

func (s *Service) AddTeam(ctx context.Context, name string) (domain.Team, error) {
    name = strings.TrimSpace(name)
    if name == "" { return domain.Team{}, errors.New("team name must not be empty") }
    return s.store.AddTeam(ctx, name)
}

func (s *Service) AddMember(ctx context.Context, p domain.Person) (int64, error) {
    if strings.TrimSpace(p.Username) == "" || strings.TrimSpace(p.Email) == "" { return 0, errors.New("username and email are required") }
    if strings.TrimSpace(p.Team) != "" {
        t, err := s.store.AddTeam(ctx, strings.TrimSpace(p.Team))
        if err != nil { return 0, err }
        p.Team = t.Name
    }
    if p.Role == "" { p.Role = "developer" }
    return s.store.AddPerson(ctx, p)
}

func (s *Service) TaskReport(ctx context.Context, key string) (domain.TaskReport, error) {
    a, err := s.store.AssignmentByKey(ctx, key)
    if errors.Is(err, repo.ErrNotFound) { return domain.TaskReport{}, fmt.Errorf("%s: %w", key, ErrAssignmentNotFound) }
    if err != nil { return domain.TaskReport{}, err }
    if s.llm == nil || !s.llm.Configured() { return domain.TaskReport{}, ErrAIUnavailable }
    return s.llm.TaskReport(ctx, a.Assignment)
}

func (s *Service) IdentifyRisks(ctx context.Context) ([]domain.Risk, error) {
    rows, err := s.store.ListAssignments(ctx)
    if err != nil { return nil, err }
    if len(rows) == 0 { return []domain.Risk{}, nil }
    if s.llm == nil || !s.llm.Configured() { return nil, ErrAIUnavailable }
    list := make([]domain.Assignment, 0, len(rows))
    for _, r := range rows { list = append(list, r.Assignment) }
    return s.llm.IdentifyRisks(ctx, list)
}

func (s *Service) GetLastRun(ctx context.Context) (*domain.PlanningRun, error) {
    run, err := s.store.LastRun(ctx)
    if errors.Is(err, repo.ErrNotFound) { return nil, ErrNoRuns }
    return run, err
}

// RunScheduled plans the configured project/sprint/team once, skipping when
// another instance holds the lock, and posts a summary to Telegram.
func (s *Service) RunScheduled(ctx context.Context) error {
    req := planning.Request{Project: s.cfg.PlanProject, Sprint: s.cfg.PlanSprint, Team: s.cfg.PlanTeam}
    release, ok, err := s.store.TryAdvisoryLock(ctx, planLockKey)
    if err != nil { return fmt.Errorf("plan lock: %w", err) }
    if !ok {
        s.log.Info().Msg("planning run already in progress; skipping")
        return nil
    }
    defer release()

    res, err := s.CreateAssignments(ctx, req)
    text := summary(req, res, err)
    if s.tg != nil && s.tg.Configured() {
        if nerr := s.tg.Broadcast(ctx, text); nerr != nil { s.log.Error().Err(nerr).Msg("telegram summary failed") }
    }
    return err
}

// RunInBackground starts RunScheduled detached from the caller under a bounded
// context. Wait blocks until every started run has returned.
func (s *Service) RunInBackground() {
    s.bg.Add(1)
    go func() {
        defer s.bg.Done()
        ctx, cancel := context.WithTimeout(context.Background(), s.bgTimeout); defer cancel()
        if err := s.RunScheduled(ctx); err != nil { s.log.Error().Err(err).Msg("manual planning run failed") }
    }()
}

func (s *Service) Wait() { s.bg.Wait() }

func summary(req planning.Request, res *planning.Result, err error) string {
    var b strings.Builder
    fmt.Fprintf(&b, "Sprint plan %s (project %s, team %s)\n", req.Sprint, req.Project, req.Team)
    if err != nil {
        fmt.Fprintf(&b, "failed: %v", err)
        return b.String()
    }
    st := res.Stats
    fmt.Fprintf(&b, "%d assignments: %d new, %d kept\n", len(res.Assignments), st.Allocated, st.Preserved)
    fmt.Fprintf(&b, "estimates: %d refined, %d fallback; %d adjusted to tier\n", st.Refined, st.Fallbacks, st.Clamped)
    perPerson := map[string]int{}
    for _, a := range res.Assignments { perPerson[a.AssigneeName]++ }
    names := make([]string, 0, len(perPerson))
    for n := range perPerson { names = append(names, n) }
    sort.Strings(names)
    for _, n := range names { fmt.Fprintf(&b, "- %s: %d\n", n, perPerson[n]) }
    return strings.TrimRight(b.String(), "\n")
}
