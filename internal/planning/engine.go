/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package planning

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/rs/zerolog"
)

var (
    ErrTeamNotFound = errors.New("team not found")
    ErrEmptyRoster  = errors.New("team has no members")
)

// ItemSource returns the work items of a project in any order.
type ItemSource interface {
    Issues(ctx context.Context, project string) ([]domain.WorkItem, error)
}

// PeopleDirectory returns team members; ErrTeamNotFound when there are none.
type PeopleDirectory interface {
    PeopleByTeam(ctx context.Context, team string) ([]domain.Person, error)
}

type Request struct {
    Project string `json:"project_key"`
    Sprint  string `json:"sprint_name"`
    Team    string `json:"team_name"`
}

type RunStats struct {
    Items     int `json:"items"`
    Dropped   int `json:"dropped"`
    Preserved int `json:"preserved"`
    Allocated int `json:"allocated"`
    Refined   int `json:"refined"`
    Fallbacks int `json:"fallbacks"`
    Clamped   int `json:"clamped"`
    PersistStats
}

type Result struct {
    Assignments []domain.Assignment `json:"assignments"`
    Stats       RunStats            `json:"stats"`
}

type Engine struct {
    items      ItemSource
    people     PeopleDirectory
    estimator  *Estimator
    classifier Classifier
    persister  *Persister
    log        zerolog.Logger
    rec        Recorder
}

func NewEngine(items ItemSource, people PeopleDirectory, est *Estimator, cls Classifier, p *Persister, log zerolog.Logger, rec Recorder) *Engine {
    if rec == nil { rec = nopRecorder{} }
    return &Engine{items: items, people: people, estimator: est, classifier: cls, persister: p, log: log, rec: rec}
}

// Plan runs one project/sprint/team planning pass and persists the merged
// assignment list. Preserved assignments come first, then new ones in
// allocation order.
func (e *Engine) Plan(ctx context.Context, req Request) (res *Result, err error) {
    start := time.Now()
    log := e.log.With().Str("project", req.Project).Str("sprint", req.Sprint).Str("team", req.Team).Logger()
    defer func() { e.rec.RunFinished(err == nil, time.Since(start)) }()

    items, err := e.items.Issues(ctx, req.Project)
    if err != nil { return nil, fmt.Errorf("load issues: %w", err) }
    people, err := e.people.PeopleByTeam(ctx, req.Team)
    if err != nil { return nil, fmt.Errorf("load team %q: %w", req.Team, err) }
    if len(people) == 0 { return nil, fmt.Errorf("team %q: %w", req.Team, ErrEmptyRoster) }

    res = &Result{Assignments: []domain.Assignment{}}
    res.Stats.Items = len(items)

    assignable, preserved, dropped := Partition(items, req.Sprint)
    res.Stats.Dropped = dropped
    res.Stats.Preserved = len(preserved)
    log.Info().Int("items", len(items)).Int("dropped", dropped).Int("preserved", len(preserved)).Int("assignable", len(assignable)).Msg("issues partitioned")

    estimated := e.estimator.EstimateAll(ctx, assignable)
    for _, est := range estimated {
        switch est.Source {
        case SourceAI: res.Stats.Refined++
        case SourceFallback: res.Stats.Fallbacks++
        }
    }

    roster := e.classifier.Profiles(people)
    allocations := Allocate(req.Sprint, estimated, roster)
    for _, a := range allocations {
        if a.Clamped {
            res.Stats.Clamped++
            e.rec.PointsClamped(a.Tier)
            log.Info().Str("key", a.Assignment.IssueKey).Str("assignee", a.Assignment.AssigneeName).Stringer("tier", a.Tier).
                Int("from", a.OriginalPoints).Int("to", a.Assignment.StoryPoints).Msg("story points adjusted to tier")
        }
    }
    res.Stats.Allocated = len(allocations)
    logDistribution(log, roster, allocations)

    res.Assignments = append(res.Assignments, preserved...)
    for _, a := range allocations { res.Assignments = append(res.Assignments, a.Assignment) }

    ps, err := e.persister.Save(ctx, res.Assignments)
    if err != nil { return nil, fmt.Errorf("save assignments: %w", err) }
    res.Stats.PersistStats = ps
    log.Info().Int("total", len(res.Assignments)).Int("new", res.Stats.Allocated).Dur("took", time.Since(start)).Msg("planning run done")
    return res, nil
}

func logDistribution(log zerolog.Logger, roster []domain.CapacityProfile, allocations []Allocation) {
    if len(allocations) == 0 { return }
    counts := map[string]int{}
    for _, a := range allocations { counts[a.Assignment.AssigneeName]++ }
    d := zerolog.Dict()
    for _, p := range roster { d = d.Int(p.Person.Username, counts[p.Person.Username]) }
    log.Debug().Dict("new_per_person", d).Msg("allocation distribution")
}
