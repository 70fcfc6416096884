package main

import (
    "bytes"
    "testing"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/planning"
    "github.com/fatih/color"
    "github.com/stretchr/testify/require"
)

func TestRenderPlan(t *testing.T) {
    color.NoColor = true
    res := &planning.Result{
        Assignments: []domain.Assignment{
            {SprintName: "S7", IssueKey: "P-1", AssigneeName: "dana", Title: "Login", EstimatedDays: 3, StoryPoints: 5},
            {SprintName: "S7", IssueKey: "P-2", AssigneeName: "lee", Title: "Docs", EstimatedDays: 1, StoryPoints: 1},
        },
        Stats: planning.RunStats{Preserved: 1, Allocated: 1, Refined: 1, PersistStats: planning.PersistStats{Inserted: 2}},
    }
    var buf bytes.Buffer
    renderPlan(&buf, res)
    out := buf.String()
    require.Contains(t, out, "ISSUE")
    require.Regexp(t, `P-1\s+dana\s+5\s+3\s+Login`, out)
    require.Contains(t, out, "sprint S7: 2 assignments (1 new, 1 kept, 0 dropped)")
    require.Contains(t, out, "2 inserted")
}

func TestRenderPlan_Empty(t *testing.T) {
    color.NoColor = true
    var buf bytes.Buffer
    renderPlan(&buf, &planning.Result{})
    require.Equal(t, "no plannable issues\n", buf.String())
}

func TestRenderRun(t *testing.T) {
    color.NoColor = true
    start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
    fin := start.Add(1500 * time.Millisecond)
    var buf bytes.Buffer
    renderRun(&buf, &domain.PlanningRun{ID: "r1", Project: "P", Sprint: "S", Team: "alpha", StartedAt: start, FinishedAt: &fin, Success: false, Error: "team not found"})
    out := buf.String()
    require.Contains(t, out, "run r1  failed: team not found")
    require.Contains(t, out, "took 1.5s")
}

func TestRenderMembers(t *testing.T) {
    color.NoColor = true
    var buf bytes.Buffer
    renderMembers(&buf, &domain.TeamWithMembers{Team: domain.Team{Name: "alpha"}, Users: []domain.Person{{ID: 4, Username: "dana", Email: "d@x.io", Role: "qa", TicketsSolved: 12}}})
    require.Contains(t, buf.String(), "team alpha")
    require.Contains(t, buf.String(), "dana")
    require.Contains(t, buf.String(), "12")
}
