package repo

import (
    "context"
    "path/filepath"
    "testing"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/planning"
    "github.com/google/uuid"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLite {
    t.Helper()
    s, err := OpenSQLite(filepath.Join(t.TempDir(), "sprint.db"), zerolog.Nop())
    require.NoError(t, err)
    t.Cleanup(s.Close)
    return s
}

func fp(v float64) *float64 { return &v }

func TestSQLite_IssuesRoundTrip(t *testing.T) {
    ctx := context.Background()
    s := openTestStore(t)
    due := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
    items := []domain.WorkItem{
        {Key: "P-2", Project: "P", Title: "Second", StatusName: "In Progress", Assignee: domain.RefAssignee(domain.AccountRef{DisplayName: "Dana"}), Points: fp(5), DueDate: &due},
        {Key: "P-1", Project: "P", Title: "First", Description: "body", StatusName: "To Do", Priority: "High"},
        {Key: "Q-1", Project: "Q", Title: "Other", StatusName: "Done"},
    }
    require.NoError(t, s.UpsertIssues(ctx, items))

    got, err := s.IssuesByProject(ctx, "P")
    require.NoError(t, err)
    require.Len(t, got, 2)
    require.Equal(t, "P-1", got[0].Key)
    require.Equal(t, domain.StatusTodo, got[0].Status)
    require.Equal(t, "High", got[0].Priority)
    require.False(t, got[0].Assignee.Assigned())
    require.Nil(t, got[0].Points)

    require.Equal(t, domain.StatusInProgress, got[1].Status)
    name, ok := got[1].Assignee.Name()
    require.True(t, ok)
    require.Equal(t, "Dana", name)
    require.Equal(t, 5.0, *got[1].Points)
    require.Equal(t, "Medium", got[1].Priority)
    require.NotNil(t, got[1].DueDate)

    items[1].Title = "First renamed"
    require.NoError(t, s.UpsertIssues(ctx, items[1:2]))
    got, err = s.IssuesByProject(ctx, "P")
    require.NoError(t, err)
    require.Len(t, got, 2)
    require.Equal(t, "First renamed", got[0].Title)
}

func TestSQLite_PeopleAndTeams(t *testing.T) {
    ctx := context.Background()
    s := openTestStore(t)

    _, err := s.PeopleByTeam(ctx, "alpha")
    require.ErrorIs(t, err, planning.ErrTeamNotFound)

    _, err = s.AddTeam(ctx, "alpha")
    require.NoError(t, err)
    _, err = s.AddPerson(ctx, domain.Person{Username: "ana", Email: "ana@x.io", Role: "backend developer", TicketsSolved: 42, Team: "alpha"})
    require.NoError(t, err)
    _, err = s.AddPerson(ctx, domain.Person{Username: "bo", Email: "bo@x.io", Role: "qa", TicketsSolved: 3, Team: "alpha"})
    require.NoError(t, err)

    people, err := s.PeopleByTeam(ctx, "alpha")
    require.NoError(t, err)
    require.Len(t, people, 2)
    require.Equal(t, "ana", people[0].Username)
    require.Equal(t, 42, people[0].TicketsSolved)

    team, err := s.TeamByName(ctx, "ALPHA")
    require.NoError(t, err)
    require.Equal(t, "alpha", team.Name)
    _, err = s.TeamByName(ctx, "ghost")
    require.ErrorIs(t, err, ErrNotFound)

    teams, err := s.Teams(ctx)
    require.NoError(t, err)
    require.Len(t, teams, 1)
}

func TestSQLite_PersisterIsIdempotent(t *testing.T) {
    ctx := context.Background()
    s := openTestStore(t)
    p := planning.NewPersister(s, zerolog.Nop(), nil)
    batch := []domain.Assignment{
        {SprintName: "S1", IssueKey: "P-1", AssigneeName: "ana", Title: "one", EstimatedDays: 3, StoryPoints: 3},
        {SprintName: "S1", IssueKey: "P-2", AssigneeName: "bo", Title: "two", EstimatedDays: 1, StoryPoints: 1},
    }
    st, err := p.Save(ctx, batch)
    require.NoError(t, err)
    require.Equal(t, 2, st.Inserted)

    st, err = p.Save(ctx, batch)
    require.NoError(t, err)
    require.Equal(t, 2, st.Updated)

    rows, err := s.ListAssignments(ctx)
    require.NoError(t, err)
    require.Len(t, rows, 2)
    require.NotNil(t, rows[0].UpdatedAt)

    batch[0].AssigneeName = "bo"
    st, err = p.Save(ctx, batch[:1])
    require.NoError(t, err)
    require.Equal(t, 1, st.Reassigned)
    got, err := s.AssignmentByKey(ctx, "P-1")
    require.NoError(t, err)
    require.Equal(t, "bo", got.AssigneeName)
}

func TestSQLite_SaveCollapsesDuplicates(t *testing.T) {
    ctx := context.Background()
    s := openTestStore(t)
    dup := domain.Assignment{SprintName: "S0", IssueKey: "P-9", AssigneeName: "old", Title: "t", EstimatedDays: 1, StoryPoints: 1}
    require.NoError(t, s.InTx(ctx, func(tx planning.AssignmentTx) error {
        for i := 0; i < 3; i++ {
            if _, err := tx.InsertAssignment(ctx, dup); err != nil { return err }
        }
        return nil
    }))

    st, err := planning.NewPersister(s, zerolog.Nop(), nil).Save(ctx, []domain.Assignment{{SprintName: "S1", IssueKey: "P-9", AssigneeName: "new", Title: "t", EstimatedDays: 3, StoryPoints: 5}})
    require.NoError(t, err)
    require.Equal(t, 2, st.Deduped)

    rows, err := s.ListAssignments(ctx)
    require.NoError(t, err)
    require.Len(t, rows, 1)
    require.Equal(t, int64(3), rows[0].ID)
    require.Equal(t, "S1", rows[0].SprintName)
}

func TestSQLite_PlanningRuns(t *testing.T) {
    ctx := context.Background()
    s := openTestStore(t)
    _, err := s.LastRun(ctx)
    require.ErrorIs(t, err, ErrNotFound)

    run := domain.PlanningRun{ID: uuid.NewString(), Project: "P", Sprint: "S1", Team: "alpha", StartedAt: time.Now()}
    require.NoError(t, s.StartRun(ctx, run))
    fin := time.Now()
    run.FinishedAt, run.Allocated, run.Success = &fin, 4, true
    require.NoError(t, s.FinishRun(ctx, run))

    last, err := s.LastRun(ctx)
    require.NoError(t, err)
    require.Equal(t, run.ID, last.ID)
    require.True(t, last.Success)
    require.Equal(t, 4, last.Allocated)
    require.NotNil(t, last.FinishedAt)
}

func TestSQLite_AdvisoryLock(t *testing.T) {
    s := openTestStore(t)
    release, ok, err := s.TryAdvisoryLock(context.Background(), 7)
    require.NoError(t, err)
    require.True(t, ok)
    _, ok, _ = s.TryAdvisoryLock(context.Background(), 7)
    require.False(t, ok)
    release()
    release, ok, _ = s.TryAdvisoryLock(context.Background(), 7)
    require.True(t, ok)
    release()
}

func TestSQLite_TeamNamesIgnoreCase(t *testing.T) {
    ctx := context.Background()
    s := openTestStore(t)

    first, err := s.AddTeam(ctx, "alpha")
    require.NoError(t, err)
    again, err := s.AddTeam(ctx, "Alpha")
    require.NoError(t, err)
    require.Equal(t, first.ID, again.ID)
    require.Equal(t, "alpha", again.Name)

    _, err = s.AddPerson(ctx, domain.Person{Username: "cy", Email: "cy@x.io", Role: "qa", Team: "alpha"})
    require.NoError(t, err)

    people, err := s.PeopleByTeam(ctx, "ALPHA")
    require.NoError(t, err)
    require.Len(t, people, 1)
    require.Equal(t, "cy", people[0].Username)

    teams, err := s.Teams(ctx)
    require.NoError(t, err)
    require.Len(t, teams, 1)
}
