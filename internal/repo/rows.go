package repo

import (
    "strings"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

const assignmentColumns = `id, sprint_name, issue_key, assignee_name, title, estimated_days, story_points, created_at, updated_at`

const issueColumns = `id, key, project_key, title, COALESCE(description,''), COALESCE(priority,''), story_points, COALESCE(assignee,''), status, due_date`

// scanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type scanner interface {
    Scan(dest ...any) error
}

func scanAssignment(s scanner) (domain.StoredAssignment, error) {
    var a domain.StoredAssignment
    err := s.Scan(&a.ID, &a.SprintName, &a.IssueKey, &a.AssigneeName, &a.Title, &a.EstimatedDays, &a.StoryPoints, &a.CreatedAt, &a.UpdatedAt)
    return a, err
}

func scanIssue(s scanner) (domain.WorkItem, error) {
    var it domain.WorkItem
    var assignee string
    if err := s.Scan(&it.ID, &it.Key, &it.Project, &it.Title, &it.Description, &it.Priority, &it.Points, &assignee, &it.StatusName, &it.DueDate); err != nil {
        return it, err
    }
    it.Assignee = domain.PlainAssignee(assignee)
    it.Status = domain.ParseStatus(it.StatusName)
    return it, nil
}

// issueArgs flattens an item for the jira_issues upsert.
func issueArgs(it domain.WorkItem) (assignee, priority *string, due *time.Time) {
    if n, ok := it.Assignee.Name(); ok { assignee = &n }
    if p := strings.TrimSpace(it.Priority); p != "" { priority = &p }
    if it.DueDate != nil {
        d := it.DueDate.UTC().Truncate(24 * time.Hour)
        due = &d
    }
    return assignee, priority, due
}
