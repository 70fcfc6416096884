/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
    "fmt"
    "strings"
    "time"
)

// WorkItem is one tracker issue as seen by a planning run. It is read-only for the run.
type WorkItem struct {
    ID          int64
    Key         string
    Project     string
    Title       string
    Description string
    Status      Status
    StatusName  string
    Priority    string
    Assignee    Assignee
    Points      *float64
    DueDate     *time.Time
}

// Status buckets a free-form tracker status.
type Status int

const (
    StatusUnknown Status = iota
    StatusTodo
    StatusInProgress
    StatusDone
)

var (
    doneStatuses       = map[string]struct{}{"done": {}, "closed": {}, "resolved": {}, "completed": {}}
    inProgressStatuses = map[string]struct{}{"in progress": {}, "inprogress": {}, "in-progress": {}, "development": {}, "coding": {}}
    todoStatuses       = map[string]struct{}{"to do": {}, "todo": {}, "open": {}, "new": {}, "backlog": {}, "ready for development": {}}
)

func ParseStatus(s string) Status {
    key := strings.ToLower(strings.TrimSpace(s))
    if _, ok := doneStatuses[key]; ok { return StatusDone }
    if _, ok := inProgressStatuses[key]; ok { return StatusInProgress }
    if _, ok := todoStatuses[key]; ok { return StatusTodo }
    return StatusUnknown
}

func (s Status) String() string {
    switch s {
    case StatusTodo: return "todo"
    case StatusInProgress: return "in_progress"
    case StatusDone: return "done"
    default: return "unknown"
    }
}

// AssigneeKind tags the shape an assignee arrived in.
type AssigneeKind int

const (
    AssigneeNone AssigneeKind = iota
    AssigneePlain
    AssigneeRef
)

// AccountRef is the structured user reference trackers return.
type AccountRef struct {
    DisplayName string `json:"displayName"`
    Name        string `json:"name"`
    Key         string `json:"key"`
}

// Assignee is either nobody, a plain name, or a structured reference.
type Assignee struct {
    Kind  AssigneeKind
    Plain string
    Ref   AccountRef
}

func PlainAssignee(name string) Assignee {
    if strings.TrimSpace(name) == "" { return Assignee{} }
    return Assignee{Kind: AssigneePlain, Plain: name}
}

func RefAssignee(ref AccountRef) Assignee { return Assignee{Kind: AssigneeRef, Ref: ref} }

// ParseAssignee accepts the raw JSON shapes a tracker may hand back. Anything it
// does not recognize is treated as no assignee.
func ParseAssignee(v any) Assignee {
    switch t := v.(type) {
    case nil:
        return Assignee{}
    case string:
        return PlainAssignee(t)
    case map[string]any:
        str := func(k string) string { s, _ := t[k].(string); return s }
        a := RefAssignee(AccountRef{DisplayName: str("displayName"), Name: str("name"), Key: str("key")})
        if _, ok := a.Name(); !ok { return Assignee{} }
        return a
    case AccountRef:
        a := RefAssignee(t)
        if _, ok := a.Name(); !ok { return Assignee{} }
        return a
    default:
        return Assignee{}
    }
}

// Name returns the usable display name: displayName, then name, then key.
func (a Assignee) Name() (string, bool) {
    switch a.Kind {
    case AssigneePlain:
        n := strings.TrimSpace(a.Plain)
        return n, n != ""
    case AssigneeRef:
        for _, c := range []string{a.Ref.DisplayName, a.Ref.Name, a.Ref.Key} {
            if n := strings.TrimSpace(c); n != "" { return n, true }
        }
    }
    return "", false
}

func (a Assignee) Assigned() bool { _, ok := a.Name(); return ok }

type Person struct {
    ID            int64  `json:"id"`
    Username      string `json:"username"`
    Email         string `json:"email"`
    Role          string `json:"role"`
    TicketsSolved int    `json:"tickets_solved"`
    Team          string `json:"team"`
    CreatedAt     *time.Time `json:"created_at,omitempty"`
}

type Team struct {
    ID        int64      `json:"id"`
    Name      string     `json:"name"`
    CreatedAt *time.Time `json:"created_at"`
}

type TeamWithMembers struct {
    Team
    Users []Person `json:"users"`
}

// Tier is an experience classification.
type Tier int

const (
    TierIntern Tier = iota + 1
    TierJunior
    TierSenior
)

// Rank orders tiers for the allocator: senior=3, junior=2, intern=1.
func (t Tier) Rank() int { return int(t) }

func (t Tier) String() string {
    switch t {
    case TierIntern: return "intern"
    case TierJunior: return "junior"
    case TierSenior: return "senior"
    default: return fmt.Sprintf("tier(%d)", int(t))
    }
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

type Skill int

const (
    SkillBackend Skill = iota
    SkillFrontend
    SkillFullstack
    SkillTesting
)

func (s Skill) String() string {
    switch s {
    case SkillFrontend: return "frontend"
    case SkillFullstack: return "fullstack"
    case SkillTesting: return "testing"
    default: return "backend"
    }
}

func (s Skill) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// CapacityProfile is derived from a Person for one run and never stored.
type CapacityProfile struct {
    Person        Person  `json:"person"`
    Tier          Tier    `json:"experience_level"`
    Skill         Skill   `json:"skill_category"`
    CapacityScore float64 `json:"capacity_score"`
}

type Assignment struct {
    SprintName    string `json:"sprint_name"`
    IssueKey      string `json:"issue_key"`
    AssigneeName  string `json:"assignee_name"`
    Title         string `json:"title"`
    EstimatedDays int    `json:"estimated_days"`
    StoryPoints   int    `json:"story_points"`
}

// StoredAssignment is an Assignment row as persisted.
type StoredAssignment struct {
    ID int64 `json:"id"`
    Assignment
    CreatedAt time.Time  `json:"created_at"`
    UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type TaskReport struct {
    IssueKey        string   `json:"issue_key"`
    AssigneeName    string   `json:"assignee_name"`
    Title           string   `json:"title"`
    Summary         string   `json:"summary"`
    Details         string   `json:"details"`
    Recommendations []string `json:"recommendations"`
}

type Risk struct {
    Risk           string   `json:"risk"`
    Severity       string   `json:"severity"`
    ImpactedPerson []string `json:"impacted_person"`
}

// PlanningRun records one engine invocation.
type PlanningRun struct {
    ID          string     `json:"id"`
    Project     string     `json:"project"`
    Sprint      string     `json:"sprint"`
    Team        string     `json:"team"`
    StartedAt   time.Time  `json:"started_at"`
    FinishedAt  *time.Time `json:"finished_at"`
    Preserved   int        `json:"preserved"`
    Allocated   int        `json:"allocated"`
    Refined     int        `json:"refined"`
    Fallbacks   int        `json:"fallbacks"`
    Success     bool       `json:"success"`
    Error       string     `json:"error"`
}
