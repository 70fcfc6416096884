package repo

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "sync"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/planning"
    "github.com/rs/zerolog"
    _ "modernc.org/sqlite"
)

// SQLite is the embedded single-process store. Write transactions take the
// database lock up front (BEGIN IMMEDIATE), which serializes planning runs.
type SQLite struct {
    db  *sql.DB
    log zerolog.Logger

    mu    sync.Mutex
    locks map[int64]struct{}
}

var _ planning.AssignmentStore = (*SQLite)(nil)
var _ planning.PeopleDirectory = (*SQLite)(nil)

func OpenSQLite(path string, log zerolog.Logger) (*SQLite, error) {
    dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate&_time_format=sqlite"
    db, err := sql.Open("sqlite", dsn)
    if err != nil { return nil, fmt.Errorf("open sqlite: %w", err) }
    db.SetMaxOpenConns(1)
    if _, err := db.Exec(sqliteSchema); err != nil {
        db.Close()
        return nil, fmt.Errorf("apply schema: %w", err)
    }
    return &SQLite{db: db, log: log, locks: map[int64]struct{}{}}, nil
}

func (s *SQLite) Close() { _ = s.db.Close() }

func (s *SQLite) Migrate(ctx context.Context) error {
    _, err := s.db.ExecContext(ctx, sqliteSchema)
    return err
}

func (s *SQLite) TryAdvisoryLock(_ context.Context, key int64) (func(), bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, held := s.locks[key]; held { return nil, false, nil }
    s.locks[key] = struct{}{}
    return func() {
        s.mu.Lock()
        delete(s.locks, key)
        s.mu.Unlock()
    }, true, nil
}

func now() time.Time { return time.Now().UTC() }

func (s *SQLite) IssuesByProject(ctx context.Context, project string) ([]domain.WorkItem, error) {
    rows, err := s.db.QueryContext(ctx, `SELECT `+issueColumns+` FROM jira_issues WHERE project_key=? ORDER BY key`, project)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []domain.WorkItem
    for rows.Next() {
        it, err := scanIssue(rows)
        if err != nil { return nil, err }
        out = append(out, it)
    }
    return out, rows.Err()
}

func (s *SQLite) UpsertIssues(ctx context.Context, items []domain.WorkItem) error {
    if len(items) == 0 { return nil }
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil { return err }
    defer tx.Rollback()
    const q = `INSERT INTO jira_issues(key, project_key, title, description, priority, story_points, assignee, status, due_date, created_at, updated_at, last_synced_at)
        VALUES(?,?,?,?,COALESCE(?,'Medium'),?,?,?,?,?,?,?)
        ON CONFLICT(key) DO UPDATE SET
            project_key=excluded.project_key,
            title=excluded.title,
            description=excluded.description,
            priority=excluded.priority,
            story_points=excluded.story_points,
            assignee=excluded.assignee,
            status=excluded.status,
            due_date=excluded.due_date,
            updated_at=excluded.updated_at,
            last_synced_at=excluded.last_synced_at`
    ts := now()
    for _, it := range items {
        assignee, priority, due := issueArgs(it)
        if _, err := tx.ExecContext(ctx, q, it.Key, it.Project, it.Title, it.Description, priority, it.Points, assignee, it.StatusName, due, ts, ts, ts); err != nil {
            return fmt.Errorf("upsert %s: %w", it.Key, err)
        }
    }
    return tx.Commit()
}

func (s *SQLite) PeopleByTeam(ctx context.Context, team string) ([]domain.Person, error) {
    rows, err := s.db.QueryContext(ctx, `SELECT id, username, email, role, tickets_solved, COALESCE(team,''), created_at
        FROM users WHERE team=? COLLATE NOCASE ORDER BY id`, strings.TrimSpace(team))
    if err != nil { return nil, err }
    defer rows.Close()
    var out []domain.Person
    for rows.Next() {
        var p domain.Person
        var created time.Time
        if err := rows.Scan(&p.ID, &p.Username, &p.Email, &p.Role, &p.TicketsSolved, &p.Team, &created); err != nil { return nil, err }
        p.CreatedAt = &created
        out = append(out, p)
    }
    if err := rows.Err(); err != nil { return nil, err }
    if len(out) == 0 { return nil, fmt.Errorf("team %q: %w", team, planning.ErrTeamNotFound) }
    return out, nil
}

func (s *SQLite) AddTeam(ctx context.Context, name string) (domain.Team, error) {
    if _, err := s.db.ExecContext(ctx, `INSERT INTO teams(name, created_at) VALUES(?,?) ON CONFLICT DO NOTHING`, name, now()); err != nil {
        return domain.Team{}, err
    }
    t, err := s.TeamByName(ctx, name)
    if err != nil { return domain.Team{}, err }
    return *t, nil
}

func (s *SQLite) AddPerson(ctx context.Context, p domain.Person) (int64, error) {
    _, err := s.db.ExecContext(ctx, `INSERT INTO users(email, username, role, tickets_solved, team, created_at) VALUES(?,?,?,?,?,?)
        ON CONFLICT(username) DO UPDATE SET email=excluded.email, role=excluded.role,
            tickets_solved=excluded.tickets_solved, team=excluded.team`,
        p.Email, p.Username, p.Role, p.TicketsSolved, p.Team, now())
    if err != nil { return 0, err }
    var id int64
    err = s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username=?`, p.Username).Scan(&id)
    return id, err
}

func (s *SQLite) Teams(ctx context.Context) ([]domain.Team, error) {
    rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM teams ORDER BY id`)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []domain.Team
    for rows.Next() {
        var t domain.Team
        var created time.Time
        if err := rows.Scan(&t.ID, &t.Name, &created); err != nil { return nil, err }
        t.CreatedAt = &created
        out = append(out, t)
    }
    return out, rows.Err()
}

func (s *SQLite) TeamByName(ctx context.Context, name string) (*domain.Team, error) {
    var t domain.Team
    var created time.Time
    err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM teams WHERE name=? COLLATE NOCASE`, strings.TrimSpace(name)).Scan(&t.ID, &t.Name, &created)
    if errors.Is(err, sql.ErrNoRows) { return nil, ErrNotFound }
    if err != nil { return nil, err }
    t.CreatedAt = &created
    return &t, nil
}

func (s *SQLite) ListAssignments(ctx context.Context) ([]domain.StoredAssignment, error) {
    rows, err := s.db.QueryContext(ctx, `SELECT `+assignmentColumns+` FROM sprints ORDER BY sprint_name, created_at, id`)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []domain.StoredAssignment
    for rows.Next() {
        a, err := scanAssignment(rows)
        if err != nil { return nil, err }
        out = append(out, a)
    }
    return out, rows.Err()
}

func (s *SQLite) AssignmentByKey(ctx context.Context, key string) (*domain.StoredAssignment, error) {
    a, err := scanAssignment(s.db.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM sprints WHERE issue_key=?
        ORDER BY created_at DESC, id DESC LIMIT 1`, key))
    if errors.Is(err, sql.ErrNoRows) { return nil, ErrNotFound }
    if err != nil { return nil, err }
    return &a, nil
}

func (s *SQLite) InTx(ctx context.Context, fn func(planning.AssignmentTx) error) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil { return err }
    if err := fn(&sqliteTx{tx: tx}); err != nil {
        _ = tx.Rollback()
        return err
    }
    return tx.Commit()
}

type sqliteTx struct{ tx *sql.Tx }

// LockIssueKey is a no-op: the transaction already holds the database write lock.
func (t *sqliteTx) LockIssueKey(context.Context, string) error { return nil }

func (t *sqliteTx) LatestByIssueKey(ctx context.Context, key string) (*domain.StoredAssignment, error) {
    a, err := scanAssignment(t.tx.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM sprints WHERE issue_key=?
        ORDER BY created_at DESC, id DESC LIMIT 1`, key))
    if errors.Is(err, sql.ErrNoRows) { return nil, nil }
    if err != nil { return nil, err }
    return &a, nil
}

func (t *sqliteTx) UpdateAssignment(ctx context.Context, id int64, a domain.Assignment) error {
    _, err := t.tx.ExecContext(ctx, `UPDATE sprints SET sprint_name=?, assignee_name=?, title=?, estimated_days=?, story_points=?, updated_at=?
        WHERE id=?`, a.SprintName, a.AssigneeName, a.Title, a.EstimatedDays, a.StoryPoints, now(), id)
    return err
}

func (t *sqliteTx) DeleteDuplicates(ctx context.Context, key string, keep int64) (int64, error) {
    res, err := t.tx.ExecContext(ctx, `DELETE FROM sprints WHERE issue_key=? AND id<>?`, key, keep)
    if err != nil { return 0, err }
    return res.RowsAffected()
}

func (t *sqliteTx) InsertAssignment(ctx context.Context, a domain.Assignment) (int64, error) {
    res, err := t.tx.ExecContext(ctx, `INSERT INTO sprints(sprint_name, issue_key, assignee_name, title, estimated_days, story_points, created_at)
        VALUES(?,?,?,?,?,?,?)`, a.SprintName, a.IssueKey, a.AssigneeName, a.Title, a.EstimatedDays, a.StoryPoints, now())
    if err != nil { return 0, err }
    return res.LastInsertId()
}

func (s *SQLite) StartRun(ctx context.Context, run domain.PlanningRun) error {
    _, err := s.db.ExecContext(ctx, `INSERT INTO planning_runs(id, project, sprint, team, started_at, success) VALUES(?,?,?,?,?,0)`,
        run.ID, run.Project, run.Sprint, run.Team, run.StartedAt.UTC())
    return err
}

func (s *SQLite) FinishRun(ctx context.Context, run domain.PlanningRun) error {
    var finished *time.Time
    if run.FinishedAt != nil { f := run.FinishedAt.UTC(); finished = &f }
    _, err := s.db.ExecContext(ctx, `UPDATE planning_runs SET finished_at=?, preserved=?, allocated=?, refined=?, fallbacks=?, success=?, error=?
        WHERE id=?`, finished, run.Preserved, run.Allocated, run.Refined, run.Fallbacks, run.Success, run.Error, run.ID)
    return err
}

func (s *SQLite) LastRun(ctx context.Context) (*domain.PlanningRun, error) {
    const q = `SELECT id, project, sprint, team, started_at, finished_at, preserved, allocated, refined, fallbacks, success, error
        FROM planning_runs ORDER BY started_at DESC LIMIT 1`
    run := &domain.PlanningRun{}
    err := s.db.QueryRowContext(ctx, q).Scan(&run.ID, &run.Project, &run.Sprint, &run.Team, &run.StartedAt, &run.FinishedAt,
        &run.Preserved, &run.Allocated, &run.Refined, &run.Fallbacks, &run.Success, &run.Error)
    if errors.Is(err, sql.ErrNoRows) { return nil, ErrNotFound }
    if err != nil { return nil, err }
    return run, nil
}
