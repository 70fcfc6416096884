package repo

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/planning"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*DB, error) {
    pool, err := pgxpool.New(ctx, cfg.DBDSN)
    if err != nil { return nil, fmt.Errorf("db connect: %w", err) }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil {
        pool.Close()
        return nil, fmt.Errorf("db ping: %w", err)
    }
    return &DB{Pool: pool, log: log}, nil
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
    db  *DB
    log zerolog.Logger
}

var _ planning.AssignmentStore = (*Repository)(nil)
var _ planning.PeopleDirectory = (*Repository)(nil)

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) Close() { r.db.Close() }

func (r *Repository) Migrate(ctx context.Context) error {
    _, err := r.db.Pool.Exec(ctx, pgSchema)
    return err
}

// TryAdvisoryLock holds a session lock on a dedicated connection until release is called.
func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
    conn, err := r.db.Pool.Acquire(ctx)
    if err != nil { return nil, false, err }
    var ok bool
    if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil || !ok {
        conn.Release()
        return nil, false, err
    }
    release := func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second); defer cancel()
        var unlocked bool
        if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&unlocked); err != nil || !unlocked {
            r.log.Warn().Err(err).Int64("key", key).Msg("advisory unlock failed")
        }
        conn.Release()
    }
    return release, true, nil
}

func (r *Repository) IssuesByProject(ctx context.Context, project string) ([]domain.WorkItem, error) {
    rows, err := r.db.Pool.Query(ctx, `SELECT `+issueColumns+` FROM jira_issues WHERE project_key=$1 ORDER BY key`, project)
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

func (r *Repository) UpsertIssues(ctx context.Context, items []domain.WorkItem) error {
    if len(items) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `INSERT INTO jira_issues(key, project_key, title, description, priority, story_points, assignee, status, due_date)
        VALUES($1,$2,$3,$4,COALESCE($5,'Medium'),$6,$7,$8,$9)
        ON CONFLICT(key) DO UPDATE SET
            project_key=EXCLUDED.project_key,
            title=EXCLUDED.title,
            description=EXCLUDED.description,
            priority=EXCLUDED.priority,
            story_points=EXCLUDED.story_points,
            assignee=EXCLUDED.assignee,
            status=EXCLUDED.status,
            due_date=EXCLUDED.due_date,
            updated_at=now(),
            last_synced_at=now()`
    for _, it := range items {
        assignee, priority, due := issueArgs(it)
        batch.Queue(q, it.Key, it.Project, it.Title, it.Description, priority, it.Points, assignee, it.StatusName, due)
    }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range items { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

func (r *Repository) PeopleByTeam(ctx context.Context, team string) ([]domain.Person, error) {
    rows, err := r.db.Pool.Query(ctx, `SELECT id, username, email, role, tickets_solved, COALESCE(team,''), created_at
        FROM users WHERE lower(team)=lower($1) ORDER BY id`, strings.TrimSpace(team))
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

func (r *Repository) AddTeam(ctx context.Context, name string) (domain.Team, error) {
    var t domain.Team
    var created time.Time
    err := r.db.Pool.QueryRow(ctx, `INSERT INTO teams(name) VALUES($1)
        ON CONFLICT ((lower(name))) DO UPDATE SET name=teams.name RETURNING id, name, created_at`, name).Scan(&t.ID, &t.Name, &created)
    t.CreatedAt = &created
    return t, err
}

func (r *Repository) AddPerson(ctx context.Context, p domain.Person) (int64, error) {
    var id int64
    err := r.db.Pool.QueryRow(ctx, `INSERT INTO users(email, username, role, tickets_solved, team) VALUES($1,$2,$3,$4,$5)
        ON CONFLICT(username) DO UPDATE SET email=EXCLUDED.email, role=EXCLUDED.role,
            tickets_solved=EXCLUDED.tickets_solved, team=EXCLUDED.team
        RETURNING id`, p.Email, p.Username, p.Role, p.TicketsSolved, p.Team).Scan(&id)
    return id, err
}

func (r *Repository) Teams(ctx context.Context) ([]domain.Team, error) {
    rows, err := r.db.Pool.Query(ctx, `SELECT id, name, created_at FROM teams ORDER BY id`)
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

func (r *Repository) TeamByName(ctx context.Context, name string) (*domain.Team, error) {
    var t domain.Team
    var created time.Time
    err := r.db.Pool.QueryRow(ctx, `SELECT id, name, created_at FROM teams WHERE lower(name)=lower($1)`, name).Scan(&t.ID, &t.Name, &created)
    if errors.Is(err, pgx.ErrNoRows) { return nil, ErrNotFound }
    if err != nil { return nil, err }
    t.CreatedAt = &created
    return &t, nil
}

func (r *Repository) ListAssignments(ctx context.Context) ([]domain.StoredAssignment, error) {
    rows, err := r.db.Pool.Query(ctx, `SELECT `+assignmentColumns+` FROM sprints ORDER BY sprint_name, created_at, id`)
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

func (r *Repository) AssignmentByKey(ctx context.Context, key string) (*domain.StoredAssignment, error) {
    a, err := scanAssignment(r.db.Pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM sprints WHERE issue_key=$1
        ORDER BY created_at DESC, id DESC LIMIT 1`, key))
    if errors.Is(err, pgx.ErrNoRows) { return nil, ErrNotFound }
    if err != nil { return nil, err }
    return &a, nil
}

// InTx runs fn in one transaction; any error rolls the whole batch back.
func (r *Repository) InTx(ctx context.Context, fn func(planning.AssignmentTx) error) error {
    return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error { return fn(&pgTx{tx: tx}) })
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) LockIssueKey(ctx context.Context, key string) error {
    _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key)
    return err
}

func (t *pgTx) LatestByIssueKey(ctx context.Context, key string) (*domain.StoredAssignment, error) {
    a, err := scanAssignment(t.tx.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM sprints WHERE issue_key=$1
        ORDER BY created_at DESC, id DESC LIMIT 1`, key))
    if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
    if err != nil { return nil, err }
    return &a, nil
}

func (t *pgTx) UpdateAssignment(ctx context.Context, id int64, a domain.Assignment) error {
    _, err := t.tx.Exec(ctx, `UPDATE sprints SET sprint_name=$2, assignee_name=$3, title=$4, estimated_days=$5, story_points=$6, updated_at=now()
        WHERE id=$1`, id, a.SprintName, a.AssigneeName, a.Title, a.EstimatedDays, a.StoryPoints)
    return err
}

func (t *pgTx) DeleteDuplicates(ctx context.Context, key string, keep int64) (int64, error) {
    tag, err := t.tx.Exec(ctx, `DELETE FROM sprints WHERE issue_key=$1 AND id<>$2`, key, keep)
    if err != nil { return 0, err }
    return tag.RowsAffected(), nil
}

func (t *pgTx) InsertAssignment(ctx context.Context, a domain.Assignment) (int64, error) {
    var id int64
    err := t.tx.QueryRow(ctx, `INSERT INTO sprints(sprint_name, issue_key, assignee_name, title, estimated_days, story_points)
        VALUES($1,$2,$3,$4,$5,$6) RETURNING id`, a.SprintName, a.IssueKey, a.AssigneeName, a.Title, a.EstimatedDays, a.StoryPoints).Scan(&id)
    return id, err
}

// Planning runs
func (r *Repository) StartRun(ctx context.Context, run domain.PlanningRun) error {
    _, err := r.db.Pool.Exec(ctx, `INSERT INTO planning_runs(id, project, sprint, team, started_at, success) VALUES($1::text::uuid,$2,$3,$4,$5,false)`,
        run.ID, run.Project, run.Sprint, run.Team, run.StartedAt)
    return err
}

func (r *Repository) FinishRun(ctx context.Context, run domain.PlanningRun) error {
    _, err := r.db.Pool.Exec(ctx, `UPDATE planning_runs SET finished_at=$2, preserved=$3, allocated=$4, refined=$5, fallbacks=$6, success=$7, error=$8
        WHERE id=$1::text::uuid`, run.ID, run.FinishedAt, run.Preserved, run.Allocated, run.Refined, run.Fallbacks, run.Success, run.Error)
    return err
}

func (r *Repository) LastRun(ctx context.Context) (*domain.PlanningRun, error) {
    const q = `SELECT id::text, project, sprint, team, started_at, finished_at, preserved, allocated, refined, fallbacks, success, error
        FROM planning_runs ORDER BY started_at DESC LIMIT 1`
    run := &domain.PlanningRun{}
    err := r.db.Pool.QueryRow(ctx, q).Scan(&run.ID, &run.Project, &run.Sprint, &run.Team, &run.StartedAt, &run.FinishedAt,
        &run.Preserved, &run.Allocated, &run.Refined, &run.Fallbacks, &run.Success, &run.Error)
    if errors.Is(err, pgx.ErrNoRows) { return nil, ErrNotFound }
    if err != nil { return nil, err }
    return run, nil
}
