package repo

import "errors"

var ErrNotFound = errors.New("not found")

const pgSchema = `
CREATE TABLE IF NOT EXISTS teams (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS users (
    id             BIGSERIAL PRIMARY KEY,
    email          TEXT NOT NULL UNIQUE,
    username       TEXT NOT NULL UNIQUE,
    role           TEXT NOT NULL DEFAULT 'developer',
    tickets_solved INT NOT NULL DEFAULT 0,
    team           TEXT REFERENCES teams(name),
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_teams_name_ci ON teams (lower(name));
CREATE INDEX IF NOT EXISTS idx_users_team ON users (lower(team));
CREATE TABLE IF NOT EXISTS jira_issues (
    id             BIGSERIAL PRIMARY KEY,
    key            TEXT NOT NULL UNIQUE,
    project_key    TEXT NOT NULL,
    title          TEXT NOT NULL,
    description    TEXT,
    priority       TEXT DEFAULT 'Medium',
    story_points   DOUBLE PRECISION,
    assignee       TEXT,
    status         TEXT NOT NULL,
    due_date       DATE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_synced_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_jira_issues_project ON jira_issues(project_key);
CREATE TABLE IF NOT EXISTS sprints (
    id             BIGSERIAL PRIMARY KEY,
    sprint_name    TEXT NOT NULL,
    issue_key      TEXT NOT NULL,
    assignee_name  TEXT NOT NULL,
    title          TEXT NOT NULL,
    estimated_days INT NOT NULL,
    story_points   INT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_sprints_issue_key ON sprints(issue_key);
CREATE INDEX IF NOT EXISTS idx_sprints_sprint_name ON sprints(sprint_name);
CREATE TABLE IF NOT EXISTS planning_runs (
    id          UUID PRIMARY KEY,
    project     TEXT NOT NULL,
    sprint      TEXT NOT NULL,
    team        TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ,
    preserved   INT NOT NULL DEFAULT 0,
    allocated   INT NOT NULL DEFAULT 0,
    refined     INT NOT NULL DEFAULT 0,
    fallbacks   INT NOT NULL DEFAULT 0,
    success     BOOLEAN NOT NULL DEFAULT false,
    error       TEXT NOT NULL DEFAULT ''
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS teams (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    email          TEXT NOT NULL UNIQUE,
    username       TEXT NOT NULL UNIQUE,
    role           TEXT NOT NULL DEFAULT 'developer',
    tickets_solved INTEGER NOT NULL DEFAULT 0,
    team           TEXT REFERENCES teams(name),
    created_at     DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_teams_name_ci ON teams (name COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_users_team ON users (team COLLATE NOCASE);
CREATE TABLE IF NOT EXISTS jira_issues (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    key            TEXT NOT NULL UNIQUE,
    project_key    TEXT NOT NULL,
    title          TEXT NOT NULL,
    description    TEXT,
    priority       TEXT DEFAULT 'Medium',
    story_points   REAL,
    assignee       TEXT,
    status         TEXT NOT NULL,
    due_date       DATETIME,
    created_at     DATETIME NOT NULL,
    updated_at     DATETIME NOT NULL,
    last_synced_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jira_issues_project ON jira_issues(project_key);
CREATE TABLE IF NOT EXISTS sprints (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    sprint_name    TEXT NOT NULL,
    issue_key      TEXT NOT NULL,
    assignee_name  TEXT NOT NULL,
    title          TEXT NOT NULL,
    estimated_days INTEGER NOT NULL,
    story_points   INTEGER NOT NULL,
    created_at     DATETIME NOT NULL,
    updated_at     DATETIME
);
CREATE INDEX IF NOT EXISTS idx_sprints_issue_key ON sprints(issue_key);
CREATE INDEX IF NOT EXISTS idx_sprints_sprint_name ON sprints(sprint_name);
CREATE TABLE IF NOT EXISTS planning_runs (
    id          TEXT PRIMARY KEY,
    project     TEXT NOT NULL,
    sprint      TEXT NOT NULL,
    team        TEXT NOT NULL,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME,
    preserved   INTEGER NOT NULL DEFAULT 0,
    allocated   INTEGER NOT NULL DEFAULT 0,
    refined     INTEGER NOT NULL DEFAULT 0,
    fallbacks   INTEGER NOT NULL DEFAULT 0,
    success     BOOLEAN NOT NULL DEFAULT 0,
    error       TEXT NOT NULL DEFAULT ''
);
`
