/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "os"
    "strings"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/rs/zerolog"
)

const pageSize = 100

type Client struct {
    baseURL     string
    token       string
    basic       string
    user        string
    pass        string
    http        *http.Client
    log         zerolog.Logger
    apiVer      string
    pointsField string
    backoff     time.Duration
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        baseURL:     cfg.JiraBaseURL,
        token:       cfg.JiraPAT,
        basic:       getenvBasic(),
        user:        cfg.JiraUsername,
        pass:        cfg.JiraPassword,
        http:        &http.Client{Timeout: cfg.HTTPTimeout},
        log:         log,
        apiVer:      cfg.JiraAPIVersion,
        pointsField: cfg.JiraPointsField,
        backoff:     300 * time.Millisecond,
    }
}

// Configured reports whether a base URL is set; without one the service only reads the DB.
func (c *Client) Configured() bool { return strings.TrimSpace(c.baseURL) != "" }

// getenvBasic reads JIRA_BASIC_AUTH from environment if present (format: user:pass base64), optional
func getenvBasic() string {
    v := ""
    if s := strings.TrimSpace(os.Getenv("JIRA_BASIC_AUTH")); s != "" { v = s }
    return v
}

func (c *Client) apiURL(path string, q url.Values) string {
    base := strings.TrimRight(c.baseURL, "/")
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := base + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) doJSON(ctx context.Context, method, u string, body any) (map[string]any, error) {
    if c.baseURL == "" { return nil, errors.New("jira: empty baseURL") }
    var payload []byte
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return nil, err }
        payload = b
    }
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        var r io.Reader
        if payload != nil { r = bytes.NewReader(payload) }
        req, err := http.NewRequestWithContext(ctx, method, u, r)
        if err != nil { return nil, err }
        req.Header.Set("Accept", "application/json")
        if payload != nil { req.Header.Set("Content-Type", "application/json") }
        if c.token != "" {
            req.Header.Set("Authorization", "Bearer "+c.token)
        } else if c.user != "" && c.pass != "" {
            req.SetBasicAuth(c.user, c.pass)
        } else if c.basic != "" {
            req.Header.Set("Authorization", "Basic "+c.basic)
        }
        out, retry, err := c.do(req)
        if err == nil { return out, nil }
        if !retry { return nil, err }
        lastErr = err
        c.log.Debug().Err(err).Int("attempt", attempt+1).Str("url", u).Msg("jira retry")
        select {
        case <-ctx.Done(): return nil, ctx.Err()
        case <-time.After(c.backoff * time.Duration(1<<attempt)):
        }
    }
    return nil, lastErr
}

// do executes one request; retry is true on transport errors, 429 and 5xx.
func (c *Client) do(req *http.Request) (map[string]any, bool, error) {
    resp, err := c.http.Do(req)
    if err != nil { return nil, true, fmt.Errorf("jira: %w", err) }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
        err := fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
        return nil, resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, err
    }
    var out map[string]any
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil { return nil, false, fmt.Errorf("jira: decode: %w", err) }
    return out, false, nil
}

func (c *Client) fields() []string {
    return []string{"summary", "description", "priority", c.pointsField, "assignee", "status", "duedate"}
}

func (c *Client) Search(ctx context.Context, jql string, startAt, max int) (map[string]any, error) {
    if jql == "" { return nil, errors.New("jira: empty jql") }
    fields := strings.Join(c.fields(), ",")
    if c.apiVer == "2" {
        q := url.Values{}
        q.Set("jql", jql)
        if startAt > 0 { q.Set("startAt", fmt.Sprint(startAt)) }
        if max > 0 { q.Set("maxResults", fmt.Sprint(max)) }
        q.Set("fields", fields)
        u := c.apiURL("/rest/api/2/search", q)
        return c.doJSON(ctx, http.MethodGet, u, nil)
    }
    // default to v3
    body := map[string]any{"jql": jql, "startAt": startAt, "maxResults": max, "fields": c.fields()}
    u := c.apiURL("/rest/api/3/search", nil)
    return c.doJSON(ctx, http.MethodPost, u, body)
}

// SearchProject pages through every issue of a project.
func (c *Client) SearchProject(ctx context.Context, project string) ([]domain.WorkItem, error) {
    if strings.TrimSpace(project) == "" { return nil, errors.New("jira: empty project key") }
    jql := fmt.Sprintf("project=%s ORDER BY key ASC", project)
    var out []domain.WorkItem
    for start := 0; ; {
        page, err := c.Search(ctx, jql, start, pageSize)
        if err != nil { return nil, err }
        issues, _ := page["issues"].([]any)
        for _, raw := range issues {
            m, _ := raw.(map[string]any)
            if m == nil { continue }
            it, ok := c.toWorkItem(project, m)
            if !ok { continue }
            out = append(out, it)
        }
        total := intOf(page["total"])
        start += len(issues)
        if len(issues) == 0 || start >= total { break }
    }
    c.log.Info().Str("project", project).Int("issues", len(out)).Msg("jira project fetched")
    return out, nil
}

func (c *Client) toWorkItem(project string, m map[string]any) (domain.WorkItem, bool) {
    key, _ := m["key"].(string)
    f, _ := m["fields"].(map[string]any)
    if key == "" || f == nil { return domain.WorkItem{}, false }
    it := domain.WorkItem{Key: key, Project: project}
    it.Title, _ = f["summary"].(string)
    it.Description = FlattenADF(f["description"])
    it.Priority = nameOf(f["priority"])
    it.StatusName = nameOf(f["status"])
    it.Status = domain.ParseStatus(it.StatusName)
    it.Assignee = domain.ParseAssignee(f["assignee"])
    if v, ok := f[c.pointsField].(float64); ok { it.Points = &v }
    if s, ok := f["duedate"].(string); ok && s != "" {
        if d, err := time.Parse("2006-01-02", s); err == nil { it.DueDate = &d }
    }
    return it, true
}

// FlattenADF turns an Atlassian document (or a plain v2 string) into space-joined text.
func FlattenADF(v any) string {
    var parts []string
    var walk func(any)
    walk = func(n any) {
        switch t := n.(type) {
        case string:
            parts = append(parts, t)
        case []any:
            for _, x := range t { walk(x) }
        case map[string]any:
            if t["type"] == "text" {
                if s, ok := t["text"].(string); ok { parts = append(parts, s) }
            }
            if c, ok := t["content"]; ok { walk(c) }
        }
    }
    walk(v)
    return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func nameOf(v any) string {
    m, _ := v.(map[string]any)
    s, _ := m["name"].(string)
    return s
}

func intOf(v any) int {
    switch t := v.(type) {
    case float64: return int(t)
    case int: return t
    }
    return 0
}
