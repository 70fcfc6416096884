/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package openai

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "math"
    "strings"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/HamedShams/sprint-pulse/internal/planning"
    "github.com/openai/openai-go/v2"
    "github.com/openai/openai-go/v2/option"
    "github.com/openai/openai-go/v2/shared"
    "github.com/rs/zerolog"
)

var ErrMissingKey = errors.New("openai: missing key")

var severities = map[string]struct{}{"Low": {}, "Medium": {}, "High": {}}

type Client struct {
    key   string
    model string
    cli   openai.Client
    log   zerolog.Logger
}

var _ planning.Oracle = (*Client)(nil)

func NewClient(cfg config.Config, log zerolog.Logger, opts ...option.RequestOption) *Client {
    model := cfg.OpenAIModel
    if strings.TrimSpace(model) == "" { model = "gpt-4.1-mini" }
    base := []option.RequestOption{option.WithAPIKey(cfg.OpenAIKey), option.WithMaxRetries(2)}
    if cfg.OpenAITimeout > 0 { base = append(base, option.WithRequestTimeout(cfg.OpenAITimeout)) }
    cli := openai.NewClient(append(base, opts...)...)
    return &Client{key: cfg.OpenAIKey, model: model, cli: cli, log: log}
}

func (c *Client) Configured() bool { return strings.TrimSpace(c.key) != "" }

// complete sends one JSON-mode chat completion and returns the raw content.
func (c *Client) complete(ctx context.Context, system, user string, temperature float64, seed *int64) (string, error) {
    if !c.Configured() { return "", ErrMissingKey }
    params := openai.ChatCompletionNewParams{
        Model: shared.ChatModel(c.model),
        Messages: []openai.ChatCompletionMessageParamUnion{
            openai.SystemMessage(system),
            openai.UserMessage(user),
        },
        Temperature: openai.Float(temperature),
        ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
            OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
        },
    }
    if seed != nil { params.Seed = openai.Int(*seed) }
    resp, err := c.cli.Chat.Completions.New(ctx, params)
    if err != nil { return "", fmt.Errorf("openai: %w", err) }
    if len(resp.Choices) == 0 { return "", errors.New("openai: no choices") }
    return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

const estimateSystem = "You are a software estimation expert. Use only Fibonacci numbers for story points."

// EstimatePoints asks for a refined Fibonacci estimate at temperature 0 with a
// content-derived seed, so the same item gets the same answer.
func (c *Client) EstimatePoints(ctx context.Context, req planning.EstimateRequest) (planning.EstimateResponse, error) {
    desc := scrub(req.Description)
    if strings.TrimSpace(desc) == "" { desc = "No description" }
    prompt := fmt.Sprintf(`Analyze this task and refine the story point estimate.

Task: %s
Description: %s
Basic Estimate: %d

Use only Fibonacci numbers: %v
Consider: complexity, unknowns, integration points.

Return JSON: {"estimated_story_points": <number>, "complexity_reasoning": "<brief reason>"}`,
        scrub(req.Title), desc, req.BasicEstimate, req.AllowedValues)
    seed := req.Seed
    content, err := c.complete(ctx, estimateSystem, prompt, 0, &seed)
    if err != nil { return planning.EstimateResponse{}, err }
    return parseEstimate(content)
}

func parseEstimate(content string) (planning.EstimateResponse, error) {
    var raw struct {
        Points    *float64 `json:"estimated_story_points"`
        Reasoning string   `json:"complexity_reasoning"`
    }
    if err := json.Unmarshal([]byte(content), &raw); err != nil { return planning.EstimateResponse{}, fmt.Errorf("openai: parse estimate: %w", err) }
    if raw.Points == nil || *raw.Points <= 0 || math.IsNaN(*raw.Points) {
        return planning.EstimateResponse{}, errors.New("openai: estimate missing estimated_story_points")
    }
    return planning.EstimateResponse{Points: int(math.Round(*raw.Points)), Reasoning: raw.Reasoning}, nil
}

// TaskReport generates a summary, details and recommendations for a stored assignment.
func (c *Client) TaskReport(ctx context.Context, a domain.Assignment) (domain.TaskReport, error) {
    names := newAliases([]string{a.AssigneeName})
    prompt := fmt.Sprintf(`Generate a structured report for the following sprint task:

Issue Key: %s
Title: %s
Assignee: %s
Story Points: %d
Estimated Duration (Days): %d

The report should include:
1. A concise summary of the assigned task for its assignee.
2. Key technical or strategic details about the implementation.
3. 3 to 5 tailored recommendations for improving similar future tasks.
Return JSON with fields: summary, details, recommendations (as list).`,
        a.IssueKey, names.text(a.Title), names.name(a.AssigneeName), a.StoryPoints, a.EstimatedDays)
    content, err := c.complete(ctx, "You are an agile delivery analyst.", prompt, 0.4, nil)
    if err != nil { return domain.TaskReport{}, err }

    var raw struct {
        Summary         string          `json:"summary"`
        Details         json.RawMessage `json:"details"`
        Recommendations []string        `json:"recommendations"`
    }
    if err := json.Unmarshal([]byte(content), &raw); err != nil { return domain.TaskReport{}, fmt.Errorf("openai: parse report: %w", err) }
    restore := func(s string) string {
        for alias, n := range names.toName { s = strings.ReplaceAll(s, alias, n) }
        return s
    }
    recs := make([]string, 0, len(raw.Recommendations))
    for _, r := range raw.Recommendations { recs = append(recs, restore(r)) }
    return domain.TaskReport{
        IssueKey:        a.IssueKey,
        AssigneeName:    a.AssigneeName,
        Title:           a.Title,
        Summary:         restore(raw.Summary),
        Details:         restore(flattenDetails(raw.Details)),
        Recommendations: recs,
    }, nil
}

// flattenDetails accepts details as a string or any JSON value.
func flattenDetails(raw json.RawMessage) string {
    if len(raw) == 0 { return "" }
    var s string
    if err := json.Unmarshal(raw, &s); err == nil { return s }
    return string(raw)
}

const riskSystem = "You are a project management assistant. Ensure each risk is specific to one task and its assignee."

// IdentifyRisks asks for per-task risks and keeps only those with a known
// severity and exactly one impacted person who is an assignee of the input.
func (c *Client) IdentifyRisks(ctx context.Context, assignments []domain.Assignment) ([]domain.Risk, error) {
    if len(assignments) == 0 { return []domain.Risk{}, nil }
    people := make([]string, 0, len(assignments))
    for _, a := range assignments { people = append(people, a.AssigneeName) }
    names := newAliases(people)

    var b strings.Builder
    b.WriteString("Below is a list of sprint tasks:\n")
    for _, a := range assignments {
        fmt.Fprintf(&b, "- Issue Key: %s, Title: '%s', Assignee: %s, Story Points: %d, Days: %d\n",
            a.IssueKey, names.text(a.Title), names.name(a.AssigneeName), a.StoryPoints, a.EstimatedDays)
    }
    valid := make([]string, 0, len(names.order))
    for _, n := range names.order { valid = append(valid, names.toAlias[n]) }
    fmt.Fprintf(&b, `
Analyze each task individually and identify specific risks related to complexity, workload, or other factors.
For each risk, return exactly one team member (the assignee of the task) in the impacted_person field.
Only include assignees from the provided tasks: %s.
Return JSON: {"risks": [{"risk": "<description>", "severity": "Low|Medium|High", "impacted_person": ["<assignee>"]}]}`,
        strings.Join(valid, ", "))

    content, err := c.complete(ctx, riskSystem, b.String(), 0.6, nil)
    if err != nil { return nil, err }
    risks, skipped, err := parseRisks(content, names)
    if err != nil { return nil, err }
    if skipped > 0 { c.log.Warn().Int("skipped", skipped).Int("kept", len(risks)).Msg("invalid risks dropped") }
    return risks, nil
}

// parseRisks accepts {"risks": [...]} or a bare array.
func parseRisks(content string, names *aliases) ([]domain.Risk, int, error) {
    var list []domain.Risk
    var wrapped struct{ Risks []domain.Risk `json:"risks"` }
    if err := json.Unmarshal([]byte(content), &wrapped); err == nil {
        list = wrapped.Risks
    } else if err := json.Unmarshal([]byte(content), &list); err != nil {
        return nil, 0, fmt.Errorf("openai: parse risks: %w", err)
    }
    out := make([]domain.Risk, 0, len(list))
    skipped := 0
    for _, r := range list {
        if _, ok := severities[r.Severity]; !ok || strings.TrimSpace(r.Risk) == "" || len(r.ImpactedPerson) != 1 { skipped++; continue }
        who, ok := names.restore(r.ImpactedPerson[0])
        if !ok { skipped++; continue }
        r.ImpactedPerson = []string{who}
        r.Risk = strings.ReplaceAll(r.Risk, names.toAlias[who], who)
        out = append(out, r)
    }
    return out, skipped, nil
}
