/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package planning

import (
    "context"
    "errors"
    "strings"

    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/rs/zerolog"
    "github.com/zeebo/xxh3"
    "golang.org/x/sync/errgroup"
)

// EstimateRequest is what the oracle sees for one ambiguous item.
type EstimateRequest struct {
    Title         string `json:"title"`
    Description   string `json:"description"`
    BasicEstimate int    `json:"basic_estimate"`
    AllowedValues []int  `json:"allowed_values"`
    Seed          int64  `json:"seed"`
}

type EstimateResponse struct {
    Points    int    `json:"estimated_story_points"`
    Reasoning string `json:"complexity_reasoning"`
}

// Oracle refines a story point estimate. Implementations return an error for
// anything other than a well-formed answer.
type Oracle interface {
    EstimatePoints(ctx context.Context, req EstimateRequest) (EstimateResponse, error)
}

type EstimateSource string

const (
    SourceBasic    EstimateSource = "basic"
    SourceAI       EstimateSource = "ai"
    SourceFallback EstimateSource = "fallback"
)

// EstimatedItem is an assignable item carrying its normalized points.
type EstimatedItem struct {
    Item      domain.WorkItem
    Points    int
    Basic     int
    Reasoning string
    Source    EstimateSource
}

var DefaultRefineKeywords = []string{"integration", "complex", "architecture", "migration"}

const (
    defaultDescriptionThreshold = 200
    defaultEstimateWorkers      = 3
    seedModulus                 = 10000
)

var errEmptyOracleAnswer = errors.New("oracle returned no points")

type Estimator struct {
    oracle        Oracle
    log           zerolog.Logger
    rec           Recorder
    keywords      []string
    descThreshold int
    workers       int
}

type EstimatorOption func(*Estimator)

func WithKeywords(k []string) EstimatorOption {
    return func(e *Estimator) {
        if len(k) == 0 { return }
        e.keywords = make([]string, 0, len(k))
        for _, w := range k { if w = strings.ToLower(strings.TrimSpace(w)); w != "" { e.keywords = append(e.keywords, w) } }
    }
}

func WithDescriptionThreshold(n int) EstimatorOption {
    return func(e *Estimator) { if n > 0 { e.descThreshold = n } }
}

func WithWorkers(n int) EstimatorOption {
    return func(e *Estimator) { if n > 0 { e.workers = n } }
}

func WithEstimateRecorder(r Recorder) EstimatorOption {
    return func(e *Estimator) { if r != nil { e.rec = r } }
}

// NewEstimator builds an estimator. A nil oracle disables refinement and every
// item gets the basic estimate.
func NewEstimator(oracle Oracle, log zerolog.Logger, opts ...EstimatorOption) *Estimator {
    e := &Estimator{
        oracle:        oracle,
        log:           log,
        rec:           nopRecorder{},
        keywords:      DefaultRefineKeywords,
        descThreshold: defaultDescriptionThreshold,
        workers:       defaultEstimateWorkers,
    }
    for _, o := range opts { o(e) }
    return e
}

// NeedsRefinement reports whether an item is ambiguous enough to ask the oracle.
func (e *Estimator) NeedsRefinement(it domain.WorkItem) bool {
    if len(it.Description) > e.descThreshold { return true }
    title := strings.ToLower(it.Title)
    for _, k := range e.keywords {
        if strings.Contains(title, k) { return true }
    }
    return false
}

// Seed is derived from item content only, so identical items replay identically.
func Seed(title, description string) int64 {
    return int64(xxh3.HashString(title+description) % seedModulus)
}

// Estimate never fails: oracle problems degrade to the basic estimate.
func (e *Estimator) Estimate(ctx context.Context, it domain.WorkItem) EstimatedItem {
    basic := BasicEstimate(it.Title, it.Description)
    if e.oracle == nil || !e.NeedsRefinement(it) {
        e.rec.EstimateRecorded(SourceBasic)
        return EstimatedItem{Item: it, Points: basic, Basic: basic, Source: SourceBasic}
    }
    est, err := e.refine(ctx, it, basic)
    if err != nil { return e.fallback(it, basic, err) }
    return est
}

func (e *Estimator) refine(ctx context.Context, it domain.WorkItem, basic int) (EstimatedItem, error) {
    allowed := make([]int, len(FibonacciPoints))
    copy(allowed, FibonacciPoints)
    resp, err := e.oracle.EstimatePoints(ctx, EstimateRequest{
        Title:         it.Title,
        Description:   it.Description,
        BasicEstimate: basic,
        AllowedValues: allowed,
        Seed:          Seed(it.Title, it.Description),
    })
    if err != nil { return EstimatedItem{}, err }
    if resp.Points == 0 { return EstimatedItem{}, errEmptyOracleAnswer }
    points := Normalize(resp.Points)
    e.rec.EstimateRecorded(SourceAI)
    e.log.Debug().Str("key", it.Key).Int("basic", basic).Int("points", points).Msg("estimate refined")
    return EstimatedItem{Item: it, Points: points, Basic: basic, Reasoning: strings.TrimSpace(resp.Reasoning), Source: SourceAI}, nil
}

func (e *Estimator) fallback(it domain.WorkItem, basic int, cause error) EstimatedItem {
    e.rec.EstimateRecorded(SourceFallback)
    e.log.Warn().Err(cause).Str("key", it.Key).Int("points", basic).Msg("estimate refinement failed; using basic estimate")
    return EstimatedItem{Item: it, Points: basic, Basic: basic, Source: SourceFallback}
}

// EstimateAll estimates items concurrently; results keep the input order.
func (e *Estimator) EstimateAll(ctx context.Context, items []domain.WorkItem) []EstimatedItem {
    out := make([]EstimatedItem, len(items))
    var g errgroup.Group
    g.SetLimit(e.workers)
    for i, it := range items {
        g.Go(func() error {
            out[i] = e.Estimate(ctx, it)
            return nil
        })
    }
    _ = g.Wait()
    return out
}
