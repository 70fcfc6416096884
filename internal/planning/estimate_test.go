package planning

import (
    "context"
    "errors"
    "strings"
    "sync"
    "sync/atomic"
    "testing"

    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/rs/zerolog"
    "github.com/stretchr/testify/require"
)

type fakeOracle struct {
    mu    sync.Mutex
    calls []EstimateRequest
    fn    func(EstimateRequest) (EstimateResponse, error)
}

func (f *fakeOracle) EstimatePoints(_ context.Context, req EstimateRequest) (EstimateResponse, error) {
    f.mu.Lock()
    f.calls = append(f.calls, req)
    f.mu.Unlock()
    return f.fn(req)
}

type countingRecorder struct {
    nopRecorder
    basic, ai, fallback atomic.Int32
}

func (c *countingRecorder) EstimateRecorded(s EstimateSource) {
    switch s {
    case SourceBasic: c.basic.Add(1)
    case SourceAI: c.ai.Add(1)
    case SourceFallback: c.fallback.Add(1)
    }
}

func TestNeedsRefinement(t *testing.T) {
    e := NewEstimator(nil, zerolog.Nop())
    require.False(t, e.NeedsRefinement(domain.WorkItem{Title: "fix typo"}))
    require.True(t, e.NeedsRefinement(domain.WorkItem{Title: "Payment INTEGRATION"}))
    require.True(t, e.NeedsRefinement(domain.WorkItem{Title: "db Migrations"}))
    require.True(t, e.NeedsRefinement(domain.WorkItem{Title: "x", Description: strings.Repeat("a", 201)}))
    require.False(t, e.NeedsRefinement(domain.WorkItem{Title: "x", Description: strings.Repeat("a", 200)}))

    custom := NewEstimator(nil, zerolog.Nop(), WithKeywords([]string{" Refactor "}), WithDescriptionThreshold(10))
    require.True(t, custom.NeedsRefinement(domain.WorkItem{Title: "refactor auth"}))
    require.False(t, custom.NeedsRefinement(domain.WorkItem{Title: "integration"}))
    require.True(t, custom.NeedsRefinement(domain.WorkItem{Title: "x", Description: "eleven char"}))
}

func TestSeed_DeterministicAndBounded(t *testing.T) {
    a := Seed("title", "desc")
    require.Equal(t, a, Seed("title", "desc"))
    require.GreaterOrEqual(t, a, int64(0))
    require.Less(t, a, int64(10000))
}

func TestEstimate_RefinedPathNormalizesAndKeepsReasoning(t *testing.T) {
    o := &fakeOracle{fn: func(EstimateRequest) (EstimateResponse, error) {
        return EstimateResponse{Points: 10, Reasoning: " many unknowns "}, nil
    }}
    rec := &countingRecorder{}
    e := NewEstimator(o, zerolog.Nop(), WithEstimateRecorder(rec))
    it := domain.WorkItem{Key: "P-1", Title: "Complex migration", Description: "move data"}
    got := e.Estimate(context.Background(), it)

    require.Equal(t, SourceAI, got.Source)
    require.Equal(t, 8, got.Points)
    require.Equal(t, 1, got.Basic)
    require.Equal(t, "many unknowns", got.Reasoning)
    require.Len(t, o.calls, 1)
    req := o.calls[0]
    require.Equal(t, "Complex migration", req.Title)
    require.Equal(t, 1, req.BasicEstimate)
    require.Equal(t, FibonacciPoints, req.AllowedValues)
    require.Equal(t, Seed(it.Title, it.Description), req.Seed)
    require.EqualValues(t, 1, rec.ai.Load())
}

func TestEstimate_FallbackOnOracleFailure(t *testing.T) {
    for name, fn := range map[string]func(EstimateRequest) (EstimateResponse, error){
        "error":   func(EstimateRequest) (EstimateResponse, error) { return EstimateResponse{}, errors.New("unavailable") },
        "no data": func(EstimateRequest) (EstimateResponse, error) { return EstimateResponse{}, nil },
    } {
        t.Run(name, func(t *testing.T) {
            rec := &countingRecorder{}
            e := NewEstimator(&fakeOracle{fn: fn}, zerolog.Nop(), WithEstimateRecorder(rec))
            got := e.Estimate(context.Background(), domain.WorkItem{Key: "P-1", Title: "architecture review"})
            require.Equal(t, SourceFallback, got.Source)
            require.Equal(t, BasicEstimate("architecture review", ""), got.Points)
            require.EqualValues(t, 1, rec.fallback.Load())
        })
    }
}

func TestEstimate_BasicWithoutOracleOrTrigger(t *testing.T) {
    o := &fakeOracle{fn: func(EstimateRequest) (EstimateResponse, error) { return EstimateResponse{Points: 21}, nil }}
    e := NewEstimator(o, zerolog.Nop())
    got := e.Estimate(context.Background(), domain.WorkItem{Title: "small change"})
    require.Equal(t, SourceBasic, got.Source)
    require.Empty(t, o.calls)

    disabled := NewEstimator(nil, zerolog.Nop())
    got = disabled.Estimate(context.Background(), domain.WorkItem{Title: "integration"})
    require.Equal(t, SourceBasic, got.Source)
}

func TestEstimateAll_IsolatesFailuresAndKeepsOrder(t *testing.T) {
    o := &fakeOracle{fn: func(req EstimateRequest) (EstimateResponse, error) {
        if strings.Contains(req.Title, "broken") { return EstimateResponse{}, errors.New("boom") }
        return EstimateResponse{Points: 13, Reasoning: "ok"}, nil
    }}
    e := NewEstimator(o, zerolog.Nop(), WithWorkers(2))
    items := []domain.WorkItem{
        {Key: "A", Title: "integration one"},
        {Key: "B", Title: "broken integration"},
        {Key: "C", Title: "plain"},
        {Key: "D", Title: "complex thing"},
    }
    got := e.EstimateAll(context.Background(), items)
    require.Len(t, got, 4)
    for i, it := range items { require.Equal(t, it.Key, got[i].Item.Key) }
    require.Equal(t, SourceAI, got[0].Source)
    require.Equal(t, 13, got[0].Points)
    require.Equal(t, SourceFallback, got[1].Source)
    require.Equal(t, SourceBasic, got[2].Source)
    require.Equal(t, SourceAI, got[3].Source)
}
