package planning

import (
    "time"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

// Recorder receives operator-facing counters from the engine.
type Recorder interface {
    EstimateRecorded(source EstimateSource)
    PointsClamped(tier domain.Tier)
    AssignmentsPersisted(inserted, updated, reassigned int)
    RunFinished(success bool, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) EstimateRecorded(EstimateSource)          {}
func (nopRecorder) PointsClamped(domain.Tier)                {}
func (nopRecorder) AssignmentsPersisted(int, int, int)       {}
func (nopRecorder) RunFinished(bool, time.Duration)          {}
