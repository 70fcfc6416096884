/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package planning

import (
    "math"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

// pointsCeiling keeps the float to int conversion well defined.
const pointsCeiling = 1e6

// Partition splits items into the ones the allocator may assign and the ones
// already owned by somebody. Done items are dropped from both.
func Partition(items []domain.WorkItem, sprint string) (assignable []domain.WorkItem, preserved []domain.Assignment, dropped int) {
    for _, it := range items {
        if it.Status == domain.StatusDone { dropped++; continue }
        if name, ok := it.Assignee.Name(); ok {
            preserved = append(preserved, preserve(it, name, sprint))
            continue
        }
        assignable = append(assignable, it)
    }
    return assignable, preserved, dropped
}

func preserve(it domain.WorkItem, assignee, sprint string) domain.Assignment {
    points := existingPoints(it)
    return domain.Assignment{
        SprintName:    sprint,
        IssueKey:      it.Key,
        AssigneeName:  assignee,
        Title:         it.Title,
        EstimatedDays: DaysFor(points),
        StoryPoints:   points,
    }
}

// existingPoints normalizes whatever the tracker holds; only missing or zero
// points fall back to the basic estimate.
func existingPoints(it domain.WorkItem) int {
    if it.Points == nil || *it.Points == 0 || math.IsNaN(*it.Points) { return BasicEstimate(it.Title, it.Description) }
    p := math.Max(math.Min(*it.Points, pointsCeiling), -pointsCeiling)
    return Normalize(int(p))
}
