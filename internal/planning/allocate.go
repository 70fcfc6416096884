/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package planning

import (
    "sort"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

// Allocation is one new assignment plus how it was reached.
type Allocation struct {
    Assignment     domain.Assignment
    Tier           domain.Tier
    OriginalPoints int
    Clamped        bool
}

// Allocate hands items out in strict rotation over the roster.
//
// People are ordered by (tier rank, capacity score) descending, keeping roster
// order for equal keys. Items are ordered by points descending, then issue key
// ascending. A single cursor walks the people list across all items and moves
// one step after every assignment, so nobody gets a second item before everyone
// has one. When an item's points fall outside the assignee's tier range the
// points are clamped to that range rather than skipping the person, so the
// person under the cursor always takes the item.
func Allocate(sprint string, items []EstimatedItem, roster []domain.CapacityProfile) []Allocation {
    if len(items) == 0 || len(roster) == 0 { return nil }

    people := make([]domain.CapacityProfile, len(roster))
    copy(people, roster)
    sort.SliceStable(people, func(i, j int) bool {
        if people[i].Tier.Rank() != people[j].Tier.Rank() { return people[i].Tier.Rank() > people[j].Tier.Rank() }
        return people[i].CapacityScore > people[j].CapacityScore
    })

    work := make([]EstimatedItem, len(items))
    copy(work, items)
    sort.SliceStable(work, func(i, j int) bool {
        if work[i].Points != work[j].Points { return work[i].Points > work[j].Points }
        return work[i].Item.Key < work[j].Item.Key
    })

    out := make([]Allocation, 0, len(work))
    cursor := 0
    for _, it := range work {
        out = append(out, assign(sprint, it, people[cursor]))
        cursor = (cursor + 1) % len(people)
    }
    return out
}

func assign(sprint string, it EstimatedItem, p domain.CapacityProfile) Allocation {
    limits := LimitsFor(p.Tier)
    points := it.Points
    clamped := false
    if !limits.Contains(points) {
        points = limits.Clamp(points)
        clamped = true
    }
    days := clampDays(float64(DaysFor(points)) * multiplierFor(p.Tier))
    return Allocation{
        Assignment: domain.Assignment{
            SprintName:    sprint,
            IssueKey:      it.Item.Key,
            AssigneeName:  p.Person.Username,
            Title:         it.Item.Title,
            EstimatedDays: days,
            StoryPoints:   points,
        },
        Tier:           p.Tier,
        OriginalPoints: it.Points,
        Clamped:        clamped,
    }
}
