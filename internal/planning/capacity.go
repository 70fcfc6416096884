/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package planning

import (
    "math"
    "strings"

    "github.com/HamedShams/sprint-pulse/internal/domain"
)

// Thresholds are the minimum tickets solved to reach a tier.
type Thresholds struct {
    SeniorMinTickets int
    JuniorMinTickets int
}

func DefaultThresholds() Thresholds { return Thresholds{SeniorMinTickets: 40, JuniorMinTickets: 15} }

// Limits is the inclusive story point range a tier may take.
type Limits struct{ Min, Max int }

func (l Limits) Contains(points int) bool { return points >= l.Min && points <= l.Max }

func (l Limits) Clamp(points int) int {
    if points < l.Min { return l.Min }
    if points > l.Max { return l.Max }
    return points
}

var tierLimits = map[domain.Tier]Limits{
    domain.TierIntern: {Min: 1, Max: 3},
    domain.TierJunior: {Min: 3, Max: 8},
    domain.TierSenior: {Min: 5, Max: 21},
}

var tierMultipliers = map[domain.Tier]float64{
    domain.TierSenior: 0.8,
    domain.TierJunior: 1.0,
    domain.TierIntern: 1.3,
}

func LimitsFor(t domain.Tier) Limits {
    if l, ok := tierLimits[t]; ok { return l }
    return tierLimits[domain.TierIntern]
}

func multiplierFor(t domain.Tier) float64 {
    if m, ok := tierMultipliers[t]; ok { return m }
    return 1.0
}

// Classifier maps people to capacity profiles.
type Classifier struct {
    thresholds Thresholds
}

func NewClassifier(t Thresholds) Classifier { return Classifier{thresholds: t} }

func (c Classifier) Tier(ticketsSolved int) domain.Tier {
    switch {
    case ticketsSolved >= c.thresholds.SeniorMinTickets: return domain.TierSenior
    case ticketsSolved >= c.thresholds.JuniorMinTickets: return domain.TierJunior
    default: return domain.TierIntern
    }
}

// SkillFor matches role substrings in a fixed order; unknown roles are backend.
func SkillFor(role string) domain.Skill {
    r := strings.ToLower(role)
    switch {
    case strings.Contains(r, "frontend") || strings.Contains(r, "ui"): return domain.SkillFrontend
    case strings.Contains(r, "backend") || strings.Contains(r, "api"): return domain.SkillBackend
    case strings.Contains(r, "fullstack") || strings.Contains(r, "full"): return domain.SkillFullstack
    case strings.Contains(r, "test") || strings.Contains(r, "qa"): return domain.SkillTesting
    default: return domain.SkillBackend
    }
}

func CapacityScore(ticketsSolved int) float64 {
    return math.Min(float64(ticketsSolved)*2+10, 100.0)
}

func (c Classifier) Profile(p domain.Person) domain.CapacityProfile {
    return domain.CapacityProfile{
        Person:        p,
        Tier:          c.Tier(p.TicketsSolved),
        Skill:         SkillFor(p.Role),
        CapacityScore: CapacityScore(p.TicketsSolved),
    }
}

func (c Classifier) Profiles(people []domain.Person) []domain.CapacityProfile {
    out := make([]domain.CapacityProfile, 0, len(people))
    for _, p := range people { out = append(out, c.Profile(p)) }
    return out
}
