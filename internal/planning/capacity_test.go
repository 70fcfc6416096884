package planning

import (
    "testing"

    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/stretchr/testify/require"
)

func TestClassifier_Tier(t *testing.T) {
    c := NewClassifier(DefaultThresholds())
    require.Equal(t, domain.TierIntern, c.Tier(0))
    require.Equal(t, domain.TierIntern, c.Tier(14))
    require.Equal(t, domain.TierJunior, c.Tier(15))
    require.Equal(t, domain.TierJunior, c.Tier(39))
    require.Equal(t, domain.TierSenior, c.Tier(40))

    custom := NewClassifier(Thresholds{SeniorMinTickets: 10, JuniorMinTickets: 5})
    require.Equal(t, domain.TierSenior, custom.Tier(10))
    require.Equal(t, domain.TierJunior, custom.Tier(5))
}

func TestSkillFor(t *testing.T) {
    cases := map[string]domain.Skill{
        "Frontend Developer": domain.SkillFrontend,
        "UI designer":        domain.SkillFrontend,
        "Backend engineer":   domain.SkillBackend,
        "API team":           domain.SkillBackend,
        "Fullstack":          domain.SkillFullstack,
        "Full stack dev":     domain.SkillFullstack,
        "QA":                 domain.SkillTesting,
        "tester":             domain.SkillTesting,
        "developer":          domain.SkillBackend,
        "":                   domain.SkillBackend,
    }
    for role, want := range cases {
        require.Equal(t, want, SkillFor(role), "role %q", role)
    }
}

func TestCapacityScore_CappedAndMonotonic(t *testing.T) {
    require.Equal(t, 10.0, CapacityScore(0))
    require.Equal(t, 60.0, CapacityScore(25))
    require.Equal(t, 100.0, CapacityScore(45))
    require.Equal(t, 100.0, CapacityScore(500))
    prev := CapacityScore(0)
    for n := 1; n < 100; n++ {
        cur := CapacityScore(n)
        require.GreaterOrEqual(t, cur, prev)
        prev = cur
    }
}

func TestLimitsFor(t *testing.T) {
    require.Equal(t, Limits{1, 3}, LimitsFor(domain.TierIntern))
    require.Equal(t, Limits{3, 8}, LimitsFor(domain.TierJunior))
    require.Equal(t, Limits{5, 21}, LimitsFor(domain.TierSenior))
    require.Equal(t, 3, LimitsFor(domain.TierIntern).Clamp(21))
    require.Equal(t, 5, LimitsFor(domain.TierSenior).Clamp(1))
    require.True(t, LimitsFor(domain.TierJunior).Contains(5))
}
