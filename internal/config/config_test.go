package config

import (
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
    t.Setenv("SPRINT_CONFIG", "")
    cfg, err := Load()
    require.NoError(t, err)
    require.Equal(t, 40, cfg.SeniorMinTickets)
    require.Equal(t, 15, cfg.JuniorMinTickets)
    require.Equal(t, []string{"integration", "complex", "architecture", "migration"}, cfg.RefineKeywords)
    require.Equal(t, "customfield_10016", cfg.JiraPointsField)
}

func TestLoad_FileThenEnv(t *testing.T) {
    dir := t.TempDir()
    path := filepath.Join(dir, "sprint.yaml")
    yaml := []byte("http_addr: \":9090\"\ntier_senior_min_tickets: 60\nopenai_model: gpt-4o\n")
    require.NoError(t, os.WriteFile(path, yaml, 0o600))

    t.Setenv("SPRINT_CONFIG", path)
    t.Setenv("OPENAI_MODEL", "o3-mini")
    t.Setenv("TIER_JUNIOR_MIN_TICKETS", "20")
    t.Setenv("AI_REFINE_KEYWORDS", "refactor, rewrite")
    t.Setenv("TELEGRAM_CHAT_IDS", "11,22")
    t.Setenv("OPENAI_TIMEOUT", "30s")

    cfg, err := Load()
    require.NoError(t, err)
    require.Equal(t, ":9090", cfg.HTTPAddr)
    require.Equal(t, 60, cfg.SeniorMinTickets)
    require.Equal(t, 20, cfg.JuniorMinTickets)
    require.Equal(t, "o3-mini", cfg.OpenAIModel)
    require.Equal(t, []string{"refactor", "rewrite"}, cfg.RefineKeywords)
    require.Equal(t, []int64{11, 22}, cfg.TelegramChatIDs)
    require.Equal(t, 30*time.Second, cfg.OpenAITimeout)
}

func TestValidate(t *testing.T) {
    cfg := Default()
    require.NoError(t, cfg.Validate())

    bad := Default()
    bad.SeniorMinTickets = 10
    bad.JuniorMinTickets = 10
    require.Error(t, bad.Validate())

    bad = Default()
    bad.PlanCron = "0 9 * * MON"
    require.ErrorContains(t, bad.Validate(), "plan_cron")
}

func TestSQLitePath(t *testing.T) {
    cfg := Default()
    _, ok := cfg.SQLitePath()
    require.False(t, ok)
    cfg.DBDSN = "sqlite:/tmp/sprint.db"
    p, ok := cfg.SQLitePath()
    require.True(t, ok)
    require.Equal(t, "/tmp/sprint.db", p)
}
