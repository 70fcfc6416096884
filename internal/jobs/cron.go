package jobs

import (
    "context"
    "fmt"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"
)

type service interface { RunScheduled(ctx context.Context) error }

type Cron struct {
    cfg     config.Config
    log     zerolog.Logger
    svc     service
    c       *cron.Cron
    timeout time.Duration
}

// NewCron schedules the planning run on cfg.PlanCron (5-field spec, cfg.TZ).
func NewCron(cfg config.Config, log zerolog.Logger, svc service) (*Cron, error) {
    loc, err := time.LoadLocation(cfg.TZ)
    if err != nil { loc = time.UTC }
    c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
    cr := &Cron{cfg: cfg, log: log, svc: svc, c: c, timeout: 10 * time.Minute}
    if _, err := c.AddFunc(cfg.PlanCron, cr.plan); err != nil { return nil, fmt.Errorf("cron: bad plan_cron %q: %w", cfg.PlanCron, err) }
    return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop waits for a running job to finish.
func (cr *Cron) Stop() { <-cr.c.Stop().Done() }

func (cr *Cron) plan() {
    ctx, cancel := context.WithTimeout(context.Background(), cr.timeout); defer cancel()
    cr.log.Info().Str("project", cr.cfg.PlanProject).Str("sprint", cr.cfg.PlanSprint).Str("team", cr.cfg.PlanTeam).Msg("cron: planning run")
    if err := cr.svc.RunScheduled(ctx); err != nil { cr.log.Error().Err(err).Msg("cron: planning run failed") }
}
