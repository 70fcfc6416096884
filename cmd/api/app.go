/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "fmt"

    "github.com/HamedShams/sprint-pulse/internal/adapters/jira"
    "github.com/HamedShams/sprint-pulse/internal/adapters/openai"
    "github.com/HamedShams/sprint-pulse/internal/adapters/telegram"
    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/logger"
    "github.com/HamedShams/sprint-pulse/internal/metrics"
    "github.com/HamedShams/sprint-pulse/internal/repo"
    "github.com/HamedShams/sprint-pulse/internal/services"
    "github.com/rs/zerolog"
)

type store interface {
    services.Store
    Migrate(ctx context.Context) error
    Close()
}

// app is the wired process shared by every subcommand.
type app struct {
    cfg     config.Config
    log     zerolog.Logger
    store   store
    metrics *metrics.Manager
    svc     *services.Service
}

func newApp(ctx context.Context) (*app, error) {
    cfg, err := config.Load()
    if err != nil { return nil, err }
    log := logger.New(cfg)

    st, err := openStore(ctx, cfg, log)
    if err != nil { return nil, err }
    if err := st.Migrate(ctx); err != nil {
        st.Close()
        return nil, fmt.Errorf("migrate: %w", err)
    }

    m := metrics.New()
    jc := jira.NewClient(cfg, log)
    llm := openai.NewClient(cfg, log)
    tg := telegram.NewClient(cfg, log)
    svc := services.New(cfg, log, st, jc, llm, tg, m)
    return &app{cfg: cfg, log: log, store: st, metrics: m, svc: svc}, nil
}

// openStore picks SQLite for sqlite:/file: DSNs and Postgres otherwise.
func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (store, error) {
    if path, ok := cfg.SQLitePath(); ok {
        log.Info().Str("path", path).Msg("using sqlite store")
        s, err := repo.OpenSQLite(path, log)
        if err != nil { return nil, err }
        return s, nil
    }
    db, err := repo.Open(ctx, cfg, log)
    if err != nil { return nil, err }
    return repo.NewRepository(db, log), nil
}

func (a *app) Close() { a.store.Close() }
