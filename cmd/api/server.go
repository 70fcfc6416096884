/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    apihttp "github.com/HamedShams/sprint-pulse/internal/http"
    "github.com/HamedShams/sprint-pulse/internal/jobs"
    "github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
    Use:   "serve",
    Short: "Run the HTTP API and the scheduled planning job",
    RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
    ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    a, err := newApp(ctx)
    if err != nil { return err }
    defer a.Close()
    // Runs started from POST /admin/run finish before the store closes.
    defer a.svc.Wait()
    log := a.log

    if a.cfg.PlanCron != "" {
        cron, err := jobs.NewCron(a.cfg, log, a.svc)
        if err != nil { return err }
        cron.Start()
        defer cron.Stop()
        log.Info().Str("spec", a.cfg.PlanCron).Msg("planning cron scheduled")
    }

    srv := &http.Server{
        Addr:              a.cfg.HTTPAddr,
        Handler:           apihttp.NewRouter(a.cfg, log, a.svc, a.metrics),
        ReadHeaderTimeout: 10 * time.Second,
    }
    errCh := make(chan error, 1)
    go func() {
        log.Info().Str("addr", a.cfg.HTTPAddr).Msg("http listening")
        errCh <- srv.ListenAndServe()
    }()

    select {
    case <-ctx.Done():
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Error().Err(err).Msg("http server error")
            return err
        }
    }

    sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second); defer cancel()
    if err := srv.Shutdown(sctx); err != nil { log.Error().Err(err).Msg("http shutdown") }
    return nil
}
