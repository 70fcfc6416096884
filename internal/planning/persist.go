/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package planning

import (
    "context"
    "fmt"

    "github.com/HamedShams/sprint-pulse/internal/domain"
    "github.com/rs/zerolog"
)

// AssignmentTx is the set of keyed operations the persister needs inside one
// transaction.
type AssignmentTx interface {
    // LockIssueKey serializes writers for one issue key until the transaction ends.
    LockIssueKey(ctx context.Context, issueKey string) error
    // LatestByIssueKey returns the most recently created row, or nil.
    LatestByIssueKey(ctx context.Context, issueKey string) (*domain.StoredAssignment, error)
    UpdateAssignment(ctx context.Context, id int64, a domain.Assignment) error
    DeleteDuplicates(ctx context.Context, issueKey string, keepID int64) (int64, error)
    InsertAssignment(ctx context.Context, a domain.Assignment) (int64, error)
}

// AssignmentStore runs fn in a transaction, committing only if fn returns nil.
type AssignmentStore interface {
    InTx(ctx context.Context, fn func(tx AssignmentTx) error) error
}

type PersistStats struct {
    Inserted   int `json:"inserted"`
    Updated    int `json:"updated"`
    Reassigned int `json:"reassigned"`
    Deduped    int `json:"deduped"`
}

// Persister upserts assignments keyed by issue key.
type Persister struct {
    store AssignmentStore
    log   zerolog.Logger
    rec   Recorder
}

func NewPersister(store AssignmentStore, log zerolog.Logger, rec Recorder) *Persister {
    if rec == nil { rec = nopRecorder{} }
    return &Persister{store: store, log: log, rec: rec}
}

// Save writes the whole batch or nothing.
func (p *Persister) Save(ctx context.Context, assignments []domain.Assignment) (PersistStats, error) {
    var st PersistStats
    if len(assignments) == 0 { return st, nil }
    err := p.store.InTx(ctx, func(tx AssignmentTx) error {
        st = PersistStats{}
        for _, a := range assignments {
            if err := p.upsert(ctx, tx, a, &st); err != nil { return fmt.Errorf("persist %s: %w", a.IssueKey, err) }
        }
        return nil
    })
    if err != nil {
        p.log.Error().Err(err).Int("batch", len(assignments)).Msg("assignment batch rolled back")
        return PersistStats{}, err
    }
    p.rec.AssignmentsPersisted(st.Inserted, st.Updated, st.Reassigned)
    p.log.Info().Int("inserted", st.Inserted).Int("updated", st.Updated).Int("reassigned", st.Reassigned).Int("deduped", st.Deduped).Msg("assignments saved")
    return st, nil
}

func (p *Persister) upsert(ctx context.Context, tx AssignmentTx, a domain.Assignment, st *PersistStats) error {
    if err := tx.LockIssueKey(ctx, a.IssueKey); err != nil { return err }
    existing, err := tx.LatestByIssueKey(ctx, a.IssueKey)
    if err != nil { return err }
    if existing == nil {
        if _, err := tx.InsertAssignment(ctx, a); err != nil { return err }
        st.Inserted++
        p.log.Debug().Str("key", a.IssueKey).Str("assignee", a.AssigneeName).Msg("assignment inserted")
        return nil
    }
    if err := tx.UpdateAssignment(ctx, existing.ID, a); err != nil { return err }
    st.Updated++
    if existing.AssigneeName != a.AssigneeName {
        st.Reassigned++
        p.log.Info().Str("key", a.IssueKey).Str("from", existing.AssigneeName).Str("to", a.AssigneeName).Msg("issue reassigned")
    }
    n, err := tx.DeleteDuplicates(ctx, a.IssueKey, existing.ID)
    if err != nil { return err }
    st.Deduped += int(n)
    return nil
}
