package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
)

// Replayer owns the deferred mutation queue: it enqueues failed writes and
// replays them in FIFO order when connectivity or an explicit sync signal
// says to. History recording is optional; a nil history store disables it.
type Replayer struct {
	cfg       *contract.Config
	mutations contract.MutationStore
	history   contract.HistoryStore
	client    contract.NetworkClient
}

// NewReplayer creates a Replayer. history may be nil.
func NewReplayer(cfg *contract.Config, mutations contract.MutationStore, history contract.HistoryStore, client contract.NetworkClient) *Replayer {
	return &Replayer{
		cfg:       cfg,
		mutations: mutations,
		history:   history,
		client:    client,
	}
}

// Enqueue captures a mutation for later replay and returns its id. The entry
// survives restarts and is removed only on confirmed success or Cancel.
func (r *Replayer) Enqueue(ctx context.Context, endpoint, method string, body []byte) (string, error) {
	m := schema.DeferredMutation{
		ID:         uuid.NewString(),
		QueueTag:   r.cfg.QueueTag,
		Endpoint:   endpoint,
		Method:     method,
		Body:       body,
		EnqueuedAt: time.Now(),
	}
	if err := r.mutations.Enqueue(ctx, m); err != nil {
		return "", fmt.Errorf("failed to defer mutation: %w", err)
	}
	return m.ID, nil
}

// Cancel withdraws a pending mutation by id.
func (r *Replayer) Cancel(ctx context.Context, id string) error {
	return r.mutations.Remove(ctx, id)
}

// ReplayAll replays the configured queue tag in FIFO order. Outcomes are
// independent per entry: a success removes the entry, a failure bumps its
// attempt counter in place, and later entries still run. Entries at the
// attempt ceiling are skipped but retained.
func (r *Replayer) ReplayAll(ctx context.Context, trigger schema.ReplayTrigger) (schema.ReplaySummary, error) {
	return r.ReplayTag(ctx, trigger, r.cfg.QueueTag)
}

// ReplayTag replays one queue tag.
func (r *Replayer) ReplayTag(ctx context.Context, trigger schema.ReplayTrigger, tag string) (schema.ReplaySummary, error) {
	var summary schema.ReplaySummary

	pending, err := r.mutations.List(ctx, tag)
	if err != nil {
		return summary, fmt.Errorf("failed to list pending mutations: %w", err)
	}
	if len(pending) == 0 {
		return summary, nil
	}

	runID := r.beginRun(trigger)

	for _, m := range pending {
		if ctx.Err() != nil {
			break
		}

		if r.cfg.ReplayMaxAttempts > 0 && m.Attempts >= r.cfg.ReplayMaxAttempts {
			summary.Skipped++
			r.recordOutcome(runID, m, schema.OutcomeSkipped)
			continue
		}

		resp, err := r.client.Do(ctx, m.Method, m.Endpoint, m.Body, nil)
		if err == nil && resp.Status >= 200 && resp.Status < 300 {
			// Upstream confirmed; only now may the entry disappear
			if removeErr := r.mutations.Remove(ctx, m.ID); removeErr != nil {
				contract.LogWarn("failed to remove replayed mutation "+m.ID, removeErr)
			}
			summary.Successes++
			r.recordOutcome(runID, m, schema.OutcomeSuccess)
			continue
		}

		if incErr := r.mutations.IncrementAttempts(ctx, m.ID); incErr != nil {
			contract.LogWarn("failed to record attempt for mutation "+m.ID, incErr)
		}
		m.Attempts++
		summary.Failures++
		r.recordOutcome(runID, m, schema.OutcomeFailure)
	}

	r.endRun(runID, summary)
	return summary, nil
}

// beginRun opens a history run. Returns 0 when history is disabled.
func (r *Replayer) beginRun(trigger schema.ReplayTrigger) int64 {
	if r.history == nil {
		return 0
	}
	runID, err := r.history.BeginRun(trigger, time.Now())
	if err != nil {
		contract.LogWarn("failed to open replay history run", err)
		return 0
	}
	return runID
}

// recordOutcome is best-effort; history failures never affect replay.
func (r *Replayer) recordOutcome(runID int64, m schema.DeferredMutation, outcome schema.MutationOutcome) {
	if r.history == nil || runID == 0 {
		return
	}
	if err := r.history.RecordOutcome(runID, m, outcome, time.Now()); err != nil {
		contract.LogWarn("failed to record replay outcome", err)
	}
}

func (r *Replayer) endRun(runID int64, summary schema.ReplaySummary) {
	if r.history == nil || runID == 0 {
		return
	}
	if err := r.history.EndRun(runID, time.Now(), summary); err != nil {
		contract.LogWarn("failed to close replay history run", err)
	}
}
