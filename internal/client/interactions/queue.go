package interactions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/client/client"
	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/dmitrijs2005/clipsync/internal/client/notify"
	"github.com/dmitrijs2005/clipsync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/clipsync/internal/common"
	"github.com/dmitrijs2005/clipsync/internal/logging"
)

type indexEntry struct {
	id       string
	action   models.Action
	base     bool
	status   models.Status
	revision int64
}

// Queue is the interaction queue.
type Queue struct {
	store    queue.Store
	notifier notify.Notifier
	policy   models.RetryPolicy
	log      logging.Logger

	// mu serializes read-modify-write sequences on entries and guards index.
	mu    sync.Mutex
	index map[string]*indexEntry
}

// NewQueue builds the queue and loads its index from store.
func NewQueue(ctx context.Context, store queue.Store, notifier notify.Notifier, policy models.RetryPolicy, log logging.Logger) (*Queue, error) {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	q := &Queue{
		store:    store,
		notifier: notifier,
		policy:   policy,
		log:      log.With("module", "interactions"),
		index:    map[string]*indexEntry{},
	}

	recs, err := store.List(ctx, models.EntityInteraction)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		qi, err := models.InteractionFromRecord(r)
		if err != nil {
			return nil, err
		}
		q.index[r.DedupKey] = entryOf(qi)
	}
	return q, nil
}

func entryOf(qi *models.QueuedInteraction) *indexEntry {
	return &indexEntry{id: qi.ID, action: qi.Action, base: qi.BaseState, status: qi.Status, revision: qi.Revision}
}

// RecordToggle records that the owner wants target to be active (liked or
// followed) or not. It returns the id of the entry now holding the intent,
// or "" when the toggle cancelled a pending one.
func (q *Queue) RecordToggle(ctx context.Context, ownerID, targetID string, targetKind models.TargetKind, active bool) (string, error) {
	key := models.InteractionKey{OwnerID: ownerID, TargetID: targetID, TargetKind: targetKind}
	if err := key.Validate(); err != nil {
		return "", err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.index[key.String()]
	if !ok {
		return q.appendLocked(ctx, key, active)
	}

	action := models.ActionFor(active)

	// In flight: the remote may already have applied the old action, so
	// the entry is kept and re-based when the drain finishes.
	if e.status == models.StatusUploading || active != e.base {
		if action == e.action {
			return e.id, nil
		}
		if err := q.setActionLocked(ctx, e, key, action); err != nil {
			return "", err
		}
		q.log.Debug(ctx, "toggle collapsed", "id", e.id, "action", action)
		return e.id, nil
	}

	// Back at the server state: nothing to sync.
	if err := q.store.RemoveAt(ctx, e.id, e.revision); err != nil {
		return "", err
	}
	delete(q.index, key.String())
	q.log.Debug(ctx, "toggle cancelled", "id", e.id)
	return "", nil
}

func (q *Queue) appendLocked(ctx context.Context, key models.InteractionKey, active bool) (string, error) {
	qi := &models.QueuedInteraction{
		ID:         models.NewID(),
		OwnerID:    key.OwnerID,
		Kind:       key.TargetKind.InteractionKind(),
		TargetID:   key.TargetID,
		TargetKind: key.TargetKind,
		Action:     models.ActionFor(active),
		BaseState:  !active,
		Status:     models.StatusPending,
		CreatedAt:  models.Now(),
	}
	rec, err := qi.ToRecord()
	if err != nil {
		return "", err
	}
	if err := q.store.Append(ctx, rec); err != nil {
		return "", err
	}
	qi.Revision = rec.Revision
	q.index[key.String()] = entryOf(qi)

	q.log.Debug(ctx, "interaction queued", "id", qi.ID, "kind", qi.Kind, "action", qi.Action)
	q.notifier.OnQueued(models.EntityInteraction, qi.ID)
	return qi.ID, nil
}

func (q *Queue) setActionLocked(ctx context.Context, e *indexEntry, key models.InteractionKey, action models.Action) error {
	qi := &models.QueuedInteraction{
		OwnerID:    key.OwnerID,
		Kind:       key.TargetKind.InteractionKind(),
		TargetID:   key.TargetID,
		TargetKind: key.TargetKind,
		Action:     action,
		BaseState:  e.base,
	}
	payload, err := qi.Payload()
	if err != nil {
		return err
	}
	rec, err := q.store.Update(ctx, e.id, models.Patch{}.SetPayload(payload).AtRevision(e.revision))
	if err != nil {
		return err
	}
	e.action = action
	e.revision = rec.Revision
	return nil
}

// GetPendingState returns the action of the unsynced entry for the key, if any.
func (q *Queue) GetPendingState(ownerID, targetID string, targetKind models.TargetKind) (models.Action, bool) {
	key := models.InteractionKey{OwnerID: ownerID, TargetID: targetID, TargetKind: targetKind}

	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.index[key.String()]
	if !ok {
		return "", false
	}
	return e.action, true
}

// HasPending reports whether an unsynced entry exists for the key.
func (q *Queue) HasPending(ownerID, targetID string, targetKind models.TargetKind) bool {
	_, ok := q.GetPendingState(ownerID, targetID, targetKind)
	return ok
}

// Eligible returns the ids of Pending interactions due at now, oldest first.
func (q *Queue) Eligible(ctx context.Context, now time.Time) ([]string, error) {
	recs, err := q.store.ListEligible(ctx, models.EntityInteraction, now, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// DrainOne processes the oldest eligible interaction. It reports false when
// there was nothing to do.
func (q *Queue) DrainOne(ctx context.Context, api client.RowWriter) (models.Outcome, bool, error) {
	recs, err := q.store.ListEligible(ctx, models.EntityInteraction, models.Now(), 1)
	if err != nil {
		return models.Outcome{}, false, err
	}
	if len(recs) == 0 {
		return models.Outcome{}, false, nil
	}
	out, err := q.Process(ctx, api, recs[0].ID)
	return out, true, err
}

// Process claims interaction id and performs its remote mutation. The
// returned error is reserved for local store failures.
func (q *Queue) Process(ctx context.Context, api client.RowWriter, id string) (models.Outcome, error) {
	out := models.Outcome{ID: id, Entity: models.EntityInteraction}

	claimed, qi, err := q.claim(ctx, id)
	if errors.Is(err, common.ErrStale) || errors.Is(err, common.ErrNotFound) {
		out.Skipped = true
		return out, nil
	}
	if err != nil {
		return out, err
	}

	q.log.Debug(ctx, "interaction claimed", "id", id, "action", qi.Action, "attempt", qi.Attempts+1)

	remoteErr := Apply(ctx, api, qi)

	q.mu.Lock()
	defer q.mu.Unlock()

	if remoteErr != nil {
		return q.failLocked(ctx, claimed, qi, out, remoteErr)
	}
	return q.completeLocked(ctx, claimed, qi, out)
}

func (q *Queue) claim(ctx context.Context, id string) (*models.Record, *models.QueuedInteraction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.store.Update(ctx, id, models.Patch{}.SetStatus(models.StatusUploading).When(models.StatusPending))
	if err != nil {
		return nil, nil, err
	}
	qi, err := models.InteractionFromRecord(rec)
	if err != nil {
		return nil, nil, err
	}
	q.index[rec.DedupKey] = entryOf(qi)
	return rec, qi, nil
}

// completeLocked finishes a successful drain. If the entry was toggled while
// in flight, it is re-based on the state just applied and either removed
// (the user toggled back) or left Pending with the new action.
func (q *Queue) completeLocked(ctx context.Context, claimed *models.Record, applied *models.QueuedInteraction, out models.Outcome) (models.Outcome, error) {
	cur, err := q.store.Get(ctx, claimed.ID)
	if err != nil {
		return out, err
	}

	if cur.Revision == claimed.Revision {
		if err := q.removeLocked(ctx, cur); err != nil {
			return out, err
		}
		out.Status = models.StatusDone
		q.notifier.OnSynced(models.EntityInteraction, cur.ID)
		return out, nil
	}

	latest, err := models.InteractionFromRecord(cur)
	if err != nil {
		return out, err
	}
	serverState := applied.Action.Active()
	if latest.Action.Active() == serverState {
		if err := q.removeLocked(ctx, cur); err != nil {
			return out, err
		}
		out.Status = models.StatusDone
		q.notifier.OnSynced(models.EntityInteraction, cur.ID)
		return out, nil
	}

	latest.BaseState = serverState
	payload, err := latest.Payload()
	if err != nil {
		return out, err
	}
	rec, err := q.store.Update(ctx, cur.ID, models.Patch{}.
		SetPayload(payload).
		SetStatus(models.StatusPending).
		SetAttempts(0).
		SetLastError("").
		SetNextAttemptAt(time.Time{}).
		AtRevision(cur.Revision))
	if err != nil {
		return out, err
	}
	latest.Status = rec.Status
	latest.Revision = rec.Revision
	q.index[cur.DedupKey] = entryOf(latest)

	q.log.Debug(ctx, "interaction re-based", "id", cur.ID, "base", serverState, "action", latest.Action)
	out.Status = models.StatusPending
	return out, nil
}

func (q *Queue) removeLocked(ctx context.Context, rec *models.Record) error {
	if err := q.store.RemoveAt(ctx, rec.ID, rec.Revision); err != nil {
		return err
	}
	delete(q.index, rec.DedupKey)
	q.log.Debug(ctx, "interaction synced", "id", rec.ID)
	return nil
}

func (q *Queue) failLocked(ctx context.Context, claimed *models.Record, qi *models.QueuedInteraction, out models.Outcome, cause error) (models.Outcome, error) {
	class := client.Classify(cause)
	patch, status := q.policy.FailurePatch(claimed.Attempts, class.Retryable(), cause, models.Now())
	rec, err := q.store.Update(ctx, claimed.ID, patch)
	if err != nil {
		return out, err
	}
	if e := q.index[rec.DedupKey]; e != nil {
		e.status = rec.Status
		e.revision = rec.Revision
	}

	out.Status = status
	out.Err = cause
	out.Transient = status == models.StatusPending

	if status == models.StatusFailed {
		q.log.Warn(ctx, "interaction failed", "id", qi.ID, "class", class, "error", cause)
		q.notifier.OnSyncFailed(models.EntityInteraction, qi.ID, cause.Error())
	} else {
		q.log.Debug(ctx, "interaction will retry", "id", qi.ID, "class", class, "error", cause)
	}
	return out, nil
}

// Retry moves a Failed interaction back to Pending with a fresh attempt budget.
func (q *Queue) Retry(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.get(ctx, id)
	if err != nil {
		return err
	}
	rec, err = q.store.Update(ctx, id, models.Patch{}.
		SetStatus(models.StatusPending).
		SetAttempts(0).
		SetLastError("").
		SetNextAttemptAt(time.Time{}).
		When(models.StatusFailed))
	if err != nil {
		return err
	}
	if e := q.index[rec.DedupKey]; e != nil {
		e.status = rec.Status
		e.revision = rec.Revision
	}
	return nil
}

// Discard drops an interaction that is not in flight.
func (q *Queue) Discard(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status == models.StatusUploading {
		return fmt.Errorf("interaction %s is in flight: %w", id, common.ErrStale)
	}
	if err := q.store.RemoveAt(ctx, id, rec.Revision); err != nil {
		return err
	}
	delete(q.index, rec.DedupKey)
	return nil
}

func (q *Queue) get(ctx context.Context, id string) (*models.Record, error) {
	rec, err := q.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Entity != models.EntityInteraction {
		return nil, fmt.Errorf("%s: %w", id, common.ErrNotFound)
	}
	return rec, nil
}

// List returns every queued interaction, oldest first.
func (q *Queue) List(ctx context.Context) ([]*models.QueuedInteraction, error) {
	recs, err := q.store.List(ctx, models.EntityInteraction)
	if err != nil {
		return nil, err
	}
	out := make([]*models.QueuedInteraction, 0, len(recs))
	for _, r := range recs {
		qi, err := models.InteractionFromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, qi)
	}
	return out, nil
}
