package uploads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/client/client"
	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/dmitrijs2005/clipsync/internal/client/notify"
	"github.com/dmitrijs2005/clipsync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/clipsync/internal/common"
	"github.com/dmitrijs2005/clipsync/internal/filex"
	"github.com/dmitrijs2005/clipsync/internal/logging"
)

// Queue is the upload queue.
type Queue struct {
	store    queue.Store
	notifier notify.Notifier
	policy   models.RetryPolicy
	log      logging.Logger
}

func NewQueue(store queue.Store, notifier notify.Notifier, policy models.RetryPolicy, log logging.Logger) *Queue {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Queue{store: store, notifier: notifier, policy: policy, log: log.With("module", "uploads")}
}

// Prepare validates a new submission and returns it as a Pending upload with
// a fresh id. Nothing is persisted.
func Prepare(ownerID string, kind models.UploadKind, blobPath string, md models.UploadMetadata, thumbnailPath string) (*models.QueuedUpload, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", common.ErrInvalidMetadata)
	}
	u := &models.QueuedUpload{
		ID:                 models.NewID(),
		OwnerID:            ownerID,
		Kind:               kind,
		LocalBlobPath:      blobPath,
		LocalThumbnailPath: thumbnailPath,
		Metadata:           md,
		Status:             models.StatusPending,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if _, err := filex.CheckReadable(blobPath); err != nil {
		return nil, err
	}
	if thumbnailPath != "" {
		if _, err := filex.CheckReadable(thumbnailPath); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Enqueue validates and persists a new upload and returns its id. The blob
// (and thumbnail, when given) must exist and be readable.
func (q *Queue) Enqueue(ctx context.Context, ownerID string, kind models.UploadKind, blobPath string, md models.UploadMetadata, thumbnailPath string) (string, error) {
	u, err := Prepare(ownerID, kind, blobPath, md, thumbnailPath)
	if err != nil {
		return "", err
	}
	if err := q.Add(ctx, u); err != nil {
		return "", err
	}
	return u.ID, nil
}

// Add persists an already prepared upload as Pending, keeping its id and
// any remote URLs it already carries.
func (q *Queue) Add(ctx context.Context, u *models.QueuedUpload) error {
	u.Status = models.StatusPending
	u.CreatedAt = models.Now()
	rec, err := u.ToRecord()
	if err != nil {
		return err
	}
	if err := q.store.Append(ctx, rec); err != nil {
		return err
	}
	u.Revision = rec.Revision

	q.log.Debug(ctx, "upload queued", "id", u.ID, "kind", u.Kind)
	q.notifier.OnQueued(models.EntityUpload, u.ID)
	return nil
}

// Publish performs the remote steps for u, skipping those whose URL is
// already known. memo, when not nil, is called after each blob upload so the
// URL can be persisted before the next step.
func Publish(ctx context.Context, api client.API, u *models.QueuedUpload, memo func(context.Context, *models.QueuedUpload) error) error {
	d, err := destinationFor(u.Kind)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidMetadata, err)
	}

	if u.RemoteBlobURL == "" {
		url, err := api.UploadBlob(ctx, d.Bucket, objectPath(u, "blob", u.LocalBlobPath), u.LocalBlobPath, contentType(u.LocalBlobPath))
		if err != nil {
			return fmt.Errorf("upload blob: %w", err)
		}
		u.RemoteBlobURL = url
		if memo != nil {
			if err := memo(ctx, u); err != nil {
				return err
			}
		}
	}

	if u.LocalThumbnailPath != "" && u.RemoteThumbnailURL == "" {
		url, err := api.UploadBlob(ctx, d.Bucket, objectPath(u, "thumbnail", u.LocalThumbnailPath), u.LocalThumbnailPath, contentType(u.LocalThumbnailPath))
		if err != nil {
			return fmt.Errorf("upload thumbnail: %w", err)
		}
		u.RemoteThumbnailURL = url
		if memo != nil {
			if err := memo(ctx, u); err != nil {
				return err
			}
		}
	}

	if err := api.InsertRow(ctx, d.Table, row(u, d)); err != nil {
		if client.Classify(err) == client.ConflictAlready {
			return nil
		}
		return fmt.Errorf("insert %s row: %w", d.Table, err)
	}
	return nil
}

// localError marks failures of the local store during processing.
type localError struct{ err error }

func (e localError) Error() string { return e.err.Error() }
func (e localError) Unwrap() error { return e.err }

// Eligible returns the ids of Pending uploads due at now, oldest first.
func (q *Queue) Eligible(ctx context.Context, now time.Time) ([]string, error) {
	recs, err := q.store.ListEligible(ctx, models.EntityUpload, now, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// DrainOne processes the oldest eligible upload. It reports false when
// there was nothing to do.
func (q *Queue) DrainOne(ctx context.Context, api client.API) (models.Outcome, bool, error) {
	recs, err := q.store.ListEligible(ctx, models.EntityUpload, models.Now(), 1)
	if err != nil {
		return models.Outcome{}, false, err
	}
	if len(recs) == 0 {
		return models.Outcome{}, false, nil
	}
	out, err := q.Process(ctx, api, recs[0].ID)
	return out, true, err
}

// Process claims upload id and publishes it. The returned error is reserved
// for local store failures; remote failures are reported in the Outcome.
func (q *Queue) Process(ctx context.Context, api client.API, id string) (models.Outcome, error) {
	out := models.Outcome{ID: id, Entity: models.EntityUpload}

	rec, err := q.store.Update(ctx, id, models.Patch{}.SetStatus(models.StatusUploading).When(models.StatusPending))
	if errors.Is(err, common.ErrStale) || errors.Is(err, common.ErrNotFound) {
		out.Skipped = true
		return out, nil
	}
	if err != nil {
		return out, err
	}

	u, err := models.UploadFromRecord(rec)
	if err != nil {
		// an undecodable entry can never succeed
		return q.fail(ctx, rec, out, fmt.Errorf("%w: %v", common.ErrValidation, err))
	}

	q.log.Debug(ctx, "upload claimed", "id", id, "attempt", u.Attempts+1)

	err = Publish(ctx, api, u, q.memoize)
	var le localError
	if errors.As(err, &le) {
		return out, le.err
	}
	if err != nil {
		return q.fail(ctx, rec, out, err)
	}

	if err := q.store.Remove(ctx, id); err != nil {
		return out, err
	}
	out.Status = models.StatusDone
	q.log.Debug(ctx, "upload synced", "id", id)
	q.notifier.OnSynced(models.EntityUpload, id)
	return out, nil
}

func (q *Queue) memoize(ctx context.Context, u *models.QueuedUpload) error {
	payload, err := u.Payload()
	if err != nil {
		return localError{err}
	}
	if _, err := q.store.Update(ctx, u.ID, models.Patch{}.SetPayload(payload).When(models.StatusUploading)); err != nil {
		return localError{fmt.Errorf("persist remote url of %s: %w", u.ID, err)}
	}
	return nil
}

func (q *Queue) fail(ctx context.Context, rec *models.Record, out models.Outcome, cause error) (models.Outcome, error) {
	class := client.Classify(cause)
	patch, status := q.policy.FailurePatch(rec.Attempts, class.Retryable(), cause, models.Now())
	if _, err := q.store.Update(ctx, rec.ID, patch); err != nil {
		return out, err
	}

	out.Status = status
	out.Err = cause
	out.Transient = status == models.StatusPending

	if status == models.StatusFailed {
		q.log.Warn(ctx, "upload failed", "id", rec.ID, "class", class, "error", cause)
		q.notifier.OnSyncFailed(models.EntityUpload, rec.ID, cause.Error())
	} else {
		q.log.Debug(ctx, "upload will retry", "id", rec.ID, "class", class, "error", cause)
	}
	return out, nil
}

// Retry moves a Failed upload back to Pending with a fresh attempt budget.
func (q *Queue) Retry(ctx context.Context, id string) error {
	rec, err := q.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Entity != models.EntityUpload {
		return fmt.Errorf("%s: %w", id, common.ErrNotFound)
	}
	_, err = q.store.Update(ctx, id, models.Patch{}.
		SetStatus(models.StatusPending).
		SetAttempts(0).
		SetLastError("").
		SetNextAttemptAt(time.Time{}).
		When(models.StatusFailed))
	return err
}

// Discard drops an upload that is not in flight.
func (q *Queue) Discard(ctx context.Context, id string) error {
	rec, err := q.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Entity != models.EntityUpload {
		return fmt.Errorf("%s: %w", id, common.ErrNotFound)
	}
	if rec.Status == models.StatusUploading {
		return fmt.Errorf("upload %s is in flight: %w", id, common.ErrStale)
	}
	return q.store.RemoveAt(ctx, id, rec.Revision)
}

// List returns every queued upload, oldest first.
func (q *Queue) List(ctx context.Context) ([]*models.QueuedUpload, error) {
	recs, err := q.store.List(ctx, models.EntityUpload)
	if err != nil {
		return nil, err
	}
	out := make([]*models.QueuedUpload, 0, len(recs))
	for _, r := range recs {
		u, err := models.UploadFromRecord(r)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}
