package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/client/client"
	"github.com/dmitrijs2005/clipsync/internal/client/interactions"
	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/dmitrijs2005/clipsync/internal/client/uploads"
	"github.com/dmitrijs2005/clipsync/internal/logging"
)

// Result tells the UI what happened to a mutation.
type Result struct {
	// Success is true when the mutation was applied or durably queued.
	Success bool
	// IsOffline is true when the mutation was queued to sync later.
	IsOffline bool
	// QueuedID is the queue entry id; empty when applied directly or when a
	// toggle cancelled a pending one.
	QueuedID string
}

// Connectivity answers whether the device is online.
type Connectivity interface {
	IsOnline(ctx context.Context) bool
}

// OfflineContentService is the façade the UI calls for every mutation.
// Each call tries the remote API when online and falls back to the queues
// when offline or when the direct call fails.
type OfflineContentService interface {
	SaveVoiceClip(ctx context.Context, blobPath string, md models.VoiceClipMetadata) (Result, error)
	SaveVideoClip(ctx context.Context, blobPath, thumbnailPath string, md models.VideoClipMetadata) (Result, error)
	SaveStory(ctx context.Context, mediaPath, thumbnailPath string, md models.StoryMetadata) (Result, error)
	ToggleLike(ctx context.Context, targetID string, targetKind models.TargetKind, active bool) (Result, error)
	ToggleFollow(ctx context.Context, userID string, active bool) (Result, error)
}

type offlineContentService struct {
	api          client.API
	net          Connectivity
	session      SessionService
	uploads      *uploads.Queue
	interactions *interactions.Queue
	timeout      time.Duration
	log          logging.Logger
}

func NewOfflineContentService(
	api client.API,
	net Connectivity,
	session SessionService,
	up *uploads.Queue,
	in *interactions.Queue,
	directTimeout time.Duration,
	log logging.Logger,
) OfflineContentService {
	if directTimeout <= 0 {
		directTimeout = 10 * time.Second
	}
	return &offlineContentService{
		api:          api,
		net:          net,
		session:      session,
		uploads:      up,
		interactions: in,
		timeout:      directTimeout,
		log:          log.With("module", "content"),
	}
}

// attemptOrQueue applies the try-direct-then-queue policy to one action. A
// nil direct skips the remote attempt.
func attemptOrQueue[A any](
	ctx context.Context,
	s *offlineContentService,
	action A,
	direct func(context.Context, A) error,
	fallback func(context.Context, A) (string, error),
) (Result, error) {
	if direct != nil && s.net.IsOnline(ctx) {
		dctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := direct(dctx, action)
		cancel()
		if err == nil {
			return Result{Success: true}, nil
		}
		s.log.Warn(ctx, "direct call failed, queueing", "class", client.Classify(err), "error", err)
	}

	id, err := fallback(ctx, action)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, IsOffline: true, QueuedID: id}, nil
}

func (s *offlineContentService) SaveVoiceClip(ctx context.Context, blobPath string, md models.VoiceClipMetadata) (Result, error) {
	return s.saveUpload(ctx, models.UploadVoiceClip, blobPath, "", md)
}

func (s *offlineContentService) SaveVideoClip(ctx context.Context, blobPath, thumbnailPath string, md models.VideoClipMetadata) (Result, error) {
	return s.saveUpload(ctx, models.UploadVideoClip, blobPath, thumbnailPath, md)
}

func (s *offlineContentService) SaveStory(ctx context.Context, mediaPath, thumbnailPath string, md models.StoryMetadata) (Result, error) {
	return s.saveUpload(ctx, models.UploadStory, mediaPath, thumbnailPath, md)
}

// saveUpload validates before any remote attempt, so a bad source or bad
// metadata is returned to the caller and never queued. A direct attempt that
// fails midway is queued under the same id with the URLs it already has.
func (s *offlineContentService) saveUpload(ctx context.Context, kind models.UploadKind, blobPath, thumbnailPath string, md models.UploadMetadata) (Result, error) {
	owner, err := s.session.Owner(ctx)
	if err != nil {
		return Result{}, err
	}
	u, err := uploads.Prepare(owner, kind, blobPath, md, thumbnailPath)
	if err != nil {
		return Result{}, err
	}

	return attemptOrQueue(ctx, s, u,
		func(ctx context.Context, u *models.QueuedUpload) error {
			return uploads.Publish(ctx, s.api, u, nil)
		},
		func(ctx context.Context, u *models.QueuedUpload) (string, error) {
			if err := s.uploads.Add(ctx, u); err != nil {
				return "", err
			}
			return u.ID, nil
		})
}

func (s *offlineContentService) ToggleLike(ctx context.Context, targetID string, targetKind models.TargetKind, active bool) (Result, error) {
	if targetKind == models.TargetUser {
		return s.ToggleFollow(ctx, targetID, active)
	}
	return s.toggle(ctx, targetID, targetKind, active)
}

func (s *offlineContentService) ToggleFollow(ctx context.Context, userID string, active bool) (Result, error) {
	return s.toggle(ctx, userID, models.TargetUser, active)
}

// toggle sends the toggle directly only when nothing is pending for the
// key; otherwise it collapses into the queued entry so mutations for one
// target are never applied out of order.
func (s *offlineContentService) toggle(ctx context.Context, targetID string, targetKind models.TargetKind, active bool) (Result, error) {
	owner, err := s.session.Owner(ctx)
	if err != nil {
		return Result{}, err
	}
	key := models.InteractionKey{OwnerID: owner, TargetID: targetID, TargetKind: targetKind}
	if err := key.Validate(); err != nil {
		return Result{}, err
	}

	qi := &models.QueuedInteraction{
		OwnerID:    owner,
		Kind:       targetKind.InteractionKind(),
		TargetID:   targetID,
		TargetKind: targetKind,
		Action:     models.ActionFor(active),
	}

	var direct func(context.Context, *models.QueuedInteraction) error
	if !s.interactions.HasPending(owner, targetID, targetKind) {
		direct = func(ctx context.Context, qi *models.QueuedInteraction) error {
			return interactions.Apply(ctx, s.api, qi)
		}
	}

	return attemptOrQueue(ctx, s, qi, direct,
		func(ctx context.Context, qi *models.QueuedInteraction) (string, error) {
			return s.interactions.RecordToggle(ctx, qi.OwnerID, qi.TargetID, qi.TargetKind, qi.Action.Active())
		})
}
