// Package services contains the application services of the clipsync
// client: the offline-first content façade and the session service.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/clipsync/internal/client/client"
	"github.com/dmitrijs2005/clipsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/clipsync/internal/common"
)

// TokenSink receives the access token used by remote calls.
type TokenSink interface {
	SetAccessToken(token string)
}

// SessionService keeps the acting user's access token.
//
// Contract:
//   - SetToken: validate the token shape, persist it and hand it to the sink.
//   - Restore: reload a persisted token into the sink at start-up.
//   - Owner: the user id façade calls act for, or common.ErrUnauthorized.
//   - Clear: forget the session (logout).
type SessionService interface {
	SetToken(ctx context.Context, token string) (client.TokenInfo, error)
	Restore(ctx context.Context) (bool, error)
	Owner(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

type sessionService struct {
	meta metadata.Repository
	sink TokenSink
}

func NewSessionService(meta metadata.Repository, sink TokenSink) SessionService {
	return &sessionService{meta: meta, sink: sink}
}

func (s *sessionService) SetToken(ctx context.Context, token string) (client.TokenInfo, error) {
	info, err := client.ParseToken(token)
	if err != nil {
		return client.TokenInfo{}, err
	}
	err = s.meta.SetMany(ctx, map[string][]byte{
		metadata.KeyAccessToken: []byte(token),
		metadata.KeyUserID:      []byte(info.UserID),
	})
	if err != nil {
		return client.TokenInfo{}, fmt.Errorf("save session: %w", err)
	}
	if s.sink != nil {
		s.sink.SetAccessToken(token)
	}
	return info, nil
}

func (s *sessionService) Restore(ctx context.Context) (bool, error) {
	token, err := s.meta.Get(ctx, metadata.KeyAccessToken)
	if err != nil {
		return false, err
	}
	if token == nil {
		return false, nil
	}
	if s.sink != nil {
		s.sink.SetAccessToken(string(token))
	}
	return true, nil
}

func (s *sessionService) Owner(ctx context.Context) (string, error) {
	id, err := s.meta.Get(ctx, metadata.KeyUserID)
	if err != nil {
		return "", err
	}
	if len(id) == 0 {
		return "", fmt.Errorf("%w: not logged in", common.ErrUnauthorized)
	}
	return string(id), nil
}

func (s *sessionService) Clear(ctx context.Context) error {
	if _, err := s.meta.DeletePrefix(ctx, metadata.PrefixSession); err != nil {
		return err
	}
	if s.sink != nil {
		s.sink.SetAccessToken("")
	}
	return nil
}
