package services

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/client/client/clienttest"
	"github.com/dmitrijs2005/clipsync/internal/client/interactions"
	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/dmitrijs2005/clipsync/internal/client/repositories"
	"github.com/dmitrijs2005/clipsync/internal/client/uploads"
	"github.com/dmitrijs2005/clipsync/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type fakeNet struct{ online atomic.Bool }

func (n *fakeNet) IsOnline(context.Context) bool { return n.online.Load() }

type fakeSink struct{ token string }

func (s *fakeSink) SetAccessToken(token string) { s.token = token }

func signToken(t *testing.T, userID string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

type env struct {
	repos   *repositories.Repositories
	remote  *clienttest.Remote
	net     *fakeNet
	session SessionService
	up      *uploads.Queue
	in      *interactions.Queue
	svc     OfflineContentService
	dir     string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	repos, err := repositories.OpenDatabase(ctx, filepath.Join(dir, "c.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	e := &env{repos: repos, remote: clienttest.NewRemote(), net: &fakeNet{}, dir: dir}
	e.session = NewSessionService(repos.Metadata, &fakeSink{})
	_, err = e.session.SetToken(ctx, signToken(t, "u1"))
	require.NoError(t, err)

	policy := models.DefaultRetryPolicy()
	e.up = uploads.NewQueue(repos.Queue, nil, policy, logging.Nop())
	e.in, err = interactions.NewQueue(ctx, repos.Queue, nil, policy, logging.Nop())
	require.NoError(t, err)

	e.svc = NewOfflineContentService(e.remote, e.net, e.session, e.up, e.in, time.Second, logging.Nop())
	return e
}

func (e *env) file(t *testing.T, name string, size int) string {
	t.Helper()
	p := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(p, make([]byte, size), 0o600))
	return p
}
