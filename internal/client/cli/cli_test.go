package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/client/app"
	"github.com/dmitrijs2005/clipsync/internal/client/client/clienttest"
	"github.com/dmitrijs2005/clipsync/internal/client/config"
	"github.com/dmitrijs2005/clipsync/internal/common"
	"github.com/dmitrijs2005/clipsync/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNet struct{ online atomic.Bool }

func (n *fakeNet) IsOnline(context.Context) bool { return n.online.Load() }

func (n *fakeNet) Watch(ctx context.Context, _ time.Duration, _ func(bool)) { <-ctx.Done() }

type harness struct {
	dbPath string
	remote *clienttest.Remote
	net    *fakeNet
}

func newHarness(t *testing.T) *harness {
	return &harness{
		dbPath: filepath.Join(t.TempDir(), "cli.db"),
		remote: clienttest.NewRemote(),
		net:    &fakeNet{},
	}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabasePath = h.dbPath

	open := func(ctx context.Context, cfg *config.Config, _ logging.Logger) (*app.App, error) {
		return app.Assemble(ctx, cfg, h.remote, nil, h.net, logging.Nop())
	}

	root := NewRootCommand(cfg, open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func token(t *testing.T, userID string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestCLI_OfflineLikeThenSync(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "login", token(t, "u1"))
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as u1")

	out, err = h.run(t, "", "like", "clip9", "--kind", "video_clip")
	require.NoError(t, err)
	assert.Contains(t, out, "like: queued as ")

	out, err = h.run(t, "", "state", "clip9", "--kind", "video_clip")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = h.run(t, "", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "video_clip/clip9")

	out, err = h.run(t, "", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "offline")

	h.net.online.Store(true)
	out, err = h.run(t, "", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "synced 1")
	assert.Len(t, h.remote.Rows("likes"), 1)

	out, err = h.run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "online")
	assert.Contains(t, out, "u1")
}

func TestCLI_LoginFromStdin(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, token(t, "u5")+"\n", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as u5")

	h.net.online.Store(true)
	out, err = h.run(t, "", "follow", "u6")
	require.NoError(t, err)
	assert.Contains(t, out, "follow: applied")
	assert.Len(t, h.remote.Rows("follows"), 1)
}

func TestCLI_Errors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "like", "c1")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = h.run(t, "", "login", "not-a-token")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	_, err = h.run(t, "", "login", token(t, "u1"))
	require.NoError(t, err)

	_, err = h.run(t, "", "voice", filepath.Join(t.TempDir(), "missing.m4a"),
		"--phrase", "hola", "--language", "es", "--duration", "1")
	assert.ErrorIs(t, err, common.ErrInvalidSource)

	_, err = h.run(t, "", "like", "c1", "--kind", "planet")
	assert.Error(t, err)

	_, err = h.run(t, "", "retry", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCLI_DiscardQueuedEntry(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "login", token(t, "u1"))
	require.NoError(t, err)

	out, err := h.run(t, "", "unfollow", "u2")
	require.NoError(t, err)
	id := strings.TrimSpace(strings.TrimPrefix(out, "unfollow: queued as "))
	require.NotEmpty(t, id)

	out, err = h.run(t, "", "discard", id)
	require.NoError(t, err)
	assert.Contains(t, out, "discarded")

	out, err = h.run(t, "", "pending")
	require.NoError(t, err)
	assert.NotContains(t, out, id)
}
