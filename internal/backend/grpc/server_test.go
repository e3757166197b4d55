package grpc

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/backend/auth"
	"github.com/dmitrijs2005/clipsync/internal/client/client"
	"github.com/dmitrijs2005/clipsync/internal/common"
	"github.com/dmitrijs2005/clipsync/internal/logging"
	"github.com/dmitrijs2005/clipsync/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

const testSecret = "test-secret"

type call struct {
	Table  string
	Values map[string]any
}

type fakeRows struct {
	mu        sync.Mutex
	inserts   []call
	deletes   []call
	insertErr error
	deleteErr error
}

func (f *fakeRows) Insert(_ context.Context, table string, row map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts = append(f.inserts, call{table, row})
	return f.insertErr
}

func (f *fakeRows) Delete(_ context.Context, table string, filter map[string]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, call{table, filter})
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	return 1, nil
}

type fakePresigner struct {
	base string
	err  error
}

func (f *fakePresigner) PresignPut(_ context.Context, bucket, key, _ string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.base + "/" + bucket + "/" + key, "https://cdn.example/" + bucket + "/" + key, nil
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return tok
}

// start serves s over bufconn and returns a dial option reaching it.
func start(t *testing.T, s *GRPCServer) grpc.DialOption {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func newClient(t *testing.T, dial grpc.DialOption, userID string) *client.GRPCClient {
	t.Helper()
	c, err := client.NewGRPCClient("passthrough:///bufnet", dial)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	if userID != "" {
		c.SetAccessToken(token(t, userID))
	}
	return c
}

func TestServer_InsertAndDeleteOwnRows(t *testing.T) {
	store := &fakeRows{}
	s := NewGRPCServer("", logging.Nop(), store, &fakePresigner{}, testSecret)
	c := newClient(t, start(t, s), "u1")
	ctx := context.Background()

	like := map[string]any{"user_id": "u1", "target_id": "c1", "target_kind": "voice_clip"}
	require.NoError(t, c.InsertRow(ctx, "likes", like))
	require.NoError(t, c.DeleteRows(ctx, "likes", like))

	require.Len(t, store.inserts, 1)
	assert.Equal(t, call{"likes", like}, store.inserts[0])
	require.Len(t, store.deletes, 1)
	assert.Equal(t, "likes", store.deletes[0].Table)
}

func TestServer_RejectsForeignOwner(t *testing.T) {
	store := &fakeRows{}
	s := NewGRPCServer("", logging.Nop(), store, &fakePresigner{}, testSecret)
	c := newClient(t, start(t, s), "u1")
	ctx := context.Background()

	err := c.InsertRow(ctx, "follows", map[string]any{"follower_id": "u2", "following_id": "u3"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	err = c.DeleteRows(ctx, "likes", map[string]any{"target_id": "c1"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	assert.Empty(t, store.inserts)
	assert.Empty(t, store.deletes)
}

func TestServer_MapsStoreErrors(t *testing.T) {
	store := &fakeRows{
		insertErr: common.ErrConflict,
		deleteErr: common.ErrNotFound,
	}
	s := NewGRPCServer("", logging.Nop(), store, &fakePresigner{}, testSecret)
	c := newClient(t, start(t, s), "u1")
	ctx := context.Background()
	follow := map[string]any{"follower_id": "u1", "following_id": "u2"}

	err := c.InsertRow(ctx, "follows", follow)
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Equal(t, client.ConflictAlready, client.Classify(err))

	err = c.DeleteRows(ctx, "follows", follow)
	assert.ErrorIs(t, err, common.ErrNotFound)

	store.insertErr = errors.New("connection reset")
	err = c.InsertRow(ctx, "follows", follow)
	assert.ErrorIs(t, err, common.ErrUnavailable)
	assert.Equal(t, client.Transient, client.Classify(err))
}

func TestServer_UnknownTableIsInvalid(t *testing.T) {
	s := NewGRPCServer("", logging.Nop(), &fakeRows{}, &fakePresigner{}, testSecret)
	c := newClient(t, start(t, s), "u1")

	err := c.InsertRow(context.Background(), "users", map[string]any{"id": "u1"})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, client.Permanent, client.Classify(err))
}

func TestServer_UploadBlob(t *testing.T) {
	var got []byte
	objects := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/voice-clips/u1/01J/blob.m4a", r.URL.Path)
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer objects.Close()

	s := NewGRPCServer("", logging.Nop(), &fakeRows{}, &fakePresigner{base: objects.URL}, testSecret)
	c := newClient(t, start(t, s), "u1")

	path := filepath.Join(t.TempDir(), "clip.m4a")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o600))

	url, err := c.UploadBlob(context.Background(), "voice-clips", "u1/01J/blob.m4a", path, "audio/mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/voice-clips/u1/01J/blob.m4a", url)
	assert.Equal(t, []byte("audio"), got)

	_, err = c.UploadBlob(context.Background(), "voice-clips", "u2/01J/blob.m4a", path, "audio/mp4")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestServer_PingWithoutToken(t *testing.T) {
	s := NewGRPCServer("", logging.Nop(), &fakeRows{}, &fakePresigner{}, testSecret)
	c := newClient(t, start(t, s), "")

	assert.NoError(t, c.Ping(context.Background()))
}

func TestServer_ReturnsRequestID(t *testing.T) {
	s := NewGRPCServer("", logging.Nop(), &fakeRows{}, &fakePresigner{}, testSecret)
	conn, err := grpc.NewClient("passthrough:///bufnet", start(t, s),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	req, err := rpc.InsertRowRequest{Table: "follows", Row: map[string]any{"follower_id": "u1", "following_id": "u2"}}.Encode()
	require.NoError(t, err)

	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, token(t, "u1"))
	var header metadata.MD
	_, err = rpc.NewMutationsClient(conn).InsertRow(ctx, req, grpc.Header(&header))
	require.NoError(t, err)

	ids := header.Get(RequestIDHeader)
	require.Len(t, ids, 1)
	assert.Len(t, ids[0], 36)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := NewGRPCServer("127.0.0.1:0", logging.Nop(), &fakeRows{}, &fakePresigner{}, testSecret)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	s := NewGRPCServer("127.0.0.1:99999", logging.Nop(), &fakeRows{}, &fakePresigner{}, testSecret)
	assert.Error(t, s.Run(context.Background()))
}
