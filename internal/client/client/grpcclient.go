package client

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/common"
	"github.com/dmitrijs2005/clipsync/internal/netx"
	"github.com/dmitrijs2005/clipsync/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// GRPCClient implements API over the clipsync mutation service.
type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	mutations   *rpc.MutationsClient
	health      healthpb.HealthClient
	httpClient  *http.Client

	mu          sync.RWMutex
	accessToken string

	now func() time.Time
}

// NewGRPCClient creates a client for endpointURL. Extra dial options are
// appended after the defaults, which tests use to dial over bufconn.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{
		endpointURL: endpointURL,
		httpClient:  &http.Client{},
		now:         time.Now,
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.mutations = rpc.NewMutationsClient(conn)
	c.health = healthpb.NewHealthClient(conn)
	return c, nil
}

// SetAccessToken sets the token attached to every call.
func (c *GRPCClient) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// SetHTTPClient replaces the client used for presigned uploads.
func (c *GRPCClient) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

func (c *GRPCClient) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the session token. A token whose exp has
// passed fails locally: the server would only reject it.
func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method == healthpb.Health_Check_FullMethodName {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	token := c.token()
	if token == "" {
		return status.Error(codes.Unauthenticated, "no access token")
	}
	if info, err := ParseToken(token); err == nil && info.Expired(c.now()) {
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}

	return invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

func (c *GRPCClient) InsertRow(ctx context.Context, table string, row map[string]any) error {
	req, err := rpc.InsertRowRequest{Table: table, Row: row}.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if _, err := c.mutations.InsertRow(ctx, req); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *GRPCClient) DeleteRows(ctx context.Context, table string, filter map[string]any) error {
	req, err := rpc.DeleteRowsRequest{Table: table, Filter: filter}.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if _, err := c.mutations.DeleteRows(ctx, req); err != nil {
		return mapError(err)
	}
	return nil
}

// UploadBlob asks the backend for a presigned URL and PUTs the file to it.
func (c *GRPCClient) UploadBlob(ctx context.Context, bucket, path, localPath, contentType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidSource, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidSource, err)
	}

	req, err := rpc.PresignUploadRequest{Bucket: bucket, Path: path, ContentType: contentType}.Encode()
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	out, err := c.mutations.PresignUpload(ctx, req)
	if err != nil {
		return "", mapError(err)
	}
	resp, err := rpc.DecodePresignUploadResponse(out)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}

	if err := netx.UploadToPresignedURL(ctx, c.httpClient, resp.UploadURL, f, fi.Size(), contentType); err != nil {
		return "", err
	}
	return resp.PublicURL, nil
}

// Ping checks the standard gRPC health service.
func (c *GRPCClient) Ping(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.ServiceName})
	if err != nil {
		return mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return common.ErrUnavailable
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrUnauthorized, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", common.ErrConflict, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return fmt.Errorf("%w: %s", common.ErrValidation, st.Message())
	case codes.Canceled:
		return context.Canceled
	default:
		return fmt.Errorf("%w: %s", common.ErrUnavailable, st.Message())
	}
}
