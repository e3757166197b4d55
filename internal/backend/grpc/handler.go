package grpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/clipsync/internal/backend/rows"
	"github.com/dmitrijs2005/clipsync/internal/common"
	"github.com/dmitrijs2005/clipsync/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) InsertRow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}

	in, err := rpc.DecodeInsertRow(req)
	if err != nil {
		return nil, s.statusError(ctx, err)
	}
	if err := checkOwner(in.Table, in.Row, userID); err != nil {
		return nil, err
	}

	if err := s.rows.Insert(ctx, in.Table, in.Row); err != nil {
		return nil, s.statusError(ctx, err)
	}
	return &structpb.Struct{}, nil
}

func (s *GRPCServer) DeleteRows(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}

	in, err := rpc.DecodeDeleteRows(req)
	if err != nil {
		return nil, s.statusError(ctx, err)
	}
	if err := checkOwner(in.Table, in.Filter, userID); err != nil {
		return nil, err
	}

	n, err := s.rows.Delete(ctx, in.Table, in.Filter)
	if err != nil {
		return nil, s.statusError(ctx, err)
	}
	return rpc.DeleteRowsResponse{Deleted: n}.Encode()
}

func (s *GRPCServer) PresignUpload(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, ok := userFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing user")
	}

	in, err := rpc.DecodePresignUpload(req)
	if err != nil {
		return nil, s.statusError(ctx, err)
	}
	if !strings.HasPrefix(in.Path, userID+"/") {
		return nil, status.Error(codes.PermissionDenied, "object path outside of the caller's prefix")
	}

	up, pub, err := s.blobs.PresignPut(ctx, in.Bucket, in.Path, in.ContentType)
	if err != nil {
		return nil, s.statusError(ctx, err)
	}
	return rpc.PresignUploadResponse{UploadURL: up, PublicURL: pub}.Encode()
}

// checkOwner requires the owner column of table to be present in values
// and equal to userID.
func checkOwner(table string, values map[string]any, userID string) error {
	t, err := rows.Lookup(table, values)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	owner, _ := values[t.Owner].(string)
	if owner != userID {
		return status.Error(codes.PermissionDenied, fmt.Sprintf("%s.%s must be the caller", t.Name, t.Owner))
	}
	return nil
}

func (s *GRPCServer) statusError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrValidation), errors.Is(err, rpc.ErrMalformed):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}
