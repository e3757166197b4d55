package rpc

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// ErrMalformed is returned when a message misses a required field.
var ErrMalformed = errors.New("malformed message")

// InsertRowRequest inserts one row into Table.
type InsertRowRequest struct {
	Table string
	Row   map[string]any
}

func (r InsertRowRequest) Encode() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"table": r.Table, "row": r.Row})
}

func DecodeInsertRow(s *structpb.Struct) (InsertRowRequest, error) {
	m := s.AsMap()
	table, err := stringField(m, "table")
	if err != nil {
		return InsertRowRequest{}, err
	}
	row, err := mapField(m, "row")
	if err != nil {
		return InsertRowRequest{}, err
	}
	return InsertRowRequest{Table: table, Row: row}, nil
}

// DeleteRowsRequest deletes the rows of Table matching every Filter column.
type DeleteRowsRequest struct {
	Table  string
	Filter map[string]any
}

func (r DeleteRowsRequest) Encode() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"table": r.Table, "filter": r.Filter})
}

func DecodeDeleteRows(s *structpb.Struct) (DeleteRowsRequest, error) {
	m := s.AsMap()
	table, err := stringField(m, "table")
	if err != nil {
		return DeleteRowsRequest{}, err
	}
	filter, err := mapField(m, "filter")
	if err != nil {
		return DeleteRowsRequest{}, err
	}
	if len(filter) == 0 {
		return DeleteRowsRequest{}, fmt.Errorf("%w: empty filter", ErrMalformed)
	}
	return DeleteRowsRequest{Table: table, Filter: filter}, nil
}

// DeleteRowsResponse reports how many rows were removed.
type DeleteRowsResponse struct {
	Deleted int64
}

func (r DeleteRowsResponse) Encode() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"deleted": r.Deleted})
}

// PresignUploadRequest asks for a URL to PUT an object at Bucket/Path.
type PresignUploadRequest struct {
	Bucket      string
	Path        string
	ContentType string
}

func (r PresignUploadRequest) Encode() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"bucket":       r.Bucket,
		"path":         r.Path,
		"content_type": r.ContentType,
	})
}

func DecodePresignUpload(s *structpb.Struct) (PresignUploadRequest, error) {
	m := s.AsMap()
	bucket, err := stringField(m, "bucket")
	if err != nil {
		return PresignUploadRequest{}, err
	}
	path, err := stringField(m, "path")
	if err != nil {
		return PresignUploadRequest{}, err
	}
	ct, _ := m["content_type"].(string)
	return PresignUploadRequest{Bucket: bucket, Path: path, ContentType: ct}, nil
}

// PresignUploadResponse carries the PUT URL and the URL the object will be
// readable at once uploaded.
type PresignUploadResponse struct {
	UploadURL string
	PublicURL string
}

func (r PresignUploadResponse) Encode() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"upload_url": r.UploadURL, "public_url": r.PublicURL})
}

func DecodePresignUploadResponse(s *structpb.Struct) (PresignUploadResponse, error) {
	m := s.AsMap()
	up, err := stringField(m, "upload_url")
	if err != nil {
		return PresignUploadResponse{}, err
	}
	pub, err := stringField(m, "public_url")
	if err != nil {
		return PresignUploadResponse{}, err
	}
	return PresignUploadResponse{UploadURL: up, PublicURL: pub}, nil
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %q is required", ErrMalformed, key)
	}
	return v, nil
}

func mapField(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q must be an object", ErrMalformed, key)
	}
	return v, nil
}
