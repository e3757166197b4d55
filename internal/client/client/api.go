package client

import (
	"context"
)

// RowWriter writes rows of the remote relational store.
type RowWriter interface {
	// InsertRow inserts row into table. A duplicate key fails with common.ErrConflict.
	InsertRow(ctx context.Context, table string, row map[string]any) error
	// DeleteRows deletes the rows matching every column of filter. It fails
	// with common.ErrNotFound when nothing matched.
	DeleteRows(ctx context.Context, table string, filter map[string]any) error
}

// BlobUploader stores a local file in remote object storage.
type BlobUploader interface {
	// UploadBlob uploads localPath to bucket/path and returns the URL the
	// object is readable at. Uploading to the same path again overwrites it.
	UploadBlob(ctx context.Context, bucket, path, localPath, contentType string) (string, error)
}

// API is the remote mutation API.
type API interface {
	RowWriter
	BlobUploader
	Ping(ctx context.Context) error
}
