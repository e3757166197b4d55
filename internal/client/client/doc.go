// Package client contains the remote side of the offline core.
//
// # Overview
//
// The package provides:
//  1. The transport-agnostic contract of the remote mutation API (RowWriter,
//     BlobUploader, API) consumed by the queues and the façade.
//  2. A gRPC implementation (GRPCClient) that attaches the session token via
//     an interceptor, uploads blobs through presigned URLs and maps gRPC
//     status codes onto the sentinels of internal/common.
//  3. Classify, which folds any error into the failure classes the sync
//     engine acts on: Transient, Auth, ConflictAlready and Permanent.
//
// # Error Handling
//
// Callers match errors with errors.Is against common.ErrConflict,
// common.ErrNotFound, common.ErrUnauthorized, common.ErrValidation and
// common.ErrUnavailable.
//
// See also: internal/client/client/clienttest for an in-memory API.
package client
