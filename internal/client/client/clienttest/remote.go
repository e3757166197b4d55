// Package clienttest provides an in-memory remote mutation API for tests.
package clienttest

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/clipsync/internal/common"
)

// Op names a remote operation for counting and fault injection.
type Op string

const (
	OpInsert Op = "insert"
	OpDelete Op = "delete"
	OpUpload Op = "upload"
	OpPing   Op = "ping"
)

type fault struct {
	err   error
	apply bool
}

// Remote is an in-memory client.API. Tables enforce the unique keys the
// real backend has, so replays surface as common.ErrConflict.
type Remote struct {
	mu      sync.Mutex
	offline bool
	uniques map[string][]string
	tables  map[string][]map[string]any
	blobs   map[string]int64
	calls   map[Op]int
	faults  map[Op][]fault
	hook    func(ctx context.Context, op Op) error
}

// NewRemote returns a Remote with the clipsync schema's unique keys.
func NewRemote() *Remote {
	return &Remote{
		uniques: map[string][]string{
			"voice_clips": {"id"},
			"video_clips": {"id"},
			"stories":     {"id"},
			"likes":       {"user_id", "target_id", "target_kind"},
			"follows":     {"follower_id", "following_id"},
		},
		tables: map[string][]map[string]any{},
		blobs:  map[string]int64{},
		calls:  map[Op]int{},
		faults: map[Op][]fault{},
	}
}

// SetOffline makes every call fail with common.ErrUnavailable.
func (r *Remote) SetOffline(offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offline = offline
}

// FailNext makes the next calls of op fail with errs, one per call, without
// applying them.
func (r *Remote) FailNext(op Op, errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, err := range errs {
		r.faults[op] = append(r.faults[op], fault{err: err})
	}
}

// FailAfterApply makes the next call of op take effect remotely and still
// return err, like a response lost on the way back.
func (r *Remote) FailAfterApply(op Op, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults[op] = append(r.faults[op], fault{err: err, apply: true})
}

// SetHook installs fn, called before every operation outside the lock. A
// non-nil error fails the call.
func (r *Remote) SetHook(fn func(ctx context.Context, op Op) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = fn
}

// Calls returns how many times op was invoked, failed calls included.
func (r *Remote) Calls(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// Rows returns a copy of the rows of table.
func (r *Remote) Rows(table string) []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]map[string]any, 0, len(r.tables[table]))
	for _, row := range r.tables[table] {
		cp := make(map[string]any, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// Blobs returns the stored object keys with their sizes.
func (r *Remote) Blobs() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.blobs))
	for k, v := range r.blobs {
		out[k] = v
	}
	return out
}

// SeedRow inserts row directly, bypassing counters and faults.
func (r *Remote) SeedRow(table string, row map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table] = append(r.tables[table], row)
}

func (r *Remote) begin(ctx context.Context, op Op) (fault, error) {
	r.mu.Lock()
	r.calls[op]++
	hook := r.hook
	r.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, op); err != nil {
			return fault{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return fault{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offline {
		return fault{}, fmt.Errorf("%w: offline", common.ErrUnavailable)
	}
	if fs := r.faults[op]; len(fs) > 0 {
		r.faults[op] = fs[1:]
		if !fs[0].apply {
			return fault{}, fs[0].err
		}
		return fs[0], nil
	}
	return fault{}, nil
}

func (r *Remote) InsertRow(ctx context.Context, table string, row map[string]any) error {
	f, err := r.begin(ctx, OpInsert)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if key := r.uniques[table]; key != nil {
		for _, existing := range r.tables[table] {
			if matches(existing, project(row, key)) {
				return fmt.Errorf("%w: duplicate key in %s", common.ErrConflict, table)
			}
		}
	}
	cp := make(map[string]any, len(row))
	for k, v := range row {
		cp[k] = v
	}
	r.tables[table] = append(r.tables[table], cp)
	return f.err
}

func (r *Remote) DeleteRows(ctx context.Context, table string, filter map[string]any) error {
	f, err := r.begin(ctx, OpDelete)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.tables[table][:0:0]
	deleted := 0
	for _, row := range r.tables[table] {
		if matches(row, filter) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	r.tables[table] = kept
	if deleted == 0 {
		return fmt.Errorf("%w: no rows in %s match", common.ErrNotFound, table)
	}
	return f.err
}

func (r *Remote) UploadBlob(ctx context.Context, bucket, path, localPath, contentType string) (string, error) {
	f, err := r.begin(ctx, OpUpload)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidSource, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := bucket + "/" + path
	r.blobs[key] = fi.Size()
	if f.err != nil {
		return "", f.err
	}
	return "mem://" + key, nil
}

func (r *Remote) Ping(ctx context.Context) error {
	_, err := r.begin(ctx, OpPing)
	return err
}

func project(row map[string]any, cols []string) map[string]any {
	out := make(map[string]any, len(cols))
	for _, c := range cols {
		out[c] = row[c]
	}
	return out
}

func matches(row, filter map[string]any) bool {
	for k, v := range filter {
		if fmt.Sprint(row[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}

// Dump renders the tables for test failure messages.
func (r *Remote) Dump() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "%s: %v\n", n, r.tables[n])
	}
	return b.String()
}
