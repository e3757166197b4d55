// Package rows stores the mutation API's rows in PostgreSQL. Only tables
// and columns listed in Schema are reachable.
package rows

import (
	"fmt"
	"slices"

	"github.com/dmitrijs2005/clipsync/internal/common"
)

// Table describes a writable table.
type Table struct {
	Name    string
	Columns []string
	// Owner is the column that must hold the caller's user id.
	Owner string
}

func (t Table) HasColumn(c string) bool {
	return slices.Contains(t.Columns, c)
}

var Schema = map[string]Table{
	"voice_clips": {
		Name:    "voice_clips",
		Columns: []string{"id", "user_id", "phrase", "translation", "language", "duration_seconds", "audio_url"},
		Owner:   "user_id",
	},
	"video_clips": {
		Name:    "video_clips",
		Columns: []string{"id", "user_id", "phrase", "language", "video_url", "thumbnail_url"},
		Owner:   "user_id",
	},
	"stories": {
		Name:    "stories",
		Columns: []string{"id", "user_id", "media_url", "thumbnail_url", "caption", "expires_at"},
		Owner:   "user_id",
	},
	"likes": {
		Name:    "likes",
		Columns: []string{"user_id", "target_id", "target_kind"},
		Owner:   "user_id",
	},
	"follows": {
		Name:    "follows",
		Columns: []string{"follower_id", "following_id"},
		Owner:   "follower_id",
	},
}

// Lookup returns the table named name and checks every key of values is
// one of its columns.
func Lookup(name string, values map[string]any) (Table, error) {
	t, ok := Schema[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: unknown table %q", common.ErrValidation, name)
	}
	for c := range values {
		if !t.HasColumn(c) {
			return Table{}, fmt.Errorf("%w: unknown column %s.%s", common.ErrValidation, name, c)
		}
	}
	return t, nil
}
