package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/clipsync/internal/common"
)

// InteractionKind is the kind of state toggle.
type InteractionKind string

const (
	InteractionLike   InteractionKind = "like"
	InteractionFollow InteractionKind = "follow"
)

// TargetKind is the kind of object an interaction points at.
type TargetKind string

const (
	TargetVoiceClip TargetKind = "voice_clip"
	TargetVideoClip TargetKind = "video_clip"
	TargetStory     TargetKind = "story"
	TargetComment   TargetKind = "comment"
	TargetUser      TargetKind = "user"
)

// ParseTargetKind validates s as a TargetKind.
func ParseTargetKind(s string) (TargetKind, error) {
	switch k := TargetKind(s); k {
	case TargetVoiceClip, TargetVideoClip, TargetStory, TargetComment, TargetUser:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown target kind %q", common.ErrInvalidMetadata, s)
	}
}

// InteractionKind returns the toggle kind used for this target: users are
// followed, everything else is liked.
func (k TargetKind) InteractionKind() InteractionKind {
	if k == TargetUser {
		return InteractionFollow
	}
	return InteractionLike
}

// Action is the net remote mutation an interaction performs.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
)

// ActionFor returns Add for an active target state and Remove otherwise.
func ActionFor(active bool) Action {
	if active {
		return ActionAdd
	}
	return ActionRemove
}

// Active is the target state the action leads to.
func (a Action) Active() bool {
	return a == ActionAdd
}

// InteractionKey identifies the single unsynced interaction allowed per
// owner and target.
type InteractionKey struct {
	OwnerID    string
	TargetID   string
	TargetKind TargetKind
}

// String is the dedup key persisted with the record.
func (k InteractionKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.TargetKind.InteractionKind(), k.OwnerID, k.TargetKind, k.TargetID)
}

// Validate checks that all key parts are present.
func (k InteractionKey) Validate() error {
	if k.OwnerID == "" || k.TargetID == "" {
		return fmt.Errorf("%w: owner and target are required", common.ErrInvalidMetadata)
	}
	_, err := ParseTargetKind(string(k.TargetKind))
	return err
}

// QueuedInteraction is a pending like/follow toggle.
type QueuedInteraction struct {
	ID         string
	OwnerID    string
	Kind       InteractionKind
	TargetID   string
	TargetKind TargetKind
	Action     Action

	// BaseState is the server state Action was computed against. When the
	// desired state returns to BaseState the entry cancels out.
	BaseState bool

	Status        Status
	Attempts      uint32
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	Revision      int64
}

// Key returns the dedup key of the interaction.
func (q *QueuedInteraction) Key() InteractionKey {
	return InteractionKey{OwnerID: q.OwnerID, TargetID: q.TargetID, TargetKind: q.TargetKind}
}

type interactionPayload struct {
	Kind       InteractionKind `json:"kind"`
	TargetID   string          `json:"target_id"`
	TargetKind TargetKind      `json:"target_kind"`
	Action     Action          `json:"action"`
	BaseState  bool            `json:"base_state"`
}

// Payload encodes the entity-specific fields for storage.
func (q *QueuedInteraction) Payload() ([]byte, error) {
	return json.Marshal(interactionPayload{
		Kind:       q.Kind,
		TargetID:   q.TargetID,
		TargetKind: q.TargetKind,
		Action:     q.Action,
		BaseState:  q.BaseState,
	})
}

// ToRecord converts the interaction into its persisted form.
func (q *QueuedInteraction) ToRecord() (*Record, error) {
	payload, err := q.Payload()
	if err != nil {
		return nil, err
	}
	return &Record{
		ID:            q.ID,
		Entity:        EntityInteraction,
		OwnerID:       q.OwnerID,
		DedupKey:      q.Key().String(),
		Status:        q.Status,
		Attempts:      q.Attempts,
		LastError:     q.LastError,
		NextAttemptAt: q.NextAttemptAt,
		Payload:       payload,
		Revision:      q.Revision,
		CreatedAt:     q.CreatedAt,
	}, nil
}

// InteractionFromRecord decodes a persisted interaction.
func InteractionFromRecord(r *Record) (*QueuedInteraction, error) {
	if r.Entity != EntityInteraction {
		return nil, fmt.Errorf("record %s is a %s, not an interaction", r.ID, r.Entity)
	}

	var p interactionPayload
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return nil, fmt.Errorf("decode interaction %s: %w", r.ID, err)
	}

	return &QueuedInteraction{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Kind:          p.Kind,
		TargetID:      p.TargetID,
		TargetKind:    p.TargetKind,
		Action:        p.Action,
		BaseState:     p.BaseState,
		Status:        r.Status,
		Attempts:      r.Attempts,
		LastError:     r.LastError,
		NextAttemptAt: r.NextAttemptAt,
		CreatedAt:     r.CreatedAt,
		Revision:      r.Revision,
	}, nil
}
