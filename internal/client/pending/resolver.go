// Package pending overlays unsynced interactions on server-reported state
// for optimistic rendering.
package pending

import "github.com/dmitrijs2005/clipsync/internal/client/models"

// StateSource answers the pending action for a key without I/O.
type StateSource interface {
	GetPendingState(ownerID, targetID string, targetKind models.TargetKind) (models.Action, bool)
}

// Resolver computes effective like/follow state.
type Resolver struct {
	source StateSource
}

func NewResolver(source StateSource) *Resolver {
	return &Resolver{source: source}
}

// EffectiveState returns the state the target will have once the queue is
// drained: the pending action's truth value when one exists, serverState
// otherwise.
func (r *Resolver) EffectiveState(ownerID, targetID string, targetKind models.TargetKind, serverState bool) bool {
	action, ok := r.source.GetPendingState(ownerID, targetID, targetKind)
	if !ok {
		return serverState
	}
	return action.Active()
}
