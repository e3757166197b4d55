package interactions

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/clipsync/internal/client/client"
	"github.com/dmitrijs2005/clipsync/internal/client/models"
	"github.com/dmitrijs2005/clipsync/internal/common"
)

// target returns the table and the row identifying the interaction remotely.
func target(qi *models.QueuedInteraction) (string, map[string]any, error) {
	switch qi.Kind {
	case models.InteractionLike:
		return "likes", map[string]any{
			"user_id":     qi.OwnerID,
			"target_id":   qi.TargetID,
			"target_kind": string(qi.TargetKind),
		}, nil
	case models.InteractionFollow:
		return "follows", map[string]any{
			"follower_id":  qi.OwnerID,
			"following_id": qi.TargetID,
		}, nil
	default:
		return "", nil, fmt.Errorf("%w: unknown interaction kind %q", common.ErrValidation, qi.Kind)
	}
}

// Apply performs the remote mutation of qi. A duplicate insert or a delete
// that matched nothing means the remote already is in the desired state and
// is reported as success.
func Apply(ctx context.Context, api client.RowWriter, qi *models.QueuedInteraction) error {
	table, row, err := target(qi)
	if err != nil {
		return err
	}

	switch qi.Action {
	case models.ActionAdd:
		err = api.InsertRow(ctx, table, row)
	case models.ActionRemove:
		err = api.DeleteRows(ctx, table, row)
	default:
		return fmt.Errorf("%w: unknown action %q", common.ErrValidation, qi.Action)
	}

	if err != nil && client.Classify(err) != client.ConflictAlready {
		return fmt.Errorf("%s %s: %w", qi.Action, table, err)
	}
	return nil
}
