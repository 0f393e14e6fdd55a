package backlog

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/kanban/pkg/logger"
)

// Groom repairs doing entries whose lease is gone. Finished tasks are released,
// unfinished ones are requeued for redelivery, and leased ones are left alone.
// It returns the ids whose repair reported success.
//
// Groom must be called periodically by the owner of the backlog; see Groomer.
// A lease that lapses while its worker is still busy makes the task eligible
// again, so handlers must tolerate running twice.
func (b *Backlog) Groom(ctx context.Context) ([]int64, error) {
	values, err := b.store.Range(ctx, b.keys.Doing())
	if err != nil {
		return nil, storeErr(err)
	}

	var groomed []int64
	seen := make(map[int64]struct{}, len(values))

	for _, v := range values {
		id, err := parseID(v)
		if err != nil {
			b.logger.WarnContext(ctx, "skipping doing entry that is not a task id",
				logger.Namespace(b.keys.Namespace),
				slog.String("value", v))
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		ok, err := b.groomOne(ctx, id)
		if err != nil {
			return groomed, err
		}
		if ok {
			groomed = append(groomed, id)
		}
	}

	if len(groomed) > 0 {
		b.logger.InfoContext(ctx, "groomed abandoned tasks",
			logger.Namespace(b.keys.Namespace),
			logger.Count(len(groomed)),
			logger.TaskIDs(groomed))
	}

	return groomed, nil
}

func (b *Backlog) groomOne(ctx context.Context, id int64) (bool, error) {
	claimed, err := b.IsClaimed(ctx, id)
	if err != nil || claimed {
		return false, err
	}

	done, err := b.IsDone(ctx, id)
	if err != nil {
		return false, err
	}

	if done {
		return b.Release(ctx, id)
	}
	return b.Requeue(ctx, id)
}
