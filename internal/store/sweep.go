package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rcliao/persona-memory/internal/schedule"
)

// Sweep purges expired memories from every partition and returns how many
// were removed.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	keys, err := s.partitionKeys(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		n, err := s.sweepPartition(ctx, key)
		if err != nil {
			return removed, fmt.Errorf("sweep %q: %w", key, err)
		}
		removed += n
	}
	if removed > 0 {
		s.log.Info("swept expired memories", zap.Int("removed", removed), zap.Int("partitions", len(keys)))
	}
	return removed, nil
}

func (s *Store) sweepPartition(ctx context.Context, roleID string) (int, error) {
	unlock := s.locks.Lock(roleID)
	defer unlock()

	before, _, err := s.partitions.Get(ctx, roleID)
	if err != nil {
		return 0, err
	}
	after, err := s.purgeLocked(ctx, roleID)
	if err != nil {
		return 0, err
	}
	return len(before) - len(after), nil
}

// RunSweeper sweeps on the given cron schedule until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, expr string) error {
	return schedule.Run(ctx, expr, s.log, func(ctx context.Context) error {
		_, err := s.Sweep(ctx)
		return err
	})
}
