package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/rcliao/persona-memory/internal/model"
)

// ExportAll returns all live memories, optionally limited to one role.
func (s *Store) ExportAll(ctx context.Context, roleID string) ([]model.Memory, error) {
	keys := []string{roleID}
	if roleID == "" {
		var err error
		keys, err = s.partitionKeys(ctx)
		if err != nil {
			return nil, err
		}
	}

	var memories []model.Memory
	for _, key := range keys {
		mems, err := s.live(ctx, key)
		if err != nil {
			return nil, err
		}
		memories = append(memories, mems...)
	}
	sort.SliceStable(memories, func(i, j int) bool {
		if memories[i].RoleID != memories[j].RoleID {
			return memories[i].RoleID < memories[j].RoleID
		}
		return memories[i].CreatedAt.Before(memories[j].CreatedAt)
	})
	return memories, nil
}

// Import stores exported memories as they are, keeping ids, timestamps and
// share links. Memories whose id already exists in the partition, and
// expired ones, are skipped. Returns the number imported.
func (s *Store) Import(ctx context.Context, memories []model.Memory) (int, error) {
	byRole := map[string][]model.Memory{}
	for _, m := range memories {
		if m.ID == "" || m.RoleID == "" {
			return 0, fmt.Errorf("memory without id or role: %w", model.ErrInvalidInput)
		}
		byRole[m.RoleID] = append(byRole[m.RoleID], m)
	}

	imported := 0
	for roleID, incoming := range byRole {
		n, err := s.importPartition(ctx, roleID, incoming)
		imported += n
		if err != nil {
			return imported, err
		}
	}
	return imported, nil
}

func (s *Store) importPartition(ctx context.Context, roleID string, incoming []model.Memory) (int, error) {
	unlock := s.locks.Lock(roleID)
	defer unlock()

	existing, err := s.purgeLocked(ctx, roleID)
	if err != nil {
		return 0, err
	}
	ids := make(map[string]bool, len(existing))
	for _, m := range existing {
		ids[m.ID] = true
	}

	now := s.now()
	next := append([]model.Memory(nil), existing...)
	for _, m := range incoming {
		if ids[m.ID] || m.Expired(now) {
			continue
		}
		ids[m.ID] = true
		next = append(next, m)
	}
	added := len(next) - len(existing)
	if added == 0 {
		return 0, nil
	}
	return added, s.partitions.Put(ctx, roleID, next)
}
