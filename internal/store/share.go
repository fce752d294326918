package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/persona-memory/internal/model"
)

// Share adds targets to an existing memory's shared_with list and makes sure
// every role on the list holds a copy. Roles that already hold a live copy
// are left alone. The original keeps its expiry and new copies take the same
// one. Share copies cannot be shared again.
func (s *Store) Share(ctx context.Context, roleID, memoryID string, targets []string) (model.Memory, error) {
	m, err := s.extendShares(ctx, roleID, memoryID, targets)
	if err != nil {
		return model.Memory{}, err
	}

	added := 0
	for _, target := range m.SharedWith {
		ok, err := s.ensureCopy(ctx, target, m)
		if err != nil {
			return m, fmt.Errorf("share with %q: %w", target, err)
		}
		if ok {
			added++
		}
	}
	s.log.Debug("shared memory",
		zap.String("id", m.ID), zap.String("role", roleID), zap.Int("copies", added))
	return m, nil
}

// extendShares merges targets into the memory's shared_with list under the
// owner's lock and returns the updated memory.
func (s *Store) extendShares(ctx context.Context, roleID, memoryID string, targets []string) (model.Memory, error) {
	unlock := s.locks.Lock(roleID)
	defer unlock()

	mems, err := s.purgeLocked(ctx, roleID)
	if err != nil {
		return model.Memory{}, err
	}
	i := slices.IndexFunc(mems, func(m model.Memory) bool { return m.ID == memoryID })
	if i < 0 {
		return model.Memory{}, fmt.Errorf("memory %s/%s: %w", roleID, memoryID, model.ErrNotFound)
	}
	m := mems[i]
	if m.IsShareCopy() {
		return model.Memory{}, fmt.Errorf("memory %s is a share copy: %w", memoryID, model.ErrInvalidInput)
	}

	merged := uniqueExcept(append(slices.Clone(m.SharedWith), targets...), roleID)
	if len(merged) == len(m.SharedWith) {
		return m, nil
	}
	m.SharedWith = merged
	next := slices.Clone(mems)
	next[i] = m
	if err := s.partitions.Put(ctx, roleID, next); err != nil {
		return model.Memory{}, err
	}
	return m, nil
}

// ensureCopy appends a share copy of orig to target's partition unless one
// is already there. It reports whether a copy was added.
func (s *Store) ensureCopy(ctx context.Context, target string, orig model.Memory) (bool, error) {
	unlock := s.locks.Lock(target)
	defer unlock()

	mems, err := s.purgeLocked(ctx, target)
	if err != nil {
		return false, err
	}
	if slices.ContainsFunc(mems, func(m model.Memory) bool { return m.ParentMemoryID == orig.ID }) {
		return false, nil
	}
	return true, s.partitions.Put(ctx, target, append(slices.Clone(mems), shareCopy(orig, target)))
}

// shareCopy returns orig as held by target.
func shareCopy(orig model.Memory, target string) model.Memory {
	cp := orig
	cp.ID = ulid.Make().String()
	cp.RoleID = target
	cp.SharedWith = []string{}
	cp.ParentMemoryID = orig.ID
	if orig.ExpiresAt != nil {
		exp := *orig.ExpiresAt
		cp.ExpiresAt = &exp
	}
	return cp
}
