package store

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/rcliao/persona-memory/internal/model"
)

// List returns a role's live memories plus, when the role inherits, the
// parent chain's memories that the role's access level and categories allow.
// Filters apply to the union, which is de-duplicated by id.
func (s *Store) List(ctx context.Context, p ListParams) ([]model.Memory, error) {
	r := model.Role{ID: p.RoleID}
	if p.Role != nil {
		r = *p.Role
	} else {
		found, ok, err := s.lookupRole(ctx, p.RoleID)
		if err != nil {
			return nil, err
		}
		if ok {
			r = found
		}
	}

	mems, err := s.collect(ctx, r, p.SkipInherited || p.SharedOnly, map[string]bool{})
	if err != nil {
		return nil, err
	}
	return filter(mems, p), nil
}

// collect gathers a role's own memories and its inherited ones. visited
// guards against parent cycles.
func (s *Store) collect(ctx context.Context, r model.Role, skipInherited bool, visited map[string]bool) ([]model.Memory, error) {
	visited[r.ID] = true

	own, err := s.live(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(own)

	if skipInherited || !r.InheritMemories || r.ParentRoleID == "" || visited[r.ParentRoleID] {
		return out, nil
	}

	parent, ok, err := s.lookupRole(ctx, r.ParentRoleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Debug("parent role not found", zap.String("role", r.ID), zap.String("parent", r.ParentRoleID))
		return out, nil
	}

	inherited, err := s.collect(ctx, parent, false, visited)
	if err != nil {
		return nil, fmt.Errorf("inherit from %q: %w", parent.ID, err)
	}
	for _, m := range inherited {
		if canInherit(r, m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// canInherit applies the child's access level and category list to a
// parent memory.
func canInherit(child model.Role, m model.Memory) bool {
	if !child.MemoryAccessLevel.CanRead(m.Type) {
		return false
	}
	if len(child.MemoryCategories) > 0 && m.Category != "" && !slices.Contains(child.MemoryCategories, m.Category) {
		return false
	}
	return true
}

func filter(mems []model.Memory, p ListParams) []model.Memory {
	seen := make(map[string]bool, len(mems))
	out := make([]model.Memory, 0, len(mems))
	for _, m := range mems {
		if seen[m.ID] {
			continue
		}
		if p.Type != "" && m.Type != p.Type {
			continue
		}
		if p.Category != "" && m.Category != p.Category {
			continue
		}
		if len(p.Tags) > 0 && !m.HasAnyTag(p.Tags) {
			continue
		}
		if p.SkipShared && m.IsShareCopy() {
			continue
		}
		if p.SharedOnly && !m.IsShareCopy() {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	return out
}

// InheritanceChain walks from roleID up through parents while each role
// inherits. The first entry is the role itself. Cycles end the walk.
func (s *Store) InheritanceChain(ctx context.Context, roleID string) ([]model.Role, error) {
	r, ok, err := s.lookupRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("role %q: %w", roleID, model.ErrNotFound)
	}

	chain := []model.Role{r}
	visited := map[string]bool{r.ID: true}
	for r.InheritMemories && r.ParentRoleID != "" && !visited[r.ParentRoleID] {
		parent, ok, err := s.lookupRole(ctx, r.ParentRoleID)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		visited[parent.ID] = true
		chain = append(chain, parent)
		r = parent
	}
	return chain, nil
}

// RelatedRoles returns the roles connected to roleID by inheritance or
// sharing, sorted by id.
func (s *Store) RelatedRoles(ctx context.Context, roleID string) ([]string, error) {
	r, ok, err := s.lookupRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("role %q: %w", roleID, model.ErrNotFound)
	}

	related := map[string]bool{}
	if r.InheritMemories && r.ParentRoleID != "" {
		related[r.ParentRoleID] = true
	}

	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, other := range roles {
		if other.ParentRoleID == roleID && other.InheritMemories {
			related[other.ID] = true
		}
	}

	keys, err := s.partitionKeys(ctx)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		mems, err := s.live(ctx, key)
		if err != nil {
			return nil, err
		}
		for _, m := range mems {
			if key == roleID {
				for _, id := range m.SharedWith {
					related[id] = true
				}
			} else if slices.Contains(m.SharedWith, roleID) {
				related[key] = true
			}
		}
	}

	delete(related, roleID)
	out := make([]string, 0, len(related))
	for id := range related {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}
