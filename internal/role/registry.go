// Package role holds persona definitions: the built-in advisors, roles loaded
// from a file, and user-created roles persisted in a kv bucket.
package role

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/persona-memory/internal/kv"
	"github.com/rcliao/persona-memory/internal/model"
)

// Registry is the read side of the role catalog.
type Registry interface {
	Get(ctx context.Context, id string) (model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
}

// Catalog is a Registry with read-only seed roles plus mutable custom roles.
type Catalog struct {
	seed   map[string]model.Role
	custom kv.Store[model.Role]
}

// NewCatalog returns a catalog over custom. Seed roles are marked as
// defaults and cannot be updated or deleted.
func NewCatalog(custom kv.Store[model.Role], seed ...model.Role) *Catalog {
	c := &Catalog{seed: make(map[string]model.Role, len(seed)), custom: custom}
	for _, r := range seed {
		r.IsDefault = true
		c.seed[r.ID] = normalize(r)
	}
	return c
}

func (c *Catalog) Get(ctx context.Context, id string) (model.Role, error) {
	if r, ok := c.seed[id]; ok {
		return r, nil
	}
	r, ok, err := c.custom.Get(ctx, id)
	if err != nil {
		return model.Role{}, err
	}
	if !ok {
		return model.Role{}, fmt.Errorf("role %q: %w", id, model.ErrNotFound)
	}
	return r, nil
}

// List returns every role ordered by id.
func (c *Catalog) List(ctx context.Context) ([]model.Role, error) {
	entries, err := c.custom.Scan(ctx, "")
	if err != nil {
		return nil, err
	}
	roles := make([]model.Role, 0, len(c.seed)+len(entries))
	for _, r := range c.seed {
		roles = append(roles, r)
	}
	for _, e := range entries {
		if _, shadowed := c.seed[e.Key]; shadowed {
			continue
		}
		roles = append(roles, e.Value)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

// Create adds a new custom role.
func (c *Catalog) Create(ctx context.Context, r model.Role) (model.Role, error) {
	r = normalize(r)
	if err := Validate(r); err != nil {
		return model.Role{}, err
	}
	if _, err := c.Get(ctx, r.ID); err == nil {
		return model.Role{}, fmt.Errorf("role %q: %w", r.ID, model.ErrConflict)
	}
	r.IsDefault = false
	if err := c.custom.Put(ctx, r.ID, r); err != nil {
		return model.Role{}, err
	}
	return r, nil
}

// Update replaces a custom role.
func (c *Catalog) Update(ctx context.Context, r model.Role) (model.Role, error) {
	r = normalize(r)
	if err := Validate(r); err != nil {
		return model.Role{}, err
	}
	if _, ok := c.seed[r.ID]; ok {
		return model.Role{}, fmt.Errorf("role %q: %w", r.ID, model.ErrDefaultRole)
	}
	if _, ok, err := c.custom.Get(ctx, r.ID); err != nil {
		return model.Role{}, err
	} else if !ok {
		return model.Role{}, fmt.Errorf("role %q: %w", r.ID, model.ErrNotFound)
	}
	r.IsDefault = false
	if err := c.custom.Put(ctx, r.ID, r); err != nil {
		return model.Role{}, err
	}
	return r, nil
}

// Delete removes a custom role.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if _, ok := c.seed[id]; ok {
		return fmt.Errorf("role %q: %w", id, model.ErrDefaultRole)
	}
	if _, ok, err := c.custom.Get(ctx, id); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("role %q: %w", id, model.ErrNotFound)
	}
	return c.custom.Delete(ctx, id)
}

// Validate checks the fields a role needs to be registered. An empty access
// level is allowed and defaults to standard on save.
func Validate(r model.Role) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("role id is required: %w", model.ErrInvalidInput)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("role %q: name is required: %w", r.ID, model.ErrInvalidInput)
	}
	if r.Tone != "" {
		if _, ok := Tones[r.Tone]; !ok {
			return fmt.Errorf("role %q: unknown tone %q: %w", r.ID, r.Tone, model.ErrInvalidInput)
		}
	}
	if r.MemoryAccessLevel != "" && !model.ValidAccessLevels[r.MemoryAccessLevel] {
		return fmt.Errorf("role %q: invalid memory access level %q: %w", r.ID, r.MemoryAccessLevel, model.ErrInvalidInput)
	}
	if r.ParentRoleID == r.ID {
		return fmt.Errorf("role %q: cannot be its own parent: %w", r.ID, model.ErrInvalidInput)
	}
	return nil
}

func normalize(r model.Role) model.Role {
	if r.MemoryAccessLevel == "" {
		r.MemoryAccessLevel = model.AccessStandard
	}
	return r
}
