// Package advisor runs the per-query loop: pick the role, gather its
// memories, complete, and write the exchange back.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/persona-memory/internal/digest"
	"github.com/rcliao/persona-memory/internal/embedding"
	"github.com/rcliao/persona-memory/internal/kv"
	"github.com/rcliao/persona-memory/internal/llm"
	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/role"
	"github.com/rcliao/persona-memory/internal/session"
	"github.com/rcliao/persona-memory/internal/store"
	"github.com/rcliao/persona-memory/internal/trigger"
)

// Deps are the components a Service coordinates. Embedder may be nil.
type Deps struct {
	Roles     *role.Catalog
	Detector  *trigger.Detector
	Sessions  *session.Manager
	Memories  *store.Store
	Triggers  kv.Store[[]string]
	Embedder  embedding.Embedder
	Completer llm.Completer
}

// Options tunes prompt assembly.
type Options struct {
	RelevantLimit int
	ContextLimit  int
	Digest        digest.Options
	MaxTokens     int
	Logger        *zap.Logger
}

// DefaultOptions returns the standard prompt limits.
func DefaultOptions() Options {
	return Options{
		RelevantLimit: 5,
		ContextLimit:  10,
		Digest:        digest.DefaultOptions(),
		MaxTokens:     llm.DefaultMaxTokens,
	}
}

// Service is the persona advisor.
type Service struct {
	Deps
	opts  Options
	locks *kv.KeyedMutex
	log   *zap.Logger
}

// New returns a Service. Call Init before serving queries.
func New(deps Deps, opts Options) *Service {
	def := DefaultOptions()
	if opts.RelevantLimit <= 0 {
		opts.RelevantLimit = def.RelevantLimit
	}
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = def.ContextLimit
	}
	if opts.Digest.Budget <= 0 {
		opts.Digest = def.Digest
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if deps.Triggers == nil {
		deps.Triggers = kv.NewMap[[]string]()
	}
	return &Service{Deps: deps, opts: opts, locks: kv.NewKeyedMutex(), log: opts.Logger}
}

// Init loads extra roles and registers triggers for every known role,
// including persisted custom patterns.
func (s *Service) Init(ctx context.Context, fileRoles []role.FileRole) error {
	if err := s.LoadRoles(ctx, fileRoles); err != nil {
		return err
	}

	roles, err := s.Roles.List(ctx)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if err := s.register(ctx, r); err != nil {
			return err
		}
	}
	s.log.Debug("advisor ready", zap.Int("roles", len(roles)))
	return nil
}

// LoadRoles creates new roles and updates existing custom ones from file
// definitions. Every definition is checked before the first write, so a
// rejected batch changes nothing. A definition that collides with a default
// role fails with model.ErrDefaultRole.
func (s *Service) LoadRoles(ctx context.Context, defs []role.FileRole) error {
	exists := make([]bool, len(defs))
	seen := make(map[string]bool, len(defs))
	for i, fr := range defs {
		if err := role.Validate(fr.Role); err != nil {
			return fmt.Errorf("load role %q: %w", fr.ID, err)
		}
		if seen[fr.ID] {
			return fmt.Errorf("role %q defined twice: %w", fr.ID, model.ErrConflict)
		}
		seen[fr.ID] = true
		if err := validatePatterns(fr.Triggers); err != nil {
			return fmt.Errorf("load role %q: %w", fr.ID, err)
		}
		existing, err := s.Roles.Get(ctx, fr.ID)
		switch {
		case errors.Is(err, model.ErrNotFound):
		case err != nil:
			return err
		case existing.IsDefault:
			return fmt.Errorf("load role %q: %w", fr.ID, model.ErrDefaultRole)
		default:
			exists[i] = true
		}
	}

	for i, fr := range defs {
		var err error
		if exists[i] {
			_, err = s.UpdateRole(ctx, fr.Role, fr.Triggers...)
		} else {
			_, err = s.CreateRole(ctx, fr.Role, fr.Triggers)
		}
		if err != nil {
			return fmt.Errorf("load role %q: %w", fr.ID, err)
		}
	}
	return nil
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if err := trigger.ValidatePattern(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) mergeCustom(ctx context.Context, roleID string, patterns []string) error {
	unlock := s.locks.Lock(roleID)
	defer unlock()

	current, _, err := s.Triggers.Get(ctx, roleID)
	if err != nil {
		return err
	}
	for _, p := range patterns {
		if !slices.Contains(current, p) {
			current = append(current, p)
		}
	}
	return s.Triggers.Put(ctx, roleID, current)
}

// register indexes a role's triggers. Persisted custom patterns that no
// longer compile are skipped with a warning so one bad entry cannot block
// startup.
func (s *Service) register(ctx context.Context, r model.Role) error {
	stored, _, err := s.Triggers.Get(ctx, r.ID)
	if err != nil {
		return err
	}
	custom := make([]string, 0, len(stored))
	for _, p := range stored {
		if err := trigger.ValidatePattern(p); err != nil {
			s.log.Warn("skipping stored trigger", zap.String("role", r.ID), zap.Error(err))
			continue
		}
		custom = append(custom, p)
	}
	if err := s.Detector.Register(ctx, r, custom); err != nil {
		return fmt.Errorf("register triggers for %q: %w", r.ID, err)
	}
	return nil
}

// CreateRole adds a custom role with optional custom trigger patterns.
func (s *Service) CreateRole(ctx context.Context, r model.Role, patterns []string) (model.Role, error) {
	if err := validatePatterns(patterns); err != nil {
		return model.Role{}, err
	}
	created, err := s.Roles.Create(ctx, r)
	if err != nil {
		return model.Role{}, err
	}
	if len(patterns) > 0 {
		if err := s.mergeCustom(ctx, created.ID, patterns); err != nil {
			return created, err
		}
	}
	return created, s.register(ctx, created)
}

// UpdateRole replaces a custom role and rebuilds its domain and name
// triggers. Existing custom patterns are kept and new ones are appended.
func (s *Service) UpdateRole(ctx context.Context, r model.Role, patterns ...string) (model.Role, error) {
	if err := validatePatterns(patterns); err != nil {
		return model.Role{}, err
	}
	updated, err := s.Roles.Update(ctx, r)
	if err != nil {
		return model.Role{}, err
	}
	if len(patterns) > 0 {
		if err := s.mergeCustom(ctx, updated.ID, patterns); err != nil {
			return updated, err
		}
	}
	return updated, s.register(ctx, updated)
}

// DeleteRole removes a custom role with its triggers and memories.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	if err := s.Roles.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.Detector.Unregister(ctx, id); err != nil {
		return err
	}
	if err := s.Triggers.Delete(ctx, id); err != nil {
		return err
	}
	n, err := s.Memories.Clear(ctx, store.ClearParams{RoleID: id})
	if err != nil {
		return fmt.Errorf("clear memories of %q: %w", id, err)
	}
	s.log.Info("role deleted", zap.String("role", id), zap.Int("memories", n))
	return nil
}

// AddTrigger appends a custom trigger to a role and persists it.
func (s *Service) AddTrigger(ctx context.Context, roleID, pattern string) (model.Trigger, error) {
	if _, err := s.Roles.Get(ctx, roleID); err != nil {
		return model.Trigger{}, err
	}
	t, err := s.Detector.AddCustom(ctx, roleID, pattern)
	if err != nil {
		return model.Trigger{}, err
	}
	return t, s.persistCustom(ctx, roleID)
}

// RemoveTrigger drops a role's custom triggers with pattern. It reports
// whether any were removed.
func (s *Service) RemoveTrigger(ctx context.Context, roleID, pattern string) (bool, error) {
	if _, err := s.Roles.Get(ctx, roleID); err != nil {
		return false, err
	}
	removed, err := s.Detector.RemoveCustom(ctx, roleID, pattern)
	if err != nil || !removed {
		return removed, err
	}
	return true, s.persistCustom(ctx, roleID)
}

func (s *Service) persistCustom(ctx context.Context, roleID string) error {
	unlock := s.locks.Lock(roleID)
	defer unlock()

	patterns, err := s.Detector.CustomPatterns(ctx, roleID)
	if err != nil {
		return err
	}
	if len(patterns) == 0 {
		return s.Triggers.Delete(ctx, roleID)
	}
	return s.Triggers.Put(ctx, roleID, patterns)
}

// normalizeQuery trims q and rejects empty input.
func normalizeQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", fmt.Errorf("query is required: %w", model.ErrInvalidInput)
	}
	return q, nil
}
