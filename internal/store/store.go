// Package store provides the role-partitioned memory store: TTL expiry,
// one-level sharing, inheritance and relevance ranking.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/rcliao/persona-memory/internal/kv"
	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/role"
)

// TTL holds the lifetime of each memory type. A zero duration never expires.
type TTL struct {
	Session   time.Duration `yaml:"session" env:"SESSION"`
	User      time.Duration `yaml:"user" env:"USER"`
	Knowledge time.Duration `yaml:"knowledge" env:"KNOWLEDGE"`
}

// DefaultTTL returns the standard lifetimes.
func DefaultTTL() TTL {
	return TTL{
		Session:   time.Hour,
		User:      30 * 24 * time.Hour,
		Knowledge: 365 * 24 * time.Hour,
	}
}

// For returns the lifetime for t.
func (t TTL) For(mt model.MemoryType) time.Duration {
	switch mt {
	case model.MemorySession:
		return t.Session
	case model.MemoryUser:
		return t.User
	case model.MemoryKnowledge:
		return t.Knowledge
	}
	return 0
}

// Options configures a Store.
type Options struct {
	TTL    TTL
	Now    func() time.Time
	Logger *zap.Logger
}

// PutParams holds parameters for storing a memory.
type PutParams struct {
	RoleID     string
	Content    string
	Type       model.MemoryType
	Importance model.Importance
	Embedding  []float32
	Tags       []string
	Category   string
	SharedWith []string
}

// ListParams holds parameters for reading a role's memories.
type ListParams struct {
	RoleID   string
	Type     model.MemoryType
	Category string
	Tags     []string
	// SkipShared drops share copies.
	SkipShared bool
	// SharedOnly keeps only the copies shared into this role's own
	// partition.
	SharedOnly bool
	// SkipInherited ignores the role's parent chain.
	SkipInherited bool
	// Role overrides the registry lookup for RoleID.
	Role *model.Role
}

// ClearParams selects memories to remove from one partition. Every set
// filter must match.
type ClearParams struct {
	RoleID     string
	Type       model.MemoryType
	Category   string
	Tags       []string
	SharedOnly bool
}

// Store keeps one partition of memories per role.
type Store struct {
	partitions kv.Store[[]model.Memory]
	roles      role.Registry
	locks      *kv.KeyedMutex
	ttl        TTL
	now        func() time.Time
	log        *zap.Logger
}

// New returns a store over partitions. roles may be nil, in which case no
// inheritance is resolved.
func New(partitions kv.Store[[]model.Memory], roles role.Registry, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		partitions: partitions,
		roles:      roles,
		locks:      kv.NewKeyedMutex(),
		ttl:        opts.TTL,
		now:        opts.Now,
		log:        opts.Logger,
	}
}

// Put stores a memory in its role's partition and materializes one copy per
// shared role. Copies never share further.
func (s *Store) Put(ctx context.Context, p PutParams) (model.Memory, error) {
	if strings.TrimSpace(p.RoleID) == "" {
		return model.Memory{}, fmt.Errorf("role id is required: %w", model.ErrInvalidInput)
	}
	if strings.TrimSpace(p.Content) == "" {
		return model.Memory{}, fmt.Errorf("content is required: %w", model.ErrInvalidInput)
	}
	if p.Type == "" {
		p.Type = model.MemorySession
	}
	if !model.ValidTypes[p.Type] {
		return model.Memory{}, fmt.Errorf("memory type %q: %w", p.Type, model.ErrInvalidInput)
	}
	if p.Importance == "" {
		p.Importance = model.ImportanceMedium
	}
	if !model.ValidImportance[p.Importance] {
		return model.Memory{}, fmt.Errorf("importance %q: %w", p.Importance, model.ErrInvalidInput)
	}

	now := s.now().UTC()
	m := model.Memory{
		ID:         ulid.Make().String(),
		RoleID:     p.RoleID,
		Content:    p.Content,
		Type:       p.Type,
		Importance: p.Importance,
		Embedding:  p.Embedding,
		CreatedAt:  now,
		Tags:       p.Tags,
		Category:   p.Category,
		SharedWith: uniqueExcept(p.SharedWith, p.RoleID),
	}
	if d := s.ttl.For(p.Type); d > 0 {
		exp := now.Add(d)
		m.ExpiresAt = &exp
	}

	if err := s.appendTo(ctx, m.RoleID, m); err != nil {
		return model.Memory{}, err
	}

	for _, target := range m.SharedWith {
		if err := s.appendTo(ctx, target, shareCopy(m, target)); err != nil {
			return m, fmt.Errorf("share with %q: %w", target, err)
		}
	}

	s.log.Debug("stored memory",
		zap.String("id", m.ID), zap.String("role", m.RoleID),
		zap.String("type", string(m.Type)), zap.Int("shared", len(m.SharedWith)))
	return m, nil
}

// Get returns one live memory from a role's partition.
func (s *Store) Get(ctx context.Context, roleID, id string) (model.Memory, error) {
	live, err := s.live(ctx, roleID)
	if err != nil {
		return model.Memory{}, err
	}
	for _, m := range live {
		if m.ID == id {
			return m, nil
		}
	}
	return model.Memory{}, fmt.Errorf("memory %s/%s: %w", roleID, id, model.ErrNotFound)
}

// Clear removes the memories of one partition that match p and returns how
// many were removed. A missing partition is not an error.
func (s *Store) Clear(ctx context.Context, p ClearParams) (int, error) {
	unlock := s.locks.Lock(p.RoleID)
	defer unlock()

	mems, ok, err := s.partitions.Get(ctx, p.RoleID)
	if err != nil || !ok {
		return 0, err
	}

	keep := make([]model.Memory, 0, len(mems))
	for _, m := range mems {
		if clearMatch(m, p) {
			continue
		}
		keep = append(keep, m)
	}
	removed := len(mems) - len(keep)
	if removed == 0 {
		return 0, nil
	}
	if len(keep) == 0 {
		err = s.partitions.Delete(ctx, p.RoleID)
	} else {
		err = s.partitions.Put(ctx, p.RoleID, keep)
	}
	if err != nil {
		return 0, err
	}
	s.log.Debug("cleared memories", zap.String("role", p.RoleID), zap.Int("removed", removed))
	return removed, nil
}

func clearMatch(m model.Memory, p ClearParams) bool {
	if p.Type != "" && m.Type != p.Type {
		return false
	}
	if p.Category != "" && m.Category != p.Category {
		return false
	}
	if len(p.Tags) > 0 && !m.HasAnyTag(p.Tags) {
		return false
	}
	if p.SharedOnly && !m.IsShareCopy() {
		return false
	}
	return true
}

// appendTo adds m to a partition, purging expired entries on the way.
func (s *Store) appendTo(ctx context.Context, roleID string, m model.Memory) error {
	unlock := s.locks.Lock(roleID)
	defer unlock()

	mems, _, err := s.partitions.Get(ctx, roleID)
	if err != nil {
		return err
	}
	now := s.now()
	next := make([]model.Memory, 0, len(mems)+1)
	for _, old := range mems {
		if !old.Expired(now) {
			next = append(next, old)
		}
	}
	next = append(next, m)
	return s.partitions.Put(ctx, roleID, next)
}

// live returns a partition's unexpired memories and writes back the purged
// set when anything expired.
func (s *Store) live(ctx context.Context, roleID string) ([]model.Memory, error) {
	unlock := s.locks.Lock(roleID)
	defer unlock()
	return s.purgeLocked(ctx, roleID)
}

func (s *Store) purgeLocked(ctx context.Context, roleID string) ([]model.Memory, error) {
	mems, ok, err := s.partitions.Get(ctx, roleID)
	if err != nil || !ok {
		return nil, err
	}
	now := s.now()
	keep := make([]model.Memory, 0, len(mems))
	for _, m := range mems {
		if !m.Expired(now) {
			keep = append(keep, m)
		}
	}
	if len(keep) == len(mems) {
		return mems, nil
	}
	if len(keep) == 0 {
		err = s.partitions.Delete(ctx, roleID)
	} else {
		err = s.partitions.Put(ctx, roleID, keep)
	}
	if err != nil {
		return nil, err
	}
	s.log.Debug("purged expired memories", zap.String("role", roleID), zap.Int("expired", len(mems)-len(keep)))
	return keep, nil
}

// lookupRole resolves a role, returning ok=false when it is unknown.
func (s *Store) lookupRole(ctx context.Context, id string) (model.Role, bool, error) {
	if s.roles == nil {
		return model.Role{}, false, nil
	}
	r, err := s.roles.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.Role{}, false, nil
	}
	if err != nil {
		return model.Role{}, false, err
	}
	return r, true, nil
}

func uniqueExcept(ids []string, self string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || id == self || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
