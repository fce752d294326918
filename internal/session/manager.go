// Package session tracks the active role per conversation and decides when
// to switch it.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rcliao/persona-memory/internal/kv"
	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/role"
	"github.com/rcliao/persona-memory/internal/schedule"
)

const (
	ReasonInitial  = "Initial role selection"
	ReasonDetected = "Detected triggers for a different role"
	ReasonForced   = "Manually switched to a different role"
	ReasonManual   = "Manual switch by user"
)

// Picker chooses the best role for a query given the current one.
type Picker interface {
	BestRole(ctx context.Context, query, currentRoleID string) (roleID string, ok bool, err error)
}

// Decision is the outcome of DecideAndSwitch.
type Decision struct {
	RoleID     string `json:"role_id"`
	FromRoleID string `json:"from_role_id,omitempty"`
	Switched   bool   `json:"switched"`
	Reason     string `json:"reason,omitempty"`
	// Note is set when Switched and should lead the completion instructions.
	Note string `json:"transition_note,omitempty"`
}

// Options configures a Manager.
type Options struct {
	// IdleTimeout evicts sessions with no activity for this long. Zero keeps
	// sessions until closed.
	IdleTimeout time.Duration
	Now         func() time.Time
	Logger      *zap.Logger
}

// Manager owns session state.
type Manager struct {
	sessions kv.Store[model.Session]
	roles    role.Registry
	picker   Picker
	locks    *kv.KeyedMutex
	idle     time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewManager returns a manager over sessions.
func NewManager(sessions kv.Store[model.Session], roles role.Registry, picker Picker, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		sessions: sessions,
		roles:    roles,
		picker:   picker,
		locks:    kv.NewKeyedMutex(),
		idle:     opts.IdleTimeout,
		now:      opts.Now,
		log:      opts.Logger,
	}
}

// Create starts a session on initialRoleID. An empty id gets a generated one.
func (m *Manager) Create(ctx context.Context, id, initialRoleID string) (model.Session, error) {
	if _, err := m.roles.Get(ctx, initialRoleID); err != nil {
		return model.Session{}, err
	}
	if id == "" {
		id = uuid.NewString()
	}

	unlock := m.locks.Lock(id)
	defer unlock()

	if _, ok, err := m.sessions.Get(ctx, id); err != nil {
		return model.Session{}, err
	} else if ok {
		return model.Session{}, fmt.Errorf("session %q: %w", id, model.ErrConflict)
	}

	now := m.now().UTC()
	s := model.Session{
		ID:               id,
		CurrentRoleID:    initialRoleID,
		History:          []model.SwitchEvent{},
		LastSwitchReason: ReasonInitial,
		CreatedAt:        now,
		LastActivity:     now,
	}
	if err := m.sessions.Put(ctx, id, s); err != nil {
		return model.Session{}, err
	}
	m.log.Info("session created", zap.String("session", id), zap.String("role", initialRoleID))
	return s, nil
}

// Get returns a session.
func (m *Manager) Get(ctx context.Context, id string) (model.Session, error) {
	s, ok, err := m.sessions.Get(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if !ok {
		return model.Session{}, fmt.Errorf("session %q: %w", id, model.ErrNotFound)
	}
	return s, nil
}

// DecideAndSwitch picks the role for query, switching the session when the
// pick differs from the current role. A non-empty forceRoleID bypasses
// detection.
func (m *Manager) DecideAndSwitch(ctx context.Context, id, query, forceRoleID string) (Decision, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	s, err := m.Get(ctx, id)
	if err != nil {
		return Decision{}, err
	}

	target, reason, automatic := s.CurrentRoleID, ReasonDetected, true
	if forceRoleID != "" {
		if _, err := m.roles.Get(ctx, forceRoleID); err != nil {
			return Decision{}, err
		}
		target, reason, automatic = forceRoleID, ReasonForced, false
	} else {
		best, ok, err := m.picker.BestRole(ctx, query, s.CurrentRoleID)
		if err != nil {
			return Decision{}, fmt.Errorf("detect role: %w", err)
		}
		if ok {
			target = best
		}
	}

	d := Decision{RoleID: target}
	if target != s.CurrentRoleID {
		d.Switched = true
		d.FromRoleID = s.CurrentRoleID
		d.Reason = reason
		d.Note = m.note(ctx, s.CurrentRoleID, target)
		s = m.applySwitch(s, target, reason, query, automatic)
	} else {
		s.LastActivity = m.now().UTC()
	}

	if err := m.sessions.Put(ctx, id, s); err != nil {
		return Decision{}, err
	}
	return d, nil
}

// ManualSwitch moves the session to newRoleID. Switching to the current role
// changes nothing.
func (m *Manager) ManualSwitch(ctx context.Context, id, newRoleID, reason string) (model.Session, Decision, error) {
	if _, err := m.roles.Get(ctx, newRoleID); err != nil {
		return model.Session{}, Decision{}, err
	}
	if reason == "" {
		reason = ReasonManual
	}

	unlock := m.locks.Lock(id)
	defer unlock()

	s, err := m.Get(ctx, id)
	if err != nil {
		return model.Session{}, Decision{}, err
	}
	if s.CurrentRoleID == newRoleID {
		return s, Decision{RoleID: newRoleID}, nil
	}

	d := Decision{
		RoleID:     newRoleID,
		FromRoleID: s.CurrentRoleID,
		Switched:   true,
		Reason:     reason,
		Note:       m.note(ctx, s.CurrentRoleID, newRoleID),
	}
	s = m.applySwitch(s, newRoleID, reason, "", false)
	if err := m.sessions.Put(ctx, id, s); err != nil {
		return model.Session{}, Decision{}, err
	}
	return s, d, nil
}

// History returns the session's switch events, oldest first.
func (m *Manager) History(ctx context.Context, id string) ([]model.SwitchEvent, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.History, nil
}

// Close removes a session. It reports false when the session did not exist.
func (m *Manager) Close(ctx context.Context, id string) (bool, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	if _, ok, err := m.sessions.Get(ctx, id); err != nil || !ok {
		return false, err
	}
	if err := m.sessions.Delete(ctx, id); err != nil {
		return false, err
	}
	m.log.Info("session closed", zap.String("session", id))
	return true, nil
}

// List returns every session ordered by id.
func (m *Manager) List(ctx context.Context) ([]model.Session, error) {
	entries, err := m.sessions.Scan(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]model.Session, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out, nil
}

// EvictIdle closes sessions idle longer than the configured timeout and
// returns how many were removed.
func (m *Manager) EvictIdle(ctx context.Context) (int, error) {
	if m.idle <= 0 {
		return 0, nil
	}
	entries, err := m.sessions.Scan(ctx, "")
	if err != nil {
		return 0, err
	}
	cutoff := m.now().Add(-m.idle)
	evicted := 0
	for _, e := range entries {
		ok, err := m.evictIfIdle(ctx, e.Key, cutoff)
		if err != nil {
			return evicted, err
		}
		if ok {
			evicted++
		}
	}
	if evicted > 0 {
		m.log.Info("evicted idle sessions", zap.Int("count", evicted), zap.Duration("idle_timeout", m.idle))
	}
	return evicted, nil
}

// evictIfIdle rechecks activity under the session lock.
func (m *Manager) evictIfIdle(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	s, ok, err := m.sessions.Get(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	if !s.LastActivity.Before(cutoff) {
		return false, nil
	}
	return true, m.sessions.Delete(ctx, id)
}

// RunEvictor evicts idle sessions on the given cron schedule until ctx is
// done.
func (m *Manager) RunEvictor(ctx context.Context, expr string) error {
	return schedule.Run(ctx, expr, m.log, func(ctx context.Context) error {
		_, err := m.EvictIdle(ctx)
		return err
	})
}

func (m *Manager) applySwitch(s model.Session, to, reason, query string, automatic bool) model.Session {
	now := m.now().UTC()
	history := make([]model.SwitchEvent, len(s.History), len(s.History)+1)
	copy(history, s.History)
	s.History = append(history, model.SwitchEvent{
		Timestamp:  now,
		FromRoleID: s.CurrentRoleID,
		ToRoleID:   to,
		Reason:     reason,
		Query:      query,
		Automatic:  automatic,
	})
	m.log.Info("role switched",
		zap.String("session", s.ID), zap.String("from", s.CurrentRoleID),
		zap.String("to", to), zap.String("reason", reason))
	s.CurrentRoleID = to
	s.LastSwitchReason = reason
	s.LastActivity = now
	return s
}

// note builds the transition note, tolerating a role deleted mid-session.
func (m *Manager) note(ctx context.Context, fromID, toID string) string {
	from, err := m.roles.Get(ctx, fromID)
	if err != nil {
		from = model.Role{ID: fromID}
	}
	to, err := m.roles.Get(ctx, toID)
	if err != nil {
		to = model.Role{ID: toID}
	}
	return TransitionNote(from, to)
}
