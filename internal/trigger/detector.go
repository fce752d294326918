// Package trigger scores roles against a query using weighted regular
// expression triggers and picks the best role with hysteresis.
package trigger

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/persona-memory/internal/kv"
	"github.com/rcliao/persona-memory/internal/model"
)

const (
	PriorityDomain      = 1
	PriorityName        = 2
	PriorityFirstCustom = 3
)

// Options tunes scoring.
type Options struct {
	// DiversityBonus is added once per distinct matched priority tier.
	DiversityBonus float64
	// HysteresisRatio keeps the current role while its score is at least
	// this fraction of the top score.
	HysteresisRatio float64
	// Domains maps a lowercase domain name to its keyword groups.
	Domains map[string][]string
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		DiversityBonus:  2,
		HysteresisRatio: 0.8,
		Domains:         DefaultDomainPatterns,
	}
}

// compiled is a trigger with its ready-to-run expression.
type compiled struct {
	model.Trigger
	re *regexp.Regexp
}

// Match is one trigger that fired for a role.
type Match struct {
	Pattern  string              `json:"pattern"`
	Priority int                 `json:"priority"`
	Source   model.TriggerSource `json:"source"`
	Domain   string              `json:"domain,omitempty"`
}

// Score is a role's final trigger score for a query.
type Score struct {
	RoleID  string  `json:"role_id"`
	Raw     float64 `json:"raw"`
	Tiers   int     `json:"tiers"`
	Score   float64 `json:"score"`
	Matches []Match `json:"matches"`
}

// Detector holds the trigger index and scores queries against it.
type Detector struct {
	index kv.Store[[]compiled]
	locks *kv.KeyedMutex
	opts  Options
	log   *zap.Logger
}

// New returns a detector with an empty in-memory index.
func New(opts Options, log *zap.Logger) *Detector {
	if opts.Domains == nil {
		opts.Domains = DefaultDomainPatterns
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{
		index: kv.NewMap[[]compiled](),
		locks: kv.NewKeyedMutex(),
		opts:  opts,
		log:   log,
	}
}

// Register replaces the role's triggers with its domain triggers, a name
// trigger, and one trigger per custom pattern in order. If any custom
// pattern does not compile, nothing changes and the error wraps
// model.ErrInvalidPattern.
func (d *Detector) Register(ctx context.Context, r model.Role, custom []string) error {
	var set []compiled

	for _, domain := range r.Domains {
		key := strings.ToLower(domain)
		groups, ok := d.opts.Domains[key]
		if !ok || len(groups) == 0 {
			continue
		}
		p := domainPattern(groups)
		re, err := compile(p)
		if err != nil {
			return fmt.Errorf("domain %q: %v: %w", key, err, model.ErrInvalidPattern)
		}
		set = append(set, compiled{
			Trigger: model.Trigger{RoleID: r.ID, Pattern: p, Priority: PriorityDomain, Source: model.SourceDomain, Domain: key},
			re:      re,
		})
	}

	if strings.TrimSpace(r.Name) != "" {
		p := namePattern(r.Name)
		re, err := compile(p)
		if err != nil {
			return fmt.Errorf("name %q: %v: %w", r.Name, err, model.ErrInvalidPattern)
		}
		set = append(set, compiled{
			Trigger: model.Trigger{RoleID: r.ID, Pattern: p, Priority: PriorityName, Source: model.SourceName},
			re:      re,
		})
	}

	for i, p := range custom {
		re, err := compile(p)
		if err != nil {
			return fmt.Errorf("custom pattern %q: %v: %w", p, err, model.ErrInvalidPattern)
		}
		set = append(set, compiled{
			Trigger: model.Trigger{RoleID: r.ID, Pattern: p, Priority: PriorityFirstCustom + i, Source: model.SourceCustom},
			re:      re,
		})
	}

	unlock := d.locks.Lock(r.ID)
	defer unlock()
	if err := d.index.Put(ctx, r.ID, set); err != nil {
		return err
	}
	d.log.Debug("registered triggers", zap.String("role", r.ID), zap.Int("count", len(set)))
	return nil
}

// Unregister drops every trigger for roleID.
func (d *Detector) Unregister(ctx context.Context, roleID string) error {
	unlock := d.locks.Lock(roleID)
	defer unlock()
	return d.index.Delete(ctx, roleID)
}

// AddCustom appends a custom trigger above every existing custom priority.
func (d *Detector) AddCustom(ctx context.Context, roleID, pattern string) (model.Trigger, error) {
	if err := ValidatePattern(pattern); err != nil {
		return model.Trigger{}, err
	}
	re, _ := compile(pattern)

	unlock := d.locks.Lock(roleID)
	defer unlock()

	set, ok, err := d.index.Get(ctx, roleID)
	if err != nil {
		return model.Trigger{}, err
	}
	if !ok {
		return model.Trigger{}, fmt.Errorf("triggers for role %q: %w", roleID, model.ErrNotFound)
	}

	prio := PriorityFirstCustom
	for _, c := range set {
		if c.Source == model.SourceCustom && c.Priority >= prio {
			prio = c.Priority + 1
		}
	}
	t := model.Trigger{RoleID: roleID, Pattern: pattern, Priority: prio, Source: model.SourceCustom}

	next := make([]compiled, len(set), len(set)+1)
	copy(next, set)
	next = append(next, compiled{Trigger: t, re: re})
	if err := d.index.Put(ctx, roleID, next); err != nil {
		return model.Trigger{}, err
	}
	return t, nil
}

// RemoveCustom removes custom triggers with the given pattern. It reports
// whether anything was removed.
func (d *Detector) RemoveCustom(ctx context.Context, roleID, pattern string) (bool, error) {
	unlock := d.locks.Lock(roleID)
	defer unlock()

	set, ok, err := d.index.Get(ctx, roleID)
	if err != nil || !ok {
		return false, err
	}
	next := make([]compiled, 0, len(set))
	for _, c := range set {
		if c.Source == model.SourceCustom && c.Pattern == pattern {
			continue
		}
		next = append(next, c)
	}
	if len(next) == len(set) {
		return false, nil
	}
	return true, d.index.Put(ctx, roleID, next)
}

// Triggers returns the triggers registered for roleID.
func (d *Detector) Triggers(ctx context.Context, roleID string) ([]model.Trigger, error) {
	set, ok, err := d.index.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("triggers for role %q: %w", roleID, model.ErrNotFound)
	}
	out := make([]model.Trigger, len(set))
	for i, c := range set {
		out[i] = c.Trigger
	}
	return out, nil
}

// CustomPatterns returns the role's custom patterns in priority order.
func (d *Detector) CustomPatterns(ctx context.Context, roleID string) ([]string, error) {
	ts, err := d.Triggers(ctx, roleID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, t := range ts {
		if t.Source == model.SourceCustom {
			out = append(out, t.Pattern)
		}
	}
	return out, nil
}

// Detect scores every registered role against query. Roles scoring zero
// are dropped. Results are ordered by score descending, then role id.
func (d *Detector) Detect(ctx context.Context, query string) ([]Score, error) {
	entries, err := d.index.Scan(ctx, "")
	if err != nil {
		return nil, err
	}

	var scores []Score
	for _, e := range entries {
		s := Score{RoleID: e.Key}
		tiers := make(map[int]struct{})
		for _, c := range e.Value {
			if !c.re.MatchString(query) {
				continue
			}
			s.Raw += float64(c.Priority)
			tiers[c.Priority] = struct{}{}
			s.Matches = append(s.Matches, Match{Pattern: c.Pattern, Priority: c.Priority, Source: c.Source, Domain: c.Domain})
		}
		s.Tiers = len(tiers)
		s.Score = s.Raw + d.opts.DiversityBonus*float64(s.Tiers)
		if s.Score > 0 {
			scores = append(scores, s)
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].RoleID < scores[j].RoleID
	})
	return scores, nil
}

// BestRole returns the role that should handle query given the current
// role. ok is false when no trigger matched. The current role is kept while
// its score is within the hysteresis ratio of the top score.
func (d *Detector) BestRole(ctx context.Context, query, currentRoleID string) (roleID string, ok bool, err error) {
	scores, err := d.Detect(ctx, query)
	if err != nil {
		return "", false, err
	}
	return d.Pick(scores, currentRoleID)
}

// Pick applies hysteresis to precomputed scores.
func (d *Detector) Pick(scores []Score, currentRoleID string) (string, bool, error) {
	if len(scores) == 0 {
		return "", false, nil
	}
	top := scores[0]
	var current float64
	for _, s := range scores {
		if s.RoleID == currentRoleID {
			current = s.Score
			break
		}
	}
	if currentRoleID != "" && current >= d.opts.HysteresisRatio*top.Score {
		d.log.Debug("keeping current role",
			zap.String("current", currentRoleID), zap.Float64("current_score", current),
			zap.String("top", top.RoleID), zap.Float64("top_score", top.Score))
		return currentRoleID, true, nil
	}
	return top.RoleID, true, nil
}
