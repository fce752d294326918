package store

import (
	"context"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/rcliao/persona-memory/internal/embedding"
	"github.com/rcliao/persona-memory/internal/kv"
	"github.com/rcliao/persona-memory/internal/model"
)

const (
	recencyWindow = 30 * 24 * time.Hour
	recencyFloor  = 0.8
	recencyDecay  = 0.2
	tagBoost      = 0.2
)

// RelevantParams holds parameters for relevance ranking.
type RelevantParams struct {
	RoleID    string
	Embedding []float32
	Limit     int
	Category  string
	Tags      []string
	// SkipShared drops share copies.
	SkipShared bool
	// CrossRole ranks memories from every role.
	CrossRole bool
	// RelatedRoleIDs ranks memories from these roles instead of RoleID.
	RelatedRoleIDs []string
}

// Ranked is a memory with its relevance score.
type Ranked struct {
	model.Memory
	Score float64 `json:"score"`
}

// Relevant ranks candidate memories against a query embedding. An empty
// embedding yields no results.
func (s *Store) Relevant(ctx context.Context, p RelevantParams) ([]Ranked, error) {
	if len(p.Embedding) == 0 {
		return nil, nil
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 5
	}

	candidates, err := s.candidateRoles(ctx, p)
	if err != nil {
		return nil, err
	}

	now := s.now()
	seen := map[string]bool{}
	var ranked []Ranked
	for _, roleID := range candidates {
		mems, err := s.List(ctx, ListParams{
			RoleID:     roleID,
			Category:   p.Category,
			Tags:       p.Tags,
			SkipShared: p.SkipShared,
		})
		if err != nil {
			return nil, err
		}
		for _, m := range mems {
			if len(m.Embedding) == 0 || seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			ranked = append(ranked, Ranked{Memory: m, Score: Score(m, p.Embedding, p.Tags, now)})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *Store) candidateRoles(ctx context.Context, p RelevantParams) ([]string, error) {
	switch {
	case p.CrossRole:
		ids, err := s.partitionKeys(ctx)
		if err != nil {
			return nil, err
		}
		if s.roles != nil {
			roles, err := s.roles.List(ctx)
			if err != nil {
				return nil, err
			}
			for _, r := range roles {
				if !slices.Contains(ids, r.ID) {
					ids = append(ids, r.ID)
				}
			}
		}
		slices.Sort(ids)
		return ids, nil
	case len(p.RelatedRoleIDs) > 0:
		return p.RelatedRoleIDs, nil
	default:
		return []string{p.RoleID}, nil
	}
}

func (s *Store) partitionKeys(ctx context.Context) ([]string, error) {
	return kv.Keys(ctx, s.partitions, "")
}

// Score combines cosine similarity with importance, recency and tag
// overlap adjustments.
func Score(m model.Memory, query []float32, tags []string, now time.Time) float64 {
	sim := embedding.CosineSimilarity(query, m.Embedding)
	return sim * ImportanceWeight(m.Importance) * RecencyFactor(now.Sub(m.CreatedAt)) * TagFactor(m.Tags, tags)
}

// ImportanceWeight maps importance to a score multiplier.
func ImportanceWeight(i model.Importance) float64 {
	switch i {
	case model.ImportanceLow:
		return 0.8
	case model.ImportanceHigh:
		return 1.2
	default:
		return 1.0
	}
}

// RecencyFactor decays linearly from 1.0 to 0.8 over thirty days and stays
// at 0.8 after that.
func RecencyFactor(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	f := 1 - (age.Seconds()/recencyWindow.Seconds())*recencyDecay
	return math.Max(recencyFloor, f)
}

// TagFactor boosts a memory by up to 20% for overlap with the requested tags.
func TagFactor(have, requested []string) float64 {
	if len(requested) == 0 || len(have) == 0 {
		return 1.0
	}
	matches := 0
	for _, t := range requested {
		if slices.Contains(have, t) {
			matches++
		}
	}
	return 1 + (float64(matches)/float64(len(requested)))*tagBoost
}
