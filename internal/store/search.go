package store

import (
	"context"
	"sort"
	"strings"

	"github.com/rcliao/persona-memory/internal/model"
)

// SearchParams holds parameters for a text search.
type SearchParams struct {
	RoleID string
	Query  string
	Type   model.MemoryType
	Limit  int
}

// Search finds a role's memories, inherited ones included, whose content
// contains the query, case-insensitively. Newest first. It needs no
// embeddings, so callers use it when ranking is unavailable.
func (s *Store) Search(ctx context.Context, p SearchParams) ([]model.Memory, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	mems, err := s.List(ctx, ListParams{RoleID: p.RoleID, Type: p.Type})
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(p.Query))
	var results []model.Memory
	for _, m := range mems {
		if q == "" || strings.Contains(strings.ToLower(m.Content), q) {
			results = append(results, m)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
