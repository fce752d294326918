package store

import (
	"context"

	"github.com/rcliao/persona-memory/internal/model"
)

// Stats holds memory counts across partitions.
type Stats struct {
	TotalMemories int         `json:"total_memories"`
	Expired       int         `json:"expired"`
	ShareCopies   int         `json:"share_copies"`
	WithEmbedding int         `json:"with_embedding"`
	Roles         []RoleStats `json:"roles"`
}

// RoleStats holds per-partition counts.
type RoleStats struct {
	RoleID string                   `json:"role_id"`
	Count  int                      `json:"count"`
	ByType map[model.MemoryType]int `json:"by_type"`
}

// Stats counts memories per partition without purging. Expired memories are
// counted separately and excluded from the per-role numbers.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	entries, err := s.partitions.Scan(ctx, "")
	if err != nil {
		return nil, err
	}

	now := s.now()
	st := &Stats{Roles: []RoleStats{}}
	for _, e := range entries {
		rs := RoleStats{RoleID: e.Key, ByType: map[model.MemoryType]int{}}
		for _, m := range e.Value {
			if m.Expired(now) {
				st.Expired++
				continue
			}
			rs.Count++
			rs.ByType[m.Type]++
			if m.IsShareCopy() {
				st.ShareCopies++
			}
			if len(m.Embedding) > 0 {
				st.WithEmbedding++
			}
		}
		st.TotalMemories += rs.Count
		if rs.Count > 0 {
			st.Roles = append(st.Roles, rs)
		}
	}
	return st, nil
}
