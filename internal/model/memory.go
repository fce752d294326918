// Package model defines the core role, memory, trigger and session types.
package model

import (
	"slices"
	"time"
)

// MemoryType controls a memory's lifetime.
type MemoryType string

const (
	MemorySession   MemoryType = "session"
	MemoryUser      MemoryType = "user"
	MemoryKnowledge MemoryType = "knowledge"
)

// Importance weights a memory during relevance ranking.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// Memory represents a stored memory entry in one role's partition.
type Memory struct {
	ID             string     `json:"id"`
	RoleID         string     `json:"role_id"`
	Content        string     `json:"content"`
	Type           MemoryType `json:"type"`
	Importance     Importance `json:"importance"`
	Embedding      []float32  `json:"embedding,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	Category       string     `json:"category,omitempty"`
	SharedWith     []string   `json:"shared_with,omitempty"`
	ParentMemoryID string     `json:"parent_memory_id,omitempty"`
}

// ValidTypes are the allowed memory types.
var ValidTypes = map[MemoryType]bool{
	MemorySession:   true,
	MemoryUser:      true,
	MemoryKnowledge: true,
}

// ValidImportance are the allowed importance levels.
var ValidImportance = map[Importance]bool{
	ImportanceLow:    true,
	ImportanceMedium: true,
	ImportanceHigh:   true,
}

// Expired reports whether the memory is past its expiry at now.
func (m Memory) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// IsShareCopy reports whether the memory was materialized from another
// role's memory.
func (m Memory) IsShareCopy() bool {
	return m.ParentMemoryID != ""
}

// HasAnyTag reports whether the memory carries at least one of tags.
func (m Memory) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if slices.Contains(m.Tags, t) {
			return true
		}
	}
	return false
}
