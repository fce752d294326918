package store

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rcliao/persona-memory/internal/model"
)

func TestRecencyFactor(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"new", 0, 1.0},
		{"half window", 15 * day, 0.9},
		{"full window", 30 * day, 0.8},
		{"past window", 90 * day, 0.8},
		{"future", -time.Hour, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecencyFactor(tt.age); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RecencyFactor(%v) = %f, want %f", tt.age, got, tt.want)
			}
		})
	}
}

func TestTagFactor(t *testing.T) {
	tests := []struct {
		name           string
		have, requests []string
		want           float64
	}{
		{"no request", []string{"a"}, nil, 1.0},
		{"no tags", nil, []string{"a"}, 1.0},
		{"half", []string{"a"}, []string{"a", "b"}, 1.1},
		{"full", []string{"a", "b"}, []string{"a", "b"}, 1.2},
		{"none", []string{"c"}, []string{"a"}, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TagFactor(tt.have, tt.requests); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("TagFactor = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestRelevantRanksByImportance(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	vec := []float32{1, 0, 0}

	low, _ := s.Put(ctx, PutParams{RoleID: "a", Content: "low", Importance: model.ImportanceLow, Embedding: vec})
	high, _ := s.Put(ctx, PutParams{RoleID: "a", Content: "high", Importance: model.ImportanceHigh, Embedding: vec})

	got, err := s.Relevant(ctx, RelevantParams{RoleID: "a", Embedding: vec, Limit: 5})
	if err != nil {
		t.Fatalf("relevant: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].ID != high.ID || got[1].ID != low.ID {
		t.Fatalf("expected high before low, got %s, %s", got[0].Content, got[1].Content)
	}
	if ratio := got[0].Score / got[1].Score; math.Abs(ratio-1.5) > 1e-9 {
		t.Errorf("expected score ratio 1.2:0.8, got %f", ratio)
	}
}

func TestRelevantSkipsMissingEmbeddingsAndLimits(t *testing.T) {
	ctx := context.Background()
	s, c, _ := newTestStore(t)

	s.Put(ctx, PutParams{RoleID: "a", Content: "no vector", Type: model.MemoryKnowledge})
	s.Put(ctx, PutParams{RoleID: "a", Content: "old", Type: model.MemoryKnowledge, Embedding: []float32{1, 0}})
	c.advance(30 * 24 * time.Hour)
	s.Put(ctx, PutParams{RoleID: "a", Content: "fresh", Type: model.MemoryKnowledge, Embedding: []float32{1, 0}})
	s.Put(ctx, PutParams{RoleID: "a", Content: "orthogonal", Type: model.MemoryKnowledge, Embedding: []float32{0, 1}})

	got, _ := s.Relevant(ctx, RelevantParams{RoleID: "a", Embedding: []float32{1, 0}, Limit: 2})
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Content != "fresh" || got[1].Content != "old" {
		t.Errorf("expected fresh then old, got %s then %s", got[0].Content, got[1].Content)
	}
	if math.Abs(got[1].Score-0.8) > 1e-6 {
		t.Errorf("expected 30-day-old score 0.8, got %f", got[1].Score)
	}
}

func TestRelevantEmptyEmbedding(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	s.Put(ctx, PutParams{RoleID: "a", Content: "x", Embedding: []float32{1}})

	got, err := s.Relevant(ctx, RelevantParams{RoleID: "a"})
	if err != nil {
		t.Fatalf("relevant: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results for empty embedding, got %d", len(got))
	}
}

func TestRelevantCandidateRoles(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, model.Role{ID: "a", Name: "A"}, model.Role{ID: "b", Name: "B"})
	vec := []float32{1, 1}
	s.Put(ctx, PutParams{RoleID: "a", Content: "in a", Embedding: vec})
	s.Put(ctx, PutParams{RoleID: "b", Content: "in b", Embedding: vec, Tags: []string{"t"}})
	s.Put(ctx, PutParams{RoleID: "c", Content: "in c", Embedding: vec})

	own, _ := s.Relevant(ctx, RelevantParams{RoleID: "a", Embedding: vec})
	if len(own) != 1 {
		t.Errorf("expected own role only, got %d", len(own))
	}

	related, _ := s.Relevant(ctx, RelevantParams{RoleID: "a", Embedding: vec, RelatedRoleIDs: []string{"b", "c"}})
	if len(related) != 2 {
		t.Errorf("expected related roles b and c, got %d", len(related))
	}

	all, _ := s.Relevant(ctx, RelevantParams{RoleID: "a", Embedding: vec, CrossRole: true, Limit: 10})
	if len(all) != 3 {
		t.Errorf("expected every role, got %d", len(all))
	}

	tagged, _ := s.Relevant(ctx, RelevantParams{RoleID: "a", Embedding: vec, CrossRole: true, Tags: []string{"t"}})
	if len(tagged) != 1 || tagged[0].Content != "in b" {
		t.Errorf("expected tag filter to keep only b, got %+v", tagged)
	}
}

func TestRelevantKeepsShareCopiesDistinct(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	vec := []float32{1, 0}
	s.Put(ctx, PutParams{RoleID: "a", Content: "shared", Embedding: vec, SharedWith: []string{"b"}})

	got, _ := s.Relevant(ctx, RelevantParams{RoleID: "a", Embedding: vec, CrossRole: true, Limit: 10})
	if len(got) != 2 {
		t.Errorf("expected original and copy as distinct memories, got %d", len(got))
	}

	noCopies, _ := s.Relevant(ctx, RelevantParams{RoleID: "a", Embedding: vec, CrossRole: true, SkipShared: true})
	if len(noCopies) != 1 {
		t.Errorf("expected copies dropped, got %d", len(noCopies))
	}
}
