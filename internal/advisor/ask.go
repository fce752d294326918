package advisor

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/persona-memory/internal/digest"
	"github.com/rcliao/persona-memory/internal/llm"
	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/session"
	"github.com/rcliao/persona-memory/internal/store"
)

// MemoryStatus says how query-relevant memories were gathered.
type MemoryStatus string

const (
	// MemoryFound means ranking ran and returned memories.
	MemoryFound MemoryStatus = "found"
	// MemoryNone means ranking ran and nothing was relevant.
	MemoryNone MemoryStatus = "none"
	// MemoryDisabled means no embedder is configured.
	MemoryDisabled MemoryStatus = "disabled"
	// MemoryUnavailable means the embedding provider failed.
	MemoryUnavailable MemoryStatus = "unavailable"
)

// AskParams is one query in a session.
type AskParams struct {
	SessionID    string
	Query        string
	ForceRoleID  string
	Instructions string
}

// Answer is the result of Ask.
type Answer struct {
	SessionID    string           `json:"session_id"`
	RoleID       string           `json:"role_id"`
	Decision     session.Decision `json:"decision"`
	Response     string           `json:"response"`
	MemoryStatus MemoryStatus     `json:"memory_status"`
	// MemoryError describes an embedding failure.
	MemoryError string   `json:"memory_error,omitempty"`
	Relevant    []string `json:"relevant_memory_ids,omitempty"`
	// MemoryID is the stored exchange.
	MemoryID string `json:"memory_id,omitempty"`
}

// turn is a prepared query ready for completion.
type turn struct {
	answer  *Answer
	request llm.Request
	vector  []float32
}

// Ask answers a query in a session, switching roles when the triggers call
// for it. A completion failure returns an error wrapping
// model.ErrProviderDegraded and nothing is written back.
func (s *Service) Ask(ctx context.Context, p AskParams) (*Answer, error) {
	t, err := s.prepare(ctx, p)
	if err != nil {
		return nil, err
	}
	resp, err := s.Completer.Complete(ctx, t.request)
	if err != nil {
		return nil, s.degraded(t, err)
	}
	return s.finish(ctx, t, p.Query, resp)
}

// AskStream is Ask with the response delivered in chunks. onDecision runs
// once before the first chunk.
func (s *Service) AskStream(ctx context.Context, p AskParams, onDecision func(session.Decision), onChunk func(string)) (*Answer, error) {
	t, err := s.prepare(ctx, p)
	if err != nil {
		return nil, err
	}
	if onDecision != nil {
		onDecision(t.answer.Decision)
	}
	resp, err := s.Completer.Stream(ctx, t.request, onChunk)
	if err != nil {
		return nil, s.degraded(t, err)
	}
	return s.finish(ctx, t, p.Query, resp)
}

func (s *Service) degraded(t *turn, err error) error {
	s.log.Warn("completion failed",
		zap.String("session", t.answer.SessionID), zap.String("role", t.answer.RoleID), zap.Error(err))
	return fmt.Errorf("complete for role %q: %w: %v", t.answer.RoleID, model.ErrProviderDegraded, err)
}

// prepare decides the role and embeds the query concurrently, then builds
// the system prompt from the role's memories.
func (s *Service) prepare(ctx context.Context, p AskParams) (*turn, error) {
	query, err := normalizeQuery(p.Query)
	if err != nil {
		return nil, err
	}

	var (
		decision session.Decision
		vector   []float32
		embedErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.Sessions.DecideAndSwitch(gctx, p.SessionID, query, p.ForceRoleID)
		if err != nil {
			return err
		}
		decision = d
		return nil
	})
	if s.Embedder != nil {
		g.Go(func() error {
			vector, embedErr = s.Embedder.Embed(gctx, query)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r, err := s.Roles.Get(ctx, decision.RoleID)
	if err != nil {
		return nil, err
	}
	if decision.Switched {
		s.log.Info("role switched",
			zap.String("session", p.SessionID), zap.String("from", decision.FromRoleID),
			zap.String("to", decision.RoleID), zap.String("reason", decision.Reason))
	}

	a := &Answer{SessionID: p.SessionID, RoleID: r.ID, Decision: decision}

	own, err := s.Memories.List(ctx, store.ListParams{RoleID: r.ID, Role: &r})
	if err != nil {
		return nil, err
	}
	roleContext := digest.Pack(recent(own, s.opts.ContextLimit), s.opts.Digest)

	var relevant digest.Digest
	switch {
	case s.Embedder == nil:
		a.MemoryStatus = MemoryDisabled
	case embedErr != nil || len(vector) == 0:
		a.MemoryStatus = MemoryUnavailable
		if embedErr != nil {
			a.MemoryError = fmt.Errorf("%w: %v", model.ErrProviderDegraded, embedErr).Error()
		} else {
			a.MemoryError = model.ErrProviderDegraded.Error()
		}
		vector = nil
		s.log.Warn("query embedding unavailable", zap.String("session", p.SessionID), zap.Error(embedErr))
	default:
		ranked, err := s.Memories.Relevant(ctx, store.RelevantParams{
			RoleID:    r.ID,
			Embedding: vector,
			Limit:     s.opts.RelevantLimit,
		})
		if err != nil {
			return nil, err
		}
		mems := make([]model.Memory, len(ranked))
		for i, rk := range ranked {
			mems[i] = rk.Memory
			a.Relevant = append(a.Relevant, rk.ID)
		}
		relevant = digest.Pack(mems, s.opts.Digest)
		a.MemoryStatus = MemoryNone
		if !relevant.Empty() {
			a.MemoryStatus = MemoryFound
		}
	}

	prompt := llm.Prompt{
		Role:         r,
		Instructions: session.MergeInstructions(decision.Note, p.Instructions),
		RoleContext:  roleContext.Text(),
		Relevant:     relevant.Text(),
	}
	return &turn{
		answer:  a,
		request: llm.Request{System: prompt.System(), Query: query, MaxTokens: s.opts.MaxTokens},
		vector:  vector,
	}, nil
}

// finish stores the exchange as a session memory of the answering role.
func (s *Service) finish(ctx context.Context, t *turn, query, response string) (*Answer, error) {
	t.answer.Response = response
	m, err := s.Memories.Put(ctx, store.PutParams{
		RoleID:     t.answer.RoleID,
		Content:    llm.Exchange(query, response),
		Type:       model.MemorySession,
		Importance: model.ImportanceMedium,
		Embedding:  t.vector,
	})
	if err != nil {
		return t.answer, fmt.Errorf("store exchange: %w", err)
	}
	t.answer.MemoryID = m.ID
	return t.answer, nil
}

// recent returns up to n memories, newest first.
func recent(mems []model.Memory, n int) []model.Memory {
	out := make([]model.Memory, len(mems))
	copy(out, mems)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
