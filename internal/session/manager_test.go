package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rcliao/persona-memory/internal/kv"
	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/role"
	"github.com/rcliao/persona-memory/internal/trigger"
)

type fixture struct {
	mgr *Manager
	now time.Time
}

func newFixture(t *testing.T, idle time.Duration) *fixture {
	t.Helper()
	ctx := context.Background()
	cat := role.NewCatalog(kv.NewMap[model.Role](), role.Defaults()...)
	det := trigger.New(trigger.DefaultOptions(), nil)
	roles, err := cat.List(ctx)
	require.NoError(t, err)
	for _, r := range roles {
		require.NoError(t, det.Register(ctx, r, nil))
	}

	f := &fixture{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	f.mgr = NewManager(kv.NewMap[model.Session](), cat, det, Options{
		IdleTimeout: idle,
		Now:         func() time.Time { return f.now },
	})
	return f
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	s, err := f.mgr.Create(ctx, "s1", "ceo-advisor")
	require.NoError(t, err)
	assert.Equal(t, "ceo-advisor", s.CurrentRoleID)
	assert.Equal(t, ReasonInitial, s.LastSwitchReason)
	assert.Empty(t, s.History)

	_, err = f.mgr.Create(ctx, "s1", "ceo-advisor")
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = f.mgr.Create(ctx, "s2", "nobody")
	assert.ErrorIs(t, err, model.ErrNotFound)

	gen, err := f.mgr.Create(ctx, "", "cfo-advisor")
	require.NoError(t, err)
	assert.Len(t, gen.ID, 36)
}

func TestDecideSwitchesOnProfitAndLoss(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	_, err := f.mgr.Create(ctx, "s1", "ceo-advisor")
	require.NoError(t, err)

	q := "What's our profit and loss this quarter?"
	d, err := f.mgr.DecideAndSwitch(ctx, "s1", q, "")
	require.NoError(t, err)
	assert.True(t, d.Switched)
	assert.Equal(t, "cfo-advisor", d.RoleID)
	assert.Equal(t, "ceo-advisor", d.FromRoleID)
	assert.Equal(t, ReasonDetected, d.Reason)
	assert.Contains(t, d.Note, "You are switching from the role of CEO Advisor to CFO Advisor.")

	hist, err := f.mgr.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, model.SwitchEvent{
		Timestamp:  f.now,
		FromRoleID: "ceo-advisor",
		ToRoleID:   "cfo-advisor",
		Reason:     ReasonDetected,
		Query:      q,
		Automatic:  true,
	}, hist[0])

	s, _ := f.mgr.Get(ctx, "s1")
	assert.Equal(t, "cfo-advisor", s.CurrentRoleID)
	assert.Equal(t, ReasonDetected, s.LastSwitchReason)
}

func TestDecideStaysWithoutMatches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.mgr.Create(ctx, "s1", "hr-advisor")

	d, err := f.mgr.DecideAndSwitch(ctx, "s1", "good morning", "")
	require.NoError(t, err)
	assert.False(t, d.Switched)
	assert.Equal(t, "hr-advisor", d.RoleID)
	assert.Empty(t, d.Note)

	hist, _ := f.mgr.History(ctx, "s1")
	assert.Empty(t, hist)
}

func TestDecideForced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.mgr.Create(ctx, "s1", "ceo-advisor")

	d, err := f.mgr.DecideAndSwitch(ctx, "s1", "profit and loss", "sales-advisor")
	require.NoError(t, err)
	assert.True(t, d.Switched)
	assert.Equal(t, "sales-advisor", d.RoleID)
	assert.Equal(t, ReasonForced, d.Reason)

	d, err = f.mgr.DecideAndSwitch(ctx, "s1", "anything", "sales-advisor")
	require.NoError(t, err)
	assert.False(t, d.Switched)

	_, err = f.mgr.DecideAndSwitch(ctx, "s1", "anything", "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)

	hist, _ := f.mgr.History(ctx, "s1")
	require.Len(t, hist, 1)
	assert.False(t, hist[0].Automatic)
}

func TestDecideUnknownSession(t *testing.T) {
	_, err := newFixture(t, 0).mgr.DecideAndSwitch(context.Background(), "missing", "q", "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestManualSwitch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.mgr.Create(ctx, "s1", "ceo-advisor")

	s, d, err := f.mgr.ManualSwitch(ctx, "s1", "ceo-advisor", "")
	require.NoError(t, err)
	assert.False(t, d.Switched)
	assert.Empty(t, s.History)

	s, d, err = f.mgr.ManualSwitch(ctx, "s1", "hr-advisor", "")
	require.NoError(t, err)
	assert.True(t, d.Switched)
	assert.Equal(t, ReasonManual, s.LastSwitchReason)
	require.Len(t, s.History, 1)
	assert.Empty(t, s.History[0].Query)

	s, _, err = f.mgr.ManualSwitch(ctx, "s1", "cmo-advisor", "launch week")
	require.NoError(t, err)
	assert.Equal(t, "launch week", s.LastSwitchReason)
	assert.Len(t, s.History, 2)

	_, _, err = f.mgr.ManualSwitch(ctx, "s1", "ghost", "")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, _, err = f.mgr.ManualSwitch(ctx, "nope", "hr-advisor", "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.mgr.Create(ctx, "s1", "ceo-advisor")

	ok, err := f.mgr.Close(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.mgr.Close(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.mgr.History(ctx, "s1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEvictIdle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 30*time.Minute)
	f.mgr.Create(ctx, "old", "ceo-advisor")
	f.now = f.now.Add(20 * time.Minute)
	f.mgr.Create(ctx, "new", "ceo-advisor")
	f.now = f.now.Add(15 * time.Minute)

	n, err := f.mgr.EvictIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sessions, _ := f.mgr.List(ctx)
	require.Len(t, sessions, 1)
	assert.Equal(t, "new", sessions[0].ID)

	// activity keeps a session alive
	f.now = f.now.Add(10 * time.Minute)
	f.mgr.DecideAndSwitch(ctx, "new", "hello", "")
	f.now = f.now.Add(25 * time.Minute)
	n, _ = f.mgr.EvictIdle(ctx)
	assert.Equal(t, 0, n)
}

func TestEvictIdleDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.mgr.Create(ctx, "s", "ceo-advisor")
	f.now = f.now.Add(1000 * time.Hour)

	n, err := f.mgr.EvictIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestConcurrentDecisionsKeepHistoryConsistent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.mgr.Create(ctx, "s1", "ceo-advisor")

	targets := []string{"cfo-advisor", "hr-advisor"}
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.mgr.DecideAndSwitch(ctx, "s1", fmt.Sprintf("q%d", i), targets[i%2])
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	hist, _ := f.mgr.History(ctx, "s1")
	prev := "ceo-advisor"
	for _, ev := range hist {
		assert.Equal(t, prev, ev.FromRoleID)
		assert.NotEqual(t, ev.FromRoleID, ev.ToRoleID)
		prev = ev.ToRoleID
	}
	s, _ := f.mgr.Get(ctx, "s1")
	assert.Equal(t, prev, s.CurrentRoleID)
}

func TestMergeInstructions(t *testing.T) {
	assert.Equal(t, "note\n\ncustom", MergeInstructions("note", "custom"))
	assert.Equal(t, "note", MergeInstructions("note", ""))
	assert.Equal(t, "custom", MergeInstructions("", "custom"))
}

func TestRunEvictorStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.mgr.RunEvictor(ctx, "0 0 1 1 *") }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("evictor did not stop")
	}
}
