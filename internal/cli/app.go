package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rcliao/persona-memory/internal/advisor"
	"github.com/rcliao/persona-memory/internal/config"
	"github.com/rcliao/persona-memory/internal/digest"
	"github.com/rcliao/persona-memory/internal/embedding"
	"github.com/rcliao/persona-memory/internal/kv"
	"github.com/rcliao/persona-memory/internal/llm"
	"github.com/rcliao/persona-memory/internal/logging"
	"github.com/rcliao/persona-memory/internal/model"
	"github.com/rcliao/persona-memory/internal/role"
	"github.com/rcliao/persona-memory/internal/session"
	"github.com/rcliao/persona-memory/internal/store"
	"github.com/rcliao/persona-memory/internal/trigger"
)

// app is one process's wiring of the persona services.
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *kv.DB
	svc *advisor.Service
	emb embedding.Embedder
}

// buckets are the persistent key spaces.
type buckets struct {
	roles    kv.Store[model.Role]
	sessions kv.Store[model.Session]
	memories kv.Store[[]model.Memory]
	triggers kv.Store[[]string]
}

func openApp(ctx context.Context) (*app, error) {
	return newApp(ctx, getConfigPath(), dbPath)
}

// newApp loads configuration and wires every component. dbOverride, when
// set, selects the sqlite backend at that path.
func newApp(ctx context.Context, cfgPath, dbOverride string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if dbOverride != "" {
		cfg.Storage.Backend = "sqlite"
		cfg.Storage.Path = dbOverride
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	var b buckets
	switch cfg.Storage.Backend {
	case "sqlite":
		db, err := kv.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.db = db
		b = buckets{
			roles:    kv.NewSQLite[model.Role](db, "roles"),
			sessions: kv.NewSQLite[model.Session](db, "sessions"),
			memories: kv.NewSQLite[[]model.Memory](db, "memories"),
			triggers: kv.NewSQLite[[]string](db, "triggers"),
		}
	default:
		b = buckets{
			roles:    kv.NewMap[model.Role](),
			sessions: kv.NewMap[model.Session](),
			memories: kv.NewMap[[]model.Memory](),
			triggers: kv.NewMap[[]string](),
		}
	}

	emb, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.emb = emb
	completer, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}

	catalog := role.NewCatalog(b.roles, role.Defaults()...)
	detector := trigger.New(cfg.TriggerOptions(), log.Named("trigger"))
	a.svc = advisor.New(advisor.Deps{
		Roles:    catalog,
		Detector: detector,
		Sessions: session.NewManager(b.sessions, catalog, detector, session.Options{
			IdleTimeout: cfg.Sessions.IdleTimeout,
			Logger:      log.Named("session"),
		}),
		Memories: store.New(b.memories, catalog, store.Options{
			TTL:    cfg.Memory.TTL,
			Logger: log.Named("store"),
		}),
		Triggers:  b.triggers,
		Embedder:  emb,
		Completer: completer,
	}, advisor.Options{
		RelevantLimit: cfg.Memory.RelevantLimit,
		ContextLimit:  cfg.Memory.ContextLimit,
		Digest:        digest.Options{Budget: cfg.Memory.DigestBudget, MinExcerpt: digest.DefaultOptions().MinExcerpt},
		MaxTokens:     cfg.LLM.MaxTokens,
		Logger:        log.Named("advisor"),
	})

	var fileRoles []role.FileRole
	if cfg.RolesFile != "" {
		fileRoles, err = role.LoadFile(cfg.RolesFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			a.Close()
			return nil, err
		}
	}
	if err := a.svc.Init(ctx, fileRoles); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the database and embedding cache.
func (a *app) Close() {
	if c, ok := a.emb.(*embedding.Cached); ok {
		c.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("close store", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

// mustApp opens the app or exits.
func mustApp(ctx context.Context) *app {
	a, err := openApp(ctx)
	if err != nil {
		exitErr("open", err)
	}
	return a
}
