package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-notebooks/internal/badge"
	"github.com/p-n-ai/pai-notebooks/internal/curriculum"
	"github.com/p-n-ai/pai-notebooks/internal/platform/cache"
	"github.com/p-n-ai/pai-notebooks/internal/platform/config"
	"github.com/p-n-ai/pai-notebooks/internal/platform/database"
	"github.com/p-n-ai/pai-notebooks/internal/platform/logging"
	"github.com/p-n-ai/pai-notebooks/internal/progress"
)

// app holds the dependencies shared by subcommands. The curriculum is
// loaded for every command; stores are opened only by progress commands.
type app struct {
	cfg       *config.Config
	loader    *curriculum.Loader
	badges    *badge.Catalog
	stateFile string
	closers   []func() error
}

// flags are command-line overrides applied on top of the environment.
type flags struct {
	curriculumPath string
	store          string
	stateFile      string
	logLevel       string
}

func newApp(f flags) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if f.curriculumPath != "" {
		cfg.Curriculum.Path = f.curriculumPath
	}
	if f.store != "" {
		cfg.Store = f.store
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.SetDefault(logging.New(os.Stderr, cfg.Log))

	loader, err := curriculum.NewLoader(cfg.Curriculum.Path, cfg.Curriculum.Name)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		loader:    loader,
		badges:    badge.NewCatalog(),
		stateFile: f.stateFile,
	}, nil
}

func (a *app) curriculum() *curriculum.Curriculum {
	return a.loader.Curriculum()
}

// openEngine builds a progress engine on the configured store.
func (a *app) openEngine(ctx context.Context) (*progress.Engine, error) {
	var (
		store  progress.Store
		events progress.EventLogger = progress.SlogEventLogger{Logger: slog.Default()}
	)

	switch a.cfg.Store {
	case config.StorePostgres:
		db, err := database.New(ctx, a.cfg.Database.URL, a.cfg.Database.MaxConns, a.cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { db.Close(); return nil })
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		pg, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			return nil, err
		}
		store = pg
		events = progress.NewPostgresEventLogger(db.Pool)

	case config.StoreRedis:
		c, err := cache.New(ctx, a.cfg.Cache.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		cs, err := progress.NewCacheStore(c, a.cfg.Cache.TTL())
		if err != nil {
			return nil, err
		}
		store = cs

	default:
		mem := progress.NewMemoryStore()
		if err := loadState(ctx, a.stateFile, mem); err != nil {
			return nil, err
		}
		if a.stateFile != "" {
			a.closers = append(a.closers, func() error { return saveState(context.Background(), a.stateFile, mem) })
		}
		store = mem
	}

	return progress.NewEngine(progress.EngineConfig{
		Lessons: a.curriculum(),
		Badges:  a.badges,
		Store:   store,
		Events:  events,
	})
}

// Close runs closers in reverse order and joins their errors.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// loadState seeds a memory store from a JSON state file. A missing file is
// an empty state.
func loadState(ctx context.Context, path string, store *progress.MemoryStore) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading state: %w", err)
	}
	var learners []*progress.LearnerProgress
	if err := json.Unmarshal(data, &learners); err != nil {
		return fmt.Errorf("decoding state %s: %w", path, err)
	}
	for _, p := range learners {
		if p.Lessons == nil {
			p.Lessons = make(map[string]progress.LessonRecord)
		}
		if err := store.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func saveState(ctx context.Context, path string, store *progress.MemoryStore) error {
	ids, err := store.List(ctx)
	if err != nil {
		return err
	}
	learners := make([]*progress.LearnerProgress, 0, len(ids))
	for _, id := range ids {
		p, err := store.Load(ctx, id)
		if err != nil {
			return err
		}
		learners = append(learners, p)
	}
	data, err := json.MarshalIndent(learners, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
