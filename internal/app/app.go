// Package app assembles the decision engine runtime from a Config. The CLI
// and the worker share it so both see the same stores and capabilities.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/tinkerloft/formpilot/internal/capability"
	"github.com/tinkerloft/formpilot/internal/classifier"
	"github.com/tinkerloft/formpilot/internal/config"
	"github.com/tinkerloft/formpilot/internal/confidence"
	"github.com/tinkerloft/formpilot/internal/hint"
	"github.com/tinkerloft/formpilot/internal/knowledge"
	"github.com/tinkerloft/formpilot/internal/learning"
	"github.com/tinkerloft/formpilot/internal/metrics"
	"github.com/tinkerloft/formpilot/internal/model"
	"github.com/tinkerloft/formpilot/internal/session"
)

// Options adjusts what Build wires in.
type Options struct {
	Logger *slog.Logger
	// Metrics, when set, observes engine decisions and stored interventions.
	Metrics *metrics.Metrics
	// Store replaces the file-backed knowledge store, mainly for tests.
	Store *knowledge.Store
	// Hints replaces the Claude hint source.
	Hints session.HintSource
}

// Runtime is a fully wired engine.
type Runtime struct {
	Store      *knowledge.Store
	Engine     *confidence.Engine
	Learning   *learning.Store
	Classifier *classifier.Classifier
	Registry   *capability.Registry
	Hints      session.HintSource
	Logger     *slog.Logger
	hintCfg    config.HintConfig
	cfg        *config.Config
	metrics    *metrics.Metrics
}

// Build opens the knowledge file and constructs every component. A corrupt
// knowledge file is logged and replaced by in-memory defaults; the file
// itself is left as it was. Question patterns stored in the knowledge file
// extend the configured classifier.
func Build(cfg *config.Config, opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := opts.Store
	if store == nil {
		path := cfg.Knowledge.Path
		if path == "" {
			path = knowledge.DefaultPath()
		}
		var err error
		store, err = knowledge.Open(path, logger)
		if err != nil {
			logger.Warn("Knowledge file unreadable, starting from defaults", "path", path, "error", err)
		}
	}

	cl, err := cfg.NewClassifier()
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}
	applyLearnedPatterns(cl, store.Document(), logger)

	engineOpts := []confidence.Option{confidence.WithLogger(logger)}
	learningOpts := []learning.Option{learning.WithLogger(logger)}
	if opts.Metrics != nil {
		engineOpts = append(engineOpts, confidence.WithObserver(opts.Metrics))
		learningOpts = append(learningOpts, learning.WithObserver(opts.Metrics))
	}
	engine := confidence.New(store, cfg.Engine, engineOpts...)
	ls := learning.New(engine, learningOpts...)

	registry := capability.NewDefaultRegistry(capability.Deps{
		Profile:    cfg.Profile,
		Booster:    engine,
		Recaller:   ls,
		Classifier: cl,
		Logger:     logger,
	})

	hints := opts.Hints
	if hints == nil && cfg.Hint.Enabled {
		hints = hint.NewSource(cl.Types(),
			hint.WithModel(cfg.Hint.Model),
			hint.WithMaxTokens(cfg.Hint.MaxTokens))
	}

	return &Runtime{
		Store:      store,
		Engine:     engine,
		Learning:   ls,
		Classifier: cl,
		Registry:   registry,
		Hints:      hints,
		Logger:     logger,
		hintCfg:    cfg.Hint,
		cfg:        cfg,
		metrics:    opts.Metrics,
	}, nil
}

// applyLearnedPatterns extends the classifier with the pattern definitions
// persisted in the knowledge document, in type order. A definition that does
// not compile is skipped.
func applyLearnedPatterns(cl *classifier.Classifier, doc *knowledge.Document, logger *slog.Logger) {
	types := make([]model.QuestionType, 0, len(doc.QuestionPatterns))
	for t := range doc.QuestionPatterns {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		def := doc.QuestionPatterns[t]
		if def.Type == "" {
			def.Type = t
		}
		if err := cl.Extend(def); err != nil {
			logger.Warn("Skipping learned question pattern", "type", t, "error", err)
		}
	}
}

// SessionRuntime returns a runtime for one session whose store is the
// snapshot file for sessionID under dir. An existing snapshot is resumed;
// otherwise the session starts from a copy of this runtime's document. Every
// recorded outcome is flushed to the snapshot, never to the shared file.
func (r *Runtime) SessionRuntime(dir, sessionID string) (*Runtime, error) {
	path := knowledge.SnapshotPath(dir, sessionID)

	var doc *knowledge.Document
	if _, err := os.Stat(path); err == nil {
		if doc, err = knowledge.Load(path); err != nil {
			return nil, fmt.Errorf("failed to resume session %s: %w", sessionID, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		doc = r.Store.Document().Clone()
	} else {
		return nil, fmt.Errorf("failed to stat snapshot %s: %w", path, err)
	}

	return Build(r.cfg, Options{
		Logger:  r.Logger,
		Metrics: r.metrics,
		Store:   knowledge.FromDocument(path, doc, r.Logger),
		Hints:   r.Hints,
	})
}

// Deps returns session dependencies with the given human and notifier.
// Either may be nil.
func (r *Runtime) Deps(human session.Human, notifier session.Notifier) session.Deps {
	return session.Deps{
		Classifier:  r.Classifier,
		Registry:    r.Registry,
		Engine:      r.Engine,
		Learning:    r.Learning,
		Human:       human,
		Hints:       r.Hints,
		HintTimeout: r.hintCfg.Timeout,
		Notifier:    notifier,
		Logger:      r.Logger,
	}
}

// Close flushes the knowledge store.
func (r *Runtime) Close() error {
	return r.Store.Close()
}
