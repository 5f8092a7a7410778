package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/racksmith/internal/analysis"
	"github.com/JaimeStill/racksmith/internal/localstore"
	"github.com/JaimeStill/racksmith/internal/workflow"
	"github.com/JaimeStill/racksmith/pkg/compliance"
	"github.com/JaimeStill/racksmith/pkg/pagination"
)

// rackNamespace derives stable rack ids from absolute file paths, so a
// file keeps its stored result across runs.
var rackNamespace = uuid.MustParse("5b0c3f1e-7d2a-4f86-9a41-6c1d2e8b7f30")

var pageConfig = pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

// fileSource resolves rack ids registered from file paths.
type fileSource struct {
	mu    sync.RWMutex
	paths map[uuid.UUID]string
}

func newFileSource() *fileSource {
	return &fileSource{paths: make(map[uuid.UUID]string)}
}

// Register returns the rack id of the file at path.
func (s *fileSource) Register(path string) (uuid.UUID, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	id := uuid.NewSHA1(rackNamespace, []byte(abs))

	s.mu.Lock()
	s.paths[id] = abs
	s.mu.Unlock()
	return id, nil
}

func (s *fileSource) Open(_ context.Context, rackID uuid.UUID) (io.ReadCloser, error) {
	s.mu.RLock()
	path, ok := s.paths[rackID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", workflow.ErrNotFound, rackID)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", workflow.ErrNotFound, path)
		}
		return nil, err
	}
	return f, nil
}

// engine is the analysis system of one command invocation.
type engine struct {
	store    *localstore.Store
	source   *fileSource
	policies *compliance.Store
	sys      analysis.System
	out      *OutputFormatter
}

func newEngine(opts *RootOptions, cmd *cobra.Command) (*engine, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	policies := compliance.NewStore(opts.Policy, logger)
	if err := policies.Load(); err != nil {
		return nil, WrapExitError(ExitCommandError, "load policy", err)
	}

	store, err := localstore.Open(opts.DB, pageConfig)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	out.VerboseLog("database %s, policy %s", opts.DB, policies.Current().Version)

	source := newFileSource()
	sys := analysis.New(analysis.Deps{
		Store: store,
		Runtime: &workflow.Runtime{
			Source: source,
			Logger: logger,
		},
		Policies:   policies,
		Logger:     logger,
		Pagination: pageConfig,
	})

	return &engine{
		store:    store,
		source:   source,
		policies: policies,
		sys:      sys,
		out:      out,
	}, nil
}

func (e *engine) Close() error {
	return e.store.Close()
}

// current analyzes path unless a stored result already exists.
func (e *engine) current(ctx context.Context, path string) (uuid.UUID, *analysis.Summary, error) {
	id, err := e.source.Register(path)
	if err != nil {
		return uuid.Nil, nil, WrapExitError(ExitCommandError, "register rack", err)
	}

	s, err := e.sys.Analyze(ctx, id, analysis.Options{})
	if err != nil {
		return id, nil, WrapExitError(ExitCommandError, "analyze "+path, err)
	}
	return id, s, nil
}
