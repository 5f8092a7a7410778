package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/JaimeStill/racksmith/pkg/lifecycle"
)

// local stores blobs as files under a directory. Access goes through an
// os.Root, so keys cannot escape the directory.
type local struct {
	dir    string
	root   *os.Root
	logger *slog.Logger
}

func newLocal(cfg *Config, logger *slog.Logger) (*local, error) {
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	root, err := os.OpenRoot(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("open storage root: %w", err)
	}

	return &local{
		dir:    cfg.Root,
		root:   root,
		logger: logger,
	}, nil
}

func (l *local) Start(lc *lifecycle.Coordinator) error {
	l.logger.Info("storage directory ready", "root", l.dir)

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := l.root.Close(); err != nil {
			l.logger.Error("storage root close failed", "error", err)
		}
	})

	return nil
}

func (l *local) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	name := filepath.FromSlash(key)
	if dir := filepath.Dir(name); dir != "." {
		if err := l.root.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create blob directory %s: %w", key, err)
		}
	}

	tmp := name + ".partial"
	f, err := l.root.Create(tmp)
	if err != nil {
		return fmt.Errorf("create blob %s: %w", key, err)
	}

	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		l.root.Remove(tmp)
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		l.root.Remove(tmp)
		return fmt.Errorf("close blob %s: %w", key, err)
	}

	if err := l.root.Rename(tmp, name); err != nil {
		return fmt.Errorf("commit blob %s: %w", key, err)
	}
	return nil
}

func (l *local) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	f, err := l.root.Open(filepath.FromSlash(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open blob %s: %w", key, err)
	}
	return f, nil
}

func (l *local) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := l.root.Remove(filepath.FromSlash(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}

func (l *local) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	if _, err := l.root.Stat(filepath.FromSlash(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("check blob existence %s: %w", key, err)
	}
	return true, nil
}
