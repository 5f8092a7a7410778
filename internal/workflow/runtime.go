package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/pkg/adg"
	"github.com/JaimeStill/racksmith/pkg/chains"
)

// ErrNotFound indicates that the rack or its stored document does not exist.
var ErrNotFound = errors.New("rack document not found")

// Source resolves a rack to its stored document bytes. Implementations
// return an error matching ErrNotFound when either is missing.
type Source interface {
	Open(ctx context.Context, rackID uuid.UUID) (io.ReadCloser, error)
}

// Runtime bundles the dependencies that pipeline stages require.
// It is constructed by higher-level composition code from configuration
// and the domain systems.
type Runtime struct {
	Source Source
	Limits adg.Limits
	Chains chains.Options
	Logger *slog.Logger
}
