package racks

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/workflow"
	"github.com/JaimeStill/racksmith/pkg/storage"
)

// Source opens the stored document of a rack. It implements workflow.Source.
type Source struct {
	racks   System
	storage storage.System
}

// NewSource creates a Source reading rack references from racks and
// document blobs from store.
func NewSource(racks System, store storage.System) *Source {
	return &Source{racks: racks, storage: store}
}

func (s *Source) Open(ctx context.Context, rackID uuid.UUID) (io.ReadCloser, error) {
	rack, err := s.racks.Find(ctx, rackID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", workflow.ErrNotFound, err)
		}
		return nil, err
	}

	body, err := s.storage.Download(ctx, rack.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", workflow.ErrNotFound, rack.StorageKey, err)
		}
		return nil, fmt.Errorf("download %s: %w", rack.StorageKey, err)
	}
	return body, nil
}
