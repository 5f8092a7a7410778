// Package racks implements the rack reference domain: the registered
// device-group documents that analyses and batches operate on, the caller
// identity carried by gateway headers, and ownership checks.
package racks

import (
	"time"

	"github.com/google/uuid"
)

// Rack references a stored device-group document.
type Rack struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	OwnerID    uuid.UUID `json:"owner_id"`
	StorageKey string    `json:"storage_key"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
