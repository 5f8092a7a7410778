package racks

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Identity headers set by the gateway in front of the service.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	RoleAdmin      = "admin"
)

// Principal is the caller on whose behalf an operation runs.
type Principal struct {
	UserID uuid.UUID
	Admin  bool
}

// PrincipalFromRequest reads the caller identity from the gateway headers.
func PrincipalFromRequest(r *http.Request) (Principal, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if raw == "" {
		return Principal{}, fmt.Errorf("%w: %s header required", ErrUnauthenticated, HeaderUserID)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %s", ErrUnauthenticated, err)
	}

	return Principal{
		UserID: id,
		Admin:  strings.EqualFold(r.Header.Get(HeaderUserRole), RoleAdmin),
	}, nil
}

// CanAccess reports whether p may operate on resources owned by owner.
func (p Principal) CanAccess(owner uuid.UUID) bool {
	return p.Admin || p.UserID == owner
}
