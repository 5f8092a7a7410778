package batches

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/racks"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SubmitCommand is a batch submission request.
type SubmitCommand struct {
	RackIDs  []string `json:"rack_ids" validate:"required,min=1,max=10,dive,uuid"`
	Priority Priority `json:"priority" validate:"omitempty,oneof=low normal high"`
	Force    bool     `json:"force"`
	Notify   bool     `json:"notify"`
}

// admit checks cmd against the admission rules that need no shared state
// and returns the parsed rack ids.
func (s *scheduler) admit(ctx context.Context, p racks.Principal, cmd *SubmitCommand) ([]uuid.UUID, error) {
	if err := validate.Struct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAdmission, formatValidationError(err))
	}

	if len(cmd.RackIDs) > s.limits.MaxBatchSize {
		return nil, fmt.Errorf("%w: at most %d racks per batch, got %d", ErrAdmission, s.limits.MaxBatchSize, len(cmd.RackIDs))
	}

	ids := make([]uuid.UUID, len(cmd.RackIDs))
	seen := make(map[uuid.UUID]bool, len(cmd.RackIDs))
	for i, raw := range cmd.RackIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: rack_ids[%d]: %v", ErrAdmission, i, err)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate rack %s", ErrAdmission, id)
		}
		seen[id] = true
		ids[i] = id
	}

	if err := s.auth.Authorize(ctx, p, ids); err != nil {
		if errors.Is(err, racks.ErrNotFound) || errors.Is(err, racks.ErrForbidden) {
			return nil, fmt.Errorf("%w: %w", ErrAdmission, err)
		}
		return nil, fmt.Errorf("authorize racks: %w", err)
	}

	return ids, nil
}

// checkActive enforces the per-user active batch limit. Callers hold
// admitMu until the new batch is created so concurrent submissions
// cannot both pass.
func (s *scheduler) checkActive(ctx context.Context, p racks.Principal) error {
	active, err := s.store.CountActive(ctx, p.UserID)
	if err != nil {
		return err
	}

	limit := s.limits.ActiveLimit
	if p.Admin {
		limit = s.limits.AdminActiveLimit
	}
	if limit > 0 && active >= limit {
		return fmt.Errorf("%w: %d active batches, limit %d", ErrAdmission, active, limit)
	}
	return nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs[i] = fmt.Sprintf("%s is required", fe.Field())
		case "min":
			msgs[i] = fmt.Sprintf("%s needs at least %s entries", fe.Field(), fe.Param())
		case "max":
			msgs[i] = fmt.Sprintf("%s allows at most %s entries", fe.Field(), fe.Param())
		case "uuid":
			msgs[i] = fmt.Sprintf("%s is not a uuid", fe.Field())
		case "oneof":
			msgs[i] = fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
		default:
			msgs[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}
