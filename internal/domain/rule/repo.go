package rule

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a rule does not exist.
var ErrNotFound = errors.New("rule not found")

// Repository provides access to transformation rules.
type Repository interface {
	Create(ctx context.Context, r *Rule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Rule, error)
	Update(ctx context.Context, r *Rule) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Rule, error)

	// FindAllByInputData returns the enabled rules that can apply to a
	// resource of the given type carrying the given codes: rules whose code
	// set intersects codes, plus rules declaring no code restriction.
	// Code-specific rules order before generic ones, then ascending priority,
	// then id, so selection order is stable.
	FindAllByInputData(ctx context.Context, fhirResourceType string, codes []string) ([]*Rule, error)
}
