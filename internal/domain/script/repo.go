package script

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a script or executable script does not exist.
var ErrNotFound = errors.New("script not found")

// Repository provides access to scripts, their version-ranged sources and
// arguments, and the executable scripts bound to them.
type Repository interface {
	CreateScript(ctx context.Context, s *Script) error
	GetScript(ctx context.Context, id uuid.UUID) (*Script, error)
	GetScriptByCode(ctx context.Context, code string) (*Script, error)
	ListScripts(ctx context.Context, limit, offset int) ([]*Script, error)

	CreateExecutable(ctx context.Context, es *ExecutableScript) error
	// GetExecutable returns the executable script with its script, sources,
	// arguments and override values fully resolved.
	GetExecutable(ctx context.Context, id uuid.UUID) (*ExecutableScript, error)
	GetExecutableByCode(ctx context.Context, code string) (*ExecutableScript, error)
}
