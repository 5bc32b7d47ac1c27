package script

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service validates and stores scripts and executable scripts.
type Service struct {
	repo Repository
	eval Evaluator
}

func NewService(repo Repository, eval Evaluator) *Service {
	return &Service{repo: repo, eval: eval}
}

var validReturnTypes = map[ReturnType]bool{
	ReturnBoolean: true, ReturnString: true, ReturnInteger: true,
	ReturnNumber: true, ReturnDateTime: true, ReturnObject: true,
}

// CreateScript validates the script and verifies each source compiles before
// storing it. Authoring errors surface here rather than at transform time.
func (s *Service) CreateScript(ctx context.Context, sc *Script) error {
	if sc.Code == "" {
		return fmt.Errorf("code is required")
	}
	if !validReturnTypes[sc.ReturnType] {
		return fmt.Errorf("invalid return_type: %s", sc.ReturnType)
	}
	if len(sc.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	for i := range sc.Sources {
		if _, err := s.eval.Compile(sc.Sources[i].SourceText); err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
	}
	return s.repo.CreateScript(ctx, sc)
}

func (s *Service) GetScript(ctx context.Context, id uuid.UUID) (*Script, error) {
	return s.repo.GetScript(ctx, id)
}

func (s *Service) ListScripts(ctx context.Context, limit, offset int) ([]*Script, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListScripts(ctx, limit, offset)
}

// CreateExecutable binds override values to an existing script. Override
// names must be declared arguments.
func (s *Service) CreateExecutable(ctx context.Context, es *ExecutableScript) error {
	if es.Code == "" {
		return fmt.Errorf("code is required")
	}
	sc, err := s.repo.GetScript(ctx, es.ScriptID)
	if err != nil {
		return fmt.Errorf("resolve script: %w", err)
	}
	declared := make(map[string]bool, len(sc.Args))
	for _, a := range sc.Args {
		declared[a.Name] = true
	}
	for name := range es.Overrides {
		if !declared[name] {
			return fmt.Errorf("override %s is not a declared argument of script %s", name, sc.Code)
		}
	}
	return s.repo.CreateExecutable(ctx, es)
}

func (s *Service) GetExecutable(ctx context.Context, id uuid.UUID) (*ExecutableScript, error) {
	return s.repo.GetExecutable(ctx, id)
}
