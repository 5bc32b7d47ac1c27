package rule

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fhirbridge/fhirbridge/internal/platform/dhis"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

var validTrackerTypes = map[dhis.ResourceType]bool{
	dhis.ResourceTrackedEntity: true,
	dhis.ResourceEnrollment:    true,
	dhis.ResourceEvent:         true,
}

func (s *Service) validate(ru *Rule) error {
	if ru.Name == "" {
		return fmt.Errorf("name is required")
	}
	if ru.FHIRResourceType == "" {
		return fmt.Errorf("fhir_resource_type is required")
	}
	if !validTrackerTypes[ru.TrackerResourceType] {
		return fmt.Errorf("invalid tracker_resource_type: %s", ru.TrackerResourceType)
	}
	if ru.TransformScript == uuid.Nil {
		return fmt.Errorf("transform_script_id is required")
	}
	return nil
}

func (s *Service) CreateRule(ctx context.Context, ru *Rule) error {
	if err := s.validate(ru); err != nil {
		return err
	}
	return s.repo.Create(ctx, ru)
}

func (s *Service) GetRule(ctx context.Context, id uuid.UUID) (*Rule, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateRule(ctx context.Context, ru *Rule) error {
	if err := s.validate(ru); err != nil {
		return err
	}
	return s.repo.Update(ctx, ru)
}

func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListRules(ctx context.Context, limit, offset int) ([]*Rule, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// FindCandidates returns the rules applicable to the given input, in
// selection order.
func (s *Service) FindCandidates(ctx context.Context, fhirResourceType string, codes []string) ([]*Rule, error) {
	return s.repo.FindAllByInputData(ctx, fhirResourceType, codes)
}
