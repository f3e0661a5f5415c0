package clinic

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateClinic(ctx context.Context, cl *Clinic) error {
	if strings.TrimSpace(cl.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(cl.Code) == "" {
		return fmt.Errorf("code is required")
	}
	cl.Code = strings.ToUpper(strings.TrimSpace(cl.Code))
	if existing, err := s.repo.GetByCode(ctx, cl.Code); err == nil && existing != nil {
		return fmt.Errorf("clinic code %s already in use", cl.Code)
	}
	cl.Active = true
	return s.repo.Create(ctx, cl)
}

func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateClinic(ctx context.Context, cl *Clinic) error {
	if strings.TrimSpace(cl.Name) == "" {
		return fmt.Errorf("name is required")
	}
	existing, err := s.repo.GetByID(ctx, cl.ID)
	if err != nil {
		return fmt.Errorf("clinic not found: %w", err)
	}
	if cl.Code == "" {
		cl.Code = existing.Code
	}
	cl.Code = strings.ToUpper(strings.TrimSpace(cl.Code))
	return s.repo.Update(ctx, cl)
}

// DeactivateClinic marks a clinic inactive. Records referencing it remain.
func (s *Service) DeactivateClinic(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListClinics(ctx context.Context, activeOnly bool, limit, offset int) ([]*Clinic, int, error) {
	return s.repo.List(ctx, activeOnly, limit, offset)
}
