package clinic

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockRepo struct {
	clinics map[uuid.UUID]*Clinic
}

func newMockRepo() *mockRepo {
	return &mockRepo{clinics: make(map[uuid.UUID]*Clinic)}
}

func (m *mockRepo) Create(_ context.Context, cl *Clinic) error {
	cl.ID = uuid.New()
	cl.CreatedAt = time.Now()
	cl.UpdatedAt = time.Now()
	m.clinics[cl.ID] = cl
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Clinic, error) {
	cl, ok := m.clinics[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return cl, nil
}

func (m *mockRepo) GetByCode(_ context.Context, code string) (*Clinic, error) {
	for _, cl := range m.clinics {
		if cl.Code == code {
			return cl, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) Update(_ context.Context, cl *Clinic) error {
	m.clinics[cl.ID] = cl
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	cl, ok := m.clinics[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	cl.Active = false
	return nil
}

func (m *mockRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Clinic, int, error) {
	var result []*Clinic
	for _, cl := range m.clinics {
		if activeOnly && !cl.Active {
			continue
		}
		result = append(result, cl)
	}
	return result, len(result), nil
}

// -- Tests --

func TestCreateClinic(t *testing.T) {
	svc := NewService(newMockRepo())

	cl := &Clinic{Name: "Central Clinic", Code: "cen-01"}
	if err := svc.CreateClinic(context.Background(), cl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cl.ID == uuid.Nil {
		t.Error("expected generated ID")
	}
	if cl.Code != "CEN-01" {
		t.Errorf("code = %q, want normalized %q", cl.Code, "CEN-01")
	}
	if !cl.Active {
		t.Error("new clinic should be active")
	}
}

func TestCreateClinic_Validation(t *testing.T) {
	svc := NewService(newMockRepo())

	if err := svc.CreateClinic(context.Background(), &Clinic{Code: "X"}); err == nil {
		t.Error("expected error for missing name")
	}
	if err := svc.CreateClinic(context.Background(), &Clinic{Name: "No Code"}); err == nil {
		t.Error("expected error for missing code")
	}
}

func TestCreateClinic_DuplicateCode(t *testing.T) {
	svc := NewService(newMockRepo())

	if err := svc.CreateClinic(context.Background(), &Clinic{Name: "First", Code: "DUP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.CreateClinic(context.Background(), &Clinic{Name: "Second", Code: "dup"}); err == nil {
		t.Error("expected error for duplicate code")
	}
}

func TestDeactivateClinic(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	cl := &Clinic{Name: "Closing Clinic", Code: "CLS"}
	_ = svc.CreateClinic(context.Background(), cl)

	if err := svc.DeactivateClinic(context.Background(), cl.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), cl.ID)
	if got.Active {
		t.Error("clinic should be inactive after deactivation")
	}
}

func TestListClinics_ActiveOnly(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	a := &Clinic{Name: "A", Code: "A1"}
	b := &Clinic{Name: "B", Code: "B1"}
	_ = svc.CreateClinic(context.Background(), a)
	_ = svc.CreateClinic(context.Background(), b)
	_ = svc.DeactivateClinic(context.Background(), b.ID)

	all, total, err := svc.ListClinics(context.Background(), false, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Errorf("total = %d len = %d, want 2 and 2", total, len(all))
	}

	active, total, err := svc.ListClinics(context.Background(), true, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(active) != 1 {
		t.Errorf("active total = %d len = %d, want 1 and 1", total, len(active))
	}
}
