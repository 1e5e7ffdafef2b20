package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"anoa.com/campusfix/internal/entity"
	departmentRepo "anoa.com/campusfix/internal/modules/department/repository"
	"anoa.com/campusfix/pkg/apperror"
	"github.com/google/uuid"
)

type DepartmentRepo struct {
	mu          sync.Mutex
	departments map[uuid.UUID]entity.Department
}

func NewDepartmentRepo() *DepartmentRepo {
	return &DepartmentRepo{departments: make(map[uuid.UUID]entity.Department)}
}

// Add stores a department and returns it with its id.
func (r *DepartmentRepo) Add(name, code string) entity.Department {
	dept := entity.Department{Name: name, Code: code}
	if err := r.Create(context.Background(), &dept); err != nil {
		panic(err)
	}
	return dept
}

func (r *DepartmentRepo) Create(_ context.Context, department *entity.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.departments {
		if strings.EqualFold(existing.Name, department.Name) || existing.Code == department.Code {
			return fmt.Errorf("department name or code already exists: %w", apperror.ErrConflict)
		}
	}
	if department.ID == uuid.Nil {
		department.ID = uuid.Must(uuid.NewV7())
	}
	r.departments[department.ID] = *department
	return nil
}

func (r *DepartmentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Department, error) {
	dept, ok := r.get(id)
	if !ok {
		return nil, fmt.Errorf("department not found: %w", apperror.ErrNotFound)
	}
	return &dept, nil
}

func (r *DepartmentRepo) FindAll(_ context.Context) ([]*entity.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.Department, 0, len(r.departments))
	for _, dept := range r.departments {
		dept := dept
		out = append(out, &dept)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *DepartmentRepo) get(id uuid.UUID) (entity.Department, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dept, ok := r.departments[id]
	return dept, ok
}

var _ departmentRepo.DepartmentRepository = (*DepartmentRepo)(nil)
