package department

import (
	"context"
	"fmt"
	"strings"

	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/internal/modules/department/dto"
	"anoa.com/campusfix/internal/modules/department/repository"
	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/pkg/apperror"
	commonDto "anoa.com/campusfix/pkg/dto"
	"anoa.com/campusfix/pkg/validator"
)

type DepartmentService interface {
	CreateDepartment(ctx context.Context, actor policy.Actor, req dto.CreateDepartmentRequest) (*commonDto.DepartmentResponse, error)
	ListDepartments(ctx context.Context) ([]commonDto.DepartmentResponse, error)
}

type departmentService struct {
	repo repository.DepartmentRepository
}

func NewDepartmentService(repo repository.DepartmentRepository) DepartmentService {
	return &departmentService{repo: repo}
}

func (s *departmentService) CreateDepartment(ctx context.Context, actor policy.Actor, req dto.CreateDepartmentRequest) (*commonDto.DepartmentResponse, error) {
	if !policy.HasRole(actor, entity.RolePrincipal) {
		return nil, fmt.Errorf("only a principal can create departments: %w", apperror.ErrForbidden)
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	department := &entity.Department{
		Name: req.Name,
		Code: req.Code,
	}
	if err := s.repo.Create(ctx, department); err != nil {
		return nil, err
	}

	resp := toResponse(department)
	return &resp, nil
}

func (s *departmentService) ListDepartments(ctx context.Context) ([]commonDto.DepartmentResponse, error) {
	departments, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]commonDto.DepartmentResponse, 0, len(departments))
	for _, d := range departments {
		responses = append(responses, toResponse(d))
	}
	return responses, nil
}

func toResponse(d *entity.Department) commonDto.DepartmentResponse {
	return commonDto.DepartmentResponse{
		ID:   d.ID,
		Name: d.Name,
		Code: d.Code,
	}
}
