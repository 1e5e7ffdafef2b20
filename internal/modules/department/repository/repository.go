package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DepartmentRepository interface {
	Create(ctx context.Context, department *entity.Department) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Department, error)
	FindAll(ctx context.Context) ([]*entity.Department, error)
}

type departmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) DepartmentRepository {
	return &departmentRepository{db: db}
}

func (r *departmentRepository) Create(ctx context.Context, department *entity.Department) error {
	if err := r.db.WithContext(ctx).Create(department).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("department name or code already exists: %w", apperror.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *departmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Department, error) {
	var department entity.Department
	if err := r.db.WithContext(ctx).First(&department, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("department not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &department, nil
}

func (r *departmentRepository) FindAll(ctx context.Context) ([]*entity.Department, error) {
	var departments []*entity.Department
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&departments).Error; err != nil {
		return nil, err
	}
	return departments, nil
}
