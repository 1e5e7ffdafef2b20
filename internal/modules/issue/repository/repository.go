package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter narrows a listing. Nil fields do not filter.
type Filter struct {
	DepartmentID *uuid.UUID
	ReporterID   *uuid.UUID
	Status       *entity.IssueStatus
}

type Repository interface {
	Create(ctx context.Context, issue *entity.Issue) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Issue, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Issue, error)
	// FindAll returns matching issues newest first.
	FindAll(ctx context.Context, filter Filter) ([]*entity.Issue, error)
	CountByStatus(ctx context.Context, departmentID *uuid.UUID) (map[entity.IssueStatus]int64, error)
	// UpdateStatus writes status and resolved_at in one transaction. A non-nil
	// scope restricts the write to issues of that department.
	UpdateStatus(ctx context.Context, id uuid.UUID, scope *uuid.UUID, rule policy.ResolutionRule, status entity.IssueStatus, now time.Time) (*entity.Issue, error)
	// DeleteOwned deletes the issue only when reporterID matches and returns the affected row count.
	DeleteOwned(ctx context.Context, id, reporterID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Department").
		Preload("Reporter")
}

func (r *repository) Create(ctx context.Context, issue *entity.Issue) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(issue).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("department or reporter not found: %w", apperror.ErrNotFound)
		}
		return err
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Issue, error) {
	var issue entity.Issue
	if err := r.withRelations(ctx).
		Where("id = ?", id).
		First(&issue).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("issue not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return &issue, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Issue, error) {
	if len(ids) == 0 {
		return []*entity.Issue{}, nil
	}

	var issues []*entity.Issue
	if err := r.withRelations(ctx).
		Where("id IN ?", ids).
		Find(&issues).Error; err != nil {
		return nil, err
	}

	// Keep the caller's order
	byID := make(map[uuid.UUID]*entity.Issue, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = issue
	}
	ordered := make([]*entity.Issue, 0, len(ids))
	for _, id := range ids {
		if issue, ok := byID[id]; ok {
			ordered = append(ordered, issue)
		}
	}
	return ordered, nil
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]*entity.Issue, error) {
	var issues []*entity.Issue

	query := r.withRelations(ctx)
	if filter.DepartmentID != nil {
		query = query.Where("department_id = ?", *filter.DepartmentID)
	}
	if filter.ReporterID != nil {
		query = query.Where("reporter_id = ?", *filter.ReporterID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if err := query.Order("reported_at DESC").Order("id DESC").Find(&issues).Error; err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *repository) CountByStatus(ctx context.Context, departmentID *uuid.UUID) (map[entity.IssueStatus]int64, error) {
	type result struct {
		Status entity.IssueStatus
		Count  int64
	}
	var results []result

	query := r.db.WithContext(ctx).
		Model(&entity.Issue{}).
		Select("status, count(*) as count")
	if departmentID != nil {
		query = query.Where("department_id = ?", *departmentID)
	}
	if err := query.Group("status").Scan(&results).Error; err != nil {
		return nil, err
	}

	counts := make(map[entity.IssueStatus]int64, len(results))
	for _, res := range results {
		counts[res.Status] = res.Count
	}
	return counts, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, scope *uuid.UUID, rule policy.ResolutionRule, status entity.IssueStatus, now time.Time) (*entity.Issue, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current entity.Issue
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("issue not found: %w", apperror.ErrNotFound)
			}
			return err
		}

		update := tx.Model(&entity.Issue{}).Where("id = ?", id)
		if scope != nil {
			update = update.Where("department_id = ?", *scope)
		}

		result := update.Updates(map[string]any{
			"status":      status,
			"resolved_at": rule.Resolve(current.ResolvedAt, status, now),
			"updated_at":  now,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("issue belongs to another department: %w", apperror.ErrForbidden)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.FindByID(ctx, id)
}

func (r *repository) DeleteOwned(ctx context.Context, id, reporterID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND reporter_id = ?", id, reporterID).
		Delete(&entity.Issue{})
	return result.RowsAffected, result.Error
}
