// Package testutil holds in-memory stand-ins for the gorm repositories and
// external services, so service and handler tests run without postgres.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"anoa.com/campusfix/internal/entity"
	issueRepo "anoa.com/campusfix/internal/modules/issue/repository"
	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/pkg/apperror"
	"github.com/google/uuid"
)

type IssueRepo struct {
	mu          sync.Mutex
	issues      map[uuid.UUID]entity.Issue
	departments *DepartmentRepo

	// DropDeletes makes DeleteOwned report success without removing the row.
	DropDeletes bool
	CreateErr   error
}

func NewIssueRepo(departments *DepartmentRepo) *IssueRepo {
	return &IssueRepo{
		issues:      make(map[uuid.UUID]entity.Issue),
		departments: departments,
	}
}

// Put stores an issue as-is, assigning an id when missing.
func (r *IssueRepo) Put(issue entity.Issue) *entity.Issue {
	r.mu.Lock()
	defer r.mu.Unlock()

	if issue.ID == uuid.Nil {
		issue.ID = uuid.Must(uuid.NewV7())
	}
	if issue.Status == "" {
		issue.Status = entity.StatusPending
	}
	r.issues[issue.ID] = issue
	return r.load(issue)
}

func (r *IssueRepo) Create(ctx context.Context, issue *entity.Issue) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}
	if r.departments != nil {
		if _, err := r.departments.FindByID(ctx, issue.DepartmentID); err != nil {
			return fmt.Errorf("reporter or department does not exist: %w", apperror.ErrNotFound)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if issue.ID == uuid.Nil {
		issue.ID = uuid.Must(uuid.NewV7())
	}
	issue.CreatedAt = issue.ReportedAt
	issue.UpdatedAt = issue.ReportedAt
	r.issues[issue.ID] = *issue
	return nil
}

func (r *IssueRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	issue, ok := r.issues[id]
	if !ok {
		return nil, fmt.Errorf("issue not found: %w", apperror.ErrNotFound)
	}
	return r.load(issue), nil
}

func (r *IssueRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*entity.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.Issue, 0, len(ids))
	for _, id := range ids {
		if issue, ok := r.issues[id]; ok {
			out = append(out, r.load(issue))
		}
	}
	return out, nil
}

func (r *IssueRepo) FindAll(_ context.Context, filter issueRepo.Filter) ([]*entity.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Issue
	for _, issue := range r.issues {
		if filter.DepartmentID != nil && issue.DepartmentID != *filter.DepartmentID {
			continue
		}
		if filter.ReporterID != nil && issue.ReporterID != *filter.ReporterID {
			continue
		}
		if filter.Status != nil && issue.Status != *filter.Status {
			continue
		}
		out = append(out, r.load(issue))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReportedAt.Equal(out[j].ReportedAt) {
			return out[i].ReportedAt.After(out[j].ReportedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out, nil
}

func (r *IssueRepo) CountByStatus(_ context.Context, departmentID *uuid.UUID) (map[entity.IssueStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[entity.IssueStatus]int64)
	for _, issue := range r.issues {
		if departmentID != nil && issue.DepartmentID != *departmentID {
			continue
		}
		counts[issue.Status]++
	}
	return counts, nil
}

func (r *IssueRepo) UpdateStatus(_ context.Context, id uuid.UUID, scope *uuid.UUID, rule policy.ResolutionRule, status entity.IssueStatus, now time.Time) (*entity.Issue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	issue, ok := r.issues[id]
	if !ok {
		return nil, fmt.Errorf("issue not found: %w", apperror.ErrNotFound)
	}
	if scope != nil && issue.DepartmentID != *scope {
		return nil, fmt.Errorf("issue belongs to another department: %w", apperror.ErrForbidden)
	}

	issue.ResolvedAt = rule.Resolve(issue.ResolvedAt, status, now)
	issue.Status = status
	issue.UpdatedAt = now
	r.issues[id] = issue
	return r.load(issue), nil
}

func (r *IssueRepo) DeleteOwned(_ context.Context, id, reporterID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	issue, ok := r.issues[id]
	if !ok || issue.ReporterID != reporterID || r.DropDeletes {
		return 0, nil
	}
	delete(r.issues, id)
	return 1, nil
}

// load returns a detached copy with the department relation filled in.
func (r *IssueRepo) load(issue entity.Issue) *entity.Issue {
	out := issue
	if r.departments != nil {
		if dept, ok := r.departments.get(issue.DepartmentID); ok {
			out.Department = &dept
		}
	}
	return &out
}

var _ issueRepo.Repository = (*IssueRepo)(nil)
