package issue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"anoa.com/campusfix/internal/entity"
	departmentRepo "anoa.com/campusfix/internal/modules/department/repository"
	issueDto "anoa.com/campusfix/internal/modules/issue/dto"
	repo "anoa.com/campusfix/internal/modules/issue/repository"
	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/pkg/apperror"
	commonDto "anoa.com/campusfix/pkg/dto"
	"anoa.com/campusfix/pkg/storage"
	"anoa.com/campusfix/pkg/validator"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"

	notifService "anoa.com/campusfix/internal/modules/notification/service"
	search "anoa.com/campusfix/internal/modules/search/service"
	upvote "anoa.com/campusfix/internal/modules/upvote/service"
)

type Service interface {
	SubmitIssue(ctx context.Context, reporterID uuid.UUID, req issueDto.SubmitIssueRequest, photo *commonDto.PhotoFile) (*commonDto.IssueResponse, error)
	GetFeed(ctx context.Context, viewerID uuid.UUID, filter commonDto.IssueFilter) (*commonDto.IssueListResponse, error)
	GetMyIssues(ctx context.Context, viewerID uuid.UUID) (*commonDto.IssueListResponse, error)
	GetIssue(ctx context.Context, viewerID, issueID uuid.UUID) (*commonDto.IssueResponse, error)
	SearchIssues(ctx context.Context, viewerID uuid.UUID, query issueDto.SearchQuery) (*commonDto.IssueListResponse, error)
	UpdateStatus(ctx context.Context, actor policy.Actor, issueID uuid.UUID, status string) (*commonDto.IssueResponse, error)
	DeleteIssue(ctx context.Context, actor policy.Actor, issueID uuid.UUID) error
	HodDashboard(ctx context.Context, actor policy.Actor, query issueDto.DashboardQuery) (*commonDto.IssueListResponse, error)
	PrincipalDashboard(ctx context.Context, actor policy.Actor, query issueDto.DashboardQuery) (*commonDto.IssueListResponse, error)
	Stats(ctx context.Context, actor policy.Actor, departmentID string) (*commonDto.StatusCounts, error)
	ExportIssues(ctx context.Context, actor policy.Actor, query issueDto.DashboardQuery) ([]byte, error)
}

// Options tunes behaviour that differs between deployments and tests.
type Options struct {
	ResolutionRule policy.ResolutionRule
	SubmitCooldown time.Duration
	Now            func() time.Time
}

type service struct {
	issueRepo      repo.Repository
	departmentRepo departmentRepo.DepartmentRepository
	upvotes        upvote.UpvoteService
	fileStorage    storage.ImageStorage
	redisClient    *redis.Client
	notifier       notifService.NotificationService
	meili          search.MeiliSearchService
	sanitizer      *bluemonday.Policy
	rule           policy.ResolutionRule
	cooldown       time.Duration
	now            func() time.Time
}

func NewService(issueRepo repo.Repository, departmentRepo departmentRepo.DepartmentRepository, upvotes upvote.UpvoteService, fileStorage storage.ImageStorage, redisClient *redis.Client, notifier notifService.NotificationService, meili search.MeiliSearchService, opts Options) Service {
	if opts.ResolutionRule == nil {
		opts.ResolutionRule = policy.KeepFirstResolution{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &service{
		issueRepo:      issueRepo,
		departmentRepo: departmentRepo,
		upvotes:        upvotes,
		fileStorage:    fileStorage,
		redisClient:    redisClient,
		notifier:       notifier,
		meili:          meili,
		sanitizer:      bluemonday.StrictPolicy(),
		rule:           opts.ResolutionRule,
		cooldown:       opts.SubmitCooldown,
		now:            opts.Now,
	}
}

func (s *service) SubmitIssue(ctx context.Context, reporterID uuid.UUID, req issueDto.SubmitIssueRequest, photo *commonDto.PhotoFile) (*commonDto.IssueResponse, error) {
	req.DepartmentID = strings.TrimSpace(req.DepartmentID)
	req.RoomNo = strings.TrimSpace(req.RoomNo)
	req.ItemID = strings.TrimSpace(req.ItemID)
	req.Title = s.plainText(req.Title)
	if req.Description != nil {
		desc := s.plainText(*req.Description)
		req.Description = &desc
		if desc == "" {
			req.Description = nil
		}
	}
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	departmentID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		return nil, apperror.Validation("department_id must be a valid id")
	}
	if _, err := s.departmentRepo.FindByID(ctx, departmentID); err != nil {
		return nil, err
	}

	cleanup, err := s.checkSubmitRateLimit(ctx, reporterID)
	if err != nil {
		return nil, err
	}
	submitted := false
	defer func() {
		if !submitted {
			cleanup()
		}
	}()

	var photoURL *string
	if photo != nil && photo.Reader != nil {
		url, err := s.uploadPhoto(ctx, reporterID, photo)
		if err != nil {
			return nil, err
		}
		photoURL = &url
	}

	now := s.now()
	issue := &entity.Issue{
		ReporterID:   reporterID,
		DepartmentID: departmentID,
		RoomNo:       req.RoomNo,
		ItemID:       req.ItemID,
		Title:        req.Title,
		Description:  req.Description,
		PhotoURL:     photoURL,
		Status:       entity.StatusPending,
		IsPriority:   false,
		ReportedAt:   now,
		Deadline:     now.Add(entity.DefaultDeadline),
	}

	if err := s.issueRepo.Create(ctx, issue); err != nil {
		if photoURL != nil {
			s.deletePhoto(ctx, *photoURL, reporterID)
		}
		return nil, err
	}
	submitted = true

	s.upvotes.Invalidate(ctx)

	created, err := s.issueRepo.FindByID(ctx, issue.ID)
	if err != nil {
		return nil, err
	}
	s.index(ctx, created)

	resp := buildIssueResponse(created, &upvote.Annotation{}, now)
	return &resp, nil
}

func (s *service) GetFeed(ctx context.Context, viewerID uuid.UUID, filter commonDto.IssueFilter) (*commonDto.IssueListResponse, error) {
	repoFilter := repo.Filter{}
	if filter.DepartmentID != "" {
		id, err := uuid.Parse(filter.DepartmentID)
		if err != nil {
			return nil, apperror.Validation("department_id must be a valid id")
		}
		repoFilter.DepartmentID = &id
	}
	if filter.Status != "" {
		status, err := parseStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		repoFilter.Status = &status
	}

	issues, err := s.issueRepo.FindAll(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return s.annotate(ctx, viewerID, issues, filter.Sort)
}

func (s *service) GetMyIssues(ctx context.Context, viewerID uuid.UUID) (*commonDto.IssueListResponse, error) {
	issues, err := s.issueRepo.FindAll(ctx, repo.Filter{ReporterID: &viewerID})
	if err != nil {
		return nil, err
	}

	return s.annotate(ctx, viewerID, issues, commonDto.SortByRecency)
}

func (s *service) GetIssue(ctx context.Context, viewerID, issueID uuid.UUID) (*commonDto.IssueResponse, error) {
	issue, err := s.issueRepo.FindByID(ctx, issueID)
	if err != nil {
		return nil, err
	}

	list, err := s.annotate(ctx, viewerID, []*entity.Issue{issue}, "")
	if err != nil {
		return nil, err
	}
	return &list.Data[0], nil
}

func (s *service) SearchIssues(ctx context.Context, viewerID uuid.UUID, query issueDto.SearchQuery) (*commonDto.IssueListResponse, error) {
	q := strings.TrimSpace(query.Q)
	if s.meili == nil || q == "" {
		return &commonDto.IssueListResponse{Data: []commonDto.IssueResponse{}}, nil
	}

	var departmentID *uuid.UUID
	if query.DepartmentID != "" {
		id, err := uuid.Parse(query.DepartmentID)
		if err != nil {
			return nil, apperror.Validation("department_id must be a valid id")
		}
		departmentID = &id
	}

	ids, err := s.meili.Search(q, departmentID, 0)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	issues, err := s.issueRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Relevance order from the index is kept.
	return s.annotate(ctx, viewerID, issues, "")
}

func (s *service) UpdateStatus(ctx context.Context, actor policy.Actor, issueID uuid.UUID, status string) (*commonDto.IssueResponse, error) {
	next, err := parseStatus(status)
	if err != nil {
		return nil, err
	}

	issue, err := s.issueRepo.FindByID(ctx, issueID)
	if err != nil {
		return nil, err
	}

	if !policy.CanSetStatus(actor, issue) {
		return nil, fmt.Errorf("only the department's hod or the principal can change this issue: %w", apperror.ErrForbidden)
	}
	scope, ok := policy.StatusScope(actor)
	if !ok {
		return nil, fmt.Errorf("no status rights: %w", apperror.ErrForbidden)
	}

	updated, err := s.issueRepo.UpdateStatus(ctx, issueID, scope, s.rule, next, s.now())
	if err != nil {
		return nil, err
	}

	if issue.Status != updated.Status {
		s.notifyStatusChange(ctx, actor, issue.Status, updated)
	}
	s.index(ctx, updated)

	list, err := s.annotate(ctx, actor.UserID, []*entity.Issue{updated}, "")
	if err != nil {
		return nil, err
	}
	return &list.Data[0], nil
}

func (s *service) DeleteIssue(ctx context.Context, actor policy.Actor, issueID uuid.UUID) error {
	issue, err := s.issueRepo.FindByID(ctx, issueID)
	if err != nil {
		return err
	}

	if !policy.CanDelete(actor, issue) {
		return fmt.Errorf("only the reporter can delete an issue: %w", apperror.ErrForbidden)
	}

	if _, err := s.issueRepo.DeleteOwned(ctx, issueID, actor.UserID); err != nil {
		return err
	}

	// The delete is scoped by reporter; a surviving row means the scope did not match.
	if _, err := s.issueRepo.FindByID(ctx, issueID); err == nil {
		return fmt.Errorf("issue was not deleted: %w", apperror.ErrForbidden)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	if issue.PhotoURL != nil {
		s.deletePhoto(ctx, *issue.PhotoURL, issue.ReporterID)
	}
	s.upvotes.Invalidate(ctx)
	if s.meili != nil {
		if err := s.meili.DeleteIssue(issueID.String()); err != nil {
			slog.WarnContext(ctx, "failed to remove issue from search index", "issue_id", issueID, "error", err)
		}
	}

	return nil
}

func (s *service) HodDashboard(ctx context.Context, actor policy.Actor, query issueDto.DashboardQuery) (*commonDto.IssueListResponse, error) {
	if !policy.CanAccessHodDashboard(actor) {
		return nil, fmt.Errorf("hod role required: %w", apperror.ErrForbidden)
	}
	if actor.DepartmentID == nil {
		return nil, fmt.Errorf("hod has no department: %w", apperror.ErrForbidden)
	}

	return s.dashboard(ctx, actor, actor.DepartmentID, query)
}

func (s *service) PrincipalDashboard(ctx context.Context, actor policy.Actor, query issueDto.DashboardQuery) (*commonDto.IssueListResponse, error) {
	if !policy.CanAccessPrincipalDashboard(actor) {
		return nil, fmt.Errorf("principal role required: %w", apperror.ErrForbidden)
	}

	var departmentID *uuid.UUID
	if query.DepartmentID != "" {
		id, err := uuid.Parse(query.DepartmentID)
		if err != nil {
			return nil, apperror.Validation("department_id must be a valid id")
		}
		departmentID = &id
	}

	return s.dashboard(ctx, actor, departmentID, query)
}

func (s *service) Stats(ctx context.Context, actor policy.Actor, departmentID string) (*commonDto.StatusCounts, error) {
	scope, err := dashboardScope(actor, departmentID)
	if err != nil {
		return nil, err
	}

	counts, err := s.issueRepo.CountByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}

	stats := &commonDto.StatusCounts{
		Pending:      counts[entity.StatusPending],
		Acknowledged: counts[entity.StatusAcknowledged],
		WorkDone:     counts[entity.StatusWorkDone],
	}
	stats.Total = stats.Pending + stats.Acknowledged + stats.WorkDone
	return stats, nil
}

func (s *service) ExportIssues(ctx context.Context, actor policy.Actor, query issueDto.DashboardQuery) ([]byte, error) {
	scope, err := dashboardScope(actor, query.DepartmentID)
	if err != nil {
		return nil, err
	}

	list, err := s.dashboard(ctx, actor, scope, query)
	if err != nil {
		return nil, err
	}

	return writeWorkbook(list.Data)
}

func (s *service) dashboard(ctx context.Context, actor policy.Actor, departmentID *uuid.UUID, query issueDto.DashboardQuery) (*commonDto.IssueListResponse, error) {
	filter := repo.Filter{DepartmentID: departmentID}
	if query.Status != "" {
		status, err := parseStatus(query.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	issues, err := s.issueRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	return s.annotate(ctx, actor.UserID, issues, query.Sort)
}
