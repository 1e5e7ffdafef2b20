package issue

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/pkg/apperror"
	commonDto "anoa.com/campusfix/pkg/dto"
	"anoa.com/campusfix/pkg/ratelimiter"
	"anoa.com/campusfix/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	upvote "anoa.com/campusfix/internal/modules/upvote/service"
)

var statusLabels = map[entity.IssueStatus]string{
	entity.StatusPending:      "pending",
	entity.StatusAcknowledged: "acknowledged",
	entity.StatusWorkDone:     "work done",
}

func parseStatus(raw string) (entity.IssueStatus, error) {
	if !policy.ValidStatus(raw) {
		return "", apperror.Validation("status must be one of [pending acknowledged work_done]")
	}
	return entity.IssueStatus(raw), nil
}

// dashboardScope picks the department a dashboard-level read is limited to.
// Principals may pick any department or none; HoDs are pinned to their own.
func dashboardScope(actor policy.Actor, requested string) (*uuid.UUID, error) {
	if policy.CanAccessPrincipalDashboard(actor) {
		if requested == "" {
			return nil, nil
		}
		id, err := uuid.Parse(requested)
		if err != nil {
			return nil, apperror.Validation("department_id must be a valid id")
		}
		return &id, nil
	}

	if policy.CanAccessHodDashboard(actor) {
		if actor.DepartmentID == nil {
			return nil, fmt.Errorf("hod has no department: %w", apperror.ErrForbidden)
		}
		return actor.DepartmentID, nil
	}

	return nil, fmt.Errorf("hod or principal role required: %w", apperror.ErrForbidden)
}

func (s *service) plainText(raw string) string {
	cleaned := html.UnescapeString(s.sanitizer.Sanitize(raw))
	return strings.TrimSpace(cleaned)
}

func (s *service) annotate(ctx context.Context, viewerID uuid.UUID, issues []*entity.Issue, sortMode string) (*commonDto.IssueListResponse, error) {
	ids := make([]uuid.UUID, 0, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue.ID)
	}

	ann, err := s.upvotes.Annotate(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	responses := make([]commonDto.IssueResponse, 0, len(issues))
	for _, issue := range issues {
		responses = append(responses, buildIssueResponse(issue, ann, now))
	}

	if sortMode != "" {
		SortIssues(responses, sortMode)
	}

	return &commonDto.IssueListResponse{
		Data:  responses,
		Total: len(responses),
	}, nil
}

func buildIssueResponse(issue *entity.Issue, ann *upvote.Annotation, now time.Time) commonDto.IssueResponse {
	resp := commonDto.IssueResponse{
		ID:            issue.ID,
		Title:         issue.Title,
		Description:   issue.Description,
		RoomNo:        issue.RoomNo,
		ItemID:        issue.ItemID,
		PhotoURL:      issue.PhotoURL,
		Status:        string(issue.Status),
		IsPriority:    issue.IsPriority,
		ReportedAt:    issue.ReportedAt,
		Deadline:      issue.Deadline,
		ResolvedAt:    issue.ResolvedAt,
		DaysRemaining: policy.DaysRemaining(issue.Deadline, now),
		UpvoteCount:   ann.Count(issue.ID),
		HasUpvoted:    ann.HasUpvoted(issue.ID),
	}

	if issue.Department != nil {
		resp.Department = &commonDto.DepartmentResponse{
			ID:   issue.Department.ID,
			Name: issue.Department.Name,
			Code: issue.Department.Code,
		}
	}
	if issue.Reporter != nil {
		resp.Reporter = &commonDto.ReporterResponse{
			ID:        issue.Reporter.UserID,
			FullName:  issue.Reporter.FullName,
			CollegeID: issue.Reporter.CollegeID,
		}
	}

	return resp
}

// checkSubmitRateLimit starts the per-user submission cooldown. The returned
// cleanup lifts it again when the submission does not go through.
func (s *service) checkSubmitRateLimit(ctx context.Context, userID uuid.UUID) (func(), error) {
	allowed, err := ratelimiter.CheckAndSetRateLimit(ctx, s.redisClient, userID, ratelimiter.ScopeIssue, s.cooldown)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		ttl, _ := ratelimiter.GetRateLimitTTL(ctx, s.redisClient, userID, ratelimiter.ScopeIssue)
		return nil, &ratelimiter.RateLimitError{
			Message:    fmt.Sprintf("you are reporting too fast, please wait %.0f seconds", ttl.Seconds()),
			RetryAfter: ttl,
		}
	}

	return func() {
		_ = ratelimiter.ClearRateLimit(context.WithoutCancel(ctx), s.redisClient, userID, ratelimiter.ScopeIssue)
	}, nil
}

func (s *service) uploadPhoto(ctx context.Context, reporterID uuid.UUID, photo *commonDto.PhotoFile) (string, error) {
	if s.fileStorage == nil {
		return "", fmt.Errorf("photo storage is not configured: %w", apperror.ErrStorage)
	}

	url, err := s.fileStorage.UploadImage(ctx, photo.Reader, storage.IssuePhotoFolder(reporterID), photo.FileName)
	if err != nil {
		return "", fmt.Errorf("%w: failed to upload photo: %v", apperror.ErrStorage, err)
	}
	if url == "" {
		return "", fmt.Errorf("photo upload returned no url: %w", apperror.ErrStorage)
	}
	return url, nil
}

// deletePhoto is best effort and only touches objects under the reporter's folder.
func (s *service) deletePhoto(ctx context.Context, fileURL string, reporterID uuid.UUID) {
	if s.fileStorage == nil || !storage.OwnsObject(fileURL, reporterID) {
		return
	}
	if err := s.fileStorage.DeleteImage(context.WithoutCancel(ctx), fileURL); err != nil {
		slog.WarnContext(ctx, "failed to delete issue photo", "url", fileURL, "error", err)
	}
}

func (s *service) index(ctx context.Context, issue *entity.Issue) {
	if s.meili == nil {
		return
	}
	if err := s.meili.IndexIssue(issue); err != nil {
		slog.WarnContext(ctx, "failed to index issue", "issue_id", issue.ID, "error", err)
	}
}

func (s *service) notifyStatusChange(ctx context.Context, actor policy.Actor, previous entity.IssueStatus, issue *entity.Issue) {
	if s.notifier == nil || issue.ReporterID == actor.UserID {
		return
	}

	issueID := issue.ID
	notification := &entity.Notification{
		UserID:  issue.ReporterID,
		IssueID: &issueID,
		Type:    entity.NotificationStatusChanged,
		Title:   "Issue status updated",
		Message: fmt.Sprintf("Your report %q is now %s.", issue.Title, statusLabels[issue.Status]),
		Metadata: datatypes.JSONMap{
			"from":     string(previous),
			"to":       string(issue.Status),
			"actor_id": actor.UserID.String(),
		},
	}

	if err := s.notifier.CreateNotification(ctx, notification); err != nil {
		slog.WarnContext(ctx, "failed to notify reporter", "issue_id", issue.ID, "error", err)
	}
}
