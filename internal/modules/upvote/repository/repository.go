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

type UpvoteRepository interface {
	// Toggle deletes the (issue, user) upvote if present, otherwise inserts it.
	// It reports whether the user holds an upvote afterwards.
	Toggle(ctx context.Context, issueID, userID uuid.UUID) (bool, error)
	CountForIssue(ctx context.Context, issueID uuid.UUID) (int64, error)
	CountByIssues(ctx context.Context, issueIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	CountAll(ctx context.Context) (map[uuid.UUID]int64, error)
	UpvotedIssueIDs(ctx context.Context, userID uuid.UUID, issueIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type upvoteRepository struct {
	db *gorm.DB
}

func NewUpvoteRepository(db *gorm.DB) UpvoteRepository {
	return &upvoteRepository{db: db}
}

func (r *upvoteRepository) Toggle(ctx context.Context, issueID, userID uuid.UUID) (bool, error) {
	// Find with a slice avoids gorm's record-not-found log noise.
	var existing []entity.Upvote
	if err := r.db.WithContext(ctx).
		Where("issue_id = ? AND user_id = ?", issueID, userID).
		Limit(1).
		Find(&existing).Error; err != nil {
		return false, err
	}

	if len(existing) > 0 {
		if err := r.db.WithContext(ctx).Delete(&existing[0]).Error; err != nil {
			return false, err
		}
		return false, nil
	}

	upvote := &entity.Upvote{IssueID: issueID, UserID: userID}
	if err := r.db.WithContext(ctx).Omit("Issue", "User").Create(upvote).Error; err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			// A concurrent toggle inserted first; the row exists, which is what we wanted.
			return true, nil
		case errors.Is(err, gorm.ErrForeignKeyViolated):
			return false, fmt.Errorf("issue not found: %w", apperror.ErrNotFound)
		}
		return false, err
	}
	return true, nil
}

func (r *upvoteRepository) CountForIssue(ctx context.Context, issueID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Upvote{}).
		Where("issue_id = ?", issueID).
		Count(&count).Error
	return count, err
}

type issueCount struct {
	IssueID uuid.UUID
	Count   int64
}

func (r *upvoteRepository) CountByIssues(ctx context.Context, issueIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(issueIDs))
	if len(issueIDs) == 0 {
		return counts, nil
	}

	var results []issueCount
	if err := r.db.WithContext(ctx).
		Model(&entity.Upvote{}).
		Select("issue_id, count(*) as count").
		Where("issue_id IN ?", issueIDs).
		Group("issue_id").
		Scan(&results).Error; err != nil {
		return nil, err
	}

	for _, res := range results {
		counts[res.IssueID] = res.Count
	}
	return counts, nil
}

func (r *upvoteRepository) CountAll(ctx context.Context) (map[uuid.UUID]int64, error) {
	var results []issueCount
	if err := r.db.WithContext(ctx).
		Model(&entity.Upvote{}).
		Select("issue_id, count(*) as count").
		Group("issue_id").
		Scan(&results).Error; err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int64, len(results))
	for _, res := range results {
		counts[res.IssueID] = res.Count
	}
	return counts, nil
}

func (r *upvoteRepository) UpvotedIssueIDs(ctx context.Context, userID uuid.UUID, issueIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	upvoted := make(map[uuid.UUID]bool)
	if len(issueIDs) == 0 {
		return upvoted, nil
	}

	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&entity.Upvote{}).
		Where("user_id = ? AND issue_id IN ?", userID, issueIDs).
		Pluck("issue_id", &ids).Error; err != nil {
		return nil, err
	}

	for _, id := range ids {
		upvoted[id] = true
	}
	return upvoted, nil
}
