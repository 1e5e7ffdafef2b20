//go:build container

package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/internal/testutil/pgtest"
	"anoa.com/campusfix/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) { os.Exit(pgtest.Run(m)) }

func seedIssue(t *testing.T, db *gorm.DB) (*entity.Issue, entity.User) {
	t.Helper()

	dept := pgtest.Department(t, db, "CSE")
	reporter := pgtest.User(t, db, &dept.ID, entity.RoleStudent)
	now := time.Now().UTC()
	issue := &entity.Issue{
		ReporterID:   reporter.ID,
		DepartmentID: dept.ID,
		RoomNo:       "L-2",
		ItemID:       "AC-1",
		Title:        "AC dripping",
		ReportedAt:   now,
		Deadline:     now.Add(entity.DefaultDeadline),
	}
	require.NoError(t, db.Omit("Reporter", "Department").Create(issue).Error)
	return issue, reporter
}

func TestToggleRoundTrip(t *testing.T) {
	db := pgtest.New(t)
	repo := NewUpvoteRepository(db)
	ctx := context.Background()
	issue, _ := seedIssue(t, db)
	voter := pgtest.User(t, db, nil, entity.RoleStudent)
	other := pgtest.User(t, db, nil, entity.RoleStudent)

	on, err := repo.Toggle(ctx, issue.ID, voter.ID)
	require.NoError(t, err)
	assert.True(t, on)
	_, err = repo.Toggle(ctx, issue.ID, other.ID)
	require.NoError(t, err)

	count, err := repo.CountForIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	upvoted, err := repo.UpvotedIssueIDs(ctx, voter.ID, []uuid.UUID{issue.ID, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]bool{issue.ID: true}, upvoted)

	off, err := repo.Toggle(ctx, issue.ID, voter.ID)
	require.NoError(t, err)
	assert.False(t, off)

	all, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int64{issue.ID: 1}, all)

	batch, err := repo.CountByIssues(ctx, []uuid.UUID{issue.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, batch[issue.ID])
}

func TestToggleLosingInsertRaceCountsAsUpvoted(t *testing.T) {
	db := pgtest.New(t)
	repo := NewUpvoteRepository(db)
	ctx := context.Background()
	issue, _ := seedIssue(t, db)
	voter := pgtest.User(t, db, nil, entity.RoleStudent)

	// Another request commits the same upvote between Toggle's lookup and its insert.
	raced := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:concurrent_upvote", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "upvotes" {
			return
		}
		raced = true
		err := db.Exec("INSERT INTO upvotes (id, issue_id, user_id, created_at) VALUES (?, ?, ?, now())",
			uuid.Must(uuid.NewV7()), issue.ID, voter.ID).Error
		require.NoError(t, err)
	}))

	on, err := repo.Toggle(ctx, issue.ID, voter.ID)
	require.NoError(t, err)
	assert.True(t, raced)
	assert.True(t, on)

	count, err := repo.CountForIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestDuplicateUpvoteIsTranslated(t *testing.T) {
	db := pgtest.New(t)
	issue, _ := seedIssue(t, db)
	voter := pgtest.User(t, db, nil, entity.RoleStudent)

	require.NoError(t, db.Omit("Issue", "User").Create(&entity.Upvote{IssueID: issue.ID, UserID: voter.ID}).Error)
	err := db.Omit("Issue", "User").Create(&entity.Upvote{IssueID: issue.ID, UserID: voter.ID}).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)
}

func TestToggleMissingIssue(t *testing.T) {
	db := pgtest.New(t)
	repo := NewUpvoteRepository(db)
	voter := pgtest.User(t, db, nil, entity.RoleStudent)

	_, err := repo.Toggle(context.Background(), uuid.New(), voter.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
