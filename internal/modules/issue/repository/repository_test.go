//go:build container

package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"anoa.com/campusfix/internal/entity"
	"anoa.com/campusfix/internal/policy"
	"anoa.com/campusfix/internal/testutil/pgtest"
	"anoa.com/campusfix/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) { os.Exit(pgtest.Run(m)) }

type fixture struct {
	db       *gorm.DB
	repo     Repository
	cse      entity.Department
	mech     entity.Department
	reporter entity.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := pgtest.New(t)
	cse := pgtest.Department(t, db, "CSE")
	mech := pgtest.Department(t, db, "MECH")
	return &fixture{
		db:       db,
		repo:     NewRepository(db),
		cse:      cse,
		mech:     mech,
		reporter: pgtest.User(t, db, &cse.ID, entity.RoleStudent),
	}
}

func (f *fixture) issue(t *testing.T, dept uuid.UUID, title string, reportedAt time.Time) *entity.Issue {
	t.Helper()

	issue := &entity.Issue{
		ReporterID:   f.reporter.ID,
		DepartmentID: dept,
		RoomNo:       "B-101",
		ItemID:       "FAN-3",
		Title:        title,
		Status:       entity.StatusPending,
		ReportedAt:   reportedAt,
		Deadline:     reportedAt.Add(entity.DefaultDeadline),
	}
	require.NoError(t, f.repo.Create(context.Background(), issue))
	return issue
}

func TestCreateUnknownDepartment(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	err := f.repo.Create(context.Background(), &entity.Issue{
		ReporterID:   f.reporter.ID,
		DepartmentID: uuid.New(),
		RoomNo:       "A-1",
		ItemID:       "X",
		Title:        "Broken desk",
		ReportedAt:   now,
		Deadline:     now.Add(entity.DefaultDeadline),
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestFindAllOrderAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	old := f.issue(t, f.cse.ID, "old", base)
	mid := f.issue(t, f.mech.ID, "mid", base.Add(time.Hour))
	recent := f.issue(t, f.cse.ID, "recent", base.Add(2*time.Hour))

	all, err := f.repo.FindAll(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{recent.ID, mid.ID, old.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})
	require.NotNil(t, all[0].Department)
	assert.Equal(t, "CSE", all[0].Department.Code)
	require.NotNil(t, all[0].Reporter)

	cseOnly, err := f.repo.FindAll(ctx, Filter{DepartmentID: &f.cse.ID})
	require.NoError(t, err)
	assert.Len(t, cseOnly, 2)

	byIDs, err := f.repo.FindByIDs(ctx, []uuid.UUID{old.ID, uuid.New(), recent.ID})
	require.NoError(t, err)
	require.Len(t, byIDs, 2)
	assert.Equal(t, old.ID, byIDs[0].ID)
	assert.Equal(t, recent.ID, byIDs[1].ID)

	counts, err := f.repo.CountByStatus(ctx, &f.cse.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[entity.StatusPending])
}

func TestUpdateStatusScopedToDepartment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	issue := f.issue(t, f.mech.ID, "Leaking tap", now)

	_, err := f.repo.UpdateStatus(ctx, issue.ID, &f.cse.ID, policy.KeepFirstResolution{}, entity.StatusWorkDone, now)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	stored, err := f.repo.FindByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, stored.Status)
	assert.Nil(t, stored.ResolvedAt)

	updated, err := f.repo.UpdateStatus(ctx, issue.ID, &f.mech.ID, policy.KeepFirstResolution{}, entity.StatusAcknowledged, now)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAcknowledged, updated.Status)

	_, err = f.repo.UpdateStatus(ctx, uuid.New(), nil, policy.KeepFirstResolution{}, entity.StatusWorkDone, now)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateStatusResolutionRules(t *testing.T) {
	t1 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	tests := []struct {
		name         string
		rule         policy.ResolutionRule
		wantReopened *time.Time
	}{
		{"keep first", policy.KeepFirstResolution{}, &t1},
		{"clear on reopen", policy.ClearOnReopen{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			issue := f.issue(t, f.cse.ID, "Projector flickers", t1.Add(-time.Hour))

			done, err := f.repo.UpdateStatus(ctx, issue.ID, nil, tt.rule, entity.StatusWorkDone, t1)
			require.NoError(t, err)
			require.NotNil(t, done.ResolvedAt)
			assert.True(t, done.ResolvedAt.Equal(t1))

			reopened, err := f.repo.UpdateStatus(ctx, issue.ID, nil, tt.rule, entity.StatusPending, t2)
			require.NoError(t, err)
			assert.Equal(t, entity.StatusPending, reopened.Status)
			if tt.wantReopened == nil {
				assert.Nil(t, reopened.ResolvedAt)
			} else {
				require.NotNil(t, reopened.ResolvedAt)
				assert.True(t, reopened.ResolvedAt.Equal(*tt.wantReopened))
			}
		})
	}
}

func TestUpdateStatusConcurrentWritesStayConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	issue := f.issue(t, f.cse.ID, "Lift stuck", now)

	statuses := []entity.IssueStatus{entity.StatusWorkDone, entity.StatusPending}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.repo.UpdateStatus(ctx, issue.ID, nil, policy.ClearOnReopen{}, statuses[i%2], now.Add(time.Duration(i)*time.Second))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	final, err := f.repo.FindByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, final.Status == entity.StatusWorkDone, final.ResolvedAt != nil,
		"resolved_at must track status, got status=%s resolved_at=%v", final.Status, final.ResolvedAt)
}

func TestDeleteOwnedScopedToReporter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issue := f.issue(t, f.cse.ID, "Broken window", time.Now().UTC())
	stranger := pgtest.User(t, f.db, &f.cse.ID, entity.RoleStudent, entity.RolePrincipal)

	n, err := f.repo.DeleteOwned(ctx, issue.ID, stranger.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = f.repo.FindByID(ctx, issue.ID)
	require.NoError(t, err)

	n, err = f.repo.DeleteOwned(ctx, issue.ID, f.reporter.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = f.repo.FindByID(ctx, issue.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	remaining, err := f.repo.FindAll(ctx, Filter{ReporterID: &f.reporter.ID})
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
