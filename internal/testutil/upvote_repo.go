package testutil

import (
	"context"
	"sync"

	upvoteRepo "anoa.com/campusfix/internal/modules/upvote/repository"
	"github.com/google/uuid"
)

type UpvoteRepo struct {
	mu    sync.Mutex
	votes map[uuid.UUID]map[uuid.UUID]bool

	// Calls counts aggregate queries so tests can tell cache hits from misses.
	CountAllCalls      int
	CountByIssuesCalls int

	// AfterCountAll runs once CountAll has computed its result, outside the lock.
	AfterCountAll func()
}

func NewUpvoteRepo() *UpvoteRepo {
	return &UpvoteRepo{votes: make(map[uuid.UUID]map[uuid.UUID]bool)}
}

func (r *UpvoteRepo) Toggle(_ context.Context, issueID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	voters := r.votes[issueID]
	if voters[userID] {
		delete(voters, userID)
		return false, nil
	}
	if voters == nil {
		voters = make(map[uuid.UUID]bool)
		r.votes[issueID] = voters
	}
	voters[userID] = true
	return true, nil
}

func (r *UpvoteRepo) CountForIssue(_ context.Context, issueID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.votes[issueID])), nil
}

func (r *UpvoteRepo) CountByIssues(_ context.Context, issueIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CountByIssuesCalls++
	counts := make(map[uuid.UUID]int64)
	for _, id := range issueIDs {
		if n := len(r.votes[id]); n > 0 {
			counts[id] = int64(n)
		}
	}
	return counts, nil
}

func (r *UpvoteRepo) CountAll(_ context.Context) (map[uuid.UUID]int64, error) {
	r.mu.Lock()
	r.CountAllCalls++
	counts := make(map[uuid.UUID]int64)
	for id, voters := range r.votes {
		if n := len(voters); n > 0 {
			counts[id] = int64(n)
		}
	}
	hook := r.AfterCountAll
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	return counts, nil
}

func (r *UpvoteRepo) UpvotedIssueIDs(_ context.Context, userID uuid.UUID, issueIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[uuid.UUID]bool)
	for _, id := range issueIDs {
		if r.votes[id][userID] {
			out[id] = true
		}
	}
	return out, nil
}

// Seed adds n distinct voters to an issue.
func (r *UpvoteRepo) Seed(issueID uuid.UUID, n int) {
	for i := 0; i < n; i++ {
		_, _ = r.Toggle(context.Background(), issueID, uuid.New())
	}
}

var _ upvoteRepo.UpvoteRepository = (*UpvoteRepo)(nil)
