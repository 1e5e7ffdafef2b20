package upvote

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	issueRepo "anoa.com/campusfix/internal/modules/issue/repository"
	upvoteDto "anoa.com/campusfix/internal/modules/upvote/dto"
	upvoteRepo "anoa.com/campusfix/internal/modules/upvote/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CountsKey holds the upvote count of every issue that has at least one upvote.
	CountsKey = "issues:upvote_counts"
	// loadedField marks CountsKey as fully populated, so an issue missing from
	// the hash has zero upvotes rather than an unknown count.
	loadedField = "_loaded"
	// GenerationKey is bumped by every invalidation. A rebuild only lands if
	// the generation it started from is still current.
	GenerationKey = "issues:upvote_counts:gen"
)

var errCountsOutdated = errors.New("upvote counts changed during rebuild")

// Annotation is the per-viewer upvote state of a batch of issues.
type Annotation struct {
	Counts  map[uuid.UUID]int64
	Upvoted map[uuid.UUID]bool
}

func (a *Annotation) Count(id uuid.UUID) int64 {
	return a.Counts[id]
}

func (a *Annotation) HasUpvoted(id uuid.UUID) bool {
	return a.Upvoted[id]
}

type UpvoteService interface {
	ToggleUpvote(ctx context.Context, issueID, userID uuid.UUID) (*upvoteDto.ToggleUpvoteResponse, error)
	// Annotate resolves counts with one aggregate and the viewer's upvotes with one lookup.
	Annotate(ctx context.Context, viewerID uuid.UUID, issueIDs []uuid.UUID) (*Annotation, error)
	// Invalidate drops cached counts; the next Annotate refetches them.
	Invalidate(ctx context.Context)
}

type upvoteService struct {
	repo        upvoteRepo.UpvoteRepository
	issueRepo   issueRepo.Repository
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewUpvoteService(repo upvoteRepo.UpvoteRepository, issueRepo issueRepo.Repository, redisClient *redis.Client, cacheTTL time.Duration) UpvoteService {
	return &upvoteService{
		repo:        repo,
		issueRepo:   issueRepo,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

func (s *upvoteService) ToggleUpvote(ctx context.Context, issueID, userID uuid.UUID) (*upvoteDto.ToggleUpvoteResponse, error) {
	if _, err := s.issueRepo.FindByID(ctx, issueID); err != nil {
		return nil, err
	}

	hasUpvoted, err := s.repo.Toggle(ctx, issueID, userID)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx)

	count, err := s.repo.CountForIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	return &upvoteDto.ToggleUpvoteResponse{
		IssueID:     issueID,
		HasUpvoted:  hasUpvoted,
		UpvoteCount: count,
	}, nil
}

func (s *upvoteService) Annotate(ctx context.Context, viewerID uuid.UUID, issueIDs []uuid.UUID) (*Annotation, error) {
	counts, err := s.counts(ctx, issueIDs)
	if err != nil {
		return nil, err
	}

	upvoted, err := s.repo.UpvotedIssueIDs(ctx, viewerID, issueIDs)
	if err != nil {
		return nil, err
	}

	return &Annotation{Counts: counts, Upvoted: upvoted}, nil
}

func (s *upvoteService) Invalidate(ctx context.Context) {
	if s.redisClient == nil {
		return
	}
	pipe := s.redisClient.TxPipeline()
	pipe.Incr(ctx, GenerationKey)
	pipe.Del(ctx, CountsKey)
	if _, err := pipe.Exec(ctx); err != nil {
		slog.WarnContext(ctx, "failed to invalidate upvote counts", "error", err)
	}
}

func (s *upvoteService) counts(ctx context.Context, issueIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	if s.redisClient == nil {
		return s.repo.CountByIssues(ctx, issueIDs)
	}

	if cached, ok := s.cachedCounts(ctx, issueIDs); ok {
		return cached, nil
	}

	gen, genErr := s.generation(ctx, s.redisClient)
	all, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		s.storeCounts(ctx, gen, all)
	} else {
		slog.WarnContext(ctx, "failed to read upvote counts generation", "error", genErr)
	}

	counts := make(map[uuid.UUID]int64, len(issueIDs))
	for _, id := range issueIDs {
		if n, ok := all[id]; ok {
			counts[id] = n
		}
	}
	return counts, nil
}

func (s *upvoteService) cachedCounts(ctx context.Context, issueIDs []uuid.UUID) (map[uuid.UUID]int64, bool) {
	val, err := s.redisClient.HGetAll(ctx, CountsKey).Result()
	if err != nil {
		slog.WarnContext(ctx, "failed to read upvote counts from redis", "error", err)
		return nil, false
	}
	if _, loaded := val[loadedField]; !loaded {
		return nil, false
	}

	counts := make(map[uuid.UUID]int64, len(issueIDs))
	for _, id := range issueIDs {
		raw, ok := val[id.String()]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		counts[id] = n
	}
	return counts, true
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *upvoteService) generation(ctx context.Context, cmd stringGetter) (int64, error) {
	gen, err := cmd.Get(ctx, GenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// storeCounts writes the hash only while GenerationKey still equals gen, so
// counts read before a concurrent toggle never outlive its invalidation.
func (s *upvoteService) storeCounts(ctx context.Context, gen int64, all map[uuid.UUID]int64) {
	fields := make([]any, 0, 2*len(all)+2)
	fields = append(fields, loadedField, 1)
	for id, n := range all {
		fields = append(fields, id.String(), n)
	}

	err := s.redisClient.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.generation(ctx, tx)
		if err != nil {
			return err
		}
		if current != gen {
			return errCountsOutdated
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, CountsKey)
			pipe.HSet(ctx, CountsKey, fields...)
			if s.cacheTTL > 0 {
				pipe.Expire(ctx, CountsKey, s.cacheTTL)
			}
			return nil
		})
		return err
	}, GenerationKey)

	switch {
	case err == nil:
	case errors.Is(err, errCountsOutdated), errors.Is(err, redis.TxFailedErr):
		slog.DebugContext(ctx, "skipped caching outdated upvote counts")
	default:
		slog.WarnContext(ctx, "failed to cache upvote counts", "error", err)
	}
}
