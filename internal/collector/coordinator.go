package collector

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/soonerrob/rSearch/internal/models"
	"github.com/soonerrob/rSearch/internal/reddit"
	"github.com/soonerrob/rSearch/internal/store"
	"github.com/soonerrob/rSearch/pkg/config"
	"github.com/soonerrob/rSearch/pkg/logging"
	"github.com/soonerrob/rSearch/pkg/telemetry"
)

// Mode selects how much of an audience's timeframe a run covers
type Mode string

const (
	// ModeInitial fetches the full configured timeframe and generates themes
	ModeInitial Mode = "initial"
	// ModeIncremental fetches only content newer than the last completed run
	ModeIncremental Mode = "incremental"
)

var (
	ErrAlreadyCollecting = errors.New("collection already in progress")
	ErrAudienceNotFound  = errors.New("audience not found")
	ErrNoCommunities     = errors.New("audience has no communities")
	ErrNoPosts           = errors.New("no posts found for audience")
)

// Store is the persistence surface a collection run needs
type Store interface {
	Audience(ctx context.Context, id int64) (*models.Audience, error)
	StartCollection(ctx context.Context, id int64) error
	SetProgress(ctx context.Context, id int64, progress float64) error
	CompleteCollection(ctx context.Context, id int64, finishedAt time.Time) error
	UpsertCommunity(ctx context.Context, community *models.Community) error
	SavePost(ctx context.Context, post *models.Post) (*models.Post, error)
	KnownCommentIDs(ctx context.Context, postID int64) (map[string]struct{}, error)
	SaveComments(ctx context.Context, comments []*models.Comment) error
}

// RecoveryStore resets a failed run's collection flags. It is held
// separately from Store because the handle used by the failed run may
// itself be broken; implementations should open a fresh session.
type RecoveryStore interface {
	ResetCollectionState(ctx context.Context, id int64) error
}

// Source is the content-source surface a collection run needs
type Source interface {
	CommunityPosts(ctx context.Context, community, sort, timeframe string, limit int) ([]*reddit.PostPayload, error)
	PostComments(ctx context.Context, postID string) ([]*reddit.CommentPayload, error)
	CommunityInfo(ctx context.Context, community string) (*reddit.CommunityPayload, error)
	Limiter() *reddit.RateLimiter
}

// Analyzer classifies persisted posts and materializes audience themes
type Analyzer interface {
	AnalyzePost(ctx context.Context, post *models.Post, comments []*models.Comment) error
	GenerateThemes(ctx context.Context, audienceID int64) error
}

// Coordinator drives collection runs for audiences, one at a time. It
// owns the audience's collecting flags for the duration of a run and
// guarantees they return to a terminal state on any outcome.
type Coordinator struct {
	cfg      *config.CollectorConfig
	store    Store
	recovery RecoveryStore
	source   Source
	analyzer Analyzer
	trees    *TreeBuilder
	logger   *zap.Logger
}

// NewCoordinator creates a collection coordinator
func NewCoordinator(cfg *config.CollectorConfig, store Store, recovery RecoveryStore, source Source, analyzer Analyzer) *Coordinator {
	trees := NewTreeBuilder(TreeFilters{
		MaxDepth:        cfg.CommentMaxDepth,
		MinScoreByDepth: map[int]int{0: 5, 1: 4, 2: 3, 3: 2},
		DefaultMinScore: cfg.CommentMinScore,
		MinLength:       cfg.CommentMinLength,
	})

	return &Coordinator{
		cfg:      cfg,
		store:    store,
		recovery: recovery,
		source:   source,
		analyzer: analyzer,
		trees:    trees,
		logger:   logging.GetLogger().With(zap.String("component", "coordinator")),
	}
}

// Collect runs one collection pass for the audience. It refuses to start
// while another run holds the audience, and on any error or cancellation
// resets the collecting flags through the recovery store before
// returning the original error.
func (c *Coordinator) Collect(ctx context.Context, audienceID int64, mode Mode) error {
	ctx, span := telemetry.StartSpan(ctx, "collector.collect")
	defer span.End()

	audience, err := c.store.Audience(ctx, audienceID)
	if err != nil {
		return err
	}
	if audience == nil {
		return ErrAudienceNotFound
	}
	if audience.IsCollecting {
		return ErrAlreadyCollecting
	}
	if len(audience.Communities) == 0 {
		return ErrNoCommunities
	}

	if err := c.store.StartCollection(ctx, audienceID); err != nil {
		if errors.Is(err, store.ErrConcurrentRun) {
			return ErrAlreadyCollecting
		}
		return err
	}

	c.logger.Info("Collection started",
		zap.Int64("audience_id", audienceID),
		zap.String("mode", string(mode)),
		zap.Int("communities", len(audience.Communities)))

	if err := c.run(ctx, audience, mode); err != nil {
		c.logger.Error("Collection failed",
			zap.Int64("audience_id", audienceID),
			zap.String("mode", string(mode)),
			zap.Error(err))
		c.recoverState(audienceID)
		return err
	}

	c.logger.Info("Collection completed",
		zap.Int64("audience_id", audienceID),
		zap.String("mode", string(mode)))

	return nil
}

func (c *Coordinator) run(ctx context.Context, audience *models.Audience, mode Mode) error {
	total := len(audience.Communities)
	collected := 0

	for idx, membership := range audience.Communities {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := models.NormalizeCommunityName(membership.CommunityName)
		c.refreshCommunity(ctx, name)

		posts, err := c.collectPosts(ctx, audience, name, mode)
		if err != nil {
			return err
		}
		collected += len(posts)

		if err := c.collectComments(ctx, audience, posts, idx, total); err != nil {
			return err
		}

		progress := float64(idx+1) / float64(total) * 100
		if err := c.store.SetProgress(ctx, audience.ID, progress); err != nil {
			return err
		}

		c.logger.Info("Community processed",
			zap.Int64("audience_id", audience.ID),
			zap.String("community", name),
			zap.Int("posts", len(posts)),
			zap.Float64("progress", progress))
	}

	if mode == ModeInitial && collected == 0 {
		return ErrNoPosts
	}

	if err := c.store.CompleteCollection(ctx, audience.ID, time.Now().UTC()); err != nil {
		return err
	}

	if mode == ModeInitial {
		if err := c.analyzer.GenerateThemes(ctx, audience.ID); err != nil {
			return err
		}
	}

	return nil
}

// refreshCommunity updates stored community metadata. Failures here are
// logged and skipped; stale metadata never aborts a run.
func (c *Coordinator) refreshCommunity(ctx context.Context, name string) {
	info, err := c.source.CommunityInfo(ctx, name)
	if err != nil {
		c.logger.Warn("Failed to refresh community metadata",
			zap.String("community", name), zap.Error(err))
		return
	}

	community := &models.Community{
		Name:        models.NormalizeCommunityName(info.Name),
		DisplayName: info.Name,
		Subscribers: info.Subscribers,
	}
	if info.PublicDescription != "" {
		community.Description.String = info.PublicDescription
		community.Description.Valid = true
	}
	if info.ActiveUserCount != nil {
		community.ActiveUsers.Int64 = *info.ActiveUserCount
		community.ActiveUsers.Valid = true
	}

	if err := c.store.UpsertCommunity(ctx, community); err != nil {
		c.logger.Warn("Failed to persist community metadata",
			zap.String("community", name), zap.Error(err))
	}
}

// collectPosts fetches, filters, scores and persists one community's
// posts for the run, returning the saved rows in arrival order.
func (c *Coordinator) collectPosts(ctx context.Context, audience *models.Audience, community string, mode Mode) ([]*models.Post, error) {
	limit := audience.PostsPerCommunity
	if limit <= 0 {
		limit = c.cfg.PostsPerCommunity
	}

	var fetched []sortedPayload
	var err error
	if mode == ModeIncremental {
		fetched, err = c.fetchIncremental(ctx, audience, community, limit)
	} else {
		fetched, err = fetchDistributed(ctx, c.source, community, audience.Timeframe, limit)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	saved := make([]*models.Post, 0, len(fetched))
	for _, item := range fetched {
		post := buildPost(item.payload, community, item.sort, now)
		if post == nil {
			continue
		}
		row, err := c.store.SavePost(ctx, post)
		if err != nil {
			return nil, err
		}
		saved = append(saved, row)
	}

	return saved, nil
}

// fetchIncremental pulls the newest posts in the shortest timeframe
// window and keeps only those created after the last completed run.
func (c *Coordinator) fetchIncremental(ctx context.Context, audience *models.Audience, community string, limit int) ([]sortedPayload, error) {
	payloads, err := c.source.CommunityPosts(ctx, community, reddit.SortNew, models.TimeframeHour, limit)
	if err != nil {
		return nil, err
	}

	var out []sortedPayload
	for _, p := range payloads {
		if audience.LastCollectionTime.Valid && !p.CreatedAt().After(audience.LastCollectionTime.Time) {
			continue
		}
		out = append(out, sortedPayload{payload: p, sort: reddit.SortNew})
	}
	return out, nil
}

// collectComments fetches and persists the comment trees for one
// community's posts, advancing progress per post. Per-post fetch
// failures are skipped by the batch helper; persistence failures abort.
func (c *Coordinator) collectComments(ctx context.Context, audience *models.Audience, posts []*models.Post, communityIdx, totalCommunities int) error {
	if len(posts) == 0 {
		return nil
	}

	done := 0
	_, err := reddit.BatchFetch(ctx, c.source.Limiter(), posts, "collect_comments",
		func(ctx context.Context, post *models.Post) (struct{}, error) {
			forest, err := c.source.PostComments(ctx, post.ExternalID)
			if err != nil {
				return struct{}{}, err
			}

			known, err := c.store.KnownCommentIDs(ctx, post.ID)
			if err != nil {
				return struct{}{}, err
			}

			comments := c.trees.Build(forest, post.ID, known)
			if len(comments) > 0 {
				if err := c.store.SaveComments(ctx, comments); err != nil {
					return struct{}{}, err
				}
			}

			if err := c.analyzer.AnalyzePost(ctx, post, comments); err != nil {
				c.logger.Warn("Post analysis failed",
					zap.String("external_id", post.ExternalID), zap.Error(err))
			}

			done++
			progress := (float64(communityIdx) + float64(done)/float64(len(posts))) / float64(totalCommunities) * 100
			if err := c.store.SetProgress(ctx, audience.ID, progress); err != nil {
				return struct{}{}, err
			}

			return struct{}{}, nil
		})
	return err
}

// recoverState resets the audience's collecting flags after a failed or
// cancelled run. It deliberately uses a fresh context and the isolated
// recovery store: the run's context may already be cancelled and its
// store handle broken.
func (c *Coordinator) recoverState(audienceID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.recovery.ResetCollectionState(ctx, audienceID); err != nil {
		c.logger.Error("Failed to reset collection state",
			zap.Int64("audience_id", audienceID), zap.Error(err))
	}
}
