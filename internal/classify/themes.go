package classify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/soonerrob/rSearch/internal/models"
	"github.com/soonerrob/rSearch/pkg/logging"
	"github.com/soonerrob/rSearch/pkg/telemetry"
)

const (
	// minPostsPerTheme is the population a theme needs to materialize
	minPostsPerTheme = 3
	// maxPostsPerTheme caps the assignments retained per theme
	maxPostsPerTheme = 10
)

// ErrNoThemePosts is returned when an audience has no posts within its
// timeframe to generate themes from
var ErrNoThemePosts = errors.New("no posts available for theme generation")

// ThemeStore is the persistence surface theme generation needs
type ThemeStore interface {
	Audience(ctx context.Context, id int64) (*models.Audience, error)
	PostsForAudienceSince(ctx context.Context, audienceID int64, cutoff time.Time) ([]*models.Post, error)
	CommentScoreTotals(ctx context.Context, postIDs []int64) (map[int64]int, error)
	ReplaceThemes(ctx context.Context, audienceID int64, themes []*models.Theme) error
}

// Generator materializes Theme and ThemeAssignment rows for an audience
// from its classified post corpus
type Generator struct {
	classifier *Classifier
	store      ThemeStore
	logger     *zap.Logger
}

// NewGenerator creates a theme generator
func NewGenerator(classifier *Classifier, store ThemeStore) *Generator {
	return &Generator{
		classifier: classifier,
		store:      store,
		logger:     logging.GetLogger().With(zap.String("component", "themes")),
	}
}

// Analysis bundles per-post classification and theme generation into
// the single surface the collection pipeline consumes
type Analysis struct {
	*Classifier
	*Generator
}

// NewAnalysis creates the combined analysis surface
func NewAnalysis(classifier *Classifier, generator *Generator) *Analysis {
	return &Analysis{Classifier: classifier, Generator: generator}
}

// GenerateThemes rebuilds the audience's themes from posts collected
// within its timeframe. Existing themes and assignments are replaced
// wholesale.
func (g *Generator) GenerateThemes(ctx context.Context, audienceID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "classify.generate_themes")
	defer span.End()

	audience, err := g.store.Audience(ctx, audienceID)
	if err != nil {
		return err
	}
	if audience == nil {
		return fmt.Errorf("audience %d not found", audienceID)
	}

	cutoff := time.Now().UTC().Add(-TimeframeWindow(audience.Timeframe))
	posts, err := g.store.PostsForAudienceSince(ctx, audienceID, cutoff)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		return ErrNoThemePosts
	}

	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	commentTotals, err := g.store.CommentScoreTotals(ctx, ids)
	if err != nil {
		return err
	}

	themes := g.buildThemes(audienceID, posts, commentTotals, time.Now().UTC())
	if err := g.store.ReplaceThemes(ctx, audienceID, themes); err != nil {
		return err
	}

	g.logger.Info("Themes generated",
		zap.Int64("audience_id", audienceID),
		zap.Int("posts", len(posts)),
		zap.Int("themes", len(themes)))

	return nil
}

// candidate is one post matched to a theme during grouping
type candidate struct {
	post  *models.Post
	score float64
}

// buildThemes groups posts by matched theme, drops themes below the
// population floor, keeps each theme's top posts by engagement and
// comment volume, and orders themes by aggregate score.
func (g *Generator) buildThemes(audienceID int64, posts []*models.Post, commentTotals map[int64]int, now time.Time) []*models.Theme {
	groups := make(map[string][]candidate)
	for _, post := range posts {
		scores, _ := g.classifier.Classify(post, nil)
		for name, score := range scores {
			groups[name] = append(groups[name], candidate{post: post, score: score})
		}
	}

	var themes []*models.Theme
	for name, members := range groups {
		if len(members) < minPostsPerTheme {
			continue
		}

		sort.SliceStable(members, func(i, j int) bool {
			if members[i].post.EngagementScore != members[j].post.EngagementScore {
				return members[i].post.EngagementScore > members[j].post.EngagementScore
			}
			return members[i].post.NumComments > members[j].post.NumComments
		})
		if len(members) > maxPostsPerTheme {
			members = members[:maxPostsPerTheme]
		}

		theme := &models.Theme{
			AudienceID: audienceID,
			Category:   name,
			Summary:    fmt.Sprintf("Summary of %d posts in %s", len(members), name),
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		total := 0.0
		for _, m := range members {
			relevance := float64(m.post.Score + commentTotals[m.post.ID])
			theme.Assignments = append(theme.Assignments, models.ThemeAssignment{
				PostID:         m.post.ID,
				RelevanceScore: relevance,
				AddedAt:        now,
			})
			total += relevance
		}
		theme.Score = total
		themes = append(themes, theme)
	}

	sort.SliceStable(themes, func(i, j int) bool {
		return themes[i].Score > themes[j].Score
	})

	return themes
}

// TimeframeWindow maps a collection timeframe to its lookback duration.
// "all" has no natural bound; ten years covers any realistic corpus.
func TimeframeWindow(timeframe string) time.Duration {
	switch timeframe {
	case models.TimeframeHour:
		return time.Hour
	case models.TimeframeDay:
		return 24 * time.Hour
	case models.TimeframeWeek:
		return 7 * 24 * time.Hour
	case models.TimeframeMonth:
		return 30 * 24 * time.Hour
	case models.TimeframeYear:
		return 365 * 24 * time.Hour
	case models.TimeframeAll:
		return 10 * 365 * 24 * time.Hour
	}
	return 365 * 24 * time.Hour
}
