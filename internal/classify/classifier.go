package classify

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soonerrob/rSearch/internal/models"
	"github.com/soonerrob/rSearch/pkg/logging"
)

// commentWeight is the contribution of a phrase matched only in comment
// bodies, relative to a title/body match
const commentWeight = 0.5

// AnalysisStore persists per-post classification results
type AnalysisStore interface {
	PostAnalysis(ctx context.Context, postID int64) (*models.PostAnalysis, error)
	SaveAnalysis(ctx context.Context, analysis *models.PostAnalysis) error
}

// Classifier evaluates the theme catalog against posts. Classification
// is rule-based and multi-label: a post may match any number of themes.
type Classifier struct {
	catalog []Definition
	store   AnalysisStore
	logger  *zap.Logger
}

// NewClassifier creates a classifier over the fixed catalog
func NewClassifier(store AnalysisStore) *Classifier {
	return &Classifier{
		catalog: Catalog(),
		store:   store,
		logger:  logging.GetLogger().With(zap.String("component", "classifier")),
	}
}

// Classify evaluates every catalog entry against the post and its
// comments, returning per-theme relevance scores in [0,1] and the union
// of matched trigger phrases. Pure; persistence lives in AnalyzePost.
func (c *Classifier) Classify(post *models.Post, comments []*models.Comment) (map[string]float64, []string) {
	scores := make(map[string]float64)
	keywordSet := make(map[string]struct{})

	text := strings.ToLower(post.Title + " " + post.Content)
	var commentText string

	for i := range c.catalog {
		def := &c.catalog[i]

		if def.Metric() {
			if def.Predicate(post) {
				scores[def.Name] = clamp01(def.MetricScore(post))
			}
			continue
		}

		if def.ScanComments && commentText == "" && len(comments) > 0 {
			commentText = joinCommentText(comments)
		}

		matched := 0.0
		for _, phrase := range def.Phrases {
			if strings.Contains(text, phrase) {
				matched++
				keywordSet[phrase] = struct{}{}
			} else if def.ScanComments && commentText != "" && strings.Contains(commentText, phrase) {
				matched += commentWeight
				keywordSet[phrase] = struct{}{}
			}
		}
		if matched == 0 {
			continue
		}

		adjustment := 0.0
		if def.Adjust != nil {
			adjustment = def.Adjust(post)
		}
		scores[def.Name] = clamp01(matched / float64(len(def.Phrases)) * (1 + adjustment))
	}

	keywords := make([]string, 0, len(keywordSet))
	for k := range keywordSet {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)

	return scores, keywords
}

// AnalyzePost classifies the post and persists the result. A post with
// an existing analysis row is skipped; re-classification only happens
// through an explicit theme refresh that clears prior rows first.
func (c *Classifier) AnalyzePost(ctx context.Context, post *models.Post, comments []*models.Comment) error {
	existing, err := c.store.PostAnalysis(ctx, post.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	scores, keywords := c.Classify(post, comments)

	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	analysis := &models.PostAnalysis{
		PostID:     post.ID,
		AnalyzedAt: time.Now().UTC(),
	}
	analysis.SetThemeNames(names)
	analysis.SetScoreMap(scores)
	analysis.SetKeywordList(keywords)

	if err := c.store.SaveAnalysis(ctx, analysis); err != nil {
		return err
	}

	c.logger.Debug("Post analyzed",
		zap.Int64("post_id", post.ID),
		zap.Int("themes", len(names)),
		zap.Int("keywords", len(keywords)))

	return nil
}

func joinCommentText(comments []*models.Comment) string {
	var b strings.Builder
	for _, comment := range comments {
		b.WriteString(strings.ToLower(comment.Content))
		b.WriteByte(' ')
	}
	return b.String()
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
