package collector

import (
	"context"
	"strings"
	"time"

	"github.com/soonerrob/rSearch/internal/models"
	"github.com/soonerrob/rSearch/internal/reddit"
)

// sortShare describes one sort method's slice of a full collection run.
// Timeframes, when set, override the audience timeframe and split the
// slice evenly.
type sortShare struct {
	sort       string
	weight     float64
	minScore   int
	timeframes []string
}

// collectionPlan spreads a community's post budget across sort methods
// so a run captures currently-active, proven and emerging content
// rather than a single ranking's view.
var collectionPlan = []sortShare{
	{sort: reddit.SortHot, weight: 0.3, minScore: 10},
	{sort: reddit.SortTop, weight: 0.3, minScore: 15, timeframes: []string{models.TimeframeMonth, models.TimeframeWeek}},
	{sort: reddit.SortRising, weight: 0.2, minScore: 5},
	{sort: reddit.SortControversial, weight: 0.2, minScore: 5},
}

// Post-level quality gates applied to every fetched payload
const (
	minUpvoteRatio = 0.65
	minNumComments = 5
)

// sortedPayload pairs a fetched post with the sort method that produced
// it, kept for the persisted collection_source column
type sortedPayload struct {
	payload *reddit.PostPayload
	sort    string
}

// fetchDistributed pulls up to limit posts for one community across the
// collection plan's sort methods, deduplicated by external id in
// arrival order.
func fetchDistributed(ctx context.Context, source Source, community, timeframe string, limit int) ([]sortedPayload, error) {
	seen := make(map[string]struct{})
	out := make([]sortedPayload, 0, limit)

	for _, share := range collectionPlan {
		budget := int(float64(limit) * share.weight)
		if budget == 0 {
			continue
		}

		windows := share.timeframes
		if len(windows) == 0 {
			windows = []string{timeframe}
		}
		perWindow := budget / len(windows)
		if perWindow == 0 {
			perWindow = 1
		}

		for _, window := range windows {
			payloads, err := source.CommunityPosts(ctx, community, share.sort, window, perWindow)
			if err != nil {
				return nil, err
			}
			for _, p := range payloads {
				if p.Score < share.minScore {
					continue
				}
				if _, dup := seen[p.ID]; dup {
					continue
				}
				seen[p.ID] = struct{}{}
				out = append(out, sortedPayload{payload: p, sort: share.sort})
			}
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// buildPost converts a raw payload into a scored Post row, or nil when
// the payload fails the quality gates or is an unrecoverable placeholder.
func buildPost(p *reddit.PostPayload, community, sort string, now time.Time) *models.Post {
	if p.Author == "" || p.Author == "[deleted]" || p.CreatedAt().IsZero() {
		return nil
	}
	body := strings.TrimSpace(p.SelfText)
	if body == "[removed]" || body == "[deleted]" {
		return nil
	}
	if p.UpvoteRatio < minUpvoteRatio || p.NumComments < minNumComments {
		return nil
	}

	post := &models.Post{
		ExternalID:        p.ID,
		CommunityName:     community,
		Title:             p.Title,
		Content:           body,
		URL:               p.URL,
		Author:            p.Author,
		Score:             p.Score,
		NumComments:       p.NumComments,
		UpvoteRatio:       p.UpvoteRatio,
		Distinguished:     p.IsDistinguished(),
		Stickied:          p.Stickied,
		IsOriginalContent: p.IsOriginalContent,
		CollectionSource:  sort,
		CreatedAt:         p.CreatedAt(),
		CollectedAt:       now,
	}
	post.SetAwards(p.AwardMap())
	post.EngagementScore = PostEngagement(p.Score, p.NumComments, p.UpvoteRatio, post.Distinguished, p.Stickied, p.IsOriginalContent)

	return post
}
