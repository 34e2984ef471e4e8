package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soonerrob/rSearch/internal/models"
)

// postResponse is the wire form of a post
type postResponse struct {
	ID               int64     `json:"id"`
	ExternalID       string    `json:"external_id"`
	CommunityName    string    `json:"community_name"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	URL              string    `json:"url"`
	Author           string    `json:"author"`
	Score            int       `json:"score"`
	NumComments      int       `json:"num_comments"`
	UpvoteRatio      float64   `json:"upvote_ratio"`
	EngagementScore  float64   `json:"engagement_score"`
	CollectionSource string    `json:"collection_source"`
	CreatedAt        time.Time `json:"created_at"`
}

func toPostResponse(p *models.Post) postResponse {
	return postResponse{
		ID:               p.ID,
		ExternalID:       p.ExternalID,
		CommunityName:    p.CommunityName,
		Title:            p.Title,
		Content:          p.Content,
		URL:              p.URL,
		Author:           p.Author,
		Score:            p.Score,
		NumComments:      p.NumComments,
		UpvoteRatio:      p.UpvoteRatio,
		EngagementScore:  p.EngagementScore,
		CollectionSource: p.CollectionSource,
		CreatedAt:        p.CreatedAt,
	}
}

func (r *Router) postAnalysis(c *gin.Context) {
	externalID := c.Param("external_id")
	if externalID == "" {
		respondError(c, http.StatusBadRequest, "post id is required")
		return
	}

	ctx := c.Request.Context()
	post, err := r.posts.GetByExternalID(ctx, externalID)
	if err != nil {
		r.logger.Error("Failed to load post", zap.String("external_id", externalID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to load post")
		return
	}
	if post == nil {
		respondError(c, http.StatusNotFound, "post not found")
		return
	}

	analysis, err := r.repo.PostAnalysis(ctx, post.ID)
	if err != nil {
		r.logger.Error("Failed to load analysis", zap.Int64("post_id", post.ID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to load analysis")
		return
	}
	if analysis == nil {
		respondError(c, http.StatusNotFound, "post has not been analyzed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post":            toPostResponse(post),
		"matching_themes": analysis.ThemeNames(),
		"theme_scores":    analysis.ScoreMap(),
		"keywords":        analysis.KeywordList(),
		"analyzed_at":     analysis.AnalyzedAt,
	})
}
