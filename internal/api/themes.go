package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soonerrob/rSearch/internal/cache"
	"github.com/soonerrob/rSearch/internal/models"
)

// themeListTTL is short because themes are regenerated wholesale after
// each initial collection
const themeListTTL = 5 * time.Minute

// themeResponse is the wire form of a theme
type themeResponse struct {
	ID         int64     `json:"id"`
	AudienceID int64     `json:"audience_id"`
	Category   string    `json:"category"`
	Summary    string    `json:"summary"`
	Score      float64   `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

func toThemeResponse(t *models.Theme) themeResponse {
	return themeResponse{
		ID:         t.ID,
		AudienceID: t.AudienceID,
		Category:   t.Category,
		Summary:    t.Summary,
		Score:      t.Score,
		CreatedAt:  t.CreatedAt,
	}
}

func (r *Router) audienceThemes(c *gin.Context) {
	audience, ok := r.loadAudience(c)
	if !ok {
		return
	}

	cacheKey := cache.HashKey("audience_themes", strconv.FormatInt(audience.ID, 10))
	if cached, err := r.cache.Get(cacheKey); err == nil {
		var out []themeResponse
		if json.Unmarshal([]byte(cached), &out) == nil {
			c.JSON(http.StatusOK, out)
			return
		}
	}

	themes, err := r.themes.ForAudience(c.Request.Context(), audience.ID)
	if err != nil {
		r.logger.Error("Failed to load themes", zap.Int64("audience_id", audience.ID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to load themes")
		return
	}

	out := make([]themeResponse, 0, len(themes))
	for _, t := range themes {
		out = append(out, toThemeResponse(t))
	}

	if data, err := json.Marshal(out); err == nil {
		if err := r.cache.Set(cacheKey, string(data), themeListTTL); err != nil && err != cache.ErrCacheDisabled {
			r.logger.Warn("Failed to cache themes", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, out)
}

func (r *Router) themePosts(c *gin.Context) {
	themeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || themeID <= 0 {
		respondError(c, http.StatusBadRequest, "invalid theme id")
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			respondError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	theme, err := r.themes.Get(ctx, themeID)
	if err != nil {
		r.logger.Error("Failed to load theme", zap.Int64("theme_id", themeID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to load theme")
		return
	}
	if theme == nil {
		respondError(c, http.StatusNotFound, "theme not found")
		return
	}

	posts, err := r.themes.TopPosts(ctx, themeID, limit)
	if err != nil {
		r.logger.Error("Failed to load theme posts", zap.Int64("theme_id", themeID), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to load theme posts")
		return
	}

	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{
		"theme": toThemeResponse(theme),
		"posts": out,
	})
}
