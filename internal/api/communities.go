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
	"github.com/soonerrob/rSearch/internal/reddit"
)

const communitySearchTTL = time.Hour

// communityResponse is the wire form of a community
type communityResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Subscribers int64  `json:"subscribers"`
	ActiveUsers *int64 `json:"active_users"`
}

func toCommunityResponse(cm *models.Community) communityResponse {
	resp := communityResponse{
		Name:        cm.Name,
		DisplayName: cm.DisplayName,
		Subscribers: cm.Subscribers,
	}
	if cm.Description.Valid {
		resp.Description = cm.Description.String
	}
	if cm.ActiveUsers.Valid {
		n := cm.ActiveUsers.Int64
		resp.ActiveUsers = &n
	}
	return resp
}

func payloadToCommunityResponse(p *reddit.CommunityPayload) communityResponse {
	return communityResponse{
		Name:        models.NormalizeCommunityName(p.Name),
		DisplayName: p.Name,
		Description: p.PublicDescription,
		Subscribers: p.Subscribers,
		ActiveUsers: p.ActiveUserCount,
	}
}

func (r *Router) searchCommunities(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		respondError(c, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 50 {
			respondError(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	cacheKey := cache.HashKey("community_search", query, strconv.Itoa(limit))
	if cached, err := r.cache.Get(cacheKey); err == nil {
		var out []communityResponse
		if json.Unmarshal([]byte(cached), &out) == nil {
			c.JSON(http.StatusOK, out)
			return
		}
	}

	results, err := r.source.SearchCommunities(c.Request.Context(), query, limit)
	if err != nil {
		r.logger.Error("Community search failed", zap.String("query", query), zap.Error(err))
		respondError(c, http.StatusBadGateway, "community search failed")
		return
	}

	out := make([]communityResponse, 0, len(results))
	for _, p := range results {
		out = append(out, payloadToCommunityResponse(p))
	}

	if data, err := json.Marshal(out); err == nil {
		if err := r.cache.Set(cacheKey, string(data), communitySearchTTL); err != nil && err != cache.ErrCacheDisabled {
			r.logger.Warn("Failed to cache search results", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, out)
}

func (r *Router) getCommunity(c *gin.Context) {
	name := models.NormalizeCommunityName(c.Param("name"))
	if name == "" {
		respondError(c, http.StatusBadRequest, "community name is required")
		return
	}

	ctx := c.Request.Context()
	community, err := r.communities.GetByName(ctx, name)
	if err != nil {
		r.logger.Error("Failed to load community", zap.String("community", name), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to load community")
		return
	}
	if community != nil {
		c.JSON(http.StatusOK, toCommunityResponse(community))
		return
	}

	// Unknown locally; try the source and remember what it says.
	payload, err := r.source.CommunityInfo(ctx, name)
	if err != nil {
		respondError(c, http.StatusNotFound, "community not found")
		return
	}

	community = &models.Community{
		Name:        name,
		DisplayName: payload.Name,
		Subscribers: payload.Subscribers,
	}
	if payload.PublicDescription != "" {
		community.Description.String = payload.PublicDescription
		community.Description.Valid = true
	}
	if payload.ActiveUserCount != nil {
		community.ActiveUsers.Int64 = *payload.ActiveUserCount
		community.ActiveUsers.Valid = true
	}
	if err := r.repo.UpsertCommunity(ctx, community); err != nil {
		r.logger.Warn("Failed to persist community", zap.String("community", name), zap.Error(err))
	}

	c.JSON(http.StatusOK, toCommunityResponse(community))
}
