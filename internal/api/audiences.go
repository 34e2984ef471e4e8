package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soonerrob/rSearch/internal/collector"
	"github.com/soonerrob/rSearch/internal/models"
)

// audienceRequest is the create/update payload for audiences
type audienceRequest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Timeframe         string   `json:"timeframe"`
	PostsPerCommunity int      `json:"posts_per_community"`
	CommunityNames    []string `json:"community_names"`
}

// audienceResponse is the wire form of an audience
type audienceResponse struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Timeframe          string     `json:"timeframe"`
	PostsPerCommunity  int        `json:"posts_per_community"`
	IsCollecting       bool       `json:"is_collecting"`
	CollectionProgress float64    `json:"collection_progress"`
	LastCollectionTime *time.Time `json:"last_collection_time"`
	CommunityNames     []string   `json:"community_names"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toAudienceResponse(a *models.Audience) audienceResponse {
	resp := audienceResponse{
		ID:                 a.ID,
		Name:               a.Name,
		Description:        a.Description,
		Timeframe:          a.Timeframe,
		PostsPerCommunity:  a.PostsPerCommunity,
		IsCollecting:       a.IsCollecting,
		CollectionProgress: a.CollectionProgress,
		CommunityNames:     make([]string, 0, len(a.Communities)),
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}
	if a.LastCollectionTime.Valid {
		t := a.LastCollectionTime.Time
		resp.LastCollectionTime = &t
	}
	for _, m := range a.Communities {
		resp.CommunityNames = append(resp.CommunityNames, m.CommunityName)
	}
	return resp
}

func (r *Router) createAudience(c *gin.Context) {
	var req audienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(c, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.CommunityNames) == 0 {
		respondError(c, http.StatusBadRequest, "at least one community is required")
		return
	}
	if req.Timeframe == "" {
		req.Timeframe = models.TimeframeYear
	}
	if !models.ValidTimeframe(req.Timeframe) {
		respondError(c, http.StatusBadRequest, "invalid timeframe")
		return
	}

	audience := &models.Audience{
		Name:              req.Name,
		Description:       req.Description,
		Timeframe:         req.Timeframe,
		PostsPerCommunity: req.PostsPerCommunity,
	}
	if audience.PostsPerCommunity <= 0 {
		audience.PostsPerCommunity = 500
	}

	if err := r.audiences.Create(c.Request.Context(), audience, req.CommunityNames); err != nil {
		r.logger.Error("Failed to create audience", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to create audience")
		return
	}

	// Initial collection runs in the background; callers poll progress.
	go r.collect(audience.ID, collector.ModeInitial)

	c.JSON(http.StatusCreated, toAudienceResponse(audience))
}

func (r *Router) listAudiences(c *gin.Context) {
	audiences, err := r.audiences.List(c.Request.Context())
	if err != nil {
		r.logger.Error("Failed to list audiences", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to list audiences")
		return
	}

	out := make([]audienceResponse, 0, len(audiences))
	for _, a := range audiences {
		out = append(out, toAudienceResponse(a))
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) getAudience(c *gin.Context) {
	audience, ok := r.loadAudience(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toAudienceResponse(audience))
}

func (r *Router) updateAudience(c *gin.Context) {
	audience, ok := r.loadAudience(c)
	if !ok {
		return
	}

	var req audienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != "" {
		audience.Name = req.Name
	}
	if req.Description != "" {
		audience.Description = req.Description
	}
	if req.Timeframe != "" {
		if !models.ValidTimeframe(req.Timeframe) {
			respondError(c, http.StatusBadRequest, "invalid timeframe")
			return
		}
		audience.Timeframe = req.Timeframe
	}
	if req.PostsPerCommunity > 0 {
		audience.PostsPerCommunity = req.PostsPerCommunity
	}

	ctx := c.Request.Context()
	if err := r.audiences.Update(ctx, audience); err != nil {
		r.logger.Error("Failed to update audience", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to update audience")
		return
	}

	if req.CommunityNames != nil {
		if err := r.audiences.UpdateCommunities(ctx, audience.ID, req.CommunityNames); err != nil {
			r.logger.Error("Failed to update audience communities", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "failed to update communities")
			return
		}
	}

	updated, err := r.repo.Audience(ctx, audience.ID)
	if err != nil || updated == nil {
		respondError(c, http.StatusInternalServerError, "failed to reload audience")
		return
	}
	c.JSON(http.StatusOK, toAudienceResponse(updated))
}

func (r *Router) deleteAudience(c *gin.Context) {
	id, ok := audienceID(c)
	if !ok {
		return
	}

	found, err := r.audiences.Delete(c.Request.Context(), id)
	if err != nil {
		r.logger.Error("Failed to delete audience", zap.Int64("audience_id", id), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to delete audience")
		return
	}
	if !found {
		respondError(c, http.StatusNotFound, "audience not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (r *Router) startCollection(c *gin.Context) {
	audience, ok := r.loadAudience(c)
	if !ok {
		return
	}
	if audience.IsCollecting {
		respondError(c, http.StatusConflict, "collection already in progress")
		return
	}

	go r.collect(audience.ID, collector.ModeInitial)

	c.JSON(http.StatusAccepted, gin.H{"status": "collection started"})
}

func (r *Router) collectionProgress(c *gin.Context) {
	audience, ok := r.loadAudience(c)
	if !ok {
		return
	}

	resp := gin.H{
		"is_collecting":       audience.IsCollecting,
		"collection_progress": audience.CollectionProgress,
	}
	if audience.LastCollectionTime.Valid {
		resp["last_collection_time"] = audience.LastCollectionTime.Time
	} else {
		resp["last_collection_time"] = nil
	}
	c.JSON(http.StatusOK, resp)
}

// collect drives a background collection run. The request context ends
// with the response, so the run gets its own.
func (r *Router) collect(audienceID int64, mode collector.Mode) {
	err := r.runner.Collect(context.Background(), audienceID, mode)
	if err != nil && !errors.Is(err, collector.ErrAlreadyCollecting) {
		r.logger.Error("Background collection failed",
			zap.Int64("audience_id", audienceID),
			zap.String("mode", string(mode)),
			zap.Error(err))
	}
}

func audienceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid audience id")
		return 0, false
	}
	return id, true
}

func (r *Router) loadAudience(c *gin.Context) (*models.Audience, bool) {
	id, ok := audienceID(c)
	if !ok {
		return nil, false
	}

	audience, err := r.repo.Audience(c.Request.Context(), id)
	if err != nil {
		r.logger.Error("Failed to load audience", zap.Int64("audience_id", id), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to load audience")
		return nil, false
	}
	if audience == nil {
		respondError(c, http.StatusNotFound, "audience not found")
		return nil, false
	}
	return audience, true
}
