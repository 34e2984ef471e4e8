package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/soonerrob/rSearch/internal/cache"
	"github.com/soonerrob/rSearch/internal/collector"
	"github.com/soonerrob/rSearch/internal/reddit"
	"github.com/soonerrob/rSearch/internal/store"
	"github.com/soonerrob/rSearch/pkg/logging"
)

// CommunitySource is the content-source surface the API needs for
// community discovery
type CommunitySource interface {
	SearchCommunities(ctx context.Context, q string, limit int) ([]*reddit.CommunityPayload, error)
	CommunityInfo(ctx context.Context, community string) (*reddit.CommunityPayload, error)
}

// Router sets up API routes
type Router struct {
	db          *store.DB
	cache       *cache.Cache
	source      CommunitySource
	runner      collector.Runner
	audiences   *store.AudienceRepository
	themes      *store.ThemeRepository
	communities *store.CommunityRepository
	posts       *store.PostRepository
	repo        *store.Repository
	logger      *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(database *store.DB, redisCache *cache.Cache, source CommunitySource, runner collector.Runner) *Router {
	repo := store.NewRepository(database.DB)

	return &Router{
		db:          database,
		cache:       redisCache,
		source:      source,
		runner:      runner,
		audiences:   store.NewAudienceRepository(repo),
		themes:      store.NewThemeRepository(repo),
		communities: store.NewCommunityRepository(repo),
		posts:       store.NewPostRepository(repo),
		repo:        repo,
		logger:      logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	apiGroup := engine.Group("/api")
	{
		audiences := apiGroup.Group("/audiences")
		audiences.POST("", r.createAudience)
		audiences.GET("", r.listAudiences)
		audiences.GET("/:id", r.getAudience)
		audiences.PATCH("/:id", r.updateAudience)
		audiences.DELETE("/:id", r.deleteAudience)
		audiences.POST("/:id/collect", r.startCollection)
		audiences.GET("/:id/progress", r.collectionProgress)
		audiences.GET("/:id/themes", r.audienceThemes)

		themes := apiGroup.Group("/themes")
		themes.GET("/:id/posts", r.themePosts)

		posts := apiGroup.Group("/posts")
		posts.GET("/:external_id/analysis", r.postAnalysis)

		communities := apiGroup.Group("/communities")
		communities.GET("/search", r.searchCommunities)
		communities.GET("/:name", r.getCommunity)
	}
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	if err := r.db.Health(c.Request.Context()); err != nil {
		c.JSON(503, gin.H{
			"status":  "unavailable",
			"service": "rsearch-api",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "rsearch-api",
	})
}
