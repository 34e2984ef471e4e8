package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/soonerrob/rSearch/internal/models"
)

// CommunityRepository provides community lookups for the API layer
type CommunityRepository struct {
	*Repository
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(repo *Repository) *CommunityRepository {
	return &CommunityRepository{Repository: repo}
}

// GetByName retrieves a community by its normalized name
func (r *CommunityRepository) GetByName(ctx context.Context, name string) (*models.Community, error) {
	var community models.Community
	err := r.db.WithContext(ctx).
		Where("name = ?", models.NormalizeCommunityName(name)).
		First(&community).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &community, nil
}

// ThemeRepository provides theme queries for the API layer
type ThemeRepository struct {
	*Repository
}

// NewThemeRepository creates a new theme repository
func NewThemeRepository(repo *Repository) *ThemeRepository {
	return &ThemeRepository{Repository: repo}
}

// ForAudience returns an audience's themes ordered by score
func (r *ThemeRepository) ForAudience(ctx context.Context, audienceID int64) ([]*models.Theme, error) {
	var themes []*models.Theme
	err := r.db.WithContext(ctx).
		Where("audience_id = ?", audienceID).
		Order("score DESC").
		Find(&themes).Error
	if err != nil {
		return nil, err
	}
	return themes, nil
}

// Get retrieves a theme by id
func (r *ThemeRepository) Get(ctx context.Context, themeID int64) (*models.Theme, error) {
	var theme models.Theme
	if err := r.db.WithContext(ctx).First(&theme, themeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &theme, nil
}

// TopPosts returns a theme's posts ordered by assignment relevance
func (r *ThemeRepository) TopPosts(ctx context.Context, themeID int64, limit int) ([]*models.Post, error) {
	if limit <= 0 {
		limit = 10
	}

	var posts []*models.Post
	err := r.db.WithContext(ctx).Raw(`
		SELECT p.*
		FROM posts p
		INNER JOIN theme_assignments ta ON ta.post_id = p.id
		WHERE ta.theme_id = ?
		ORDER BY ta.relevance_score DESC
		LIMIT ?`, themeID, limit).
		Scan(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// PostRepository provides post lookups for the API layer
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByExternalID retrieves a post by its external id
func (r *PostRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// CommentsForPost returns a post's comments parents before children
func (r *PostRepository) CommentsForPost(ctx context.Context, postID int64) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("depth, id").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}
