package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soonerrob/rSearch/internal/models"
)

// ErrConcurrentRun is returned when a collection start loses the guard
// race against another run for the same audience
var ErrConcurrentRun = errors.New("audience is already collecting")

// Repository provides database access for the collection pipeline
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Audience retrieves an audience with its community memberships
func (r *Repository) Audience(ctx context.Context, id int64) (*models.Audience, error) {
	var audience models.Audience
	if err := r.db.WithContext(ctx).Preload("Communities").First(&audience, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &audience, nil
}

// StartCollection flips the audience into the collecting state. The
// guard is enforced at the row level so two processes cannot both win.
func (r *Repository) StartCollection(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Audience{}).
		Where("id = ? AND is_collecting = ?", id, false).
		Updates(map[string]interface{}{
			"is_collecting":       true,
			"collection_progress": 0.0,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentRun
	}
	return nil
}

// SetProgress updates the audience's collection progress
func (r *Repository) SetProgress(ctx context.Context, id int64, progress float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Audience{}).
		Where("id = ?", id).
		Update("collection_progress", progress).Error
}

// CompleteCollection marks a run finished and records its completion time
func (r *Repository) CompleteCollection(ctx context.Context, id int64, finishedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Audience{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_collecting":        false,
			"collection_progress":  100.0,
			"last_collection_time": finishedAt,
		}).Error
}

// UpsertCommunity inserts or refreshes community metadata by name
func (r *Repository) UpsertCommunity(ctx context.Context, community *models.Community) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"display_name", "description", "subscribers", "active_users",
			}),
		}).
		Create(community).Error
}

// SavePost inserts a post or refreshes the row already holding its
// external id, returning the persisted row with its local id set
func (r *Repository) SavePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	var existing models.Post
	err := r.db.WithContext(ctx).
		Where("external_id = ?", post.ExternalID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
				return nil, err
			}
			return post, nil
		}
		return nil, err
	}

	existing.Title = post.Title
	existing.Content = post.Content
	existing.Author = post.Author
	existing.Score = post.Score
	existing.NumComments = post.NumComments
	existing.UpvoteRatio = post.UpvoteRatio
	existing.Distinguished = post.Distinguished
	existing.Stickied = post.Stickied
	existing.Awards = post.Awards
	existing.EngagementScore = post.EngagementScore
	existing.CollectedAt = post.CollectedAt
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// KnownCommentIDs returns the external ids already persisted for a post
func (r *Repository) KnownCommentIDs(ctx context.Context, postID int64) (map[string]struct{}, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("post_id = ?", postID).
		Pluck("external_id", &ids).Error; err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	return known, nil
}

// SaveComments bulk-inserts comments. Callers supply them parents
// before children, so insertion order preserves referential sanity.
func (r *Repository) SaveComments(ctx context.Context, comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).
		CreateInBatches(comments, 100).Error
}

// EligibleAudiences lists audiences due for incremental collection:
// not currently collecting and never collected or last collected before
// the cutoff.
func (r *Repository) EligibleAudiences(ctx context.Context, cutoff time.Time) ([]*models.Audience, error) {
	var audiences []*models.Audience
	err := r.db.WithContext(ctx).
		Where("is_collecting = ? AND (last_collection_time IS NULL OR last_collection_time < ?)", false, cutoff).
		Find(&audiences).Error
	if err != nil {
		return nil, err
	}
	return audiences, nil
}

// PostAnalysis retrieves the classification result for a post, nil if
// the post has not been analyzed
func (r *Repository) PostAnalysis(ctx context.Context, postID int64) (*models.PostAnalysis, error) {
	var analysis models.PostAnalysis
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

// SaveAnalysis persists a classification result
func (r *Repository) SaveAnalysis(ctx context.Context, analysis *models.PostAnalysis) error {
	return r.db.WithContext(ctx).Create(analysis).Error
}

// PostsForAudienceSince returns the distinct posts collected for the
// audience's communities since the cutoff
func (r *Repository) PostsForAudienceSince(ctx context.Context, audienceID int64, cutoff time.Time) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT p.*
		FROM posts p
		INNER JOIN audience_communities ac
			ON p.community_name = ac.community_name
			AND ac.audience_id = ?
		WHERE p.collected_at >= ?`, audienceID, cutoff).
		Scan(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// CommentScoreTotals sums comment scores per post
func (r *Repository) CommentScoreTotals(ctx context.Context, postIDs []int64) (map[int64]int, error) {
	totals := make(map[int64]int, len(postIDs))
	if len(postIDs) == 0 {
		return totals, nil
	}

	var rows []struct {
		PostID int64
		Total  int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("post_id, COALESCE(SUM(score), 0) AS total").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		totals[row.PostID] = row.Total
	}
	return totals, nil
}

// ReplaceThemes deletes an audience's themes and assignments and
// inserts the replacement set in one transaction. Assignments must be
// removed before their themes to satisfy the foreign keys.
func (r *Repository) ReplaceThemes(ctx context.Context, audienceID int64, themes []*models.Theme) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var themeIDs []int64
		if err := tx.Model(&models.Theme{}).
			Where("audience_id = ?", audienceID).
			Pluck("id", &themeIDs).Error; err != nil {
			return err
		}

		if len(themeIDs) > 0 {
			if err := tx.Where("theme_id IN ?", themeIDs).
				Delete(&models.ThemeAssignment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", themeIDs).
				Delete(&models.Theme{}).Error; err != nil {
				return err
			}
		}

		for _, theme := range themes {
			if err := tx.Create(theme).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RecoveryRepository resets collection flags after a failed run. It is
// bound to a fresh session so a broken handle from the failed run never
// blocks the reset.
type RecoveryRepository struct {
	db *gorm.DB
}

// NewRecoveryRepository creates a recovery repository on its own session
func NewRecoveryRepository(database *DB) *RecoveryRepository {
	return &RecoveryRepository{
		db: database.DB.Session(&gorm.Session{NewDB: true}),
	}
}

// ResetCollectionState returns the audience to the idle state with
// progress cleared
func (r *RecoveryRepository) ResetCollectionState(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Audience{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_collecting":       false,
			"collection_progress": 0.0,
		}).Error
}

// ResetStaleCollections clears the collecting flag on every audience
// left mid-run by an earlier process crash. Run once at startup before
// the scheduler begins sweeping.
func (r *RecoveryRepository) ResetStaleCollections(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Audience{}).
		Where("is_collecting = ?", true).
		Updates(map[string]interface{}{
			"is_collecting":       false,
			"collection_progress": 0.0,
		})
	return res.RowsAffected, res.Error
}
