package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/soonerrob/rSearch/internal/models"
)

// AudienceRepository provides audience CRUD for the API layer
type AudienceRepository struct {
	*Repository
}

// NewAudienceRepository creates a new audience repository
func NewAudienceRepository(repo *Repository) *AudienceRepository {
	return &AudienceRepository{Repository: repo}
}

// Create persists a new audience with its community memberships.
// Communities are created lazily on first reference.
func (r *AudienceRepository) Create(ctx context.Context, audience *models.Audience, communityNames []string) error {
	now := time.Now().UTC()
	audience.CreatedAt = now
	audience.UpdatedAt = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Communities", "Themes").Create(audience).Error; err != nil {
			return err
		}

		for _, name := range communityNames {
			name = models.NormalizeCommunityName(name)
			if name == "" {
				continue
			}

			var community models.Community
			err := tx.Where("name = ?", name).First(&community).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				community = models.Community{Name: name, DisplayName: name}
				if err := tx.Create(&community).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			membership := models.AudienceCommunity{
				AudienceID:    audience.ID,
				CommunityName: name,
				AddedAt:       now,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
			audience.Communities = append(audience.Communities, membership)
		}

		return nil
	})
}

// Update persists changes to an audience's own fields
func (r *AudienceRepository) Update(ctx context.Context, audience *models.Audience) error {
	audience.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(audience).
		Select("name", "description", "timeframe", "posts_per_community", "updated_at").
		Updates(audience).Error
}

// List returns all audiences with their community memberships
func (r *AudienceRepository) List(ctx context.Context) ([]*models.Audience, error) {
	var audiences []*models.Audience
	if err := r.db.WithContext(ctx).
		Preload("Communities").
		Order("id").
		Find(&audiences).Error; err != nil {
		return nil, err
	}
	return audiences, nil
}

// UpdateCommunities replaces an audience's community memberships
func (r *AudienceRepository) UpdateCommunities(ctx context.Context, audienceID int64, communityNames []string) error {
	now := time.Now().UTC()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("audience_id = ?", audienceID).
			Delete(&models.AudienceCommunity{}).Error; err != nil {
			return err
		}

		for _, name := range communityNames {
			name = models.NormalizeCommunityName(name)
			if name == "" {
				continue
			}

			var community models.Community
			err := tx.Where("name = ?", name).First(&community).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				community = models.Community{Name: name, DisplayName: name}
				if err := tx.Create(&community).Error; err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			membership := models.AudienceCommunity{
				AudienceID:    audienceID,
				CommunityName: name,
				AddedAt:       now,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Audience{}).
			Where("id = ?", audienceID).
			Update("updated_at", now).Error
	})
}

// Delete removes an audience with its memberships, themes and
// assignments. The delete order is explicit: assignments, then themes,
// then memberships, then the audience row. Communities left without any
// referencing audience are reclaimed inline; communities still shared
// with another audience keep their content.
func (r *AudienceRepository) Delete(ctx context.Context, audienceID int64) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var audience models.Audience
		if err := tx.First(&audience, audienceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		found = true

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

		var names []string
		if err := tx.Model(&models.AudienceCommunity{}).
			Where("audience_id = ?", audienceID).
			Pluck("community_name", &names).Error; err != nil {
			return err
		}

		if err := tx.Where("audience_id = ?", audienceID).
			Delete(&models.AudienceCommunity{}).Error; err != nil {
			return err
		}

		if err := tx.Delete(&audience).Error; err != nil {
			return err
		}

		orphans, err := orphanedAmong(tx, names)
		if err != nil {
			return err
		}
		_, err = reclaimCommunities(tx, orphans)
		return err
	})
	return found, err
}

// DeleteOrphanedContent removes posts, comments and analyses belonging
// to communities no audience references anymore, then the community
// rows themselves. Returns the total rows removed. The inline reclaim
// in Delete covers the common case; this sweep catches communities
// orphaned by membership edits or interrupted deletes.
func (r *Repository) DeleteOrphanedContent(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orphans []string
		if err := tx.Raw(`
			SELECT c.name FROM communities c
			WHERE NOT EXISTS (
				SELECT 1 FROM audience_communities ac
				WHERE ac.community_name = c.name
			)`).Scan(&orphans).Error; err != nil {
			return err
		}

		var err error
		deleted, err = reclaimCommunities(tx, orphans)
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// orphanedAmong narrows names to the communities no audience references
func orphanedAmong(tx *gorm.DB, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var orphans []string
	err := tx.Raw(`
		SELECT c.name FROM communities c
		WHERE c.name IN ? AND NOT EXISTS (
			SELECT 1 FROM audience_communities ac
			WHERE ac.community_name = c.name
		)`, names).Scan(&orphans).Error
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

// reclaimCommunities deletes the named communities and everything they
// own: assignments and analyses first, then comments, posts, and the
// community rows. Callers must have verified no audience references
// them. Returns the rows removed.
func reclaimCommunities(tx *gorm.DB, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}

	var deleted int64
	var postIDs []int64
	if err := tx.Model(&models.Post{}).
		Where("community_name IN ?", names).
		Pluck("id", &postIDs).Error; err != nil {
		return 0, err
	}

	if len(postIDs) > 0 {
		for _, step := range []*gorm.DB{
			tx.Where("post_id IN ?", postIDs).Delete(&models.ThemeAssignment{}),
			tx.Where("post_id IN ?", postIDs).Delete(&models.PostAnalysis{}),
			tx.Where("post_id IN ?", postIDs).Delete(&models.Comment{}),
			tx.Where("id IN ?", postIDs).Delete(&models.Post{}),
		} {
			if step.Error != nil {
				return 0, step.Error
			}
			deleted += step.RowsAffected
		}
	}

	res := tx.Where("name IN ?", names).Delete(&models.Community{})
	if res.Error != nil {
		return 0, res.Error
	}
	deleted += res.RowsAffected
	return deleted, nil
}
