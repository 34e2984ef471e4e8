package store

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/soonerrob/rSearch/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// A pooled in-memory sqlite gives each connection its own database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Audience{},
		&models.AudienceCommunity{},
		&models.Community{},
		&models.Post{},
		&models.Comment{},
		&models.PostAnalysis{},
		&models.Theme{},
		&models.ThemeAssignment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedAudience(t *testing.T, repo *AudienceRepository, name string, communities []string) *models.Audience {
	t.Helper()

	audience := &models.Audience{
		Name:              name,
		Timeframe:         models.TimeframeYear,
		PostsPerCommunity: 10,
	}
	if err := repo.Create(context.Background(), audience, communities); err != nil {
		t.Fatalf("create audience %s: %v", name, err)
	}
	return audience
}

func seedPost(t *testing.T, repo *Repository, community, externalID string) *models.Post {
	t.Helper()

	now := time.Now().UTC()
	post := &models.Post{
		ExternalID:    externalID,
		CommunityName: community,
		Title:         "title " + externalID,
		Author:        "author",
		Score:         42,
		UpvoteRatio:   0.9,
		Awards:        "{}",
		CreatedAt:     now,
		CollectedAt:   now,
	}
	saved, err := repo.SavePost(context.Background(), post)
	if err != nil {
		t.Fatalf("save post %s: %v", externalID, err)
	}

	comment := &models.Comment{
		ExternalID:  externalID + "c1",
		PostID:      saved.ID,
		Content:     "a comment long enough to keep",
		Author:      "author",
		Score:       3,
		Awards:      "{}",
		CreatedAt:   now,
		CollectedAt: now,
	}
	if err := repo.SaveComments(context.Background(), []*models.Comment{comment}); err != nil {
		t.Fatalf("save comment for %s: %v", externalID, err)
	}

	analysis := &models.PostAnalysis{PostID: saved.ID, AnalyzedAt: now}
	analysis.SetThemeNames([]string{"Ideas"})
	if err := repo.SaveAnalysis(context.Background(), analysis); err != nil {
		t.Fatalf("save analysis for %s: %v", externalID, err)
	}

	return saved
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()

	var n int64
	tx := db.Model(model)
	if query != "" {
		tx = tx.Where(query, args...)
	}
	if err := tx.Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestDeleteReclaimsExclusiveCommunityContent(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	audiences := NewAudienceRepository(repo)
	ctx := context.Background()

	doomed := seedAudience(t, audiences, "doomed", []string{"sharedsub", "onlysub"})
	survivor := seedAudience(t, audiences, "survivor", []string{"sharedsub"})

	sharedPost := seedPost(t, repo, "sharedsub", "p_shared")
	exclusivePost := seedPost(t, repo, "onlysub", "p_only")

	themes := []*models.Theme{{
		AudienceID: doomed.ID,
		Category:   "Ideas",
		Summary:    "Summary of 2 posts in Ideas",
		Score:      1.5,
		Assignments: []models.ThemeAssignment{
			{PostID: sharedPost.ID, RelevanceScore: 45, AddedAt: time.Now().UTC()},
			{PostID: exclusivePost.ID, RelevanceScore: 45, AddedAt: time.Now().UTC()},
		},
	}}
	if err := repo.ReplaceThemes(ctx, doomed.ID, themes); err != nil {
		t.Fatalf("replace themes: %v", err)
	}

	found, err := audiences.Delete(ctx, doomed.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !found {
		t.Fatal("delete reported audience not found")
	}

	// The audience and everything it exclusively owned is gone.
	if n := countRows(t, db, &models.Audience{}, "id = ?", doomed.ID); n != 0 {
		t.Errorf("audience rows = %d, want 0", n)
	}
	if n := countRows(t, db, &models.Theme{}, "audience_id = ?", doomed.ID); n != 0 {
		t.Errorf("theme rows = %d, want 0", n)
	}
	if n := countRows(t, db, &models.ThemeAssignment{}, ""); n != 0 {
		t.Errorf("assignment rows = %d, want 0", n)
	}
	if n := countRows(t, db, &models.Community{}, "name = ?", "onlysub"); n != 0 {
		t.Errorf("exclusive community rows = %d, want 0", n)
	}
	if n := countRows(t, db, &models.Post{}, "community_name = ?", "onlysub"); n != 0 {
		t.Errorf("exclusive posts = %d, want 0", n)
	}
	if n := countRows(t, db, &models.Comment{}, "post_id = ?", exclusivePost.ID); n != 0 {
		t.Errorf("exclusive comments = %d, want 0", n)
	}
	if n := countRows(t, db, &models.PostAnalysis{}, "post_id = ?", exclusivePost.ID); n != 0 {
		t.Errorf("exclusive analyses = %d, want 0", n)
	}

	// The shared community and its content survive for the other audience.
	if n := countRows(t, db, &models.Community{}, "name = ?", "sharedsub"); n != 1 {
		t.Errorf("shared community rows = %d, want 1", n)
	}
	if n := countRows(t, db, &models.Post{}, "community_name = ?", "sharedsub"); n != 1 {
		t.Errorf("shared posts = %d, want 1", n)
	}
	if n := countRows(t, db, &models.Comment{}, "post_id = ?", sharedPost.ID); n != 1 {
		t.Errorf("shared comments = %d, want 1", n)
	}
	if n := countRows(t, db, &models.AudienceCommunity{}, "audience_id = ?", survivor.ID); n != 1 {
		t.Errorf("survivor memberships = %d, want 1", n)
	}
}

func TestDeleteNotFound(t *testing.T) {
	db := openTestDB(t)
	audiences := NewAudienceRepository(NewRepository(db))

	found, err := audiences.Delete(context.Background(), 9999)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if found {
		t.Error("delete reported a missing audience as found")
	}
}

func TestDeleteOrphanedContentSweep(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	audiences := NewAudienceRepository(repo)
	ctx := context.Background()

	audience := seedAudience(t, audiences, "edited", []string{"oldsub", "keptsub"})
	orphanPost := seedPost(t, repo, "oldsub", "p_old")
	seedPost(t, repo, "keptsub", "p_kept")

	// Membership edits can strand a community without going through
	// Delete; the sweep has to catch that.
	if err := audiences.UpdateCommunities(ctx, audience.ID, []string{"keptsub"}); err != nil {
		t.Fatalf("update communities: %v", err)
	}

	deleted, err := repo.DeleteOrphanedContent(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	// Post, comment, analysis and community row for oldsub.
	if deleted != 4 {
		t.Errorf("deleted = %d, want 4", deleted)
	}

	if n := countRows(t, db, &models.Community{}, "name = ?", "oldsub"); n != 0 {
		t.Errorf("orphan community rows = %d, want 0", n)
	}
	if n := countRows(t, db, &models.Comment{}, "post_id = ?", orphanPost.ID); n != 0 {
		t.Errorf("orphan comments = %d, want 0", n)
	}
	if n := countRows(t, db, &models.Post{}, "community_name = ?", "keptsub"); n != 1 {
		t.Errorf("kept posts = %d, want 1", n)
	}

	// A second sweep finds nothing.
	deleted, err = repo.DeleteOrphanedContent(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if deleted != 0 {
		t.Errorf("second sweep deleted = %d, want 0", deleted)
	}
}


func TestStartCollectionGuard(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	audiences := NewAudienceRepository(repo)
	ctx := context.Background()

	audience := seedAudience(t, audiences, "guarded", []string{"somesub"})

	if err := repo.StartCollection(ctx, audience.ID); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := repo.StartCollection(ctx, audience.ID); err != ErrConcurrentRun {
		t.Fatalf("second start err = %v, want ErrConcurrentRun", err)
	}
}
