package models

import (
	"database/sql"
	"strings"
	"time"
)

// Community represents an external content group, keyed by its
// case-normalized name
type Community struct {
	Name           string          `gorm:"type:varchar(64);primaryKey;column:name"`
	DisplayName    string          `gorm:"type:varchar(64);not null;column:display_name"`
	Description    sql.NullString  `gorm:"type:text;column:description"`
	Subscribers    int64           `gorm:"not null;default:0;column:subscribers"`
	ActiveUsers    sql.NullInt64   `gorm:"column:active_users"`
	PostsPerDay    sql.NullFloat64 `gorm:"column:posts_per_day"`
	CommentsPerDay sql.NullFloat64 `gorm:"column:comments_per_day"`
	GrowthRate     sql.NullFloat64 `gorm:"column:growth_rate"`
	RelevanceScore float64         `gorm:"not null;default:0;column:relevance_score"`
	CreatedAt      time.Time       `gorm:"not null;column:created_at"`
	UpdatedAt      time.Time       `gorm:"not null;column:updated_at"`

	// Relationships
	Posts []Post `gorm:"foreignKey:CommunityName;references:Name"`
}

// TableName specifies the table name for Community
func (Community) TableName() string {
	return "communities"
}

// NormalizeCommunityName lowercases a community name for use as its key
func NormalizeCommunityName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
