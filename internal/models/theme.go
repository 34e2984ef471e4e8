package models

import "time"

// Theme is an audience-scoped topical category generated from the theme
// catalog. Themes are deleted and regenerated wholesale on refresh.
type Theme struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;column:id"`
	AudienceID int64     `gorm:"not null;index;column:audience_id"`
	Category   string    `gorm:"type:varchar(64);not null;index;column:category"`
	Summary    string    `gorm:"type:text;not null;column:summary"`
	Score      float64   `gorm:"not null;default:0;column:score"`
	CreatedAt  time.Time `gorm:"not null;column:created_at"`
	UpdatedAt  time.Time `gorm:"not null;column:updated_at"`

	// Relationships
	Audience    *Audience         `gorm:"foreignKey:AudienceID;references:ID"`
	Assignments []ThemeAssignment `gorm:"foreignKey:ThemeID;references:ID"`
}

// TableName specifies the table name for Theme
func (Theme) TableName() string {
	return "themes"
}

// ThemeAssignment joins a theme to a post with a relevance score used to
// order "top posts in theme"
type ThemeAssignment struct {
	ThemeID        int64     `gorm:"primaryKey;column:theme_id"`
	PostID         int64     `gorm:"primaryKey;column:post_id"`
	RelevanceScore float64   `gorm:"not null;default:0;column:relevance_score"`
	AddedAt        time.Time `gorm:"not null;column:added_at"`

	// Relationships
	Theme *Theme `gorm:"foreignKey:ThemeID;references:ID"`
	Post  *Post  `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for ThemeAssignment
func (ThemeAssignment) TableName() string {
	return "theme_assignments"
}
