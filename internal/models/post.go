package models

import (
	"encoding/json"
	"time"
)

// Post represents a collected post from the content source
type Post struct {
	ID                int64     `gorm:"primaryKey;autoIncrement;column:id"`
	ExternalID        string    `gorm:"type:varchar(16);not null;uniqueIndex;column:external_id"`
	CommunityName     string    `gorm:"type:varchar(64);not null;index;column:community_name"`
	Title             string    `gorm:"type:varchar(500);not null;column:title"`
	Content           string    `gorm:"type:text;not null;default:'';column:content"`
	URL               string    `gorm:"type:varchar(2000);not null;default:'';column:url"`
	Author            string    `gorm:"type:varchar(64);not null;column:author"`
	Score             int       `gorm:"not null;default:0;column:score"`
	NumComments       int       `gorm:"not null;default:0;column:num_comments"`
	UpvoteRatio       float64   `gorm:"not null;default:1;column:upvote_ratio"`
	Distinguished     bool      `gorm:"not null;default:false;column:distinguished"`
	Stickied          bool      `gorm:"not null;default:false;column:stickied"`
	IsOriginalContent bool      `gorm:"not null;default:false;column:is_original_content"`
	Awards            string    `gorm:"type:text;not null;default:'{}';column:awards"`
	EngagementScore   float64   `gorm:"not null;default:0;column:engagement_score"`
	CollectionSource  string    `gorm:"type:varchar(16);not null;default:'';column:collection_source"`
	CreatedAt         time.Time `gorm:"not null;column:created_at"`
	CollectedAt       time.Time `gorm:"not null;column:collected_at"`

	// Relationships
	Community *Community `gorm:"foreignKey:CommunityName;references:Name"`
	Comments  []Comment  `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// AwardMap decodes the awards column into a name -> count map
func (p *Post) AwardMap() map[string]int {
	awards := make(map[string]int)
	if p.Awards == "" {
		return awards
	}
	_ = json.Unmarshal([]byte(p.Awards), &awards)
	return awards
}

// SetAwards encodes a name -> count map into the awards column
func (p *Post) SetAwards(awards map[string]int) {
	if len(awards) == 0 {
		p.Awards = "{}"
		return
	}
	data, err := json.Marshal(awards)
	if err != nil {
		p.Awards = "{}"
		return
	}
	p.Awards = string(data)
}
