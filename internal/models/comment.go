package models

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"
)

// Comment represents a collected comment, flattened out of the source's
// nested reply tree. Depth 0 is a top-level comment; Path holds the
// external ids of all ancestors, root first.
type Comment struct {
	ID               int64          `gorm:"primaryKey;autoIncrement;column:id"`
	ExternalID       string         `gorm:"type:varchar(16);not null;uniqueIndex;column:external_id"`
	PostID           int64          `gorm:"not null;index;column:post_id"`
	ParentExternalID sql.NullString `gorm:"type:varchar(16);column:parent_external_id"`
	Depth            int            `gorm:"not null;default:0;column:depth"`
	Path             string         `gorm:"type:text;not null;default:'';column:path"`
	Content          string         `gorm:"type:text;not null;column:content"`
	Author           string         `gorm:"type:varchar(64);not null;column:author"`
	Score            int            `gorm:"not null;default:0;column:score"`
	IsSubmitter      bool           `gorm:"not null;default:false;column:is_submitter"`
	Distinguished    bool           `gorm:"not null;default:false;column:distinguished"`
	Stickied         bool           `gorm:"not null;default:false;column:stickied"`
	Edited           bool           `gorm:"not null;default:false;column:edited"`
	Awards           string         `gorm:"type:text;not null;default:'{}';column:awards"`
	EngagementScore  float64        `gorm:"not null;default:0;column:engagement_score"`
	CreatedAt        time.Time      `gorm:"not null;column:created_at"`
	CollectedAt      time.Time      `gorm:"not null;column:collected_at"`

	// Relationships
	Post *Post `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// PathIDs splits the stored ancestor path into individual external ids
func (c *Comment) PathIDs() []string {
	if c.Path == "" {
		return nil
	}
	return strings.Split(c.Path, ",")
}

// SetPath stores an ordered list of ancestor external ids
func (c *Comment) SetPath(ids []string) {
	c.Path = strings.Join(ids, ",")
}

// AwardMap decodes the awards column into a name -> count map
func (c *Comment) AwardMap() map[string]int {
	awards := make(map[string]int)
	if c.Awards == "" {
		return awards
	}
	_ = json.Unmarshal([]byte(c.Awards), &awards)
	return awards
}

// SetAwards encodes a name -> count map into the awards column
func (c *Comment) SetAwards(awards map[string]int) {
	if len(awards) == 0 {
		c.Awards = "{}"
		return
	}
	data, err := json.Marshal(awards)
	if err != nil {
		c.Awards = "{}"
		return
	}
	c.Awards = string(data)
}
