package models

import (
	"database/sql"
	"time"
)

// Audience represents a named group of communities tracked together
type Audience struct {
	ID                 int64        `gorm:"primaryKey;autoIncrement;column:id"`
	Name               string       `gorm:"type:varchar(255);not null;index;column:name"`
	Description        string       `gorm:"type:varchar(2000);not null;default:'';column:description"`
	Timeframe          string       `gorm:"type:varchar(8);not null;default:'year';column:timeframe"`
	PostsPerCommunity  int          `gorm:"not null;default:500;column:posts_per_community"`
	IsCollecting       bool         `gorm:"not null;default:false;column:is_collecting"`
	CollectionProgress float64      `gorm:"not null;default:0;column:collection_progress"`
	LastCollectionTime sql.NullTime `gorm:"column:last_collection_time"`
	CreatedAt          time.Time    `gorm:"not null;column:created_at"`
	UpdatedAt          time.Time    `gorm:"not null;column:updated_at"`

	// Relationships
	Communities []AudienceCommunity `gorm:"foreignKey:AudienceID;references:ID"`
	Themes      []Theme             `gorm:"foreignKey:AudienceID;references:ID"`
}

// TableName specifies the table name for Audience
func (Audience) TableName() string {
	return "audiences"
}

// Timeframe constants
const (
	TimeframeHour  = "hour"
	TimeframeDay   = "day"
	TimeframeWeek  = "week"
	TimeframeMonth = "month"
	TimeframeYear  = "year"
	TimeframeAll   = "all"
)

// ValidTimeframe reports whether tf is a recognized collection timeframe
func ValidTimeframe(tf string) bool {
	switch tf {
	case TimeframeHour, TimeframeDay, TimeframeWeek, TimeframeMonth, TimeframeYear, TimeframeAll:
		return true
	}
	return false
}

// AudienceCommunity joins audiences to communities (many-to-many)
type AudienceCommunity struct {
	AudienceID    int64     `gorm:"primaryKey;column:audience_id"`
	CommunityName string    `gorm:"type:varchar(64);primaryKey;column:community_name"`
	AddedAt       time.Time `gorm:"not null;column:added_at"`

	// Relationships
	Audience  *Audience  `gorm:"foreignKey:AudienceID;references:ID"`
	Community *Community `gorm:"foreignKey:CommunityName;references:Name"`
}

// TableName specifies the table name for AudienceCommunity
func (AudienceCommunity) TableName() string {
	return "audience_communities"
}
