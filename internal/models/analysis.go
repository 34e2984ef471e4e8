package models

import (
	"encoding/json"
	"strings"
	"time"
)

// PostAnalysis holds the classifier output for a single post. One row per
// post; recomputation is skipped if a row already exists.
type PostAnalysis struct {
	ID             int64     `gorm:"primaryKey;autoIncrement;column:id"`
	PostID         int64     `gorm:"not null;uniqueIndex;column:post_id"`
	MatchingThemes string    `gorm:"type:text;not null;default:'';column:matching_themes"`
	ThemeScores    string    `gorm:"type:text;not null;default:'{}';column:theme_scores"`
	Keywords       string    `gorm:"type:text;not null;default:'';column:keywords"`
	AnalyzedAt     time.Time `gorm:"not null;column:analyzed_at"`

	// Relationships
	Post *Post `gorm:"foreignKey:PostID;references:ID"`
}

// TableName specifies the table name for PostAnalysis
func (PostAnalysis) TableName() string {
	return "post_analyses"
}

// ThemeNames returns the matched theme names
func (a *PostAnalysis) ThemeNames() []string {
	if a.MatchingThemes == "" {
		return nil
	}
	names := strings.Split(a.MatchingThemes, ",")
	out := names[:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// SetThemeNames stores the matched theme names
func (a *PostAnalysis) SetThemeNames(names []string) {
	a.MatchingThemes = strings.Join(names, ",")
}

// ScoreMap decodes the per-theme score column
func (a *PostAnalysis) ScoreMap() map[string]float64 {
	scores := make(map[string]float64)
	if a.ThemeScores == "" {
		return scores
	}
	_ = json.Unmarshal([]byte(a.ThemeScores), &scores)
	return scores
}

// SetScoreMap encodes the per-theme score column
func (a *PostAnalysis) SetScoreMap(scores map[string]float64) {
	if len(scores) == 0 {
		a.ThemeScores = "{}"
		return
	}
	data, err := json.Marshal(scores)
	if err != nil {
		a.ThemeScores = "{}"
		return
	}
	a.ThemeScores = string(data)
}

// KeywordList returns the extracted keywords
func (a *PostAnalysis) KeywordList() []string {
	if a.Keywords == "" {
		return nil
	}
	kws := strings.Split(a.Keywords, ",")
	out := kws[:0]
	for _, k := range kws {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// SetKeywordList stores the extracted keywords
func (a *PostAnalysis) SetKeywordList(keywords []string) {
	a.Keywords = strings.Join(keywords, ",")
}
