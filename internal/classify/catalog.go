package classify

import "github.com/soonerrob/rSearch/internal/models"

// Definition is one catalog entry. Metric entries set Predicate and
// MetricScore and classify on post metrics alone; keyword entries set
// Phrases and match on case-insensitive substrings of title + body.
// Per-theme behavior lives here as data so new themes need no code.
type Definition struct {
	Name    string
	Phrases []string

	// Metric entries
	Predicate   func(*models.Post) bool
	MetricScore func(*models.Post) float64

	// Keyword entries
	Adjust       func(*models.Post) float64
	ScanComments bool
}

// Metric reports whether this entry classifies on post metrics rather
// than trigger phrases
func (d *Definition) Metric() bool {
	return d.Predicate != nil
}

// Theme category names
const (
	ThemeHotDiscussions   = "Hot Discussions"
	ThemeTopContent       = "Top Content"
	ThemeAdviceRequests   = "Advice Requests"
	ThemeSolutionRequests = "Solution Requests"
	ThemePainAndAnger     = "Pain & Anger"
	ThemeMoneyTalk        = "Money Talk"
	ThemeSelfPromotion    = "Self-Promotion"
	ThemeNews             = "News"
	ThemeIdeas            = "Ideas"
	ThemeOpportunities    = "Opportunities"
)

// Catalog returns the fixed theme catalog
func Catalog() []Definition {
	return []Definition{
		{
			Name: ThemeHotDiscussions,
			Predicate: func(p *models.Post) bool {
				return p.Score > 10 && p.NumComments > 5
			},
			MetricScore: func(p *models.Post) float64 {
				return float64(p.Score+p.NumComments) / 1000
			},
		},
		{
			Name: ThemeTopContent,
			Predicate: func(p *models.Post) bool {
				return p.Score > 50
			},
			MetricScore: func(p *models.Post) float64 {
				return float64(p.Score) / 1000
			},
		},
		{
			Name: ThemeAdviceRequests,
			Phrases: []string{
				"advice", "help", "question", "how do", "how to",
				"need help", "beginner", "learning", "tips",
			},
			// Longer bodies usually mean a real question, not a drive-by
			Adjust: func(p *models.Post) float64 {
				adj := float64(len(p.Content)) / 2000
				if adj > 0.5 {
					adj = 0.5
				}
				return adj
			},
			ScanComments: true,
		},
		{
			Name: ThemeSolutionRequests,
			Phrases: []string{
				"looking for", "recommend", "suggestion", "alternative",
				"which", "vs", "setup",
			},
			ScanComments: true,
		},
		{
			Name: ThemePainAndAnger,
			Phrases: []string{
				"frustrated", "angry", "annoyed", "hate", "problem",
				"issue", "broken", "complaint",
			},
			ScanComments: true,
		},
		{
			Name: ThemeMoneyTalk,
			Phrases: []string{
				"price", "cost", "money", "paid", "expensive", "cheap",
				"worth", "budget", "deal", "sale",
			},
		},
		{
			Name: ThemeSelfPromotion,
			Phrases: []string{
				"i made", "my project", "check out", "launching",
				"just released",
			},
		},
		{
			Name: ThemeNews,
			Phrases: []string{
				"news", "announcement", "update", "release", "launched",
			},
		},
		{
			Name: ThemeIdeas,
			Phrases: []string{
				"idea", "creative", "inspiration", "concept", "what if",
			},
		},
		{
			Name: ThemeOpportunities,
			Phrases: []string{
				"opportunity", "job", "hiring", "collaboration",
				"looking to work",
			},
		},
	}
}
