package classify

import (
	"context"
	"testing"

	"github.com/soonerrob/rSearch/internal/models"
)

type fakeAnalysisStore struct {
	analyses map[int64]*models.PostAnalysis
	saves    int
}

func newFakeAnalysisStore() *fakeAnalysisStore {
	return &fakeAnalysisStore{analyses: make(map[int64]*models.PostAnalysis)}
}

func (s *fakeAnalysisStore) PostAnalysis(ctx context.Context, postID int64) (*models.PostAnalysis, error) {
	return s.analyses[postID], nil
}

func (s *fakeAnalysisStore) SaveAnalysis(ctx context.Context, analysis *models.PostAnalysis) error {
	s.saves++
	s.analyses[analysis.PostID] = analysis
	return nil
}

func TestClassifyKeywordTheme(t *testing.T) {
	c := NewClassifier(newFakeAnalysisStore())
	post := &models.Post{
		Title:   "Need advice as a beginner",
		Content: "any tips appreciated",
		Score:   5,
	}

	scores, keywords := c.Classify(post, nil)

	score, ok := scores[ThemeAdviceRequests]
	if !ok {
		t.Fatalf("expected %s to match, got %v", ThemeAdviceRequests, scores)
	}
	if score <= 0 || score > 1 {
		t.Errorf("score out of range: %f", score)
	}

	want := map[string]bool{"advice": true, "beginner": true, "tips": true}
	for _, k := range keywords {
		delete(want, k)
	}
	if len(want) > 0 {
		t.Errorf("missing keywords %v in %v", want, keywords)
	}
}

func TestClassifyMetricThemes(t *testing.T) {
	c := NewClassifier(newFakeAnalysisStore())
	post := &models.Post{Title: "zzz", Content: "zzz", Score: 100, NumComments: 50}

	scores, keywords := c.Classify(post, nil)

	if _, ok := scores[ThemeHotDiscussions]; !ok {
		t.Errorf("expected %s to match", ThemeHotDiscussions)
	}
	if _, ok := scores[ThemeTopContent]; !ok {
		t.Errorf("expected %s to match", ThemeTopContent)
	}
	if got := scores[ThemeHotDiscussions]; got != 0.15 {
		t.Errorf("expected hot discussions score 0.15, got %f", got)
	}
	if len(keywords) != 0 {
		t.Errorf("metric themes must not emit keywords, got %v", keywords)
	}
}

func TestClassifyMultiLabel(t *testing.T) {
	c := NewClassifier(newFakeAnalysisStore())
	post := &models.Post{
		Title:   "Frustrated with the price of everything",
		Content: "this is a real problem and it is expensive",
		Score:   3,
	}

	scores, _ := c.Classify(post, nil)

	if _, ok := scores[ThemePainAndAnger]; !ok {
		t.Errorf("expected %s to match", ThemePainAndAnger)
	}
	if _, ok := scores[ThemeMoneyTalk]; !ok {
		t.Errorf("expected %s to match", ThemeMoneyTalk)
	}
}

func TestClassifyNoMatch(t *testing.T) {
	c := NewClassifier(newFakeAnalysisStore())
	post := &models.Post{Title: "zzz", Content: "zzz", Score: 1}

	scores, keywords := c.Classify(post, nil)

	if len(scores) != 0 {
		t.Errorf("expected no matches, got %v", scores)
	}
	if len(keywords) != 0 {
		t.Errorf("expected no keywords, got %v", keywords)
	}
}

func TestClassifyCommentHalfWeight(t *testing.T) {
	c := NewClassifier(newFakeAnalysisStore())
	post := &models.Post{Title: "zzz", Content: "zzz", Score: 1}
	comments := []*models.Comment{
		{Content: "you should ask for advice in the sidebar"},
	}

	withComments, _ := c.Classify(post, comments)
	titleOnly, _ := c.Classify(&models.Post{Title: "looking for advice", Content: "zzz", Score: 1}, nil)

	cScore, ok := withComments[ThemeAdviceRequests]
	if !ok {
		t.Fatal("expected comment-only match")
	}
	// "looking for" also matches a solution phrase; compare advice only.
	tScore := titleOnly[ThemeAdviceRequests]
	if cScore*2 != tScore {
		t.Errorf("comment match should score half a body match: %f vs %f", cScore, tScore)
	}
}

func TestClassifyScoresBounded(t *testing.T) {
	c := NewClassifier(newFakeAnalysisStore())
	post := &models.Post{
		Title: "advice help question how do how to need help beginner learning tips",
		Content: "advice help question how do how to need help beginner learning tips " +
			"frustrated angry annoyed hate problem issue broken complaint",
		Score:       1000000,
		NumComments: 100000,
	}

	scores, _ := c.Classify(post, nil)
	for name, score := range scores {
		if score < 0 || score > 1 || score != score {
			t.Errorf("theme %s score out of [0,1]: %f", name, score)
		}
	}
}

func TestAnalyzePostIdempotent(t *testing.T) {
	store := newFakeAnalysisStore()
	c := NewClassifier(store)
	post := &models.Post{ID: 7, Title: "need advice", Content: "help me", Score: 5}

	if err := c.AnalyzePost(context.Background(), post, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.AnalyzePost(context.Background(), post, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.saves != 1 {
		t.Errorf("expected exactly one save, got %d", store.saves)
	}

	analysis := store.analyses[7]
	if analysis == nil {
		t.Fatal("expected analysis persisted")
	}
	names := analysis.ThemeNames()
	if len(names) == 0 {
		t.Error("expected matched theme names recorded")
	}
	if len(analysis.ScoreMap()) != len(names) {
		t.Errorf("score map size %d != theme count %d", len(analysis.ScoreMap()), len(names))
	}
}
