package reddit

import (
	"encoding/json"
	"testing"
)

func TestCommentForestUnmarshalEmptyString(t *testing.T) {
	// The source encodes an empty reply forest as "" instead of a listing
	var f CommentForest
	if err := json.Unmarshal([]byte(`""`), &f); err != nil {
		t.Fatalf("UnmarshalJSON(%q) error: %v", `""`, err)
	}
	if len(f.Comments) != 0 {
		t.Errorf("Expected empty forest, got %d comments", len(f.Comments))
	}
}

func TestCommentForestUnmarshalNested(t *testing.T) {
	data := `{
		"data": {
			"children": [
				{"kind": "t1", "data": {
					"id": "c1", "parent_id": "t3_p1", "body": "top level",
					"author": "alice", "score": 10, "created_utc": 1700000000,
					"replies": {"data": {"children": [
						{"kind": "t1", "data": {
							"id": "c2", "parent_id": "t1_c1", "body": "a reply",
							"author": "bob", "score": 3, "created_utc": 1700000100,
							"replies": ""
						}}
					]}}
				}},
				{"kind": "more", "data": {"count": 12}}
			]
		}
	}`

	var f CommentForest
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		t.Fatalf("UnmarshalJSON error: %v", err)
	}

	if len(f.Comments) != 1 {
		t.Fatalf("Expected 1 top-level comment (more stub skipped), got %d", len(f.Comments))
	}

	top := f.Comments[0]
	if !top.ParentIsPost() {
		t.Error("Comment with t3_ parent should be top-level")
	}
	if top.ParentLocalID() != "" {
		t.Errorf("Top-level comment should have no parent local id, got %q", top.ParentLocalID())
	}

	if len(top.Replies.Comments) != 1 {
		t.Fatalf("Expected 1 reply, got %d", len(top.Replies.Comments))
	}

	reply := top.Replies.Comments[0]
	if reply.ParentIsPost() {
		t.Error("Comment with t1_ parent should not be top-level")
	}
	if reply.ParentLocalID() != "c1" {
		t.Errorf("ParentLocalID() = %q, want c1", reply.ParentLocalID())
	}
}

func TestEditedFlag(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected bool
	}{
		{"false", `false`, false},
		{"timestamp", `1700000123.0`, true},
		{"true", `true`, true},
		{"null", `null`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e EditedFlag
			if err := json.Unmarshal([]byte(tt.raw), &e); err != nil {
				t.Fatalf("UnmarshalJSON(%s) error: %v", tt.raw, err)
			}
			if bool(e) != tt.expected {
				t.Errorf("EditedFlag(%s) = %v, want %v", tt.raw, bool(e), tt.expected)
			}
		})
	}
}

func TestPostPayloadAwardMap(t *testing.T) {
	p := &PostPayload{
		AllAwardings: []Awarding{
			{Name: "Silver", Count: 2},
			{Name: "Gold", Count: 1},
		},
	}

	awards := p.AwardMap()
	if len(awards) != 2 {
		t.Fatalf("Expected 2 awards, got %d", len(awards))
	}
	if awards["Silver"] != 2 {
		t.Errorf("awards[Silver] = %d, want 2", awards["Silver"])
	}
}

func TestPostPayloadCreatedAtZero(t *testing.T) {
	p := &PostPayload{}
	if !p.CreatedAt().IsZero() {
		t.Error("Missing created_utc should yield zero time")
	}
}

func TestIsDistinguished(t *testing.T) {
	c := &CommentPayload{Distinguished: "moderator"}
	if !c.IsDistinguished() {
		t.Error("moderator comment should be distinguished")
	}
	c.Distinguished = ""
	if c.IsDistinguished() {
		t.Error("plain comment should not be distinguished")
	}
}
