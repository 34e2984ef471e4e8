package collector

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soonerrob/rSearch/internal/models"
	"github.com/soonerrob/rSearch/internal/reddit"
	"github.com/soonerrob/rSearch/pkg/logging"
)

// TreeFilters control which comment nodes survive tree reconstruction
type TreeFilters struct {
	// MaxDepth caps traversal; subtrees below it are discarded
	MaxDepth int
	// MinScoreByDepth holds per-depth score thresholds
	MinScoreByDepth map[int]int
	// DefaultMinScore applies to depths beyond the configured map
	DefaultMinScore int
	// MinLength drops comments with shorter bodies
	MinLength int
}

// TreeBuilder flattens the source's nested comment forest into Comment
// records with resolved depth and ancestor paths.
type TreeBuilder struct {
	filters TreeFilters
	logger  *zap.Logger
}

// NewTreeBuilder creates a tree builder with the given filters
func NewTreeBuilder(filters TreeFilters) *TreeBuilder {
	return &TreeBuilder{
		filters: filters,
		logger:  logging.GetLogger().With(zap.String("component", "comment-tree")),
	}
}

// frame is one pending node in the explicit traversal stack
type frame struct {
	node  *reddit.CommentPayload
	depth int
	path  []string
}

// Build walks the comment forest depth-first and returns the surviving
// comments flat, parents strictly before children. known holds external
// ids already persisted for this post; those nodes are excluded from the
// result but still anchor the depth/path of their replies.
//
// Two drop rules differ deliberately: a node failing the quality filters
// disqualifies its whole subtree, while an unrecoverable placeholder
// (deleted/removed body, missing author or timestamp) is skipped silently
// and its replies are re-anchored at the placeholder's own position.
func (b *TreeBuilder) Build(forest []*reddit.CommentPayload, postID int64, known map[string]struct{}) []*models.Comment {
	now := time.Now().UTC()
	var out []*models.Comment

	// Seed the stack in reverse so siblings pop in arrival order. A
	// root entry declaring a comment parent is a malformed listing
	// fragment, not a top-level comment.
	stack := make([]frame, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		if !forest[i].ParentIsPost() {
			continue
		}
		stack = append(stack, frame{node: forest[i], depth: 0, path: nil})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.depth > b.filters.MaxDepth {
			continue
		}

		node := f.node
		if isPlaceholder(node) {
			// Replies to a removed comment thread at the removed node's
			// own depth/path, under its grandparent.
			stack = pushReplies(stack, node, f.depth, f.path)
			continue
		}

		body := strings.TrimSpace(node.Body)
		if len(body) < b.filters.MinLength || node.Score < b.minScoreAt(f.depth) {
			// A dropped parent disqualifies its subtree.
			continue
		}

		childPath := appendPath(f.path, node.ID)

		if _, exists := known[node.ID]; !exists {
			out = append(out, b.newComment(node, postID, f.depth, f.path, body, now))
		}

		stack = pushReplies(stack, node, f.depth+1, childPath)
	}

	return out
}

// pushReplies queues a node's replies in reverse for in-order popping.
// A reply whose declared parent names a different comment than the one
// it arrived nested under is malformed and skipped.
func pushReplies(stack []frame, node *reddit.CommentPayload, depth int, path []string) []frame {
	replies := node.Replies.Comments
	for i := len(replies) - 1; i >= 0; i-- {
		if pid := replies[i].ParentLocalID(); pid != "" && pid != node.ID {
			continue
		}
		stack = append(stack, frame{node: replies[i], depth: depth, path: path})
	}
	return stack
}

func (b *TreeBuilder) newComment(node *reddit.CommentPayload, postID int64, depth int, path []string, body string, now time.Time) *models.Comment {
	score := node.Score
	if score < 0 {
		score = 0
	}

	c := &models.Comment{
		ExternalID:      node.ID,
		PostID:          postID,
		Depth:           depth,
		Content:         body,
		Author:          node.Author,
		Score:           score,
		IsSubmitter:     node.IsSubmitter,
		Distinguished:   node.IsDistinguished(),
		Stickied:        node.Stickied,
		Edited:          bool(node.Edited),
		EngagementScore: CommentEngagement(score, depth, node.IsSubmitter, node.IsDistinguished(), len(node.AllAwardings) > 0),
		CreatedAt:       node.CreatedAt(),
		CollectedAt:     now,
	}
	c.SetPath(path)
	if len(path) > 0 {
		c.ParentExternalID.String = path[len(path)-1]
		c.ParentExternalID.Valid = true
	}

	c.SetAwards(node.AwardMap())

	return c
}

func (b *TreeBuilder) minScoreAt(depth int) int {
	if threshold, ok := b.filters.MinScoreByDepth[depth]; ok {
		return threshold
	}
	return b.filters.DefaultMinScore
}

// isPlaceholder reports whether a node is an unrecoverable deleted or
// removed marker rather than real content
func isPlaceholder(node *reddit.CommentPayload) bool {
	if node.Author == "" || node.Author == "[deleted]" {
		return true
	}
	switch node.Body {
	case "", "[deleted]", "[removed]":
		return true
	}
	return node.CreatedAt().IsZero()
}

// appendPath copies the parent path before extending it; frames share
// backing arrays otherwise
func appendPath(path []string, id string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = id
	return out
}
