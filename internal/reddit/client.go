package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/soonerrob/rSearch/pkg/config"
	"github.com/soonerrob/rSearch/pkg/logging"
	"github.com/soonerrob/rSearch/pkg/telemetry"
)

// Sort orders accepted by CommunityPosts
const (
	SortHot           = "hot"
	SortTop           = "top"
	SortNew           = "new"
	SortRising        = "rising"
	SortControversial = "controversial"
)

// Client wraps the content source's public JSON API behind the rate limiter
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *RateLimiter
	logger    *zap.Logger
}

// New creates a new content-source client
func New(cfg *config.RedditConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("reddit_base_url is required")
	}

	logger := logging.GetLogger().With(zap.String("component", "reddit-client"))

	client := &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   NewRateLimiter(cfg),
		logger:    logger,
	}

	logger.Info("Content source client initialized", zap.String("url", cfg.BaseURL))

	return client, nil
}

// Limiter exposes the client's rate limiter for batch helpers
func (c *Client) Limiter() *RateLimiter {
	return c.limiter
}

// CommunityPosts fetches posts from a community with the given sort order
// and timeframe
func (c *Client) CommunityPosts(ctx context.Context, community, sort, timeframe string, limit int) ([]*PostPayload, error) {
	ctx, span := telemetry.StartSpan(ctx, "reddit.community_posts")
	defer span.End()

	switch sort {
	case SortHot, SortTop, SortNew, SortRising, SortControversial:
	default:
		return nil, fmt.Errorf("invalid sort method: %s", sort)
	}

	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))
	if sort == SortTop || sort == SortControversial {
		query.Set("t", timeframe)
	}

	var l listing
	op := fmt.Sprintf("community_posts %s/%s", community, sort)
	err := c.limiter.Do(ctx, op, func(ctx context.Context) error {
		return c.getJSON(ctx, op, fmt.Sprintf("/r/%s/%s.json", community, sort), query, &l)
	})
	if err != nil {
		return nil, err
	}

	posts := make([]*PostPayload, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != kindPost {
			continue
		}
		var p PostPayload
		if err := json.Unmarshal(child.Data, &p); err != nil {
			c.logger.Error("Failed to decode post payload",
				zap.String("community", community), zap.Error(err))
			continue
		}
		posts = append(posts, &p)
	}

	return posts, nil
}

// PostComments fetches the full nested comment forest for a post
func (c *Client) PostComments(ctx context.Context, postID string) ([]*CommentPayload, error) {
	ctx, span := telemetry.StartSpan(ctx, "reddit.post_comments")
	defer span.End()

	// The comments endpoint returns a two-element array: the post listing
	// followed by the comment listing.
	var envelope []json.RawMessage
	op := fmt.Sprintf("post_comments %s", postID)
	err := c.limiter.Do(ctx, op, func(ctx context.Context) error {
		return c.getJSON(ctx, op, fmt.Sprintf("/comments/%s.json", postID), nil, &envelope)
	})
	if err != nil {
		return nil, err
	}

	if len(envelope) < 2 {
		return nil, fmt.Errorf("%s: malformed comment response", op)
	}

	var forest CommentForest
	if err := forest.UnmarshalJSON(envelope[1]); err != nil {
		return nil, fmt.Errorf("%s: failed to decode comment forest: %w", op, err)
	}

	return forest.Comments, nil
}

// SearchCommunities searches for communities matching the query
func (c *Client) SearchCommunities(ctx context.Context, q string, limit int) ([]*CommunityPayload, error) {
	ctx, span := telemetry.StartSpan(ctx, "reddit.search_communities")
	defer span.End()

	query := url.Values{}
	query.Set("q", q)
	query.Set("limit", fmt.Sprintf("%d", limit))

	var l listing
	op := fmt.Sprintf("search_communities %q", q)
	err := c.limiter.Do(ctx, op, func(ctx context.Context) error {
		return c.getJSON(ctx, op, "/subreddits/search.json", query, &l)
	})
	if err != nil {
		return nil, err
	}

	communities := make([]*CommunityPayload, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		var info CommunityPayload
		if err := json.Unmarshal(child.Data, &info); err != nil {
			c.logger.Error("Failed to decode community payload", zap.Error(err))
			continue
		}
		communities = append(communities, &info)
	}

	return communities, nil
}

// CommunityInfo fetches metadata for a single community
func (c *Client) CommunityInfo(ctx context.Context, community string) (*CommunityPayload, error) {
	ctx, span := telemetry.StartSpan(ctx, "reddit.community_info")
	defer span.End()

	var t thing
	op := fmt.Sprintf("community_info %s", community)
	err := c.limiter.Do(ctx, op, func(ctx context.Context) error {
		return c.getJSON(ctx, op, fmt.Sprintf("/r/%s/about.json", community), nil, &t)
	})
	if err != nil {
		return nil, err
	}

	var info CommunityPayload
	if err := json.Unmarshal(t.Data, &info); err != nil {
		return nil, fmt.Errorf("%s: failed to decode community info: %w", op, err)
	}

	return &info, nil
}

// getJSON performs a single GET and decodes the response. A 429 status is
// translated to ErrRateLimited so the limiter can back off and retry.
func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, v interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Err: ErrRateLimited}
	case resp.StatusCode == http.StatusNotFound:
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Err: ErrNotFound}
	case resp.StatusCode != http.StatusOK:
		return &RequestError{Op: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}

	if err := json.Unmarshal(body, v); err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}
