package reddit

import (
	"encoding/json"
	"strings"
	"time"
)

// Reference-type prefixes used by the source in parent links
const (
	kindComment = "t1"
	kindPost    = "t3"
)

// thing is the source's generic typed-payload envelope
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// listing is the source's paginated container
type listing struct {
	Data struct {
		Children []thing `json:"children"`
		After    string  `json:"after"`
	} `json:"data"`
}

// Awarding is a single award entry on a post or comment
type Awarding struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PostPayload is a raw post as returned by the content source
type PostPayload struct {
	ID                string     `json:"id"`
	Community         string     `json:"subreddit"`
	Title             string     `json:"title"`
	SelfText          string     `json:"selftext"`
	URL               string     `json:"url"`
	Author            string     `json:"author"`
	Score             int        `json:"score"`
	NumComments       int        `json:"num_comments"`
	UpvoteRatio       float64    `json:"upvote_ratio"`
	Distinguished     string     `json:"distinguished"`
	Stickied          bool       `json:"stickied"`
	IsOriginalContent bool       `json:"is_original_content"`
	AllAwardings      []Awarding `json:"all_awardings"`
	CreatedUTC        float64    `json:"created_utc"`
}

// CreatedAt converts the source's epoch timestamp. Zero time means the
// payload carried no timestamp.
func (p *PostPayload) CreatedAt() time.Time {
	if p.CreatedUTC == 0 {
		return time.Time{}
	}
	return time.Unix(int64(p.CreatedUTC), 0).UTC()
}

// AwardMap flattens the award list into a name -> count map
func (p *PostPayload) AwardMap() map[string]int {
	return awardMap(p.AllAwardings)
}

// IsDistinguished reports whether the post carries any distinguished marker
func (p *PostPayload) IsDistinguished() bool {
	return p.Distinguished != ""
}

// CommentPayload is a raw comment node in the source's nested reply forest
type CommentPayload struct {
	ID            string        `json:"id"`
	ParentID      string        `json:"parent_id"`
	Body          string        `json:"body"`
	Author        string        `json:"author"`
	Score         int           `json:"score"`
	IsSubmitter   bool          `json:"is_submitter"`
	Distinguished string        `json:"distinguished"`
	Stickied      bool          `json:"stickied"`
	Edited        EditedFlag    `json:"edited"`
	AllAwardings  []Awarding    `json:"all_awardings"`
	CreatedUTC    float64       `json:"created_utc"`
	Replies       CommentForest `json:"replies"`
}

// CreatedAt converts the source's epoch timestamp. Zero time means the
// payload carried no timestamp.
func (c *CommentPayload) CreatedAt() time.Time {
	if c.CreatedUTC == 0 {
		return time.Time{}
	}
	return time.Unix(int64(c.CreatedUTC), 0).UTC()
}

// AwardMap flattens the award list into a name -> count map
func (c *CommentPayload) AwardMap() map[string]int {
	return awardMap(c.AllAwardings)
}

// IsDistinguished reports whether the comment carries any distinguished marker
func (c *CommentPayload) IsDistinguished() bool {
	return c.Distinguished != ""
}

// ParentIsPost reports whether the declared parent is the post itself,
// making this a top-level comment.
func (c *CommentPayload) ParentIsPost() bool {
	return strings.HasPrefix(c.ParentID, kindPost+"_") || c.ParentID == ""
}

// ParentLocalID strips the reference-type prefix from the parent link,
// returning the bare external id of the parent comment. Empty for
// top-level comments.
func (c *CommentPayload) ParentLocalID() string {
	if !strings.HasPrefix(c.ParentID, kindComment+"_") {
		return ""
	}
	return c.ParentID[len(kindComment)+1:]
}

// CommentForest holds the nested replies of a comment or the top-level
// comments of a post
type CommentForest struct {
	Comments []*CommentPayload
}

// UnmarshalJSON handles the source's quirk of encoding an empty reply
// forest as the empty string instead of a listing object.
func (f *CommentForest) UnmarshalJSON(data []byte) error {
	f.Comments = nil
	if len(data) == 0 || string(data) == `""` || string(data) == "null" {
		return nil
	}

	var l listing
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}

	for _, child := range l.Data.Children {
		// "more" stubs carry no content and are not expanded here
		if child.Kind != kindComment {
			continue
		}
		var c CommentPayload
		if err := json.Unmarshal(child.Data, &c); err != nil {
			return err
		}
		f.Comments = append(f.Comments, &c)
	}
	return nil
}

// EditedFlag handles the source encoding "edited" as either false or an
// edit timestamp
type EditedFlag bool

// UnmarshalJSON treats any non-false value as edited
func (e *EditedFlag) UnmarshalJSON(data []byte) error {
	s := string(data)
	*e = s != "false" && s != "null" && s != `""`
	return nil
}

// CommunityPayload is raw community metadata as returned by the source
type CommunityPayload struct {
	Name              string  `json:"display_name"`
	Title             string  `json:"title"`
	PublicDescription string  `json:"public_description"`
	Subscribers       int64   `json:"subscribers"`
	ActiveUserCount   *int64  `json:"active_user_count"`
	CreatedUTC        float64 `json:"created_utc"`
}

// CreatedAt converts the source's epoch timestamp
func (c *CommunityPayload) CreatedAt() time.Time {
	if c.CreatedUTC == 0 {
		return time.Time{}
	}
	return time.Unix(int64(c.CreatedUTC), 0).UTC()
}

func awardMap(awardings []Awarding) map[string]int {
	awards := make(map[string]int, len(awardings))
	for _, a := range awardings {
		awards[a.Name] = a.Count
	}
	return awards
}
