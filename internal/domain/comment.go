package domain

// Post represents a media post on the monitored account.
type Post struct {
	ID           string // Graph API media ID
	Caption      string
	MediaType    string // IMAGE | VIDEO | CAROUSEL_ALBUM
	Permalink    string
	CommentCount int
	Timestamp    int64 // Unix timestamp in milliseconds
}

// Comment represents a single comment on a post.
// Immutable once fetched from the feed.
type Comment struct {
	ID            string // globally unique comment ID
	Text          string
	Username      string // commenter handle, without leading @
	Timestamp     int64  // Unix timestamp in milliseconds
	PostID        string
	PostPermalink string
}
