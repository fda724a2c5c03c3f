package osu

import (
	"context"
	"time"
)

// News is one page of the news listing. Pagination uses the opaque-token
// convention: the cursor is stored verbatim and replayed on the follow-up
// request, never decoded into a page number.
type News struct {
	Cursor  Cursor      `json:"cursor"`
	Posts   []NewsPost  `json:"news_posts"`
	Search  NewsSearch  `json:"search"`
	Sidebar NewsSidebar `json:"news_sidebar"`
}

// HasMore reports whether a further page of news exists.
func (n *News) HasMore() bool {
	return n.Cursor.Present()
}

// GetNext replays the news request with the stored token, issuing exactly
// one request through rq. It returns (nil, nil) when no token is present; no
// request is made in that case.
func (n *News) GetNext(ctx context.Context, rq Requester) (*News, error) {
	if !n.HasMore() {
		return nil, nil
	}
	return fetchNews(ctx, rq, n.Cursor)
}

// NewsPost is one published news post.
type NewsPost struct {
	PostID      uint32     `json:"id"`
	Author      string     `json:"author"`
	EditURL     string     `json:"edit_url"`
	FirstImage  string     `json:"first_image"`
	PublishedAt time.Time  `json:"published_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Preview     *string    `json:"preview,omitempty"`
}

// NewsSearch echoes the search parameters of the listing request.
type NewsSearch struct {
	Cursor Cursor `json:"cursor"`
	Limit  uint32 `json:"limit"`
}

// NewsSidebar is the sidebar block served alongside the listing.
type NewsSidebar struct {
	CurrentYear uint32     `json:"current_year"`
	Posts       []NewsPost `json:"news_posts"`
	Years       []uint32   `json:"years"`
}
