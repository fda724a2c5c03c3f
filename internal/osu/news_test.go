package osu

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
)

const newsPageFirst = `{
	"cursor": {"published_at": "2024-03-01T00:00:00Z", "_id": "65e1"},
	"news_posts": [{
		"id": 1401, "author": "pishifat", "edit_url": "https://example/edit",
		"first_image": "https://example/img.jpg",
		"published_at": "2024-03-02T12:00:00Z",
		"slug": "new-featured-artist", "title": "New Featured Artist"
	}],
	"search": {"cursor": null, "limit": 12},
	"news_sidebar": {"current_year": 2024, "news_posts": [], "years": [2024, 2023]}
}`

func TestNewsDecode(t *testing.T) {
	var news News
	if err := json.Unmarshal([]byte(newsPageFirst), &news); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	if !news.HasMore() {
		t.Fatal("HasMore() = false with a token present")
	}
	if len(news.Posts) != 1 || news.Posts[0].PostID != 1401 {
		t.Fatalf("posts = %+v", news.Posts)
	}
	if news.Search.Limit != 12 {
		t.Fatalf("search limit = %d", news.Search.Limit)
	}
	if news.Sidebar.CurrentYear != 2024 || len(news.Sidebar.Years) != 2 {
		t.Fatalf("sidebar = %+v", news.Sidebar)
	}
}

func TestNewsGetNextReplaysToken(t *testing.T) {
	fake := &fakeRequester{t: t, respond: func(req Request) string {
		return `{"cursor": null, "news_posts": [], "search": {"cursor": null, "limit": 12},
			"news_sidebar": {"current_year": 2024, "news_posts": [], "years": []}}`
	}}

	var news News
	if err := json.Unmarshal([]byte(newsPageFirst), &news); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	next, err := news.GetNext(context.Background(), fake)
	if err != nil {
		t.Fatalf("GetNext: %v", err)
	}
	if next == nil {
		t.Fatal("GetNext returned nil with a token present")
	}
	if len(fake.requests) != 1 {
		t.Fatalf("issued %d requests, want 1", len(fake.requests))
	}

	// The stored token rides along untouched and expands to cursor[k]=v
	req := fake.requests[0]
	if req.Route.Path != "news" {
		t.Fatalf("request path = %q", req.Route.Path)
	}
	q := url.Values{}
	if err := req.Cursor.appendQuery(q); err != nil {
		t.Fatalf("appendQuery: %v", err)
	}
	if q.Get("cursor[_id]") != "65e1" {
		t.Fatalf("cursor[_id] = %q", q.Get("cursor[_id]"))
	}
	if q.Get("cursor[published_at]") != "2024-03-01T00:00:00Z" {
		t.Fatalf("cursor[published_at] = %q", q.Get("cursor[published_at]"))
	}

	// Exhausted listing: sentinel, no request
	calls := len(fake.requests)
	last, err := next.GetNext(context.Background(), fake)
	if err != nil || last != nil {
		t.Fatalf("expected exhaustion sentinel, got %v, %v", last, err)
	}
	if len(fake.requests) != calls {
		t.Fatal("exhausted token still issued a request")
	}
}
