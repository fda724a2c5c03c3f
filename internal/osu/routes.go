package osu

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Route is one API endpoint.
type Route struct {
	Method string
	Path   string
}

// Request is the logical form of one API call: an endpoint plus its query
// parameters. Cursor, when present, is an opaque token appended to the query
// without being examined.
type Request struct {
	Route  Route
	Query  url.Values
	Cursor Cursor
}

// Requester performs one API round trip and decodes the JSON response body
// into v. Client is the production implementation.
type Requester interface {
	Fetch(ctx context.Context, req Request, v any) error
}

func rankingsRoute(mode GameMode, kind RankingKind) Route {
	return Route{Method: http.MethodGet, Path: fmt.Sprintf("rankings/%s/%s", mode, kind)}
}

func countryRankingsRoute(mode GameMode) Route {
	return Route{Method: http.MethodGet, Path: fmt.Sprintf("rankings/%s/country", mode)}
}

func chartRankingsRoute(mode GameMode) Route {
	return Route{Method: http.MethodGet, Path: fmt.Sprintf("rankings/%s/charts", mode)}
}

func newsRoute() Route {
	return Route{Method: http.MethodGet, Path: "news"}
}

func fetchRankings(ctx context.Context, rq Requester, mode GameMode, kind RankingKind, page *uint32) (*Rankings, error) {
	req := Request{Route: rankingsRoute(mode, kind)}
	if page != nil {
		req.Query = url.Values{"page": {strconv.FormatUint(uint64(*page), 10)}}
	}

	var rankings Rankings
	if err := rq.Fetch(ctx, req, &rankings); err != nil {
		return nil, err
	}

	rankings.mode = mode
	rankings.kind = kind
	return &rankings, nil
}

func fetchCountryRankings(ctx context.Context, rq Requester, mode GameMode, page *uint32) (*CountryRankings, error) {
	req := Request{Route: countryRankingsRoute(mode)}
	if page != nil {
		req.Query = url.Values{"page": {strconv.FormatUint(uint64(*page), 10)}}
	}

	var rankings CountryRankings
	if err := rq.Fetch(ctx, req, &rankings); err != nil {
		return nil, err
	}

	rankings.mode = mode
	return &rankings, nil
}

func fetchNews(ctx context.Context, rq Requester, cursor Cursor) (*News, error) {
	req := Request{Route: newsRoute(), Cursor: cursor}

	var news News
	if err := rq.Fetch(ctx, req, &news); err != nil {
		return nil, err
	}
	return &news, nil
}
