package osu

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// fakeRequester serves canned response bodies and records every request it
// receives.
type fakeRequester struct {
	t        *testing.T
	requests []Request
	respond  func(req Request) string
}

func (f *fakeRequester) Fetch(ctx context.Context, req Request, v any) error {
	f.t.Helper()
	f.requests = append(f.requests, req)
	body := f.respond(req)
	if err := json.Unmarshal([]byte(body), v); err != nil {
		f.t.Fatalf("decoding canned response: %v", err)
	}
	return nil
}

const rankingEntryFull = `{
	"hit_accuracy": 98.76,
	"country_rank": 3,
	"global_rank": 42,
	"grade_counts": {"ss": 10, "ssh": 5, "s": 200, "sh": 40, "a": 300},
	"is_ranked": true,
	"level": {"current": 101, "progress": 37},
	"maximum_combo": 4123,
	"play_count": 55555,
	"play_time": 3600000,
	"pp": 12345.6,
	"ranked_score": 98765432100,
	"replays_watched_by_others": 777,
	"total_hits": 12345678,
	"total_score": 111222333444,
	"user": {
		"avatar_url": "https://a.ppy.sh/2",
		"country_code": "US",
		"default_group": "default",
		"is_active": true,
		"is_bot": false,
		"is_deleted": false,
		"is_online": true,
		"is_supporter": true,
		"pm_friends_only": false,
		"id": 2,
		"username": "peppy"
	}
}`

func TestRankedUsersDecodeMergesStatistics(t *testing.T) {
	var ru RankedUsers
	if err := json.Unmarshal([]byte(`[`+rankingEntryFull+`]`), &ru); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(ru) != 1 {
		t.Fatalf("decoded %d users, want 1", len(ru))
	}

	user := ru[0]
	if user.UserID != 2 || user.Username != "peppy" || user.CountryCode != "US" {
		t.Fatalf("user fields not merged: %+v", user)
	}
	stats := user.Statistics
	if stats == nil {
		t.Fatal("statistics not attached")
	}
	if stats.HitAccuracy != 98.76 {
		t.Fatalf("HitAccuracy = %v", stats.HitAccuracy)
	}
	if stats.CountryRank == nil || *stats.CountryRank != 3 {
		t.Fatalf("CountryRank = %v", stats.CountryRank)
	}
	if stats.GlobalRank == nil || *stats.GlobalRank != 42 {
		t.Fatalf("GlobalRank = %v", stats.GlobalRank)
	}
	if stats.GradeCounts.S != 200 || stats.Level.Current != 101 {
		t.Fatalf("nested stats not decoded: %+v", stats)
	}
	if stats.RankedScore != 98765432100 || stats.TotalScore != 111222333444 {
		t.Fatalf("64-bit counters not decoded: %+v", stats)
	}
}

func TestRankedUsersDecodeOptionalRanksAbsent(t *testing.T) {
	entry := removeKeys(t, rankingEntryFull, "country_rank", "global_rank")

	var ru RankedUsers
	if err := json.Unmarshal([]byte(`[`+entry+`]`), &ru); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	stats := ru[0].Statistics
	if stats.CountryRank != nil || stats.GlobalRank != nil {
		t.Fatalf("absent ranks decoded as %v / %v, want nil", stats.CountryRank, stats.GlobalRank)
	}
}

func TestRankedUsersNullablePlayTimeAndPP(t *testing.T) {
	// Present but null decodes to zero
	entry := strings.Replace(rankingEntryFull, `"play_time": 3600000`, `"play_time": null`, 1)
	entry = strings.Replace(entry, `"pp": 12345.6`, `"pp": null`, 1)

	var ru RankedUsers
	if err := json.Unmarshal([]byte(`[`+entry+`]`), &ru); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	stats := ru[0].Statistics
	if stats.PlayTime != 0 || stats.PP != 0 {
		t.Fatalf("null play_time/pp decoded as %d / %v, want zero", stats.PlayTime, stats.PP)
	}

	// Entirely absent is still an error
	for _, field := range []string{"play_time", "pp"} {
		var got RankedUsers
		err := json.Unmarshal([]byte(`[`+removeKeys(t, rankingEntryFull, field)+`]`), &got)
		var missing *MissingFieldError
		if !errors.As(err, &missing) {
			t.Fatalf("absent %s: expected MissingFieldError, got %v", field, err)
		}
		if missing.Field != field {
			t.Fatalf("absent %s reported as %q", field, missing.Field)
		}
	}
}

func TestRankedUsersMissingRequiredField(t *testing.T) {
	for _, field := range []string{
		"hit_accuracy", "grade_counts", "is_ranked", "level", "maximum_combo",
		"play_count", "ranked_score", "replays_watched_by_others",
		"total_hits", "total_score", "user",
	} {
		var ru RankedUsers
		err := json.Unmarshal([]byte(`[`+removeKeys(t, rankingEntryFull, field)+`]`), &ru)
		var missing *MissingFieldError
		if !errors.As(err, &missing) {
			t.Fatalf("absent %s: expected MissingFieldError, got %v", field, err)
		}
		if missing.Field != field {
			t.Fatalf("absent %s reported as %q", field, missing.Field)
		}
	}
}

func TestRankedUsersStrictFieldNullIsNotMissing(t *testing.T) {
	// An explicit null on a strict field is a type mismatch, not an absence
	for _, field := range []string{"hit_accuracy", "is_ranked", "maximum_combo", "user"} {
		var ru RankedUsers
		err := json.Unmarshal([]byte(`[`+setNull(t, rankingEntryFull, field)+`]`), &ru)
		if err == nil {
			t.Fatalf("null %s decoded without error", field)
		}
		var missing *MissingFieldError
		if errors.As(err, &missing) {
			t.Fatalf("null %s reported as missing field %q", field, missing.Field)
		}
	}
}

func TestRankedUsersDecodeIgnoresUnknownKeys(t *testing.T) {
	entry := strings.TrimSuffix(strings.TrimSpace(rankingEntryFull), "}") + `,"brand_new_field": {"x": 1}}`

	var ru RankedUsers
	if err := json.Unmarshal([]byte(`[`+entry+`]`), &ru); err != nil {
		t.Fatalf("decoding with unknown key: %v", err)
	}
}

func TestRankingsRoundTrip(t *testing.T) {
	envelope := `{"cursor": {"page": 2}, "ranking": [` + rankingEntryFull + `], "total": 10000}`

	var rankings Rankings
	if err := json.Unmarshal([]byte(envelope), &rankings); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	page, ok := rankings.NextPage.Page()
	if !ok || page != 2 {
		t.Fatalf("cursor = %d, %v", page, ok)
	}
	if rankings.Total != 10000 {
		t.Fatalf("total = %d", rankings.Total)
	}

	out, err := json.Marshal(rankings)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}

	// The cursor comes back in canonical bare-number form
	if !strings.Contains(string(out), `"cursor":2`) {
		t.Fatalf("cursor not canonical in %s", out)
	}

	// Decoding the re-encoded page yields the same content
	var again Rankings
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("re-decoding: %v", err)
	}
	if len(again.Ranking) != 1 || again.Ranking[0].Statistics == nil {
		t.Fatal("re-decoded page lost its entry")
	}
	before, _ := json.Marshal(rankings.Ranking[0].Statistics)
	after, _ := json.Marshal(again.Ranking[0].Statistics)
	if string(before) != string(after) {
		t.Fatalf("statistics changed over the round trip:\n%s\n%s", before, after)
	}
}

func TestRankingsRoundTripOptionalRankCombinations(t *testing.T) {
	cases := []struct {
		name   string
		absent []string
	}{
		{"both present", nil},
		{"country rank absent", []string{"country_rank"}},
		{"global rank absent", []string{"global_rank"}},
		{"both absent", []string{"country_rank", "global_rank"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := rankingEntryFull
			if len(tc.absent) > 0 {
				entry = removeKeys(t, entry, tc.absent...)
			}

			var ru RankedUsers
			if err := json.Unmarshal([]byte(`[`+entry+`]`), &ru); err != nil {
				t.Fatalf("decoding: %v", err)
			}
			out, err := json.Marshal(ru)
			if err != nil {
				t.Fatalf("encoding: %v", err)
			}
			for _, key := range tc.absent {
				if strings.Contains(string(out), key) {
					t.Fatalf("absent %s reappeared in %s", key, out)
				}
			}

			var again RankedUsers
			if err := json.Unmarshal(out, &again); err != nil {
				t.Fatalf("re-decoding: %v", err)
			}
			before, _ := json.Marshal(ru[0].Statistics)
			after, _ := json.Marshal(again[0].Statistics)
			if string(before) != string(after) {
				t.Fatalf("statistics changed over the round trip:\n%s\n%s", before, after)
			}
		})
	}
}

func TestRankingsEncodeFieldOrder(t *testing.T) {
	var ru RankedUsers
	if err := json.Unmarshal([]byte(`[`+rankingEntryFull+`]`), &ru); err != nil {
		t.Fatalf("decoding: %v", err)
	}

	out, err := json.Marshal(ru)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}

	keys := []string{
		`"hit_accuracy"`, `"country_rank"`, `"global_rank"`, `"grade_counts"`,
		`"is_ranked"`, `"level"`, `"maximum_combo"`, `"play_count"`,
		`"play_time"`, `"pp"`, `"ranked_score"`, `"replays_watched_by_others"`,
		`"total_hits"`, `"total_score"`, `"user"`,
	}
	last := -1
	for _, key := range keys {
		idx := strings.Index(string(out), key)
		if idx < 0 {
			t.Fatalf("key %s missing from %s", key, out)
		}
		if idx < last {
			t.Fatalf("key %s out of order in %s", key, out)
		}
		last = idx
	}
}

func TestRankingsEncodeOmitsAbsentOptionalRanks(t *testing.T) {
	entry := removeKeys(t, rankingEntryFull, "country_rank", "global_rank")

	var ru RankedUsers
	if err := json.Unmarshal([]byte(`[`+entry+`]`), &ru); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	out, err := json.Marshal(ru)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	if strings.Contains(string(out), "country_rank") || strings.Contains(string(out), "global_rank") {
		t.Fatalf("absent ranks reappeared in %s", out)
	}
}

func TestRankingsEncodeOmitsExhaustedCursor(t *testing.T) {
	var rankings Rankings
	if err := json.Unmarshal([]byte(`{"cursor": null, "ranking": [], "total": 0}`), &rankings); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	out, err := json.Marshal(rankings)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	if strings.Contains(string(out), "cursor") {
		t.Fatalf("exhausted cursor present in %s", out)
	}
}

func TestRankingsGetNextWalksPages(t *testing.T) {
	fake := &fakeRequester{t: t, respond: func(req Request) string {
		switch req.Query.Get("page") {
		case "":
			return `{"cursor": {"page": 3}, "ranking": [` + rankingEntryFull + `], "total": 2}`
		case "3":
			return `{"cursor": null, "ranking": [` + rankingEntryFull + `], "total": 2}`
		default:
			t.Fatalf("unexpected page %q", req.Query.Get("page"))
			return ""
		}
	}}

	first, err := fetchRankings(context.Background(), fake, ModeOsu, RankingPerformance, nil)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if first.Mode() != ModeOsu || first.Kind() != RankingPerformance {
		t.Fatalf("page carries mode %v kind %v", first.Mode(), first.Kind())
	}

	second, err := nextPageOnce(t, first, fake)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if second == nil {
		t.Fatal("GetNext returned nil page before exhaustion")
	}
	if second.Mode() != ModeOsu || second.Kind() != RankingPerformance {
		t.Fatal("mode/kind not carried to the next page")
	}

	// Cursor exhausted: no further request, (nil, nil) sentinel
	calls := len(fake.requests)
	third, err := second.GetNext(context.Background(), fake)
	if err != nil {
		t.Fatalf("GetNext after exhaustion: %v", err)
	}
	if third != nil {
		t.Fatal("GetNext returned a page after exhaustion")
	}
	if len(fake.requests) != calls {
		t.Fatal("GetNext issued a request for an exhausted cursor")
	}

	// Exactly two requests total, the second carrying the cursor page
	if len(fake.requests) != 2 {
		t.Fatalf("issued %d requests, want 2", len(fake.requests))
	}
	if path := fake.requests[1].Route.Path; path != "rankings/osu/performance" {
		t.Fatalf("second request path = %q", path)
	}
	if page := fake.requests[1].Query.Get("page"); page != "3" {
		t.Fatalf("second request page = %q, want 3", page)
	}
}

// nextPageOnce asserts that a successful GetNext cost exactly one request
func nextPageOnce(t *testing.T, page *Rankings, fake *fakeRequester) (*Rankings, error) {
	t.Helper()
	before := len(fake.requests)
	next, err := page.GetNext(context.Background(), fake)
	if err == nil && next != nil && len(fake.requests) != before+1 {
		t.Fatalf("GetNext issued %d requests, want exactly 1", len(fake.requests)-before)
	}
	return next, err
}

func TestRankingsGetNextPanicsOnCorruptKind(t *testing.T) {
	page := &Rankings{
		NextPage: PageNumber(2),
		mode:     ModeOsu,
		kind:     RankingKind("country"),
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-dispatchable kind")
		}
	}()
	fake := &fakeRequester{t: t, respond: func(Request) string { return `{}` }}
	page.GetNext(context.Background(), fake)
}

func TestCountryRankingsGetNext(t *testing.T) {
	countryPage := `{"cursor": {"page": 2}, "ranking": [{
		"active_users": 100, "country": "Germany", "code": "DE",
		"play_count": 5, "performance": 123.4, "ranked_score": 999
	}], "total": 50}`

	fake := &fakeRequester{t: t, respond: func(req Request) string {
		if req.Query.Get("page") == "2" {
			return `{"cursor": null, "ranking": [], "total": 50}`
		}
		return countryPage
	}}

	first, err := fetchCountryRankings(context.Background(), fake, ModeTaiko, nil)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if first.Mode() != ModeTaiko {
		t.Fatalf("page mode = %v", first.Mode())
	}
	if len(first.Ranking) != 1 || first.Ranking[0].Country != "Germany" {
		t.Fatalf("country entry not decoded: %+v", first.Ranking)
	}

	next, err := first.GetNext(context.Background(), fake)
	if err != nil {
		t.Fatalf("next page: %v", err)
	}
	if next == nil {
		t.Fatal("GetNext returned nil before exhaustion")
	}
	if path := fake.requests[1].Route.Path; path != "rankings/taiko/country" {
		t.Fatalf("next request path = %q", path)
	}

	calls := len(fake.requests)
	if last, err := next.GetNext(context.Background(), fake); err != nil || last != nil {
		t.Fatalf("expected exhaustion sentinel, got %v, %v", last, err)
	}
	if len(fake.requests) != calls {
		t.Fatal("exhausted cursor still issued a request")
	}
}

func TestCountryNameDecode(t *testing.T) {
	var plain CountryName
	if err := json.Unmarshal([]byte(`"France"`), &plain); err != nil {
		t.Fatalf("decoding string form: %v", err)
	}
	if plain != "France" {
		t.Fatalf("plain = %q", plain)
	}

	var expanded CountryName
	if err := json.Unmarshal([]byte(`{"code":"FR","name":"France"}`), &expanded); err != nil {
		t.Fatalf("decoding object form: %v", err)
	}
	if expanded != "France" {
		t.Fatalf("expanded = %q", expanded)
	}
}

func TestChartRankingsDecode(t *testing.T) {
	chart := `{
		"beatmapsets": [{"artist": "x", "covers": {"cover": "", "card": "", "list": ""},
			"creator": "y", "favourite_count": 1, "id": 10, "play_count": 2,
			"source": "", "status": "ranked", "title": "z", "user_id": 3}],
		"ranking": [` + rankingEntryFull + `],
		"spotlight": {"end_date": "2024-02-01T00:00:00Z", "mode_specific": false,
			"name": "Monthly", "id": 7, "type": "monthly",
			"start_date": "2024-01-01T00:00:00Z"}
	}`

	var page ChartRankings
	if err := json.Unmarshal([]byte(chart), &page); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(page.Mapsets) != 1 || page.Mapsets[0].MapsetID != 10 {
		t.Fatalf("mapsets = %+v", page.Mapsets)
	}
	if page.Spotlight.SpotlightID != 7 || page.Spotlight.Name != "Monthly" {
		t.Fatalf("spotlight = %+v", page.Spotlight)
	}
	if len(page.Ranking) != 1 || page.Ranking[0].Statistics == nil {
		t.Fatal("chart ranking entries not decoded through the envelope codec")
	}
}

// removeKeys drops top-level keys from a JSON object literal
func removeKeys(t *testing.T, src string, keys ...string) string {
	t.Helper()
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(src), &fields); err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	for _, key := range keys {
		delete(fields, key)
	}
	out, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("rebuilding fixture: %v", err)
	}
	return string(out)
}

// setNull replaces a top-level key's value with an explicit null
func setNull(t *testing.T, src, key string) string {
	t.Helper()
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(src), &fields); err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	fields[key] = json.RawMessage("null")
	out, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("rebuilding fixture: %v", err)
	}
	return string(out)
}
