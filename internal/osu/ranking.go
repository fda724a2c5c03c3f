package osu

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RankingKind selects a global ranking variant that supports generic
// next-page dispatch. Chart and country rankings are deliberately not
// representable here: they are separate page types with their own entry
// points, so a chart or country page can never reach the Rankings dispatcher.
type RankingKind string

const (
	RankingPerformance RankingKind = "performance"
	RankingScore       RankingKind = "score"
)

// ParseRankingKind parses a route/query ranking kind.
func ParseRankingKind(s string) (RankingKind, error) {
	switch RankingKind(s) {
	case RankingPerformance, RankingScore:
		return RankingKind(s), nil
	default:
		return "", fmt.Errorf("unknown ranking kind %q", s)
	}
}

// Rankings is one page of a performance or score ranking. The mode and kind
// that produced the page are retained unexported so GetNext can rebuild the
// follow-up request; they are set only by the ranking entry points, never
// decoded from the response body.
type Rankings struct {
	NextPage PageCursor  `json:"cursor"`
	Ranking  RankedUsers `json:"ranking"`
	Total    uint32      `json:"total"`

	mode GameMode
	kind RankingKind
}

// Mode returns the game mode this page was requested for.
func (r *Rankings) Mode() GameMode { return r.mode }

// Kind returns the ranking kind this page was requested for.
func (r *Rankings) Kind() RankingKind { return r.kind }

// GetNext fetches the page the cursor points at, issuing exactly one request
// through rq. It returns (nil, nil) when the cursor is exhausted; no request
// is made in that case. The receiver is left untouched either way.
func (r *Rankings) GetNext(ctx context.Context, rq Requester) (*Rankings, error) {
	page, ok := r.NextPage.Page()
	if !ok {
		return nil, nil
	}

	switch r.kind {
	case RankingPerformance, RankingScore:
	default:
		panic(fmt.Sprintf("rankings page carries non-dispatchable kind %q", r.kind))
	}

	return fetchRankings(ctx, rq, r.mode, r.kind, &page)
}

// MarshalJSON omits the cursor when no further page exists.
func (r Rankings) MarshalJSON() ([]byte, error) {
	page := struct {
		Cursor  *PageCursor `json:"cursor,omitempty"`
		Ranking RankedUsers `json:"ranking"`
		Total   uint32      `json:"total"`
	}{
		Ranking: r.Ranking,
		Total:   r.Total,
	}
	if _, ok := r.NextPage.Page(); ok {
		page.Cursor = &r.NextPage
	}
	return json.Marshal(page)
}

// RankedUsers is an ordered ranking slice in the API's flattened envelope
// form: each element carries the statistics fields and a nested "user"
// object as siblings of one another.
type RankedUsers []User

// UnmarshalJSON decodes each flattened entry into a User with its Statistics
// attached, preserving source order.
func (ru *RankedUsers) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	users := make([]User, 0, len(raws))
	for _, raw := range raws {
		user, err := decodeRankingEntry(raw)
		if err != nil {
			return err
		}
		users = append(users, user)
	}

	*ru = users
	return nil
}

// MarshalJSON re-flattens each User back into the envelope form.
func (ru RankedUsers) MarshalJSON() ([]byte, error) {
	entries := make([]rankingEntry, len(ru))
	for i := range ru {
		entries[i] = newRankingEntry(&ru[i])
	}
	return json.Marshal(entries)
}

// rankingEntry is the wire layout of one flattened ranking element. Field
// declaration order fixes the output order: hit_accuracy first, the two
// optional ranks when present, the remaining statistics, then the user.
type rankingEntry struct {
	HitAccuracy    float64               `json:"hit_accuracy"`
	CountryRank    *uint32               `json:"country_rank,omitempty"`
	GlobalRank     *uint32               `json:"global_rank,omitempty"`
	GradeCounts    GradeCounts           `json:"grade_counts"`
	IsRanked       bool                  `json:"is_ranked"`
	Level          UserLevel             `json:"level"`
	MaximumCombo   uint32                `json:"maximum_combo"`
	PlayCount      uint32                `json:"play_count"`
	PlayTime       uint32                `json:"play_time"`
	PP             float64               `json:"pp"`
	RankedScore    uint64                `json:"ranked_score"`
	ReplaysWatched uint32                `json:"replays_watched_by_others"`
	TotalHits      uint64                `json:"total_hits"`
	TotalScore     uint64                `json:"total_score"`
	User           userWithoutStatistics `json:"user"`
}

// newRankingEntry splits a User back into the flattened form. A User without
// Statistics was never produced by the decoder and must not reach this path.
func newRankingEntry(u *User) rankingEntry {
	stats := u.Statistics
	if stats == nil {
		panic("encoding ranking entry for user without statistics")
	}

	return rankingEntry{
		HitAccuracy:    stats.HitAccuracy,
		CountryRank:    stats.CountryRank,
		GlobalRank:     stats.GlobalRank,
		GradeCounts:    stats.GradeCounts,
		IsRanked:       stats.IsRanked,
		Level:          stats.Level,
		MaximumCombo:   stats.MaximumCombo,
		PlayCount:      stats.PlayCount,
		PlayTime:       stats.PlayTime,
		PP:             stats.PP,
		RankedScore:    stats.RankedScore,
		ReplaysWatched: stats.ReplaysWatched,
		TotalHits:      stats.TotalHits,
		TotalScore:     stats.TotalScore,
		User:           withoutStatistics(u),
	}
}

// rankingEntryBuilder accumulates the flattened statistics keys during the
// first decode stage, one optional slot per field. Nil after the key loop
// means the key never appeared.
type rankingEntryBuilder struct {
	hitAccuracy    *float64
	countryRank    *uint32
	globalRank     *uint32
	gradeCounts    *GradeCounts
	isRanked       *bool
	level          *UserLevel
	maximumCombo   *uint32
	playCount      *uint32
	playTime       *uint32
	pp             *float64
	rankedScore    *uint64
	replaysWatched *uint32
	totalHits      *uint64
	totalScore     *uint64
	user           *User
}

// decodeRankingEntry merges one flattened envelope element into a User.
// Stage one collects the recognized sibling keys into the builder, ignoring
// everything else for forward compatibility; stage two validates required
// presence and attaches the assembled Statistics.
//
// play_time and pp get special treatment: the upstream serves them as
// nullable even though they are always present, so a null value decodes to
// zero while an absent key is still an error.
func decodeRankingEntry(data json.RawMessage) (User, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return User{}, err
	}

	var b rankingEntryBuilder
	for key, raw := range fields {
		var err error
		switch key {
		case "hit_accuracy":
			err = decodeStrict(key, raw, &b.hitAccuracy)
		case "country_rank":
			err = json.Unmarshal(raw, &b.countryRank)
		case "global_rank":
			err = json.Unmarshal(raw, &b.globalRank)
		case "grade_counts":
			err = decodeStrict(key, raw, &b.gradeCounts)
		case "is_ranked":
			err = decodeStrict(key, raw, &b.isRanked)
		case "level":
			err = decodeStrict(key, raw, &b.level)
		case "maximum_combo":
			err = decodeStrict(key, raw, &b.maximumCombo)
		case "play_count":
			err = decodeStrict(key, raw, &b.playCount)
		case "play_time":
			if err = json.Unmarshal(raw, &b.playTime); err == nil && b.playTime == nil {
				b.playTime = new(uint32)
			}
		case "pp":
			if err = json.Unmarshal(raw, &b.pp); err == nil && b.pp == nil {
				b.pp = new(float64)
			}
		case "ranked_score":
			err = decodeStrict(key, raw, &b.rankedScore)
		case "replays_watched_by_others":
			err = decodeStrict(key, raw, &b.replaysWatched)
		case "total_hits":
			err = decodeStrict(key, raw, &b.totalHits)
		case "total_score":
			err = decodeStrict(key, raw, &b.totalScore)
		case "user":
			err = decodeStrict(key, raw, &b.user)
		}
		if err != nil {
			return User{}, err
		}
	}

	return b.finalize()
}

// decodeStrict decodes a field that may not be null on the wire. An explicit
// null is a type mismatch for these fields, not a missing field.
func decodeStrict(key string, raw json.RawMessage, v any) error {
	if string(raw) == "null" {
		return fmt.Errorf("field %q: unexpected null", key)
	}
	return json.Unmarshal(raw, v)
}

func (b *rankingEntryBuilder) finalize() (User, error) {
	switch {
	case b.hitAccuracy == nil:
		return User{}, &MissingFieldError{Field: "hit_accuracy"}
	case b.gradeCounts == nil:
		return User{}, &MissingFieldError{Field: "grade_counts"}
	case b.isRanked == nil:
		return User{}, &MissingFieldError{Field: "is_ranked"}
	case b.level == nil:
		return User{}, &MissingFieldError{Field: "level"}
	case b.maximumCombo == nil:
		return User{}, &MissingFieldError{Field: "maximum_combo"}
	case b.playCount == nil:
		return User{}, &MissingFieldError{Field: "play_count"}
	case b.playTime == nil:
		return User{}, &MissingFieldError{Field: "play_time"}
	case b.pp == nil:
		return User{}, &MissingFieldError{Field: "pp"}
	case b.rankedScore == nil:
		return User{}, &MissingFieldError{Field: "ranked_score"}
	case b.replaysWatched == nil:
		return User{}, &MissingFieldError{Field: "replays_watched_by_others"}
	case b.totalHits == nil:
		return User{}, &MissingFieldError{Field: "total_hits"}
	case b.totalScore == nil:
		return User{}, &MissingFieldError{Field: "total_score"}
	case b.user == nil:
		return User{}, &MissingFieldError{Field: "user"}
	}

	user := *b.user
	user.Statistics = &Statistics{
		HitAccuracy:    *b.hitAccuracy,
		CountryRank:    b.countryRank,
		GlobalRank:     b.globalRank,
		GradeCounts:    *b.gradeCounts,
		IsRanked:       *b.isRanked,
		Level:          *b.level,
		MaximumCombo:   *b.maximumCombo,
		PlayCount:      *b.playCount,
		PlayTime:       *b.playTime,
		PP:             *b.pp,
		RankedScore:    *b.rankedScore,
		ReplaysWatched: *b.replaysWatched,
		TotalHits:      *b.totalHits,
		TotalScore:     *b.totalScore,
	}

	return user, nil
}

// CountryRankings is one page of the per-country performance ranking. It
// paginates with the same page-number cursor as Rankings but dispatches on
// its own, keyed only by mode.
type CountryRankings struct {
	NextPage PageCursor       `json:"cursor"`
	Ranking  []CountryRanking `json:"ranking"`
	Total    uint32           `json:"total"`

	mode GameMode
}

// Mode returns the game mode this page was requested for.
func (r *CountryRankings) Mode() GameMode { return r.mode }

// GetNext fetches the next page of countries, or (nil, nil) when the cursor
// is exhausted.
func (r *CountryRankings) GetNext(ctx context.Context, rq Requester) (*CountryRankings, error) {
	page, ok := r.NextPage.Page()
	if !ok {
		return nil, nil
	}
	return fetchCountryRankings(ctx, rq, r.mode, &page)
}

// MarshalJSON omits the cursor when no further page exists.
func (r CountryRankings) MarshalJSON() ([]byte, error) {
	page := struct {
		Cursor  *PageCursor      `json:"cursor,omitempty"`
		Ranking []CountryRanking `json:"ranking"`
		Total   uint32           `json:"total"`
	}{
		Ranking: r.Ranking,
		Total:   r.Total,
	}
	if _, ok := r.NextPage.Page(); ok {
		page.Cursor = &r.NextPage
	}
	return json.Marshal(page)
}

// CountryRanking is one country's aggregate entry.
type CountryRanking struct {
	ActiveUsers uint32      `json:"active_users"`
	Country     CountryName `json:"country"`
	CountryCode string      `json:"code"`
	PlayCount   uint64      `json:"play_count"`
	PP          float64     `json:"performance"`
	RankedScore uint64      `json:"ranked_score"`
}

// CountryName decodes from either a plain string or the expanded
// country object some endpoints return, keeping only the name.
type CountryName string

func (c *CountryName) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = CountryName(s)
		return nil
	}

	var country struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &country); err != nil {
		return err
	}
	*c = CountryName(country.Name)
	return nil
}

// ChartRankings is the ranking of a spotlight chart. It reuses the flattened
// entry codec but has no generic next-page dispatch; spotlights are fetched
// whole.
type ChartRankings struct {
	Mapsets   []BeatmapsetCompact `json:"beatmapsets"`
	Ranking   RankedUsers         `json:"ranking"`
	Spotlight Spotlight           `json:"spotlight"`
}

// Spotlight describes one chart period.
type Spotlight struct {
	EndDate          time.Time `json:"end_date"`
	ModeSpecific     bool      `json:"mode_specific"`
	Name             string    `json:"name"`
	ParticipantCount *uint32   `json:"participant_count,omitempty"`
	SpotlightID      uint32    `json:"id"`
	SpotlightType    string    `json:"type"`
	StartDate        time.Time `json:"start_date"`
}

// BeatmapsetCompact is the subset of beatmapset fields spotlight charts
// include.
type BeatmapsetCompact struct {
	Artist string `json:"artist"`
	Covers struct {
		Cover string `json:"cover"`
		Card  string `json:"card"`
		List  string `json:"list"`
	} `json:"covers"`
	Creator        string `json:"creator"`
	FavouriteCount uint32 `json:"favourite_count"`
	MapsetID       uint32 `json:"id"`
	PlayCount      uint32 `json:"play_count"`
	Source         string `json:"source"`
	Status         string `json:"status"`
	Title          string `json:"title"`
	CreatorID      uint32 `json:"user_id"`
}
