package domain

import (
	"fmt"
	"time"
)

// BoardID identifies one mirrored ranking board by mode and ranking kind,
// e.g. "osu:performance".
func BoardID(mode, kind string) string {
	return fmt.Sprintf("%s:%s", mode, kind)
}

// RankedPlayer is one flattened entry of a mirrored ranking board. Value is
// the board's sort key: pp on performance boards, ranked score on score
// boards.
type RankedPlayer struct {
	Rank        int64   `json:"rank"`
	UserID      uint32  `json:"user_id"`
	Username    string  `json:"username,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Value       float64 `json:"value"`
}

// EventType classifies a rank change
const (
	EventTypeRankChange = "rank_change"
	EventTypeNewEntry   = "new_entry"
)

// RankChangeEvent is published whenever a tracked player's position on a
// board moves between two polling cycles.
type RankChangeEvent struct {
	ID        string    `json:"id"`
	Board     string    `json:"board"`
	UserID    uint32    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	EventType string    `json:"event_type"`
	OldRank   int64     `json:"old_rank,omitempty"`
	NewRank   int64     `json:"new_rank"`
	OldValue  float64   `json:"old_value,omitempty"`
	NewValue  float64   `json:"new_value"`
	Timestamp time.Time `json:"timestamp"`
}

// SnapshotRow is one archived ranking entry as written to PostgreSQL.
type SnapshotRow struct {
	Board      string    `json:"board"`
	UserID     uint32    `json:"user_id"`
	Username   string    `json:"username"`
	Rank       int64     `json:"rank"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// BoardStats contains summary statistics about a mirrored board.
type BoardStats struct {
	Board        string  `json:"board"`
	TotalPlayers int64   `json:"total_players"`
	TopValue     float64 `json:"top_value,omitempty"`
	LowestValue  float64 `json:"lowest_value,omitempty"`
}

// PlayerInfo is a lightweight player information struct used for caching
type PlayerInfo struct {
	UserID      uint32 `json:"user_id"`
	Username    string `json:"username"`
	CountryCode string `json:"country_code,omitempty"`
}
