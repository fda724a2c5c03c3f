package osu

import "time"

// User is one osu! user as returned inside ranking and listing envelopes.
// The always-present profile fields come first; everything after Username is
// only included when the endpoint opts in, and is omitted again on encode
// when empty.
type User struct {
	AvatarURL     string     `json:"avatar_url"`
	CountryCode   string     `json:"country_code"`
	DefaultGroup  string     `json:"default_group"`
	IsActive      bool       `json:"is_active"`
	IsBot         bool       `json:"is_bot"`
	IsDeleted     bool       `json:"is_deleted"`
	IsOnline      bool       `json:"is_online"`
	IsSupporter   bool       `json:"is_supporter"`
	LastVisit     *time.Time `json:"last_visit,omitempty"`
	PMFriendsOnly bool       `json:"pm_friends_only"`
	ProfileColor  *string    `json:"profile_colour,omitempty"`
	UserID        uint32     `json:"id"`
	Username      string     `json:"username"`

	AccountHistory       []AccountHistory `json:"account_history,omitempty"`
	Badges               []Badge          `json:"badges,omitempty"`
	BeatmapPlaycounts    *uint32          `json:"beatmap_playcounts_count,omitempty"`
	Country              *string          `json:"country,omitempty"`
	Cover                *UserCover       `json:"cover,omitempty"`
	FavouriteMapsets     *uint32          `json:"favourite_beatmapset_count,omitempty"`
	FollowerCount        *uint32          `json:"follower_count,omitempty"`
	GraveyardMapsets     *uint32          `json:"graveyard_beatmapset_count,omitempty"`
	Groups               []Group          `json:"groups,omitempty"`
	IsAdmin              *bool            `json:"is_admin,omitempty"`
	IsBNG                *bool            `json:"is_bng,omitempty"`
	IsFullBN             *bool            `json:"is_full_bn,omitempty"`
	IsGMT                *bool            `json:"is_gmt,omitempty"`
	IsLimitedBN          *bool            `json:"is_limited_bn,omitempty"`
	IsModerator          *bool            `json:"is_moderator,omitempty"`
	IsNAT                *bool            `json:"is_nat,omitempty"`
	IsSilenced           *bool            `json:"is_silenced,omitempty"`
	LovedMapsets         *uint32          `json:"loved_beatmapset_count,omitempty"`
	Medals               []MedalCompact   `json:"user_achievements,omitempty"`
	MonthlyPlaycounts    []MonthlyCount   `json:"monthly_playcounts,omitempty"`
	Page                 *UserPage        `json:"page,omitempty"`
	PreviousUsernames    []string         `json:"previous_usernames,omitempty"`
	RankHistory          []uint32         `json:"rank_history,omitempty"`
	RankedMapsets        *uint32          `json:"ranked_beatmapset_count,omitempty"`
	ReplaysWatchedCounts []MonthlyCount   `json:"replays_watched_counts,omitempty"`
	ScoresBestCount      *uint32          `json:"scores_best_count,omitempty"`
	ScoresFirstCount     *uint32          `json:"scores_first_count,omitempty"`
	ScoresRecentCount    *uint32          `json:"scores_recent_count,omitempty"`
	SupportLevel         *uint8           `json:"support_level,omitempty"`
	PendingMapsets       *uint32          `json:"pending_beatmapset_count,omitempty"`

	// Statistics is populated by the ranking envelope decoder, never by the
	// nested user object itself.
	Statistics *Statistics `json:"statistics,omitempty"`
}

// Statistics is the per-user statistics block that ranking envelopes flatten
// to sibling level. CountryRank and GlobalRank are absent for inactive users.
type Statistics struct {
	HitAccuracy    float64     `json:"hit_accuracy"`
	CountryRank    *uint32     `json:"country_rank,omitempty"`
	GlobalRank     *uint32     `json:"global_rank,omitempty"`
	GradeCounts    GradeCounts `json:"grade_counts"`
	IsRanked       bool        `json:"is_ranked"`
	Level          UserLevel   `json:"level"`
	MaximumCombo   uint32      `json:"maximum_combo"`
	PlayCount      uint32      `json:"play_count"`
	PlayTime       uint32      `json:"play_time"`
	PP             float64     `json:"pp"`
	RankedScore    uint64      `json:"ranked_score"`
	ReplaysWatched uint32      `json:"replays_watched_by_others"`
	TotalHits      uint64      `json:"total_hits"`
	TotalScore     uint64      `json:"total_score"`
}

// GradeCounts tallies a user's best grades.
type GradeCounts struct {
	SS  int32 `json:"ss"`
	SSH int32 `json:"ssh"`
	S   int32 `json:"s"`
	SH  int32 `json:"sh"`
	A   int32 `json:"a"`
}

// UserLevel is a user's level and progress towards the next one.
type UserLevel struct {
	Current  uint32 `json:"current"`
	Progress uint32 `json:"progress"`
}

// AccountHistory is one moderation action recorded against an account.
type AccountHistory struct {
	ID          uint32    `json:"id"`
	HistoryType string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Length      uint32    `json:"length"`
}

// Badge is a profile badge.
type Badge struct {
	AwardedAt   time.Time `json:"awarded_at"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	URL         string    `json:"url"`
}

// Group is a user group such as GMT or NAT.
type Group struct {
	ID          uint32  `json:"id"`
	Identifier  string  `json:"identifier"`
	IsProbation bool    `json:"is_probationary"`
	Name        string  `json:"name"`
	ShortName   string  `json:"short_name"`
	Color       *string `json:"colour,omitempty"`
}

// MedalCompact is an achieved medal reference.
type MedalCompact struct {
	AchievedAt time.Time `json:"achieved_at"`
	MedalID    uint32    `json:"achievement_id"`
}

// MonthlyCount is one month's worth of an activity counter.
type MonthlyCount struct {
	StartDate string `json:"start_date"`
	Count     int32  `json:"count"`
}

// UserCover is a profile cover image.
type UserCover struct {
	CustomURL *string `json:"custom_url,omitempty"`
	URL       string  `json:"url"`
	ID        *string `json:"id,omitempty"`
}

// UserPage is the "me!" section of a profile.
type UserPage struct {
	HTML string `json:"html"`
	Raw  string `json:"raw"`
}

// userWithoutStatistics mirrors User minus the Statistics block. The ranking
// envelope encoder hoists statistics to sibling level and writes the rest of
// the user through this view; the struct tags are the authoritative list of
// wire names and omit-if-empty policies for that split.
type userWithoutStatistics struct {
	AvatarURL     string     `json:"avatar_url"`
	CountryCode   string     `json:"country_code"`
	DefaultGroup  string     `json:"default_group"`
	IsActive      bool       `json:"is_active"`
	IsBot         bool       `json:"is_bot"`
	IsDeleted     bool       `json:"is_deleted"`
	IsOnline      bool       `json:"is_online"`
	IsSupporter   bool       `json:"is_supporter"`
	LastVisit     *time.Time `json:"last_visit,omitempty"`
	PMFriendsOnly bool       `json:"pm_friends_only"`
	ProfileColor  *string    `json:"profile_colour,omitempty"`
	UserID        uint32     `json:"id"`
	Username      string     `json:"username"`

	AccountHistory       []AccountHistory `json:"account_history,omitempty"`
	Badges               []Badge          `json:"badges,omitempty"`
	BeatmapPlaycounts    *uint32          `json:"beatmap_playcounts_count,omitempty"`
	Country              *string          `json:"country,omitempty"`
	Cover                *UserCover       `json:"cover,omitempty"`
	FavouriteMapsets     *uint32          `json:"favourite_beatmapset_count,omitempty"`
	FollowerCount        *uint32          `json:"follower_count,omitempty"`
	GraveyardMapsets     *uint32          `json:"graveyard_beatmapset_count,omitempty"`
	Groups               []Group          `json:"groups,omitempty"`
	IsAdmin              *bool            `json:"is_admin,omitempty"`
	IsBNG                *bool            `json:"is_bng,omitempty"`
	IsFullBN             *bool            `json:"is_full_bn,omitempty"`
	IsGMT                *bool            `json:"is_gmt,omitempty"`
	IsLimitedBN          *bool            `json:"is_limited_bn,omitempty"`
	IsModerator          *bool            `json:"is_moderator,omitempty"`
	IsNAT                *bool            `json:"is_nat,omitempty"`
	IsSilenced           *bool            `json:"is_silenced,omitempty"`
	LovedMapsets         *uint32          `json:"loved_beatmapset_count,omitempty"`
	Medals               []MedalCompact   `json:"user_achievements,omitempty"`
	MonthlyPlaycounts    []MonthlyCount   `json:"monthly_playcounts,omitempty"`
	Page                 *UserPage        `json:"page,omitempty"`
	PreviousUsernames    []string         `json:"previous_usernames,omitempty"`
	RankHistory          []uint32         `json:"rank_history,omitempty"`
	RankedMapsets        *uint32          `json:"ranked_beatmapset_count,omitempty"`
	ReplaysWatchedCounts []MonthlyCount   `json:"replays_watched_counts,omitempty"`
	ScoresBestCount      *uint32          `json:"scores_best_count,omitempty"`
	ScoresFirstCount     *uint32          `json:"scores_first_count,omitempty"`
	ScoresRecentCount    *uint32          `json:"scores_recent_count,omitempty"`
	SupportLevel         *uint8           `json:"support_level,omitempty"`
	PendingMapsets       *uint32          `json:"pending_beatmapset_count,omitempty"`
}

func withoutStatistics(u *User) userWithoutStatistics {
	return userWithoutStatistics{
		AvatarURL:            u.AvatarURL,
		CountryCode:          u.CountryCode,
		DefaultGroup:         u.DefaultGroup,
		IsActive:             u.IsActive,
		IsBot:                u.IsBot,
		IsDeleted:            u.IsDeleted,
		IsOnline:             u.IsOnline,
		IsSupporter:          u.IsSupporter,
		LastVisit:            u.LastVisit,
		PMFriendsOnly:        u.PMFriendsOnly,
		ProfileColor:         u.ProfileColor,
		UserID:               u.UserID,
		Username:             u.Username,
		AccountHistory:       u.AccountHistory,
		Badges:               u.Badges,
		BeatmapPlaycounts:    u.BeatmapPlaycounts,
		Country:              u.Country,
		Cover:                u.Cover,
		FavouriteMapsets:     u.FavouriteMapsets,
		FollowerCount:        u.FollowerCount,
		GraveyardMapsets:     u.GraveyardMapsets,
		Groups:               u.Groups,
		IsAdmin:              u.IsAdmin,
		IsBNG:                u.IsBNG,
		IsFullBN:             u.IsFullBN,
		IsGMT:                u.IsGMT,
		IsLimitedBN:          u.IsLimitedBN,
		IsModerator:          u.IsModerator,
		IsNAT:                u.IsNAT,
		IsSilenced:           u.IsSilenced,
		LovedMapsets:         u.LovedMapsets,
		Medals:               u.Medals,
		MonthlyPlaycounts:    u.MonthlyPlaycounts,
		Page:                 u.Page,
		PreviousUsernames:    u.PreviousUsernames,
		RankHistory:          u.RankHistory,
		RankedMapsets:        u.RankedMapsets,
		ReplaysWatchedCounts: u.ReplaysWatchedCounts,
		ScoresBestCount:      u.ScoresBestCount,
		ScoresFirstCount:     u.ScoresFirstCount,
		ScoresRecentCount:    u.ScoresRecentCount,
		SupportLevel:         u.SupportLevel,
		PendingMapsets:       u.PendingMapsets,
	}
}
