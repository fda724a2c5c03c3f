package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rankwatch/internal/config"
	"github.com/rankwatch/internal/domain"
	"github.com/rankwatch/internal/osu"
)

func rankingEntry(userID uint32, username string, pp float64) string {
	return fmt.Sprintf(`{
		"hit_accuracy": 99.1,
		"country_rank": 1,
		"global_rank": 1,
		"grade_counts": {"ss": 1, "ssh": 1, "s": 1, "sh": 1, "a": 1},
		"is_ranked": true,
		"level": {"current": 100, "progress": 0},
		"maximum_combo": 1000,
		"play_count": 10000,
		"play_time": 100000,
		"pp": %.1f,
		"ranked_score": 123456789,
		"replays_watched_by_others": 10,
		"total_hits": 100000,
		"total_score": 987654321,
		"user": {
			"avatar_url": "", "country_code": "US", "default_group": "default",
			"is_active": true, "is_bot": false, "is_deleted": false,
			"is_online": false, "is_supporter": false, "pm_friends_only": false,
			"id": %d, "username": %q
		}
	}`, pp, userID, username)
}

// rankingServer serves an OAuth token endpoint plus ranking pages keyed by
// the page query parameter, counting ranking requests.
func rankingServer(t *testing.T, pages map[string]string, calls *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/rankings/", func(w http.ResponseWriter, r *http.Request) {
		*calls++
		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			t.Errorf("unexpected page request %q", r.URL.Query().Get("page"))
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	})
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, srv *httptest.Server) *osu.Client {
	t.Helper()
	cfg := &config.OsuConfig{
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/oauth/token",
		ClientID:     "client",
		ClientSecret: "secret",
		Timeout:      5 * time.Second,
	}
	return osu.NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeMirror struct {
	boards map[string][]domain.RankedPlayer
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{boards: make(map[string][]domain.RankedPlayer)}
}

func (m *fakeMirror) GetAllRanks(ctx context.Context, board string) (map[uint32]int64, error) {
	ranks := make(map[uint32]int64)
	for _, entry := range m.boards[board] {
		ranks[entry.UserID] = entry.Rank
	}
	return ranks, nil
}

func (m *fakeMirror) ReplaceBoard(ctx context.Context, board string, entries []domain.RankedPlayer) error {
	m.boards[board] = append([]domain.RankedPlayer(nil), entries...)
	return nil
}

func (m *fakeMirror) GetTopN(ctx context.Context, board string, n int) ([]domain.RankedPlayer, error) {
	entries := m.boards[board]
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func (m *fakeMirror) GetCount(ctx context.Context, board string) (int64, error) {
	return int64(len(m.boards[board])), nil
}

type fakeArchive struct {
	snapshots map[string][]domain.RankedPlayer
	events    []domain.RankChangeEvent
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{snapshots: make(map[string][]domain.RankedPlayer)}
}

func (a *fakeArchive) ArchiveSnapshot(ctx context.Context, board string, entries []domain.RankedPlayer, recordedAt time.Time) error {
	a.snapshots[board] = append([]domain.RankedPlayer(nil), entries...)
	return nil
}

func (a *fakeArchive) RecordRankEvent(ctx context.Context, event domain.RankChangeEvent) error {
	a.events = append(a.events, event)
	return nil
}

type fakePublisher struct {
	events []domain.RankChangeEvent
}

func (p *fakePublisher) PublishRankEvent(event domain.RankChangeEvent) error {
	p.events = append(p.events, event)
	return nil
}

type fakeHub struct {
	boards []string
	totals []int64
}

func (h *fakeHub) BroadcastBoardUpdate(board string, entries []domain.RankedPlayer, totalPlayers int64) {
	h.boards = append(h.boards, board)
	h.totals = append(h.totals, totalPlayers)
}

func trackerConfig() *config.TrackerConfig {
	return &config.TrackerConfig{
		Interval:  time.Hour,
		Modes:     []string{"osu"},
		Kinds:     []string{"performance"},
		PageDepth: 4,
		Enabled:   true,
	}
}

func TestPollBoardWalksPagesAndMirrors(t *testing.T) {
	pages := map[string]string{
		"": `{"cursor": {"page": 2}, "ranking": [` +
			rankingEntry(101, "alpha", 9000) + `,` + rankingEntry(102, "beta", 8900) +
			`], "total": 3}`,
		"2": `{"cursor": null, "ranking": [` + rankingEntry(103, "gamma", 8800) + `], "total": 3}`,
	}
	var calls int
	srv := rankingServer(t, pages, &calls)
	defer srv.Close()

	mirror := newFakeMirror()
	archive := newFakeArchive()
	publisher := &fakePublisher{}
	hub := &fakeHub{}

	worker := NewTrackerWorker(
		newTestClient(t, srv),
		mirror, archive, publisher, hub,
		trackerConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	if err := worker.PollBoard(context.Background(), osu.ModeOsu, osu.RankingPerformance); err != nil {
		t.Fatalf("PollBoard: %v", err)
	}

	// The cursor ran out after page 2, so depth 4 still costs two requests
	if calls != 2 {
		t.Fatalf("issued %d ranking requests, want 2", calls)
	}

	board := "osu:performance"
	entries := mirror.boards[board]
	if len(entries) != 3 {
		t.Fatalf("mirrored %d entries, want 3", len(entries))
	}
	for i, want := range []struct {
		rank   int64
		userID uint32
		value  float64
	}{{1, 101, 9000}, {2, 102, 8900}, {3, 103, 8800}} {
		got := entries[i]
		if got.Rank != want.rank || got.UserID != want.userID || got.Value != want.value {
			t.Fatalf("entry %d = %+v, want %+v", i, got, want)
		}
	}

	if len(archive.snapshots[board]) != 3 {
		t.Fatalf("archived %d entries, want 3", len(archive.snapshots[board]))
	}

	// First cycle: everyone is a new entry
	if len(archive.events) != 3 || len(publisher.events) != 3 {
		t.Fatalf("recorded %d / published %d events, want 3 / 3",
			len(archive.events), len(publisher.events))
	}
	for _, event := range archive.events {
		if event.EventType != domain.EventTypeNewEntry {
			t.Fatalf("first cycle event type = %q", event.EventType)
		}
		if event.Board != board || event.ID == "" {
			t.Fatalf("malformed event: %+v", event)
		}
	}

	if len(hub.boards) != 1 || hub.boards[0] != board || hub.totals[0] != 3 {
		t.Fatalf("broadcasts = %v totals = %v", hub.boards, hub.totals)
	}
}

func TestPollBoardDiffsConsecutiveCycles(t *testing.T) {
	pages := map[string]string{
		"": `{"cursor": null, "ranking": [` +
			rankingEntry(101, "alpha", 9000) + `,` + rankingEntry(102, "beta", 8900) +
			`], "total": 2}`,
	}
	var calls int
	srv := rankingServer(t, pages, &calls)
	defer srv.Close()

	mirror := newFakeMirror()
	archive := newFakeArchive()

	worker := NewTrackerWorker(
		newTestClient(t, srv),
		mirror, archive, nil, nil,
		trackerConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	ctx := context.Background()
	if err := worker.PollBoard(ctx, osu.ModeOsu, osu.RankingPerformance); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	archive.events = nil

	// Swap the two players for the second cycle
	pages[""] = `{"cursor": null, "ranking": [` +
		rankingEntry(102, "beta", 9100) + `,` + rankingEntry(101, "alpha", 9000) +
		`], "total": 2}`

	if err := worker.PollBoard(ctx, osu.ModeOsu, osu.RankingPerformance); err != nil {
		t.Fatalf("second cycle: %v", err)
	}

	if len(archive.events) != 2 {
		t.Fatalf("second cycle produced %d events, want 2", len(archive.events))
	}
	byUser := make(map[uint32]domain.RankChangeEvent)
	for _, event := range archive.events {
		byUser[event.UserID] = event
	}
	beta := byUser[102]
	if beta.EventType != domain.EventTypeRankChange || beta.OldRank != 2 || beta.NewRank != 1 {
		t.Fatalf("beta event = %+v", beta)
	}
	alpha := byUser[101]
	if alpha.EventType != domain.EventTypeRankChange || alpha.OldRank != 1 || alpha.NewRank != 2 {
		t.Fatalf("alpha event = %+v", alpha)
	}
}

func TestPollBoardUnchangedCycleEmitsNoEvents(t *testing.T) {
	pages := map[string]string{
		"": `{"cursor": null, "ranking": [` + rankingEntry(101, "alpha", 9000) + `], "total": 1}`,
	}
	var calls int
	srv := rankingServer(t, pages, &calls)
	defer srv.Close()

	mirror := newFakeMirror()
	archive := newFakeArchive()

	worker := NewTrackerWorker(
		newTestClient(t, srv),
		mirror, archive, nil, nil,
		trackerConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	ctx := context.Background()
	if err := worker.PollBoard(ctx, osu.ModeOsu, osu.RankingPerformance); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	archive.events = nil

	if err := worker.PollBoard(ctx, osu.ModeOsu, osu.RankingPerformance); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(archive.events) != 0 {
		t.Fatalf("unchanged cycle produced %d events", len(archive.events))
	}
}

func TestPollBoardUsesScoreValueOnScoreBoards(t *testing.T) {
	pages := map[string]string{
		"": `{"cursor": null, "ranking": [` + rankingEntry(101, "alpha", 9000) + `], "total": 1}`,
	}
	var calls int
	srv := rankingServer(t, pages, &calls)
	defer srv.Close()

	mirror := newFakeMirror()
	worker := NewTrackerWorker(
		newTestClient(t, srv),
		mirror, newFakeArchive(), nil, nil,
		trackerConfig(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	if err := worker.PollBoard(context.Background(), osu.ModeOsu, osu.RankingScore); err != nil {
		t.Fatalf("PollBoard: %v", err)
	}

	entries := mirror.boards["osu:score"]
	if len(entries) != 1 {
		t.Fatalf("mirrored %d entries", len(entries))
	}
	if entries[0].Value != 123456789 {
		t.Fatalf("score board value = %v, want ranked score", entries[0].Value)
	}
}
