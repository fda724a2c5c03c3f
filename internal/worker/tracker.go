package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rankwatch/internal/config"
	"github.com/rankwatch/internal/domain"
	"github.com/rankwatch/internal/osu"
)

// RankingAPI is the slice of the osu! client the tracker needs: the first
// page entry point plus the transport used by GetNext for the pages after it.
type RankingAPI interface {
	osu.Requester
	Rankings(ctx context.Context, mode osu.GameMode, kind osu.RankingKind) (*osu.Rankings, error)
}

// MirrorStore is the Redis surface the tracker writes to
type MirrorStore interface {
	GetAllRanks(ctx context.Context, board string) (map[uint32]int64, error)
	ReplaceBoard(ctx context.Context, board string, entries []domain.RankedPlayer) error
	GetTopN(ctx context.Context, board string, n int) ([]domain.RankedPlayer, error)
	GetCount(ctx context.Context, board string) (int64, error)
}

// Archive is the PostgreSQL surface the tracker writes to
type Archive interface {
	ArchiveSnapshot(ctx context.Context, board string, entries []domain.RankedPlayer, recordedAt time.Time) error
	RecordRankEvent(ctx context.Context, event domain.RankChangeEvent) error
}

// EventPublisher emits rank change events to the message bus
type EventPublisher interface {
	PublishRankEvent(event domain.RankChangeEvent) error
}

// Broadcaster pushes refreshed boards to connected websocket clients
type Broadcaster interface {
	BroadcastBoardUpdate(board string, entries []domain.RankedPlayer, totalPlayers int64)
}

// TrackerWorker polls the osu! rankings on a fixed interval, mirrors each
// configured board into Redis, archives the cycle to PostgreSQL, and emits
// rank change events for players that moved since the previous cycle.
type TrackerWorker struct {
	api       RankingAPI
	mirror    MirrorStore
	archive   Archive
	publisher EventPublisher
	hub       Broadcaster
	config    *config.TrackerConfig
	logger    *slog.Logger
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewTrackerWorker creates a new tracker worker. publisher and hub may be
// nil when Kafka or the websocket hub are disabled.
func NewTrackerWorker(
	api RankingAPI,
	mirror MirrorStore,
	archive Archive,
	publisher EventPublisher,
	hub Broadcaster,
	cfg *config.TrackerConfig,
	logger *slog.Logger,
) *TrackerWorker {
	return &TrackerWorker{
		api:       api,
		mirror:    mirror,
		archive:   archive,
		publisher: publisher,
		hub:       hub,
		config:    cfg,
		logger:    logger,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background polling process
func (w *TrackerWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("tracker worker started",
		"interval", w.config.Interval,
		"modes", w.config.Modes,
		"kinds", w.config.Kinds,
		"page_depth", w.config.PageDepth,
	)

	go w.run(ctx)
	return nil
}

// Stop stops the background polling process
func (w *TrackerWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("tracker worker stopped")
	return nil
}

// run is the main worker loop
func (w *TrackerWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	// First cycle immediately, then on the ticker
	w.pollAll(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.pollAll(ctx)
		}
	}
}

// pollAll polls every configured board once
func (w *TrackerWorker) pollAll(ctx context.Context) {
	w.logger.Info("starting poll cycle")
	startTime := time.Now()

	polledCount := 0
	errorCount := 0

	for _, modeName := range w.config.Modes {
		mode, err := osu.ParseGameMode(modeName)
		if err != nil {
			w.logger.Error("skipping unknown mode", "mode", modeName)
			errorCount++
			continue
		}
		for _, kindName := range w.config.Kinds {
			kind, err := osu.ParseRankingKind(kindName)
			if err != nil {
				w.logger.Error("skipping unknown ranking kind", "kind", kindName)
				errorCount++
				continue
			}

			if err := w.PollBoard(ctx, mode, kind); err != nil {
				w.logger.Error("failed to poll board",
					"board", domain.BoardID(mode.String(), string(kind)),
					"error", err,
				)
				errorCount++
			} else {
				polledCount++
			}
		}
	}

	duration := time.Since(startTime)
	w.logger.Info("poll cycle completed",
		"duration", duration,
		"polled", polledCount,
		"errors", errorCount,
	)
}

// PollBoard fetches one board's ranking pages, diffs them against the
// previous cycle, and fans the result out to Redis, PostgreSQL, Kafka and
// the websocket hub.
func (w *TrackerWorker) PollBoard(ctx context.Context, mode osu.GameMode, kind osu.RankingKind) error {
	board := domain.BoardID(mode.String(), string(kind))
	recordedAt := time.Now()

	entries, err := w.fetchBoard(ctx, mode, kind)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		w.logger.Warn("board poll returned no entries", "board", board)
		return nil
	}

	// Previous cycle's ranks, for diffing. A missing board means this is
	// the first cycle and every entry is a new one.
	previous, err := w.mirror.GetAllRanks(ctx, board)
	if err != nil {
		w.logger.Warn("could not load previous ranks, treating cycle as first",
			"board", board,
			"error", err,
		)
		previous = nil
	}

	if err := w.mirror.ReplaceBoard(ctx, board, entries); err != nil {
		return fmt.Errorf("mirroring board: %w", err)
	}

	if err := w.archive.ArchiveSnapshot(ctx, board, entries, recordedAt); err != nil {
		w.logger.Error("failed to archive snapshot", "board", board, "error", err)
	}

	events := diffCycle(board, previous, entries, recordedAt)
	for _, event := range events {
		if err := w.archive.RecordRankEvent(ctx, event); err != nil {
			w.logger.Error("failed to record rank event", "board", board, "error", err)
		}
		if w.publisher != nil {
			if err := w.publisher.PublishRankEvent(event); err != nil {
				w.logger.Error("failed to publish rank event", "board", board, "error", err)
			}
		}
	}

	if w.hub != nil {
		top, err := w.mirror.GetTopN(ctx, board, 50)
		if err == nil {
			total, _ := w.mirror.GetCount(ctx, board)
			w.hub.BroadcastBoardUpdate(board, top, total)
		}
	}

	w.logger.Debug("polled board",
		"board", board,
		"entries", len(entries),
		"events", len(events),
	)
	return nil
}

// fetchBoard walks a board's ranking pages up to the configured depth. The
// first page comes from the client entry point; the rest follow the page
// cursor until it runs out.
func (w *TrackerWorker) fetchBoard(ctx context.Context, mode osu.GameMode, kind osu.RankingKind) ([]domain.RankedPlayer, error) {
	page, err := w.api.Rankings(ctx, mode, kind)
	if err != nil {
		return nil, fmt.Errorf("fetching first page: %w", err)
	}

	var entries []domain.RankedPlayer
	entries = appendPage(entries, page, kind)

	for fetched := 1; fetched < w.config.PageDepth; fetched++ {
		next, err := page.GetNext(ctx, w.api)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", fetched+1, err)
		}
		if next == nil {
			break
		}
		entries = appendPage(entries, next, kind)
		page = next
	}

	return entries, nil
}

// appendPage flattens one ranking page into board entries. The board value
// is the page's sort key: pp on performance boards, ranked score otherwise.
func appendPage(entries []domain.RankedPlayer, page *osu.Rankings, kind osu.RankingKind) []domain.RankedPlayer {
	for _, user := range page.Ranking {
		if user.Statistics == nil {
			continue
		}

		value := float64(user.Statistics.RankedScore)
		if kind == osu.RankingPerformance {
			value = user.Statistics.PP
		}

		entries = append(entries, domain.RankedPlayer{
			Rank:        int64(len(entries) + 1),
			UserID:      user.UserID,
			Username:    user.Username,
			CountryCode: user.CountryCode,
			Value:       value,
		})
	}
	return entries
}

// diffCycle compares a freshly polled board against the previous cycle's
// ranks and produces one event per player that entered or moved.
func diffCycle(board string, previous map[uint32]int64, entries []domain.RankedPlayer, at time.Time) []domain.RankChangeEvent {
	var events []domain.RankChangeEvent
	for _, entry := range entries {
		oldRank, seen := previous[entry.UserID]
		if seen && oldRank == entry.Rank {
			continue
		}

		event := domain.RankChangeEvent{
			ID:        uuid.New().String(),
			Board:     board,
			UserID:    entry.UserID,
			Username:  entry.Username,
			NewRank:   entry.Rank,
			NewValue:  entry.Value,
			Timestamp: at,
		}
		if seen {
			event.EventType = domain.EventTypeRankChange
			event.OldRank = oldRank
		} else {
			event.EventType = domain.EventTypeNewEntry
		}
		events = append(events, event)
	}
	return events
}

// IsRunning returns whether the worker is currently running
func (w *TrackerWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single poll cycle (useful for manual triggers)
func (w *TrackerWorker) RunOnce(ctx context.Context) {
	w.pollAll(ctx)
}
