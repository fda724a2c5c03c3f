package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rankwatch/internal/config"
	"github.com/rankwatch/internal/domain"
	"github.com/rankwatch/internal/osu"
	"github.com/rankwatch/internal/postgres"
	"github.com/rankwatch/internal/redis"
	"github.com/rankwatch/internal/websocket"
)

// TrackerService provides the read side of the ranking tracker: mirrored
// boards from Redis, archived history from PostgreSQL, and a few live
// pass-throughs to the osu! API for data that is not mirrored.
type TrackerService struct {
	mirror   *redis.MirrorStore
	postgres *postgres.Repository
	osu      *osu.Client
	config   *config.Config
	logger   *slog.Logger
	hub      *websocket.Hub
}

// NewTrackerService creates a new tracker service
func NewTrackerService(
	mirror *redis.MirrorStore,
	pg *postgres.Repository,
	osuClient *osu.Client,
	cfg *config.Config,
	logger *slog.Logger,
) *TrackerService {
	return &TrackerService{
		mirror:   mirror,
		postgres: pg,
		osu:      osuClient,
		config:   cfg,
		logger:   logger,
	}
}

// SetHub attaches the websocket hub used to fan out consumed rank events
func (s *TrackerService) SetHub(hub *websocket.Hub) {
	s.hub = hub
}

// resolveBoard validates a mode/kind pair and returns the board id
func (s *TrackerService) resolveBoard(mode, kind string) (string, error) {
	if _, err := osu.ParseGameMode(mode); err != nil {
		return "", domain.ErrInvalidRequest
	}
	if _, err := osu.ParseRankingKind(kind); err != nil {
		return "", domain.ErrInvalidRequest
	}
	return domain.BoardID(mode, kind), nil
}

// GetBoard returns the top entries of a mirrored board
func (s *TrackerService) GetBoard(ctx context.Context, mode, kind string, limit int) ([]domain.RankedPlayer, error) {
	board, err := s.resolveBoard(mode, kind)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.config.Leaderboard.DefaultLimit
	}
	if limit > s.config.Leaderboard.MaxLimit {
		limit = s.config.Leaderboard.MaxLimit
	}

	exists, err := s.mirror.Exists(ctx, board)
	if err != nil {
		return nil, fmt.Errorf("checking board existence: %w", err)
	}
	if !exists {
		return nil, domain.ErrBoardNotFound
	}

	return s.mirror.GetTopN(ctx, board, limit)
}

// GetRange returns mirrored entries within a rank range
func (s *TrackerService) GetRange(ctx context.Context, mode, kind string, start, end int) ([]domain.RankedPlayer, error) {
	board, err := s.resolveBoard(mode, kind)
	if err != nil {
		return nil, err
	}

	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	if end-start > s.config.Leaderboard.MaxLimit {
		end = start + s.config.Leaderboard.MaxLimit
	}

	return s.mirror.GetRange(ctx, board, start, end)
}

// GetPlayerRank returns a player's mirrored rank on a board
func (s *TrackerService) GetPlayerRank(ctx context.Context, mode, kind string, userID uint32) (*domain.RankedPlayer, error) {
	board, err := s.resolveBoard(mode, kind)
	if err != nil {
		return nil, err
	}
	return s.mirror.GetPlayerRank(ctx, board, userID)
}

// GetAroundPlayer returns mirrored entries around a player's rank
func (s *TrackerService) GetAroundPlayer(ctx context.Context, mode, kind string, userID uint32, count int) ([]domain.RankedPlayer, error) {
	board, err := s.resolveBoard(mode, kind)
	if err != nil {
		return nil, err
	}

	if count <= 0 {
		count = 5
	}
	if count > 50 {
		count = 50
	}

	return s.mirror.GetAroundPlayer(ctx, board, userID, count)
}

// GetPlayerHistory returns a player's archived rank history on a board
func (s *TrackerService) GetPlayerHistory(ctx context.Context, mode, kind string, userID uint32, limit int) ([]domain.SnapshotRow, error) {
	board, err := s.resolveBoard(mode, kind)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > s.config.Leaderboard.MaxLimit {
		limit = s.config.Leaderboard.DefaultLimit
	}

	return s.postgres.GetPlayerHistory(ctx, board, userID, limit)
}

// GetRecentEvents returns the most recent rank change events on a board
func (s *TrackerService) GetRecentEvents(ctx context.Context, mode, kind string, limit int) ([]domain.RankChangeEvent, error) {
	board, err := s.resolveBoard(mode, kind)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > s.config.Leaderboard.MaxLimit {
		limit = s.config.Leaderboard.DefaultLimit
	}

	return s.postgres.GetRecentEvents(ctx, board, limit)
}

// GetBoardStats returns summary statistics for a mirrored board
func (s *TrackerService) GetBoardStats(ctx context.Context, mode, kind string) (*domain.BoardStats, error) {
	board, err := s.resolveBoard(mode, kind)
	if err != nil {
		return nil, err
	}

	exists, err := s.mirror.Exists(ctx, board)
	if err != nil {
		return nil, fmt.Errorf("checking board existence: %w", err)
	}
	if !exists {
		return nil, domain.ErrBoardNotFound
	}

	return s.mirror.GetBoardStats(ctx, board)
}

// ListBoards returns every configured board and whether it has been
// mirrored yet
func (s *TrackerService) ListBoards(ctx context.Context) (map[string]bool, error) {
	boards := make(map[string]bool)
	for _, mode := range s.config.Tracker.Modes {
		for _, kind := range s.config.Tracker.Kinds {
			board := domain.BoardID(mode, kind)
			exists, err := s.mirror.Exists(ctx, board)
			if err != nil {
				return nil, fmt.Errorf("checking board existence: %w", err)
			}
			boards[board] = exists
		}
	}
	return boards, nil
}

// CountryRankings fetches the live per-country ranking from the osu! API.
// Country boards are not mirrored, so this is a pass-through.
func (s *TrackerService) CountryRankings(ctx context.Context, mode string) (*osu.CountryRankings, error) {
	gameMode, err := osu.ParseGameMode(mode)
	if err != nil {
		return nil, domain.ErrInvalidRequest
	}
	return s.osu.CountryRankings(ctx, gameMode)
}

// ChartRankings fetches the live spotlight chart from the osu! API
func (s *TrackerService) ChartRankings(ctx context.Context, mode string) (*osu.ChartRankings, error) {
	gameMode, err := osu.ParseGameMode(mode)
	if err != nil {
		return nil, domain.ErrInvalidRequest
	}
	return s.osu.ChartRankings(ctx, gameMode)
}

// News fetches the live news listing from the osu! API
func (s *TrackerService) News(ctx context.Context) (*osu.News, error) {
	return s.osu.News(ctx)
}

// HandleRankEvents implements the Kafka consumer's event handler by fanning
// consumed rank events out to websocket subscribers
func (s *TrackerService) HandleRankEvents(ctx context.Context, events []domain.RankChangeEvent) error {
	if s.hub == nil {
		return nil
	}
	for _, event := range events {
		s.hub.BroadcastRankEvent(event)
	}
	return nil
}
