package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rankwatch/internal/config"
	"github.com/rankwatch/internal/domain"
)

// MirrorStore keeps the latest polled ranking pages in Redis sorted sets,
// one per board, so the local API can serve rank queries without touching
// the osu! API.
type MirrorStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewMirrorStore creates a new Redis mirror store
func NewMirrorStore(cfg *config.RedisConfig, logger *slog.Logger) (*MirrorStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &MirrorStore{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *MirrorStore) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client
func (s *MirrorStore) Client() *redis.Client {
	return s.client
}

// boardKey returns the Redis key for a board's sorted set
func (s *MirrorStore) boardKey(board string) string {
	return fmt.Sprintf("board:%s:ranking", board)
}

// playerInfoKey returns the Redis key for the player info cache
func (s *MirrorStore) playerInfoKey(userID uint32) string {
	return fmt.Sprintf("player:%d:info", userID)
}

// ReplaceBoard atomically swaps a board's mirror for a freshly polled set of
// entries. The new set is built under a staging key and renamed over the old
// one so readers never observe a half-written board.
func (s *MirrorStore) ReplaceBoard(ctx context.Context, board string, entries []domain.RankedPlayer) error {
	key := s.boardKey(board)
	staging := key + ":staging"

	pipe := s.client.Pipeline()
	pipe.Del(ctx, staging)
	for _, entry := range entries {
		pipe.ZAdd(ctx, staging, redis.Z{
			Score:  entry.Value,
			Member: strconv.FormatUint(uint64(entry.UserID), 10),
		})
		pipe.HSet(ctx, s.playerInfoKey(entry.UserID),
			"username", entry.Username,
			"country_code", entry.CountryCode,
		)
	}
	pipe.Rename(ctx, staging, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replacing board %s: %w", board, err)
	}
	return nil
}

// GetAllRanks returns every mirrored player's current rank on a board,
// keyed by user id. Used by the tracker to diff consecutive cycles.
func (s *MirrorStore) GetAllRanks(ctx context.Context, board string) (map[uint32]int64, error) {
	key := s.boardKey(board)
	members, err := s.client.ZRevRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("getting board ranks: %w", err)
	}

	ranks := make(map[uint32]int64, len(members))
	for i, member := range members {
		userID, err := strconv.ParseUint(member, 10, 32)
		if err != nil {
			continue
		}
		ranks[uint32(userID)] = int64(i + 1)
	}
	return ranks, nil
}

// GetTopN returns the top N players from a board (descending order)
func (s *MirrorStore) GetTopN(ctx context.Context, board string, n int) ([]domain.RankedPlayer, error) {
	return s.GetRange(ctx, board, 0, n-1)
}

// GetRange returns players within a specific rank range (0-indexed)
func (s *MirrorStore) GetRange(ctx context.Context, board string, start, end int) ([]domain.RankedPlayer, error) {
	key := s.boardKey(board)
	results, err := s.client.ZRevRangeWithScores(ctx, key, int64(start), int64(end)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting range: %w", err)
	}

	entries := make([]domain.RankedPlayer, 0, len(results))
	for i, result := range results {
		member, ok := result.Member.(string)
		if !ok {
			continue
		}
		userID, err := strconv.ParseUint(member, 10, 32)
		if err != nil {
			continue
		}
		entries = append(entries, domain.RankedPlayer{
			Rank:   int64(start + i + 1), // Convert to 1-indexed rank
			UserID: uint32(userID),
			Value:  result.Score,
		})
	}
	return s.fillPlayerInfo(ctx, entries)
}

// GetPlayerRank returns a player's mirrored rank and value on a board
func (s *MirrorStore) GetPlayerRank(ctx context.Context, board string, userID uint32) (*domain.RankedPlayer, error) {
	key := s.boardKey(board)
	member := strconv.FormatUint(uint64(userID), 10)

	// Use pipeline to get both rank and value
	pipe := s.client.Pipeline()
	rankCmd := pipe.ZRevRank(ctx, key, member)
	scoreCmd := pipe.ZScore(ctx, key, member)
	_, err := pipe.Exec(ctx)

	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting player rank: %w", err)
	}

	rank, err := rankCmd.Result()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("getting rank result: %w", err)
	}

	value, err := scoreCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("getting value result: %w", err)
	}

	entry := domain.RankedPlayer{
		Rank:   rank + 1, // Convert 0-indexed to 1-indexed
		UserID: userID,
		Value:  value,
	}
	if info, err := s.GetPlayerInfo(ctx, userID); err == nil {
		entry.Username = info.Username
		entry.CountryCode = info.CountryCode
	}
	return &entry, nil
}

// GetAroundPlayer returns players around a specific player's rank
func (s *MirrorStore) GetAroundPlayer(ctx context.Context, board string, userID uint32, count int) ([]domain.RankedPlayer, error) {
	// First, get the player's rank
	entry, err := s.GetPlayerRank(ctx, board, userID)
	if err != nil {
		return nil, err
	}

	// Calculate range around the player
	start := entry.Rank - int64(count) - 1 // -1 because rank is 1-indexed
	if start < 0 {
		start = 0
	}
	end := entry.Rank + int64(count) - 1 // -1 because rank is 1-indexed

	return s.GetRange(ctx, board, int(start), int(end))
}

// GetCount returns the number of mirrored players on a board
func (s *MirrorStore) GetCount(ctx context.Context, board string) (int64, error) {
	key := s.boardKey(board)
	count, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	return count, nil
}

// GetBoardStats returns summary statistics for a board
func (s *MirrorStore) GetBoardStats(ctx context.Context, board string) (*domain.BoardStats, error) {
	key := s.boardKey(board)

	pipe := s.client.Pipeline()
	countCmd := pipe.ZCard(ctx, key)
	topCmd := pipe.ZRevRangeWithScores(ctx, key, 0, 0)
	bottomCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("getting board stats: %w", err)
	}

	stats := &domain.BoardStats{
		Board:        board,
		TotalPlayers: countCmd.Val(),
	}
	if top := topCmd.Val(); len(top) > 0 {
		stats.TopValue = top[0].Score
	}
	if bottom := bottomCmd.Val(); len(bottom) > 0 {
		stats.LowestValue = bottom[0].Score
	}
	return stats, nil
}

// Exists checks if a board has been mirrored
func (s *MirrorStore) Exists(ctx context.Context, board string) (bool, error) {
	key := s.boardKey(board)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("checking existence: %w", err)
	}
	return exists > 0, nil
}

// DeleteBoard removes a board's mirror entirely
func (s *MirrorStore) DeleteBoard(ctx context.Context, board string) error {
	key := s.boardKey(board)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("deleting board: %w", err)
	}
	return nil
}

// GetPlayerInfo retrieves cached player information
func (s *MirrorStore) GetPlayerInfo(ctx context.Context, userID uint32) (*domain.PlayerInfo, error) {
	key := s.playerInfoKey(userID)
	result, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("getting player info: %w", err)
	}

	if len(result) == 0 {
		return nil, domain.ErrPlayerNotFound
	}

	return &domain.PlayerInfo{
		UserID:      userID,
		Username:    result["username"],
		CountryCode: result["country_code"],
	}, nil
}

// fillPlayerInfo resolves cached usernames for a batch of entries
func (s *MirrorStore) fillPlayerInfo(ctx context.Context, entries []domain.RankedPlayer) ([]domain.RankedPlayer, error) {
	if len(entries) == 0 {
		return entries, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(entries))
	for i, entry := range entries {
		cmds[i] = pipe.HGetAll(ctx, s.playerInfoKey(entry.UserID))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("getting player info batch: %w", err)
	}

	for i := range entries {
		info := cmds[i].Val()
		entries[i].Username = info["username"]
		entries[i].CountryCode = info["country_code"]
	}
	return entries, nil
}
