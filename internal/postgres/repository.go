package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rankwatch/internal/config"
	"github.com/rankwatch/internal/domain"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS ranking_snapshots (
			id BIGSERIAL PRIMARY KEY,
			board VARCHAR(32) NOT NULL,
			user_id BIGINT NOT NULL,
			username VARCHAR(64) NOT NULL,
			rank BIGINT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rank_events (
			id UUID PRIMARY KEY,
			board VARCHAR(32) NOT NULL,
			user_id BIGINT NOT NULL,
			username VARCHAR(64),
			event_type VARCHAR(20) NOT NULL,
			old_rank BIGINT,
			new_rank BIGINT NOT NULL,
			old_value DOUBLE PRECISION,
			new_value DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_board_time ON ranking_snapshots(board, recorded_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_player ON ranking_snapshots(board, user_id, recorded_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_events_board ON rank_events(board, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_rank_events_player ON rank_events(user_id, created_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// ArchiveSnapshot writes one polled ranking cycle for a board in a single
// batch
func (r *Repository) ArchiveSnapshot(ctx context.Context, board string, entries []domain.RankedPlayer, recordedAt time.Time) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO ranking_snapshots (board, user_id, username, rank, value, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, entry := range entries {
		batch.Queue(query, board, entry.UserID, entry.Username, entry.Rank, entry.Value, recordedAt)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("archiving snapshot: %w", err)
		}
	}
	return nil
}

// RecordRankEvent records a rank change event for auditing
func (r *Repository) RecordRankEvent(ctx context.Context, event domain.RankChangeEvent) error {
	query := `
		INSERT INTO rank_events (id, board, user_id, username, event_type, old_rank, new_rank, old_value, new_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Board,
		event.UserID,
		event.Username,
		event.EventType,
		event.OldRank,
		event.NewRank,
		event.OldValue,
		event.NewValue,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("recording rank event: %w", err)
	}
	return nil
}

// GetPlayerHistory retrieves a player's archived snapshot rows on a board,
// most recent first
func (r *Repository) GetPlayerHistory(ctx context.Context, board string, userID uint32, limit int) ([]domain.SnapshotRow, error) {
	query := `
		SELECT board, user_id, username, rank, value, recorded_at
		FROM ranking_snapshots
		WHERE board = $1 AND user_id = $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, board, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting player history: %w", err)
	}
	defer rows.Close()

	var history []domain.SnapshotRow
	for rows.Next() {
		var row domain.SnapshotRow
		err := rows.Scan(&row.Board, &row.UserID, &row.Username, &row.Rank, &row.Value, &row.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		history = append(history, row)
	}
	if len(history) == 0 {
		return nil, domain.ErrPlayerNotFound
	}
	return history, nil
}

// GetRecentEvents retrieves the most recent rank change events on a board
func (r *Repository) GetRecentEvents(ctx context.Context, board string, limit int) ([]domain.RankChangeEvent, error) {
	query := `
		SELECT id, board, user_id, COALESCE(username, ''), event_type,
			   COALESCE(old_rank, 0), new_rank, COALESCE(old_value, 0), new_value, created_at
		FROM rank_events
		WHERE board = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, board, limit)
	if err != nil {
		return nil, fmt.Errorf("getting recent events: %w", err)
	}
	defer rows.Close()

	var events []domain.RankChangeEvent
	for rows.Next() {
		var event domain.RankChangeEvent
		err := rows.Scan(
			&event.ID,
			&event.Board,
			&event.UserID,
			&event.Username,
			&event.EventType,
			&event.OldRank,
			&event.NewRank,
			&event.OldValue,
			&event.NewValue,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning rank event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

// GetLatestSnapshotTime returns the timestamp of the newest archived cycle
// for a board
func (r *Repository) GetLatestSnapshotTime(ctx context.Context, board string) (time.Time, error) {
	query := `SELECT MAX(recorded_at) FROM ranking_snapshots WHERE board = $1`
	var latest *time.Time
	err := r.pool.QueryRow(ctx, query, board).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("getting latest snapshot time: %w", err)
	}
	if latest == nil {
		return time.Time{}, domain.ErrBoardNotFound
	}
	return *latest, nil
}

// PruneSnapshots deletes archived rows older than the retention window
func (r *Repository) PruneSnapshots(ctx context.Context, board string, olderThan time.Time) (int64, error) {
	query := `DELETE FROM ranking_snapshots WHERE board = $1 AND recorded_at < $2`
	result, err := r.pool.Exec(ctx, query, board, olderThan)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return result.RowsAffected(), nil
}

// GetSnapshotCount returns the total number of archived rows for a board
func (r *Repository) GetSnapshotCount(ctx context.Context, board string) (int64, error) {
	query := `SELECT COUNT(*) FROM ranking_snapshots WHERE board = $1`
	var count int64
	err := r.pool.QueryRow(ctx, query, board).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("getting snapshot count: %w", err)
	}
	return count, nil
}
