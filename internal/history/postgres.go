package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ghanabus/bustracker/track"
)

// PostgresRecorder persists fixes and chat exchanges to Postgres.
type PostgresRecorder struct {
	db *sql.DB
}

// OpenPostgres connects to the database at dsn, verifies the connection,
// and ensures the tracker tables exist.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRecorder{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRecorder) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bus_fixes (
			id          TEXT PRIMARY KEY,
			lat         DOUBLE PRECISION NOT NULL,
			lng         DOUBLE PRECISION NOT NULL,
			speed       DOUBLE PRECISION NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			user_id     TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS bus_fixes_recorded_at_idx ON bus_fixes (recorded_at DESC)`,
		`CREATE TABLE IF NOT EXISTS chat_history (
			id       TEXT PRIMARY KEY,
			user_id  TEXT NOT NULL DEFAULT '',
			query    TEXT NOT NULL,
			reply    TEXT NOT NULL,
			asked_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, q := range stmts {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Name identifies the backend for the health endpoint.
func (r *PostgresRecorder) Name() string { return "postgres" }

// SaveFix inserts one accepted fix.
func (r *PostgresRecorder) SaveFix(ctx context.Context, state track.VehicleState, userID string) error {
	const q = `INSERT INTO bus_fixes (id, lat, lng, speed, recorded_at, user_id)
	           VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, q,
		uuid.NewString(),
		state.Position.Lat(),
		state.Position.Lng(),
		state.Speed,
		state.Timestamp,
		userID,
	)
	if err != nil {
		return fmt.Errorf("insert fix: %w", err)
	}
	return nil
}

// SaveChat inserts one chat exchange.
func (r *PostgresRecorder) SaveChat(ctx context.Context, userID, query, reply string) error {
	const q = `INSERT INTO chat_history (id, user_id, query, reply, asked_at)
	           VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, q, uuid.NewString(), userID, query, reply, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

// History returns up to limit fixes, most recent first.
func (r *PostgresRecorder) History(ctx context.Context, limit int) ([]track.HistoryEntry, error) {
	const q = `SELECT id, lat, lng, speed, recorded_at, user_id
	           FROM bus_fixes ORDER BY recorded_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []track.HistoryEntry
	for rows.Next() {
		var (
			e        track.HistoryEntry
			lat, lng float64
		)
		if err := rows.Scan(&e.ID, &lat, &lng, &e.Speed, &e.Timestamp, &e.UserID); err != nil {
			return nil, err
		}
		e.Position = track.NewPosition(lat, lng)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}
