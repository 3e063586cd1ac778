// Package awards records every points credit attempted when a match result
// is set, so partially completed payouts stay visible.
package awards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	StatusCredited = "credited"
	StatusFailed   = "failed"
)

var ErrDuplicateAward = errors.New("award already recorded")

// Award is one credit attempt for one winner of one match.
type Award struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"match_id"`
	UID       string    `json:"uid"`
	Amount    int64     `json:"amount"`
	Attempt   int       `json:"attempt"`
	Strategy  string    `json:"strategy,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Journal interface {
	Record(ctx context.Context, a *Award) error
	ListByMatch(ctx context.Context, matchID string) ([]Award, error)
}

// Nop discards records. Used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, *Award) error { return nil }

func (Nop) ListByMatch(context.Context, string) ([]Award, error) { return []Award{}, nil }

const schema = `
	CREATE TABLE IF NOT EXISTS point_awards (
		id         UUID PRIMARY KEY,
		match_id   TEXT NOT NULL,
		uid        TEXT NOT NULL,
		amount     BIGINT NOT NULL,
		attempt    INT NOT NULL,
		strategy   TEXT,
		status     TEXT NOT NULL,
		error      TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (match_id, uid, attempt)
	);
	CREATE INDEX IF NOT EXISTS point_awards_match_idx ON point_awards (match_id, created_at)
`

// PostgresJournal stores awards in the point_awards table.
type PostgresJournal struct {
	db *sql.DB
}

func NewPostgresJournal(db *sql.DB) *PostgresJournal {
	return &PostgresJournal{db: db}
}

// EnsureSchema creates the table if it does not exist.
func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create point_awards: %w", err)
	}
	return nil
}

func (j *PostgresJournal) Record(ctx context.Context, a *Award) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	query := `
		INSERT INTO point_awards (id, match_id, uid, amount, attempt, strategy, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := j.db.QueryRowContext(ctx, query,
		a.ID,
		a.MatchID,
		a.UID,
		a.Amount,
		a.Attempt,
		nullString(a.Strategy),
		a.Status,
		nullString(a.Error),
	).Scan(&a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAward
		}
		return fmt.Errorf("failed to record award: %w", err)
	}
	return nil
}

func (j *PostgresJournal) ListByMatch(ctx context.Context, matchID string) ([]Award, error) {
	query := `
		SELECT id, match_id, uid, amount, attempt, strategy, status, error, created_at
		FROM point_awards
		WHERE match_id = $1
		ORDER BY created_at, uid, attempt
	`

	rows, err := j.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list awards: %w", err)
	}
	defer rows.Close()

	out := []Award{}
	for rows.Next() {
		var a Award
		var strategy, errText sql.NullString
		if err := rows.Scan(&a.ID, &a.MatchID, &a.UID, &a.Amount, &a.Attempt, &strategy, &a.Status, &errText, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		a.Strategy = strategy.String
		a.Error = errText.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate awards: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
