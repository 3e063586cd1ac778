package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hsp-league/league-backend/config"
	"github.com/hsp-league/league-backend/internal/awards"
	"github.com/hsp-league/league-backend/internal/storage/postgres"
)

// OpenJournal connects the Postgres award journal. Without a DSN the journal
// is a no-op and the returned *sql.DB is nil.
func OpenJournal(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (awards.Journal, *sql.DB, error) {
	if cfg.DSN == "" {
		logger.Info("award journal disabled (no DB_DSN)")
		return awards.Nop{}, nil, nil
	}

	db, err := postgres.NewConnection(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}

	journal := awards.NewPostgresJournal(db)
	if err := journal.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db schema: %w", err)
	}
	logger.Info("award journal connected", "max_conns", cfg.MaxConns)
	return journal, db, nil
}
