package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"

	"github.com/hsp-league/league-backend/config"
	"github.com/hsp-league/league-backend/internal/docstore"
	"github.com/hsp-league/league-backend/internal/docstore/firestore"
	"github.com/hsp-league/league-backend/internal/docstore/redisstore"
)

// OpenStore opens the configured document store. The firestore backend
// needs the Firebase app.
func OpenStore(ctx context.Context, cfg *config.StoreConfig, app *firebase.App, logger *slog.Logger) (docstore.Store, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		if app == nil {
			return nil, errors.New("firestore backend requires Firebase credentials")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open Firestore: %w", err)
		}
		return firestore.New(client, logger), nil

	case config.BackendRedis:
		store, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// storePing reads a document that never exists; NotFound means reachable.
func storePing(store docstore.Store) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var v struct{}
		err := store.Get(ctx, docstore.Doc("_health", "ping"), &v)
		if err == nil || errors.Is(err, docstore.ErrNotFound) {
			return nil
		}
		return err
	}
}
