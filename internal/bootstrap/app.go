package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hsp-league/league-backend/config"
	httpapi "github.com/hsp-league/league-backend/internal/api/http"
	"github.com/hsp-league/league-backend/internal/api/http/routes"
	"github.com/hsp-league/league-backend/internal/auth"
	"github.com/hsp-league/league-backend/internal/auth/middleware"
	chathttp "github.com/hsp-league/league-backend/internal/chat/http"
	chatrepo "github.com/hsp-league/league-backend/internal/chat/repository"
	chatservice "github.com/hsp-league/league-backend/internal/chat/service"
	cronjob "github.com/hsp-league/league-backend/internal/matches/cron"
	matchhttp "github.com/hsp-league/league-backend/internal/matches/http"
	matchrepo "github.com/hsp-league/league-backend/internal/matches/repository"
	matchservice "github.com/hsp-league/league-backend/internal/matches/service"
	"github.com/hsp-league/league-backend/internal/metrics"
	pointshttp "github.com/hsp-league/league-backend/internal/points/http"
	pointsrepo "github.com/hsp-league/league-backend/internal/points/repository"
	pointsservice "github.com/hsp-league/league-backend/internal/points/service"
	profilehttp "github.com/hsp-league/league-backend/internal/profiles/http"
	profilerepo "github.com/hsp-league/league-backend/internal/profiles/repository"
	profileservice "github.com/hsp-league/league-backend/internal/profiles/service"
	"github.com/hsp-league/league-backend/internal/storage/objectstore"
)

const serviceName = "league-api"

// App is the wired API process.
type App struct {
	Router    *gin.Engine
	Scheduler *cronjob.Scheduler
	closers   []func() error
}

// NewApp connects every backend named by cfg and wires the HTTP surface.
// Without Firebase credentials, requests authenticate through development
// identity headers only when AUTH_DEV_HEADERS opts in outside production.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var fbApp *firebase.App
	if cfg.Firebase.CredentialsPath != "" {
		var err error
		if fbApp, err = auth.InitializeFirebase(ctx, &cfg.Firebase); err != nil {
			return nil, err
		}
	} else if !cfg.Firebase.DevHeaders || cfg.App.Environment == "production" {
		return nil, errors.New("FIREBASE_CREDENTIALS_PATH is required unless AUTH_DEV_HEADERS=true outside production")
	}

	store, err := OpenStore(ctx, &cfg.Store, fbApp, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	journal, db, err := OpenJournal(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	health := map[string]httpapi.Pinger{"store": httpapi.PingFunc(storePing(store)), "journal": nil}
	if db != nil {
		a.closers = append(a.closers, db.Close)
		health["journal"] = db
	}

	files, err := objectstore.Open(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.NewCollector(reg)

	var requireAuth, optionalAuth gin.HandlerFunc
	var authUsers profileservice.AuthUpdater
	if fbApp != nil {
		client, err := auth.NewAuthClient(ctx, fbApp)
		if err != nil {
			return nil, err
		}
		requireAuth = middleware.FirebaseAuthMiddleware(client)
		optionalAuth = middleware.OptionalFirebaseAuth(client)
		authUsers = client
	} else {
		logger.Warn("AUTH_DEV_HEADERS set, trusting development identity headers")
		requireAuth = auth.DevUser()
		optionalAuth = auth.DevUser()
	}

	ledgerRepo := pointsrepo.NewLedgerRepository(store)
	ledger := pointsservice.NewLedger(ledgerRepo, rec, logger)
	subscriber := pointsservice.NewSubscriber(ledgerRepo, rec, logger)

	profiles := profileservice.NewProfileService(
		profilerepo.NewProfileRepository(store),
		ledger,
		files,
		authUsers,
		cfg.League.AvatarBaseURL,
		logger,
	)
	leaderboard := pointsservice.NewLeaderboard(ledgerRepo, profiles)

	matchRepo := matchrepo.NewMatchRepository(store)
	voteRepo := matchrepo.NewVoteRepository(store)
	results := matchservice.NewResultService(
		matchRepo,
		voteRepo,
		profiles,
		ledger,
		journal,
		rec,
		logger,
		matchservice.WithReward(cfg.League.RewardPoints),
		matchservice.WithCreditAttempts(cfg.League.CreditRetryAttempts),
	)

	chat := chatservice.NewChatService(
		chatrepo.NewChatRepository(store),
		profiles,
		chatservice.NewSendLimiter(cfg.League.ChatRatePerMin),
		rec,
		logger,
	)

	a.Scheduler = cronjob.NewScheduler(matchservice.NewFinisher(matchRepo, cfg.League.FinishAfter, logger), logger)

	a.Router = BuildRouter(RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
		Gatherer:    reg,
		Health:      health,
		V1: routes.V1Deps{
			Auth:         requireAuth,
			OptionalAuth: optionalAuth,
			Admins:       profiles,
			Profiles:     profilehttp.New(profiles, ledger),
			Points:       pointshttp.New(ledger, subscriber, leaderboard),
			Matches: matchhttp.New(
				matchservice.NewMatchService(matchRepo, cfg.League.MatchesPerPage),
				matchservice.NewVoteService(voteRepo, ledger, rec, logger),
				results,
				profiles,
			),
			Chat: chathttp.New(chat),
		},
	})

	ok = true
	return a, nil
}

// Close stops the scheduler and releases backends in reverse order.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
