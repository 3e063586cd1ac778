package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hsp-league/league-backend/internal/client"
	"github.com/hsp-league/league-backend/internal/identity"
	"github.com/hsp-league/league-backend/internal/logger"
	"github.com/hsp-league/league-backend/internal/session"
)

type options struct {
	apiURL      string
	apiKey      string
	sessionPath string
	identityURL string
	tokenURL    string
	emailDomain string
	avatarBase  string
	logLevel    string
}

// app is the per-invocation wiring: stored credentials, the auth provider,
// the API clients and, on demand, the session service.
type app struct {
	opts     *options
	out      io.Writer
	logger   *slog.Logger
	file     *sessionFile
	provider *identity.Client
	api      *client.Client
	public   *client.Client
	svc      *session.Service
}

func newApp(ctx context.Context, opts *options, out io.Writer, logger *slog.Logger) (*app, error) {
	file, err := loadSessionFile(opts.sessionPath)
	if err != nil {
		return nil, err
	}

	idOpts := []identity.Option{identity.WithLogger(logger)}
	if opts.identityURL != "" || opts.tokenURL != "" {
		tokenURL := opts.tokenURL
		if tokenURL == "" {
			tokenURL = identity.DefaultTokenURL
		}
		idOpts = append(idOpts, identity.WithEndpoints(opts.identityURL, tokenURL))
	}
	provider, err := identity.New(ctx, opts.apiKey, idOpts...)
	if err != nil {
		return nil, err
	}
	if u := file.user(); u != nil {
		provider.Restore(u)
	}

	return &app{
		opts:     opts,
		out:      out,
		logger:   logger,
		file:     file,
		provider: provider,
		api:      client.New(opts.apiURL, provider, client.WithLogger(logger)),
		public:   client.New(opts.apiURL, nil, client.WithLogger(logger)),
	}, nil
}

// reader is the client for public reads: authenticated when a session is
// stored so the API can tailor answers to the caller.
func (a *app) reader() *client.Client {
	if a.provider.CurrentUser() != nil {
		return a.api
	}
	return a.public
}

// session builds the session service and restores a pending sign-up.
func (a *app) session(extra ...session.Option) *session.Service {
	if a.svc != nil {
		return a.svc
	}
	opts := []session.Option{
		session.WithEmailDomain(a.opts.emailDomain),
		session.WithAvatarBase(a.opts.avatarBase),
		session.WithLogger(a.logger),
		session.WithLivePoints(false),
	}
	a.svc = session.New(a.provider, a.api, append(opts, extra...)...)
	if a.file.Pending != nil {
		a.svc.RestorePending(*a.file.Pending)
	}
	return a.svc
}

// signedIn starts a session for the stored user and waits for it to load.
// The returned stop detaches the session from the auth provider.
func (a *app) signedIn(ctx context.Context, extra ...session.Option) (*session.Service, func(), error) {
	if a.provider.CurrentUser() == nil {
		return nil, nil, session.ErrLoginRequired
	}
	svc := a.session(extra...)
	stop := svc.Start(ctx)
	if svc.View().LoggedIn {
		return svc, stop, nil
	}
	stop()
	if a.provider.CurrentUser() != nil {
		// Still signed in, so loading the profile failed. Ask again to
		// surface the reason.
		if _, err := a.api.Me(ctx); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, session.ErrLoginRequired
}

// requireUser fails fast for API calls that need a signed-in caller.
func (a *app) requireUser() error {
	if a.provider.CurrentUser() == nil {
		return session.ErrLoginRequired
	}
	return nil
}

func (a *app) persist() error {
	a.file.setUser(a.provider.CurrentUser())
	if a.svc != nil {
		if p, ok := a.svc.Pending(); ok {
			a.file.Pending = &p
		} else {
			a.file.Pending = nil
		}
	}
	return a.file.save(a.opts.sessionPath)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// run adapts fn to a cobra RunE: it wires the app, persists credentials
// afterwards and turns errors into user-facing messages.
func run(opts *options, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		log := logger.Setup(cmd.ErrOrStderr(), opts.logLevel, "")
		a, err := newApp(ctx, opts, cmd.OutOrStdout(), log)
		if err != nil {
			return err
		}

		runErr := fn(ctx, a, args)
		if err := a.persist(); err != nil {
			log.Warn("failed to save session", "path", opts.sessionPath, "error", err)
		}
		if runErr == nil || errors.Is(runErr, context.Canceled) {
			return nil
		}
		log.Debug("command failed", "command", cmd.CommandPath(), "error", runErr)
		var le *localError
		if errors.As(runErr, &le) {
			return le.err
		}
		return errors.New(session.Message(runErr))
	}
}

// localError is a failure inside leaguectl itself, such as a bad argument
// or an unreadable file. It is shown as is.
type localError struct{ err error }

func (e *localError) Error() string { return e.err.Error() }
func (e *localError) Unwrap() error { return e.err }

func localf(format string, args ...any) error {
	return &localError{err: fmt.Errorf(format, args...)}
}
