// Package session drives the sign-up, verification and sign-in workflow of
// a league client and keeps the per-session state it needs.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	chatdomain "github.com/hsp-league/league-backend/internal/chat/domain"
	"github.com/hsp-league/league-backend/internal/client"
	"github.com/hsp-league/league-backend/internal/docstore"
	"github.com/hsp-league/league-backend/internal/identity"
	profiledomain "github.com/hsp-league/league-backend/internal/profiles/domain"
)

type State int

const (
	SignedOut State = iota
	SignedInUnverified
	SignedInVerified
)

func (s State) String() string {
	switch s {
	case SignedInUnverified:
		return "signed-in-unverified"
	case SignedInVerified:
		return "signed-in-verified"
	default:
		return "signed-out"
	}
}

// Provider is the auth provider. OnAuthStateChanged listeners run
// synchronously and may be fired from inside the other methods.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (*identity.User, error)
	SignIn(ctx context.Context, email, password string) (*identity.User, error)
	Reload(ctx context.Context) (*identity.User, error)
	SendEmailVerification(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, displayName, photoURL string) error
	DeleteAccount(ctx context.Context) error
	SignOut(ctx context.Context) error
	CurrentUser() *identity.User
	OnAuthStateChanged(fn func(*identity.User)) (unsubscribe func())
}

// Backend is the league API as seen by a signed-in user.
type Backend interface {
	Me(ctx context.Context) (*client.Me, error)
	CompleteProfile(ctx context.Context, nickname, avatarURL string) (*profiledomain.Profile, bool, error)
	UpdateNickname(ctx context.Context, nickname string) (*profiledomain.Profile, error)
	UploadAvatar(ctx context.Context, filename string, image []byte) (*profiledomain.Profile, error)
	WatchPoints(ctx context.Context, fn func(points int64)) (docstore.Subscription, error)
	WatchChat(ctx context.Context, matchID string, fn func(msgs []chatdomain.Message)) (docstore.Subscription, error)
}

// PendingSignup is kept from account creation until the email is verified.
// The password never leaves memory.
type PendingSignup struct {
	Email     string `json:"email"`
	Password  string `json:"-"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url"`
}

// Image is a profile picture to upload.
type Image struct {
	Name string
	Data []byte
}

// View is a consistent snapshot of the session for display.
type View struct {
	State               State
	VerificationPending bool
	// LoggedIn is what the UI shows. An unverified user waiting for
	// verification keeps a session but appears logged out.
	LoggedIn bool
	Profile  *profiledomain.Profile
	Points   int64
	Admin    bool
	Page     int
}

type Option func(*Service)

func WithEmailDomain(domain string) Option {
	return func(s *Service) {
		if domain != "" {
			s.emailDomain = domain
		}
	}
}

func WithAvatarBase(base string) Option {
	return func(s *Service) { s.avatarBase = base }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithListener registers fn to receive a View after every state change,
// including live points updates.
func WithListener(fn func(View)) Option {
	return func(s *Service) { s.listener = fn }
}

// WithLivePoints controls whether a signed-in session subscribes to its
// points balance. It is on by default.
func WithLivePoints(enabled bool) Option {
	return func(s *Service) { s.livePoints = enabled }
}

type Service struct {
	provider    Provider
	backend     Backend
	emailDomain string
	avatarBase  string
	livePoints  bool
	logger      *slog.Logger
	listener    func(View)

	mu             sync.Mutex
	state          State
	pending        bool
	completing     bool
	signupEmail    string
	signupPassword string
	temp           *PendingSignup
	sess           *Context
}

func New(provider Provider, backend Backend, opts ...Option) *Service {
	s := &Service{
		provider:    provider,
		backend:     backend,
		emailDomain: profiledomain.DefaultEmailDomain,
		livePoints:  true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start follows the provider's auth state until the returned function is
// called. ctx bounds the live subscriptions opened for the session.
func (s *Service) Start(ctx context.Context) (stop func()) {
	return s.provider.OnAuthStateChanged(func(u *identity.User) {
		if err := s.HandleAuthState(ctx, u); err != nil {
			s.logger.Warn("auth state handling failed", "error", err)
		}
	})
}

// HandleAuthState applies one auth-state push. The mutex is never held
// across provider calls because they fire listeners reentrantly.
func (s *Service) HandleAuthState(ctx context.Context, user *identity.User) error {
	if user == nil {
		s.mu.Lock()
		s.state = SignedOut
		sess := s.sess
		s.sess = nil
		s.mu.Unlock()

		if sess != nil {
			sess.close()
		}
		s.notify()
		return nil
	}

	if !user.EmailVerified {
		s.mu.Lock()
		s.state = SignedInUnverified
		pending := s.pending
		s.mu.Unlock()

		if pending {
			s.notify()
			return nil
		}
		s.logger.Info("signing out unverified user", "uid", user.UID)
		return s.provider.SignOut(ctx)
	}

	s.mu.Lock()
	s.state = SignedInVerified
	s.pending = false
	completing := s.completing
	s.mu.Unlock()

	// The profile does not exist until the completion stores it.
	if completing {
		return nil
	}
	return s.activate(ctx)
}

// activate loads the profile and (re)attaches the live points subscription.
func (s *Service) activate(ctx context.Context) error {
	me, err := s.backend.Me(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	s.mu.Lock()
	if s.sess == nil {
		s.sess = newContext()
	}
	sess := s.sess
	s.mu.Unlock()

	sess.setMe(me)
	if !s.livePoints {
		s.notify()
		return nil
	}
	err = sess.points.Replace(func() (docstore.Subscription, error) {
		return s.backend.WatchPoints(ctx, func(points int64) {
			sess.setPoints(points)
			s.notify()
		})
	})
	if err != nil {
		s.logger.Warn("live points unavailable", "uid", me.Profile.UID, "error", err)
	}
	s.notify()
	return nil
}

// BeginSignup checks and keeps the credentials for SaveSignupProfile.
func (s *Service) BeginSignup(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrCredentialsRequired
	}
	if err := profiledomain.ValidateEmail(email, s.emailDomain); err != nil {
		return err
	}
	if err := profiledomain.ValidatePassword(password); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return ErrSignupPending
	}
	s.signupEmail, s.signupPassword = email, password
	return nil
}

// SaveSignupProfile creates the account and sends the verification email.
// Nothing is stored in the league until CheckVerification succeeds.
func (s *Service) SaveSignupProfile(ctx context.Context, nickname string) (*PendingSignup, error) {
	nick, err := profiledomain.NormalizeNickname(nickname)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	email, password := s.signupEmail, s.signupPassword
	s.mu.Unlock()
	if email == "" || password == "" {
		return nil, ErrTempDataMissing
	}
	if err := profiledomain.ValidateEmail(email, s.emailDomain); err != nil {
		return nil, err
	}

	temp := &PendingSignup{
		Email:     email,
		Password:  password,
		Nickname:  nick,
		AvatarURL: profiledomain.AvatarURL(s.avatarBase, nick, profiledomain.AvatarSizeLarge),
	}

	// Set before the account exists: creating it signs the new, unverified
	// user in and the listener must not force a sign-out.
	s.mu.Lock()
	s.pending = true
	s.temp = temp
	s.mu.Unlock()

	if _, err := s.provider.CreateAccount(ctx, email, password); err != nil {
		s.abandonSignup(ctx, false)
		return nil, err
	}
	if err := s.provider.SendEmailVerification(ctx); err != nil {
		s.abandonSignup(ctx, true)
		return nil, err
	}

	s.notify()
	out := *temp
	return &out, nil
}

// abandonSignup clears the pending state and, when the account was already
// created, deletes it best-effort.
func (s *Service) abandonSignup(ctx context.Context, created bool) {
	s.mu.Lock()
	s.pending = false
	s.temp = nil
	s.mu.Unlock()

	if !created {
		return
	}
	if err := s.provider.DeleteAccount(ctx); err != nil {
		s.logger.Error("failed to delete orphaned account", "error", err)
		if err := s.provider.SignOut(ctx); err != nil {
			s.logger.Warn("sign-out failed", "error", err)
		}
	}
}

// CheckVerification completes a pending sign-up once the email is verified.
// The league profile and ledger entry are created exactly once.
func (s *Service) CheckVerification(ctx context.Context) (*profiledomain.Profile, error) {
	s.mu.Lock()
	if s.temp == nil || s.temp.Password == "" {
		s.mu.Unlock()
		return nil, ErrTempDataMissing
	}
	temp := *s.temp
	s.completing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.completing = false
		s.mu.Unlock()
	}()

	if _, err := s.provider.SignIn(ctx, temp.Email, temp.Password); err != nil {
		if errors.Is(err, identity.ErrNetwork) {
			return nil, err
		}
		s.Cleanup()
		return nil, fmt.Errorf("%w: %v", ErrSignupUnrecoverable, err)
	}

	user, err := s.provider.Reload(ctx)
	if err != nil {
		s.signOutQuietly(ctx)
		return nil, err
	}
	if !user.EmailVerified {
		s.signOutQuietly(ctx)
		return nil, ErrEmailNotVerifiedYet
	}

	if err := s.provider.UpdateProfile(ctx, temp.Nickname, temp.AvatarURL); err != nil {
		s.signOutQuietly(ctx)
		return nil, fmt.Errorf("update auth profile: %w", err)
	}
	profile, created, err := s.backend.CompleteProfile(ctx, temp.Nickname, temp.AvatarURL)
	if err != nil {
		s.signOutQuietly(ctx)
		return nil, fmt.Errorf("complete profile: %w", err)
	}
	if !created {
		s.logger.Info("profile already existed", "uid", user.UID)
	}

	s.mu.Lock()
	s.resetSignup()
	s.completing = false
	s.mu.Unlock()

	if err := s.activate(ctx); err != nil {
		return profile, err
	}
	return profile, nil
}

func (s *Service) signOutQuietly(ctx context.Context) {
	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.Warn("sign-out failed", "error", err)
	}
}

// SignIn signs a verified user in. Unverified users are signed out again.
func (s *Service) SignIn(ctx context.Context, email, password string) (View, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return s.View(), ErrCredentialsRequired
	}

	user, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return s.View(), err
	}
	if !user.EmailVerified {
		if s.provider.CurrentUser() != nil {
			s.signOutQuietly(ctx)
		}
		return s.View(), ErrEmailVerificationRequired
	}
	return s.View(), nil
}

func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrCredentialsRequired
	}
	if err := profiledomain.ValidateEmail(email, s.emailDomain); err != nil {
		return err
	}
	return s.provider.SendPasswordReset(ctx, email)
}

// SaveNickname changes the nickname in the league profile and the auth
// profile.
func (s *Service) SaveNickname(ctx context.Context, nickname string) (*profiledomain.Profile, error) {
	return s.SaveProfile(ctx, nickname, nil)
}

// SaveProfile updates the nickname, the profile image, or both.
func (s *Service) SaveProfile(ctx context.Context, nickname string, image *Image) (*profiledomain.Profile, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" && image == nil {
		return nil, profiledomain.ErrNothingToUpdate
	}
	if nickname != "" {
		n, err := profiledomain.NormalizeNickname(nickname)
		if err != nil {
			return nil, err
		}
		nickname = n
	}
	if image != nil && len(image.Data) == 0 {
		return nil, profiledomain.ErrInvalidImage
	}

	sess := s.current()
	if sess == nil || s.provider.CurrentUser() == nil {
		return nil, ErrLoginRequired
	}

	var profile *profiledomain.Profile
	var err error
	if nickname != "" {
		if profile, err = s.backend.UpdateNickname(ctx, nickname); err != nil {
			return nil, err
		}
	}
	photoURL := ""
	if image != nil {
		if profile, err = s.backend.UploadAvatar(ctx, image.Name, image.Data); err != nil {
			return nil, err
		}
		photoURL = profile.AvatarURL
	}
	if err := s.provider.UpdateProfile(ctx, nickname, photoURL); err != nil {
		s.logger.Warn("auth profile update failed", "error", err)
	}

	sess.setProfile(profile)
	s.notify()
	return profile, nil
}

// WatchChat attaches the session's chat subscription to matchID, closing
// any earlier one first.
func (s *Service) WatchChat(ctx context.Context, matchID string, fn func(msgs []chatdomain.Message)) error {
	sess := s.current()
	if sess == nil {
		return ErrLoginRequired
	}
	return sess.chat.Replace(func() (docstore.Subscription, error) {
		return s.backend.WatchChat(ctx, matchID, fn)
	})
}

func (s *Service) StopChat() {
	if sess := s.current(); sess != nil {
		sess.chat.Close()
	}
}

// SignOut drops pending sign-up data, closes subscriptions and signs out.
func (s *Service) SignOut(ctx context.Context) error {
	s.Cleanup()
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	s.mu.Unlock()
	if sess != nil {
		sess.close()
	}
	return s.provider.SignOut(ctx)
}

// Cleanup forgets the sign-up credentials and pending data.
func (s *Service) Cleanup() {
	s.mu.Lock()
	s.resetSignup()
	s.mu.Unlock()
	s.notify()
}

// resetSignup clears sign-up state. The caller holds the mutex.
func (s *Service) resetSignup() {
	s.pending = false
	s.temp = nil
	s.signupEmail = ""
	s.signupPassword = ""
}

// RestorePending reinstates a sign-up saved by an earlier process. The
// password must be supplied again.
func (s *Service) RestorePending(p PendingSignup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.temp = &cp
	s.pending = true
	s.signupEmail, s.signupPassword = p.Email, p.Password
}

// Pending returns the sign-up waiting for verification, if any.
func (s *Service) Pending() (PendingSignup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.temp == nil {
		return PendingSignup{}, false
	}
	return *s.temp, true
}

// Session returns the context of the signed-in session, or nil.
func (s *Service) Session() *Context {
	return s.current()
}

func (s *Service) current() *Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

func (s *Service) View() View {
	s.mu.Lock()
	v := View{State: s.state, VerificationPending: s.pending}
	sess := s.sess
	s.mu.Unlock()

	if sess != nil {
		sess.fill(&v)
		v.LoggedIn = v.State == SignedInVerified && v.Profile != nil
	}
	return v
}

func (s *Service) notify() {
	if s.listener != nil {
		s.listener(s.View())
	}
}
