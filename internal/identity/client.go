// Package identity signs users in against the Identity Toolkit REST API and
// keeps their ID token fresh.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

const (
	DefaultTokenURL = "https://securetoken.googleapis.com/v1/token"

	requestVerifyEmail   = "VERIFY_EMAIL"
	requestPasswordReset = "PASSWORD_RESET"

	// tokens this close to expiry are refreshed before use
	expiryMargin = time.Minute
)

// User is the signed-in account and its credentials.
type User struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	DisplayName   string    `json:"display_name,omitempty"`
	PhotoURL      string    `json:"photo_url,omitempty"`
	IDToken       string    `json:"id_token,omitempty"`
	RefreshToken  string    `json:"refresh_token"`
	Expiry        time.Time `json:"expiry"`
}

type Client struct {
	svc        *identitytoolkit.Service
	apiKey     string
	tokenURL   string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	user      *User
	listeners map[int]func(*User)
	nextID    int
}

type Option func(*Client)

// WithEndpoints points the client at another Identity Toolkit base URL and
// secure token URL.
func WithEndpoints(identityURL, tokenURL string) Option {
	return func(c *Client) {
		c.endpoint = identityURL
		c.tokenURL = tokenURL
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		apiKey:    apiKey,
		tokenURL:  DefaultTokenURL,
		logger:    slog.Default(),
		now:       time.Now,
		listeners: make(map[int]func(*User)),
	}
	for _, opt := range opts {
		opt(c)
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if c.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(c.endpoint))
	}
	if c.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(c.httpClient))
	}

	svc, err := identitytoolkit.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity service: %w", err)
	}
	c.svc = svc
	return c, nil
}

// CreateAccount registers and signs in a new unverified user.
func (c *Client) CreateAccount(ctx context.Context, email, password string) (*User, error) {
	resp, err := c.svc.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}

	u := &User{
		UID:          resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		Expiry:       c.expiry(resp.ExpiresIn),
	}
	c.setUser(u)
	return u.clone(), nil
}

// SignIn signs in with a password. The returned user may be unverified.
func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	resp, err := c.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}

	u := &User{
		UID:          resp.LocalId,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		PhotoURL:     resp.PhotoUrl,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		Expiry:       c.expiry(resp.ExpiresIn),
	}
	if err := c.lookup(ctx, u); err != nil {
		return nil, err
	}
	c.setUser(u)
	return u.clone(), nil
}

// Reload refreshes the profile fields of the current user, notably
// EmailVerified.
func (c *Client) Reload(ctx context.Context) (*User, error) {
	if _, err := c.Token(); err != nil {
		return nil, err
	}
	u := c.CurrentUser()
	if u == nil {
		return nil, ErrNoUser
	}
	wasVerified := u.EmailVerified
	if err := c.lookup(ctx, u); err != nil {
		return nil, err
	}
	// The current ID token still claims an unverified email.
	if u.EmailVerified && !wasVerified {
		u.IDToken = ""
	}
	c.setUser(u)
	return u.clone(), nil
}

func (c *Client) SendEmailVerification(ctx context.Context) error {
	tok, err := c.Token()
	if err != nil {
		return err
	}
	_, err = c.svc.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: requestVerifyEmail,
		IdToken:     tok.AccessToken,
	}).Context(ctx).Do()
	return mapError(err)
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	_, err := c.svc.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: requestPasswordReset,
		Email:       email,
	}).Context(ctx).Do()
	return mapError(err)
}

// UpdateProfile sets the display name and photo URL of the current user.
// Empty values are left unchanged.
func (c *Client) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	tok, err := c.Token()
	if err != nil {
		return err
	}
	resp, err := c.svc.Relyingparty.SetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken:           tok.AccessToken,
		DisplayName:       displayName,
		PhotoUrl:          photoURL,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	if displayName != "" {
		c.user.DisplayName = displayName
	}
	if photoURL != "" {
		c.user.PhotoURL = photoURL
	}
	if resp.IdToken != "" {
		c.user.IDToken = resp.IdToken
		c.user.Expiry = c.expiry(resp.ExpiresIn)
	}
	if resp.RefreshToken != "" {
		c.user.RefreshToken = resp.RefreshToken
	}
	return nil
}

// DeleteAccount deletes the current user and signs out.
func (c *Client) DeleteAccount(ctx context.Context) error {
	tok, err := c.Token()
	if err != nil {
		return err
	}
	_, err = c.svc.Relyingparty.DeleteAccount(&identitytoolkit.IdentitytoolkitRelyingpartyDeleteAccountRequest{
		IdToken: tok.AccessToken,
	}).Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}
	c.setUser(nil)
	return nil
}

func (c *Client) SignOut(context.Context) error {
	c.setUser(nil)
	return nil
}

// Restore installs a user loaded from earlier credentials.
func (c *Client) Restore(u *User) {
	c.setUser(u.clone())
}

func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user.clone()
}

// OnAuthStateChanged calls fn with the current user now and after every
// sign-in, sign-out and reload. Listeners run on the caller's goroutine and
// may call back into the client.
func (c *Client) OnAuthStateChanged(fn func(*User)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	current := c.user.clone()
	c.mu.Unlock()

	fn(current)

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Token implements oauth2.TokenSource with the ID token as the access token,
// refreshing it through the secure token endpoint near expiry.
func (c *Client) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	u := c.user.clone()
	c.mu.Unlock()
	if u == nil {
		return nil, ErrNoUser
	}
	if u.IDToken != "" && u.Expiry.Sub(c.now()) > expiryMargin {
		return bearer(u.IDToken, u.Expiry), nil
	}

	ctx := context.Background()
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	tok, err := c.refreshConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: u.RefreshToken}).Token()
	if err != nil {
		return nil, mapError(err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		idToken = tok.AccessToken
	}

	c.mu.Lock()
	if c.user != nil && c.user.UID == u.UID {
		c.user.IDToken = idToken
		c.user.Expiry = tok.Expiry
		if tok.RefreshToken != "" {
			c.user.RefreshToken = tok.RefreshToken
		}
	}
	c.mu.Unlock()

	return bearer(idToken, tok.Expiry), nil
}

func (c *Client) refreshConfig() *oauth2.Config {
	return &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.tokenURL + "?key=" + url.QueryEscape(c.apiKey),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// lookup fills the account fields of u from its ID token.
func (c *Client) lookup(ctx context.Context, u *User) error {
	resp, err := c.svc.Relyingparty.GetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartyGetAccountInfoRequest{
		IdToken: u.IDToken,
	}).Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}
	if len(resp.Users) == 0 {
		return &Error{Code: CodeEmailNotFound, Message: CodeEmailNotFound}
	}

	info := resp.Users[0]
	u.Email = info.Email
	u.EmailVerified = info.EmailVerified
	u.DisplayName = info.DisplayName
	u.PhotoURL = info.PhotoUrl
	return nil
}

func (c *Client) setUser(u *User) {
	c.mu.Lock()
	c.user = u
	fns := make([]func(*User), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(u.clone())
	}
}

func (c *Client) expiry(expiresIn int64) time.Time {
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return c.now().Add(time.Duration(expiresIn) * time.Second)
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func bearer(idToken string, expiry time.Time) *oauth2.Token {
	return &oauth2.Token{AccessToken: idToken, TokenType: "Bearer", Expiry: expiry}
}
