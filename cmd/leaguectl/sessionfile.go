package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hsp-league/league-backend/internal/identity"
	"github.com/hsp-league/league-backend/internal/session"
)

// sessionFile is what leaguectl keeps between invocations. Passwords are
// never written.
type sessionFile struct {
	UID           string                 `json:"uid,omitempty"`
	Email         string                 `json:"email,omitempty"`
	EmailVerified bool                   `json:"email_verified,omitempty"`
	RefreshToken  string                 `json:"refresh_token,omitempty"`
	Pending       *session.PendingSignup `json:"pending,omitempty"`
	Page          int                    `json:"page,omitempty"`
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".leaguectl", "session.json")
	}
	return filepath.Join(home, ".leaguectl", "session.json")
}

func loadSessionFile(path string) (*sessionFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &sessionFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var f sessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return &f, nil
}

func (f *sessionFile) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, path)
}

// user returns the stored credentials, or nil when signed out.
func (f *sessionFile) user() *identity.User {
	if f.RefreshToken == "" {
		return nil
	}
	return &identity.User{
		UID:           f.UID,
		Email:         f.Email,
		EmailVerified: f.EmailVerified,
		RefreshToken:  f.RefreshToken,
	}
}

func (f *sessionFile) setUser(u *identity.User) {
	if u == nil {
		f.UID, f.Email, f.EmailVerified, f.RefreshToken = "", "", false, ""
		return
	}
	f.UID, f.Email, f.EmailVerified, f.RefreshToken = u.UID, u.Email, u.EmailVerified, u.RefreshToken
}
