package domain

import (
	"errors"
	"time"
)

const Collection = "user_points"

const (
	StrategyAtomic          = "atomic"
	StrategyReadModifyWrite = "read_modify_write"
)

var (
	ErrEntryNotFound = errors.New("ledger entry not found")
	ErrInvalidAmount = errors.New("credit amount must be positive")
	ErrMissingUID    = errors.New("uid is required")
)

// LedgerEntry is the per-user points balance at user_points/{uid}.
type LedgerEntry struct {
	UID         string    `json:"uid" firestore:"uid"`
	Points      int64     `json:"points" firestore:"points"`
	LastUpdated time.Time `json:"lastUpdated,omitempty" firestore:"lastUpdated,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty" firestore:"created_at,omitempty"`
}

// CreditResult reports the balance after a credit and the strategy that
// produced it.
type CreditResult struct {
	UID      string `json:"uid"`
	Points   int64  `json:"points"`
	Strategy string `json:"strategy"`
}

type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UID       string `json:"uid"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Points    int64  `json:"points"`
}
