package domain

import (
	"errors"
	"time"
)

const (
	Collection     = "matches"
	VoteCollection = "votes"
	TeamCollection = "teams"

	DefaultPerPage = 5
)

const (
	StatusScheduled = "scheduled"
	StatusFinished  = "finished"
	StatusCancelled = "cancelled"
)

// Vote types double as admin results.
const (
	HomeWin = "homeWin"
	Draw    = "draw"
	AwayWin = "awayWin"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchExists       = errors.New("match already exists")
	ErrInvalidMatch      = errors.New("invalid match")
	ErrInvalidVoteType   = errors.New("vote type must be homeWin, draw or awayWin")
	ErrNotAdmin          = errors.New("admin privilege required")
	ErrMatchNotFinished  = errors.New("match is not finished")
	ErrResultAlreadySet  = errors.New("match result already set")
	ErrMatchNotScheduled = errors.New("match is not scheduled")
)

// Lineup lists player names by school year.
type Lineup struct {
	First  []string `json:"first" firestore:"first" yaml:"first"`
	Second []string `json:"second" firestore:"second" yaml:"second"`
	Third  []string `json:"third" firestore:"third" yaml:"third"`
}

func (l Lineup) Empty() bool {
	return len(l.First) == 0 && len(l.Second) == 0 && len(l.Third) == 0
}

type Lineups struct {
	Home Lineup `json:"home" firestore:"home" yaml:"home"`
	Away Lineup `json:"away" firestore:"away" yaml:"away"`
}

// Match is stored at matches/{id}.
type Match struct {
	ID          string     `json:"id" firestore:"id" yaml:"id"`
	Date        string     `json:"date" firestore:"date" yaml:"date"`
	League      string     `json:"league" firestore:"league" yaml:"league"`
	HomeTeam    string     `json:"homeTeam" firestore:"homeTeam" yaml:"homeTeam"`
	AwayTeam    string     `json:"awayTeam" firestore:"awayTeam" yaml:"awayTeam"`
	HomeScore   int        `json:"homeScore" firestore:"homeScore" yaml:"homeScore"`
	AwayScore   int        `json:"awayScore" firestore:"awayScore" yaml:"awayScore"`
	Status      string     `json:"status" firestore:"status" yaml:"status"`
	AdminResult string     `json:"adminResult,omitempty" firestore:"adminResult,omitempty" yaml:"adminResult,omitempty"`
	KickoffAt   *time.Time `json:"kickoffAt,omitempty" firestore:"kickoffAt,omitempty" yaml:"kickoffAt,omitempty"`
	Lineups     *Lineups   `json:"lineups,omitempty" firestore:"lineups,omitempty" yaml:"lineups,omitempty"`
}

// Team is stored at teams/{name}.
type Team struct {
	Name    string `json:"name" firestore:"name"`
	Lineups Lineup `json:"lineups" firestore:"lineups"`
}

// Vote is stored at votes/{matchId}_{uid}.
type Vote struct {
	MatchID  string    `json:"matchId" firestore:"matchId"`
	UID      string    `json:"uid" firestore:"uid"`
	VoteType string    `json:"voteType" firestore:"voteType"`
	VotedAt  time.Time `json:"votedAt" firestore:"votedAt"`
}

func VoteID(matchID, uid string) string {
	return matchID + "_" + uid
}

func ValidVoteType(t string) bool {
	switch t {
	case HomeWin, Draw, AwayWin:
		return true
	}
	return false
}

// Page is one page of the match list.
type Page struct {
	Matches    []Match `json:"matches"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	TotalPages int     `json:"total_pages"`
	HasPrev    bool    `json:"has_prev"`
	HasNext    bool    `json:"has_next"`
}

// Outcome reports what a result-set call credited.
type Outcome struct {
	MatchID  string   `json:"match_id"`
	Result   string   `json:"result"`
	Reward   int64    `json:"reward"`
	Winners  []string `json:"winners"`
	Credited []string `json:"credited"`
	Failed   []string `json:"failed"`
}
