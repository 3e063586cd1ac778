package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const MaxMessageLength = 120

var (
	ErrMessageTooLong = fmt.Errorf("message must be at most %d characters", MaxMessageLength)
	ErrInvalidMatchID = errors.New("invalid match id")
	ErrRateLimited    = errors.New("too many messages, slow down")
)

// Message is one chat line at match_chats/{matchId}/messages/{id}.
type Message struct {
	ID       string    `json:"id" firestore:"-"`
	MatchID  string    `json:"matchId" firestore:"matchId"`
	UID      string    `json:"uid" firestore:"uid"`
	Nickname string    `json:"nickname" firestore:"nickname"`
	Text     string    `json:"text" firestore:"text"`
	Time     time.Time `json:"time" firestore:"time"`
}

// Collection returns the message collection of a match.
func Collection(matchID string) string {
	return "match_chats/" + matchID + "/messages"
}

// MessageID sorts lexically in send order.
func MessageID(at time.Time, uid string) string {
	return fmt.Sprintf("%020d_%s", at.UnixNano(), uid)
}

func ValidMatchID(matchID string) bool {
	return strings.TrimSpace(matchID) != "" && !strings.Contains(matchID, "/")
}
