package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageIDOrdersByTime(t *testing.T) {
	early := MessageID(time.Unix(9, 0), "zed")
	late := MessageID(time.Unix(10, 0), "amy")

	assert.Less(t, early, late)
	assert.Equal(t, "00000000010000000000_amy", late)
}

func TestValidMatchID(t *testing.T) {
	assert.True(t, ValidMatchID("m1"))
	assert.False(t, ValidMatchID(""))
	assert.False(t, ValidMatchID("  "))
	assert.False(t, ValidMatchID("m1/other"))
}

func TestCollection(t *testing.T) {
	assert.Equal(t, "match_chats/m1/messages", Collection("m1"))
}
