package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	cases := []struct {
		email string
		ok    bool
	}{
		{"student@hanilgo.cnehs.kr", true},
		{"a.b-c@hanilgo.cnehs.kr", true},
		{"student@gmail.com", false},
		{"@hanilgo.cnehs.kr", false},
		{"st udent@hanilgo.cnehs.kr", false},
		{"x@y@hanilgo.cnehs.kr", false},
		{"student@hanilgoxcnehs.kr", false},
	}
	for _, tc := range cases {
		t.Run(tc.email, func(t *testing.T) {
			err := ValidateEmail(tc.email, "")
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidEmail)
			}
		})
	}

	assert.NoError(t, ValidateEmail("coach@example.org", "@example.org"))
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("12345"), ErrWeakPassword)
	assert.NoError(t, ValidatePassword("123456"))
}

func TestNormalizeNickname(t *testing.T) {
	n, err := NormalizeNickname("  민수  ")
	require.NoError(t, err)
	assert.Equal(t, "민수", n)

	_, err = NormalizeNickname("   ")
	assert.ErrorIs(t, err, ErrNicknameRequired)

	_, err = NormalizeNickname("a")
	assert.ErrorIs(t, err, ErrInvalidNickname)

	_, err = NormalizeNickname("가나다라마바사아자차카타파하가나다라마바사")
	assert.ErrorIs(t, err, ErrInvalidNickname)

	n, err = NormalizeNickname("가나다라마바사아자차카타파하가나다라마바")
	require.NoError(t, err)
	assert.Len(t, []rune(n), 20)
}

func TestAvatarURL(t *testing.T) {
	got := AvatarURL("", "Kim Min", AvatarSizeLarge)
	assert.Equal(t, "https://ui-avatars.com/api/?name=Kim%20Min&background=667eea&color=fff&size=80&bold=true", got)

	got = AvatarURL("http://avatars.local/", "a&b", AvatarSizeSmall)
	assert.Equal(t, "http://avatars.local/?name=a%26b&background=667eea&color=fff&size=35&bold=true", got)
}

func TestEmailLocalPart(t *testing.T) {
	assert.Equal(t, "student", EmailLocalPart("student@hanilgo.cnehs.kr"))
	assert.Equal(t, "plain", EmailLocalPart("plain"))
}
