package domain

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const DefaultEmailDomain = "@hanilgo.cnehs.kr"

// ValidateEmail accepts only addresses of the form local@domain with no
// whitespace in the local part.
func ValidateEmail(email, domain string) error {
	if domain == "" {
		domain = DefaultEmailDomain
	}
	pattern := `^[^\s@]+` + regexp.QuoteMeta(domain) + `$`
	if !regexp.MustCompile(pattern).MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < PasswordMinLength {
		return ErrWeakPassword
	}
	return nil
}

// NormalizeNickname trims the nickname and checks its length in characters.
func NormalizeNickname(nickname string) (string, error) {
	n := strings.TrimSpace(nickname)
	if n == "" {
		return "", ErrNicknameRequired
	}
	if l := utf8.RuneCountInString(n); l < NicknameMinLength || l > NicknameMaxLength {
		return "", ErrInvalidNickname
	}
	return n, nil
}

// EmailLocalPart returns the part before '@'.
func EmailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}

// AvatarURL builds the generated-avatar endpoint URL for name.
func AvatarURL(base, name string, size int) string {
	if base == "" {
		base = "https://ui-avatars.com/api/"
	}
	// encodeURIComponent style: spaces as %20.
	escaped := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return base + "?name=" + escaped + "&background=667eea&color=fff&size=" + strconv.Itoa(size) + "&bold=true"
}
