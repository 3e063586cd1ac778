package identity

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Provider error codes returned by the Identity Toolkit.
const (
	CodeEmailExists             = "EMAIL_EXISTS"
	CodeWeakPassword            = "WEAK_PASSWORD"
	CodeInvalidEmail            = "INVALID_EMAIL"
	CodeEmailNotFound           = "EMAIL_NOT_FOUND"
	CodeInvalidPassword         = "INVALID_PASSWORD"
	CodeInvalidLoginCredentials = "INVALID_LOGIN_CREDENTIALS"
	CodeTooManyAttempts         = "TOO_MANY_ATTEMPTS_TRY_LATER"
	CodeTokenExpired            = "TOKEN_EXPIRED"
)

var (
	ErrNoUser  = errors.New("no signed-in user")
	ErrNetwork = errors.New("network request failed")
)

// Error is a provider rejection carrying its error code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return "identity: " + e.Message
}

// HasCode reports whether err is a provider error with code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &Error{Code: errorCode(gerr.Message), Message: gerr.Message}
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		code := rerr.ErrorCode
		if code == "" {
			code = CodeTokenExpired
		}
		return &Error{Code: code, Message: rerr.Error()}
	}

	var uerr *url.Error
	var nerr net.Error
	if errors.As(err, &uerr) || errors.As(err, &nerr) {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return err
}

// errorCode strips the detail the API appends, as in
// "WEAK_PASSWORD : Password should be at least 6 characters".
func errorCode(message string) string {
	if i := strings.IndexAny(message, " :"); i > 0 {
		return message[:i]
	}
	return message
}
