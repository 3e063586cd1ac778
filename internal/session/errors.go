package session

import (
	"errors"
	"net/http"

	"github.com/hsp-league/league-backend/internal/client"
	"github.com/hsp-league/league-backend/internal/identity"
	profiledomain "github.com/hsp-league/league-backend/internal/profiles/domain"
)

var (
	ErrCredentialsRequired       = errors.New("email and password are required")
	ErrLoginRequired             = errors.New("login required")
	ErrEmailVerificationRequired = errors.New("email verification required")
	ErrEmailNotVerifiedYet       = errors.New("email not verified yet")
	ErrTempDataMissing           = errors.New("no pending sign-up")
	ErrSignupUnrecoverable       = errors.New("pending sign-up could not be signed in")
	ErrSignupPending             = errors.New("a sign-up is already waiting for verification")
)

const (
	msgInvalidEmailDomain   = "한일고 이메일(@hanilgo.cnehs.kr)만 가입할 수 있습니다."
	msgNicknameRequired     = "닉네임을 입력해주세요."
	msgNicknameLength       = "닉네임은 2자 이상 20자 이하로 입력해주세요."
	msgCredentialsRequired  = "이메일과 비밀번호를 입력해주세요."
	msgLoginRequired        = "로그인이 필요합니다."
	msgVerificationRequired = "이메일 인증이 완료되지 않았습니다. 메일함을 확인해주세요."
	msgTempDataMissing      = "임시 사용자 데이터가 없습니다."
	msgUnknown              = "알 수 없는 오류가 발생했습니다."
	msgNotVerifiedYet       = "이메일 인증이 아직 완료되지 않았습니다.\n메일함에서 인증 링크를 클릭한 후 다시 시도해주세요."
	msgSignupUnrecoverable  = "회원가입 정보를 확인할 수 없습니다. 처음부터 다시 시도해주세요."
	msgSignupPending        = "이메일 인증을 기다리는 가입 정보가 있습니다. 인증을 완료하거나 로그아웃 후 다시 시도해주세요."
	msgNothingToUpdate      = "닉네임 또는 프로필 이미지를 입력해주세요."
	msgInvalidImage         = "사용할 수 없는 프로필 이미지입니다."

	msgEmailExists     = "이미 사용 중인 이메일입니다."
	msgWeakPassword    = "비밀번호가 너무 약합니다. 6자 이상 입력해주세요."
	msgInvalidEmail    = "유효하지 않은 이메일 주소입니다."
	msgUserNotFound    = "존재하지 않는 사용자입니다."
	msgWrongPassword   = "비밀번호가 올바르지 않습니다."
	msgTooManyRequests = "너무 많은 요청입니다. 잠시 후 다시 시도해주세요."
	msgNetworkFailed   = "네트워크 오류가 발생했습니다. 인터넷 연결을 확인해주세요."
)

var sentinelMessages = []struct {
	err error
	msg string
}{
	{ErrCredentialsRequired, msgCredentialsRequired},
	{ErrLoginRequired, msgLoginRequired},
	{identity.ErrNoUser, msgLoginRequired},
	{ErrEmailVerificationRequired, msgVerificationRequired},
	{ErrEmailNotVerifiedYet, msgNotVerifiedYet},
	{ErrTempDataMissing, msgTempDataMissing},
	{ErrSignupUnrecoverable, msgSignupUnrecoverable},
	{ErrSignupPending, msgSignupPending},
	{profiledomain.ErrInvalidEmail, msgInvalidEmailDomain},
	{profiledomain.ErrNicknameRequired, msgNicknameRequired},
	{profiledomain.ErrInvalidNickname, msgNicknameLength},
	{profiledomain.ErrWeakPassword, msgWeakPassword},
	{profiledomain.ErrNothingToUpdate, msgNothingToUpdate},
	{profiledomain.ErrInvalidImage, msgInvalidImage},
	{identity.ErrNetwork, msgNetworkFailed},
}

var providerMessages = map[string]string{
	identity.CodeEmailExists:             msgEmailExists,
	identity.CodeWeakPassword:            msgWeakPassword,
	identity.CodeInvalidEmail:            msgInvalidEmail,
	identity.CodeEmailNotFound:           msgUserNotFound,
	identity.CodeInvalidPassword:         msgWrongPassword,
	identity.CodeInvalidLoginCredentials: msgWrongPassword,
	identity.CodeTooManyAttempts:         msgTooManyRequests,
}

// Message returns the user-facing text for err. API rejections keep the
// server's text; anything else unmapped gets the unknown-error text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range sentinelMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	var perr *identity.Error
	if errors.As(err, &perr) {
		if msg, ok := providerMessages[perr.Code]; ok {
			return msg
		}
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return msgLoginRequired
		case apiErr.Status == http.StatusTooManyRequests:
			return msgTooManyRequests
		case apiErr.Message != "":
			return apiErr.Message
		}
	}
	return msgUnknown
}
