package domain

import (
	"errors"
	"time"
)

const (
	Collection      = "profiles"
	AdminCollection = "admins"

	NicknameMinLength = 2
	NicknameMaxLength = 20
	PasswordMinLength = 6

	AvatarSizeLarge = 80
	AvatarSizeSmall = 35
)

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrInvalidNickname  = errors.New("nickname must be 2 to 20 characters")
	ErrNicknameRequired = errors.New("nickname is required")
	ErrNothingToUpdate  = errors.New("nickname or image is required")
	ErrInvalidEmail     = errors.New("email is not in the school domain")
	ErrWeakPassword     = errors.New("password must be at least 6 characters")
	ErrInvalidImage     = errors.New("invalid profile image")
)

// Profile is the public user record at profiles/{uid}.
type Profile struct {
	UID       string    `json:"uid" firestore:"uid"`
	Email     string    `json:"email" firestore:"email"`
	Nickname  string    `json:"nickname" firestore:"nickname"`
	AvatarURL string    `json:"avatar_url" firestore:"avatar_url"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
}

// Admin marks privilege by existence at admins/{email}.
type Admin struct {
	Email string `json:"email" firestore:"email"`
}

// AuthUser is the identity asserted by a verified ID token.
type AuthUser struct {
	UID           string
	Email         string
	EmailVerified bool
	DisplayName   string
	PhotoURL      string
}
