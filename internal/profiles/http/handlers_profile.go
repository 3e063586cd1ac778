package http

import (
	"errors"
	"log/slog"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	authctx "github.com/hsp-league/league-backend/internal/auth"
	"github.com/hsp-league/league-backend/internal/profiles/domain"
	"github.com/hsp-league/league-backend/internal/profiles/service"
	"github.com/hsp-league/league-backend/internal/storage/objectstore"
)

// GetMe returns the caller's profile, balance and admin flag. The profile
// and ledger entry are created on first access.
func (h *Handler) GetMe(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}
	ctx := c.Request.Context()

	profile, err := h.profiles.Ensure(ctx, user)
	if err != nil {
		slog.Error("load profile failed", "uid", user.UID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	points, err := h.points.GetPoints(ctx, user.UID)
	if err != nil {
		slog.Error("load points failed", "uid", user.UID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load points"})
		return
	}

	isAdmin, err := h.profiles.IsAdmin(ctx, user.Email)
	if err != nil {
		slog.Warn("admin check failed", "uid", user.UID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":        profile,
		"points":         points,
		"is_admin":       isAdmin,
		"email_verified": user.EmailVerified,
	})
}

// CompleteProfile stores the sign-up profile once the email is verified.
func (h *Handler) CompleteProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req struct {
		Nickname  string `json:"nickname"`
		AvatarURL string `json:"avatar_url,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	profile, created, err := h.profiles.Complete(c.Request.Context(), user, req.Nickname, req.AvatarURL)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"profile": profile, "created": created})
}

func (h *Handler) UpdateNickname(c *gin.Context) {
	uid := authctx.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req struct {
		Nickname string `json:"nickname"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	profile, err := h.profiles.UpdateNickname(c.Request.Context(), uid, req.Nickname)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UpdateAvatar accepts a multipart "image" file.
func (h *Handler) UpdateAvatar(c *gin.Context) {
	uid := authctx.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
		return
	}
	defer f.Close()

	body, err := objectstore.ReadLimited(f, service.MaxImageBytes)
	if err != nil {
		if errors.Is(err, objectstore.ErrTooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read image"})
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(body)
	}

	profile, err := h.profiles.UpdateAvatar(c.Request.Context(), uid, fh.Filename, contentType, body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func currentUser(c *gin.Context) (domain.AuthUser, bool) {
	uid := authctx.UserFirebaseUID(c)
	if uid == "" {
		return domain.AuthUser{}, false
	}
	user := domain.AuthUser{
		UID:           uid,
		Email:         authctx.UserEmail(c),
		EmailVerified: authctx.UserEmailVerified(c),
	}
	if v, ok := c.Get(authctx.CtxFirebaseToken); ok {
		if token, ok := v.(*auth.Token); ok {
			user.DisplayName, _ = token.Claims["name"].(string)
			user.PhotoURL, _ = token.Claims["picture"].(string)
		}
	}
	return user, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidNickname),
		errors.Is(err, domain.ErrNicknameRequired),
		errors.Is(err, domain.ErrNothingToUpdate),
		errors.Is(err, domain.ErrInvalidImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
	case errors.Is(err, objectstore.ErrDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		slog.Error("profile request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
	}
}
