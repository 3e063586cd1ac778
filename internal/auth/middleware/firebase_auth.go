package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	authctx "github.com/hsp-league/league-backend/internal/auth"
)

// TokenVerifier verifies Firebase ID tokens. *auth.Client implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthMiddleware validates Firebase ID tokens and extracts user info
func FirebaseAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			c.Abort()
			return
		}

		decodedToken, err := verifier.VerifyIDToken(c.Request.Context(), token)
		if err != nil {
			slog.Debug("id token rejected", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		setUser(c, decodedToken, token)
		c.Next()
	}
}

// OptionalFirebaseAuth identifies the caller when a valid token is present
// and lets anonymous requests through otherwise.
func OptionalFirebaseAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if decodedToken, err := verifier.VerifyIDToken(c.Request.Context(), token); err == nil {
				setUser(c, decodedToken, token)
			}
		}
		c.Next()
	}
}

// AdminChecker reports admin privilege for an email.
type AdminChecker interface {
	IsAdmin(ctx context.Context, email string) (bool, error)
}

// RequireAdmin checks the admin allowlist on every request.
func RequireAdmin(admins AdminChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := admins.IsAdmin(c.Request.Context(), authctx.UserEmail(c))
		if err != nil {
			slog.Error("admin check failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "admin check failed"})
			c.Abort()
			return
		}
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin privilege required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func setUser(c *gin.Context, decodedToken *auth.Token, raw string) {
	// Store user info in context
	c.Set(authctx.CtxFirebaseUID, decodedToken.UID)

	// Extract email from claims if available
	if email, ok := decodedToken.Claims["email"].(string); ok {
		c.Set(authctx.CtxEmail, email)
	}
	verified, _ := decodedToken.Claims["email_verified"].(bool)
	c.Set(authctx.CtxEmailVerified, verified)

	// Store the full token for access to other claims if needed
	c.Set(authctx.CtxFirebaseToken, decodedToken)
	c.Set(authctx.CtxIDToken, raw)
}

// RequireVerifiedEmail rejects callers whose email is not verified.
func RequireVerifiedEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authctx.UserEmailVerified(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "email verification required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header.
// SSE clients that cannot set headers may pass it as access_token.
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return strings.TrimSpace(c.Query("access_token"))
}
