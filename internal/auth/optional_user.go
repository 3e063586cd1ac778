package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// DevUser trusts identity headers instead of ID tokens.
// - X-User-Id is the uid (defaults to "demo-user")
// - X-User-Email is the email (defaults to "{uid}@hanilgo.cnehs.kr")
// - The email always counts as verified
// Use this ONLY for local development without Firebase credentials.
func DevUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if uid == "" {
			uid = "demo-user"
		}
		email := strings.TrimSpace(c.GetHeader("X-User-Email"))
		if email == "" {
			email = uid + "@hanilgo.cnehs.kr"
		}

		c.Set(CtxFirebaseUID, uid)
		c.Set(CtxEmail, email)
		c.Set(CtxEmailVerified, true)

		c.Next()
	}
}
