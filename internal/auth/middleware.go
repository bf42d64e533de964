package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextUserKey is where Middleware stores the verified user.
const ContextUserKey = "auth_user"

// Middleware rejects requests without a valid bearer token. A nil verifier
// disables auth (no secret configured).
func Middleware(v *JWTVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v == nil {
			c.Next()
			return
		}
		user, err := v.UserFromRequest(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// UserFrom returns the verified user stored by Middleware, if any.
func UserFrom(c *gin.Context) (*User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*User)
	return u, ok
}
