package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"authservice/internal/authz"
)

func RequireRoles(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(CtxRole)
		if !exists {
			abort(c, http.StatusUnauthorized, "no role in context")
			return
		}
		role, _ := v.(string)
		if !authz.Allowed(role, allowed...) {
			abort(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Next()
	}
}
