package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"authservice/internal/models"
	"authservice/internal/repositories"
	"authservice/internal/services"
)

// Context keys set by AuthMiddleware.
const (
	CtxAccountID = "account_id"
	CtxRole      = "role"
)

type AccountLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

func abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, models.Payload{Status: false, Message: msg})
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// AuthMiddleware accepts a session credential only while its watermark is
// not older than the account's login_valid_from.
func AuthMiddleware(sessions services.SessionService, accounts AccountLoader, log *zap.Logger) gin.HandlerFunc {
	log = log.Named("auth")
	return func(c *gin.Context) {
		// preflight пропускаем
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}

		claims, err := sessions.Verify(token)
		if err != nil {
			log.Debug("session rejected", zap.Error(err))
			abort(c, http.StatusUnauthorized, "Invalid session")
			return
		}

		acc, err := accounts.GetByID(c.Request.Context(), claims.AccountID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				abort(c, http.StatusUnauthorized, "Invalid session")
				return
			}
			log.Error("account lookup failed", zap.Error(err))
			abort(c, http.StatusInternalServerError, "Something went wrong, please try again later")
			return
		}
		if err := sessions.Authorize(claims, acc); err != nil {
			abort(c, http.StatusUnauthorized, "Session expired, please sign in again")
			return
		}

		c.Set(CtxAccountID, acc.ID)
		c.Set(CtxRole, acc.Role)
		c.Next()
	}
}

// AccountID returns the authenticated account id set by AuthMiddleware.
func AccountID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxAccountID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
