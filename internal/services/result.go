package services

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"authservice/internal/models"
)

const internalMessage = "Something went wrong, please try again later"

// resultGuard turns unexpected failures into an Internal result so that no
// account operation ever panics or leaks an error past its boundary.
type resultGuard struct {
	log   *zap.Logger
	debug bool
}

func (g resultGuard) internal(op string, err error) models.Result {
	g.log.Error("operation failed", zap.String("op", op), zap.Error(err))
	msg := internalMessage
	if g.debug {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return models.WithCode(http.StatusInternalServerError, false, msg, nil)
}

// recover must be deferred directly by the operation that owns res.
func (g resultGuard) recover(op string, res *models.Result) {
	if r := recover(); r != nil {
		*res = g.internal(op, fmt.Errorf("%w: panic: %v", ErrInternal, r))
	}
}

// tokenFailure answers a failed consume: invalid and expired are separate
// results, anything else is internal.
func (g resultGuard) tokenFailure(op string, err error) models.Result {
	switch {
	case errors.Is(err, ErrInvalidToken):
		return models.WithCode(models.StatusInvalidToken, false, "Invalid token", nil)
	case errors.Is(err, ErrTokenExpired):
		return models.WithCode(http.StatusGone, false, "Token expired", nil)
	default:
		return g.internal(op, err)
	}
}

var passwordTooLong = models.Fail("Password must not exceed 72 bytes")
