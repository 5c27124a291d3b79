package services

import (
	"errors"
	"net/http"

	"authservice/internal/models"
)

var (
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInternal          = errors.New("internal error")
)

// CodeFor maps an error kind to the status code a caller should answer with.
func CodeFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidToken):
		return models.StatusInvalidToken
	case errors.Is(err, ErrTokenExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
