package models

import (
	"time"

	"github.com/google/uuid"
)

// Purpose scopes which flow may consume a token.
type Purpose string

const (
	PurposeVerify Purpose = "verify"
	PurposePhone  Purpose = "verify_phone"
	PurposeReset  Purpose = "reset"
	PurposeUpdate Purpose = "update"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeVerify, PurposePhone, PurposeReset, PurposeUpdate:
		return true
	}
	return false
}

// Medium is the channel a token was delivered over.
type Medium string

const (
	MediumEmail Medium = "email"
	MediumSMS   Medium = "sms"
	MediumAny   Medium = "any"
)

// Token is a single-use, purpose-scoped secret. Value is only ever sent
// out-of-band and is never serialized.
type Token struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Value     string    `json:"-"`
	Purpose   Purpose   `json:"purpose"`
	Medium    Medium    `json:"medium"`
	Active    bool      `json:"active"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
