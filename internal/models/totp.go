package models

import (
	"time"

	"github.com/google/uuid"
)

// TOTPSecret is an authenticator-app secret, stored apart from the account row.
type TOTPSecret struct {
	AccountID uuid.UUID `json:"-"`
	Secret    string    `json:"-"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

type TOTPProvisioning struct {
	URL    string `json:"url"`
	QRCode string `json:"qr_code"` // data:image/png;base64,...
}
