package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Account struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Username      string    `json:"username,omitempty"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	OtherNames    string    `json:"other_names,omitempty"`
	Avatar        string    `json:"avatar,omitempty"`
	Location      string    `json:"location,omitempty"`
	PasswordHash  string    `json:"-"` // не отдаём наружу
	EmailVerified bool      `json:"email_verified"`
	PhoneVerified bool      `json:"phone_verified"`
	Active        bool      `json:"active"`
	Deleted       bool      `json:"deleted"`
	Role          string    `json:"role"`
	Permissions   []string  `json:"permissions"`

	// sessions signed before this instant are rejected
	LoginValidFrom time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountFields is the caller-controlled part of a new account.
type AccountFields struct {
	Email      string
	Phone      string
	Username   string
	FirstName  string
	LastName   string
	OtherNames string
	Avatar     string
	Location   string
}

// NewAccount builds a ready-to-insert account: id, defaults, role and the
// session watermark are all set here, nothing is filled in after insert.
func NewAccount(f AccountFields, passwordHash string, now time.Time) *Account {
	now = Watermark(now)
	return &Account{
		ID:             uuid.New(),
		Email:          strings.ToLower(strings.TrimSpace(f.Email)),
		Phone:          strings.TrimSpace(f.Phone),
		Username:       strings.TrimSpace(f.Username),
		FirstName:      f.FirstName,
		LastName:       f.LastName,
		OtherNames:     f.OtherNames,
		Avatar:         f.Avatar,
		Location:       f.Location,
		PasswordHash:   passwordHash,
		Active:         true,
		Role:           RoleUser,
		Permissions:    []string{},
		LoginValidFrom: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Watermark truncates t to the millisecond precision carried by session credentials.
func Watermark(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Profile is what leaves the service about an account.
type Profile struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	Username      string    `json:"username,omitempty"`
	FirstName     string    `json:"first_name,omitempty"`
	LastName      string    `json:"last_name,omitempty"`
	OtherNames    string    `json:"other_names,omitempty"`
	Avatar        string    `json:"avatar,omitempty"`
	Location      string    `json:"location,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	PhoneVerified bool      `json:"phone_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (a *Account) Profile() Profile {
	return Profile{
		ID:            a.ID,
		Email:         a.Email,
		Phone:         a.Phone,
		Username:      a.Username,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		OtherNames:    a.OtherNames,
		Avatar:        a.Avatar,
		Location:      a.Location,
		EmailVerified: a.EmailVerified,
		PhoneVerified: a.PhoneVerified,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// ProfileUpdate carries editable profile fields; nil means "leave as is".
type ProfileUpdate struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	OtherNames *string `json:"other_names"`
	Avatar     *string `json:"avatar"`
	Location   *string `json:"location"`
}

func (u ProfileUpdate) Apply(a *Account) {
	if u.FirstName != nil {
		a.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		a.LastName = *u.LastName
	}
	if u.OtherNames != nil {
		a.OtherNames = *u.OtherNames
	}
	if u.Avatar != nil {
		a.Avatar = *u.Avatar
	}
	if u.Location != nil {
		a.Location = *u.Location
	}
}

// Identifier names a unique login column.
type Identifier string

const (
	IdentifierEmail    Identifier = "email"
	IdentifierPhone    Identifier = "phone"
	IdentifierUsername Identifier = "username"
)

// AccountFilter drives the admin listing.
type AccountFilter struct {
	Name          string
	Email         string
	Phone         string
	Role          string
	EmailVerified *bool
	PhoneVerified *bool
	Active        *bool
	Deleted       *bool
	Page          int
	PageSize      int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps paging to sane bounds.
func (f *AccountFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

func (f AccountFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
