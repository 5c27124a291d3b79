package models

type SignUpRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone" binding:"omitempty,e164"`
	Username   string `json:"username" binding:"omitempty,min=3,max=32,alphanum"`
	Password   string `json:"password" binding:"required,min=8,pwbytes"`
	FirstName  string `json:"first_name" binding:"max=64"`
	LastName   string `json:"last_name" binding:"max=64"`
	OtherNames string `json:"other_names" binding:"max=128"`
	Avatar     string `json:"avatar" binding:"omitempty,url"`
	Location   string `json:"location" binding:"max=128"`
}

func (r SignUpRequest) Fields() AccountFields {
	return AccountFields{
		Email:      r.Email,
		Phone:      r.Phone,
		Username:   r.Username,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		OtherNames: r.OtherNames,
		Avatar:     r.Avatar,
		Location:   r.Location,
	}
}

// LoginRequest: User is an email, phone number or username.
type LoginRequest struct {
	User     string `json:"user" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SignInData struct {
	Token   string  `json:"token"`
	Profile Profile `json:"profile"`
}

// VerifyAccountRequest comes from the email link query string.
type VerifyAccountRequest struct {
	Token  string `form:"token"`
	Email  string `form:"email" binding:"required,email"`
	Resend bool   `form:"resend"`
}

type InitiateResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token              string `json:"token" binding:"required"`
	Password           string `json:"password" binding:"required,min=8,pwbytes"`
	LogOtherDevicesOut bool   `json:"logOtherDevicesOut"`
}

type ChangePasswordRequest struct {
	OldPassword        string `json:"oldPassword" binding:"required"`
	NewPassword        string `json:"newPassword" binding:"required,min=8,pwbytes"`
	LogOtherDevicesOut bool   `json:"logOtherDevicesOut"`
}

type VerifyPhoneRequest struct {
	Token string `json:"token"`
}

type TOTPCodeRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

// SessionData is returned whenever a fresh session credential is minted.
type SessionData struct {
	Token string `json:"token"`
}
