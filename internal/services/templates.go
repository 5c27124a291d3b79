package services

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"authservice/internal/models"
)

// Templates renders the messages the account flows send out.
type Templates struct {
	AppName string
	BaseURL string
}

func NewTemplates(appName, baseURL string) Templates {
	if appName == "" {
		appName = "authservice"
	}
	return Templates{AppName: appName, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (t Templates) verifyLink(email, token string) string {
	q := url.Values{"token": {token}, "email": {email}}
	return t.BaseURL + "/verify?" + q.Encode()
}

func (t Templates) resetLink(token string) string {
	return t.BaseURL + "/reset-password?" + url.Values{"token": {token}}.Encode()
}

func (t Templates) Welcome(email, name, token string) models.Notification {
	if name == "" {
		name = email
	}
	link := t.verifyLink(email, token)
	return models.Notification{
		Channel: models.ChannelEmail,
		To:      email,
		Subject: fmt.Sprintf("Welcome to %s!", t.AppName),
		Text: fmt.Sprintf("Hi %s,\n\nthanks for signing up for %s. Confirm your email address here:\n%s\n",
			name, t.AppName, link),
		HTML: fmt.Sprintf(`
		<h2>Welcome to %s, %s!</h2>
		<p>Thank you for registering with us. Please confirm your email address.</p>
		<p><a href="%s">Verify my email</a></p>
		<p>Best regards,<br>The %s Team</p>
	`, html.EscapeString(t.AppName), html.EscapeString(name), html.EscapeString(link), html.EscapeString(t.AppName)),
	}
}

func (t Templates) VerifyEmail(email, token string) models.Notification {
	link := t.verifyLink(email, token)
	return models.Notification{
		Channel: models.ChannelEmail,
		To:      email,
		Subject: "Verify your email address",
		Text:    fmt.Sprintf("Confirm your email address here:\n%s\n", link),
		HTML: fmt.Sprintf(`
		<h3>Email verification</h3>
		<p>Follow the link below to verify your email address.</p>
		<p><a href="%s">Verify my email</a></p>
		<p>If you did not create an account, you can ignore this email.</p>
	`, html.EscapeString(link)),
	}
}

func (t Templates) ResetPassword(email, token string) models.Notification {
	link := t.resetLink(token)
	return models.Notification{
		Channel: models.ChannelEmail,
		To:      email,
		Subject: "Password reset request",
		Text:    fmt.Sprintf("Reset your password here:\n%s\n\nIf you did not request this change, ignore this email.\n", link),
		HTML: fmt.Sprintf(`
		<h3>Password reset requested</h3>
		<p>We received a request to reset the password for your account.</p>
		<p><a href="%s">Reset my password</a></p>
		<p>If you did not request this change, you can ignore this email.</p>
	`, html.EscapeString(link)),
	}
}

func (t Templates) VerifyPhone(phone, code string) models.Notification {
	return models.Notification{
		Channel: models.ChannelSMS,
		To:      phone,
		Text:    fmt.Sprintf("%s: your verification code is %s", t.AppName, code),
	}
}
