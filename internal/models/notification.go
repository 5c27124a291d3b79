package models

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelTelegram Channel = "telegram"
)

// Notification is one outbound message handed to the dispatcher.
type Notification struct {
	Channel Channel
	To      string
	Subject string
	Text    string
	HTML    string
}
