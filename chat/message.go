package chat

import (
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// User identifies the sender of a chat line.
type User struct {
	ID          string
	Login       string
	DisplayName string
}

// Name returns the display name, falling back to the login.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Login
}

// Message is one inbound chat line.
type Message struct {
	Channel    string
	User       User
	Text       string
	Self       bool
	ReceivedAt time.Time
}

func fromPrivateMessage(pm twitch.PrivateMessage, botLogin string, now time.Time) Message {
	received := pm.Time
	if received.IsZero() {
		received = now
	}
	return Message{
		Channel: pm.Channel,
		User: User{
			ID:          pm.User.ID,
			Login:       pm.User.Name,
			DisplayName: pm.User.DisplayName,
		},
		Text:       pm.Message,
		Self:       botLogin != "" && strings.EqualFold(pm.User.Name, botLogin),
		ReceivedAt: received.UTC(),
	}
}
