package twitch

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gempir/go-twitch-irc/v4"
	"github.com/john/modwatch/internal/message"
)

// Connector manages Twitch chat connections
type Connector struct {
	username string
	oauth    string
	channels []string
	client   *twitch.Client
}

// New creates a new Twitch connector
func New(username, oauth string, channels []string) *Connector {
	return &Connector{
		username: username,
		oauth:    oauth,
		channels: channels,
	}
}

// Start begins listening to Twitch chat
func (c *Connector) Start(ctx context.Context, messageChan chan<- message.Message) error {
	c.client = twitch.NewClient(c.username, c.oauth)

	// The IRC server does not reliably echo the bot's own messages, so the
	// Self flag is computed from the sender login rather than a protocol bit.
	botLogin := strings.ToLower(c.username)

	c.client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		chatMessage := message.Message{
			Platform:  "twitch",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Channel:   strings.TrimPrefix(msg.Channel, "#"),
			Username:  msg.User.DisplayName,
			UserID:    msg.User.ID,
			Text:      msg.Message,
			Badges:    formatBadges(msg.User.Badges),
			Self:      strings.ToLower(msg.User.Name) == botLogin,
		}

		select {
		case messageChan <- chatMessage:
		case <-ctx.Done():
			return
		}
	})

	c.client.OnConnect(func() {
		log.Println("Connected to Twitch IRC")
	})

	c.client.OnReconnectMessage(func(msg twitch.ReconnectMessage) {
		log.Println("Reconnecting to Twitch IRC...")
	})

	for _, channel := range c.channels {
		c.client.Join(channel)
		log.Printf("Joined channel: %s", channel)
	}

	go func() {
		if err := c.client.Connect(); err != nil {
			log.Printf("Twitch IRC connection error: %v", err)
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	log.Println("Disconnecting from Twitch IRC...")
	c.client.Disconnect()

	return ctx.Err()
}

// formatBadges converts the badges map to a comma-separated string
func formatBadges(badges map[string]int) string {
	if len(badges) == 0 {
		return ""
	}

	var parts []string
	for badge := range badges {
		parts = append(parts, badge)
	}

	return strings.Join(parts, ",")
}
