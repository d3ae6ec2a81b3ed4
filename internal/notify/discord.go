package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"rnp-recruitment/internal/applicant/models"
)

// ChannelSender is the part of a discord session the notifier uses.
type ChannelSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts status changes to a staff channel.
type DiscordNotifier struct {
	sender    ChannelSender
	channelID string
}

// NewDiscordNotifier creates a REST-only bot session. No gateway connection is
// opened since the notifier never listens for events.
func NewDiscordNotifier(botToken, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return NewDiscordNotifierWithSender(session, channelID), nil
}

func NewDiscordNotifierWithSender(sender ChannelSender, channelID string) *DiscordNotifier {
	return &DiscordNotifier{sender: sender, channelID: channelID}
}

func (n *DiscordNotifier) StatusChanged(ctx context.Context, a models.Applicant) error {
	if _, err := n.sender.ChannelMessageSend(n.channelID, Message(a), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("post discord notification: %w", err)
	}
	return nil
}
