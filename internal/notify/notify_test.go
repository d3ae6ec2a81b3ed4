package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnp-recruitment/internal/applicant/models"
)

type recordingSender struct {
	channel string
	content string
	err     error
}

func (s *recordingSender) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.channel, s.content = channelID, content
	if s.err != nil {
		return nil, s.err
	}
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

var applicant = models.Applicant{
	ApplicationID: "RNP-2024-0001",
	FirstName:     "Jean",
	LastName:      "Mugisha",
	Email:         "jean.m@example.com",
	Status:        models.StatusInvitedForExam,
}

func TestDiscordNotifier(t *testing.T) {
	sender := &recordingSender{}
	n := NewDiscordNotifierWithSender(sender, "chan-1")

	require.NoError(t, n.StatusChanged(context.Background(), applicant))
	assert.Equal(t, "chan-1", sender.channel)
	assert.Equal(t, "Application RNP-2024-0001 (Jean Mugisha) is now: Invited for Exam", sender.content)

	sender.err = errors.New("rate limited")
	assert.ErrorContains(t, n.StatusChanged(context.Background(), applicant), "rate limited")
}

func TestMultiJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	logN := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))
	failing := NewDiscordNotifierWithSender(&recordingSender{err: errors.New("down")}, "chan-1")

	err := Multi{logN, failing}.StatusChanged(context.Background(), applicant)
	assert.ErrorContains(t, err, "down")
	assert.Contains(t, buf.String(), "notification sent")
	assert.Contains(t, buf.String(), "RNP-2024-0001")
}
