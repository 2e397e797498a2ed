package slack

import (
	"context"
	"errors"
	"testing"

	"mp3bot/m/v2/app/config"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
)

type fakePoster struct {
	channels []string
	options  int
	err      error
}

func (f *fakePoster) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.channels = append(f.channels, channelID)
	f.options += len(options)
	return channelID, "1720353600.000100", f.err
}

func TestNewAlerterRequiresTokenAndChannel(t *testing.T) {
	cfg := config.Defaults()
	assert.Nil(t, NewAlerter(cfg))

	cfg.SlackBotToken = "xoxb-test"
	assert.Nil(t, NewAlerter(cfg))

	cfg.SlackAlertsChannel = "C0123"
	assert.NotNil(t, NewAlerter(cfg))
}

func TestAlert(t *testing.T) {
	poster := &fakePoster{}
	alerter := &Alerter{client: poster, channel: "C0123", botName: "mp3bot"}

	assert.NoError(t, alerter.Alert(context.Background(), "Redis is down"))
	assert.Equal(t, []string{"C0123"}, poster.channels)
	assert.Equal(t, 1, poster.options)

	poster.err = errors.New("channel_not_found")
	assert.Error(t, alerter.Alert(context.Background(), "Redis is down"))
}
