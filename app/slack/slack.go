// Package slack posts operator alerts to a Slack channel.
package slack

import (
	"context"
	"fmt"

	"mp3bot/m/v2/app/config"

	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

type Alerter struct {
	client  poster
	channel string
	botName string
}

// NewAlerter returns nil when either the token or the channel is missing.
func NewAlerter(cfg *config.Config) *Alerter {
	if cfg.SlackBotToken == "" || cfg.SlackAlertsChannel == "" {
		return nil
	}
	return &Alerter{
		client:  slack.New(cfg.SlackBotToken),
		channel: cfg.SlackAlertsChannel,
		botName: cfg.BotName,
	}
}

func (a *Alerter) Alert(ctx context.Context, message string) error {
	_, _, err := a.client.PostMessageContext(ctx, a.channel, slack.MsgOptionText(fmt.Sprintf("%s: %s", a.botName, message), false))
	if err != nil {
		log.Errorf("Failed to post alert to slack channel %s: %v", a.channel, err)
		return fmt.Errorf("slack Alert: %w", err)
	}
	return nil
}
