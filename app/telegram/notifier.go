package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"mp3bot/m/v2/app/config"
	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/models"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
	"gopkg.in/cenkalti/backoff.v1"
)

// PaymentNotifier tells subscribers about terminal payment transitions, retrying transient send failures.
type PaymentNotifier struct {
	Sender          Sender
	cfg             *config.Config
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

func NewPaymentNotifier(sender Sender, cfg *config.Config) *PaymentNotifier {
	return &PaymentNotifier{
		Sender:          sender,
		cfg:             cfg,
		InitialInterval: 500 * time.Millisecond,
		MaxElapsed:      time.Minute,
	}
}

func (n *PaymentNotifier) NotifyPayment(ctx context.Context, notification models.PaymentNotification) {
	chatID, err := chatIDOf(notification.SubscriberID)
	if err != nil {
		log.Errorf("Cannot notify payment %s: %v", notification.PaymentID, err)
		return
	}
	var text string
	switch notification.Status {
	case models.PaymentStatusApproved:
		text = approvedMessage(n.cfg, notification.ExpiresAt)
	default:
		text = failedPaymentNotice(notification.Status)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.InitialInterval
	b.MaxElapsedTime = n.MaxElapsed
	b.Reset()
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		_, err := n.Sender.SendMessage(tu.Message(chatID, text))
		if err != nil {
			log.Warnf("Notify %s about payment %s, attempt %d: %v", lib.MaskSubscriberID(notification.SubscriberID), notification.PaymentID, attempt, err)
		}
		return err
	}, b)
	if err != nil {
		log.Errorf("Failed to notify %s about payment %s: %v", lib.MaskSubscriberID(notification.SubscriberID), notification.PaymentID, err)
		return
	}
	_ = n.cfg.DataDogClient.Incr("payments.notified", []string{"status:" + string(notification.Status)}, 1)
}

func chatIDOf(subscriberID string) (telego.ChatID, error) {
	id, err := strconv.ParseInt(subscriberID, 10, 64)
	if err != nil {
		return telego.ChatID{}, fmt.Errorf("invalid subscriber id %q: %w", subscriberID, err)
	}
	return tu.ID(id), nil
}
