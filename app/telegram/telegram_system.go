package telegram

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"

	"mp3bot/m/v2/app/config"
	"mp3bot/m/v2/app/models"
	"mp3bot/m/v2/app/util"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// SystemBot sends operator alerts to a fixed chat.
type SystemBot struct {
	Sender
	ChatID telego.ChatID
	Dummy  bool
}

func NewSystemBot(cfg *config.Config) (*SystemBot, error) {
	if cfg.TelegramSystemToken == "" {
		return nil, fmt.Errorf("system bot token is empty")
	}
	newBot, err := telego.NewBot(cfg.TelegramSystemToken, util.GetBotLoggerOption(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create system bot: %w", err)
	}
	return &SystemBot{
		Sender: newBot,
		ChatID: systemChatID(cfg),
	}, nil
}

func NewStubSystemBot(cfg *config.Config) *SystemBot {
	return &SystemBot{
		Dummy:  true,
		Sender: newStubBot(cfg),
		ChatID: systemChatID(cfg),
	}
}

func systemChatID(cfg *config.Config) telego.ChatID {
	chatId, _ := strconv.ParseInt(cfg.TelegramSystemTo, 10, 64)
	return tu.ID(chatId)
}

func (s *SystemBot) Alert(ctx context.Context, message string) error {
	if s.Dummy {
		log.Infof("[system stub] %s", message)
	}
	_, err := s.SendMessage(tu.Message(s.ChatID, message))
	if err != nil {
		return fmt.Errorf("system bot Alert: %w", err)
	}
	return nil
}

// newStubBot creates new stub bot instance, that can be used for testing
func newStubBot(cfg *config.Config) *telego.Bot {
	stubBot, err := telego.NewBot(generateStubToken(), telego.WithHTTPClient(&http.Client{
		Transport: models.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"ok": true, "result": {}}`)),
			}, nil
		}),
	}), util.GetBotLoggerOption(cfg))
	if err != nil {
		log.Fatalf("Failed to create stub bot: %v", err)
	}
	return stubBot
}

// stub token that matches the pattern ^\d{9,10}:[\w-]{35}$
func generateStubToken() string {
	const digits = "0123456789"
	const alphaNum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"

	tokenBuilder := strings.Builder{}
	for i := 0; i < 9; i++ {
		tokenBuilder.WriteByte(digits[rand.Intn(len(digits))])
	}
	tokenBuilder.WriteString(":")
	for i := 0; i < 35; i++ {
		tokenBuilder.WriteByte(alphaNum[rand.Intn(len(alphaNum))])
	}
	return tokenBuilder.String()
}
