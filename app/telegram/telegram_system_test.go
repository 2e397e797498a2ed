package telegram

import (
	"context"
	"regexp"
	"testing"

	"mp3bot/m/v2/app/config"

	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/stretchr/testify/assert"
)

func TestGenerateStubToken(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^\d{9,10}:[\w-]{35}$`), generateStubToken())
}

func TestStubSystemBotAlert(t *testing.T) {
	cfg := config.Defaults()
	cfg.TelegramSystemTo = "123456"
	bot := NewStubSystemBot(cfg)

	assert.True(t, bot.Dummy)
	assert.Equal(t, int64(123456), bot.ChatID.ID)
	assert.NoError(t, bot.Alert(context.Background(), "🔥 mp3bot: yt-dlp is down 🔥"))
}

func TestSystemBotAlertUsesSender(t *testing.T) {
	sender := &fakeSender{}
	bot := &SystemBot{Sender: sender, ChatID: tu.ID(42)}

	assert.NoError(t, bot.Alert(context.Background(), "restarted"))
	assert.Equal(t, []string{"restarted"}, sender.messages)

	sender.failTimes = 1
	assert.Error(t, bot.Alert(context.Background(), "again"))
}

func TestNewSystemBotWithoutToken(t *testing.T) {
	_, err := NewSystemBot(config.Defaults())
	assert.Error(t, err)
}
