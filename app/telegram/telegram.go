// main package to control telegram bot
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mp3bot/m/v2/app/config"
	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/models"
	"mp3bot/m/v2/app/state"
	"mp3bot/m/v2/app/util"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Sender is the part of *telego.Bot the handlers use.
type Sender interface {
	SendMessage(params *telego.SendMessageParams) (*telego.Message, error)
	SendAudio(params *telego.SendAudioParams) (*telego.Message, error)
	SendPhoto(params *telego.SendPhotoParams) (*telego.Message, error)
	SendChatAction(params *telego.SendChatActionParams) error
}

type MediaResolver interface {
	FetchInfo(ctx context.Context, url string) (*models.MediaInfo, error)
	FetchPlaylist(ctx context.Context, url string) (*models.MediaInfo, error)
}

type AudioProducer interface {
	Produce(ctx context.Context, url string, outputPath string, ceiling int64) (string, error)
}

type Assistant interface {
	Complete(ctx context.Context, system string, user string) (string, error)
}

type Bot struct {
	Sender
	BotHandler *th.BotHandler
	Name       string

	telegoBot *telego.Bot
	cfg       *config.Config
	state     *state.State
	media     MediaResolver
	encoder   AudioProducer
	assistant Assistant
	commands  CommandHandlers
	now       func() time.Time
}

// New wires a bot around an existing sender; assistant may be nil.
func New(cfg *config.Config, st *state.State, sender Sender, media MediaResolver, encoder AudioProducer, assistant Assistant) *Bot {
	b := &Bot{
		Sender:    sender,
		Name:      cfg.BotName,
		cfg:       cfg,
		state:     st,
		media:     media,
		encoder:   encoder,
		assistant: assistant,
		now:       time.Now,
	}
	b.commands = setupCommandHandlers()
	return b
}

// NewBot connects to Telegram and starts handling long polled updates.
func NewBot(cfg *config.Config, st *state.State, media MediaResolver, encoder AudioProducer, assistant Assistant) (*Bot, error) {
	bot, err := telego.NewBot(cfg.TelegramBotToken, util.GetBotLoggerOption(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	botInfo, err := bot.GetMe()
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Infof("Bot info: %+v", botInfo)
	cfg.BotName = botInfo.Username

	updates, err := bot.UpdatesViaLongPolling(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start long polling: %w", err)
	}
	bh, err := th.NewBotHandler(bot, updates, th.WithStopTimeout(time.Second*10))
	if err != nil {
		return nil, fmt.Errorf("failed to setup bot handler: %w", err)
	}

	b := New(cfg, st, bot, media, encoder, assistant)
	b.telegoBot = bot
	b.BotHandler = bh
	bh.HandleMessage(func(_ *telego.Bot, message telego.Message) {
		b.HandleMessage(context.Background(), message)
	})
	go bh.Start()
	return b, nil
}

// Stop stops the update handler, then long polling.
func (b *Bot) Stop() {
	if b.BotHandler != nil {
		b.BotHandler.Stop()
	}
	if b.telegoBot != nil {
		b.telegoBot.StopLongPolling()
	}
}

func (b *Bot) HandleMessage(parent context.Context, message telego.Message) {
	text := strings.TrimSpace(message.Text)
	if text == "" {
		return
	}
	subscriberID := lib.NormalizeSubscriberID(util.GetChatIDString(&message))
	if subscriberID == "" {
		log.Warnf("Ignoring message without chat id: %+v", message.Chat)
		return
	}
	isPrivate := message.Chat.Type == "private"
	if !isPrivate {
		mention := "@" + b.Name
		if !strings.Contains(text, mention) {
			log.Debugf("Ignoring public message w/o @mention in channel: %s", subscriberID)
			return
		}
		text = strings.TrimSpace(strings.ReplaceAll(text, mention, ""))
	}

	ctx, cancel := lib.SetupUserContext(parent, subscriberID, b.cfg.MessageTimeout)
	defer cancel()
	log.Infof("Message from %s: %s", lib.MaskSubscriberID(subscriberID), text)

	if lib.IsGreeting(text) {
		b.reply(&message, greetingMessage(b.now()))
		return
	}

	b.state.Usage.RecordUser(subscriberID)

	if handler, ok := b.commands.lookup(text, b.Name); ok {
		_ = b.cfg.DataDogClient.Incr("command", []string{"command:" + string(handler.Command)}, 1)
		handler.Handler(ctx, b, &message)
		return
	}
	if strings.HasPrefix(text, "/") {
		_ = b.cfg.DataDogClient.Incr("unknown_command", nil, 1)
		b.reply(&message, "Comando desconhecido \U0001f937 Digite /help para ver os comandos.")
		return
	}

	if link := lib.ExtractYoutubeURL(text); link != "" {
		b.processLink(ctx, &message, subscriberID, link)
		return
	}

	b.answerWithAI(ctx, &message, text)
}

func (b *Bot) answerWithAI(ctx context.Context, message *telego.Message, text string) {
	if b.assistant == nil {
		b.reply(message, helpMessage(b.cfg))
		return
	}
	_ = b.SendChatAction(&telego.SendChatActionParams{ChatID: util.GetChatID(message), Action: telego.ChatActionTyping})
	answer, err := b.assistant.Complete(ctx, aiInstructions(b.cfg), text)
	if err != nil || strings.TrimSpace(answer) == "" {
		log.Warnf("AI unavailable, falling back to help: %v", err)
		b.reply(message, helpMessage(b.cfg))
		return
	}
	for _, chunk := range util.ChunkString(answer, 4096) {
		b.reply(message, chunk)
	}
}

func (b *Bot) reply(message *telego.Message, text string) {
	b.sendText(util.GetChatID(message), text)
}

func (b *Bot) sendText(chatID telego.ChatID, text string) {
	_, err := b.SendMessage(tu.Message(chatID, text))
	if err != nil {
		log.Errorf("Failed to send message to chat %d: %v", chatID.ID, err)
	}
}
