package telegram

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/models"
	"mp3bot/m/v2/app/payments"
	"mp3bot/m/v2/app/util"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

type Command string

const (
	StartCommand     Command = "/start"
	HelpCommand      Command = "/help"
	StatsCommand     Command = "/stats"
	SubscribeCommand Command = "/subscribe"
	PixCommand       Command = "/pix"
	CheckCommand     Command = "/check"
	StatusCommand    Command = "/status"
	ActivateCommand  Command = "/activate"

	// commands setting for BotFather
	Commands string = `
start - 🚀 boas-vindas
help - ❓ como usar o bot
subscribe - 💎 assinatura premium
pix - 💳 gerar QR Code PIX
check - 🔎 verificar pagamento
status - 📊 sua assinatura e uso de hoje
`
)

type CommandHandler struct {
	Command Command
	Aliases []string
	Handler func(context.Context, *Bot, *telego.Message)
}

type CommandHandlers []*CommandHandler

func setupCommandHandlers() CommandHandlers {
	return CommandHandlers{
		newCommandHandler(StartCommand, startCommandHandler),
		newCommandHandler(HelpCommand, helpCommandHandler, "!ajuda", "ajuda", "help"),
		newCommandHandler(StatsCommand, statsCommandHandler, "!stats"),
		newCommandHandler(SubscribeCommand, subscribeCommandHandler, "!assinar"),
		newCommandHandler(PixCommand, pixCommandHandler, "!pix"),
		newCommandHandler(CheckCommand, checkCommandHandler, "!verificar"),
		newCommandHandler(StatusCommand, statusCommandHandler, "!status"),
		newCommandHandler(ActivateCommand, activateCommandHandler),
	}
}

func newCommandHandler(command Command, handler func(context.Context, *Bot, *telego.Message), aliases ...string) *CommandHandler {
	return &CommandHandler{
		Command: command,
		Aliases: aliases,
		Handler: handler,
	}
}

// lookup matches the first word of text against commands (with an optional @botname suffix) and aliases.
func (c CommandHandlers) lookup(text string, botName string) (*CommandHandler, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, false
	}
	word := strings.TrimSuffix(fields[0], "@"+botName)
	for _, ch := range c {
		if Command(word) == ch.Command {
			return ch, true
		}
		if len(fields) > 1 {
			continue
		}
		for _, alias := range ch.Aliases {
			if strings.EqualFold(word, alias) {
				return ch, true
			}
		}
	}
	return nil, false
}

func commandArgs(message *telego.Message) []string {
	fields := strings.Fields(message.Text)
	if len(fields) < 2 {
		return nil
	}
	return fields[1:]
}

func subscriberOf(message *telego.Message) string {
	return lib.NormalizeSubscriberID(util.GetChatIDString(message))
}

func startCommandHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	bot.reply(message, greetingMessage(bot.now()))
	bot.reply(message, helpMessage(bot.cfg))
}

func helpCommandHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	bot.reply(message, helpMessage(bot.cfg))
}

func statsCommandHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	subscriberID := subscriberOf(message)
	if !bot.cfg.IsAdmin(subscriberID) {
		log.Infof("Stats requested by non admin %s", lib.MaskSubscriberID(subscriberID))
		bot.reply(message, "⛔ Acesso negado, mano! Só os admin podem ver isso... 😜")
		return
	}
	st := bot.state
	bot.reply(message, statsMessage(st.Usage.Snapshot(), st.Usage.TopUsers(5), st.Ledger.IsActive))
}

func subscribeCommandHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	subscriberID := subscriberOf(message)
	if bot.state.Ledger.IsActive(subscriberID) {
		subscription, _ := bot.state.Ledger.Get(subscriberID)
		bot.reply(message, activeSubscriptionMessage(subscription.ExpiresAt))
		return
	}
	bot.reply(message, subscriptionMessage(bot.cfg))
}

func statusCommandHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	subscriberID := subscriberOf(message)
	active := bot.state.Ledger.IsActive(subscriberID)
	subscription, _ := bot.state.Ledger.Get(subscriberID)
	bot.reply(message, statusMessage(subscription, active, bot.state.Usage, subscriberID))
}

func activateCommandHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	if !bot.cfg.IsAdmin(subscriberOf(message)) {
		bot.reply(message, "⛔ Acesso negado, mano! Só os admin podem fazer isso... 😜")
		return
	}
	args := commandArgs(message)
	if len(args) != 1 || lib.NormalizeSubscriberID(args[0]) == "" {
		bot.reply(message, fmt.Sprintf("Uso: %s <id>", ActivateCommand))
		return
	}
	target := lib.NormalizeSubscriberID(args[0])
	expiresAt := bot.state.Ledger.Activate(target, models.ActivatedByAdmin)
	log.Infof("[admin] %s activated %s until %s", lib.MaskSubscriberID(subscriberOf(message)), lib.MaskSubscriberID(target), expiresAt)
	bot.reply(message, fmt.Sprintf("✅ Assinatura de %s ativada até %s", target, expiresAt.Format(DateLayout)))
	if chatID, err := chatIDOf(target); err == nil {
		bot.sendText(chatID, activeSubscriptionMessage(expiresAt))
	}
}

func pixCommandHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	subscriberID := subscriberOf(message)
	bot.reply(message, "⏳ Gerando QR Code PIX para assinatura...")

	charge, err := bot.state.Payments.RequestPayment(ctx, subscriberID)
	if err != nil {
		log.Errorf("Failed to request payment for %s: %v", lib.MaskSubscriberID(subscriberID), err)
		if !bot.cfg.IsProduction() {
			expiresAt := bot.state.Ledger.Activate(subscriberID, models.ActivatedByAdmin)
			bot.reply(message, devActivationMessage(expiresAt))
			return
		}
		if errors.Is(err, lib.ErrConfiguration) {
			bot.reply(message, paymentsUnavailableMessage)
			return
		}
		bot.reply(message, pixFailedMessage)
		return
	}

	if charge.QRCodeBase64 == "" {
		bot.reply(message, checkoutLinkMessage(bot.cfg, charge))
		return
	}
	if err := bot.sendQRCode(message, subscriberID, charge); err != nil {
		log.Warnf("Failed to send PIX QR image, sending code only: %v", err)
		bot.reply(message, pixMessage(bot.cfg, charge))
	}
}

func (b *Bot) sendQRCode(message *telego.Message, subscriberID string, charge *models.Charge) error {
	image, err := base64.StdEncoding.DecodeString(charge.QRCodeBase64)
	if err != nil {
		return fmt.Errorf("decode qr code: %w", err)
	}
	path := filepath.Join(b.cfg.TempDir, "pix_"+strings.TrimPrefix(subscriberID, "-")+".png")
	if err := os.WriteFile(path, image, 0o600); err != nil {
		return fmt.Errorf("write qr code: %w", err)
	}
	defer os.Remove(path)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open qr code: %w", err)
	}
	defer file.Close()
	_, err = b.SendPhoto(tu.Photo(util.GetChatID(message), tu.File(file)).WithCaption(pixMessage(b.cfg, charge)))
	return err
}

func checkCommandHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	subscriberID := subscriberOf(message)
	pending, ok := bot.state.Payments.Pending(subscriberID)
	if !ok {
		bot.replySubscriptionOrNoPending(message, subscriberID)
		return
	}
	bot.reply(message, "⏳ Verificando seu pagamento...")

	result, err := bot.state.Payments.CheckNow(ctx, subscriberID)
	if err != nil {
		log.Errorf("Failed to check payment for %s: %v", lib.MaskSubscriberID(subscriberID), err)
		bot.reply(message, verifyingPaymentMessage(pending))
		return
	}
	log.Infof("%s checked payment %s, outcome %d, status %s", lib.MaskSubscriberID(subscriberID), result.PaymentID, result.Outcome, result.Status)

	switch result.Outcome {
	case payments.CheckNoPending:
		bot.replySubscriptionOrNoPending(message, subscriberID)
	case payments.CheckAlreadyApproved:
		subscription, _ := bot.state.Ledger.Get(subscriberID)
		bot.reply(message, alreadyApprovedMessage(subscription.ExpiresAt))
	case payments.CheckApproved:
		bot.reply(message, approvedMessage(bot.cfg, result.ExpiresAt))
	case payments.CheckPending:
		bot.reply(message, pendingPaymentMessage(bot.cfg, pending))
	case payments.CheckVerifying:
		bot.reply(message, verifyingPaymentMessage(pending))
	default:
		bot.reply(message, failedPaymentMessage(pending, result.Status))
	}
}

func (b *Bot) replySubscriptionOrNoPending(message *telego.Message, subscriberID string) {
	if b.state.Ledger.IsActive(subscriberID) {
		subscription, _ := b.state.Ledger.Get(subscriberID)
		b.reply(message, activeSubscriptionMessage(subscription.ExpiresAt))
		return
	}
	b.reply(message, noPendingPaymentMessage)
}
