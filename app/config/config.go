package config

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/shopspring/decimal"
)

const (
	AI_INSTRUCTIONS = `Você é o assistente de um bot do Telegram que converte vídeos do YouTube em MP3.

Responda sempre em português, de forma curta e simpática.

O que o bot sabe fazer:
- converter um link do YouTube (vídeo ou playlist) em arquivo MP3
- usuários gratuitos têm %d conversões por dia e até %d vídeos por playlist
- assinantes premium têm conversões ilimitadas e até %d vídeos por playlist
- a assinatura custa R$ %s por %d dias e é paga via PIX com /pix

Comandos: /help, /subscribe, /pix, /check, /status.

Se o usuário pedir para converter algo, peça para ele enviar o link do YouTube.`

	ProductionEnvironment = "production"
)

type Config struct {
	AdminIDs             []string
	AIAPIKey             string
	AIEndpoint           string
	AIModel              string
	// AppID tags checkout sessions; unlike BotName it does not change when the bot connects
	AppID                string
	BotName              string
	DataDir              string
	DataDogClient        statsd.ClientInterface
	DailyFreeQuota       int
	Environment          string
	FreePlaylistLimit    int
	HTTPListenAddress    string
	MaxFileSizeBytes     int64
	MediaInfoCacheTTL    time.Duration
	MercadoPago          MercadoPago
	MessageTimeout       time.Duration
	MongoDBConnection    string
	MongoDBName          string
	PaymentDescription   string
	PaymentPollInterval  time.Duration
	PaymentProvider      string
	PendingPaymentTTL    time.Duration
	PersistInterval      time.Duration
	PlaylistLimit        int
	Redis                Redis
	SlackAlertsChannel   string
	SlackBotToken        string
	StatusWorkerInterval time.Duration
	StorageBackend       string
	Stripe               Stripe
	SubscriptionDays     int
	SubscriptionPrice    decimal.Decimal
	TelegramBotToken     string
	TelegramSystemToken  string
	TelegramSystemTo     string
	TempDir              string
	UsageRetentionDays   int
	YtDlpBinary          string
	FFMPEGBinary         string
}

type Redis struct {
	Host     string
	Port     string
	Password string
}

type MercadoPago struct {
	AccessToken string
	Endpoint    string
	PayerEmail  string
	PayerCPF    string
}

type Stripe struct {
	Token          string
	EndpointSecret string
	EndpointSuffix string
	SuccessURL     string
	CancelURL      string
}

func (c *Config) IsProduction() bool {
	return c.Environment == ProductionEnvironment
}

func (c *Config) IsAdmin(subscriberID string) bool {
	for _, id := range c.AdminIDs {
		if id == subscriberID {
			return true
		}
	}
	return false
}

// Defaults returns a config with every limit and interval filled in, used by main before env overrides and by tests.
func Defaults() *Config {
	return &Config{
		AIEndpoint:           "https://api.groq.com/openai/v1/chat/completions",
		AIModel:              "llama3-8b-8192",
		AppID:                "mp3bot",
		BotName:              "mp3bot",
		DataDir:              "data",
		DataDogClient:        &statsd.NoOpClient{},
		DailyFreeQuota:       5,
		Environment:          "dev",
		FreePlaylistLimit:    2,
		HTTPListenAddress:    ":8080",
		MaxFileSizeBytes:     15 * 1024 * 1024,
		MediaInfoCacheTTL:    time.Hour,
		MercadoPago:          MercadoPago{Endpoint: "https://api.mercadopago.com", PayerEmail: "cliente@exemplo.com", PayerCPF: "19119119100"},
		MessageTimeout:       10 * time.Minute,
		MongoDBName:          "mp3bot",
		PaymentDescription:   "Assinatura Premium Bot MP3 - 30 dias",
		PaymentPollInterval:  5 * time.Minute,
		PaymentProvider:      "mercadopago",
		PendingPaymentTTL:    24 * time.Hour,
		PersistInterval:      10 * time.Minute,
		PlaylistLimit:        5,
		StatusWorkerInterval: time.Minute,
		StorageBackend:       "file",
		SubscriptionDays:     30,
		SubscriptionPrice:    decimal.NewFromInt(10),
		TempDir:              "temp",
		UsageRetentionDays:   30,
		YtDlpBinary:          "yt-dlp",
		FFMPEGBinary:         "ffmpeg",
	}
}
