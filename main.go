package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"mp3bot/m/v2/app/ai"
	"mp3bot/m/v2/app/config"
	"mp3bot/m/v2/app/converters"
	"mp3bot/m/v2/app/db"
	"mp3bot/m/v2/app/db/mongo"
	"mp3bot/m/v2/app/db/redis"
	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/payments"
	"mp3bot/m/v2/app/slack"
	"mp3bot/m/v2/app/state"
	appstatus "mp3bot/m/v2/app/status"
	"mp3bot/m/v2/app/subscriptions"
	"mp3bot/m/v2/app/telegram"
	"mp3bot/m/v2/app/usage"
	"mp3bot/m/v2/app/util"
	"mp3bot/m/v2/app/workers"
	"mp3bot/m/v2/app/workers/clearusage"
	"mp3bot/m/v2/app/workers/onstart"
	"mp3bot/m/v2/app/workers/paymentspoll"
	"mp3bot/m/v2/app/workers/persist"
	"mp3bot/m/v2/app/workers/status"

	"github.com/DataDog/datadog-go/v5/statsd"
	fasthttpprom "github.com/carousell/fasthttp-prometheus-middleware"
	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

func main() {
	done := make(chan struct{}, 1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("failed to load .env: %v", err)
	}

	env := util.Env("ENV", "dev")
	dataDogClient, err := statsd.New(util.Env("DATADOG_AGENT_ADDRESS", "localhost:8125"), statsd.WithNamespace("mp3bot."))
	if err != nil {
		if env == config.ProductionEnvironment {
			log.Fatalf("error creating main DataDog client: %v", err)
		}
		log.Warnf("DataDog client unavailable, metrics disabled: %v", err)
	}

	cfg := loadConfig(env)
	if dataDogClient != nil {
		cfg.DataDogClient = dataDogClient
	}

	err = cfg.DataDogClient.Count("main.start", 1, []string{"env:" + cfg.Environment}, 1)
	if err != nil {
		log.Errorf("error sending metric: %v", err)
	}
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{
			DisableTimestamp: true,
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
			DisableColors: false,
		})
		log.SetLevel(log.TraceLevel)
	}

	redisClient := redis.NewClient(cfg.Redis)
	store := newStore(cfg, redisClient)

	ledger := subscriptions.NewLedger(cfg.SubscriptionDays)
	accounting := usage.NewAccounting(cfg.DailyFreeQuota)
	reconciler := payments.NewReconciler(newPaymentProvider(cfg), ledger, accounting, nil, payments.ReconcilerConfig{
		Price:       cfg.SubscriptionPrice,
		Description: cfg.PaymentDescription,
		PendingTTL:  cfg.PendingPaymentTTL,
	}, cfg.DataDogClient)
	st := state.New(store, ledger, accounting, reconciler)

	// restore state and clean up leftovers once
	onstart.Run(context.Background(), st, cfg.TempDir)

	ytdlp := converters.NewYtDlp(cfg.YtDlpBinary, redisClient, cfg.MediaInfoCacheTTL)
	encoder := converters.NewEncoder(ytdlp, converters.NewFFMPEG(cfg.FFMPEGBinary), cfg.DataDogClient)

	aiAPI := ai.NewAPI(cfg)
	var assistant telegram.Assistant
	var aiChecker appstatus.AIChecker
	if aiAPI.Configured() {
		assistant = aiAPI
		aiChecker = aiAPI
	} else {
		log.Warn("AI_API_KEY is not set, free text gets the help reply")
	}

	telegramBot, err := telegram.NewBot(cfg, st, ytdlp, encoder, assistant)
	if err != nil {
		log.Fatalf("ERROR creating bot: %v", err)
	}
	notifier := telegram.NewPaymentNotifier(telegramBot, cfg)
	reconciler.SetNotifier(notifier)

	// create system bot for alerts, etc
	var systemBot *telegram.SystemBot
	if cfg.IsProduction() {
		systemBot, err = telegram.NewSystemBot(cfg)
		if err != nil {
			log.Fatalf("ERROR creating system bot: %v", err)
		}
	} else {
		systemBot = telegram.NewStubSystemBot(cfg)
	}
	alerters := appstatus.Alerters{systemBot}
	if slackAlerter := slack.NewAlerter(cfg); slackAlerter != nil {
		alerters = append(alerters, slackAlerter)
	}

	rtr := router.New()
	rtr.GET("/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = ctx.WriteString("🎵 mp3bot is up")
	})
	if cfg.PaymentProvider == "stripe" && cfg.Stripe.EndpointSuffix != "" {
		stripeWebhook := payments.NewStripeWebhook(cfg, reconciler, notifier)
		rtr.POST(fmt.Sprintf("/stripe_%s", cfg.Stripe.EndpointSuffix), stripeWebhook.Handle)
	}
	p := fasthttpprom.NewPrometheus("")
	p.Use(rtr)

	persistWorker := persist.New(st, cfg.PersistInterval, cfg.DataDogClient)
	go persistWorker.Start()

	paymentsWorker := paymentspoll.New(st, cfg.PaymentPollInterval, cfg.DataDogClient)
	go paymentsWorker.Start()

	statusWorker := status.New(&status.Checker{
		Handler: appstatus.New(st, redisClient, aiChecker, appstatus.Binaries{
			YtDlp:  cfg.YtDlpBinary,
			FFMPEG: cfg.FFMPEGBinary,
		}),
		Cache:    redisClient,
		Alerter:  alerters,
		DataDog:  cfg.DataDogClient,
		BotName:  cfg.BotName,
		Interval: cfg.StatusWorkerInterval,
	})
	go statusWorker.Start()

	clearUsageWorker := clearusage.New(accounting, cfg.UsageRetentionDays, cfg.DataDogClient)
	go clearUsageWorker.Start()

	go TearDown(sigs, done, cfg, telegramBot, alerters, st, persistWorker, paymentsWorker, statusWorker, clearUsageWorker)

	go func() {
		err := fasthttp.ListenAndServe(cfg.HTTPListenAddress, fasthttp.TimeoutHandler(p.Handler, time.Second*30, "Request timeout"))
		util.Assert(err == nil, "ListenAndServe:", err)
	}()

	successfulStartMessage := fmt.Sprintf("🤖 %s started successfully 🚀 inside %s", cfg.BotName, util.Env("POD_NAME", "unknown"))
	if err := alerters.Alert(context.Background(), successfulStartMessage); err != nil {
		log.Errorf("Failed to send start message: %s", err)
	}
	log.Info(successfulStartMessage)

	<-done
	log.Info("Done")
}

func loadConfig(env string) *config.Config {
	cfg := config.Defaults()
	cfg.Environment = env
	cfg.AdminIDs = util.EnvList("ADMIN_IDS")
	cfg.AIAPIKey = util.Env("AI_API_KEY", "")
	cfg.AIEndpoint = util.Env("AI_API_ENDPOINT", cfg.AIEndpoint)
	cfg.AIModel = util.Env("AI_MODEL", cfg.AIModel)
	cfg.AppID = util.Env("APP_ID", cfg.AppID)
	cfg.BotName = util.Env("BOT_NAME", cfg.BotName)
	cfg.DataDir = util.Env("DATA_DIR", cfg.DataDir)
	cfg.DailyFreeQuota = util.EnvInt("DAILY_FREE_QUOTA", cfg.DailyFreeQuota)
	cfg.FreePlaylistLimit = util.EnvInt("FREE_PLAYLIST_LIMIT", cfg.FreePlaylistLimit)
	cfg.HTTPListenAddress = util.Env("BACKEND_LISTEN_ADDRESS", cfg.HTTPListenAddress)
	cfg.MaxFileSizeBytes = int64(util.EnvInt("MAX_FILE_SIZE_BYTES", int(cfg.MaxFileSizeBytes)))
	cfg.MediaInfoCacheTTL = util.EnvDuration("MEDIA_INFO_CACHE_TTL", cfg.MediaInfoCacheTTL)
	cfg.MercadoPago = config.MercadoPago{
		AccessToken: util.Env("MERCADOPAGO_ACCESS_TOKEN", ""),
		Endpoint:    util.Env("MERCADOPAGO_ENDPOINT", cfg.MercadoPago.Endpoint),
		PayerEmail:  util.Env("MERCADOPAGO_PAYER_EMAIL", cfg.MercadoPago.PayerEmail),
		PayerCPF:    util.Env("MERCADOPAGO_PAYER_CPF", cfg.MercadoPago.PayerCPF),
	}
	cfg.MessageTimeout = util.EnvDuration("MESSAGE_TIMEOUT", cfg.MessageTimeout)
	cfg.MongoDBConnection = util.Env("MONGO_DB_CONNECTION_STRING", "")
	cfg.MongoDBName = util.Env("MONGO_DB_NAME", cfg.MongoDBName)
	cfg.PaymentDescription = util.Env("PAYMENT_DESCRIPTION", cfg.PaymentDescription)
	cfg.PaymentPollInterval = util.EnvDuration("PAYMENT_POLL_INTERVAL", cfg.PaymentPollInterval)
	cfg.PaymentProvider = util.Env("PAYMENT_PROVIDER", cfg.PaymentProvider)
	cfg.PendingPaymentTTL = util.EnvDuration("PENDING_PAYMENT_TTL", cfg.PendingPaymentTTL)
	cfg.PersistInterval = util.EnvDuration("PERSIST_INTERVAL", cfg.PersistInterval)
	cfg.PlaylistLimit = util.EnvInt("PLAYLIST_LIMIT", cfg.PlaylistLimit)
	cfg.Redis = config.Redis{
		Host:     util.Env("REDIS_HOST", ""),
		Port:     util.Env("REDIS_PORT", "6379"),
		Password: util.Env("REDIS_PASSWORD", ""),
	}
	cfg.SlackAlertsChannel = util.Env("SLACK_ALERTS_CHANNEL", "")
	cfg.SlackBotToken = util.Env("SLACK_BOT_TOKEN", "")
	cfg.StatusWorkerInterval = util.EnvDuration("STATUS_WORKER_INTERVAL", cfg.StatusWorkerInterval)
	cfg.StorageBackend = util.Env("STORAGE_BACKEND", cfg.StorageBackend)
	cfg.Stripe = config.Stripe{
		Token:          util.Env("STRIPE_TOKEN", ""),
		EndpointSecret: util.Env("STRIPE_ENDPOINT_SECRET", ""),
		EndpointSuffix: util.Env("STRIPE_ENDPOINT_SUFFIX", ""),
		SuccessURL:     util.Env("STRIPE_SUCCESS_URL", "https://t.me/"+cfg.BotName),
		CancelURL:      util.Env("STRIPE_CANCEL_URL", "https://t.me/"+cfg.BotName),
	}
	cfg.SubscriptionDays = util.EnvInt("SUBSCRIPTION_DAYS", cfg.SubscriptionDays)
	cfg.SubscriptionPrice = decimal.RequireFromString(util.Env("SUBSCRIPTION_PRICE", cfg.SubscriptionPrice.StringFixed(2)))
	cfg.TelegramBotToken = util.Env("TELEGRAM_BOT_TOKEN")
	cfg.TelegramSystemToken = util.Env("TELEGRAM_SYSTEM_TOKEN", "")
	cfg.TelegramSystemTo = util.Env("TELEGRAM_SYSTEM_TO", "")
	cfg.TempDir = util.Env("TEMP_DIR", filepath.Join(os.TempDir(), "mp3bot"))
	cfg.UsageRetentionDays = util.EnvInt("USAGE_RETENTION_DAYS", cfg.UsageRetentionDays)
	cfg.YtDlpBinary = util.Env("YT_DLP_BINARY", cfg.YtDlpBinary)
	cfg.FFMPEGBinary = util.Env("FFMPEG_BINARY", cfg.FFMPEGBinary)
	return cfg
}

func newStore(cfg *config.Config, redisClient redis.Client) db.Store {
	switch cfg.StorageBackend {
	case "redis":
		util.Assert(redisClient != nil, "STORAGE_BACKEND=redis requires REDIS_HOST")
		return redis.NewStore(redisClient)
	case "mongo":
		util.Assert(cfg.MongoDBConnection != "", "STORAGE_BACKEND=mongo requires MONGO_DB_CONNECTION_STRING")
		return mongo.NewClient(cfg.MongoDBConnection, cfg.MongoDBName)
	default:
		store, err := db.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatalf("ERROR creating file store in %s: %v", cfg.DataDir, err)
		}
		return store
	}
}

// newPaymentProvider returns nil when credentials are missing, leaving payment commands disabled.
func newPaymentProvider(cfg *config.Config) payments.Provider {
	var provider payments.Provider
	var err error
	switch cfg.PaymentProvider {
	case "stripe":
		var stripeProvider *payments.Stripe
		if stripeProvider, err = payments.NewStripe(cfg); err == nil {
			provider = stripeProvider
		}
	default:
		var mercadoPago *payments.MercadoPago
		if mercadoPago, err = payments.NewMercadoPago(cfg.MercadoPago, nil); err == nil {
			provider = mercadoPago
		}
	}
	if err != nil {
		if errors.Is(err, lib.ErrConfiguration) {
			log.Warnf("Payments disabled: %v", err)
		} else {
			log.Errorf("Payments disabled, failed to create %s provider: %v", cfg.PaymentProvider, err)
		}
		return nil
	}
	return provider
}

func TearDown(sigs chan os.Signal, done chan struct{}, cfg *config.Config, telegramBot *telegram.Bot, alerter appstatus.Alerter, st *state.State, runningWorkers ...*workers.Worker) {
	<-sigs
	exitMessage := fmt.Sprintf("🤖 %s bids farewell ❌ inside %s", cfg.BotName, util.Env("POD_NAME", "unknown"))
	log.Info(exitMessage)
	if err := alerter.Alert(context.Background(), exitMessage); err != nil {
		log.Errorf("TearDown: exit message: %v", err)
	}
	for _, worker := range runningWorkers {
		worker.StopWorker()
	}
	telegramBot.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := st.Flush(ctx, 30*time.Second); err != nil {
		log.Errorf("TearDown: flushing state: %v", err)
	}
	if err := st.Store().Close(ctx); err != nil {
		log.Errorf("TearDown: closing store: %v", err)
	}
	done <- struct{}{}
}
