package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"mp3bot/m/v2/app/config"
	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/models"

	"github.com/DataDog/datadog-go/v5/statsd"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/webhook"
	"github.com/valyala/fasthttp"
)

const (
	stripeProvider = "stripe"
	SubscriberID   = "subscriber_id"
	AppID          = "app_id"
)

// Stripe sells the subscription as a one-off checkout session; the QR code is the checkout link.
type Stripe struct {
	cfg        config.Stripe
	appID      string
	newSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getSession func(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

func NewStripe(appConfig *config.Config) (*Stripe, error) {
	cfg := appConfig.Stripe
	if cfg.Token == "" {
		return nil, fmt.Errorf("NewStripe: missing token: %w", lib.ErrConfiguration)
	}
	stripe.Key = cfg.Token
	stripe.SetAppInfo(&stripe.AppInfo{
		Name:    appConfig.AppID,
		Version: "0.0.1",
		URL:     cfg.SuccessURL,
	})
	return &Stripe{
		cfg:        cfg,
		appID:      appConfig.AppID,
		newSession: session.New,
		getSession: session.Get,
	}, nil
}

func (s *Stripe) Name() string {
	return stripeProvider
}

func (s *Stripe) CreateCharge(ctx context.Context, request models.ChargeRequest) (*models.Charge, error) {
	subscriberID := lib.SubscriberFromContext(ctx)
	params := &stripe.CheckoutSessionParams{
		CancelURL:         stripe.String(s.cfg.CancelURL),
		ClientReferenceID: stripe.String(subscriberID),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("brl"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(request.Description),
					},
					UnitAmount: stripe.Int64(request.Amount.Shift(2).IntPart()),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata(SubscriberID, subscriberID)
	params.AddMetadata(AppID, s.appID)
	params.AddMetadata("reference", request.Reference)

	checkout, err := s.newSession(params)
	if err != nil {
		return nil, lib.NewProviderError(stripeProvider, "CreateCharge", err)
	}
	if checkout.ID == "" || checkout.URL == "" {
		return nil, lib.NewProviderError(stripeProvider, "CreateCharge", fmt.Errorf("session without id or url"))
	}
	return &models.Charge{ProviderPaymentID: checkout.ID, QRCode: checkout.URL}, nil
}

func (s *Stripe) GetStatus(ctx context.Context, paymentID string) (models.PaymentStatus, error) {
	checkout, err := s.getSession(paymentID, nil)
	if err != nil {
		return models.PaymentStatusError, lib.NewProviderError(stripeProvider, "GetStatus", err)
	}
	return stripeSessionStatus(checkout), nil
}

func stripeSessionStatus(checkout *stripe.CheckoutSession) models.PaymentStatus {
	switch {
	case checkout.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return models.PaymentStatusApproved
	case checkout.Status == stripe.CheckoutSessionStatusExpired:
		return models.PaymentStatusCancelled
	case checkout.Status == stripe.CheckoutSessionStatusOpen || checkout.Status == stripe.CheckoutSessionStatusComplete:
		return models.PaymentStatusPending
	default:
		return models.PaymentStatus(checkout.Status)
	}
}

// StripeWebhook reconciles a subscriber as soon as Stripe reports a completed or expired checkout.
type StripeWebhook struct {
	EndpointSecret string
	AppID          string
	Reconciler     *Reconciler
	Notifier       Notifier
	DataDogClient  statsd.ClientInterface
	constructEvent func(payload []byte, header string, secret string) (stripe.Event, error)
}

func NewStripeWebhook(cfg *config.Config, reconciler *Reconciler, notifier Notifier) *StripeWebhook {
	dd := cfg.DataDogClient
	if dd == nil {
		dd = &statsd.NoOpClient{}
	}
	return &StripeWebhook{
		EndpointSecret: cfg.Stripe.EndpointSecret,
		AppID:          cfg.AppID,
		Reconciler:     reconciler,
		Notifier:       notifier,
		DataDogClient:  dd,
		constructEvent: webhook.ConstructEvent,
	}
}

func (w *StripeWebhook) Handle(ctx *fasthttp.RequestCtx) {
	payload := ctx.Request.Body()
	signatureHeader := string(ctx.Request.Header.Peek("Stripe-Signature"))
	event, err := w.constructEvent(payload, signatureHeader, w.EndpointSecret)
	if err != nil {
		log.Errorf("Webhook signature verification failed. %v", err)
		ctx.Response.Header.SetStatusCode(http.StatusBadRequest)
		return
	}
	w.DataDogClient.Incr("stripe.webhook", []string{"event_type:" + string(event.Type)}, 1)

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded", "checkout.session.expired":
		var checkout stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &checkout); err != nil {
			log.Errorf("Error parsing %s webhook JSON: %v", event.Type, err)
			ctx.Response.Header.SetStatusCode(http.StatusBadRequest)
			return
		}
		w.handleCheckoutSession(checkout)
	default:
		log.Debugf("Ignoring Stripe event type: %s", event.Type)
	}

	ctx.Response.Header.SetStatusCode(http.StatusOK)
}

func (w *StripeWebhook) handleCheckoutSession(checkout stripe.CheckoutSession) {
	if app := checkout.Metadata[AppID]; app != "" && app != w.AppID {
		log.Infof("Ignoring checkout session %s for app %s", checkout.ID, app)
		return
	}
	subscriberID := lib.NormalizeSubscriberID(checkout.ClientReferenceID)
	if subscriberID == "" {
		subscriberID = lib.NormalizeSubscriberID(checkout.Metadata[SubscriberID])
	}
	if subscriberID == "" {
		log.Errorf("Checkout session %s has no subscriber", checkout.ID)
		return
	}
	ctx := context.Background()
	result, err := w.Reconciler.CheckNow(ctx, subscriberID)
	if err != nil {
		log.Errorf("Failed to check payment of %s after checkout session %s: %v", subscriberID, checkout.ID, err)
		return
	}
	if result.PaymentID != "" && result.PaymentID != checkout.ID {
		log.Warnf("Checkout session %s does not match pending payment %s of %s", checkout.ID, result.PaymentID, subscriberID)
	}
	if result.Notification != nil && w.Notifier != nil {
		w.Notifier.NotifyPayment(ctx, *result.Notification)
	}
}
