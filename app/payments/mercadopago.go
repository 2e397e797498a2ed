package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mp3bot/m/v2/app/config"
	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/models"

	"github.com/google/uuid"
)

const (
	mercadoPagoProvider = "mercadopago"
	TIMEOUT             = 30 * time.Second
)

// MercadoPago creates PIX charges through the MercadoPago payments API.
type MercadoPago struct {
	client      *http.Client
	endpoint    string
	accessToken string
	payerEmail  string
	payerCPF    string
}

type mercadoPagoPayer struct {
	Email          string                    `json:"email"`
	Identification mercadoPagoIdentification `json:"identification"`
}

type mercadoPagoIdentification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type mercadoPagoPaymentRequest struct {
	TransactionAmount float64          `json:"transaction_amount"`
	Description       string           `json:"description"`
	PaymentMethodID   string           `json:"payment_method_id"`
	Payer             mercadoPagoPayer `json:"payer"`
	ExternalReference string           `json:"external_reference"`
}

// mercadoPagoPayment is the only response shape accepted from the API.
type mercadoPagoPayment struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	StatusDetail       string      `json:"status_detail"`
	ExternalReference  string      `json:"external_reference"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

func NewMercadoPago(cfg config.MercadoPago, client *http.Client) (*MercadoPago, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("NewMercadoPago: missing access token: %w", lib.ErrConfiguration)
	}
	if client == nil {
		client = &http.Client{Timeout: TIMEOUT}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.mercadopago.com"
	}
	return &MercadoPago{
		client:      client,
		endpoint:    strings.TrimSuffix(endpoint, "/"),
		accessToken: cfg.AccessToken,
		payerEmail:  cfg.PayerEmail,
		payerCPF:    cfg.PayerCPF,
	}, nil
}

func (m *MercadoPago) Name() string {
	return mercadoPagoProvider
}

func (m *MercadoPago) CreateCharge(ctx context.Context, request models.ChargeRequest) (*models.Charge, error) {
	body, err := json.Marshal(mercadoPagoPaymentRequest{
		TransactionAmount: request.Amount.InexactFloat64(),
		Description:       request.Description,
		PaymentMethodID:   "pix",
		Payer: mercadoPagoPayer{
			Email:          m.payerEmail,
			Identification: mercadoPagoIdentification{Type: "CPF", Number: m.payerCPF},
		},
		ExternalReference: request.Reference,
	})
	if err != nil {
		return nil, lib.NewProviderError(mercadoPagoProvider, "CreateCharge", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+"/v1/payments", bytes.NewBuffer(body))
	if err != nil {
		return nil, lib.NewProviderError(mercadoPagoProvider, "CreateCharge", err)
	}
	req.Header.Set("X-Idempotency-Key", uuid.New().String())

	payment, err := m.do(req, "CreateCharge")
	if err != nil {
		return nil, err
	}
	data := payment.PointOfInteraction.TransactionData
	if payment.ID.String() == "" || data.QRCode == "" {
		return nil, lib.NewProviderError(mercadoPagoProvider, "CreateCharge", fmt.Errorf("response without id or qr code"))
	}
	return &models.Charge{
		ProviderPaymentID: payment.ID.String(),
		QRCode:            data.QRCode,
		QRCodeBase64:      data.QRCodeBase64,
	}, nil
}

func (m *MercadoPago) GetStatus(ctx context.Context, paymentID string) (models.PaymentStatus, error) {
	if _, err := strconv.ParseInt(paymentID, 10, 64); err != nil {
		return models.PaymentStatusError, lib.NewProviderError(mercadoPagoProvider, "GetStatus", fmt.Errorf("invalid payment id %q", paymentID))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint+"/v1/payments/"+paymentID, nil)
	if err != nil {
		return models.PaymentStatusError, lib.NewProviderError(mercadoPagoProvider, "GetStatus", err)
	}
	payment, err := m.do(req, "GetStatus")
	if err != nil {
		return models.PaymentStatusError, err
	}
	if payment.Status == "" {
		return models.PaymentStatusUnknown, nil
	}
	return models.PaymentStatus(payment.Status), nil
}

func (m *MercadoPago) do(req *http.Request, op string) (*mercadoPagoPayment, error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.accessToken)
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, lib.NewProviderError(mercadoPagoProvider, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, lib.NewProviderError(mercadoPagoProvider, op, fmt.Errorf("%s: %s", resp.Status, payload))
	}
	var payment mercadoPagoPayment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, lib.NewProviderError(mercadoPagoProvider, op, fmt.Errorf("failed to parse response: %w", err))
	}
	return &payment, nil
}
