package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusUnknown   PaymentStatus = "unknown"
	PaymentStatusError     PaymentStatus = "error"
)

// IsTerminal reports whether no further transition is expected.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusApproved || s == PaymentStatusRejected || s == PaymentStatusCancelled
}

// PendingPayment is the single outstanding charge of a subscriber.
type PendingPayment struct {
	PaymentID   string          `json:"paymentId"`
	Reference   string          `json:"reference"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"createdAt"`
	Status      PaymentStatus   `json:"status"`
	LastChecked *time.Time      `json:"lastChecked,omitempty"`
}

type ChargeRequest struct {
	Amount      decimal.Decimal
	Reference   string
	Description string
}

// Charge is what a provider returns for a created payment.
type Charge struct {
	ProviderPaymentID string
	// QRCode is the copy-and-paste PIX code, or a checkout link for card providers
	QRCode       string
	QRCodeBase64 string
}

// PaymentNotification is emitted once per terminal transition observed by the reconciler.
type PaymentNotification struct {
	SubscriberID string
	PaymentID    string
	Status       PaymentStatus
	ExpiresAt    time.Time
}

type PaymentCounters struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}
