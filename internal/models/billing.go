package models

import (
	"encoding/json"
	"time"
)

// Типы событий провайдера, которые обрабатывает приложение.
const (
	EventCheckoutSessionCompleted    = "checkout.session.completed"
	EventCustomerSubscriptionCreated = "customer.subscription.created"
	EventCustomerSubscriptionUpdated = "customer.subscription.updated"
	EventCustomerSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded     = "invoice.payment_succeeded"
	EventInvoicePaymentFailed        = "invoice.payment_failed"
)

// BillingEvent — нормализованное событие платёжного провайдера,
// полученное после проверки подписи вебхука.
type BillingEvent struct {
	ID      string
	Type    string
	Created time.Time

	CustomerID         string
	SubscriptionID     string
	SubscriptionStatus string // Статус подписки, если событие его содержит
	CancelAtPeriodEnd  bool
	PeriodEnd          *time.Time
	UserUID            string // client_reference_id или metadata.user_uid

	Invoice *InvoiceDetails

	Payload json.RawMessage // Исходное тело события для аудита
}

// InvoiceDetails — данные счёта из событий invoice.*.
type InvoiceDetails struct {
	ID              string
	PaymentIntentID string
	Amount          int64
	Currency        string
}

// EventOutcome — исход обработки события провайдера.
type EventOutcome string

const (
	OutcomeApplied   EventOutcome = "applied"
	OutcomeDuplicate EventOutcome = "duplicate"
	OutcomeUnmatched EventOutcome = "unmatched"
	OutcomeIgnored   EventOutcome = "ignored"
)

// SubscriptionEvent — запись журнала входящих событий провайдера.
// Используется для идемпотентности и аудита, после вставки не изменяется.
type SubscriptionEvent struct {
	ID             int64
	EventID        string
	EventType      string
	UserUID        string
	SubscriptionID string
	Outcome        EventOutcome
	Payload        json.RawMessage
	ProcessedAt    time.Time
}

// Статусы платёжных транзакций.
const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// PaymentTransaction — неизменяемая запись об исходе оплаты счёта.
type PaymentTransaction struct {
	ID              int64     `json:"id"`
	UserUID         string    `json:"-"`
	InvoiceID       string    `json:"invoice_id"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	SubscriptionID  string    `json:"subscription_id,omitempty"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// TierChangedMessage публикуется в брокер после смены уровня доступа.
type TierChangedMessage struct {
	UserUID   string            `json:"user_uid"`
	Email     string            `json:"email"`
	OldTier   Tier              `json:"old_tier"`
	NewTier   Tier              `json:"new_tier"`
	State     SubscriptionState `json:"state"`
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	ChangedAt time.Time         `json:"changed_at"`
}
