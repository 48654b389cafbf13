package paymentprovider

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// VerifyWebhookSignature проверяет подпись тела вебхука и приводит событие
// к models.BillingEvent. Неверная подпись возвращает apperr.ErrAuthentication.
func (c *Client) VerifyWebhookSignature(payload []byte, signature, secret string) (*models.BillingEvent, error) {
	const op = "paymentprovider.VerifyWebhookSignature"

	if secret == "" || signature == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Authentication("missing signature or secret"))
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrAuthentication, err)
	}

	ev, err := normalize(event)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrValidation, err)
	}
	ev.Payload = json.RawMessage(payload)
	return ev, nil
}

func normalize(event stripe.Event) (*models.BillingEvent, error) {
	ev := &models.BillingEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Created: time.Unix(event.Created, 0).UTC(),
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return ev, nil
	}
	raw := event.Data.Raw

	switch ev.Type {
	case models.EventCheckoutSessionCompleted:
		var s checkoutSession
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		ev.CustomerID = string(s.Customer)
		ev.SubscriptionID = s.Subscription.ID
		ev.SubscriptionStatus = s.subscriptionStatus()
		ev.UserUID = s.ClientReferenceID
		if ev.UserUID == "" {
			ev.UserUID = s.Metadata[MetadataUserUID]
		}

	case models.EventCustomerSubscriptionCreated,
		models.EventCustomerSubscriptionUpdated,
		models.EventCustomerSubscriptionDeleted:
		var s subscriptionObject
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		ev.CustomerID = string(s.Customer)
		ev.SubscriptionID = s.ID
		ev.SubscriptionStatus = s.Status
		ev.CancelAtPeriodEnd = s.CancelAtPeriodEnd || s.CancelAt > 0
		ev.PeriodEnd = unixPtr(s.periodEnd())
		ev.UserUID = s.Metadata[MetadataUserUID]

	case models.EventInvoicePaymentSucceeded, models.EventInvoicePaymentFailed:
		var inv invoiceObject
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, err
		}
		ev.CustomerID = string(inv.Customer)
		ev.SubscriptionID = inv.subscriptionID()
		ev.PeriodEnd = unixPtr(inv.periodEnd())
		ev.UserUID = inv.Parent.SubscriptionDetails.Metadata[MetadataUserUID]
		amount := inv.AmountPaid
		if ev.Type == models.EventInvoicePaymentFailed {
			amount = inv.AmountDue
		}
		ev.Invoice = &models.InvoiceDetails{
			ID:              inv.ID,
			PaymentIntentID: inv.paymentIntentID(),
			Amount:          amount,
			Currency:        inv.Currency,
		}
	}
	return ev, nil
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
