// Package paymentprovider — адаптер платёжного провайдера Stripe.
// Все ошибки провайдера возвращаются обёрнутыми в apperr.ErrExternalService,
// повторных попыток внутри адаптера нет.
package paymentprovider

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// MetadataUserUID ключ метаданных, по которому события связываются с пользователем.
const MetadataUserUID = "user_uid"

// Client вызывает API Stripe с собственным ключом, без глобального состояния пакета stripe.
type Client struct {
	api *client.API
}

// New создаёт клиент. backends == nil означает стандартные адреса Stripe.
func New(secretKey string, backends *stripe.Backends) *Client {
	return &Client{api: client.New(secretKey, backends)}
}

// BackendsFor возвращает backends, направленные на url. Используется в тестах
// и для stripe-mock.
func BackendsFor(url string) *stripe.Backends {
	cfg := &stripe.BackendConfig{
		URL:               stripe.String(url),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	return &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	}
}

// CreateCustomer создаёт клиента Stripe для пользователя и возвращает его id.
func (c *Client) CreateCustomer(ctx context.Context, email, userUID string) (string, error) {
	const op = "paymentprovider.CreateCustomer"

	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata(MetadataUserUID, userUID)
	params.SetIdempotencyKey(uuid.NewString())

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", apperr.External(op, err)
	}
	return cus.ID, nil
}

// CreateCheckoutSession создаёт сессию оплаты подписки. uid пользователя
// передаётся и в client_reference_id, и в метаданные подписки, чтобы события
// можно было сопоставить даже без сохранённых ссылок.
func (c *Client) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error) {
	const op = "paymentprovider.CreateCheckoutSession"

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserUID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUserUID: req.UserUID},
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserUID, req.UserUID)
	params.SetIdempotencyKey(uuid.NewString())

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, apperr.External(op, err)
	}
	return &models.CheckoutSession{SessionID: s.ID, SessionURL: s.URL}, nil
}

// CreatePortalSession возвращает ссылку на портал управления подпиской.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	const op = "paymentprovider.CreatePortalSession"

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", apperr.External(op, err)
	}
	return s.URL, nil
}

// CancelSubscription просит Stripe отменить подписку в конце оплаченного периода.
// Локальное состояние меняется позже, по вебхуку.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*models.Cancellation, error) {
	const op = "paymentprovider.CancelSubscription"

	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, apperr.External(op, err)
	}

	res := &models.Cancellation{SubscriptionID: sub.ID}
	if sub.CancelAt > 0 {
		at := time.Unix(sub.CancelAt, 0).UTC()
		res.CancelAt = &at
	}
	return res, nil
}
