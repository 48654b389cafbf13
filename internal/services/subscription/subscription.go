// Package subscription реализует права доступа бесплатного уровня и
// сквозные вызовы платёжного провайдера: оплату, отмену и портал.
// Уровень доступа здесь никогда не меняется, это делает обработчик вебхуков.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
	"github.com/magabrotheeeer/todo-freemium/internal/metrics"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// Repository методы хранилища, нужные сервису.
type Repository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	CountTodosByUser(ctx context.Context, userUID string) (int, error)
	SetBillingCustomer(ctx context.Context, userUID, customerID string) (string, error)
	ListPaymentTransactions(ctx context.Context, userUID string, page models.Page) ([]*models.PaymentTransaction, error)
}

// Gateway операции платёжного провайдера.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, userUID string) (string, error)
	CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*models.Cancellation, error)
}

// Config параметры тарифа.
type Config struct {
	FreeTierTodoLimit int
	PremiumPriceID    string
	// FrontendOrigin — origin, от которого строятся адреса возврата.
	FrontendOrigin string
	// AllowedOrigins — origin'ы, на которые разрешено возвращать клиента
	// после оплаты. FrontendOrigin разрешён всегда.
	AllowedOrigins []string
}

// Service управляет правами доступа пользователя.
type Service struct {
	repo    Repository
	gateway Gateway
	cfg     Config
	log     *slog.Logger
}

// New создаёт Service.
func New(repo Repository, gateway Gateway, cfg Config, log *slog.Logger) *Service {
	cfg.FrontendOrigin = strings.TrimRight(cfg.FrontendOrigin, "/")
	origins := make([]string, 0, len(cfg.AllowedOrigins)+1)
	for _, o := range append([]string{cfg.FrontendOrigin}, cfg.AllowedOrigins...) {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, strings.ToLower(o))
		}
	}
	cfg.AllowedOrigins = origins
	return &Service{
		repo:    repo,
		gateway: gateway,
		cfg:     cfg,
		log:     log,
	}
}

// Limit лимит задач бесплатного уровня.
func (s *Service) Limit() int {
	return s.cfg.FreeTierTodoLimit
}

// Admit пропускает создание задачи для премиум-пользователя или пока
// количество задач меньше лимита. Вызывается под блокировкой строки пользователя.
func (s *Service) Admit(u models.Usage) error {
	if u.Tier == models.TierPremium || u.TodoCount < s.cfg.FreeTierTodoLimit {
		return nil
	}
	metrics.QuotaRejections.Inc()
	return &apperr.QuotaError{Count: u.TodoCount, Limit: s.cfg.FreeTierTodoLimit}
}

// GetStatus возвращает уровень, статус и использование квоты. Количество
// задач считается запросом к базе на каждый вызов.
func (s *Service) GetStatus(ctx context.Context, userUID string) (*models.SubscriptionStatus, error) {
	const op = "services.subscription.GetStatus"

	u, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	count, err := s.repo.CountTodosByUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.SubscriptionStatus{
		SubscriptionTier:   u.SubscriptionTier,
		SubscriptionStatus: u.SubscriptionStatus,
		SubscriptionState:  u.SubscriptionState,
		TodoCount:          count,
		TodoLimit:          s.cfg.FreeTierTodoLimit,
		CanCreateTodos:     s.Admit(models.Usage{Tier: u.SubscriptionTier, TodoCount: count}) == nil,
		CurrentPeriodEnd:   u.CurrentPeriodEnd,
	}, nil
}

// InitiateCheckout создаёт сессию оплаты премиум-тарифа. Клиент провайдера
// создаётся при первом обращении. Пустые адреса возврата заменяются
// адресами фронтенда, заданные должны вести на разрешённый origin.
func (s *Service) InitiateCheckout(ctx context.Context, userUID, successURL, cancelURL string) (*models.CheckoutSession, error) {
	const op = "services.subscription.InitiateCheckout"

	u, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.IsPremium() {
		return nil, fmt.Errorf("%s: %w", op, apperr.Conflict("user already has an active premium subscription"))
	}
	if u.SubscriptionState == models.StatePendingActivation {
		return nil, fmt.Errorf("%s: %w", op, apperr.Conflict("subscription activation is pending, wait for the payment to complete"))
	}
	if successURL != "" && !s.allowedRedirect(successURL) {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("success_url must point to an allowed origin"))
	}
	if cancelURL != "" && !s.allowedRedirect(cancelURL) {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("cancel_url must point to an allowed origin"))
	}
	if s.cfg.PremiumPriceID == "" {
		return nil, apperr.External(op, errors.New("premium price is not configured"))
	}

	customerID := u.BillingCustomerID
	if customerID == "" {
		created, err := s.gateway.CreateCustomer(ctx, u.Email, u.UID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		customerID, err = s.repo.SetBillingCustomer(ctx, u.UID, created)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if customerID != created {
			s.log.Warn("billing customer already stored by a concurrent checkout, new one is unused",
				sl.UserUID(u.UID), slog.String("customer_id", customerID), slog.String("unused_customer_id", created))
		} else {
			s.log.Info("billing customer created", sl.UserUID(u.UID), slog.String("customer_id", customerID))
		}
	}

	if successURL == "" {
		successURL = s.cfg.FrontendOrigin + "/subscription/success?session_id={CHECKOUT_SESSION_ID}"
	}
	if cancelURL == "" {
		cancelURL = s.cfg.FrontendOrigin + "/subscription/cancel"
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, models.CheckoutRequest{
		CustomerID: customerID,
		PriceID:    s.cfg.PremiumPriceID,
		UserUID:    u.UID,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.CheckoutSessions.Inc()
	return session, nil
}

// allowedRedirect сообщает, что адрес абсолютный и его origin разрешён.
func (s *Service) allowedRedirect(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" || u.User != nil {
		return false
	}
	origin := strings.ToLower(u.Scheme + "://" + u.Host)
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

// Cancel просит провайдера отменить подписку в конце периода.
// Локальное состояние изменится, когда придёт вебхук.
func (s *Service) Cancel(ctx context.Context, userUID string) (*models.Cancellation, error) {
	const op = "services.subscription.Cancel"

	u, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.BillingSubscriptionID == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("no active subscription to cancel"))
	}

	res, err := s.gateway.CancelSubscription(ctx, u.BillingSubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// PortalURL возвращает ссылку на портал провайдера для управления оплатой.
func (s *Service) PortalURL(ctx context.Context, userUID string) (string, error) {
	const op = "services.subscription.PortalURL"

	u, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if u.BillingCustomerID == "" {
		return "", fmt.Errorf("%s: %w", op, apperr.Validation("no billing account yet, start a checkout first"))
	}

	link, err := s.gateway.CreatePortalSession(ctx, u.BillingCustomerID, s.cfg.FrontendOrigin+"/settings")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return link, nil
}

// Payments возвращает историю оплат пользователя.
func (s *Service) Payments(ctx context.Context, userUID string, page models.Page) ([]*models.PaymentTransaction, error) {
	const op = "services.subscription.Payments"

	payments, err := s.repo.ListPaymentTransactions(ctx, userUID, page)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return payments, nil
}
