// Package webhook применяет события платёжного провайдера к состоянию
// подписки пользователя. Это единственное место, где меняется уровень доступа.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
	"github.com/magabrotheeeer/todo-freemium/internal/metrics"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// Repository методы хранилища для журнала событий и пользователей.
type Repository interface {
	SubscriptionEventExists(ctx context.Context, eventID string) (bool, error)
	RecordSubscriptionEvent(ctx context.Context, ev models.SubscriptionEvent) (bool, error)
	FindUserByBillingRef(ctx context.Context, subscriptionID, customerID, userUID string) (string, error)
	ApplySubscriptionEvent(ctx context.Context, ev models.SubscriptionEvent, apply func(u *models.User) *models.PaymentTransaction) (bool, error)
}

// Verifier проверяет подпись вебхука и нормализует событие.
type Verifier interface {
	VerifyWebhookSignature(payload []byte, signature, secret string) (*models.BillingEvent, error)
}

// Publisher отправляет уведомления о смене уровня доступа.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Reconciler обрабатывает входящие вебхуки.
type Reconciler struct {
	repo      Repository
	verifier  Verifier
	publisher Publisher
	secret    string
	policy    Policy
	log       *slog.Logger
	now       func() time.Time
}

// New создаёт Reconciler. nil-publisher заменяется на rabbitmq.Noop.
func New(repo Repository, verifier Verifier, publisher Publisher, secret string, policy Policy, log *slog.Logger) *Reconciler {
	if publisher == nil {
		publisher = rabbitmq.Noop{}
	}
	return &Reconciler{
		repo:      repo,
		verifier:  verifier,
		publisher: publisher,
		secret:    secret,
		policy:    policy,
		log:       log,
		now:       time.Now,
	}
}

// Handle проверяет подпись, отбрасывает повторы и в одной транзакции
// применяет событие к пользователю. Успех возвращается только после коммита.
// Ошибка означает, что провайдер должен повторить доставку, кроме
// apperr.ErrAuthentication и apperr.ErrValidation.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signature string) (models.EventOutcome, error) {
	const op = "services.webhook.Handle"

	ev, err := r.verifier.VerifyWebhookSignature(payload, signature, r.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	log := r.log.With(slog.String("event_id", ev.ID), slog.String("event_type", ev.Type))

	exists, err := r.repo.SubscriptionEventExists(ctx, ev.ID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		log.Info("duplicate webhook event skipped")
		return r.done(ev, models.OutcomeDuplicate), nil
	}

	record := models.SubscriptionEvent{
		EventID:        ev.ID,
		EventType:      ev.Type,
		SubscriptionID: ev.SubscriptionID,
		Payload:        ev.Payload,
	}

	if !Handles(ev.Type) {
		record.Outcome = models.OutcomeIgnored
		return r.recordOnly(ctx, op, log, ev, record)
	}

	userUID, err := r.repo.FindUserByBillingRef(ctx, ev.SubscriptionID, ev.CustomerID, ev.UserUID)
	if errors.Is(err, apperr.ErrNotFound) {
		log.Warn("webhook event does not match any user",
			slog.String("customer_id", ev.CustomerID), slog.String("subscription_id", ev.SubscriptionID))
		record.Outcome = models.OutcomeUnmatched
		return r.recordOnly(ctx, op, log, ev, record)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	record.UserUID = userUID
	record.Outcome = models.OutcomeApplied

	var before, after models.User
	applied, err := r.repo.ApplySubscriptionEvent(ctx, record, func(u *models.User) *models.PaymentTransaction {
		before = *u
		payment := Transition(u, ev, r.policy)
		after = *u
		return payment
	})
	if err != nil {
		log.Error("failed to apply webhook event", sl.UserUID(userUID), sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		log.Info("webhook event applied concurrently, skipped")
		return r.done(ev, models.OutcomeDuplicate), nil
	}

	log.Info("webhook event applied",
		sl.UserUID(userUID),
		slog.String("state", string(after.SubscriptionState)),
		slog.String("status", after.SubscriptionStatus),
	)
	if before.SubscriptionTier != after.SubscriptionTier {
		r.tierChanged(ctx, log, ev, before, after)
	}
	return r.done(ev, models.OutcomeApplied), nil
}

func (r *Reconciler) recordOnly(ctx context.Context, op string, log *slog.Logger, ev *models.BillingEvent, record models.SubscriptionEvent) (models.EventOutcome, error) {
	inserted, err := r.repo.RecordSubscriptionEvent(ctx, record)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !inserted {
		return r.done(ev, models.OutcomeDuplicate), nil
	}
	log.Info("webhook event recorded", slog.String("outcome", string(record.Outcome)))
	return r.done(ev, record.Outcome), nil
}

func (r *Reconciler) tierChanged(ctx context.Context, log *slog.Logger, ev *models.BillingEvent, before, after models.User) {
	metrics.TierChanges.WithLabelValues(string(before.SubscriptionTier), string(after.SubscriptionTier)).Inc()

	msg := models.TierChangedMessage{
		UserUID:   after.UID,
		Email:     after.Email,
		OldTier:   before.SubscriptionTier,
		NewTier:   after.SubscriptionTier,
		State:     after.SubscriptionState,
		EventID:   ev.ID,
		EventType: ev.Type,
		ChangedAt: r.now().UTC(),
	}
	if err := r.publisher.Publish(ctx, rabbitmq.TierChangedRoutingKey, msg); err != nil {
		log.Error("failed to publish tier change", sl.UserUID(after.UID), sl.Err(err))
	}
}

func (r *Reconciler) done(ev *models.BillingEvent, outcome models.EventOutcome) models.EventOutcome {
	metrics.WebhookEvents.WithLabelValues(ev.Type, string(outcome)).Inc()
	return outcome
}
