package webhook

import (
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// Статусы подписки у провайдера, на которые опирается переход.
const (
	statusActive            = "active"
	statusTrialing          = "trialing"
	statusPastDue           = "past_due"
	statusCanceled          = "canceled"
	statusUnpaid            = "unpaid"
	statusIncomplete        = "incomplete"
	statusIncompleteExpired = "incomplete_expired"
)

// Policy настройки перехода, которые решаются конфигурацией.
type Policy struct {
	// MaxFailedPayments — после стольких неуспешных оплат подряд пользователь
	// переводится на бесплатный уровень. 0 — только по событию провайдера.
	MaxFailedPayments int
}

// Handles сообщает, меняет ли событие такого типа состояние пользователя.
func Handles(eventType string) bool {
	switch eventType {
	case models.EventCheckoutSessionCompleted,
		models.EventCustomerSubscriptionCreated,
		models.EventCustomerSubscriptionUpdated,
		models.EventCustomerSubscriptionDeleted,
		models.EventInvoicePaymentSucceeded,
		models.EventInvoicePaymentFailed:
		return true
	}
	return false
}

// Transition применяет событие к пользователю на месте и возвращает
// транзакцию оплаты, если событие её описывает. Уровень доступа всегда
// выводится из итогового состояния подписки.
func Transition(u *models.User, ev *models.BillingEvent, p Policy) *models.PaymentTransaction {
	var payment *models.PaymentTransaction

	switch ev.Type {
	case models.EventCheckoutSessionCompleted:
		setRefs(u, ev)
		switch {
		case isPaidStatus(ev.SubscriptionStatus):
			u.SubscriptionState = models.StatePremiumActive
			u.SubscriptionStatus = ev.SubscriptionStatus
		case !u.IsPremium():
			u.SubscriptionState = models.StatePendingActivation
			u.SubscriptionStatus = statusIncomplete
		}

	case models.EventCustomerSubscriptionCreated, models.EventCustomerSubscriptionUpdated:
		setRefs(u, ev)
		if ev.SubscriptionStatus != "" {
			u.SubscriptionStatus = ev.SubscriptionStatus
		}
		if ev.PeriodEnd != nil {
			u.CurrentPeriodEnd = ev.PeriodEnd
		}
		switch ev.SubscriptionStatus {
		case statusActive, statusTrialing:
			u.SubscriptionState = models.StatePremiumActive
			if ev.CancelAtPeriodEnd {
				u.SubscriptionState = models.StatePremiumCanceling
			}
			u.FailedPaymentCount = 0
		case statusPastDue:
			// доступ сохраняется до явной отмены
		case statusCanceled, statusUnpaid, statusIncompleteExpired:
			u.SubscriptionState = models.StateFree
		case statusIncomplete:
			if !u.IsPremium() {
				u.SubscriptionState = models.StatePendingActivation
			}
		}

	case models.EventCustomerSubscriptionDeleted:
		if ev.CustomerID != "" {
			u.BillingCustomerID = ev.CustomerID
		}
		u.BillingSubscriptionID = ""
		u.SubscriptionState = models.StateFree
		u.SubscriptionStatus = statusCanceled
		u.FailedPaymentCount = 0

	case models.EventInvoicePaymentSucceeded:
		if ev.PeriodEnd != nil {
			u.CurrentPeriodEnd = ev.PeriodEnd
		}
		u.FailedPaymentCount = 0
		if u.SubscriptionStatus == statusPastDue && u.IsPremium() {
			u.SubscriptionStatus = statusActive
		}
		payment = newPayment(ev, models.PaymentSucceeded)

	case models.EventInvoicePaymentFailed:
		u.FailedPaymentCount++
		u.SubscriptionStatus = statusPastDue
		if p.MaxFailedPayments > 0 && u.FailedPaymentCount >= p.MaxFailedPayments {
			u.SubscriptionState = models.StateFree
		}
		payment = newPayment(ev, models.PaymentFailed)
	}

	u.SubscriptionTier = u.SubscriptionState.TierFor()
	return payment
}

func setRefs(u *models.User, ev *models.BillingEvent) {
	if ev.CustomerID != "" {
		u.BillingCustomerID = ev.CustomerID
	}
	if ev.SubscriptionID != "" {
		u.BillingSubscriptionID = ev.SubscriptionID
	}
}

func isPaidStatus(status string) bool {
	return status == statusActive || status == statusTrialing
}

func newPayment(ev *models.BillingEvent, status string) *models.PaymentTransaction {
	if ev.Invoice == nil {
		return nil
	}
	return &models.PaymentTransaction{
		InvoiceID:       ev.Invoice.ID,
		PaymentIntentID: ev.Invoice.PaymentIntentID,
		SubscriptionID:  ev.SubscriptionID,
		Amount:          ev.Invoice.Amount,
		Currency:        ev.Invoice.Currency,
		Status:          status,
	}
}
