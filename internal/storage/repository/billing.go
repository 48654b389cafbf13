package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// ApplyFunc изменяет заблокированного пользователя по событию и возвращает
// транзакцию оплаты для записи в журнал (или nil).
type ApplyFunc = func(u *models.User) *models.PaymentTransaction

// SubscriptionEventExists проверяет, обрабатывалось ли событие с таким id.
func (s *Storage) SubscriptionEventExists(ctx context.Context, eventID string) (bool, error) {
	const op = "storage.SubscriptionEventExists"
	if err := ctxDone(ctx, op); err != nil {
		return false, err
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscription_events WHERE event_id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// RecordSubscriptionEvent записывает событие без изменения пользователя
// (unmatched, ignored). Возвращает false, если событие уже было записано.
func (s *Storage) RecordSubscriptionEvent(ctx context.Context, ev models.SubscriptionEvent) (bool, error) {
	const op = "storage.RecordSubscriptionEvent"
	if err := ctxDone(ctx, op); err != nil {
		return false, err
	}

	inserted, err := insertEvent(ctx, s.DB, ev)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return inserted, nil
}

// ApplySubscriptionEvent в одной транзакции записывает событие, блокирует
// строку пользователя, применяет apply, сохраняет пользователя и транзакцию
// оплаты. Если событие уже записано (в том числе параллельным запросом),
// транзакция откатывается и возвращается false.
func (s *Storage) ApplySubscriptionEvent(ctx context.Context, ev models.SubscriptionEvent, apply ApplyFunc) (bool, error) {
	const op = "storage.ApplySubscriptionEvent"
	if err := ctxDone(ctx, op); err != nil {
		return false, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	inserted, err := insertEvent(ctx, tx, ev)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !inserted {
		return false, nil
	}

	u, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE uid = $1 FOR UPDATE`, ev.UserUID))
	if err != nil {
		return false, mapErr(op, err)
	}

	payment := apply(u)

	var periodEnd sql.NullTime
	if u.CurrentPeriodEnd != nil {
		periodEnd = sql.NullTime{Time: *u.CurrentPeriodEnd, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `UPDATE users
			  SET subscription_tier = $2,
			      subscription_status = $3,
			      subscription_state = $4,
			      billing_customer_id = $5,
			      billing_subscription_id = $6,
			      current_period_end = $7,
			      failed_payment_count = $8,
			      updated_at = NOW()
			  WHERE uid = $1`,
		u.UID, u.SubscriptionTier, u.SubscriptionStatus, u.SubscriptionState,
		nullString(u.BillingCustomerID), nullString(u.BillingSubscriptionID),
		periodEnd, u.FailedPaymentCount)
	if err != nil {
		return false, mapErr(op, err)
	}

	if payment != nil {
		payment.UserUID = u.UID
		if err := insertPayment(ctx, tx, payment); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// ListPaymentTransactions возвращает журнал оплат пользователя, новые первыми.
func (s *Storage) ListPaymentTransactions(ctx context.Context, userUID string, page models.Page) ([]*models.PaymentTransaction, error) {
	const op = "storage.ListPaymentTransactions"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id, user_uid, invoice_id, payment_intent_id,
			      subscription_id, amount, currency, status, created_at
			  FROM payment_transactions
			  WHERE user_uid = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`, userUID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.PaymentTransaction, 0)
	for rows.Next() {
		var (
			p             models.PaymentTransaction
			intent, subID sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.UserUID, &p.InvoiceID, &intent, &subID,
			&p.Amount, &p.Currency, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		p.PaymentIntentID = intent.String
		p.SubscriptionID = subID.String
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEvent(ctx context.Context, e execer, ev models.SubscriptionEvent) (bool, error) {
	payload := ev.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	res, err := e.ExecContext(ctx, `INSERT INTO subscription_events
			      (event_id, event_type, user_uid, subscription_id, outcome, payload)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (event_id) DO NOTHING`,
		ev.EventID, ev.EventType, nullString(ev.UserUID), nullString(ev.SubscriptionID),
		string(ev.Outcome), string(payload))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func insertPayment(ctx context.Context, e execer, p *models.PaymentTransaction) error {
	_, err := e.ExecContext(ctx, `INSERT INTO payment_transactions
			      (user_uid, invoice_id, payment_intent_id, subscription_id, amount, currency, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.UserUID, p.InvoiceID, nullString(p.PaymentIntentID), nullString(p.SubscriptionID),
		p.Amount, p.Currency, p.Status)
	return err
}
