package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

const userColumns = `uid, email, username, password_hash, is_active, subscription_tier,
	subscription_status, subscription_state, billing_customer_id, billing_subscription_id,
	current_period_end, failed_payment_count, password_changed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u            models.User
		customerID   sql.NullString
		subscription sql.NullString
		periodEnd    sql.NullTime
		pwChangedAt  sql.NullTime
	)
	if err := row.Scan(&u.UID, &u.Email, &u.Username, &u.PasswordHash, &u.IsActive,
		&u.SubscriptionTier, &u.SubscriptionStatus, &u.SubscriptionState,
		&customerID, &subscription, &periodEnd, &u.FailedPaymentCount, &pwChangedAt,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.BillingCustomerID = customerID.String
	u.BillingSubscriptionID = subscription.String
	if periodEnd.Valid {
		t := periodEnd.Time
		u.CurrentPeriodEnd = &t
	}
	if pwChangedAt.Valid {
		t := pwChangedAt.Time
		u.PasswordChangedAt = &t
	}
	return &u, nil
}

// CreateUser сохраняет нового пользователя на бесплатном уровне.
// Занятые email или username возвращают apperr.ErrConflict.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO users (uid, email, username, password_hash)
			  VALUES ($1, $2, $3, $4)
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query,
		user.UID, strings.ToLower(user.Email), user.Username, user.PasswordHash))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(userUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE uid = $1`, userUID))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

// UpdateUserProfile меняет email и/или username.
func (s *Storage) UpdateUserProfile(ctx context.Context, userUID string, patch models.UserPatch) (*models.User, error) {
	const op = "storage.UpdateUserProfile"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	var email sql.NullString
	if patch.Email != nil {
		email = sql.NullString{String: strings.ToLower(*patch.Email), Valid: true}
	}
	var username sql.NullString
	if patch.Username != nil {
		username = sql.NullString{String: *patch.Username, Valid: true}
	}

	query := `UPDATE users
			  SET email = COALESCE($2, email),
			      username = COALESCE($3, username),
			      updated_at = NOW()
			  WHERE uid = $1
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID, email, username))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

// UpdatePassword сохраняет новый хеш пароля и время смены: токены,
// выпущенные раньше, перестают приниматься.
func (s *Storage) UpdatePassword(ctx context.Context, userUID, passwordHash string) error {
	const op = "storage.UpdatePassword"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, password_changed_at = NOW(), updated_at = NOW() WHERE uid = $1`, userUID, passwordHash)
	if err != nil {
		return mapErr(op, err)
	}
	return expectOne(op, res)
}

// SetBillingCustomer запоминает идентификатор клиента у платёжного провайдера,
// если он ещё не задан, и возвращает тот, что сохранён в итоге. При гонке
// двух запросов побеждает первый записанный.
func (s *Storage) SetBillingCustomer(ctx context.Context, userUID, customerID string) (string, error) {
	const op = "storage.SetBillingCustomer"
	if err := ctxDone(ctx, op); err != nil {
		return "", err
	}

	var stored string
	err := s.DB.QueryRowContext(ctx,
		`UPDATE users SET billing_customer_id = $2, updated_at = NOW()
		 WHERE uid = $1 AND billing_customer_id IS NULL
		 RETURNING billing_customer_id`, userUID, customerID).Scan(&stored)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", mapErr(op, err)
	}

	var existing sql.NullString
	err = s.DB.QueryRowContext(ctx,
		`SELECT billing_customer_id FROM users WHERE uid = $1`, userUID).Scan(&existing)
	if err != nil {
		return "", mapErr(op, err)
	}
	if !existing.Valid {
		return "", fmt.Errorf("%s: billing customer was not stored", op)
	}
	return existing.String, nil
}

// FindUserByBillingRef ищет пользователя по ссылке на подписку, затем по
// клиенту провайдера, затем по uid из метаданных события.
func (s *Storage) FindUserByBillingRef(ctx context.Context, subscriptionID, customerID, userUID string) (string, error) {
	const op = "storage.FindUserByBillingRef"
	if err := ctxDone(ctx, op); err != nil {
		return "", err
	}

	type lookup struct {
		query string
		arg   string
	}
	lookups := []lookup{
		{`SELECT uid FROM users WHERE billing_subscription_id = $1 LIMIT 1`, subscriptionID},
		{`SELECT uid FROM users WHERE billing_customer_id = $1`, customerID},
	}
	if _, err := uuid.Parse(userUID); err == nil {
		lookups = append(lookups, lookup{`SELECT uid FROM users WHERE uid = $1`, userUID})
	}

	for _, l := range lookups {
		if l.arg == "" {
			continue
		}
		var uid string
		err := s.DB.QueryRowContext(ctx, l.query, l.arg).Scan(&uid)
		if err == nil {
			return uid, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}
	return "", fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
}

func expectOne(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	return nil
}
