package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// GetUserByOAuth возвращает пользователя, к которому привязан аккаунт провайдера.
func (s *Storage) GetUserByOAuth(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	const op = "storage.GetUserByOAuth"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users
		WHERE uid = (SELECT user_uid FROM oauth_accounts WHERE provider = $1 AND provider_user_id = $2)`,
		provider, providerUserID))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return u, nil
}

// LinkOAuthAccount привязывает аккаунт провайдера к пользователю или обновляет
// данные уже привязанного. Аккаунт, привязанный к другому пользователю,
// возвращает apperr.ErrConflict.
func (s *Storage) LinkOAuthAccount(ctx context.Context, userUID string, p models.OAuthProfile) error {
	const op = "storage.LinkOAuthAccount"
	if err := ctxDone(ctx, op); err != nil {
		return err
	}
	return linkOAuth(ctx, s.DB, op, userUID, p)
}

// CreateOAuthUser создаёт пользователя без пароля вместе с привязкой
// аккаунта провайдера в одной транзакции.
func (s *Storage) CreateOAuthUser(ctx context.Context, user models.User, p models.OAuthProfile) (*models.User, error) {
	const op = "storage.CreateOAuthUser"
	if err := ctxDone(ctx, op); err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	u, err := scanUser(tx.QueryRowContext(ctx, `INSERT INTO users (uid, email, username, password_hash)
			  VALUES ($1, $2, $3, '')
			  RETURNING `+userColumns,
		user.UID, strings.ToLower(user.Email), user.Username))
	if err != nil {
		return nil, mapErr(op, err)
	}
	if err := linkOAuth(ctx, tx, op, u.UID, p); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func linkOAuth(ctx context.Context, q queryRower, op, userUID string, p models.OAuthProfile) error {
	var id int64
	err := q.QueryRowContext(ctx, `INSERT INTO oauth_accounts
			  (user_uid, provider, provider_user_id, provider_email, provider_name, provider_picture)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (provider, provider_user_id) DO UPDATE
			  SET provider_email = EXCLUDED.provider_email,
			      provider_name = EXCLUDED.provider_name,
			      provider_picture = EXCLUDED.provider_picture,
			      updated_at = NOW()
			  WHERE oauth_accounts.user_uid = EXCLUDED.user_uid
			  RETURNING id`,
		userUID, p.Provider, p.ProviderUserID, strings.ToLower(p.Email),
		nullString(p.Name), nullString(p.Picture)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, apperr.Conflict("account is linked to another user"))
	}
	if err != nil {
		return mapErr(op, err)
	}
	return nil
}
