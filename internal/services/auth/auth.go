// Package auth реализует регистрацию, вход и управление профилем.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/password"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// UserRepository интерфейс репозитория пользователей
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, userUID string, patch models.UserPatch) (*models.User, error)
	UpdatePassword(ctx context.Context, userUID, passwordHash string) error
}

// TokenMaker выпускает токены доступа.
type TokenMaker interface {
	GenerateToken(userUID, email string) (string, error)
	TTL() time.Duration
}

// Service бизнес-логика аутентификации
type Service struct {
	users UserRepository
	maker TokenMaker
	log   *slog.Logger
}

func New(users UserRepository, maker TokenMaker, log *slog.Logger) *Service {
	return &Service{
		users: users,
		maker: maker,
		log:   log,
	}
}

// Register создаёт пользователя на бесплатном уровне.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	const op = "services.auth.Register"

	if len(req.Password) < password.MinLength {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation(
			fmt.Sprintf("password must be at least %d characters", password.MinLength)))
	}
	hash, err := password.GetHash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("password is too long"))
	}

	u, err := s.users.CreateUser(ctx, models.User{
		UID:          uuid.NewString(),
		Email:        strings.TrimSpace(req.Email),
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
	})
	if errors.Is(err, apperr.ErrConflict) {
		return nil, fmt.Errorf("%s: %w", op, apperr.Conflict("email or username already registered"))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", sl.UserUID(u.UID))
	return u, nil
}

// Login проверяет пароль и выпускает токен. Неизвестный email и неверный
// пароль неразличимы для клиента.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.Session, error) {
	const op = "services.auth.Login"

	u, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, apperr.Authentication("invalid email or password"))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(u.PasswordHash, req.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.Authentication("invalid email or password"))
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%s: %w", op, apperr.Authentication("account is disabled"))
	}

	session, err := newSession(s.maker, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}

func newSession(maker TokenMaker, u *models.User) (*models.Session, error) {
	token, err := maker.GenerateToken(u.UID, u.Email)
	if err != nil {
		return nil, err
	}
	return &models.Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(maker.TTL().Seconds()),
		User:        u,
	}, nil
}

func (s *Service) Me(ctx context.Context, userUID string) (*models.User, error) {
	const op = "services.auth.Me"
	u, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateProfile меняет email и/или username.
func (s *Service) UpdateProfile(ctx context.Context, userUID string, req models.ProfileRequest) (*models.User, error) {
	const op = "services.auth.UpdateProfile"

	var patch models.UserPatch
	if req.Email != nil {
		e := strings.TrimSpace(*req.Email)
		patch.Email = &e
	}
	if req.Username != nil {
		n := strings.TrimSpace(*req.Username)
		patch.Username = &n
	}
	if patch.Email == nil && patch.Username == nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("nothing to update"))
	}

	u, err := s.users.UpdateUserProfile(ctx, userUID, patch)
	if errors.Is(err, apperr.ErrConflict) {
		return nil, fmt.Errorf("%s: %w", op, apperr.Conflict("email or username already taken"))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// ChangePassword требует текущий пароль.
func (s *Service) ChangePassword(ctx context.Context, userUID string, req models.ChangePasswordRequest) error {
	const op = "services.auth.ChangePassword"

	if len(req.NewPassword) < password.MinLength {
		return fmt.Errorf("%s: %w", op, apperr.Validation(
			fmt.Sprintf("password must be at least %d characters", password.MinLength)))
	}
	u, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(u.PasswordHash, req.CurrentPassword); err != nil {
		return fmt.Errorf("%s: %w", op, apperr.Authentication("current password is incorrect"))
	}

	hash, err := password.GetHash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, apperr.Validation("password is too long"))
	}
	if err := s.users.UpdatePassword(ctx, userUID, hash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password changed", sl.UserUID(userUID))
	return nil
}

// CheckSession отклоняет токен, если пользователь удалён или отключён, либо
// токен выпущен до последней смены пароля. Время выпуска в токене хранится
// с точностью до секунды.
func (s *Service) CheckSession(ctx context.Context, userUID string, issuedAt time.Time) error {
	const op = "services.auth.CheckSession"

	u, err := s.users.GetUser(ctx, userUID)
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, apperr.Authentication("user no longer exists"))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !u.IsActive {
		return fmt.Errorf("%s: %w", op, apperr.Authentication("account is disabled"))
	}
	if u.PasswordChangedAt != nil && issuedAt.Before(u.PasswordChangedAt.Truncate(time.Second)) {
		return fmt.Errorf("%s: %w", op, apperr.Authentication("token was issued before the last password change"))
	}
	return nil
}
