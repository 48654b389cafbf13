package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

const (
	stateBytes          = 32
	maxUsernameAttempts = 20
	maxUsernameLength   = 90
)

// OAuthRepository методы хранилища для входа через внешнего провайдера.
type OAuthRepository interface {
	GetUserByOAuth(ctx context.Context, provider, providerUserID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	LinkOAuthAccount(ctx context.Context, userUID string, p models.OAuthProfile) error
	CreateOAuthUser(ctx context.Context, user models.User, p models.OAuthProfile) (*models.User, error)
}

// OAuthProvider адаптер провайдера: страница согласия и обмен кода на профиль.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Profile(ctx context.Context, code string) (*models.OAuthProfile, error)
}

// OAuthService вход через внешнего провайдера. Привязанный аккаунт находится
// по id у провайдера, иначе аккаунт привязывается к пользователю с тем же
// подтверждённым email, иначе создаётся новый пользователь без пароля.
type OAuthService struct {
	users    OAuthRepository
	provider OAuthProvider
	maker    TokenMaker
	log      *slog.Logger
}

func NewOAuth(users OAuthRepository, provider OAuthProvider, maker TokenMaker, log *slog.Logger) *OAuthService {
	return &OAuthService{
		users:    users,
		provider: provider,
		maker:    maker,
		log:      log,
	}
}

// Begin выпускает случайный state и адрес страницы согласия с ним.
func (s *OAuthService) Begin() (*models.OAuthLogin, error) {
	const op = "services.auth.OAuthBegin"

	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)
	return &models.OAuthLogin{AuthURL: s.provider.AuthCodeURL(state), State: state}, nil
}

// Complete проверяет state из обратного вызова против выданного в Begin,
// получает профиль и выпускает токен доступа.
func (s *OAuthService) Complete(ctx context.Context, code, state, expectedState string) (*models.Session, error) {
	const op = "services.auth.OAuthComplete"

	if state == "" || expectedState == "" ||
		subtle.ConstantTimeCompare([]byte(state), []byte(expectedState)) != 1 {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("invalid state token"))
	}
	if code == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("authorization code is missing"))
	}

	profile, err := s.provider.Profile(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.resolveUser(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%s: %w", op, apperr.Authentication("account is disabled"))
	}

	session, err := newSession(s.maker, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("oauth login", sl.UserUID(u.UID), slog.String("provider", profile.Provider))
	return session, nil
}

func (s *OAuthService) resolveUser(ctx context.Context, p *models.OAuthProfile) (*models.User, error) {
	u, err := s.users.GetUserByOAuth(ctx, p.Provider, p.ProviderUserID)
	if err == nil {
		if err := s.users.LinkOAuthAccount(ctx, u.UID, *p); err != nil {
			return nil, err
		}
		return u, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	// по email привязывается и создаётся только подтверждённый провайдером адрес
	if !p.EmailVerified {
		return nil, apperr.Authentication("email is not verified by the provider")
	}

	u, err = s.users.GetUserByEmail(ctx, p.Email)
	if err == nil {
		if err := s.users.LinkOAuthAccount(ctx, u.UID, *p); err != nil {
			return nil, err
		}
		s.log.Info("oauth account linked", sl.UserUID(u.UID), slog.String("provider", p.Provider))
		return u, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	return s.createUser(ctx, p)
}

// createUser подбирает свободный username от локальной части email:
// bob, bob1, bob2 и так далее.
func (s *OAuthService) createUser(ctx context.Context, p *models.OAuthProfile) (*models.User, error) {
	base := usernameFrom(p.Email)
	for i := 0; i < maxUsernameAttempts; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s%d", base, i)
		}
		u, err := s.users.CreateOAuthUser(ctx, models.User{
			UID:      uuid.NewString(),
			Email:    p.Email,
			Username: name,
		}, *p)
		if errors.Is(err, apperr.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.log.Info("user registered", sl.UserUID(u.UID), slog.String("provider", p.Provider))
		return u, nil
	}
	return nil, apperr.Conflict("could not pick a free username")
}

func usernameFrom(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if local == "" {
		local = "user"
	}
	if len(local) > maxUsernameLength {
		local = local[:maxUsernameLength]
	}
	return local
}
