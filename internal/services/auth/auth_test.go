package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	customjwt "github.com/magabrotheeeer/todo-freemium/internal/lib/jwt"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/password"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
	"github.com/magabrotheeeer/todo-freemium/internal/services/auth"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpdateUserProfile(ctx context.Context, userUID string, patch models.UserPatch) (*models.User, error) {
	args := m.Called(ctx, userUID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpdatePassword(ctx context.Context, userUID, passwordHash string) error {
	return m.Called(ctx, userUID, passwordHash).Error(0)
}

const userUID = "6f1d3c1e-7d0b-4c55-9c1e-4d5e6f7a8b9c"

func newService(repo *UserRepoMock) *auth.Service {
	maker := customjwt.NewJWTMaker("test-secret", 30*time.Minute)
	return auth.New(repo, maker, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func hashed(t *testing.T, raw string) string {
	t.Helper()
	h, err := password.GetHash(raw)
	require.NoError(t, err)
	return h
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name       string
		req        models.RegisterRequest
		setupMocks func(r *UserRepoMock)
		wantErr    error
	}{
		{
			name: "successful registration",
			req:  models.RegisterRequest{Email: " alice@example.com ", Username: "alice", Password: "password123"},
			setupMocks: func(r *UserRepoMock) {
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					_, err := uuid.Parse(u.UID)
					return err == nil &&
						u.Email == "alice@example.com" &&
						u.Username == "alice" &&
						password.CompareHash(u.PasswordHash, "password123") == nil
				})).Return(&models.User{UID: userUID, Email: "alice@example.com", SubscriptionTier: models.TierFree}, nil).Once()
			},
		},
		{
			name:       "short password",
			req:        models.RegisterRequest{Email: "a@example.com", Username: "alice", Password: "short"},
			setupMocks: func(_ *UserRepoMock) {},
			wantErr:    apperr.ErrValidation,
		},
		{
			name: "email taken",
			req:  models.RegisterRequest{Email: "a@example.com", Username: "alice", Password: "password123"},
			setupMocks: func(r *UserRepoMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).Return(nil, apperr.ErrConflict).Once()
			},
			wantErr: apperr.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			tt.setupMocks(repo)

			u, err := newService(repo).Register(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, u)
			} else {
				require.NoError(t, err)
				assert.Equal(t, models.TierFree, u.SubscriptionTier)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	active := &models.User{UID: userUID, Email: "alice@example.com", IsActive: true, PasswordHash: hashed(t, "password123")}
	disabled := *active
	disabled.IsActive = false

	tests := []struct {
		name       string
		password   string
		setupMocks func(r *UserRepoMock)
		wantErr    error
	}{
		{
			name:     "successful login",
			password: "password123",
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(active, nil)
			},
		},
		{
			name:     "wrong password",
			password: "nope-nope",
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(active, nil)
			},
			wantErr: apperr.ErrAuthentication,
		},
		{
			name:     "unknown email",
			password: "password123",
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(nil, apperr.ErrNotFound)
			},
			wantErr: apperr.ErrAuthentication,
		},
		{
			name:     "disabled account",
			password: "password123",
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "alice@example.com").Return(&disabled, nil)
			},
			wantErr: apperr.ErrAuthentication,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			tt.setupMocks(repo)

			session, err := newService(repo).Login(context.Background(),
				models.LoginRequest{Email: "alice@example.com", Password: tt.password})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.NotErrorIs(t, err, apperr.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "bearer", session.TokenType)
			assert.Equal(t, int64(1800), session.ExpiresIn)

			claims, err := customjwt.NewJWTMaker("test-secret", time.Minute).ParseToken(session.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, userUID, claims.UserUID)
			assert.Equal(t, "alice@example.com", claims.Email)
		})
	}
}

func TestAuthService_UpdateProfile(t *testing.T) {
	repo := new(UserRepoMock)
	name := " bob "
	trimmed := "bob"
	repo.On("UpdateUserProfile", mock.Anything, userUID, models.UserPatch{Username: &trimmed}).
		Return(&models.User{UID: userUID, Username: "bob"}, nil)

	u, err := newService(repo).UpdateProfile(context.Background(), userUID, models.ProfileRequest{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)

	_, err = newService(new(UserRepoMock)).UpdateProfile(context.Background(), userUID, models.ProfileRequest{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	taken := "taken@example.com"
	conflictRepo := new(UserRepoMock)
	conflictRepo.On("UpdateUserProfile", mock.Anything, userUID, mock.Anything).Return(nil, apperr.ErrConflict)
	_, err = newService(conflictRepo).UpdateProfile(context.Background(), userUID, models.ProfileRequest{Email: &taken})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAuthService_ChangePassword(t *testing.T) {
	user := &models.User{UID: userUID, PasswordHash: hashed(t, "password123")}

	t.Run("success", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUser", mock.Anything, userUID).Return(user, nil)
		repo.On("UpdatePassword", mock.Anything, userUID, mock.MatchedBy(func(h string) bool {
			return password.CompareHash(h, "brand-new-pass") == nil
		})).Return(nil)

		err := newService(repo).ChangePassword(context.Background(), userUID,
			models.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "brand-new-pass"})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUser", mock.Anything, userUID).Return(user, nil)

		err := newService(repo).ChangePassword(context.Background(), userUID,
			models.ChangePasswordRequest{CurrentPassword: "guess-guess", NewPassword: "brand-new-pass"})
		assert.ErrorIs(t, err, apperr.ErrAuthentication)
		repo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("new password too short", func(t *testing.T) {
		err := newService(new(UserRepoMock)).ChangePassword(context.Background(), userUID,
			models.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "short"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestAuthService_CheckSession(t *testing.T) {
	changedAt := time.Date(2026, 10, 1, 12, 0, 0, 500_000_000, time.UTC)

	tests := []struct {
		name     string
		user     *models.User
		repoErr  error
		issuedAt time.Time
		wantErr  error
	}{
		{
			name:     "active user",
			user:     &models.User{UID: userUID, IsActive: true},
			issuedAt: changedAt,
		},
		{
			name:     "disabled user",
			user:     &models.User{UID: userUID, IsActive: false},
			issuedAt: changedAt,
			wantErr:  apperr.ErrAuthentication,
		},
		{
			name:     "token older than password change",
			user:     &models.User{UID: userUID, IsActive: true, PasswordChangedAt: &changedAt},
			issuedAt: changedAt.Add(-time.Hour),
			wantErr:  apperr.ErrAuthentication,
		},
		{
			name:     "token issued in the same second as the change",
			user:     &models.User{UID: userUID, IsActive: true, PasswordChangedAt: &changedAt},
			issuedAt: changedAt.Truncate(time.Second),
		},
		{
			name:     "deleted user",
			repoErr:  apperr.ErrNotFound,
			issuedAt: changedAt,
			wantErr:  apperr.ErrAuthentication,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			if tt.repoErr != nil {
				repo.On("GetUser", mock.Anything, userUID).Return(nil, tt.repoErr)
			} else {
				repo.On("GetUser", mock.Anything, userUID).Return(tt.user, nil)
			}

			err := newService(repo).CheckSession(context.Background(), userUID, tt.issuedAt)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	t.Run("storage failure is not an auth error", func(t *testing.T) {
		repo := new(UserRepoMock)
		repo.On("GetUser", mock.Anything, userUID).Return(nil, errors.New("connection reset"))

		err := newService(repo).CheckSession(context.Background(), userUID, changedAt)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperr.ErrAuthentication)
	})
}
