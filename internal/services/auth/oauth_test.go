package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	customjwt "github.com/magabrotheeeer/todo-freemium/internal/lib/jwt"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
	"github.com/magabrotheeeer/todo-freemium/internal/services/auth"
)

type OAuthRepoMock struct {
	mock.Mock
}

func (m *OAuthRepoMock) GetUserByOAuth(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	args := m.Called(ctx, provider, providerUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *OAuthRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *OAuthRepoMock) LinkOAuthAccount(ctx context.Context, userUID string, p models.OAuthProfile) error {
	return m.Called(ctx, userUID, p).Error(0)
}

func (m *OAuthRepoMock) CreateOAuthUser(ctx context.Context, user models.User, p models.OAuthProfile) (*models.User, error) {
	args := m.Called(ctx, user, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type ProviderMock struct {
	mock.Mock
}

func (m *ProviderMock) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + url.QueryEscape(state)
}

func (m *ProviderMock) Profile(ctx context.Context, code string) (*models.OAuthProfile, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OAuthProfile), args.Error(1)
}

func newOAuthService(repo *OAuthRepoMock, provider *ProviderMock) *auth.OAuthService {
	maker := customjwt.NewJWTMaker("test-secret", 30*time.Minute)
	return auth.NewOAuth(repo, provider, maker, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func googleProfile(verified bool) *models.OAuthProfile {
	return &models.OAuthProfile{Provider: "google", ProviderUserID: "g-1", Email: "bob@gmail.com", EmailVerified: verified}
}

func TestOAuthService_Begin(t *testing.T) {
	s := newOAuthService(new(OAuthRepoMock), new(ProviderMock))

	first, err := s.Begin()
	require.NoError(t, err)
	second, err := s.Begin()
	require.NoError(t, err)

	assert.Len(t, first.State, 43)
	assert.NotEqual(t, first.State, second.State)
	u, err := url.Parse(first.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, first.State, u.Query().Get("state"))
}

func TestOAuthService_Complete(t *testing.T) {
	bob := &models.User{UID: userUID, Email: "bob@gmail.com", IsActive: true}

	tests := []struct {
		name       string
		state      string
		setupMocks func(r *OAuthRepoMock, p *ProviderMock)
		wantErr    error
	}{
		{
			name:  "linked account signs in",
			state: "s-1",
			setupMocks: func(r *OAuthRepoMock, p *ProviderMock) {
				p.On("Profile", mock.Anything, "code").Return(googleProfile(true), nil)
				r.On("GetUserByOAuth", mock.Anything, "google", "g-1").Return(bob, nil)
				r.On("LinkOAuthAccount", mock.Anything, userUID, *googleProfile(true)).Return(nil)
			},
		},
		{
			name:  "verified email links existing user",
			state: "s-1",
			setupMocks: func(r *OAuthRepoMock, p *ProviderMock) {
				p.On("Profile", mock.Anything, "code").Return(googleProfile(true), nil)
				r.On("GetUserByOAuth", mock.Anything, "google", "g-1").Return(nil, apperr.ErrNotFound)
				r.On("GetUserByEmail", mock.Anything, "bob@gmail.com").Return(bob, nil)
				r.On("LinkOAuthAccount", mock.Anything, userUID, *googleProfile(true)).Return(nil)
			},
		},
		{
			name:  "new user gets next free username",
			state: "s-1",
			setupMocks: func(r *OAuthRepoMock, p *ProviderMock) {
				p.On("Profile", mock.Anything, "code").Return(googleProfile(true), nil)
				r.On("GetUserByOAuth", mock.Anything, "google", "g-1").Return(nil, apperr.ErrNotFound)
				r.On("GetUserByEmail", mock.Anything, "bob@gmail.com").Return(nil, apperr.ErrNotFound)
				r.On("CreateOAuthUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Username == "bob"
				}), mock.Anything).Return(nil, apperr.ErrConflict).Once()
				r.On("CreateOAuthUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Username == "bob1" && u.Email == "bob@gmail.com" && u.PasswordHash == ""
				}), *googleProfile(true)).Return(bob, nil).Once()
			},
		},
		{
			name:       "state mismatch",
			state:      "forged",
			setupMocks: func(_ *OAuthRepoMock, _ *ProviderMock) {},
			wantErr:    apperr.ErrValidation,
		},
		{
			name:       "missing state",
			state:      "",
			setupMocks: func(_ *OAuthRepoMock, _ *ProviderMock) {},
			wantErr:    apperr.ErrValidation,
		},
		{
			name:  "unverified email is not linked",
			state: "s-1",
			setupMocks: func(r *OAuthRepoMock, p *ProviderMock) {
				p.On("Profile", mock.Anything, "code").Return(googleProfile(false), nil)
				r.On("GetUserByOAuth", mock.Anything, "google", "g-1").Return(nil, apperr.ErrNotFound)
			},
			wantErr: apperr.ErrAuthentication,
		},
		{
			name:  "disabled account",
			state: "s-1",
			setupMocks: func(r *OAuthRepoMock, p *ProviderMock) {
				p.On("Profile", mock.Anything, "code").Return(googleProfile(true), nil)
				r.On("GetUserByOAuth", mock.Anything, "google", "g-1").
					Return(&models.User{UID: userUID, IsActive: false}, nil)
				r.On("LinkOAuthAccount", mock.Anything, userUID, mock.Anything).Return(nil)
			},
			wantErr: apperr.ErrAuthentication,
		},
		{
			name:  "provider outage",
			state: "s-1",
			setupMocks: func(_ *OAuthRepoMock, p *ProviderMock) {
				p.On("Profile", mock.Anything, "code").Return(nil, apperr.External("google", errors.New("timeout")))
			},
			wantErr: apperr.ErrExternalService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, provider := new(OAuthRepoMock), new(ProviderMock)
			tt.setupMocks(repo, provider)

			session, err := newOAuthService(repo, provider).Complete(context.Background(), "code", tt.state, "s-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "CreateOAuthUser", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "bearer", session.TokenType)
			claims, err := customjwt.NewJWTMaker("test-secret", time.Minute).ParseToken(session.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, userUID, claims.UserUID)
			repo.AssertExpectations(t)
		})
	}
}
