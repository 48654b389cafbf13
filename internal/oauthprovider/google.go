// Package oauthprovider реализует вход через Google поверх golang.org/x/oauth2.
// Отказ Google принять код возвращается как apperr.ErrAuthentication,
// сетевые ошибки и ответы не 200 как apperr.ErrExternalService.
package oauthprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/config"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// ProviderGoogle имя провайдера в таблице oauth_accounts.
const ProviderGoogle = "google"

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Google обменивает код авторизации на профиль пользователя.
type Google struct {
	conf        *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogle создаёт адаптер со стандартными адресами Google.
func NewGoogle(cfg config.Google) *Google {
	return newGoogle(cfg, google.Endpoint, googleUserInfoURL)
}

func newGoogle(cfg config.Google, endpoint oauth2.Endpoint, userInfoURL string) *Google {
	return &Google{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthCodeURL адрес страницы согласия Google с переданным state.
func (g *Google) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Profile обменивает код на токен Google и читает профиль пользователя.
// Токены Google не сохраняются.
func (g *Google) Profile(ctx context.Context, code string) (*models.OAuthProfile, error) {
	const op = "oauthprovider.Google.Profile"

	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return nil, fmt.Errorf("%s: %w", op, apperr.Authentication("google rejected the authorization code"))
		}
		return nil, apperr.External(op, err)
	}

	resp, err := g.conf.Client(ctx, tok).Get(g.userInfoURL)
	if err != nil {
		return nil, apperr.External(op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.External(op, fmt.Errorf("userinfo returned status %d", resp.StatusCode))
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, apperr.External(op, err)
	}
	if info.Sub == "" || info.Email == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("google profile is missing required user information"))
	}

	return &models.OAuthProfile{
		Provider:       ProviderGoogle,
		ProviderUserID: info.Sub,
		Email:          info.Email,
		EmailVerified:  info.EmailVerified,
		Name:           info.Name,
		Picture:        info.Picture,
	}, nil
}
