// Package middlewarectx содержит HTTP middleware для проверки токенов доступа
// и ограничения частоты запросов.
//
// JWTMiddleware берёт токен из заголовка Authorization (Bearer) или из cookie
// access_token, проверяет его и кладёт uid пользователя в контекст запроса.
// Если задан SessionChecker, токен дополнительно сверяется с текущим
// состоянием пользователя.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/http/response"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/jwt"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserUID — ключ для uid пользователя в контексте
	UserUID Key = "user_uid"
	// Email — ключ для email пользователя в контексте
	Email Key = "email"
)

// TokenCookie имя cookie, в которой браузерный клиент хранит токен.
const TokenCookie = "access_token"

// TokenParser проверяет токен доступа.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// SessionChecker отклоняет токены пользователей, которые отключены или
// сменили пароль после выпуска токена.
type SessionChecker interface {
	CheckSession(ctx context.Context, userUID string, issuedAt time.Time) error
}

// JWTMiddleware возвращает HTTP middleware, который пропускает запрос дальше
// только с действительным токеном, иначе отвечает 401. sessions может быть nil.
func JWTMiddleware(parser TokenParser, sessions SessionChecker, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			tokenStr, ok := tokenFromRequest(r)
			if !ok {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.ErrorWithCode("missing or invalid authorization header", response.CodeUnauthorized))
				return
			}

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.ErrorWithCode("invalid or expired token", response.CodeUnauthorized))
				return
			}

			if sessions != nil {
				var issuedAt time.Time
				if claims.IssuedAt != nil {
					issuedAt = claims.IssuedAt.Time
				}
				if err := sessions.CheckSession(r.Context(), claims.UserUID, issuedAt); err != nil {
					if !errors.Is(err, apperr.ErrAuthentication) {
						log.Error("failed to check session", sl.Err(err))
						response.Fail(w, r, err)
						return
					}
					log.Warn("session rejected", sl.UserUID(claims.UserUID), sl.Err(err))
					render.Status(r, http.StatusUnauthorized)
					render.JSON(w, r, response.ErrorWithCode("session is no longer valid", response.CodeUnauthorized))
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserUID, claims.UserUID)
			ctx = context.WithValue(ctx, Email, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserUIDFrom возвращает uid пользователя, положенный JWTMiddleware.
func UserUIDFrom(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UserUID).(string)
	return uid, ok && uid != ""
}

func tokenFromRequest(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		tokenStr, found := strings.CutPrefix(header, "Bearer ")
		tokenStr = strings.TrimSpace(tokenStr)
		return tokenStr, found && tokenStr != ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}
