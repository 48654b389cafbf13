// Package todoapi собирает HTTP-приложение: хранилище, сервисы и маршруты.
package todoapi

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/auth/googlecallback"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/auth/googlelogin"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/auth/me"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/auth/password"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/auth/profile"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/health"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/subscription/cancel"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/subscription/checkout"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/subscription/payments"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/subscription/portal"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/subscription/status"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/subscription/webhook"
	todocreate "github.com/magabrotheeeer/todo-freemium/internal/http/handlers/todo/create"
	todolistall "github.com/magabrotheeeer/todo-freemium/internal/http/handlers/todo/list"
	todoread "github.com/magabrotheeeer/todo-freemium/internal/http/handlers/todo/read"
	todoremove "github.com/magabrotheeeer/todo-freemium/internal/http/handlers/todo/remove"
	"github.com/magabrotheeeer/todo-freemium/internal/http/handlers/todo/toggle"
	todoupdate "github.com/magabrotheeeer/todo-freemium/internal/http/handlers/todo/update"
	listcreate "github.com/magabrotheeeer/todo-freemium/internal/http/handlers/todolist/create"
	listall "github.com/magabrotheeeer/todo-freemium/internal/http/handlers/todolist/list"
	listread "github.com/magabrotheeeer/todo-freemium/internal/http/handlers/todolist/read"
	listremove "github.com/magabrotheeeer/todo-freemium/internal/http/handlers/todolist/remove"
	listupdate "github.com/magabrotheeeer/todo-freemium/internal/http/handlers/todolist/update"
	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-freemium/internal/metrics"
	authservice "github.com/magabrotheeeer/todo-freemium/internal/services/auth"
	subservice "github.com/magabrotheeeer/todo-freemium/internal/services/subscription"
	todoservice "github.com/magabrotheeeer/todo-freemium/internal/services/todo"
	webhookservice "github.com/magabrotheeeer/todo-freemium/internal/services/webhook"
)

// Services зависимости, которые нужны маршрутам.
type Services struct {
	Auth         *authservice.Service
	Todo         *todoservice.Service
	Subscription *subservice.Service
	Webhook      *webhookservice.Reconciler
	Tokens       middlewarectx.TokenParser
	Sessions     middlewarectx.SessionChecker
	Health       health.Pinger
	AuthLimiter  *middlewarectx.IPLimiter

	// Google nil, если вход через Google не настроен.
	Google         *authservice.OAuthService
	OAuthStateTTL  time.Duration
	FrontendOrigin string
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		metrics.Middleware,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.New(logger, s.Health).ServeHTTP)

		// Открытые конечные точки с ограничением частоты
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(s.AuthLimiter, logger))
			r.Post("/auth/register", register.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/login", login.New(logger, s.Auth).ServeHTTP)
			if s.Google != nil {
				r.Get("/auth/google/login", googlelogin.New(logger, s.Google, s.OAuthStateTTL).ServeHTTP)
				r.Get("/auth/google/callback", googlecallback.New(logger, s.Google, s.FrontendOrigin).ServeHTTP)
			}
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Tokens, s.Sessions, logger))

			r.Post("/auth/logout", logout.New(logger).ServeHTTP)
			r.Get("/auth/me", me.New(logger, s.Auth).ServeHTTP)
			r.Patch("/auth/me", profile.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/change-password", password.New(logger, s.Auth).ServeHTTP)

			r.Get("/todo-lists", listall.New(logger, s.Todo).ServeHTTP)
			r.Post("/todo-lists", listcreate.New(logger, s.Todo).ServeHTTP)
			r.Get("/todo-lists/{id}", listread.New(logger, s.Todo).ServeHTTP)
			r.Patch("/todo-lists/{id}", listupdate.New(logger, s.Todo).ServeHTTP)
			r.Delete("/todo-lists/{id}", listremove.New(logger, s.Todo).ServeHTTP)

			r.Get("/todos", todolistall.New(logger, s.Todo).ServeHTTP)
			r.Post("/todos", todocreate.New(logger, s.Todo).ServeHTTP)
			r.Get("/todos/{id}", todoread.New(logger, s.Todo).ServeHTTP)
			r.Patch("/todos/{id}", todoupdate.New(logger, s.Todo).ServeHTTP)
			r.Delete("/todos/{id}", todoremove.New(logger, s.Todo).ServeHTTP)
			r.Post("/todos/{id}/toggle", toggle.New(logger, s.Todo).ServeHTTP)

			r.Get("/subscription/status", status.New(logger, s.Subscription).ServeHTTP)
			r.Post("/subscription/checkout", checkout.New(logger, s.Subscription).ServeHTTP)
			r.Post("/subscription/cancel", cancel.New(logger, s.Subscription).ServeHTTP)
			r.Get("/subscription/portal", portal.New(logger, s.Subscription).ServeHTTP)
			r.Get("/subscription/payments", payments.New(logger, s.Subscription).ServeHTTP)
		})

		// Webhook endpoint (без аутентификации, проверяется подпись)
		r.Post("/subscription/webhook", webhook.New(logger, s.Webhook).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
