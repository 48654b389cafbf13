package todoapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/todo-freemium/internal/cache"
	"github.com/magabrotheeeer/todo-freemium/internal/config"
	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	customjwt "github.com/magabrotheeeer/todo-freemium/internal/lib/jwt"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
	"github.com/magabrotheeeer/todo-freemium/internal/migrations"
	"github.com/magabrotheeeer/todo-freemium/internal/oauthprovider"
	"github.com/magabrotheeeer/todo-freemium/internal/paymentprovider"
	authservice "github.com/magabrotheeeer/todo-freemium/internal/services/auth"
	subservice "github.com/magabrotheeeer/todo-freemium/internal/services/subscription"
	todoservice "github.com/magabrotheeeer/todo-freemium/internal/services/todo"
	webhookservice "github.com/magabrotheeeer/todo-freemium/internal/services/webhook"
	"github.com/magabrotheeeer/todo-freemium/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-приложение со всеми зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	amqp   *amqp.Connection
}

// New подключается к хранилищам, применяет миграции и собирает маршруты.
// Redis и RabbitMQ необязательны: без адреса кеш и публикация отключаются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.todoapi.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	version, err := migrations.Run(db.DB, cfg.MigrationsPath)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("migrations applied", slog.Uint64("version", uint64(version)))

	app := &App{logger: logger, db: db}

	var store cache.Store = cache.Noop{}
	if cfg.AddressRedis != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.cache = c
		store = c
	} else {
		logger.Warn("redis address is empty, todo list cache disabled")
	}

	var publisher webhookservice.Publisher = rabbitmq.Noop{}
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.Retries, cfg.RetryDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.amqp = conn
		ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.BillingQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		publisher = rabbitmq.NewPublisher(ch, cfg.Exchange)
	} else {
		logger.Warn("rabbitmq url is empty, tier change events are not published")
	}

	if cfg.Stripe.SecretKey == "" {
		logger.Warn("stripe secret key is empty, billing calls will fail")
	}
	provider := paymentprovider.New(cfg.Stripe.SecretKey, nil)

	maker := customjwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	subscriptionService := subservice.New(db, provider, subservice.Config{
		FreeTierTodoLimit: cfg.FreeTierTodoLimit,
		PremiumPriceID:    cfg.PremiumPriceID,
		FrontendOrigin:    cfg.DefaultOrigin(),
		AllowedOrigins:    cfg.AllowedOrigins,
	}, logger)

	authService := authservice.New(db, maker, logger)

	services := Services{
		Auth:         authService,
		Todo:         todoservice.New(db, store, subscriptionService, cfg.CacheTTL, logger),
		Subscription: subscriptionService,
		Webhook: webhookservice.New(db, provider, publisher, cfg.WebhookSecret,
			webhookservice.Policy{MaxFailedPayments: cfg.MaxFailedPayments}, logger),
		Tokens:      maker,
		Sessions:    authService,
		Health:      db,
		AuthLimiter: middlewarectx.NewIPLimiter(cfg.AuthRPS, cfg.AuthBurst),
	}
	if cfg.Google.Enabled() {
		services.Google = authservice.NewOAuth(db, oauthprovider.NewGoogle(cfg.Google), maker, logger)
		services.OAuthStateTTL = cfg.Google.StateTTL
		services.FrontendOrigin = cfg.DefaultOrigin()
	} else {
		logger.Info("google client id is empty, google sign-in disabled")
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, services)

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает HTTP-сервер и блокируется до отмены ctx или ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Warn("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", sl.Err(err))
	}
}
