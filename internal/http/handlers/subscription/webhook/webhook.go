// Package webhook реализует HTTP-обработчик событий платёжного провайдера.
//
// Тело читается как есть: подпись считается по сырым байтам. Ответ 2xx
// отдаётся только после фиксации изменений, иначе провайдер повторит доставку.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/todo-freemium/internal/apperr"
	"github.com/magabrotheeeer/todo-freemium/internal/http/response"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

// SignatureHeader — заголовок с подписью события.
const SignatureHeader = "Stripe-Signature"

// MaxPayloadBytes ограничивает размер тела события. Счета с большим
// числом позиций весят сотни килобайт.
const MaxPayloadBytes = 1 << 20

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Handle(ctx context.Context, payload []byte, signature string) (models.EventOutcome, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Вебхук платёжного провайдера
// @Description Принимает события подписок и счетов. Повторная доставка того же события ничего не меняет.
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Param Stripe-Signature header string true "Подпись события"
// @Success 200 {object} models.WebhookAck
// @Failure 400 {object} response.ErrorResponse "Некорректное тело события"
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Failure 500 {object} response.ErrorResponse "Событие не сохранено, провайдер повторит доставку"
// @Router /subscription/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	payload, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadBytes+1))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		response.BadRequest(w, r, "failed to read request body")
		return
	}
	if len(payload) > MaxPayloadBytes {
		log.Warn("webhook body too large", slog.Int("size", len(payload)))
		response.BadRequest(w, r, "request body too large")
		return
	}

	outcome, err := h.service.Handle(r.Context(), payload, r.Header.Get(SignatureHeader))
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrAuthentication):
		log.Warn("webhook signature rejected", sl.Err(err))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.ErrorWithCode("invalid signature", response.CodeUnauthorized))
		return
	case errors.Is(err, apperr.ErrValidation):
		log.Warn("malformed webhook event", sl.Err(err))
		response.BadRequest(w, r, "malformed event")
		return
	default:
		log.Error("failed to process webhook event", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ErrorWithCode("event was not processed", response.CodeInternal))
		return
	}

	render.JSON(w, r, models.WebhookAck{Received: true, Outcome: outcome})
}
