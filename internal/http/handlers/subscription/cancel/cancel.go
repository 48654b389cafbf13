// Package cancel реализует HTTP-обработчик отмены подписки в конце оплаченного периода.
package cancel

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-freemium/internal/http/response"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Cancel(ctx context.Context, userUID string) (*models.Cancellation, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отменить подписку
// @Description Подписка отменяется в конце текущего периода, доступ сохраняется до этого момента.
// @Tags Subscription
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.Cancellation}
// @Failure 404 {object} response.ErrorResponse "Нет активной подписки"
// @Failure 502 {object} response.ErrorResponse "Платёжный провайдер недоступен"
// @Router /subscription/cancel [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user uid not found in context")
		response.Unauthorized(w, r)
		return
	}

	res, err := h.service.Cancel(r.Context(), userUID)
	if err != nil {
		log.Error("failed to cancel subscription", sl.Err(err), sl.UserUID(userUID))
		response.Fail(w, r, err)
		return
	}

	log.Info("subscription cancellation requested", sl.UserUID(userUID))
	render.JSON(w, r, response.StatusOKWithData(res))
}
