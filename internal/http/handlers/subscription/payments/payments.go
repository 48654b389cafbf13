// Package payments реализует HTTP-обработчик истории оплат пользователя.
package payments

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/todo-freemium/internal/http/middlewarectx"
	"github.com/magabrotheeeer/todo-freemium/internal/http/request"
	"github.com/magabrotheeeer/todo-freemium/internal/http/response"
	"github.com/magabrotheeeer/todo-freemium/internal/lib/sl"
	"github.com/magabrotheeeer/todo-freemium/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Payments(ctx context.Context, userUID string, page models.Page) ([]*models.PaymentTransaction, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary История оплат
// @Tags Subscription
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response{data=[]models.PaymentTransaction}
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /subscription/payments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.payments"

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

	page, err := request.Page(r)
	if err != nil {
		log.Warn("invalid pagination", sl.Err(err))
		response.BadRequest(w, r, err.Error())
		return
	}

	list, err := h.service.Payments(r.Context(), userUID, page)
	if err != nil {
		log.Error("failed to list payments", sl.Err(err), sl.UserUID(userUID))
		response.Fail(w, r, err)
		return
	}

	render.JSON(w, r, response.StatusOKWithData(list))
}
