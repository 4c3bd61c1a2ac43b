package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/palmhaven/booking-api/internal/dto"
	"github.com/palmhaven/booking-api/internal/payments"
	"github.com/palmhaven/booking-api/internal/service"
)

type WebhookHandler struct {
	payClient payments.Client
	svc       service.PaymentService
}

func NewWebhookHandler(payClient payments.Client, svc service.PaymentService) *WebhookHandler {
	return &WebhookHandler{payClient: payClient, svc: svc}
}

func (h *WebhookHandler) RegisterRoutes(public *echo.Group) {
	public.POST("/webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook verifies the provider signature over the raw body
// and hands the normalized event to reconciliation. Duplicate or unknown
// events are acknowledged with 2xx so the provider stops retrying; only a
// bad signature or an infrastructure failure produces a non-2xx.
func (h *WebhookHandler) HandleStripeWebhook(c echo.Context) error {
	// The signature covers the exact delivered bytes: read them before
	// anything can bind or re-serialize the body.
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read request body")
	}

	event, err := h.payClient.VerifyWebhook(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payments.ErrSignature) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.HandleEvent(c.Request().Context(), event); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.WebhookResponse{Received: true})
}
