package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/palmhaven/booking-api/internal/dto"
	"github.com/palmhaven/booking-api/internal/models"
	"github.com/palmhaven/booking-api/internal/repository"
	"github.com/palmhaven/booking-api/internal/service"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(public, admin *echo.Group) {
	public.POST("/bookings", h.CreateBooking)
	public.GET("/bookings/:id", h.GetBooking)

	admin.GET("/bookings", h.ListBookings)
	admin.PUT("/bookings/:id", h.AdminUpdateBooking)
	admin.DELETE("/bookings/:id", h.CancelBooking)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	checkIn, _ := time.ParseInLocation(dateLayout, req.CheckIn, time.UTC)
	checkOut, _ := time.ParseInLocation(dateLayout, req.CheckOut, time.UTC)

	result, err := h.svc.CreateBooking(c.Request().Context(), service.CreateBookingInput{
		PropertyID:    req.PropertyID,
		GuestName:     req.GuestName,
		GuestEmail:    req.GuestEmail,
		GuestPhone:    req.GuestPhone,
		Adults:        req.Adults,
		Children:      req.Children,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		var ce *service.ConflictError
		switch {
		case errors.As(err, &ce):
			return err // rendered as 409 with conflict details
		case errors.Is(err, service.ErrPropertyNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrPropertyInactive),
			errors.Is(err, service.ErrInvalidDateRange):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrCheckoutFailed):
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusCreated, dto.CreateBookingResponse{
		Booking:           dto.ToBookingResponse(result.Booking),
		CheckoutSessionID: result.CheckoutSessionID,
		CheckoutURL:       result.CheckoutURL,
	})
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), uint(id))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "booking not found")
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) ListBookings(c echo.Context) error {
	var filter repository.BookingFilter
	if p := c.QueryParam("property_id"); p != "" {
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid property_id")
		}
		filter.PropertyID = uint(id)
	}
	if s := c.QueryParam("status"); s != "" {
		bs := models.BookingStatus(s)
		filter.Status = &bs
	}

	bookings, err := h.svc.ListBookings(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = dto.ToBookingResponse(&b)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) AdminUpdateBooking(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	var req dto.AdminUpdateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var in service.AdminUpdateInput
	if req.Status != nil {
		s := models.BookingStatus(*req.Status)
		in.Status = &s
	}
	if req.PaymentStatus != nil {
		p := models.PaymentStatus(*req.PaymentStatus)
		in.PaymentStatus = &p
	}
	in.PaymentIntentID = req.PaymentIntentID

	booking, err := h.svc.AdminUpdate(c.Request().Context(), uint(id), in)
	if err != nil {
		var ce *service.ConflictError
		switch {
		case errors.As(err, &ce):
			return err
		case errors.Is(err, service.ErrBookingNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrPaymentRefRequired):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}

	booking, err := h.svc.CancelBooking(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrBookingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}
