package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/palmhaven/booking-api/internal/dto"
	"github.com/palmhaven/booking-api/internal/models"
	"github.com/palmhaven/booking-api/internal/service"
)

type CalendarHandler struct {
	svc service.CalendarService
}

func NewCalendarHandler(svc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{svc: svc}
}

func (h *CalendarHandler) RegisterRoutes(admin *echo.Group) {
	admin.POST("/calendar-sync", h.RegisterFeed)
	admin.GET("/calendar-sync", h.ListFeeds)
	admin.POST("/calendar-sync/:id/sync", h.SyncFeed)
	admin.POST("/calendar-sync/sync-all", h.SyncAll)
}

func (h *CalendarHandler) RegisterFeed(c echo.Context) error {
	var req dto.RegisterFeedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	feed := &models.CalendarFeed{
		PropertyID: req.PropertyID,
		Platform:   req.Platform,
		URL:        req.URL,
	}
	if err := h.svc.RegisterFeed(c.Request().Context(), feed); err != nil {
		if errors.Is(err, service.ErrPropertyNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid property")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, feed)
}

func (h *CalendarHandler) ListFeeds(c echo.Context) error {
	var propertyID uint
	if p := c.QueryParam("property_id"); p != "" {
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid property_id")
		}
		propertyID = uint(id)
	}

	feeds, err := h.svc.ListFeeds(c.Request().Context(), propertyID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, feeds)
}

func (h *CalendarHandler) SyncFeed(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid feed id")
	}

	result, err := h.svc.SyncFeed(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrFeedNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dto.SyncFeedResponse{Imported: result.Imported, Error: result.Error})
}

func (h *CalendarHandler) SyncAll(c echo.Context) error {
	summary, err := h.svc.SyncAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}
