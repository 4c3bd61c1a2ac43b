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
	"gorm.io/gorm"
)

type PropertyHandler struct {
	propertyRepo repository.PropertyRepository
	blockedRepo  repository.BlockedDateRepository
	calendarSvc  service.CalendarService
}

func NewPropertyHandler(
	propertyRepo repository.PropertyRepository,
	blockedRepo repository.BlockedDateRepository,
	calendarSvc service.CalendarService,
) *PropertyHandler {
	return &PropertyHandler{
		propertyRepo: propertyRepo,
		blockedRepo:  blockedRepo,
		calendarSvc:  calendarSvc,
	}
}

func (h *PropertyHandler) RegisterRoutes(public, admin *echo.Group) {
	public.GET("/properties", h.ListProperties)
	public.GET("/properties/:id", h.GetProperty)
	public.GET("/properties/:id/blocked-dates", h.GetBlockedDates)
	public.GET("/properties/:id/ical", h.ExportICal)

	admin.POST("/properties", h.CreateProperty)
	admin.PUT("/properties/:id", h.UpdateProperty)
	admin.POST("/blocked-dates", h.CreateManualBlock)
}

func (h *PropertyHandler) ListProperties(c echo.Context) error {
	properties, err := h.propertyRepo.FindAll(c.Request().Context(), true)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, properties)
}

func (h *PropertyHandler) GetProperty(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}

	property, err := h.propertyRepo.FindByID(c.Request().Context(), uint(id))
	if err != nil || !property.IsActive {
		return echo.NewHTTPError(http.StatusNotFound, "property not found")
	}
	return c.JSON(http.StatusOK, property)
}

func (h *PropertyHandler) GetBlockedDates(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}

	blocks, err := h.calendarSvc.BlockedDates(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrPropertyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := make([]dto.BlockedDateResponse, len(blocks))
	for i, b := range blocks {
		resp[i] = dto.ToBlockedDateResponse(&b)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PropertyHandler) ExportICal(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}

	doc, err := h.calendarSvc.ExportICS(c.Request().Context(), uint(id))
	if err != nil {
		if errors.Is(err, service.ErrPropertyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="calendar.ics"`)
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(doc))
}

func (h *PropertyHandler) CreateProperty(c echo.Context) error {
	var req dto.CreatePropertyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	property := &models.Property{
		Name:          req.Name,
		Location:      req.Location,
		Description:   req.Description,
		PricePerNight: req.PricePerNight,
		MaxGuests:     req.MaxGuests,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		IsActive:      true,
	}
	if err := h.propertyRepo.Create(c.Request().Context(), property); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, property)
}

func (h *PropertyHandler) UpdateProperty(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}

	var req dto.UpdatePropertyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	property, err := h.propertyRepo.FindByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "property not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if req.Name != nil {
		property.Name = *req.Name
	}
	if req.Location != nil {
		property.Location = *req.Location
	}
	if req.Description != nil {
		property.Description = *req.Description
	}
	if req.PricePerNight != nil {
		property.PricePerNight = *req.PricePerNight
	}
	if req.MaxGuests != nil {
		property.MaxGuests = *req.MaxGuests
	}
	if req.Bedrooms != nil {
		property.Bedrooms = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		property.Bathrooms = *req.Bathrooms
	}
	if req.IsActive != nil {
		property.IsActive = *req.IsActive
	}

	if err := h.propertyRepo.Update(ctx, property); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, property)
}

// CreateManualBlock lets an operator block dates without a booking, e.g.
// for maintenance.
func (h *PropertyHandler) CreateManualBlock(c echo.Context) error {
	var req dto.CreateManualBlockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	start, _ := time.ParseInLocation(dateLayout, req.StartDate, time.UTC)
	end, _ := time.ParseInLocation(dateLayout, req.EndDate, time.UTC)
	if !start.Before(end) {
		return echo.NewHTTPError(http.StatusBadRequest, "start_date must be before end_date")
	}

	ctx := c.Request().Context()
	if _, err := h.propertyRepo.FindByID(ctx, req.PropertyID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property")
	}

	block := &models.BlockedDate{
		PropertyID: req.PropertyID,
		StartDate:  start,
		EndDate:    end,
		Reason:     req.Reason,
		Source:     models.SourceManual,
		IsActive:   true,
	}
	if err := h.blockedRepo.Create(ctx, block); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, dto.ToBlockedDateResponse(block))
}
