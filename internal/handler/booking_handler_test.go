package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/palmhaven/booking-api/internal/dto"
	"github.com/palmhaven/booking-api/internal/models"
	"github.com/palmhaven/booking-api/internal/repository"
	"github.com/palmhaven/booking-api/internal/service"
	"github.com/stretchr/testify/assert"
)

// --- Mock BookingService ---

type mockBookingService struct {
	createFn  func(ctx context.Context, in service.CreateBookingInput) (*service.CreateBookingResult, error)
	confirmFn func(ctx context.Context, bookingID uint, paymentRef string) (*models.Booking, error)
	cancelFn  func(ctx context.Context, bookingID uint) (*models.Booking, error)
	updateFn  func(ctx context.Context, bookingID uint, in service.AdminUpdateInput) (*models.Booking, error)
	getFn     func(ctx context.Context, id uint) (*models.Booking, error)
	listFn    func(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error)
}

func (m *mockBookingService) CreateBooking(ctx context.Context, in service.CreateBookingInput) (*service.CreateBookingResult, error) {
	return m.createFn(ctx, in)
}
func (m *mockBookingService) ConfirmBooking(ctx context.Context, bookingID uint, paymentRef string) (*models.Booking, error) {
	return m.confirmFn(ctx, bookingID, paymentRef)
}
func (m *mockBookingService) CancelBooking(ctx context.Context, bookingID uint) (*models.Booking, error) {
	return m.cancelFn(ctx, bookingID)
}
func (m *mockBookingService) AdminUpdate(ctx context.Context, bookingID uint, in service.AdminUpdateInput) (*models.Booking, error) {
	return m.updateFn(ctx, bookingID, in)
}
func (m *mockBookingService) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	return m.getFn(ctx, id)
}
func (m *mockBookingService) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error) {
	return m.listFn(ctx, filter)
}

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sampleBooking() *models.Booking {
	return &models.Booking{
		ID:            1,
		Reference:     "2f1d7a70-4c9e-4a38-8ab5-0d6c37f6f001",
		PropertyID:    3,
		GuestName:     "Jane Doe",
		GuestEmail:    "jane@example.com",
		CheckIn:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		Adults:        2,
		TotalAmount:   450,
		Currency:      "usd",
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
		CreatedAt:     time.Now(),
	}
}

const createBody = `{
	"property_id": 3,
	"guest_name": "Jane Doe",
	"guest_email": "jane@example.com",
	"adults": 2,
	"check_in": "2025-06-01",
	"check_out": "2025-06-04"
}`

// --- Tests ---

func TestCreateBooking_Handler_Success(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, in service.CreateBookingInput) (*service.CreateBookingResult, error) {
			assert.Equal(t, uint(3), in.PropertyID)
			assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), in.CheckIn)
			return &service.CreateBookingResult{
				Booking:           sampleBooking(),
				CheckoutSessionID: "cs_test_123",
				CheckoutURL:       "https://checkout.stripe.com/pay/cs_test_123",
			}, nil
		},
	}

	c, rec := newTestContext(http.MethodPost, "/api/v1/bookings", createBody)
	h := NewBookingHandler(svc)
	err := h.CreateBooking(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.CreateBookingResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint(1), resp.Booking.ID)
	assert.Equal(t, "2025-06-01", resp.Booking.CheckIn)
	assert.Equal(t, models.StatusPending, resp.Booking.Status)
	assert.Equal(t, "cs_test_123", resp.CheckoutSessionID)
}

func TestCreateBooking_Handler_MissingFields(t *testing.T) {
	c, _ := newTestContext(http.MethodPost, "/api/v1/bookings", `{"property_id":3}`)
	h := NewBookingHandler(nil)
	err := h.CreateBooking(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCreateBooking_Handler_BadDateFormat(t *testing.T) {
	body := strings.Replace(createBody, "2025-06-01", "06/01/2025", 1)
	c, _ := newTestContext(http.MethodPost, "/api/v1/bookings", body)
	h := NewBookingHandler(nil)
	err := h.CreateBooking(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCreateBooking_Handler_Conflict(t *testing.T) {
	conflict := &service.ConflictError{
		PropertyID: 3,
		CheckIn:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
		Conflicts: []service.BookingConflict{
			{BookingID: 9, GuestName: "Earlier Guest"},
		},
	}
	svc := &mockBookingService{
		createFn: func(ctx context.Context, in service.CreateBookingInput) (*service.CreateBookingResult, error) {
			return nil, conflict
		},
	}

	c, _ := newTestContext(http.MethodPost, "/api/v1/bookings", createBody)
	h := NewBookingHandler(svc)
	err := h.CreateBooking(c)

	// Conflict errors pass through untouched; the central error handler
	// renders them as 409 with the conflict list.
	var ce *service.ConflictError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, conflict, ce)
}

func TestCreateBooking_Handler_PropertyNotFound(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, in service.CreateBookingInput) (*service.CreateBookingResult, error) {
			return nil, service.ErrPropertyNotFound
		},
	}

	c, _ := newTestContext(http.MethodPost, "/api/v1/bookings", createBody)
	h := NewBookingHandler(svc)
	err := h.CreateBooking(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestCreateBooking_Handler_CheckoutFailed(t *testing.T) {
	svc := &mockBookingService{
		createFn: func(ctx context.Context, in service.CreateBookingInput) (*service.CreateBookingResult, error) {
			return nil, service.ErrCheckoutFailed
		},
	}

	c, _ := newTestContext(http.MethodPost, "/api/v1/bookings", createBody)
	h := NewBookingHandler(svc)
	err := h.CreateBooking(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, he.Code)
}

func TestGetBooking_Handler_Success(t *testing.T) {
	svc := &mockBookingService{
		getFn: func(ctx context.Context, id uint) (*models.Booking, error) {
			assert.Equal(t, uint(1), id)
			return sampleBooking(), nil
		},
	}

	c, rec := newTestContext(http.MethodGet, "/api/v1/bookings/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")

	h := NewBookingHandler(svc)
	err := h.GetBooking(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetBooking_Handler_NotFound(t *testing.T) {
	svc := &mockBookingService{
		getFn: func(ctx context.Context, id uint) (*models.Booking, error) {
			return nil, service.ErrBookingNotFound
		},
	}

	c, _ := newTestContext(http.MethodGet, "/api/v1/bookings/999", "")
	c.SetParamNames("id")
	c.SetParamValues("999")

	h := NewBookingHandler(svc)
	err := h.GetBooking(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestListBookings_Handler_StatusFilter(t *testing.T) {
	var captured repository.BookingFilter
	svc := &mockBookingService{
		listFn: func(ctx context.Context, filter repository.BookingFilter) ([]models.Booking, error) {
			captured = filter
			return []models.Booking{*sampleBooking()}, nil
		},
	}

	c, rec := newTestContext(http.MethodGet, "/api/v1/admin/bookings?property_id=3&status=confirmed", "")
	h := NewBookingHandler(svc)
	err := h.ListBookings(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(3), captured.PropertyID)
	if assert.NotNil(t, captured.Status) {
		assert.Equal(t, models.StatusConfirmed, *captured.Status)
	}

	var resp []dto.BookingResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}

func TestListBookings_Handler_BadPropertyID(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/api/v1/admin/bookings?property_id=abc", "")
	h := NewBookingHandler(nil)
	err := h.ListBookings(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestAdminUpdateBooking_Handler_Success(t *testing.T) {
	var captured service.AdminUpdateInput
	svc := &mockBookingService{
		updateFn: func(ctx context.Context, bookingID uint, in service.AdminUpdateInput) (*models.Booking, error) {
			captured = in
			b := sampleBooking()
			b.Status = models.StatusConfirmed
			return b, nil
		},
	}

	body := `{"status":"confirmed","payment_status":"completed","payment_intent_id":"pi_123"}`
	c, rec := newTestContext(http.MethodPut, "/api/v1/admin/bookings/1", body)
	c.SetParamNames("id")
	c.SetParamValues("1")

	h := NewBookingHandler(svc)
	err := h.AdminUpdateBooking(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, captured.Status) {
		assert.Equal(t, models.StatusConfirmed, *captured.Status)
	}
	if assert.NotNil(t, captured.PaymentStatus) {
		assert.Equal(t, models.PaymentCompleted, *captured.PaymentStatus)
	}
	if assert.NotNil(t, captured.PaymentIntentID) {
		assert.Equal(t, "pi_123", *captured.PaymentIntentID)
	}
}

func TestAdminUpdateBooking_Handler_InvalidStatus(t *testing.T) {
	c, _ := newTestContext(http.MethodPut, "/api/v1/admin/bookings/1", `{"status":"archived"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")

	h := NewBookingHandler(nil)
	err := h.AdminUpdateBooking(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestAdminUpdateBooking_Handler_PaymentRefRequired(t *testing.T) {
	svc := &mockBookingService{
		updateFn: func(ctx context.Context, bookingID uint, in service.AdminUpdateInput) (*models.Booking, error) {
			return nil, service.ErrPaymentRefRequired
		},
	}

	c, _ := newTestContext(http.MethodPut, "/api/v1/admin/bookings/1", `{"payment_status":"completed"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")

	h := NewBookingHandler(svc)
	err := h.AdminUpdateBooking(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCancelBooking_Handler_Success(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, bookingID uint) (*models.Booking, error) {
			b := sampleBooking()
			b.Status = models.StatusCancelled
			return b, nil
		},
	}

	c, rec := newTestContext(http.MethodDelete, "/api/v1/admin/bookings/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")

	h := NewBookingHandler(svc)
	err := h.CancelBooking(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp dto.BookingResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusCancelled, resp.Status)
}

func TestCancelBooking_Handler_NotFound(t *testing.T) {
	svc := &mockBookingService{
		cancelFn: func(ctx context.Context, bookingID uint) (*models.Booking, error) {
			return nil, service.ErrBookingNotFound
		},
	}

	c, _ := newTestContext(http.MethodDelete, "/api/v1/admin/bookings/999", "")
	c.SetParamNames("id")
	c.SetParamValues("999")

	h := NewBookingHandler(svc)
	err := h.CancelBooking(c)

	he, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}
