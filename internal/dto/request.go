package dto

// Date fields travel as "2006-01-02" strings; handlers parse them and the
// validator enforces the layout up front.

type CreateBookingRequest struct {
	PropertyID    uint   `json:"property_id" validate:"required"`
	GuestName     string `json:"guest_name" validate:"required"`
	GuestEmail    string `json:"guest_email" validate:"required,email"`
	GuestPhone    string `json:"guest_phone"`
	Adults        int    `json:"adults" validate:"gte=1"`
	Children      int    `json:"children" validate:"gte=0"`
	CheckIn       string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut      string `json:"check_out" validate:"required,datetime=2006-01-02"`
	PaymentMethod string `json:"payment_method"`
}

type AdminUpdateBookingRequest struct {
	Status          *string `json:"status" validate:"omitempty,oneof=pending confirmed cancelled"`
	PaymentStatus   *string `json:"payment_status" validate:"omitempty,oneof=pending completed failed"`
	PaymentIntentID *string `json:"payment_intent_id"`
}

type CreatePropertyRequest struct {
	Name          string  `json:"name" validate:"required"`
	Location      string  `json:"location"`
	Description   string  `json:"description"`
	PricePerNight float64 `json:"price_per_night" validate:"required,gt=0"`
	MaxGuests     int     `json:"max_guests" validate:"gte=1"`
	Bedrooms      int     `json:"bedrooms" validate:"gte=0"`
	Bathrooms     int     `json:"bathrooms" validate:"gte=0"`
}

type UpdatePropertyRequest struct {
	Name          *string  `json:"name"`
	Location      *string  `json:"location"`
	Description   *string  `json:"description"`
	PricePerNight *float64 `json:"price_per_night" validate:"omitempty,gt=0"`
	MaxGuests     *int     `json:"max_guests" validate:"omitempty,gte=1"`
	Bedrooms      *int     `json:"bedrooms"`
	Bathrooms     *int     `json:"bathrooms"`
	IsActive      *bool    `json:"is_active"`
}

type RegisterFeedRequest struct {
	PropertyID uint   `json:"property_id" validate:"required"`
	Platform   string `json:"platform" validate:"required"`
	URL        string `json:"url" validate:"required,url"`
}

type CreateManualBlockRequest struct {
	PropertyID uint   `json:"property_id" validate:"required"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason     string `json:"reason"`
}
