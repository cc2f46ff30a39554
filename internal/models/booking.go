package models

import (
	"time"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// PaymentStatus represents the recorded state of a booking payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// PaymentMethod is the fixed enum of accepted payment methods
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetBanking PaymentMethod = "net_banking"
)

// BookingSeat records one seat held by a booking
type BookingSeat struct {
	SeatID string `json:"seat_id"`
	Label  string `json:"label"`
}

// CardDetails is the stored card metadata: only the masked last four digits
// and the card type are recorded.
type CardDetails struct {
	LastFourDigits string `json:"last_four_digits"`
	CardType       string `json:"card_type"`
}

// PaymentInfo records payment metadata for a booking. No gateway call is
// made; the payment subsystem is recorded-state only.
type PaymentInfo struct {
	Required      bool          `json:"required"`
	Status        PaymentStatus `json:"status"`
	Method        PaymentMethod `json:"method,omitempty"`
	PaidAmount    float64       `json:"paid_amount,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	CardDetails   *CardDetails  `json:"card_details,omitempty"`
	UPIID         string        `json:"upi_id,omitempty"`
	BankReference string        `json:"bank_reference,omitempty"`
}

// Booking represents a confirmed (or cancelled) seat booking on a route for
// a travel date. TotalFare is fixed at creation time.
type Booking struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	RouteID    string          `json:"route_id" db:"route_id"`
	TravelDate time.Time       `json:"travel_date" db:"travel_date"`
	Seats      BookingSeatList `json:"seats" db:"seats"`
	TotalFare  float64         `json:"total_fare" db:"total_fare"`
	Payment    PaymentInfo     `json:"payment" db:"payment"`
	Status     BookingStatus   `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// BookingSeatList is stored as a JSONB column
type BookingSeatList []BookingSeat

// SeatIDs returns the seat ids held by the booking
func (s BookingSeatList) SeatIDs() []string {
	ids := make([]string, len(s))
	for i, seat := range s {
		ids[i] = seat.SeatID
	}
	return ids
}

// PaymentDetailsRequest carries the payment details supplied by the caller
// for premium bus categories.
type PaymentDetailsRequest struct {
	Method        string `json:"method"`
	CardNumber    string `json:"card_number,omitempty"`
	CardType      string `json:"card_type,omitempty"`
	UPIID         string `json:"upi_id,omitempty"`
	BankReference string `json:"bank_reference,omitempty"`
}

// BookSeatsRequest is the booking engine input
type BookSeatsRequest struct {
	RouteID        string                 `json:"route_id" binding:"required"`
	Date           string                 `json:"date" binding:"required"` // YYYY-MM-DD
	SeatIDs        []string               `json:"seat_ids" binding:"required,min=1"`
	FromStop       string                 `json:"from_stop" binding:"required"`
	ToStop         string                 `json:"to_stop" binding:"required"`
	PaymentDetails *PaymentDetailsRequest `json:"payment_details,omitempty"`
}

// BookSeatsResponse is returned on a successful booking
type BookSeatsResponse struct {
	BookingID string  `json:"booking_id"`
	TotalFare float64 `json:"total_fare"`
	Status    string  `json:"status"`
}

// BookingDetailsResponse is a single booking with its route name and a QR
// code (PNG data URL) encoding the booking link.
type BookingDetailsResponse struct {
	Booking   *Booking `json:"booking"`
	RouteName string   `json:"route_name,omitempty"`
	QRCode    string   `json:"qr_code,omitempty"`
}
