package models

import (
	"encoding/json"
	"time"
)

// SyncOpType enumerates the mutations the offline queue can record.
type SyncOpType string

const (
	OpCreateBooking SyncOpType = "create_booking"
	OpUpdateBooking SyncOpType = "update_booking"
	OpDeleteBooking SyncOpType = "delete_booking"
	OpUpdatePrefs   SyncOpType = "update_user_preferences"
)

func ValidSyncOpType(t SyncOpType) bool {
	switch t {
	case OpCreateBooking, OpUpdateBooking, OpDeleteBooking, OpUpdatePrefs:
		return true
	default:
		return false
	}
}

// SyncOpStatus of a queued operation. Failed operations stay in the
// queue for inspection and are never retried automatically.
type SyncOpStatus string

const (
	OpPending   SyncOpStatus = "Pending"
	OpCompleted SyncOpStatus = "Completed"
	OpFailed    SyncOpStatus = "Failed"
)

// SyncOperation is one mutation recorded while disconnected. ID is the
// queue's auto-increment key, so ascending ID is enqueue (FIFO) order.
// ClientOpID deduplicates re-enqueues of the same client action.
type SyncOperation struct {
	ID         int64           `json:"id"`
	ClientOpID string          `json:"clientOpId"`
	Type       SyncOpType      `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Status     SyncOpStatus    `json:"status"`
	LastError  string          `json:"lastError,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// CreateBookingPayload is the payload for OpCreateBooking. Reference is
// the natural idempotency key: a replay that finds the reference already
// persisted server-side treats the operation as applied.
type CreateBookingPayload struct {
	Reference     string      `json:"bookingReference"`
	UserID        int64       `json:"userId"`
	TrainID       int64       `json:"trainId"`
	JourneyDate   time.Time   `json:"journeyDate"`
	Passengers    []Passenger `json:"passengers"`
	PaymentMethod string      `json:"paymentMethod"`
	TotalFare     float64     `json:"totalFare"`
}

// UpdateBookingPayload covers status changes and cancellations recorded
// offline.
type UpdateBookingPayload struct {
	Reference          string        `json:"bookingReference"`
	UserID             int64         `json:"userId"`
	Status             BookingStatus `json:"status"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
}

// DeleteBookingPayload removes a booking that never reached the server.
type DeleteBookingPayload struct {
	Reference string `json:"bookingReference"`
	UserID    int64  `json:"userId"`
}

// UpdatePrefsPayload carries user preference changes; applied last-write-wins.
type UpdatePrefsPayload struct {
	UserID      int64           `json:"userId"`
	Preferences json.RawMessage `json:"preferences"`
}

// SyncReport summarizes one reconciler pass.
type SyncReport struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
