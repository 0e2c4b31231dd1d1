package models

import (
	"time"

	"trainbackend/internal/domain"
)

// BookingStatus state machine:
// Pending -> Confirmed -> Completed, Pending|Confirmed -> Cancelled.
// Cancelled and Completed are terminal.
type BookingStatus string

const (
	BookingPending   BookingStatus = "Pending"
	BookingConfirmed BookingStatus = "Confirmed"
	BookingCancelled BookingStatus = "Cancelled"
	BookingCompleted BookingStatus = "Completed"
)

func ValidBookingStatus(s BookingStatus) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	default:
		return false
	}
}

// PaymentStatus for the embedded payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentFailed    PaymentStatus = "Failed"
	PaymentRefunded  PaymentStatus = "Refunded"
)

// SyncStatus marks how far an offline booking got through reconciliation.
type SyncStatus string

const (
	SyncPending SyncStatus = "Pending"
	SyncSynced  SyncStatus = "Synced"
	SyncFailed  SyncStatus = "Failed"
)

// Passenger occupies one seat on the booked train.
type Passenger struct {
	Name       string     `json:"name"`
	Age        int        `json:"age"`
	Gender     string     `json:"gender"`
	SeatNumber string     `json:"seatNumber"`
	SeatClass  TrainClass `json:"seatClass"`
}

// Payment is owned by its booking; completing it never touches seat
// inventory, the seats were taken when the booking was created.
type Payment struct {
	Amount        float64       `json:"amount"`
	Method        string        `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transactionId,omitempty"`
	PaymentDate   *time.Time    `json:"paymentDate,omitempty"`
}

// Booking is one reservation from creation to completion or cancellation.
// TotalFare is computed once at creation and only refund computation
// reads it afterwards.
type Booking struct {
	ID                 int64         `json:"id"`
	UserID             int64         `json:"userId"`
	TrainID            int64         `json:"trainId"`
	JourneyDate        time.Time     `json:"journeyDate"`
	Passengers         []Passenger   `json:"passengers"`
	TotalFare          float64       `json:"totalFare"`
	Payment            Payment       `json:"payment"`
	Status             BookingStatus `json:"status"`
	Reference          string        `json:"bookingReference"`
	IsOfflineBooking   bool          `json:"isOfflineBooking"`
	OfflineSyncStatus  SyncStatus    `json:"offlineSyncStatus"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
	CancellationDate   *time.Time    `json:"cancellationDate,omitempty"`
	RefundAmount       float64       `json:"refundAmount"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// SeatNumbers collects the seats held by this booking, in passenger order.
func (b Booking) SeatNumbers() []string {
	out := make([]string, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		out = append(out, p.SeatNumber)
	}
	return out
}

// HoldsSeats reports whether the booking currently pins inventory.
func (b Booking) HoldsSeats() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// CanTransition implements the status state machine.
func CanTransition(from, to BookingStatus) bool {
	switch from {
	case BookingPending:
		return to == BookingConfirmed || to == BookingCancelled
	case BookingConfirmed:
		return to == BookingCompleted || to == BookingCancelled
	default:
		return false
	}
}

// WithStatus returns a copy moved to the new status, or a
// StateTransitionError when the move is not allowed. The caller decides
// which side effects (persist, release seats) accompany the change.
func (b Booking) WithStatus(to BookingStatus, now time.Time) (Booking, error) {
	if b.Status == to {
		return b, nil
	}
	if !CanTransition(b.Status, to) {
		return b, domain.StateTransitionError{From: string(b.Status), To: string(to)}
	}
	b.Status = to
	b.UpdatedAt = now
	return b, nil
}

// Cancelled returns a copy cancelled at now with the refund already
// computed from the tier schedule.
func (b Booking) Cancelled(reason string, now time.Time) (Booking, error) {
	out, err := b.WithStatus(BookingCancelled, now)
	if err != nil {
		return b, err
	}
	out.CancellationReason = reason
	out.CancellationDate = &now
	out.RefundAmount = domain.RefundAmount(out.TotalFare, out.JourneyDate, now)
	return out, nil
}

// Confirmed returns a copy with payment marked completed and the booking
// confirmed.
func (b Booking) Confirmed(transactionID, method string, now time.Time) (Booking, error) {
	out, err := b.WithStatus(BookingConfirmed, now)
	if err != nil {
		return b, err
	}
	if method != "" {
		out.Payment.Method = method
	}
	out.Payment.TransactionID = transactionID
	out.Payment.Status = PaymentCompleted
	out.Payment.PaymentDate = &now
	return out, nil
}
