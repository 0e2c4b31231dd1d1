package models

import (
	"testing"
	"time"

	"trainbackend/internal/domain"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to BookingStatus }{
		{BookingPending, BookingConfirmed},
		{BookingPending, BookingCancelled},
		{BookingConfirmed, BookingCompleted},
		{BookingConfirmed, BookingCancelled},
	}
	for _, c := range allowed {
		if !CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be allowed", c.from, c.to)
		}
	}

	denied := []struct{ from, to BookingStatus }{
		{BookingPending, BookingCompleted},
		{BookingCancelled, BookingPending},
		{BookingCancelled, BookingConfirmed},
		{BookingCompleted, BookingCancelled},
		{BookingCompleted, BookingConfirmed},
	}
	for _, c := range denied {
		if CanTransition(c.from, c.to) {
			t.Errorf("expected %s -> %s to be rejected", c.from, c.to)
		}
	}
}

func TestWithStatusSameStatusIsNoop(t *testing.T) {
	b := Booking{Status: BookingPending, UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	out, err := b.WithStatus(BookingPending, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.UpdatedAt.Equal(b.UpdatedAt) {
		t.Fatalf("no-op transition must not touch UpdatedAt")
	}
}

func TestWithStatusRejectsInvalidMove(t *testing.T) {
	b := Booking{Status: BookingCancelled}
	_, err := b.WithStatus(BookingConfirmed, time.Now())
	if !domain.IsStateTransition(err) {
		t.Fatalf("expected StateTransitionError, got %v", err)
	}
}

func TestCancelledComputesTieredRefund(t *testing.T) {
	journey := time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)
	b := Booking{
		Status:      BookingConfirmed,
		TotalFare:   515,
		JourneyDate: journey,
	}
	now := journey.AddDate(0, 0, -10)
	out, err := b.Cancelled("change of plans", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != BookingCancelled {
		t.Fatalf("status = %s, want Cancelled", out.Status)
	}
	if out.RefundAmount != 515*0.75 {
		t.Fatalf("RefundAmount = %v, want %v", out.RefundAmount, 515*0.75)
	}
	if out.CancellationDate == nil || !out.CancellationDate.Equal(now) {
		t.Fatalf("CancellationDate not recorded")
	}
	if out.CancellationReason != "change of plans" {
		t.Fatalf("CancellationReason = %q", out.CancellationReason)
	}
	// the receiver is untouched
	if b.Status != BookingConfirmed {
		t.Fatalf("original booking mutated")
	}
}

func TestCancelledRejectsTerminalBooking(t *testing.T) {
	b := Booking{Status: BookingCompleted}
	if _, err := b.Cancelled("too late", time.Now()); !domain.IsStateTransition(err) {
		t.Fatalf("expected StateTransitionError, got %v", err)
	}
}

func TestConfirmedMarksPayment(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b := Booking{Status: BookingPending, Payment: Payment{Amount: 515, Status: PaymentPending}}
	out, err := b.Confirmed("txn-123", "card", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != BookingConfirmed {
		t.Fatalf("status = %s, want Confirmed", out.Status)
	}
	if out.Payment.Status != PaymentCompleted || out.Payment.TransactionID != "txn-123" {
		t.Fatalf("payment not settled: %+v", out.Payment)
	}
	if out.Payment.PaymentDate == nil || !out.Payment.PaymentDate.Equal(now) {
		t.Fatalf("PaymentDate not recorded")
	}
}

func TestSeatNumbersFollowPassengerOrder(t *testing.T) {
	b := Booking{Passengers: []Passenger{
		{Name: "A", SeatNumber: "S2"},
		{Name: "B", SeatNumber: "S1"},
	}}
	got := b.SeatNumbers()
	if len(got) != 2 || got[0] != "S2" || got[1] != "S1" {
		t.Fatalf("SeatNumbers = %v", got)
	}
}
