package offline

import (
	"testing"

	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
)

func cacheWithTrain() *Cache {
	c := NewCache()
	c.SaveTrains([]models.Train{{
		ID: 7,
		Seats: []models.Seat{
			{Number: "S1", Class: models.Sleeper, IsAvailable: true},
			{Number: "S2", Class: models.Sleeper, IsAvailable: true},
			{Number: "S3", Class: models.Sleeper, IsAvailable: false},
		},
	}})
	return c
}

func TestHoldSeatsAllOrNothing(t *testing.T) {
	c := cacheWithTrain()

	err := c.HoldSeats(7, []string{"S1", "S3"})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// S1 must still be free after the failed batch
	train, _ := c.GetTrain(7)
	seat, _ := train.SeatByNumber("S1")
	if !seat.IsAvailable {
		t.Fatalf("failed batch must not hold any seat")
	}

	if err := c.HoldSeats(7, []string{"S1", "S2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	train, _ = c.GetTrain(7)
	for _, n := range []string{"S1", "S2"} {
		if seat, _ := train.SeatByNumber(n); seat.IsAvailable {
			t.Fatalf("seat %s should be held", n)
		}
	}
}

func TestHoldSeatsUnknownTrain(t *testing.T) {
	c := NewCache()
	if err := c.HoldSeats(99, []string{"S1"}); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFreeSeatsIdempotent(t *testing.T) {
	c := cacheWithTrain()
	if err := c.HoldSeats(7, []string{"S1"}); err != nil {
		t.Fatalf("hold: %v", err)
	}
	c.FreeSeats(7, []string{"S1"})
	c.FreeSeats(7, []string{"S1"})
	train, _ := c.GetTrain(7)
	if seat, _ := train.SeatByNumber("S1"); !seat.IsAvailable {
		t.Fatalf("seat S1 should be free again")
	}
}

func TestSaveBookingAssignsLocalID(t *testing.T) {
	c := NewCache()
	b1 := c.SaveBooking(models.Booking{Reference: "TR26060001", UserID: 3})
	b2 := c.SaveBooking(models.Booking{Reference: "TR26060002", UserID: 3})
	if b1.ID >= 0 || b2.ID >= 0 {
		t.Fatalf("local bookings must get negative ids, got %d and %d", b1.ID, b2.ID)
	}
	if b1.ID == b2.ID {
		t.Fatalf("local ids must be unique")
	}

	// saving again keeps the assigned id
	again := c.SaveBooking(b1)
	if again.ID != b1.ID {
		t.Fatalf("resave changed id from %d to %d", b1.ID, again.ID)
	}
}

func TestMarkSyncedReplacesLocalID(t *testing.T) {
	c := NewCache()
	b := c.SaveBooking(models.Booking{Reference: "TR26060003", OfflineSyncStatus: models.SyncPending})
	c.MarkSynced(b.Reference, 42, models.SyncSynced)
	got, ok := c.GetBooking(b.Reference)
	if !ok {
		t.Fatalf("booking missing")
	}
	if got.ID != 42 || got.OfflineSyncStatus != models.SyncSynced {
		t.Fatalf("MarkSynced result: id=%d status=%s", got.ID, got.OfflineSyncStatus)
	}
}

func TestBookingsFiltersByUser(t *testing.T) {
	c := NewCache()
	c.SaveBooking(models.Booking{Reference: "A", UserID: 1})
	c.SaveBooking(models.Booking{Reference: "B", UserID: 2})
	if got := c.Bookings(1); len(got) != 1 || got[0].Reference != "A" {
		t.Fatalf("Bookings(1) = %v", got)
	}
	if got := c.Bookings(0); len(got) != 2 {
		t.Fatalf("Bookings(0) should list all, got %d", len(got))
	}
}
