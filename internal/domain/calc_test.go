package domain

import (
	"testing"
	"time"
)

func TestTotalFareTwoPassengers(t *testing.T) {
	// base 150 each, 215 km route: 150 + 215*0.5 = 257.5 per passenger
	got := TotalFare([]float64{150, 150}, 215)
	if got != 515.0 {
		t.Fatalf("TotalFare = %v, want 515.0", got)
	}
}

func TestTotalFareMixedClasses(t *testing.T) {
	got := TotalFare([]float64{150, 100}, 100)
	want := (150 + 50.0) + (100 + 50.0)
	if got != want {
		t.Fatalf("TotalFare = %v, want %v", got, want)
	}
}

func TestRefundTiers(t *testing.T) {
	journey := time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name        string
		cancelledAt time.Time
		want        float64
	}{
		{"more than 7 days", journey.AddDate(0, 0, -10), 750},
		{"more than 3 days", journey.AddDate(0, 0, -5), 500},
		{"more than 1 day", journey.AddDate(0, 0, -2), 250},
		{"same day", journey.Add(-6 * time.Hour), 0},
		{"after departure", journey.Add(2 * time.Hour), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RefundAmount(1000, journey, tc.cancelledAt)
			if got != tc.want {
				t.Fatalf("RefundAmount = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRefundTierBoundaries(t *testing.T) {
	journey := time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)

	// exactly 7 days out is not "more than 7": 50% tier
	got := RefundAmount(1000, journey, journey.AddDate(0, 0, -7))
	if got != 500 {
		t.Fatalf("at exactly 7 days RefundAmount = %v, want 500", got)
	}
	// 7 days + 1 hour out floors to 7 days: still 50%
	got = RefundAmount(1000, journey, journey.AddDate(0, 0, -7).Add(-time.Hour))
	if got != 500 {
		t.Fatalf("at 7 days 1 hour RefundAmount = %v, want 500", got)
	}
	// a full 8 days crosses into 75%
	got = RefundAmount(1000, journey, journey.AddDate(0, 0, -8))
	if got != 750 {
		t.Fatalf("at 8 days RefundAmount = %v, want 750", got)
	}
}

func TestDaysUntilJourneyFloors(t *testing.T) {
	now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
	journey := now.Add(36 * time.Hour)
	if d := DaysUntilJourney(journey, now); d != 1 {
		t.Fatalf("DaysUntilJourney = %d, want 1", d)
	}
	if d := DaysUntilJourney(now.Add(-2*time.Hour), now); d >= 0 {
		t.Fatalf("past journey should be negative, got %d", d)
	}
}
