package domain

import (
	"math"
	"time"
)

// DistanceRate is charged per passenger per kilometre on top of the
// class base fare.
const DistanceRate = 0.5

// PassengerFare prices a single passenger: class base fare plus the
// distance charge for the whole route.
func PassengerFare(baseFare, distance float64) float64 {
	return baseFare + distance*DistanceRate
}

// TotalFare sums PassengerFare over the per-passenger base fares.
// Base fares may differ when passengers sit in different classes.
func TotalFare(baseFares []float64, distance float64) float64 {
	var total float64
	for _, base := range baseFares {
		total += PassengerFare(base, distance)
	}
	return total
}

// RefundAmount applies the cancellation tier schedule against whole days
// until the journey: >7 days 75%, >3 days 50%, >1 day 25%, else nothing.
func RefundAmount(totalFare float64, journeyDate, cancelledAt time.Time) float64 {
	days := DaysUntilJourney(journeyDate, cancelledAt)

	var pct float64
	switch {
	case days > 7:
		pct = 0.75
	case days > 3:
		pct = 0.50
	case days > 1:
		pct = 0.25
	}
	return totalFare * pct
}

// DaysUntilJourney floors the remaining time to whole days; a journey
// already past yields a negative count.
func DaysUntilJourney(journeyDate, now time.Time) int {
	return int(math.Floor(journeyDate.Sub(now).Hours() / 24))
}
