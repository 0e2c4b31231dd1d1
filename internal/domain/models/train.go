package models

import "time"

// TrainClass enumerates the travel classes a train can offer.
type TrainClass string

const (
	FirstClass  TrainClass = "First Class"
	SecondClass TrainClass = "Second Class"
	ThirdClass  TrainClass = "Third Class"
	Sleeper     TrainClass = "Sleeper"
)

// ValidTrainClass rejects anything outside the known set.
func ValidTrainClass(c TrainClass) bool {
	switch c {
	case FirstClass, SecondClass, ThirdClass, Sleeper:
		return true
	default:
		return false
	}
}

// SeatType is the physical position of a seat.
type SeatType string

const (
	Window SeatType = "Window"
	Aisle  SeatType = "Aisle"
	Middle SeatType = "Middle"
)

// TrainStatus lifecycle; trains are never hard-deleted while bookings
// reference them, they go Inactive/Cancelled instead.
type TrainStatus string

const (
	TrainActive    TrainStatus = "Active"
	TrainInactive  TrainStatus = "Inactive"
	TrainDelayed   TrainStatus = "Delayed"
	TrainCancelled TrainStatus = "Cancelled"
)

func ValidTrainStatus(s TrainStatus) bool {
	switch s {
	case TrainActive, TrainInactive, TrainDelayed, TrainCancelled:
		return true
	default:
		return false
	}
}

// Seat belongs to exactly one train and is only ever mutated through the
// inventory's reserve/release operations.
type Seat struct {
	Number      string     `json:"number"`
	Class       TrainClass `json:"class"`
	Type        SeatType   `json:"type"`
	IsAvailable bool       `json:"isAvailable"`
}

// ScheduleStop is one stop along the route; Distance is cumulative
// kilometres from the source station.
type ScheduleStop struct {
	StationName   string  `json:"stationName"`
	StationCode   string  `json:"stationCode"`
	ArrivalTime   string  `json:"arrivalTime"`
	DepartureTime string  `json:"departureTime"`
	Distance      float64 `json:"distance"`
}

// Train aggregates route, schedule, per-class fares and the seat map.
type Train struct {
	ID          int64                  `json:"id"`
	Number      string                 `json:"number"`
	Name        string                 `json:"name"`
	SourceName  string                 `json:"sourceName"`
	SourceCode  string                 `json:"sourceCode"`
	DestName    string                 `json:"destName"`
	DestCode    string                 `json:"destCode"`
	Schedule    []ScheduleStop         `json:"schedule"`
	Classes     []TrainClass           `json:"classes"`
	Fares       map[TrainClass]float64 `json:"fares"`
	Seats       []Seat                 `json:"seats"`
	Status      TrainStatus            `json:"status"`
	LastUpdated time.Time              `json:"lastUpdated"`
}

// TotalDistance is the distance of the final stop, 0 for an empty schedule.
func (t Train) TotalDistance() float64 {
	if len(t.Schedule) == 0 {
		return 0
	}
	return t.Schedule[len(t.Schedule)-1].Distance
}

// SeatByNumber looks a seat up in the embedded seat map.
func (t Train) SeatByNumber(number string) (Seat, bool) {
	for _, s := range t.Seats {
		if s.Number == number {
			return s, true
		}
	}
	return Seat{}, false
}

// AvailableSeatsByClass filters the seat map; order follows the stored
// seat sequence.
func (t Train) AvailableSeatsByClass(class TrainClass) []Seat {
	out := []Seat{}
	for _, s := range t.Seats {
		if s.Class == class && s.IsAvailable {
			out = append(out, s)
		}
	}
	return out
}

// BaseFare returns the per-passenger base fare for a class, 0 when the
// train does not publish that class.
func (t Train) BaseFare(class TrainClass) float64 {
	if t.Fares == nil {
		return 0
	}
	return t.Fares[class]
}
