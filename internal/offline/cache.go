// Package offline holds the node-local cache used while the
// authoritative store is unreachable. Cached records are owned by this
// node until the reconciler replays them; after that the server copy is
// authoritative and the cached one is discardable.
package offline

import (
	"sync"

	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
)

// Cache is an in-memory stand-in for the browser-side store the web
// client keeps. Bookings are keyed by their reference, the only id that
// exists before the server assigns one.
type Cache struct {
	mu       sync.Mutex
	trains   map[int64]models.Train
	bookings map[string]models.Booking
	nextID   int64
}

var shared = NewCache()

// Shared is the process-wide cache instance the HTTP layer uses.
func Shared() *Cache { return shared }

func NewCache() *Cache {
	return &Cache{
		trains:   map[int64]models.Train{},
		bookings: map[string]models.Booking{},
		nextID:   1,
	}
}

// SaveTrains snapshots train aggregates (route, fares, seat map) for
// offline validation and fare computation.
func (c *Cache) SaveTrains(trains []models.Train) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range trains {
		c.trains[t.ID] = t
	}
}

// Trains returns the cached catalog snapshot.
func (c *Cache) Trains() []models.Train {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Train, 0, len(c.trains))
	for _, t := range c.trains {
		out = append(out, t)
	}
	return out
}

func (c *Cache) GetTrain(trainID int64) (models.Train, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.trains[trainID]
	return t, ok
}

// HoldSeats flips cached seats to unavailable so later offline bookings
// on this node cannot double-pick them. All-or-nothing like the server
// side; the seats come back if any of the batch is already held.
func (c *Cache) HoldSeats(trainID int64, seatNumbers []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.trains[trainID]
	if !ok {
		return domain.NotFoundError{Resource: "train"}
	}
	taken := []string{}
	for _, n := range seatNumbers {
		seat, ok := t.SeatByNumber(n)
		if !ok || !seat.IsAvailable {
			taken = append(taken, n)
		}
	}
	if len(taken) > 0 {
		return domain.ConflictError{Resource: "seat", Msg: "seat already held in offline cache", Seats: taken}
	}
	for i := range t.Seats {
		for _, n := range seatNumbers {
			if t.Seats[i].Number == n {
				t.Seats[i].IsAvailable = false
			}
		}
	}
	c.trains[trainID] = t
	return nil
}

// FreeSeats is the idempotent inverse of HoldSeats.
func (c *Cache) FreeSeats(trainID int64, seatNumbers []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.trains[trainID]
	if !ok {
		return
	}
	for i := range t.Seats {
		for _, n := range seatNumbers {
			if t.Seats[i].Number == n {
				t.Seats[i].IsAvailable = true
			}
		}
	}
	c.trains[trainID] = t
}

// SaveBooking stores or overwrites a cached booking. A booking without
// an id yet gets a local negative one so list views stay stable; the
// server id replaces it after sync.
func (c *Cache) SaveBooking(b models.Booking) models.Booking {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b.ID == 0 {
		b.ID = -c.nextID
		c.nextID++
	}
	c.bookings[b.Reference] = b
	return b
}

func (c *Cache) GetBooking(reference string) (models.Booking, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bookings[reference]
	return b, ok
}

// Bookings returns cached bookings for one user, every user when id 0.
func (c *Cache) Bookings(userID int64) []models.Booking {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []models.Booking{}
	for _, b := range c.bookings {
		if userID == 0 || b.UserID == userID {
			out = append(out, b)
		}
	}
	return out
}

// MarkSynced records the server-assigned id and sync outcome.
func (c *Cache) MarkSynced(reference string, serverID int64, status models.SyncStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bookings[reference]
	if !ok {
		return
	}
	if serverID > 0 {
		b.ID = serverID
	}
	b.OfflineSyncStatus = status
	c.bookings[reference] = b
}

func (c *Cache) RemoveBooking(reference string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bookings, reference)
}

// Clear drops everything; used after a full successful reconciliation.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trains = map[int64]models.Train{}
	c.bookings = map[string]models.Booking{}
}
