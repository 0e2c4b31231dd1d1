package services

import (
	"database/sql"
	"fmt"
	"sync"

	intconfig "trainbackend/internal/config"
	intdb "trainbackend/internal/db"
	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
	"trainbackend/internal/repositories"
	"trainbackend/internal/utils"
)

// Per-train serialization point for reserve/release. Operations on
// different trains never contend.
var (
	trainLockMu sync.Mutex
	trainLocks  = map[int64]*sync.Mutex{}
)

func lockForTrain(trainID int64) *sync.Mutex {
	trainLockMu.Lock()
	defer trainLockMu.Unlock()
	mu, ok := trainLocks[trainID]
	if !ok {
		mu = &sync.Mutex{}
		trainLocks[trainID] = mu
	}
	return mu
}

// InventoryService owns seat availability. All seat mutations go through
// Reserve/Release; nothing else writes train_seats.
type InventoryService struct {
	TrainRepo repositories.TrainRepository
	DB        *sql.DB
	RequestID string
}

func (s InventoryService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s InventoryService) trains() repositories.TrainRepository {
	if s.TrainRepo.DB != nil {
		return s.TrainRepo
	}
	return repositories.TrainRepository{DB: s.db()}
}

// AvailableSeats is a pure read: seats of the class still free, in
// published seat order.
func (s InventoryService) AvailableSeats(trainID int64, class models.TrainClass) ([]models.Seat, error) {
	if !models.ValidTrainClass(class) {
		return nil, domain.ValidationError{Field: "class", Msg: "unknown train class"}
	}
	ok, err := s.trains().Exists(trainID)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	if !ok {
		return nil, domain.NotFoundError{Resource: "train"}
	}
	seats, err := s.trains().SeatsByClass(trainID, class)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	out := []models.Seat{}
	for _, seat := range seats {
		if seat.IsAvailable {
			out = append(out, seat)
		}
	}
	return out, nil
}

// Reserve takes the whole batch or nothing. The per-train lock plus the
// is_available=1 guard in the UPDATE make concurrent overlapping calls
// resolve to exactly one winner; the loser gets a ConflictError naming
// the seats that were gone.
func (s InventoryService) Reserve(trainID int64, seatNumbers []string) error {
	seats := utils.NormalizeSeats(seatNumbers)
	if len(seats) == 0 {
		return domain.ValidationError{Field: "seats", Msg: "empty seat list"}
	}

	mu := lockForTrain(trainID)
	mu.Lock()
	defer mu.Unlock()

	return s.reserveLocked(trainID, seats)
}

// ReserveTx is Reserve running inside an already-open transaction, for
// callers that must commit the reservation together with other writes.
// The caller must hold no other train lock.
func (s InventoryService) ReserveTx(tx *sql.Tx, trainID int64, seatNumbers []string) error {
	seats := utils.NormalizeSeats(seatNumbers)
	if len(seats) == 0 {
		return domain.ValidationError{Field: "seats", Msg: "empty seat list"}
	}
	n, err := s.trains().ReserveSeats(tx, trainID, seats)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n != int64(len(seats)) {
		// whole batch aborts; tx rollback undoes any partial flip
		taken, _ := s.trains().UnavailableIn(trainID, seats)
		return domain.ConflictError{
			Resource: "seat",
			Msg:      fmt.Sprintf("%d of %d requested seats unavailable", int64(len(seats))-n, len(seats)),
			Seats:    taken,
		}
	}
	return s.trains().Touch(tx, trainID)
}

func (s InventoryService) reserveLocked(trainID int64, seats []string) error {
	err := intdb.WithTx(s.db(), func(tx *sql.Tx) error {
		return s.ReserveTx(tx, trainID, seats)
	})
	if err != nil {
		if domain.IsConflict(err) || domain.IsValidation(err) {
			return err
		}
		return domain.InternalError{Err: err}
	}
	return nil
}

// Release is idempotent: seats already free stay free, no error.
func (s InventoryService) Release(trainID int64, seatNumbers []string) error {
	seats := utils.NormalizeSeats(seatNumbers)
	if len(seats) == 0 {
		return nil
	}

	mu := lockForTrain(trainID)
	mu.Lock()
	defer mu.Unlock()

	err := intdb.WithTx(s.db(), func(tx *sql.Tx) error {
		return s.ReleaseTx(tx, trainID, seats)
	})
	if err != nil {
		return domain.InternalError{Err: err}
	}
	return nil
}

// ReleaseTx frees the seats inside the caller's transaction.
func (s InventoryService) ReleaseTx(tx *sql.Tx, trainID int64, seatNumbers []string) error {
	seats := utils.NormalizeSeats(seatNumbers)
	if len(seats) == 0 {
		return nil
	}
	if err := s.trains().ReleaseSeats(tx, trainID, seats); err != nil {
		return err
	}
	return s.trains().Touch(tx, trainID)
}

// LockTrain exposes the serialization point to the booking layer so a
// reserve + booking insert commits under one critical section.
func (s InventoryService) LockTrain(trainID int64) func() {
	mu := lockForTrain(trainID)
	mu.Lock()
	return mu.Unlock
}
