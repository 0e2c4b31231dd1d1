package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	intconfig "trainbackend/internal/config"
	intdb "trainbackend/internal/db"
	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
	"trainbackend/internal/offline"
	"trainbackend/internal/repositories"
	"trainbackend/internal/utils"

	"github.com/google/uuid"
)

// BookingService orchestrates seat reservation, fare computation and the
// booking state machine. ConnectivityMode decides whether a mutation
// hits the authoritative store or the offline cache plus sync queue.
type BookingService struct {
	BookingRepo repositories.BookingRepository
	TrainRepo   repositories.TrainRepository
	QueueRepo   repositories.SyncQueueRepository
	Inventory   InventoryService
	Cache       *offline.Cache
	DB          *sql.DB
	RequestID   string

	// Now is injectable for refund/reference tests.
	Now func() time.Time
}

func (s BookingService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s BookingService) bookings() repositories.BookingRepository {
	if s.BookingRepo.DB != nil {
		return s.BookingRepo
	}
	return repositories.BookingRepository{DB: s.db()}
}

func (s BookingService) trains() repositories.TrainRepository {
	if s.TrainRepo.DB != nil {
		return s.TrainRepo
	}
	return repositories.TrainRepository{DB: s.db()}
}

func (s BookingService) queue() repositories.SyncQueueRepository {
	if s.QueueRepo.DB != nil {
		return s.QueueRepo
	}
	return repositories.SyncQueueRepository{DB: s.db()}
}

func (s BookingService) inventory() InventoryService {
	if s.Inventory.DB != nil {
		return s.Inventory
	}
	return InventoryService{DB: s.db(), TrainRepo: s.trains(), RequestID: s.RequestID}
}

func (s BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateBookingInput is the validated request body for a new booking.
type CreateBookingInput struct {
	TrainID       int64              `json:"trainId"`
	JourneyDate   time.Time          `json:"journeyDate"`
	Passengers    []models.Passenger `json:"passengers"`
	PaymentMethod string             `json:"paymentMethod"`
}

// CreateBooking validates passengers against the train's seat map,
// prices the batch, reserves every seat atomically and persists the
// Pending booking. Offline callers get a cache write plus a queued
// create_booking operation instead; the server-side inventory is not
// touched until replay.
func (s BookingService) CreateBooking(rc domain.RequestContext, in CreateBookingInput, mode domain.ConnectivityMode) (models.Booking, error) {
	if len(in.Passengers) == 0 {
		return models.Booking{}, domain.ValidationError{Field: "passengers", Msg: "at least one passenger required"}
	}

	train, err := s.lookupTrain(in.TrainID, mode)
	if err != nil {
		return models.Booking{}, err
	}

	if err := validatePassengers(train, in.Passengers); err != nil {
		return models.Booking{}, err
	}

	baseFares := make([]float64, 0, len(in.Passengers))
	for _, p := range in.Passengers {
		baseFares = append(baseFares, train.BaseFare(p.SeatClass))
	}
	totalFare := domain.TotalFare(baseFares, train.TotalDistance())

	now := s.now()
	booking := models.Booking{
		UserID:      int64(rc.UserID),
		TrainID:     train.ID,
		JourneyDate: in.JourneyDate,
		Passengers:  in.Passengers,
		TotalFare:   totalFare,
		Payment: models.Payment{
			Amount: totalFare,
			Method: in.PaymentMethod,
			Status: models.PaymentPending,
		},
		Status:            models.BookingPending,
		IsOfflineBooking:  mode.Offline(),
		OfflineSyncStatus: models.SyncSynced,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if mode.Offline() {
		return s.createOffline(booking)
	}

	ref, err := s.generateReference(now)
	if err != nil {
		return models.Booking{}, err
	}
	booking.Reference = ref

	seatNumbers := booking.SeatNumbers()
	unlock := s.inventory().LockTrain(train.ID)
	defer unlock()

	err = intdb.WithTx(s.db(), func(tx *sql.Tx) error {
		if err := s.inventory().ReserveTx(tx, train.ID, seatNumbers); err != nil {
			return err
		}
		id, err := s.bookings().Create(tx, booking)
		if err != nil {
			return err
		}
		booking.ID = id
		return nil
	})
	if err != nil {
		if domain.IsConflict(err) || domain.IsValidation(err) {
			return models.Booking{}, err
		}
		return models.Booking{}, domain.InternalError{Err: err}
	}

	utils.LogEvent(s.RequestID, "booking", "create",
		fmt.Sprintf("booking_id=%d ref=%s train_id=%d seats=%d fare=%s",
			booking.ID, booking.Reference, train.ID, len(seatNumbers), utils.FormatMoney(totalFare)))
	return booking, nil
}

func (s BookingService) createOffline(booking models.Booking) (models.Booking, error) {
	if s.Cache == nil {
		return models.Booking{}, domain.InternalError{Msg: "offline cache not configured"}
	}
	booking.Reference = newReference(booking.CreatedAt)
	booking.OfflineSyncStatus = models.SyncPending

	if err := s.Cache.HoldSeats(booking.TrainID, booking.SeatNumbers()); err != nil {
		return models.Booking{}, err
	}
	booking = s.Cache.SaveBooking(booking)

	payload, err := json.Marshal(models.CreateBookingPayload{
		Reference:     booking.Reference,
		UserID:        booking.UserID,
		TrainID:       booking.TrainID,
		JourneyDate:   booking.JourneyDate,
		Passengers:    booking.Passengers,
		PaymentMethod: booking.Payment.Method,
		TotalFare:     booking.TotalFare,
	})
	if err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}
	if _, err := s.queue().Enqueue(models.SyncOperation{
		ClientOpID: uuid.NewString(),
		Type:       models.OpCreateBooking,
		Payload:    payload,
	}); err != nil {
		// the hold is useless without a queued replay
		s.Cache.FreeSeats(booking.TrainID, booking.SeatNumbers())
		s.Cache.RemoveBooking(booking.Reference)
		return models.Booking{}, domain.InternalError{Err: err}
	}

	utils.LogEvent(s.RequestID, "booking", "create_offline",
		fmt.Sprintf("ref=%s train_id=%d seats=%d", booking.Reference, booking.TrainID, len(booking.Passengers)))
	return booking, nil
}

// CancelBooking moves the booking to Cancelled, computes the tiered
// refund and releases the seats in the same transaction as the status
// write, so a crash cannot strand held seats.
func (s BookingService) CancelBooking(rc domain.RequestContext, bookingID int64, reason string, mode domain.ConnectivityMode) (models.Booking, error) {
	if mode.Offline() {
		return s.cancelOffline(rc, bookingID, reason)
	}

	booking, err := s.bookings().GetByID(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if booking.UserID != int64(rc.UserID) && !rc.IsAdmin() {
		return models.Booking{}, domain.UnauthorizedError{Msg: "not the booking owner"}
	}

	cancelled, err := booking.Cancelled(reason, s.now())
	if err != nil {
		return models.Booking{}, err
	}
	if cancelled.Payment.Status == models.PaymentCompleted && cancelled.RefundAmount > 0 {
		cancelled.Payment.Status = models.PaymentRefunded
	}

	unlock := s.inventory().LockTrain(cancelled.TrainID)
	defer unlock()

	err = intdb.WithTx(s.db(), func(tx *sql.Tx) error {
		if err := s.bookings().SaveCancellation(tx, cancelled); err != nil {
			return err
		}
		return s.inventory().ReleaseTx(tx, cancelled.TrainID, cancelled.SeatNumbers())
	})
	if err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}

	utils.LogEvent(s.RequestID, "booking", "cancel",
		fmt.Sprintf("booking_id=%d refund=%s", cancelled.ID, utils.FormatMoney(cancelled.RefundAmount)))
	return cancelled, nil
}

func (s BookingService) cancelOffline(rc domain.RequestContext, bookingID int64, reason string) (models.Booking, error) {
	if s.Cache == nil {
		return models.Booking{}, domain.InternalError{Msg: "offline cache not configured"}
	}
	var target models.Booking
	found := false
	for _, b := range s.Cache.Bookings(0) {
		if b.ID == bookingID {
			target, found = b, true
			break
		}
	}
	if !found {
		return models.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	if target.UserID != int64(rc.UserID) && !rc.IsAdmin() {
		return models.Booking{}, domain.UnauthorizedError{Msg: "not the booking owner"}
	}

	cancelled, err := target.Cancelled(reason, s.now())
	if err != nil {
		return models.Booking{}, err
	}
	cancelled.OfflineSyncStatus = models.SyncPending
	s.Cache.SaveBooking(cancelled)
	s.Cache.FreeSeats(cancelled.TrainID, cancelled.SeatNumbers())

	payload, err := json.Marshal(models.UpdateBookingPayload{
		Reference:          cancelled.Reference,
		UserID:             cancelled.UserID,
		Status:             models.BookingCancelled,
		CancellationReason: reason,
	})
	if err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}
	if _, err := s.queue().Enqueue(models.SyncOperation{
		ClientOpID: uuid.NewString(),
		Type:       models.OpUpdateBooking,
		Payload:    payload,
	}); err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}
	return cancelled, nil
}

// PaymentData comes from the payment collaborator once it settles.
type PaymentData struct {
	TransactionID string `json:"transactionId"`
	Method        string `json:"method"`
	Status        string `json:"paymentStatus"`
}

// ProcessPayment marks the payment settled and confirms the booking.
// Seats are untouched; they were held at creation.
func (s BookingService) ProcessPayment(bookingID int64, data PaymentData) (models.Booking, error) {
	booking, err := s.bookings().GetByID(bookingID)
	if err != nil {
		return models.Booking{}, err
	}

	now := s.now()
	if strings.EqualFold(data.Status, "Failed") {
		booking.Payment.Status = models.PaymentFailed
		booking.Payment.TransactionID = data.TransactionID
		booking.UpdatedAt = now
		if err := s.bookings().SavePayment(booking); err != nil {
			return models.Booking{}, domain.InternalError{Err: err}
		}
		return booking, nil
	}

	txnID := data.TransactionID
	if txnID == "" {
		txnID = uuid.NewString()
	}
	confirmed, err := booking.Confirmed(txnID, data.Method, now)
	if err != nil {
		return models.Booking{}, err
	}
	if err := s.bookings().SavePayment(confirmed); err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}

	utils.LogEvent(s.RequestID, "booking", "payment",
		fmt.Sprintf("booking_id=%d txn=%s", confirmed.ID, txnID))
	return confirmed, nil
}

// UpdateBookingStatus is the administrative direct transition. It runs
// the state machine but does not re-validate seat state.
func (s BookingService) UpdateBookingStatus(bookingID int64, status models.BookingStatus) (models.Booking, error) {
	if !models.ValidBookingStatus(status) {
		return models.Booking{}, domain.ValidationError{Field: "status", Msg: "unknown status"}
	}
	booking, err := s.bookings().GetByID(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	updated, err := booking.WithStatus(status, s.now())
	if err != nil {
		return models.Booking{}, err
	}
	if err := s.bookings().UpdateStatus(updated.ID, updated.Status, updated.UpdatedAt); err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}
	return updated, nil
}

// GetBooking enforces owner-or-admin visibility.
func (s BookingService) GetBooking(rc domain.RequestContext, bookingID int64) (models.Booking, error) {
	booking, err := s.bookings().GetByID(bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if booking.UserID != int64(rc.UserID) && !rc.IsAdmin() {
		return models.Booking{}, domain.UnauthorizedError{Msg: "not the booking owner"}
	}
	return booking, nil
}

// ListUserBookings returns a user's own bookings; admins may list any
// user's.
func (s BookingService) ListUserBookings(rc domain.RequestContext, userID int64) ([]models.Booking, error) {
	if userID != int64(rc.UserID) && !rc.IsAdmin() {
		return nil, domain.UnauthorizedError{Msg: "cannot list other users' bookings"}
	}
	out, err := s.bookings().ListByUser(userID)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}

// Statistics aggregates bookings by status, admin report.
func (s BookingService) Statistics() ([]repositories.BookingStat, error) {
	out, err := s.bookings().Statistics()
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}

// HeldSeatReport compares seats pinned by live bookings against seats
// flagged unavailable in inventory. The two counts match on a healthy
// train; a drift means a release or reservation was lost.
type HeldSeatReport struct {
	TrainID     int64 `json:"trainId"`
	HeldSeats   int   `json:"heldSeats"`
	Unavailable int   `json:"unavailableSeats"`
	Consistent  bool  `json:"consistent"`
}

func (s BookingService) SeatConsistency(trainID int64) (HeldSeatReport, error) {
	ok, err := s.trains().Exists(trainID)
	if err != nil {
		return HeldSeatReport{}, domain.InternalError{Err: err}
	}
	if !ok {
		return HeldSeatReport{}, domain.NotFoundError{Resource: "train"}
	}
	held, err := s.bookings().SeatsHeldByTrain(trainID)
	if err != nil {
		return HeldSeatReport{}, domain.InternalError{Err: err}
	}
	unavailable, err := s.trains().CountUnavailable(trainID)
	if err != nil {
		return HeldSeatReport{}, domain.InternalError{Err: err}
	}
	return HeldSeatReport{
		TrainID:     trainID,
		HeldSeats:   held,
		Unavailable: unavailable,
		Consistent:  held == unavailable,
	}, nil
}

// PendingOfflineBookings lists offline bookings still awaiting sync.
func (s BookingService) PendingOfflineBookings() ([]models.Booking, error) {
	out, err := s.bookings().PendingOffline()
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}

func (s BookingService) lookupTrain(trainID int64, mode domain.ConnectivityMode) (models.Train, error) {
	if mode.Offline() {
		if s.Cache == nil {
			return models.Train{}, domain.InternalError{Msg: "offline cache not configured"}
		}
		train, ok := s.Cache.GetTrain(trainID)
		if !ok {
			return models.Train{}, domain.NotFoundError{Resource: "train"}
		}
		return train, nil
	}
	return s.trains().GetByID(trainID)
}

// validatePassengers checks every requested seat against the train's
// seat map: the seat must exist, match the requested class, be unique in
// the batch and currently free; and the class must have enough free
// seats for the whole party.
func validatePassengers(train models.Train, passengers []models.Passenger) error {
	perClass := map[models.TrainClass]int{}
	seen := map[string]struct{}{}

	for i, p := range passengers {
		if strings.TrimSpace(p.Name) == "" {
			return domain.ValidationError{Field: fmt.Sprintf("passengers[%d].name", i), Msg: "required"}
		}
		if p.Age < 1 || p.Age > 120 {
			return domain.ValidationError{Field: fmt.Sprintf("passengers[%d].age", i), Msg: "must be 1-120"}
		}
		if !models.ValidTrainClass(p.SeatClass) {
			return domain.ValidationError{Field: fmt.Sprintf("passengers[%d].seatClass", i), Msg: "unknown class"}
		}
		if train.BaseFare(p.SeatClass) == 0 {
			return domain.ValidationError{Field: fmt.Sprintf("passengers[%d].seatClass", i), Msg: "class not offered on this train"}
		}

		seatNo := strings.ToUpper(strings.TrimSpace(p.SeatNumber))
		if seatNo == "" {
			return domain.ValidationError{Field: fmt.Sprintf("passengers[%d].seatNumber", i), Msg: "required"}
		}
		if _, dup := seen[seatNo]; dup {
			return domain.ValidationError{Field: fmt.Sprintf("passengers[%d].seatNumber", i), Msg: "duplicate seat in booking"}
		}
		seen[seatNo] = struct{}{}

		seat, ok := train.SeatByNumber(seatNo)
		if !ok {
			return domain.NotFoundError{Resource: "seat " + seatNo}
		}
		if seat.Class != p.SeatClass {
			return domain.ValidationError{Field: fmt.Sprintf("passengers[%d].seatNumber", i), Msg: "seat class mismatch"}
		}
		if !seat.IsAvailable {
			return domain.ConflictError{Resource: "seat", Msg: "seat " + seatNo + " is taken", Seats: []string{seatNo}}
		}
		perClass[p.SeatClass]++
	}

	for class, wanted := range perClass {
		if free := len(train.AvailableSeatsByClass(class)); free < wanted {
			return domain.ConflictError{
				Resource: "seats",
				Msg:      fmt.Sprintf("not enough seats in %s: want %d, have %d", class, wanted, free),
			}
		}
	}
	return nil
}

// generateReference rolls TR + YY + MM + 4 random digits and re-rolls on
// a reference collision.
func (s BookingService) generateReference(now time.Time) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		ref := newReference(now)
		exists, err := s.bookings().ReferenceExists(ref)
		if err != nil {
			return "", domain.InternalError{Err: err}
		}
		if !exists {
			return ref, nil
		}
	}
	return "", domain.InternalError{Msg: "could not allocate booking reference"}
}

func newReference(now time.Time) string {
	return fmt.Sprintf("TR%02d%02d%04d", now.Year()%100, int(now.Month()), rand.Intn(10000))
}
