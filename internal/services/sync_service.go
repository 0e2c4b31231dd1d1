package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	intconfig "trainbackend/internal/config"
	intdb "trainbackend/internal/db"
	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
	"trainbackend/internal/offline"
	"trainbackend/internal/repositories"
	"trainbackend/internal/utils"
)

// SyncService replays the offline operation queue against the
// authoritative store. Operations are applied strictly in enqueue order;
// one failing operation is marked Failed and skipped, it never blocks
// the rest of the queue.
type SyncService struct {
	QueueRepo   repositories.SyncQueueRepository
	BookingRepo repositories.BookingRepository
	TrainRepo   repositories.TrainRepository
	UserRepo    repositories.UserRepository
	Inventory   InventoryService
	Cache       *offline.Cache
	DB          *sql.DB
	RequestID   string

	Now func() time.Time
}

func (s SyncService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s SyncService) queue() repositories.SyncQueueRepository {
	if s.QueueRepo.DB != nil {
		return s.QueueRepo
	}
	return repositories.SyncQueueRepository{DB: s.db()}
}

func (s SyncService) bookings() repositories.BookingRepository {
	if s.BookingRepo.DB != nil {
		return s.BookingRepo
	}
	return repositories.BookingRepository{DB: s.db()}
}

func (s SyncService) trains() repositories.TrainRepository {
	if s.TrainRepo.DB != nil {
		return s.TrainRepo
	}
	return repositories.TrainRepository{DB: s.db()}
}

func (s SyncService) users() repositories.UserRepository {
	if s.UserRepo.DB != nil {
		return s.UserRepo
	}
	return repositories.UserRepository{DB: s.db()}
}

func (s SyncService) inventory() InventoryService {
	if s.Inventory.DB != nil {
		return s.Inventory
	}
	return InventoryService{DB: s.db(), TrainRepo: s.trains(), RequestID: s.RequestID}
}

func (s SyncService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SyncAll drains the pending queue once. Succeeded operations are
// removed, already-applied ones are counted as skipped and removed,
// failing ones stay in the queue marked Failed with the cause recorded.
func (s SyncService) SyncAll() (models.SyncReport, error) {
	var report models.SyncReport

	ops, err := s.queue().ListPending()
	if err != nil {
		return report, domain.InternalError{Err: err}
	}

	for _, op := range ops {
		applied, err := s.apply(op)
		if err != nil {
			report.Failed++
			if mErr := s.queue().MarkFailed(op.ID, err.Error()); mErr != nil {
				utils.LogEvent(s.RequestID, "sync", "mark_failed_error",
					fmt.Sprintf("op_id=%d err=%v", op.ID, mErr))
			}
			utils.LogEvent(s.RequestID, "sync", "op_failed",
				fmt.Sprintf("op_id=%d type=%s err=%v", op.ID, op.Type, err))
			continue
		}
		if applied {
			report.Succeeded++
		} else {
			report.Skipped++
		}
		if cErr := s.queue().Complete(op.ID); cErr != nil {
			return report, domain.InternalError{Err: cErr}
		}
	}

	utils.LogEvent(s.RequestID, "sync", "drain",
		fmt.Sprintf("succeeded=%d failed=%d skipped=%d", report.Succeeded, report.Failed, report.Skipped))
	return report, nil
}

// apply replays one operation. The bool is false when the operation was
// already applied earlier and nothing changed.
func (s SyncService) apply(op models.SyncOperation) (bool, error) {
	switch op.Type {
	case models.OpCreateBooking:
		return s.applyCreate(op.Payload)
	case models.OpUpdateBooking:
		return s.applyUpdate(op.Payload)
	case models.OpDeleteBooking:
		return s.applyDelete(op.Payload)
	case models.OpUpdatePrefs:
		return s.applyPrefs(op.Payload)
	default:
		return false, domain.ValidationError{Field: "op_type", Msg: "unknown operation type " + string(op.Type)}
	}
}

// applyCreate replays an offline booking. The booking reference is the
// idempotency key: when it already exists server-side the operation is
// treated as applied and skipped.
func (s SyncService) applyCreate(raw json.RawMessage) (bool, error) {
	var p models.CreateBookingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return false, domain.ValidationError{Field: "payload", Msg: "malformed create_booking payload"}
	}
	if p.Reference == "" || len(p.Passengers) == 0 {
		return false, domain.ValidationError{Field: "payload", Msg: "reference and passengers required"}
	}

	if existing, err := s.bookings().GetByReference(p.Reference); err == nil {
		s.markCacheSynced(p.Reference, existing.ID, models.SyncSynced)
		return false, nil
	} else if !domain.IsNotFound(err) {
		return false, err
	}

	now := s.now()
	booking := models.Booking{
		UserID:      p.UserID,
		TrainID:     p.TrainID,
		JourneyDate: p.JourneyDate,
		Passengers:  p.Passengers,
		TotalFare:   p.TotalFare,
		Payment: models.Payment{
			Amount: p.TotalFare,
			Method: p.PaymentMethod,
			Status: models.PaymentPending,
		},
		Status:            models.BookingPending,
		Reference:         p.Reference,
		IsOfflineBooking:  true,
		OfflineSyncStatus: models.SyncSynced,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	inv := s.inventory()
	unlock := inv.LockTrain(p.TrainID)
	defer unlock()

	err := intdb.WithTx(s.db(), func(tx *sql.Tx) error {
		if err := inv.ReserveTx(tx, p.TrainID, booking.SeatNumbers()); err != nil {
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
		s.markCacheSynced(p.Reference, 0, models.SyncFailed)
		return false, err
	}

	s.markCacheSynced(p.Reference, booking.ID, models.SyncSynced)
	if s.Cache != nil {
		// server inventory is authoritative now; drop the local hold
		s.Cache.FreeSeats(p.TrainID, booking.SeatNumbers())
	}
	return true, nil
}

// applyUpdate replays a status change. A cancellation goes through the
// full cancel path so the held seats come back; other moves are bare
// status writes.
func (s SyncService) applyUpdate(raw json.RawMessage) (bool, error) {
	var p models.UpdateBookingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return false, domain.ValidationError{Field: "payload", Msg: "malformed update_booking payload"}
	}

	booking, err := s.bookings().GetByReference(p.Reference)
	if err != nil {
		return false, err
	}
	if booking.Status == p.Status {
		return false, nil
	}

	now := s.now()
	if p.Status == models.BookingCancelled {
		cancelled, err := booking.Cancelled(p.CancellationReason, now)
		if err != nil {
			return false, err
		}
		if cancelled.Payment.Status == models.PaymentCompleted && cancelled.RefundAmount > 0 {
			cancelled.Payment.Status = models.PaymentRefunded
		}
		inv := s.inventory()
		unlock := inv.LockTrain(cancelled.TrainID)
		defer unlock()
		err = intdb.WithTx(s.db(), func(tx *sql.Tx) error {
			if err := s.bookings().SaveCancellation(tx, cancelled); err != nil {
				return err
			}
			return inv.ReleaseTx(tx, cancelled.TrainID, cancelled.SeatNumbers())
		})
		if err != nil {
			return false, err
		}
		s.markCacheSynced(p.Reference, cancelled.ID, models.SyncSynced)
		return true, nil
	}

	updated, err := booking.WithStatus(p.Status, now)
	if err != nil {
		return false, err
	}
	if err := s.bookings().UpdateStatus(updated.ID, updated.Status, updated.UpdatedAt); err != nil {
		return false, err
	}
	return true, nil
}

// applyDelete discards a booking recorded then abandoned while offline.
// A reference unknown to the server means the booking never got there;
// nothing to do. A booking that did land is cancelled so its seats free
// up.
func (s SyncService) applyDelete(raw json.RawMessage) (bool, error) {
	var p models.DeleteBookingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return false, domain.ValidationError{Field: "payload", Msg: "malformed delete_booking payload"}
	}

	booking, err := s.bookings().GetByReference(p.Reference)
	if domain.IsNotFound(err) {
		if s.Cache != nil {
			s.Cache.RemoveBooking(p.Reference)
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if booking.Status == models.BookingCancelled {
		return false, nil
	}

	cancelled, err := booking.Cancelled("removed while offline", s.now())
	if err != nil {
		return false, err
	}
	inv := s.inventory()
	unlock := inv.LockTrain(cancelled.TrainID)
	defer unlock()
	err = intdb.WithTx(s.db(), func(tx *sql.Tx) error {
		if err := s.bookings().SaveCancellation(tx, cancelled); err != nil {
			return err
		}
		return inv.ReleaseTx(tx, cancelled.TrainID, cancelled.SeatNumbers())
	})
	if err != nil {
		return false, err
	}
	if s.Cache != nil {
		s.Cache.RemoveBooking(p.Reference)
	}
	return true, nil
}

// applyPrefs writes the preference blob, last write wins across the
// queue's FIFO order.
func (s SyncService) applyPrefs(raw json.RawMessage) (bool, error) {
	var p models.UpdatePrefsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return false, domain.ValidationError{Field: "payload", Msg: "malformed update_user_preferences payload"}
	}
	if p.UserID <= 0 {
		return false, domain.ValidationError{Field: "userId", Msg: "required"}
	}
	if err := s.users().UpdatePreferences(p.UserID, p.Preferences); err != nil {
		return false, err
	}
	return true, nil
}

// FailedOperations lists queue entries waiting for manual retry.
func (s SyncService) FailedOperations() ([]models.SyncOperation, error) {
	ops, err := s.queue().ListFailed()
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return ops, nil
}

// RetryOperation re-queues one Failed operation; the next drain picks it
// up in id order.
func (s SyncService) RetryOperation(id int64) error {
	return s.queue().RetryFailed(id)
}

// RunPeriodic drains the queue on every tick until the context is
// cancelled. Errors are logged, not fatal; the next tick tries again.
func (s SyncService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SyncAll(); err != nil {
				utils.LogEvent(s.RequestID, "sync", "periodic_error", err.Error())
			}
		}
	}
}

func (s SyncService) markCacheSynced(reference string, serverID int64, status models.SyncStatus) {
	if s.Cache == nil {
		return
	}
	s.Cache.MarkSynced(reference, serverID, status)
}
