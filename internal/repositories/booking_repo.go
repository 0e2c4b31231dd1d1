package repositories

import (
	"database/sql"
	"errors"
	"time"

	intconfig "trainbackend/internal/config"
	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
)

type BookingRepository struct {
	DB *sql.DB
}

func (r BookingRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const bookingColumns = `id, user_id, train_id, journey_date, total_fare,
	payment_amount, payment_method, payment_status, payment_transaction_id, payment_date,
	status, booking_reference, is_offline_booking, offline_sync_status,
	cancellation_reason, cancellation_date, refund_amount, created_at, updated_at`

// Create inserts the booking and its passengers inside the caller's
// transaction, so seat reservation and booking creation commit together.
func (r BookingRepository) Create(tx *sql.Tx, b models.Booking) (int64, error) {
	res, err := tx.Exec(`
		INSERT INTO bookings (user_id, train_id, journey_date, total_fare,
			payment_amount, payment_method, payment_status,
			status, booking_reference, is_offline_booking, offline_sync_status,
			refund_amount, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, b.UserID, b.TrainID, b.JourneyDate, b.TotalFare,
		b.Payment.Amount, b.Payment.Method, string(b.Payment.Status),
		string(b.Status), b.Reference, b.IsOfflineBooking, string(b.OfflineSyncStatus),
		b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, p := range b.Passengers {
		if _, err := tx.Exec(`
			INSERT INTO booking_passengers (booking_id, name, age, gender, seat_number, seat_class)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, p.Name, p.Age, p.Gender, p.SeatNumber, string(p.SeatClass)); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// GetByID loads the booking plus its passenger list.
func (r BookingRepository) GetByID(id int64) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.ValidationError{Field: "booking_id", Msg: "invalid id"}
	}
	db := r.db()
	row := db.QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE id=? LIMIT 1`, id)
	return r.scanOne(db, row)
}

// GetByReference resolves a booking by its public reference. The sync
// reconciler uses this as the replay dedup lookup.
func (r BookingRepository) GetByReference(ref string) (models.Booking, error) {
	db := r.db()
	row := db.QueryRow(`SELECT `+bookingColumns+` FROM bookings WHERE booking_reference=? LIMIT 1`, ref)
	return r.scanOne(db, row)
}

// ReferenceExists backs reference generation collision re-rolls.
func (r BookingRepository) ReferenceExists(ref string) (bool, error) {
	var one int
	err := r.db().QueryRow(`SELECT 1 FROM bookings WHERE booking_reference=? LIMIT 1`, ref).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByUser returns a user's bookings ordered by journey date.
func (r BookingRepository) ListByUser(userID int64) ([]models.Booking, error) {
	db := r.db()
	rows, err := db.Query(`SELECT `+bookingColumns+` FROM bookings WHERE user_id=? ORDER BY journey_date ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(db, rows)
}

// PendingOffline lists offline bookings still awaiting reconciliation.
func (r BookingRepository) PendingOffline() ([]models.Booking, error) {
	db := r.db()
	rows, err := db.Query(`
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE is_offline_booking=1 AND offline_sync_status='Pending'
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanMany(db, rows)
}

// SeatsHeldByTrain counts seats referenced by bookings that still pin
// inventory, for the consistency check surfaced on the admin report.
func (r BookingRepository) SeatsHeldByTrain(trainID int64) (int, error) {
	var n int
	err := r.db().QueryRow(`
		SELECT COUNT(*)
		FROM booking_passengers bp
		JOIN bookings b ON b.id = bp.booking_id
		WHERE b.train_id=? AND b.status IN ('Pending','Confirmed')
	`, trainID).Scan(&n)
	return n, err
}

// UpdateStatus writes a bare status move (admin path).
func (r BookingRepository) UpdateStatus(id int64, status models.BookingStatus, updatedAt time.Time) error {
	_, err := r.db().Exec(`UPDATE bookings SET status=?, updated_at=? WHERE id=?`, string(status), updatedAt, id)
	return err
}

// SaveCancellation persists status, reason, refund and the refunded
// payment marker inside the caller's transaction, together with the
// seat release.
func (r BookingRepository) SaveCancellation(tx *sql.Tx, b models.Booking) error {
	_, err := tx.Exec(`
		UPDATE bookings
		SET status=?, cancellation_reason=?, cancellation_date=?, refund_amount=?,
			payment_status=?, updated_at=?
		WHERE id=?
	`, string(b.Status), b.CancellationReason, b.CancellationDate, b.RefundAmount,
		string(b.Payment.Status), b.UpdatedAt, b.ID)
	return err
}

// SavePayment records a completed payment and the confirmed status.
func (r BookingRepository) SavePayment(b models.Booking) error {
	_, err := r.db().Exec(`
		UPDATE bookings
		SET status=?, payment_status=?, payment_method=?, payment_transaction_id=?, payment_date=?, updated_at=?
		WHERE id=?
	`, string(b.Status), string(b.Payment.Status), b.Payment.Method,
		b.Payment.TransactionID, b.Payment.PaymentDate, b.UpdatedAt, b.ID)
	return err
}

// MarkSyncStatus moves an offline booking between Pending/Synced/Failed.
func (r BookingRepository) MarkSyncStatus(id int64, status models.SyncStatus) error {
	_, err := r.db().Exec(`UPDATE bookings SET offline_sync_status=?, updated_at=NOW() WHERE id=?`, string(status), id)
	return err
}

// BookingStat is one row of the status aggregate.
type BookingStat struct {
	Status    string  `json:"status"`
	Count     int     `json:"count"`
	TotalFare float64 `json:"totalFare"`
}

// Statistics groups bookings by status with fare totals.
func (r BookingRepository) Statistics() ([]BookingStat, error) {
	rows, err := r.db().Query(`
		SELECT status, COUNT(*), COALESCE(SUM(total_fare), 0)
		FROM bookings
		GROUP BY status
		ORDER BY status ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []BookingStat{}
	for rows.Next() {
		var s BookingStat
		if err := rows.Scan(&s.Status, &s.Count, &s.TotalFare); err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r BookingRepository) scanOne(db *sql.DB, row *sql.Row) (models.Booking, error) {
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Booking{}, domain.NotFoundError{Resource: "booking"}
		}
		return models.Booking{}, err
	}
	if err := r.loadPassengers(db, &b); err != nil {
		return models.Booking{}, err
	}
	return b, nil
}

func (r BookingRepository) scanMany(db *sql.DB, rows *sql.Rows) ([]models.Booking, error) {
	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return out, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	for i := range out {
		if err := r.loadPassengers(db, &out[i]); err != nil {
			return out, err
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (models.Booking, error) {
	var b models.Booking
	var status, payStatus, syncStatus string
	var method, txnID, reason sql.NullString
	var payDate, cancelDate sql.NullTime
	err := row.Scan(
		&b.ID, &b.UserID, &b.TrainID, &b.JourneyDate, &b.TotalFare,
		&b.Payment.Amount, &method, &payStatus, &txnID, &payDate,
		&status, &b.Reference, &b.IsOfflineBooking, &syncStatus,
		&reason, &cancelDate, &b.RefundAmount, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return b, err
	}
	b.Status = models.BookingStatus(status)
	b.Payment.Status = models.PaymentStatus(payStatus)
	b.Payment.Method = method.String
	b.Payment.TransactionID = txnID.String
	b.OfflineSyncStatus = models.SyncStatus(syncStatus)
	b.CancellationReason = reason.String
	if payDate.Valid {
		t := payDate.Time
		b.Payment.PaymentDate = &t
	}
	if cancelDate.Valid {
		t := cancelDate.Time
		b.CancellationDate = &t
	}
	return b, nil
}

func (r BookingRepository) loadPassengers(db *sql.DB, b *models.Booking) error {
	rows, err := db.Query(`
		SELECT name, age, gender, seat_number, seat_class
		FROM booking_passengers
		WHERE booking_id=?
		ORDER BY id ASC
	`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	b.Passengers = []models.Passenger{}
	for rows.Next() {
		var p models.Passenger
		var class string
		if err := rows.Scan(&p.Name, &p.Age, &p.Gender, &p.SeatNumber, &class); err != nil {
			return err
		}
		p.SeatClass = models.TrainClass(class)
		b.Passengers = append(b.Passengers, p)
	}
	return rows.Err()
}
