package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intconfig "trainbackend/internal/config"
	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
)

type TrainRepository struct {
	DB *sql.DB
}

func (r TrainRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// GetByID loads the train row plus schedule, fares and the full seat map.
func (r TrainRepository) GetByID(id int64) (models.Train, error) {
	if id <= 0 {
		return models.Train{}, domain.ValidationError{Field: "train_id", Msg: "invalid id"}
	}
	db := r.db()

	var t models.Train
	var status string
	err := db.QueryRow(`
		SELECT id, number, name, source_name, source_code, dest_name, dest_code, status, last_updated
		FROM trains
		WHERE id=? LIMIT 1
	`, id).Scan(&t.ID, &t.Number, &t.Name, &t.SourceName, &t.SourceCode, &t.DestName, &t.DestCode, &status, &t.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Train{}, domain.NotFoundError{Resource: "train"}
		}
		return models.Train{}, err
	}
	t.Status = models.TrainStatus(status)

	if err := r.loadSchedule(db, &t); err != nil {
		return models.Train{}, err
	}
	if err := r.loadFares(db, &t); err != nil {
		return models.Train{}, err
	}
	if err := r.loadSeats(db, &t); err != nil {
		return models.Train{}, err
	}
	return t, nil
}

// Exists is a cheap presence probe used where the full aggregate is not
// needed.
func (r TrainRepository) Exists(id int64) (bool, error) {
	var one int
	err := r.db().QueryRow(`SELECT 1 FROM trains WHERE id=? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Search returns Active trains for a source/destination pair. Seat maps
// are left unloaded; listings do not need them.
func (r TrainRepository) Search(sourceCode, destCode string) ([]models.Train, error) {
	db := r.db()
	rows, err := db.Query(`
		SELECT id, number, name, source_name, source_code, dest_name, dest_code, status, last_updated
		FROM trains
		WHERE source_code=? AND dest_code=? AND status='Active'
		ORDER BY number ASC
	`, strings.ToUpper(strings.TrimSpace(sourceCode)), strings.ToUpper(strings.TrimSpace(destCode)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(db, rows)
}

// List returns every train, admin listings only.
func (r TrainRepository) List() ([]models.Train, error) {
	db := r.db()
	rows, err := db.Query(`
		SELECT id, number, name, source_name, source_code, dest_name, dest_code, status, last_updated
		FROM trains
		ORDER BY number ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(db, rows)
}

func (r TrainRepository) collect(db *sql.DB, rows *sql.Rows) ([]models.Train, error) {
	out := []models.Train{}
	for rows.Next() {
		var t models.Train
		var status string
		if err := rows.Scan(&t.ID, &t.Number, &t.Name, &t.SourceName, &t.SourceCode, &t.DestName, &t.DestCode, &status, &t.LastUpdated); err != nil {
			return out, err
		}
		t.Status = models.TrainStatus(status)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	for i := range out {
		if err := r.loadSchedule(db, &out[i]); err != nil {
			return out, err
		}
		if err := r.loadFares(db, &out[i]); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (r TrainRepository) loadSchedule(db *sql.DB, t *models.Train) error {
	rows, err := db.Query(`
		SELECT station_name, station_code, arrival_time, departure_time, distance
		FROM train_stops
		WHERE train_id=?
		ORDER BY position ASC
	`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	t.Schedule = []models.ScheduleStop{}
	for rows.Next() {
		var s models.ScheduleStop
		if err := rows.Scan(&s.StationName, &s.StationCode, &s.ArrivalTime, &s.DepartureTime, &s.Distance); err != nil {
			return err
		}
		t.Schedule = append(t.Schedule, s)
	}
	return rows.Err()
}

func (r TrainRepository) loadFares(db *sql.DB, t *models.Train) error {
	rows, err := db.Query(`
		SELECT train_class, base_fare
		FROM train_fares
		WHERE train_id=?
	`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	t.Fares = map[models.TrainClass]float64{}
	t.Classes = []models.TrainClass{}
	for rows.Next() {
		var class string
		var fare float64
		if err := rows.Scan(&class, &fare); err != nil {
			return err
		}
		t.Fares[models.TrainClass(class)] = fare
		t.Classes = append(t.Classes, models.TrainClass(class))
	}
	return rows.Err()
}

func (r TrainRepository) loadSeats(db *sql.DB, t *models.Train) error {
	rows, err := db.Query(`
		SELECT seat_number, train_class, seat_type, is_available
		FROM train_seats
		WHERE train_id=?
		ORDER BY id ASC
	`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	t.Seats = []models.Seat{}
	for rows.Next() {
		var s models.Seat
		var class, seatType string
		if err := rows.Scan(&s.Number, &class, &seatType, &s.IsAvailable); err != nil {
			return err
		}
		s.Class = models.TrainClass(class)
		s.Type = models.SeatType(seatType)
		t.Seats = append(t.Seats, s)
	}
	return rows.Err()
}

// SeatsByClass lists seats of a class for a train, available first is
// not needed; stored seat order is the published one.
func (r TrainRepository) SeatsByClass(trainID int64, class models.TrainClass) ([]models.Seat, error) {
	db := r.db()
	rows, err := db.Query(`
		SELECT seat_number, train_class, seat_type, is_available
		FROM train_seats
		WHERE train_id=? AND train_class=?
		ORDER BY id ASC
	`, trainID, string(class))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Seat{}
	for rows.Next() {
		var s models.Seat
		var cls, seatType string
		if err := rows.Scan(&s.Number, &cls, &seatType, &s.IsAvailable); err != nil {
			return out, err
		}
		s.Class = models.TrainClass(cls)
		s.Type = models.SeatType(seatType)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReserveSeats flips the batch to unavailable in one statement. The
// WHERE is_available=1 clause is the check-and-set: the returned count
// only matches the batch size when every seat was still free.
func (r TrainRepository) ReserveSeats(tx *sql.Tx, trainID int64, seatNumbers []string) (int64, error) {
	if len(seatNumbers) == 0 {
		return 0, nil
	}
	query, args := seatBatchQuery(
		`UPDATE train_seats SET is_available=0 WHERE train_id=? AND is_available=1 AND seat_number IN`,
		trainID, seatNumbers)
	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReleaseSeats puts seats back; releasing an already-available seat is a
// no-op by construction.
func (r TrainRepository) ReleaseSeats(tx *sql.Tx, trainID int64, seatNumbers []string) error {
	if len(seatNumbers) == 0 {
		return nil
	}
	query, args := seatBatchQuery(
		`UPDATE train_seats SET is_available=1 WHERE train_id=? AND seat_number IN`,
		trainID, seatNumbers)
	_, err := tx.Exec(query, args...)
	return err
}

// UnavailableIn reports which of the given seats are currently taken,
// for error detail only; the reserve statement is the source of truth.
func (r TrainRepository) UnavailableIn(trainID int64, seatNumbers []string) ([]string, error) {
	if len(seatNumbers) == 0 {
		return nil, nil
	}
	db := r.db()
	query, args := seatBatchQuery(
		`SELECT seat_number FROM train_seats WHERE train_id=? AND is_available=0 AND seat_number IN`,
		trainID, seatNumbers)
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return out, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnavailable counts seats currently flagged taken on a train.
func (r TrainRepository) CountUnavailable(trainID int64) (int, error) {
	var n int
	err := r.db().QueryRow(`SELECT COUNT(*) FROM train_seats WHERE train_id=? AND is_available=0`, trainID).Scan(&n)
	return n, err
}

// UpdateStatus soft-deletes or reactivates a train.
func (r TrainRepository) UpdateStatus(id int64, status models.TrainStatus) error {
	db := r.db()
	res, err := db.Exec(`UPDATE trains SET status=?, last_updated=NOW() WHERE id=?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// row may exist with the same status already; verify presence
		var one int
		if err := db.QueryRow(`SELECT 1 FROM trains WHERE id=?`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.NotFoundError{Resource: "train"}
			}
			return err
		}
	}
	return nil
}

// Create inserts the train with its stops, fares and seat map in one
// transaction. Used by the admin surface and by seeding.
func (r TrainRepository) Create(t models.Train) (int64, error) {
	db := r.db()
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`
		INSERT INTO trains (number, name, source_name, source_code, dest_name, dest_code, status, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW())
	`, t.Number, t.Name, t.SourceName, strings.ToUpper(t.SourceCode), t.DestName, strings.ToUpper(t.DestCode), string(t.Status))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, s := range t.Schedule {
		if _, err := tx.Exec(`
			INSERT INTO train_stops (train_id, position, station_name, station_code, arrival_time, departure_time, distance)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, i, s.StationName, strings.ToUpper(s.StationCode), s.ArrivalTime, s.DepartureTime, s.Distance); err != nil {
			return 0, err
		}
	}
	for class, fare := range t.Fares {
		if _, err := tx.Exec(`
			INSERT INTO train_fares (train_id, train_class, base_fare)
			VALUES (?, ?, ?)
		`, id, string(class), fare); err != nil {
			return 0, err
		}
	}
	for _, s := range t.Seats {
		if _, err := tx.Exec(`
			INSERT INTO train_seats (train_id, seat_number, train_class, seat_type, is_available)
			VALUES (?, ?, ?, ?, ?)
		`, id, strings.ToUpper(s.Number), string(s.Class), string(s.Type), s.IsAvailable); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Touch bumps last_updated after inventory changes.
func (r TrainRepository) Touch(tx *sql.Tx, trainID int64) error {
	_, err := tx.Exec(`UPDATE trains SET last_updated=NOW() WHERE id=?`, trainID)
	return err
}

func seatBatchQuery(prefix string, trainID int64, seatNumbers []string) (string, []any) {
	placeholders := make([]string, len(seatNumbers))
	args := make([]any, 0, len(seatNumbers)+1)
	args = append(args, trainID)
	for i, n := range seatNumbers {
		placeholders[i] = "?"
		args = append(args, strings.ToUpper(strings.TrimSpace(n)))
	}
	return fmt.Sprintf("%s (%s)", prefix, strings.Join(placeholders, ",")), args
}
