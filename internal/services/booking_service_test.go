package services

import (
	"strings"
	"testing"
	"time"

	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
	"trainbackend/internal/offline"
	"trainbackend/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
)

func fixtureTrain() models.Train {
	return models.Train{
		ID:         7,
		Number:     "12345",
		Name:       "Night Express",
		SourceCode: "NDL",
		DestCode:   "MMC",
		Status:     models.TrainActive,
		Schedule: []models.ScheduleStop{
			{StationCode: "NDL", Distance: 0},
			{StationCode: "MMC", Distance: 215},
		},
		Fares: map[models.TrainClass]float64{models.Sleeper: 150},
		Seats: []models.Seat{
			{Number: "S1", Class: models.Sleeper, IsAvailable: true},
			{Number: "S2", Class: models.Sleeper, IsAvailable: true},
			{Number: "S3", Class: models.Sleeper, IsAvailable: false},
		},
	}
}

func expectTrainAggregate(mock sqlmock.Sqlmock, trainID int64) {
	now := time.Now()
	mock.ExpectQuery("FROM trains").
		WithArgs(trainID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "number", "name", "source_name", "source_code", "dest_name", "dest_code", "status", "last_updated",
		}).AddRow(trainID, "12345", "Night Express", "New Delhi", "NDL", "Mumbai", "MMC", "Active", now))
	mock.ExpectQuery("FROM train_stops").
		WithArgs(trainID).
		WillReturnRows(sqlmock.NewRows([]string{"station_name", "station_code", "arrival_time", "departure_time", "distance"}).
			AddRow("New Delhi", "NDL", "-", "16:00", 0.0).
			AddRow("Mumbai", "MMC", "08:35", "-", 215.0))
	mock.ExpectQuery("FROM train_fares").
		WithArgs(trainID).
		WillReturnRows(sqlmock.NewRows([]string{"train_class", "base_fare"}).
			AddRow("Sleeper", 150.0))
	mock.ExpectQuery("FROM train_seats").
		WithArgs(trainID).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number", "train_class", "seat_type", "is_available"}).
			AddRow("S1", "Sleeper", "Window", true).
			AddRow("S2", "Sleeper", "Aisle", true).
			AddRow("S3", "Sleeper", "Middle", false))
}

func TestCreateBookingOnline(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	expectTrainAggregate(mock, 7)

	// reference free on first roll
	mock.ExpectQuery("SELECT 1 FROM bookings WHERE booking_reference").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE train_seats SET is_available=0").
		WithArgs(int64(7), "S1", "S2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE trains SET last_updated").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("INSERT INTO booking_passengers").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO booking_passengers").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		TrainRepo:   repositories.TrainRepository{DB: db},
		DB:          db,
		Now:         func() time.Time { return now },
	}

	booking, err := svc.CreateBooking(
		domain.RequestContext{UserID: 3, Role: "user"},
		CreateBookingInput{
			TrainID:     7,
			JourneyDate: time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC),
			Passengers: []models.Passenger{
				{Name: "Asha", Age: 34, Gender: "F", SeatNumber: "S1", SeatClass: models.Sleeper},
				{Name: "Ravi", Age: 36, Gender: "M", SeatNumber: "S2", SeatClass: models.Sleeper},
			},
			PaymentMethod: "card",
		},
		domain.ModeOnline,
	)
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	if booking.ID != 42 {
		t.Fatalf("booking id = %d, want 42", booking.ID)
	}
	if booking.TotalFare != 515.0 {
		t.Fatalf("total fare = %v, want 515.0", booking.TotalFare)
	}
	if booking.Status != models.BookingPending {
		t.Fatalf("status = %s, want Pending", booking.Status)
	}
	if !strings.HasPrefix(booking.Reference, "TR2606") || len(booking.Reference) != 10 {
		t.Fatalf("reference = %q, want TR2606 + 4 digits", booking.Reference)
	}
	if booking.IsOfflineBooking {
		t.Fatalf("online booking flagged offline")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateBookingSeatConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	expectTrainAggregate(mock, 7)

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		TrainRepo:   repositories.TrainRepository{DB: db},
		DB:          db,
	}

	// S3 is already taken in the seat map; no reservation is attempted
	_, err = svc.CreateBooking(
		domain.RequestContext{UserID: 3},
		CreateBookingInput{
			TrainID:     7,
			JourneyDate: time.Now().AddDate(0, 0, 10),
			Passengers: []models.Passenger{
				{Name: "Asha", Age: 34, SeatNumber: "S3", SeatClass: models.Sleeper},
			},
			PaymentMethod: "card",
		},
		domain.ModeOnline,
	)
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestValidatePassengers(t *testing.T) {
	train := fixtureTrain()

	cases := []struct {
		name       string
		passengers []models.Passenger
		check      func(error) bool
	}{
		{"unknown seat", []models.Passenger{
			{Name: "A", Age: 30, SeatNumber: "Z9", SeatClass: models.Sleeper},
		}, domain.IsNotFound},
		{"class mismatch", []models.Passenger{
			{Name: "A", Age: 30, SeatNumber: "S1", SeatClass: models.FirstClass},
		}, domain.IsValidation},
		{"duplicate seat", []models.Passenger{
			{Name: "A", Age: 30, SeatNumber: "S1", SeatClass: models.Sleeper},
			{Name: "B", Age: 31, SeatNumber: "S1", SeatClass: models.Sleeper},
		}, domain.IsValidation},
		{"taken seat", []models.Passenger{
			{Name: "A", Age: 30, SeatNumber: "S3", SeatClass: models.Sleeper},
		}, domain.IsConflict},
		{"bad age", []models.Passenger{
			{Name: "A", Age: 0, SeatNumber: "S1", SeatClass: models.Sleeper},
		}, domain.IsValidation},
		{"missing name", []models.Passenger{
			{Name: " ", Age: 30, SeatNumber: "S1", SeatClass: models.Sleeper},
		}, domain.IsValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassengers(train, tc.passengers)
			if !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}

	ok := []models.Passenger{
		{Name: "A", Age: 30, SeatNumber: "S1", SeatClass: models.Sleeper},
		{Name: "B", Age: 31, SeatNumber: "S2", SeatClass: models.Sleeper},
	}
	if err := validatePassengers(train, ok); err != nil {
		t.Fatalf("valid batch rejected: %v", err)
	}
}

func TestCreateBookingOffline(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	// queue enqueue: table present, no duplicate client op, insert
	mock.ExpectQuery("information_schema\\.tables").WithArgs("sync_operations").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("sync_operations"))
	mock.ExpectQuery("SELECT id FROM sync_operations").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO sync_operations").
		WillReturnResult(sqlmock.NewResult(1, 1))

	cache := offline.NewCache()
	cache.SaveTrains([]models.Train{fixtureTrain()})

	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	svc := BookingService{
		QueueRepo: repositories.SyncQueueRepository{DB: db},
		Cache:     cache,
		DB:        db,
		Now:       func() time.Time { return now },
	}

	booking, err := svc.CreateBooking(
		domain.RequestContext{UserID: 3},
		CreateBookingInput{
			TrainID:     7,
			JourneyDate: time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC),
			Passengers: []models.Passenger{
				{Name: "Asha", Age: 34, SeatNumber: "S1", SeatClass: models.Sleeper},
			},
			PaymentMethod: "cash",
		},
		domain.ModeOffline,
	)
	if err != nil {
		t.Fatalf("offline create error: %v", err)
	}

	if booking.ID >= 0 {
		t.Fatalf("offline booking should carry a local negative id, got %d", booking.ID)
	}
	if !booking.IsOfflineBooking || booking.OfflineSyncStatus != models.SyncPending {
		t.Fatalf("offline markers wrong: %+v", booking)
	}
	if booking.TotalFare != 257.5 {
		t.Fatalf("total fare = %v, want 257.5", booking.TotalFare)
	}

	// seat held in the cache so a second offline booking cannot take it
	train, _ := cache.GetTrain(7)
	if seat, _ := train.SeatByNumber("S1"); seat.IsAvailable {
		t.Fatalf("seat S1 should be held in cache")
	}
	if _, ok := cache.GetBooking(booking.Reference); !ok {
		t.Fatalf("booking missing from cache")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func expectBookingRow(mock sqlmock.Sqlmock, id int64, status, payStatus string, fare float64, journey time.Time) {
	now := time.Now()
	mock.ExpectQuery("FROM bookings WHERE id=").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "train_id", "journey_date", "total_fare",
			"payment_amount", "payment_method", "payment_status", "payment_transaction_id", "payment_date",
			"status", "booking_reference", "is_offline_booking", "offline_sync_status",
			"cancellation_reason", "cancellation_date", "refund_amount", "created_at", "updated_at",
		}).AddRow(id, 3, 7, journey, fare,
			fare, "card", payStatus, nil, nil,
			status, "TR26060042", false, "Synced",
			nil, nil, 0.0, now, now))
	mock.ExpectQuery("FROM booking_passengers").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"name", "age", "gender", "seat_number", "seat_class"}).
			AddRow("Asha", 34, "F", "S1", "Sleeper").
			AddRow("Ravi", 36, "M", "S2", "Sleeper"))
}

func TestCancelBookingReleasesSeatsAndRefunds(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	journey := time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC)
	expectBookingRow(mock, 42, "Confirmed", "Completed", 515, journey)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE train_seats SET is_available=1").
		WithArgs(int64(7), "S1", "S2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE trains SET last_updated").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// 10 days out: 75% tier
	now := journey.AddDate(0, 0, -10)
	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		TrainRepo:   repositories.TrainRepository{DB: db},
		DB:          db,
		Now:         func() time.Time { return now },
	}

	booking, err := svc.CancelBooking(domain.RequestContext{UserID: 3}, 42, "change of plans", domain.ModeOnline)
	if err != nil {
		t.Fatalf("cancel error: %v", err)
	}
	if booking.Status != models.BookingCancelled {
		t.Fatalf("status = %s, want Cancelled", booking.Status)
	}
	if booking.RefundAmount != 515*0.75 {
		t.Fatalf("refund = %v, want %v", booking.RefundAmount, 515*0.75)
	}
	if booking.Payment.Status != models.PaymentRefunded {
		t.Fatalf("payment status = %s, want Refunded", booking.Payment.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelBookingRequiresOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	expectBookingRow(mock, 42, "Confirmed", "Completed", 515, time.Now().AddDate(0, 0, 10))

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		DB:          db,
	}
	_, err = svc.CancelBooking(domain.RequestContext{UserID: 99, Role: "user"}, 42, "", domain.ModeOnline)
	if !domain.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestCancelCancelledBookingRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	expectBookingRow(mock, 42, "Cancelled", "Refunded", 515, time.Now().AddDate(0, 0, 10))

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		DB:          db,
	}
	_, err = svc.CancelBooking(domain.RequestContext{UserID: 3}, 42, "", domain.ModeOnline)
	if !domain.IsStateTransition(err) {
		t.Fatalf("expected state transition error, got %v", err)
	}
}

func TestProcessPaymentConfirmsBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	expectBookingRow(mock, 42, "Pending", "Pending", 515, time.Now().AddDate(0, 0, 10))
	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		DB:          db,
	}
	booking, err := svc.ProcessPayment(42, PaymentData{TransactionID: "txn-1", Method: "card", Status: "Completed"})
	if err != nil {
		t.Fatalf("payment error: %v", err)
	}
	if booking.Status != models.BookingConfirmed || booking.Payment.Status != models.PaymentCompleted {
		t.Fatalf("booking not confirmed: status=%s payment=%s", booking.Status, booking.Payment.Status)
	}
}

func TestSeatConsistencyDetectsDrift(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT 1 FROM trains").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("FROM booking_passengers bp").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM train_seats").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		TrainRepo:   repositories.TrainRepository{DB: db},
		DB:          db,
	}
	report, err := svc.SeatConsistency(7)
	if err != nil {
		t.Fatalf("consistency error: %v", err)
	}
	if report.Consistent {
		t.Fatalf("3 held vs 2 unavailable must be flagged inconsistent")
	}
	if report.HeldSeats != 3 || report.Unavailable != 2 {
		t.Fatalf("report = %+v", report)
	}
}

func TestProcessPaymentFailureKeepsPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	expectBookingRow(mock, 42, "Pending", "Pending", 515, time.Now().AddDate(0, 0, 10))
	mock.ExpectExec("UPDATE bookings").
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc := BookingService{
		BookingRepo: repositories.BookingRepository{DB: db},
		DB:          db,
	}
	booking, err := svc.ProcessPayment(42, PaymentData{Status: "Failed"})
	if err != nil {
		t.Fatalf("payment error: %v", err)
	}
	if booking.Status != models.BookingPending {
		t.Fatalf("failed payment must keep booking Pending, got %s", booking.Status)
	}
	if booking.Payment.Status != models.PaymentFailed {
		t.Fatalf("payment status = %s, want Failed", booking.Payment.Status)
	}
}
