package services

import (
	"sync"
	"testing"

	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
	"trainbackend/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestReserveWholeBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE train_seats SET is_available=0").
		WithArgs(int64(7), "S1", "S2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE trains SET last_updated").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := InventoryService{TrainRepo: repositories.TrainRepository{DB: db}, DB: db}
	if err := svc.Reserve(7, []string{"s1", "S2"}); err != nil {
		t.Fatalf("reserve error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReservePartialBatchRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	// only one of two seats still free
	mock.ExpectExec("UPDATE train_seats SET is_available=0").
		WithArgs(int64(7), "S1", "S2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT seat_number FROM train_seats").
		WithArgs(int64(7), "S1", "S2").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("S2"))
	mock.ExpectRollback()

	svc := InventoryService{TrainRepo: repositories.TrainRepository{DB: db}, DB: db}
	err = svc.Reserve(7, []string{"S1", "S2"})
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var conflict domain.ConflictError
	if !domain.AsConflict(err, &conflict) {
		t.Fatalf("conflict detail missing")
	}
	if len(conflict.Seats) != 1 || conflict.Seats[0] != "S2" {
		t.Fatalf("conflict seats = %v, want [S2]", conflict.Seats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReserveRejectsEmptyBatch(t *testing.T) {
	svc := InventoryService{}
	if err := svc.Reserve(7, []string{"  ", ""}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE train_seats SET is_available=1").
			WithArgs(int64(7), "S1").
			WillReturnResult(sqlmock.NewResult(0, int64(1-i)))
		mock.ExpectExec("UPDATE trains SET last_updated").
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	svc := InventoryService{TrainRepo: repositories.TrainRepository{DB: db}, DB: db}
	if err := svc.Release(7, []string{"S1"}); err != nil {
		t.Fatalf("first release error: %v", err)
	}
	// second release touches zero rows and still succeeds
	if err := svc.Release(7, []string{"S1"}); err != nil {
		t.Fatalf("second release error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConcurrentReserveSingleWinner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	// the per-train lock serializes the two calls; first takes the seat,
	// second finds it gone
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE train_seats SET is_available=0").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trains SET last_updated").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE train_seats SET is_available=0").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT seat_number FROM train_seats").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow("S1"))
	mock.ExpectRollback()

	svc := InventoryService{TrainRepo: repositories.TrainRepository{DB: db}, DB: db}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Reserve(41, []string{"S1"})
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case domain.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("want exactly one winner and one conflict, got %d/%d", wins, conflicts)
	}
}

func TestAvailableSeatsFiltersTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT 1 FROM trains").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("SELECT seat_number, train_class, seat_type, is_available").
		WithArgs(int64(7), string(models.Sleeper)).
		WillReturnRows(sqlmock.NewRows([]string{"seat_number", "train_class", "seat_type", "is_available"}).
			AddRow("S1", "Sleeper", "Window", true).
			AddRow("S2", "Sleeper", "Aisle", false).
			AddRow("S3", "Sleeper", "Middle", true))

	svc := InventoryService{TrainRepo: repositories.TrainRepository{DB: db}, DB: db}
	seats, err := svc.AvailableSeats(7, models.Sleeper)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seats) != 2 || seats[0].Number != "S1" || seats[1].Number != "S3" {
		t.Fatalf("seats = %+v", seats)
	}
}

func TestAvailableSeatsUnknownClass(t *testing.T) {
	svc := InventoryService{}
	if _, err := svc.AvailableSeats(7, "Business"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
