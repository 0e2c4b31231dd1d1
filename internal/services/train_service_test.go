package services

import (
	"testing"

	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
	"trainbackend/internal/offline"
	"trainbackend/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSearchTrainsOnline(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM trains").
		WithArgs("NDL", "MMC").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "number", "name", "source_name", "source_code", "dest_name", "dest_code", "status", "last_updated",
		}))

	svc := TrainService{TrainRepo: repositories.TrainRepository{DB: db}, DB: db}
	trains, err := svc.Search("ndl", " mmc ", domain.ModeOnline)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(trains) != 0 {
		t.Fatalf("expected empty result, got %d", len(trains))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSearchTrainsRequiresRoute(t *testing.T) {
	svc := TrainService{}
	if _, err := svc.Search("NDL", "", domain.ModeOnline); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearchTrainsOfflineUsesCache(t *testing.T) {
	cache := offline.NewCache()
	active := fixtureTrain()
	inactive := fixtureTrain()
	inactive.ID = 8
	inactive.Status = models.TrainInactive
	cache.SaveTrains([]models.Train{active, inactive})

	svc := TrainService{Cache: cache}
	trains, err := svc.Search("NDL", "MMC", domain.ModeOffline)
	if err != nil {
		t.Fatalf("offline search error: %v", err)
	}
	if len(trains) != 1 || trains[0].ID != 7 {
		t.Fatalf("offline search = %+v, want only the active train", trains)
	}
}

func TestCreateTrainValidation(t *testing.T) {
	svc := TrainService{}

	_, err := svc.Create(models.Train{Name: "No Number"})
	if !domain.IsValidation(err) {
		t.Fatalf("missing number: got %v", err)
	}

	short := fixtureTrain()
	short.Schedule = short.Schedule[:1]
	if _, err := svc.Create(short); !domain.IsValidation(err) {
		t.Fatalf("single stop schedule: got %v", err)
	}

	dup := fixtureTrain()
	dup.Seats = append(dup.Seats, models.Seat{Number: "S1", Class: models.Sleeper})
	if _, err := svc.Create(dup); !domain.IsValidation(err) {
		t.Fatalf("duplicate seat: got %v", err)
	}

	badClass := fixtureTrain()
	badClass.Fares = map[models.TrainClass]float64{"Business": 400}
	if _, err := svc.Create(badClass); !domain.IsValidation(err) {
		t.Fatalf("unknown class fare: got %v", err)
	}
}

func TestSetTrainStatusRejectsUnknown(t *testing.T) {
	svc := TrainService{}
	if err := svc.SetStatus(7, "Broken"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
