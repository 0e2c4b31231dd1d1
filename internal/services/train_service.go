package services

import (
	"database/sql"
	"fmt"
	"strings"

	intconfig "trainbackend/internal/config"
	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
	"trainbackend/internal/offline"
	"trainbackend/internal/repositories"
	"trainbackend/internal/utils"
)

// TrainService covers the catalog reads plus the admin mutations.
type TrainService struct {
	TrainRepo repositories.TrainRepository
	Cache     *offline.Cache
	DB        *sql.DB
	RequestID string
}

func (s TrainService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s TrainService) trains() repositories.TrainRepository {
	if s.TrainRepo.DB != nil {
		return s.TrainRepo
	}
	return repositories.TrainRepository{DB: s.db()}
}

// Search lists Active trains for a route, offline callers get the cached
// snapshot filtered the same way.
func (s TrainService) Search(sourceCode, destCode string, mode domain.ConnectivityMode) ([]models.Train, error) {
	src := strings.ToUpper(strings.TrimSpace(sourceCode))
	dst := strings.ToUpper(strings.TrimSpace(destCode))
	if src == "" || dst == "" {
		return nil, domain.ValidationError{Field: "route", Msg: "source and destination codes required"}
	}

	if mode.Offline() {
		if s.Cache == nil {
			return nil, domain.InternalError{Msg: "offline cache not configured"}
		}
		out := []models.Train{}
		for _, t := range s.Cache.Trains() {
			if t.SourceCode == src && t.DestCode == dst && t.Status == models.TrainActive {
				out = append(out, t)
			}
		}
		return out, nil
	}

	out, err := s.trains().Search(src, dst)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}

// List returns the full catalog for the admin view.
func (s TrainService) List() ([]models.Train, error) {
	out, err := s.trains().List()
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}

// Get loads the full aggregate including the seat map.
func (s TrainService) Get(id int64, mode domain.ConnectivityMode) (models.Train, error) {
	if mode.Offline() {
		if s.Cache == nil {
			return models.Train{}, domain.InternalError{Msg: "offline cache not configured"}
		}
		t, ok := s.Cache.GetTrain(id)
		if !ok {
			return models.Train{}, domain.NotFoundError{Resource: "train"}
		}
		return t, nil
	}
	return s.trains().GetByID(id)
}

// Create validates and inserts a new train aggregate, admin only.
func (s TrainService) Create(t models.Train) (models.Train, error) {
	if strings.TrimSpace(t.Number) == "" || strings.TrimSpace(t.Name) == "" {
		return models.Train{}, domain.ValidationError{Field: "train", Msg: "number and name required"}
	}
	if len(t.Schedule) < 2 {
		return models.Train{}, domain.ValidationError{Field: "schedule", Msg: "at least origin and destination stops required"}
	}
	if len(t.Fares) == 0 {
		return models.Train{}, domain.ValidationError{Field: "fares", Msg: "at least one class fare required"}
	}
	for class := range t.Fares {
		if !models.ValidTrainClass(class) {
			return models.Train{}, domain.ValidationError{Field: "fares", Msg: "unknown class " + string(class)}
		}
	}
	seen := map[string]struct{}{}
	for _, seat := range t.Seats {
		n := strings.ToUpper(strings.TrimSpace(seat.Number))
		if n == "" {
			return models.Train{}, domain.ValidationError{Field: "seats", Msg: "empty seat number"}
		}
		if _, dup := seen[n]; dup {
			return models.Train{}, domain.ValidationError{Field: "seats", Msg: "duplicate seat " + n}
		}
		seen[n] = struct{}{}
	}
	if t.Status == "" {
		t.Status = models.TrainActive
	}

	id, err := s.trains().Create(t)
	if err != nil {
		return models.Train{}, domain.InternalError{Err: err}
	}
	utils.LogEvent(s.RequestID, "trains", "create", fmt.Sprintf("train_id=%d number=%s", id, t.Number))
	return s.trains().GetByID(id)
}

// SetStatus soft-deletes (Inactive) or reactivates a train.
func (s TrainService) SetStatus(id int64, status models.TrainStatus) error {
	if !models.ValidTrainStatus(status) {
		return domain.ValidationError{Field: "status", Msg: "unknown train status"}
	}
	if err := s.trains().UpdateStatus(id, status); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		return domain.InternalError{Err: err}
	}
	utils.LogEvent(s.RequestID, "trains", "set_status", fmt.Sprintf("train_id=%d status=%s", id, status))
	return nil
}

// SnapshotToCache copies the current catalog with seat maps into the
// offline cache so bookings can be validated while disconnected.
func (s TrainService) SnapshotToCache() (int, error) {
	if s.Cache == nil {
		return 0, domain.InternalError{Msg: "offline cache not configured"}
	}
	trains, err := s.trains().List()
	if err != nil {
		return 0, domain.InternalError{Err: err}
	}
	full := make([]models.Train, 0, len(trains))
	for _, t := range trains {
		loaded, err := s.trains().GetByID(t.ID)
		if err != nil {
			return 0, domain.InternalError{Err: err}
		}
		full = append(full, loaded)
	}
	s.Cache.SaveTrains(full)
	utils.LogEvent(s.RequestID, "trains", "snapshot", fmt.Sprintf("count=%d", len(full)))
	return len(full), nil
}
