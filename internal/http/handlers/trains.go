package handlers

import (
	"net/http"

	"trainbackend/internal/domain/models"
	"trainbackend/internal/http/middleware"
	"trainbackend/internal/offline"
	"trainbackend/internal/services"

	"github.com/gin-gonic/gin"
)

func trainService(c *gin.Context) services.TrainService {
	return services.TrainService{
		Cache:     offline.Shared(),
		RequestID: middleware.GetRequestID(c),
	}
}

// GET /api/trains/search?source=NDL&dest=MMC
func SearchTrains(c *gin.Context) {
	trains, err := trainService(c).Search(c.Query("source"), c.Query("dest"), connectivityMode(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trains": trains, "count": len(trains)})
}

// GET /api/trains (admin catalog view)
func ListTrains(c *gin.Context) {
	trains, err := trainService(c).List()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trains": trains, "count": len(trains)})
}

// GET /api/trains/:id
func GetTrain(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	train, err := trainService(c).Get(id, connectivityMode(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, train)
}

// GET /api/trains/:id/seats?class=First+Class
func GetTrainSeats(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	svc := services.InventoryService{RequestID: middleware.GetRequestID(c)}
	seats, err := svc.AvailableSeats(id, models.TrainClass(c.Query("class")))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seats": seats, "count": len(seats)})
}

// POST /api/trains (admin)
func CreateTrain(c *gin.Context) {
	var req models.Train
	if !BindJSONOrError(c, &req) {
		return
	}
	train, err := trainService(c).Create(req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, train)
}

type trainStatusRequest struct {
	Status models.TrainStatus `json:"status"`
}

// PUT /api/trains/:id/status (admin, also the soft delete)
func SetTrainStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req trainStatusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if err := trainService(c).SetStatus(id, req.Status); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "status updated", "status": req.Status})
}

// GET /api/trains/:id/consistency (admin) audits held seats against the
// seat map.
func TrainSeatConsistency(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	svc := services.BookingService{RequestID: middleware.GetRequestID(c)}
	report, err := svc.SeatConsistency(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /api/trains/snapshot caches the catalog for offline use.
func SnapshotTrains(c *gin.Context) {
	count, err := trainService(c).SnapshotToCache()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "catalog cached", "trains": count})
}
