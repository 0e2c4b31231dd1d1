package handlers

import (
	"net/http"
	"strconv"
	"time"

	"trainbackend/internal/domain/models"
	"trainbackend/internal/http/middleware"
	"trainbackend/internal/offline"
	"trainbackend/internal/services"
	"trainbackend/internal/utils"

	"github.com/gin-gonic/gin"
)

func bookingService(c *gin.Context) services.BookingService {
	return services.BookingService{
		Cache:     offline.Shared(),
		RequestID: middleware.GetRequestID(c),
	}
}

type createBookingRequest struct {
	TrainID       int64              `json:"trainId"`
	JourneyDate   string             `json:"journeyDate"`
	Passengers    []models.Passenger `json:"passengers"`
	PaymentMethod string             `json:"paymentMethod"`
}

// POST /api/bookings
func CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	journeyDate, err := utils.ParseDate(req.JourneyDate)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid journeyDate, want YYYY-MM-DD", err)
		return
	}

	booking, err := bookingService(c).CreateBooking(middleware.GetAuth(c), services.CreateBookingInput{
		TrainID:       req.TrainID,
		JourneyDate:   journeyDate,
		Passengers:    req.Passengers,
		PaymentMethod: req.PaymentMethod,
	}, connectivityMode(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

// GET /api/bookings/:id
func GetBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	booking, err := bookingService(c).GetBooking(middleware.GetAuth(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// GET /api/bookings?userId=7 (own bookings unless admin)
func ListBookings(c *gin.Context) {
	rc := middleware.GetAuth(c)
	userID := int64(rc.UserID)
	if raw := c.Query("userId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid userId", err)
			return
		}
		userID = parsed
	}
	bookings, err := bookingService(c).ListUserBookings(rc, userID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// POST /api/bookings/:id/cancel
// Offline bookings not yet synced carry negative local ids, so the only
// rejected id is zero.
func CancelBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		RespondError(c, http.StatusBadRequest, "invalid id", err)
		return
	}
	var req cancelRequest
	if c.Request.Body != nil {
		_ = c.ShouldBindJSON(&req) // reason is optional
	}
	booking, err := bookingService(c).CancelBooking(middleware.GetAuth(c), id, req.Reason, connectivityMode(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking":      booking,
		"refundAmount": booking.RefundAmount,
	})
}

// POST /api/bookings/:id/payment
func ProcessPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req services.PaymentData
	if !BindJSONOrError(c, &req) {
		return
	}
	rc := middleware.GetAuth(c)
	svc := bookingService(c)
	if _, err := svc.GetBooking(rc, id); err != nil {
		RespondDomainError(c, err)
		return
	}
	booking, err := svc.ProcessPayment(id, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

type statusRequest struct {
	Status models.BookingStatus `json:"status"`
}

// PUT /api/bookings/:id/status (admin)
func UpdateBookingStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req statusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	booking, err := bookingService(c).UpdateBookingStatus(id, req.Status)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// GET /api/bookings/stats (admin)
func BookingStatistics(c *gin.Context) {
	stats, err := bookingService(c).Statistics()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "generatedAt": time.Now().UTC()})
}

// GET /api/bookings/offline-pending (admin)
func PendingOfflineBookings(c *gin.Context) {
	bookings, err := bookingService(c).PendingOfflineBookings()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// GET /api/bookings/cached lists this node's offline-cached bookings for
// the caller.
func CachedBookings(c *gin.Context) {
	rc := middleware.GetAuth(c)
	userID := int64(rc.UserID)
	if rc.IsAdmin() {
		userID = 0
	}
	c.JSON(http.StatusOK, gin.H{"bookings": offline.Shared().Bookings(userID)})
}
