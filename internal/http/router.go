package api

import (
	"log"
	stdhttp "net/http"

	intconfig "trainbackend/internal/config"
	h "trainbackend/internal/http/handlers"
	"trainbackend/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS())

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)

		// Auth
		auth := api.Group("/auth")
		auth.POST("/login", h.Login)
		auth.POST("/register", h.Register)

		// Trains: search and detail are public, mutations are admin-only
		trains := api.Group("/trains")
		trains.GET("/search", h.SearchTrains)
		trains.GET("/:id", h.GetTrain)
		trains.GET("/:id/seats", h.GetTrainSeats)

		trainsAdmin := api.Group("/trains", middleware.Auth(env), middleware.RequireRoles("admin", "owner"))
		trainsAdmin.GET("", h.ListTrains)
		trainsAdmin.POST("", h.CreateTrain)
		trainsAdmin.PUT("/:id/status", h.SetTrainStatus)
		trainsAdmin.GET("/:id/consistency", h.TrainSeatConsistency)
		trainsAdmin.POST("/snapshot", h.SnapshotTrains)

		// Users
		users := api.Group("/users", middleware.Auth(env))
		users.GET("/me", h.GetCurrentUser)
		users.PUT("/me/preferences", h.UpdateUserPreferences)

		// Bookings
		bookings := api.Group("/bookings", middleware.Auth(env))
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/cached", h.CachedBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.POST("/:id/payment", h.ProcessPayment)
		bookings.GET("/:id/e-ticket", h.GetBookingETicketPDF)
		bookings.GET("/:id/receipt", h.GetBookingReceiptPDF)

		bookingsAdmin := api.Group("/bookings", middleware.Auth(env), middleware.RequireRoles("admin", "owner"))
		bookingsAdmin.PUT("/:id/status", h.UpdateBookingStatus)
		bookingsAdmin.GET("/stats", h.BookingStatistics)
		bookingsAdmin.GET("/offline-pending", h.PendingOfflineBookings)

		// Sync reconciler
		sync := api.Group("/sync", middleware.Auth(env))
		sync.POST("", h.TriggerSync)
		sync.GET("/failed", h.ListFailedSyncOps)
		sync.POST("/failed/:id/retry", h.RetrySyncOp)
	}

	return r
}
