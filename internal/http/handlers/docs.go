package handlers

import (
	"net/http"

	"trainbackend/internal/http/middleware"
	"trainbackend/internal/services"

	"github.com/gin-gonic/gin"
)

// GetBookingETicketPDF returns the e-ticket (inline).
func GetBookingETicketPDF(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	svc := services.DocsService{RequestID: middleware.GetRequestID(c)}
	pdfBytes, filename, err := svc.GenerateETicket(middleware.GetAuth(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// GetBookingReceiptPDF returns the payment receipt (inline).
func GetBookingReceiptPDF(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	svc := services.DocsService{RequestID: middleware.GetRequestID(c)}
	pdfBytes, filename, err := svc.GenerateReceipt(middleware.GetAuth(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
