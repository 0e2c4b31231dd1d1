package services

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"

	intconfig "trainbackend/internal/config"
	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
	"trainbackend/internal/repositories"
	"trainbackend/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// DocsService renders e-tickets and payment receipts as PDFs.
type DocsService struct {
	BookingRepo repositories.BookingRepository
	TrainRepo   repositories.TrainRepository
	DB          *sql.DB
	RequestID   string

	// Loader is injectable for tests that have no database behind them.
	Loader func(int64) (bookingDocData, error)
}

type bookingDocData struct {
	Booking models.Booking
	Train   models.Train
}

func (s DocsService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s DocsService) bookings() repositories.BookingRepository {
	if s.BookingRepo.DB != nil {
		return s.BookingRepo
	}
	return repositories.BookingRepository{DB: s.db()}
}

func (s DocsService) trains() repositories.TrainRepository {
	if s.TrainRepo.DB != nil {
		return s.TrainRepo
	}
	return repositories.TrainRepository{DB: s.db()}
}

// GenerateETicket renders the ticket for a confirmed booking. Pending
// and cancelled bookings have no ticket.
func (s DocsService) GenerateETicket(rc domain.RequestContext, bookingID int64) ([]byte, string, error) {
	data, err := s.load(rc, bookingID)
	if err != nil {
		return nil, "", err
	}
	if data.Booking.Status != models.BookingConfirmed && data.Booking.Status != models.BookingCompleted {
		return nil, "", domain.ValidationError{Field: "status", Msg: "ticket available for confirmed bookings only"}
	}
	utils.LogEvent(s.RequestID, "docs", "generate_eticket", fmt.Sprintf("booking_id=%d", bookingID))
	return buildETicketPDF(data)
}

// GenerateReceipt renders the payment receipt; cancellations show the
// refund line.
func (s DocsService) GenerateReceipt(rc domain.RequestContext, bookingID int64) ([]byte, string, error) {
	data, err := s.load(rc, bookingID)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "docs", "generate_receipt", fmt.Sprintf("booking_id=%d", bookingID))
	return buildReceiptPDF(data)
}

func (s DocsService) load(rc domain.RequestContext, bookingID int64) (bookingDocData, error) {
	if s.Loader != nil {
		return s.Loader(bookingID)
	}
	booking, err := s.bookings().GetByID(bookingID)
	if err != nil {
		return bookingDocData{}, err
	}
	if booking.UserID != int64(rc.UserID) && !rc.IsAdmin() {
		return bookingDocData{}, domain.UnauthorizedError{Msg: "not the booking owner"}
	}
	train, err := s.trains().GetByID(booking.TrainID)
	if err != nil {
		return bookingDocData{}, err
	}
	return bookingDocData{Booking: booking, Train: train}, nil
}

func buildETicketPDF(d bookingDocData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking Ref  : %s", safe(d.Booking.Reference, "-")),
		fmt.Sprintf("Train        : %s %s", safe(d.Train.Number, "-"), safe(d.Train.Name, "-")),
		fmt.Sprintf("Route        : %s (%s) -> %s (%s)",
			safe(d.Train.SourceName, "-"), safe(d.Train.SourceCode, "-"),
			safe(d.Train.DestName, "-"), safe(d.Train.DestCode, "-")),
		fmt.Sprintf("Journey Date : %s", utils.FormatDate(d.Booking.JourneyDate)),
		fmt.Sprintf("Status       : %s", string(d.Booking.Status)),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Passengers:")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for i, p := range d.Booking.Passengers {
		pdf.Cell(0, 6, fmt.Sprintf("%d) %s  seat %s (%s)", i+1, safe(p.Name, "-"), safe(p.SeatNumber, "-"), string(p.SeatClass)))
		pdf.Ln(6)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please present this ticket with a valid ID at boarding.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("ETICKET_%s.pdf", safeFilenamePart(d.Booking.Reference))
	return buf.Bytes(), filename, nil
}

func buildReceiptPDF(d bookingDocData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "PAYMENT RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Receipt No  : RCPT-"+safe(d.Booking.Reference, "-"))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Issued      : "+utils.FormatDateTime(d.Booking.UpdatedAt))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Details:")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	desc := fmt.Sprintf("Train ticket %s -> %s on %s, %d passenger(s)",
		safe(d.Train.SourceCode, "-"), safe(d.Train.DestCode, "-"),
		utils.FormatDate(d.Booking.JourneyDate), len(d.Booking.Passengers))
	pdf.MultiCell(0, 6, desc, "", "", false)
	pdf.Ln(2)

	pdf.Cell(0, 6, "Payment method : "+safe(d.Booking.Payment.Method, "-"))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Payment status : "+string(d.Booking.Payment.Status))
	pdf.Ln(6)
	if d.Booking.Payment.TransactionID != "" {
		pdf.Cell(0, 6, "Transaction    : "+d.Booking.Payment.TransactionID)
		pdf.Ln(6)
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total: "+utils.FormatMoney(d.Booking.TotalFare))
	pdf.Ln(8)
	if d.Booking.Status == models.BookingCancelled {
		pdf.Cell(0, 8, "Refund: "+utils.FormatMoney(d.Booking.RefundAmount))
		pdf.Ln(8)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("RECEIPT_%s.pdf", safeFilenamePart(d.Booking.Reference))
	return buf.Bytes(), filename, nil
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
