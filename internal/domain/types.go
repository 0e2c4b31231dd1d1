package domain

// ID is used across domain entities.
type ID int64

// ConnectivityMode tells the booking layer whether the caller can reach
// the authoritative store. It is always passed in explicitly; nothing in
// the domain layer infers connectivity on its own.
type ConnectivityMode string

const (
	ModeOnline  ConnectivityMode = "online"
	ModeOffline ConnectivityMode = "offline"
)

func (m ConnectivityMode) Offline() bool { return m == ModeOffline }

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID ID     `json:"userId"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the caller may act on other users' bookings.
func (rc RequestContext) IsAdmin() bool {
	return rc.Role == "admin" || rc.Role == "owner"
}

// Pagination carries paging params and totals.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total,omitempty"`
}
