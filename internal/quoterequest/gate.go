package quoterequest

import "time"

// Resolution is the outcome of looking up a quote request by its access
// token. Expiry and prior submission are reported separately so callers can
// tell the vendor which condition applies instead of a generic denial.
type Resolution struct {
	Request          *QuoteRequest
	Expired          bool
	AlreadySubmitted bool
}

// Valid reports whether the token still grants submission access.
func (r Resolution) Valid() bool {
	return !r.Expired && !r.AlreadySubmitted
}

func resolveAt(q *QuoteRequest, now time.Time) Resolution {
	return Resolution{
		Request:          q,
		Expired:          !q.TokenExpiresAt.After(now),
		AlreadySubmitted: q.Status != StatusPending,
	}
}
