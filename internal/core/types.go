package core

import (
	"net/http"
	"time"
)

// WindowState captures one client's position inside the current
// rate-limit window.
type WindowState struct {
	Count   int
	ResetAt time.Time
}

// Expired reports whether the window has rolled past its reset time.
func (s *WindowState) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return now.After(s.ResetAt)
}

// CachedResponse is one entry of the edge response cache: the stored
// body and headers for a request key, tagged with the cache generation
// it was written under.
type CachedResponse struct {
	Key        string
	Generation string
	StatusCode int
	Header     http.Header
	Body       []byte
	FetchedAt  time.Time
}

// Clone returns an independent copy so callers can mutate headers
// without corrupting the stored entry.
func (c *CachedResponse) Clone() *CachedResponse {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Header = c.Header.Clone()
	clone.Body = append([]byte(nil), c.Body...)
	return &clone
}

// Lead is the ad-hoc field bag posted to the intent-score endpoint.
// Every field is optional; missing values are treated as neutral
// evidence, not penalized.
type Lead struct {
	Status      string `json:"status"`
	LastOutcome string `json:"lastOutcome"`
	CallSummary string `json:"callSummary"`
	Interest    string `json:"interest"`
	Context     string `json:"context"`
	Attempts    int    `json:"attempts" validate:"omitempty,min=0"`
	Bookings    int    `json:"bookings" validate:"omitempty,min=0"`
	BookedTime  string `json:"bookedTime"`
	ClientNotes string `json:"clientNotes"`
	UpdatedAt   string `json:"updatedAt"`
}
