package models

import "time"

type SessionStatus string

const (
	StatusPending   SessionStatus = "pending"
	StatusSearching SessionStatus = "searching"
	StatusCompleted SessionStatus = "completed"
	StatusFailed    SessionStatus = "failed"
	StatusExpired   SessionStatus = "expired"
	StatusCancelled SessionStatus = "cancelled"
)

func (s SessionStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

type SearchSession struct {
	ID        string         `json:"id"`
	Criteria  SearchCriteria `json:"criteria"`
	Offers    []Offer        `json:"offers"`
	Status    SessionStatus  `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// SessionPatch is the only way a stored session changes: offers are appended,
// never rewritten.
type SessionPatch struct {
	Status       *SessionStatus
	AppendOffers []Offer
}

type SourceError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

type SearchProgress struct {
	SessionID           string        `json:"session_id"`
	Status              SessionStatus `json:"status"`
	Completion          float64       `json:"completion"`
	SourcesCompleted    int           `json:"sources_completed"`
	SourcesTotal        int           `json:"sources_total"`
	Errors              []SourceError `json:"errors,omitempty"`
	StartedAt           time.Time     `json:"started_at"`
	EstimatedCompletion time.Time     `json:"estimated_completion"`
}
