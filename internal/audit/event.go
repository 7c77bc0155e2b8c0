// Package audit provides the authentication event trail: a JSON-lines log
// of login and token activity with file rotation.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event
type EventType string

const (
	EventLoginSuccess      EventType = "login_success"
	EventLoginFailure      EventType = "login_failure"
	EventTokenIssued       EventType = "token_issued"
	EventRateLimitExceeded EventType = "rate_limit_exceeded"
	EventSystemStartup     EventType = "system_startup"
	EventSystemShutdown    EventType = "system_shutdown"
)

// Event is a single authentication audit record.
type Event struct {
	EventID   uuid.UUID              `json:"event_id"`
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	Username  string                 `json:"username,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	Result    string                 `json:"result"` // success, failure
	Reason    string                 `json:"reason,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

func newEvent(eventType EventType) Event {
	return Event{
		EventID:   uuid.New(),
		Timestamp: time.Now(),
		EventType: eventType,
	}
}
