package notifications

import "time"

// Message types pushed to investors.
const (
	MessageTypeAttemptStatus = "attempt.status"
)

// Message is one push notification frame.
type Message struct {
	Type      string                 `json:"type"`
	Investor  string                 `json:"investor,omitempty"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
