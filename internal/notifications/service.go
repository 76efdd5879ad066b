package notifications

import "time"

// Sender routes messages to connected clients. Implemented by the
// websocket manager.
type Sender interface {
	SendToInvestor(investor string, msg Message)
}

// Service shapes domain events into push messages.
type Service struct {
	sender Sender
}

// NewService creates the notification service.
func NewService(sender Sender) *Service {
	return &Service{sender: sender}
}

// NotifyAttemptStatus pushes one attempt state transition to its investor.
func (s *Service) NotifyAttemptStatus(investor string, data map[string]interface{}) {
	s.sender.SendToInvestor(investor, Message{
		Type:      MessageTypeAttemptStatus,
		Investor:  investor,
		Data:      data,
		Timestamp: time.Now(),
	})
}
