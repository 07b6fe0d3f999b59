package domain

import "time"

type Notification struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	IsRead     bool              `json:"is_read"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
}

type EventType string

const (
	EventRentalRequested   EventType = "rental.requested"
	EventRentalPaid        EventType = "rental.paid"
	EventPaymentFailed     EventType = "rental.payment_failed"
	EventRentalCancelled   EventType = "rental.cancelled"
	EventRentalRefunded    EventType = "rental.refunded"
	EventPickupConfirmed   EventType = "rental.pickup_confirmed"
	EventReturnInitiated   EventType = "rental.return_initiated"
	EventReturnConfirmed   EventType = "rental.return_confirmed"
	EventAgreementReady    EventType = "agreement.generated"
	EventAgreementAccepted EventType = "agreement.accepted"
	EventAgreementSigned   EventType = "agreement.signed"
	EventMessageReceived   EventType = "message.received"
	EventReviewReceived    EventType = "review.received"
	EventPickupReminder    EventType = "reminder.pickup"
	EventReturnReminder    EventType = "reminder.return"
	EventRentalOverdue     EventType = "rental.overdue"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusDispatched OutboxStatus = "dispatched"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// OutboxEvent is a notification intent recorded after a state change and
// delivered later by the dispatcher.
type OutboxEvent struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	RentalID   string            `json:"rental_id,omitempty"`
	Recipients []string          `json:"recipients"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Payload    map[string]string `json:"payload,omitempty"`
	Status     OutboxStatus      `json:"status"`
	Attempts   int               `json:"attempts"`
	LastError  string            `json:"last_error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
