package domain

import "time"

type Message struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	RentalID    *string    `json:"rental_id,omitempty"`
	Body        string     `json:"body"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type MessageFilter struct {
	WithUserID string
	RentalID   string
	Limit      int
}

type MessageInput struct {
	RecipientID string  `json:"recipient_id" validate:"required"`
	RentalID    *string `json:"rental_id"`
	Body        string  `json:"body" validate:"required,max=4000"`
}
