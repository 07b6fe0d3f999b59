package domain

import "time"

type Review struct {
	ID         string    `json:"id"`
	RentalID   string    `json:"rental_id"`
	ReviewerID string    `json:"reviewer_id"`
	RevieweeID string    `json:"reviewee_id"`
	ItemID     string    `json:"item_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReviewStats struct {
	Count        int         `json:"count"`
	Average      float64     `json:"average"`
	Distribution map[int]int `json:"distribution"`
}

type ReviewFilter struct {
	RevieweeID string
	ItemID     string
	RentalID   string
}

type ReviewInput struct {
	RentalID string `json:"rental_id" validate:"required"`
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Comment  string `json:"comment" validate:"max=2000"`
}
