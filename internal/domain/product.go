package domain

import "time"

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Image       string    `json:"image"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"-"`
}
