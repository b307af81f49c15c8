package models

import "time"

type Provider struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"user_id"`
	Kind          ProviderKind `json:"kind"`
	BusinessName  string       `json:"business_name"`
	ContactPerson string       `json:"contact_person"`
	Phone         string       `json:"phone"`
	Email         *string      `json:"email"`
	Location      string       `json:"location"`
	Offerings     []string     `json:"offerings"` // fuel grades, vehicle types or labour skills
	Capacity      *string      `json:"capacity"`
	PriceRange    *string      `json:"price_range"`
	Description   *string      `json:"description"`
	TelegramID    *int64       `json:"telegram_id"`
	IsVerified    bool         `json:"is_verified"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type ProviderFilter struct {
	Location     string
	ItemType     string
	Search       string
	VerifiedOnly bool
	Limit        int
	Offset       int
}
