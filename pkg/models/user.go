package models

import "time"

const (
	RoleManufacturer = "manufacturer"
	RoleProvider     = "provider"
	RoleAdmin        = "admin"
)

type User struct {
	ID          int64     `json:"id"`
	Phone       string    `json:"phone"`
	FullName    string    `json:"full_name"`
	Role        string    `json:"role"`
	CompanyName *string   `json:"company_name"`
	TelegramID  *int64    `json:"telegram_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type OTP struct {
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"-"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
