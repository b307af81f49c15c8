package models

import "time"

// Rating always points at an order; the sub-ratings mirror Rating when
// submitted from the dashboard.
type Rating struct {
	ID             int64     `json:"id"`
	ManufacturerID int64     `json:"manufacturer_id"`
	ProviderID     int64     `json:"provider_id"`
	OrderID        int64     `json:"order_id"`
	Rating         int       `json:"rating"`
	QualityRating  int       `json:"quality_rating"`
	DeliveryRating int       `json:"delivery_rating"`
	ServiceRating  int       `json:"service_rating"`
	Comment        string    `json:"comment"`
	WouldRecommend bool      `json:"would_recommend"`
	CreatedAt      time.Time `json:"created_at"`

	OrderNumber  string `json:"order_number,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}
