package models

import (
	"time"

	"kilnbazaar/pkg/status"
)

type Inquiry struct {
	ID               int64      `json:"id"`
	ManufacturerID   int64      `json:"manufacturer_id"`
	ProviderID       int64      `json:"provider_id"`
	ItemType         *string    `json:"item_type"`
	Quantity         *float64   `json:"quantity"`
	Unit             *string    `json:"unit"`
	DeliveryLocation *string    `json:"delivery_location"`
	DeliveryDate     *time.Time `json:"delivery_date"`
	Budget           *float64   `json:"budget"`
	Message          string     `json:"message"`
	Status           *string    `json:"status"`
	ProviderResponse *string    `json:"provider_response"`
	RespondedAt      *time.Time `json:"responded_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	ProviderName string `json:"provider_name,omitempty"`
}

func (i *Inquiry) Evidence() status.Fields {
	return status.Fields{Status: i.Status, RespondedAt: i.RespondedAt}
}

func (i *Inquiry) DerivedStatus() status.View {
	return status.ViewOf(status.TagInquiry, i.Evidence())
}
