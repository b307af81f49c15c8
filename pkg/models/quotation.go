package models

import (
	"time"

	"kilnbazaar/pkg/status"
)

// Quotation is a standalone price proposal. InquiryID exists in the schema but
// submissions always write NULL; quotations are not chained to inquiries.
type Quotation struct {
	ID               int64      `json:"id"`
	ManufacturerID   int64      `json:"manufacturer_id"`
	ProviderID       int64      `json:"provider_id"`
	InquiryID        *int64     `json:"inquiry_id"`
	ItemType         string     `json:"item_type"`
	Quantity         float64    `json:"quantity"`
	Unit             string     `json:"unit"`
	PricePerUnit     float64    `json:"price_per_unit"`
	TotalAmount      float64    `json:"total_amount"`
	DeliveryLocation string     `json:"delivery_location"`
	DeliveryDate     *time.Time `json:"delivery_date"`
	Status           *string    `json:"status"`

	DeliveryTimeline     *string    `json:"delivery_timeline"`
	PaymentTerms         *string    `json:"payment_terms"`
	AdditionalNotes      *string    `json:"additional_notes"`
	ValidityPeriod       *int       `json:"validity_period"`
	ProviderResponseDate *time.Time `json:"provider_response_date"`
	RespondedAt          *time.Time `json:"responded_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProviderName string `json:"provider_name,omitempty"`
}

func (q *Quotation) Evidence() status.Fields {
	return status.Fields{
		Status:               q.Status,
		DeliveryTimeline:     q.DeliveryTimeline,
		PaymentTerms:         q.PaymentTerms,
		AdditionalNotes:      q.AdditionalNotes,
		ValidityPeriod:       q.ValidityPeriod,
		ProviderResponseDate: q.ProviderResponseDate,
		RespondedAt:          q.RespondedAt,
	}
}

func (q *Quotation) DerivedStatus() status.View {
	return status.ViewOf(status.TagQuotation, q.Evidence())
}

// QuotationResponse is what a provider writes back on a quotation.
type QuotationResponse struct {
	DeliveryTimeline *string   `json:"delivery_timeline"`
	PaymentTerms     *string   `json:"payment_terms"`
	AdditionalNotes  *string   `json:"additional_notes"`
	ValidityPeriod   *int      `json:"validity_period"`
	RespondedAt      time.Time `json:"-"`
}
