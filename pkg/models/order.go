package models

import (
	"time"

	"kilnbazaar/pkg/status"
)

// Order carries two independent axes: OrderStatus (fulfilment) and
// PaymentStatus (money). QuotationID is always written NULL.
type Order struct {
	ID                   int64      `json:"id"`
	OrderNumber          string     `json:"order_number"`
	ManufacturerID       int64      `json:"manufacturer_id"`
	ProviderID           int64      `json:"provider_id"`
	QuotationID          *int64     `json:"quotation_id"`
	ItemType             string     `json:"item_type"`
	Quantity             float64    `json:"quantity"`
	Unit                 string     `json:"unit"`
	PricePerUnit         float64    `json:"price_per_unit"`
	TotalAmount          float64    `json:"total_amount"`
	DeliveryLocation     string     `json:"delivery_location"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	Notes                *string    `json:"notes"`
	OrderStatus          *string    `json:"order_status"`
	PaymentStatus        *string    `json:"payment_status"`

	ProviderConfirmationDate *time.Time `json:"provider_confirmation_date"`
	ProviderResponseDate     *time.Time `json:"provider_response_date"`
	ConfirmedByProvider      *bool      `json:"confirmed_by_provider"`
	ProviderOrderNumber      *string    `json:"provider_order_number"`
	TrackingNumber           *string    `json:"tracking_number"`
	ActualDeliveryDate       *time.Time `json:"actual_delivery_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProviderName string `json:"provider_name,omitempty"`
}

func (o *Order) Evidence() status.Fields {
	return status.Fields{
		OrderStatus:              o.OrderStatus,
		PaymentStatus:            o.PaymentStatus,
		ProviderConfirmationDate: o.ProviderConfirmationDate,
		ProviderResponseDate:     o.ProviderResponseDate,
		ConfirmedByProvider:      o.ConfirmedByProvider,
		ProviderOrderNumber:      o.ProviderOrderNumber,
		TrackingNumber:           o.TrackingNumber,
		ActualDeliveryDate:       o.ActualDeliveryDate,
	}
}

func (o *Order) DerivedStatus() status.View {
	return status.ViewOf(status.TagOrder, o.Evidence())
}

func (o *Order) DerivedPaymentStatus() status.View {
	return status.ViewOf(status.TagPayment, o.Evidence())
}

// OrderConfirmation is what a provider writes when accepting an order.
type OrderConfirmation struct {
	ProviderOrderNumber *string   `json:"provider_order_number"`
	TrackingNumber      *string   `json:"tracking_number"`
	OrderStatus         string    `json:"order_status"`
	ConfirmedAt         time.Time `json:"-"`
}
