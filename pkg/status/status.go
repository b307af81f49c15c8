// Package status turns raw request records into the lifecycle label shown to users.
//
// The stored status columns are writable by the manufacturer as well as the
// provider, so they are not trusted on their own. Derive reads provider-only
// fields as evidence that the provider actually acted and demotes the stored
// value to pending when that evidence is missing. Derive is total: every input,
// including a zero Fields, yields a label.
package status

import (
	"strings"
	"time"
)

type Tag string

const (
	TagInquiry   Tag = "inquiry"
	TagQuotation Tag = "quotation"
	TagOrder     Tag = "order"
	TagPayment   Tag = "payment"
)

type Label string

const (
	Pending    Label = "pending"
	Processing Label = "processing"
	Confirmed  Label = "confirmed"
	Completed  Label = "completed"
	Delivered  Label = "delivered"
	Accepted   Label = "accepted"
	Received   Label = "received"
	Paid       Label = "paid"
	Rejected   Label = "rejected"
	Cancelled  Label = "cancelled"
)

var known = map[Label]Bucket{
	Completed:  Positive,
	Delivered:  Positive,
	Accepted:   Positive,
	Received:   Positive,
	Paid:       Positive,
	Pending:    Neutral,
	Processing: Neutral,
	Confirmed:  Neutral,
	Rejected:   Negative,
	Cancelled:  Negative,
}

// Known reports whether l belongs to the closed label set.
func (l Label) Known() bool {
	_, ok := known[l]
	return ok
}

// Fields is the subset of a record that derivation looks at. Every field is
// optional; nil means the column was NULL.
type Fields struct {
	Status        *string
	OrderStatus   *string
	PaymentStatus *string

	DeliveryTimeline *string
	PaymentTerms     *string
	AdditionalNotes  *string
	ValidityPeriod   *int

	ProviderResponseDate *time.Time
	RespondedAt          *time.Time

	ProviderConfirmationDate *time.Time
	ConfirmedByProvider      *bool
	ProviderOrderNumber      *string
	TrackingNumber           *string
	ActualDeliveryDate       *time.Time
}

// Derive maps a record of the given kind to its display label.
func Derive(tag Tag, f Fields) Label {
	switch tag {
	case TagQuotation:
		if quotationAnswered(f) {
			return Received
		}
		return Pending
	case TagOrder:
		if !providerTouchedOrder(f) {
			return Pending
		}
		return stored(f.OrderStatus)
	case TagPayment:
		l := stored(f.PaymentStatus)
		if l == Completed && f.ActualDeliveryDate == nil && f.ProviderConfirmationDate == nil {
			return Pending
		}
		return l
	default:
		return stored(f.Status)
	}
}

// quotationAnswered needs both some response content and a response timestamp.
func quotationAnswered(f Fields) bool {
	content := nonEmpty(f.DeliveryTimeline) ||
		nonEmpty(f.PaymentTerms) ||
		nonEmpty(f.AdditionalNotes) ||
		(f.ValidityPeriod != nil && *f.ValidityPeriod > 0)
	stamped := f.ProviderResponseDate != nil || f.RespondedAt != nil
	return content && stamped
}

func providerTouchedOrder(f Fields) bool {
	return f.ProviderConfirmationDate != nil ||
		f.ProviderResponseDate != nil ||
		(f.ConfirmedByProvider != nil && *f.ConfirmedByProvider) ||
		nonEmpty(f.ProviderOrderNumber) ||
		nonEmpty(f.TrackingNumber) ||
		f.ActualDeliveryDate != nil
}

// stored normalises a raw column value. Unrecognised values pass through so the
// caller can still show them; they land in the Unknown bucket.
func stored(raw *string) Label {
	if raw == nil {
		return Pending
	}
	v := strings.ToLower(strings.TrimSpace(*raw))
	if v == "" {
		return Pending
	}
	return Label(v)
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
