package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/pkg/status"
	"kilnbazaar/storage"
)

type InquiryDraft struct {
	ProviderID       int64      `json:"provider_id"`
	ItemType         *string    `json:"item_type"`
	Quantity         *float64   `json:"quantity"`
	Unit             *string    `json:"unit"`
	DeliveryLocation *string    `json:"delivery_location"`
	DeliveryDate     *time.Time `json:"delivery_date"`
	Budget           *float64   `json:"budget"`
	Message          string     `json:"message"`
}

// PurchaseDraft is the form behind both quotations and orders. It has no
// parent reference on purpose. Notes are stored on orders only; a quotation
// request carrying notes is rejected.
type PurchaseDraft struct {
	ProviderID       int64      `json:"provider_id"`
	ItemType         string     `json:"item_type"`
	Quantity         float64    `json:"quantity"`
	Unit             string     `json:"unit"`
	PricePerUnit     float64    `json:"price_per_unit"`
	DeliveryLocation string     `json:"delivery_location"`
	DeliveryDate     *time.Time `json:"delivery_date"`
	Notes            *string    `json:"notes"`
}

type RatingDraft struct {
	ProviderID  int64  `json:"provider_id"`
	OrderNumber string `json:"order_number"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
}

type InquiryResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

func (d *InquiryDraft) Validate() error {
	d.Message = strings.TrimSpace(d.Message)
	switch {
	case d.ProviderID <= 0:
		return invalid("provider_id", "select a provider")
	case d.Message == "":
		return invalid("message", "message is required")
	case d.Quantity != nil && *d.Quantity < 0:
		return invalid("quantity", "quantity cannot be negative")
	case d.Budget != nil && *d.Budget < 0:
		return invalid("budget", "budget cannot be negative")
	}
	return nil
}

func (d *PurchaseDraft) Validate() error {
	d.ItemType = strings.TrimSpace(d.ItemType)
	d.DeliveryLocation = strings.TrimSpace(d.DeliveryLocation)
	d.Unit = strings.TrimSpace(d.Unit)
	switch {
	case d.ProviderID <= 0:
		return invalid("provider_id", "select a provider")
	case d.ItemType == "":
		return invalid("item_type", "type is required")
	case d.Quantity <= 0:
		return invalid("quantity", "quantity must be greater than zero")
	case d.PricePerUnit < 0:
		return invalid("price_per_unit", "price cannot be negative")
	case d.DeliveryLocation == "":
		return invalid("delivery_location", "delivery location is required")
	}
	return nil
}

// Total is computed here, at submission time, not by the store.
func (d *PurchaseDraft) Total() float64 {
	return d.Quantity * d.PricePerUnit
}

// ResolveOrder picks the order a rating is about from the orders already
// loaded for the manufacturer. It never touches the store.
func ResolveOrder(orders []*models.Order, providerID int64, orderNumber string) (*models.Order, error) {
	var forProvider []*models.Order
	for _, o := range orders {
		if o.ProviderID == providerID {
			forProvider = append(forProvider, o)
		}
	}
	if len(forProvider) == 0 {
		return nil, ErrNoOrdersToRate
	}
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, invalid("order_number", "select an order")
	}
	for _, o := range forProvider {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return nil, invalid("order_number", "order not found for this provider")
}

func (d *RatingDraft) Validate() error {
	d.Comment = strings.TrimSpace(d.Comment)
	switch {
	case d.ProviderID <= 0:
		return invalid("provider_id", "select a provider")
	case d.Rating < 1 || d.Rating > 5:
		return invalid("rating", "rating must be between 1 and 5")
	case d.Comment == "":
		return invalid("comment", "comment is required")
	}
	return nil
}

func NewOrderNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(id[:8])
}

type RequestService interface {
	SubmitInquiry(ctx context.Context, kind models.ProviderKind, manufacturerID int64, d InquiryDraft) (*models.Inquiry, error)
	SubmitQuotation(ctx context.Context, kind models.ProviderKind, manufacturerID int64, d PurchaseDraft) (*models.Quotation, error)
	SubmitOrder(ctx context.Context, kind models.ProviderKind, manufacturerID int64, d PurchaseDraft) (*models.Order, error)
	SubmitRating(ctx context.Context, kind models.ProviderKind, manufacturerID int64, d RatingDraft, orders []*models.Order) (*models.Rating, error)

	RespondInquiry(ctx context.Context, kind models.ProviderKind, providerUserID, inquiryID int64, r InquiryResponse) error
	RespondQuotation(ctx context.Context, kind models.ProviderKind, providerUserID, quotationID int64, r models.QuotationResponse) error
	ConfirmOrder(ctx context.Context, kind models.ProviderKind, providerUserID, orderID int64, c models.OrderConfirmation) error
	MarkDelivered(ctx context.Context, kind models.ProviderKind, providerUserID, orderID int64) error
	SetPaymentStatus(ctx context.Context, kind models.ProviderKind, manufacturerID, orderID int64, paymentStatus string) error
}

type requestService struct {
	stg      storage.IStorage
	log      logger.ILogger
	notifier Notifier
}

func NewRequestService(stg storage.IStorage, log logger.ILogger, notifier Notifier) RequestService {
	return &requestService{stg: stg, log: log, notifier: notifier}
}

func (s *requestService) SubmitInquiry(ctx context.Context, kind models.ProviderKind, manufacturerID int64, d InquiryDraft) (*models.Inquiry, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	pending := string(status.Pending)
	inquiry, err := s.stg.Inquiry(kind).Create(ctx, &models.Inquiry{
		ManufacturerID:   manufacturerID,
		ProviderID:       d.ProviderID,
		ItemType:         d.ItemType,
		Quantity:         d.Quantity,
		Unit:             d.Unit,
		DeliveryLocation: d.DeliveryLocation,
		DeliveryDate:     d.DeliveryDate,
		Budget:           d.Budget,
		Message:          d.Message,
		Status:           &pending,
	})
	if err != nil {
		return nil, s.storeFailed("inquiry", kind, err)
	}
	s.notifyProvider(ctx, kind, d.ProviderID, fmt.Sprintf("📩 New inquiry #%d: %s", inquiry.ID, d.Message))
	return inquiry, nil
}

func (s *requestService) SubmitQuotation(ctx context.Context, kind models.ProviderKind, manufacturerID int64, d PurchaseDraft) (*models.Quotation, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Notes != nil && strings.TrimSpace(*d.Notes) != "" {
		return nil, invalid("notes", "notes can only be sent with an order")
	}
	pending := string(status.Pending)
	quotation, err := s.stg.Quotation(kind).Create(ctx, &models.Quotation{
		ManufacturerID:   manufacturerID,
		ProviderID:       d.ProviderID,
		InquiryID:        nil, // standalone record only
		ItemType:         d.ItemType,
		Quantity:         d.Quantity,
		Unit:             d.Unit,
		PricePerUnit:     d.PricePerUnit,
		TotalAmount:      d.Total(),
		DeliveryLocation: d.DeliveryLocation,
		DeliveryDate:     d.DeliveryDate,
		Status:           &pending,
	})
	if err != nil {
		return nil, s.storeFailed("quotation", kind, err)
	}
	s.notifyProvider(ctx, kind, d.ProviderID, fmt.Sprintf("💬 Quotation request #%d: %s, %.2f %s to %s",
		quotation.ID, d.ItemType, d.Quantity, d.Unit, d.DeliveryLocation))
	return quotation, nil
}

func (s *requestService) SubmitOrder(ctx context.Context, kind models.ProviderKind, manufacturerID int64, d PurchaseDraft) (*models.Order, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	pending := string(status.Pending)
	paymentPending := string(status.Pending)
	order, err := s.stg.Order(kind).Create(ctx, &models.Order{
		OrderNumber:          NewOrderNumber(),
		ManufacturerID:       manufacturerID,
		ProviderID:           d.ProviderID,
		QuotationID:          nil, // standalone record only
		ItemType:             d.ItemType,
		Quantity:             d.Quantity,
		Unit:                 d.Unit,
		PricePerUnit:         d.PricePerUnit,
		TotalAmount:          d.Total(),
		DeliveryLocation:     d.DeliveryLocation,
		ExpectedDeliveryDate: d.DeliveryDate,
		Notes:                d.Notes,
		OrderStatus:          &pending,
		PaymentStatus:        &paymentPending,
	})
	if err != nil {
		return nil, s.storeFailed("order", kind, err)
	}
	s.notifyProvider(ctx, kind, d.ProviderID, fmt.Sprintf("📦 New order %s: %s, %.2f %s, total %.2f",
		order.OrderNumber, d.ItemType, d.Quantity, d.Unit, order.TotalAmount))
	return order, nil
}

func (s *requestService) SubmitRating(ctx context.Context, kind models.ProviderKind, manufacturerID int64, d RatingDraft, orders []*models.Order) (*models.Rating, error) {
	order, err := ResolveOrder(orders, d.ProviderID, d.OrderNumber)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if order.ManufacturerID != manufacturerID {
		return nil, ErrForbidden
	}

	rating, err := s.stg.Rating(kind).Create(ctx, &models.Rating{
		ManufacturerID: manufacturerID,
		ProviderID:     d.ProviderID,
		OrderID:        order.ID,
		Rating:         d.Rating,
		QualityRating:  d.Rating,
		DeliveryRating: d.Rating,
		ServiceRating:  d.Rating,
		Comment:        d.Comment,
		WouldRecommend: d.Rating >= 4,
	})
	if err != nil {
		return nil, s.storeFailed("rating", kind, err)
	}
	rating.OrderNumber = order.OrderNumber
	s.notifyProvider(ctx, kind, d.ProviderID, fmt.Sprintf("⭐ New rating %d/5 for order %s", d.Rating, order.OrderNumber))
	return rating, nil
}

var inquiryResponseStatuses = map[string]bool{
	string(status.Accepted):   true,
	string(status.Rejected):   true,
	string(status.Processing): true,
}

func (s *requestService) RespondInquiry(ctx context.Context, kind models.ProviderKind, providerUserID, inquiryID int64, r InquiryResponse) error {
	r.Response = strings.TrimSpace(r.Response)
	r.Status = strings.ToLower(strings.TrimSpace(r.Status))
	if r.Status == "" {
		r.Status = string(status.Accepted)
	}
	if r.Response == "" {
		return invalid("response", "response is required")
	}
	if !inquiryResponseStatuses[r.Status] {
		return invalid("status", "status must be accepted, rejected or processing")
	}

	inquiry, err := s.stg.Inquiry(kind).GetByID(ctx, inquiryID)
	if err != nil {
		return translate(err)
	}
	if _, err := ownedProvider(ctx, s.stg, kind, providerUserID, inquiry.ProviderID); err != nil {
		return err
	}
	if err := s.stg.Inquiry(kind).Respond(ctx, inquiryID, r.Response, r.Status, timeNow()); err != nil {
		return s.storeFailed("inquiry response", kind, translate(err))
	}
	s.notifyManufacturer(ctx, inquiry.ManufacturerID, fmt.Sprintf("✉️ %s replied to inquiry #%d: %s", inquiry.ProviderName, inquiryID, r.Response))
	return nil
}

func (s *requestService) RespondQuotation(ctx context.Context, kind models.ProviderKind, providerUserID, quotationID int64, r models.QuotationResponse) error {
	if r.ValidityPeriod != nil && *r.ValidityPeriod < 0 {
		return invalid("validity_period", "validity period cannot be negative")
	}
	trimPtr(&r.DeliveryTimeline)
	trimPtr(&r.PaymentTerms)
	trimPtr(&r.AdditionalNotes)
	r.RespondedAt = timeNow()

	// A response with no content would still not count as received.
	if status.Derive(status.TagQuotation, status.Fields{
		DeliveryTimeline: r.DeliveryTimeline,
		PaymentTerms:     r.PaymentTerms,
		AdditionalNotes:  r.AdditionalNotes,
		ValidityPeriod:   r.ValidityPeriod,
		RespondedAt:      &r.RespondedAt,
	}) != status.Received {
		return invalid("delivery_timeline", "fill in at least one of timeline, payment terms, notes or validity")
	}

	quotation, err := s.stg.Quotation(kind).GetByID(ctx, quotationID)
	if err != nil {
		return translate(err)
	}
	if _, err := ownedProvider(ctx, s.stg, kind, providerUserID, quotation.ProviderID); err != nil {
		return err
	}
	if err := s.stg.Quotation(kind).Respond(ctx, quotationID, r); err != nil {
		return s.storeFailed("quotation response", kind, translate(err))
	}
	s.notifyManufacturer(ctx, quotation.ManufacturerID, fmt.Sprintf("💬 %s answered quotation #%d", quotation.ProviderName, quotationID))
	return nil
}

var confirmStatuses = map[string]bool{
	string(status.Confirmed):  true,
	string(status.Processing): true,
	string(status.Rejected):   true,
	string(status.Cancelled):  true,
}

func (s *requestService) ConfirmOrder(ctx context.Context, kind models.ProviderKind, providerUserID, orderID int64, c models.OrderConfirmation) error {
	c.OrderStatus = strings.ToLower(strings.TrimSpace(c.OrderStatus))
	if c.OrderStatus == "" {
		c.OrderStatus = string(status.Confirmed)
	}
	if !confirmStatuses[c.OrderStatus] {
		return invalid("order_status", "status must be confirmed, processing, rejected or cancelled")
	}
	trimPtr(&c.ProviderOrderNumber)
	trimPtr(&c.TrackingNumber)
	c.ConfirmedAt = timeNow()

	order, err := s.stg.Order(kind).GetByID(ctx, orderID)
	if err != nil {
		return translate(err)
	}
	if _, err := ownedProvider(ctx, s.stg, kind, providerUserID, order.ProviderID); err != nil {
		return err
	}
	if err := s.stg.Order(kind).Confirm(ctx, orderID, c); err != nil {
		return s.storeFailed("order confirmation", kind, translate(err))
	}
	s.notifyManufacturer(ctx, order.ManufacturerID, fmt.Sprintf("✅ %s set order %s to %s", order.ProviderName, order.OrderNumber, c.OrderStatus))
	return nil
}

func (s *requestService) MarkDelivered(ctx context.Context, kind models.ProviderKind, providerUserID, orderID int64) error {
	order, err := s.stg.Order(kind).GetByID(ctx, orderID)
	if err != nil {
		return translate(err)
	}
	if _, err := ownedProvider(ctx, s.stg, kind, providerUserID, order.ProviderID); err != nil {
		return err
	}
	if err := s.stg.Order(kind).MarkDelivered(ctx, orderID, timeNow()); err != nil {
		return s.storeFailed("order delivery", kind, translate(err))
	}
	s.notifyManufacturer(ctx, order.ManufacturerID, fmt.Sprintf("🚚 Order %s was delivered", order.OrderNumber))
	return nil
}

var paymentStatuses = map[string]bool{
	string(status.Pending):    true,
	string(status.Processing): true,
	string(status.Paid):       true,
	string(status.Completed):  true,
	string(status.Cancelled):  true,
}

// SetPaymentStatus is manufacturer-writable. Display still goes through
// status.Derive, which will not show "completed" without provider evidence.
func (s *requestService) SetPaymentStatus(ctx context.Context, kind models.ProviderKind, manufacturerID, orderID int64, paymentStatus string) error {
	paymentStatus = strings.ToLower(strings.TrimSpace(paymentStatus))
	if !paymentStatuses[paymentStatus] {
		return invalid("payment_status", "unknown payment status")
	}
	if err := s.stg.Order(kind).SetPaymentStatus(ctx, manufacturerID, orderID, paymentStatus); err != nil {
		return s.storeFailed("payment status", kind, translate(err))
	}
	return nil
}

func (s *requestService) storeFailed(what string, kind models.ProviderKind, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	s.log.Error("failed to save "+what, logger.String("kind", string(kind)), logger.Error(err))
	return fmt.Errorf("save %s: %w", what, err)
}

func (s *requestService) notifyProvider(ctx context.Context, kind models.ProviderKind, providerID int64, text string) {
	p, err := s.stg.Provider(kind).GetByID(ctx, providerID)
	if err != nil {
		s.log.Warning("notification skipped, provider lookup failed", logger.Int64("provider", providerID), logger.Error(err))
		return
	}
	if p.TelegramID == nil {
		return
	}
	if err := s.notifier.Notify(ctx, *p.TelegramID, text); err != nil {
		s.log.Warning("failed to notify provider", logger.Int64("provider", providerID), logger.Error(err))
	}
}

func (s *requestService) notifyManufacturer(ctx context.Context, manufacturerID int64, text string) {
	u, err := s.stg.User().GetByID(ctx, manufacturerID)
	if err != nil {
		s.log.Warning("notification skipped, user lookup failed", logger.Int64("user", manufacturerID), logger.Error(err))
		return
	}
	if u.TelegramID == nil {
		return
	}
	if err := s.notifier.Notify(ctx, *u.TelegramID, text); err != nil {
		s.log.Warning("failed to notify manufacturer", logger.Int64("user", manufacturerID), logger.Error(err))
	}
}

func trimPtr(p **string) {
	if *p == nil {
		return
	}
	v := strings.TrimSpace(**p)
	if v == "" {
		*p = nil
		return
	}
	*p = &v
}
