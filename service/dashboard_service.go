package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/pkg/status"
	"kilnbazaar/storage"
)

type InquiryRow struct {
	*models.Inquiry
	status.View
}

type QuotationRow struct {
	*models.Quotation
	status.View
}

type OrderRow struct {
	*models.Order
	status.View
	Payment status.View `json:"payment"`
}

// Snapshot is the four lists as of one successful fetch round.
type Snapshot struct {
	Inquiries  []InquiryRow     `json:"inquiries"`
	Quotations []QuotationRow   `json:"quotations"`
	Orders     []OrderRow       `json:"orders"`
	Ratings    []*models.Rating `json:"ratings"`
}

// IDs returns the ids of one list in display order.
func (s *Snapshot) IDs(list models.ListName) []int64 {
	var ids []int64
	switch list {
	case models.ListInquiries:
		for _, r := range s.Inquiries {
			ids = append(ids, r.ID)
		}
	case models.ListQuotations:
		for _, r := range s.Quotations {
			ids = append(ids, r.ID)
		}
	case models.ListOrders:
		for _, r := range s.Orders {
			ids = append(ids, r.ID)
		}
	case models.ListRatings:
		for _, r := range s.Ratings {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func (s *Snapshot) OrderModels() []*models.Order {
	orders := make([]*models.Order, 0, len(s.Orders))
	for _, r := range s.Orders {
		orders = append(orders, r.Order)
	}
	return orders
}

type DashboardService interface {
	FetchAll(ctx context.Context, kind models.ProviderKind, manufacturerID int64) (*Snapshot, error)
	FetchForProvider(ctx context.Context, kind models.ProviderKind, providerUserID, providerID int64) (*Snapshot, error)
	Delete(ctx context.Context, kind models.ProviderKind, list models.ListName, manufacturerID, id int64) error
	DeleteMany(ctx context.Context, kind models.ProviderKind, list models.ListName, manufacturerID int64, ids []int64) (int64, error)
}

type dashboardService struct {
	stg storage.IStorage
	log logger.ILogger
}

func NewDashboardService(stg storage.IStorage, log logger.ILogger) DashboardService {
	return &dashboardService{stg: stg, log: log}
}

type fetchers struct {
	inquiries  func(context.Context) ([]*models.Inquiry, error)
	quotations func(context.Context) ([]*models.Quotation, error)
	orders     func(context.Context) ([]*models.Order, error)
	ratings    func(context.Context) ([]*models.Rating, error)
}

// FetchAll loads the four lists concurrently. If any of them fails the whole
// round fails and no partial snapshot is returned.
func (s *dashboardService) FetchAll(ctx context.Context, kind models.ProviderKind, manufacturerID int64) (*Snapshot, error) {
	return s.fetch(ctx, kind, fetchers{
		inquiries: func(ctx context.Context) ([]*models.Inquiry, error) {
			return s.stg.Inquiry(kind).GetByManufacturer(ctx, manufacturerID)
		},
		quotations: func(ctx context.Context) ([]*models.Quotation, error) {
			return s.stg.Quotation(kind).GetByManufacturer(ctx, manufacturerID)
		},
		orders: func(ctx context.Context) ([]*models.Order, error) {
			return s.stg.Order(kind).GetByManufacturer(ctx, manufacturerID)
		},
		ratings: func(ctx context.Context) ([]*models.Rating, error) {
			return s.stg.Rating(kind).GetByManufacturer(ctx, manufacturerID)
		},
	})
}

func (s *dashboardService) FetchForProvider(ctx context.Context, kind models.ProviderKind, providerUserID, providerID int64) (*Snapshot, error) {
	if _, err := ownedProvider(ctx, s.stg, kind, providerUserID, providerID); err != nil {
		return nil, err
	}
	return s.fetch(ctx, kind, fetchers{
		inquiries: func(ctx context.Context) ([]*models.Inquiry, error) {
			return s.stg.Inquiry(kind).GetByProvider(ctx, providerID)
		},
		quotations: func(ctx context.Context) ([]*models.Quotation, error) {
			return s.stg.Quotation(kind).GetByProvider(ctx, providerID)
		},
		orders: func(ctx context.Context) ([]*models.Order, error) {
			return s.stg.Order(kind).GetByProvider(ctx, providerID)
		},
		ratings: func(ctx context.Context) ([]*models.Rating, error) {
			return s.stg.Rating(kind).GetByProvider(ctx, providerID)
		},
	})
}

func (s *dashboardService) fetch(ctx context.Context, kind models.ProviderKind, f fetchers) (*Snapshot, error) {
	var (
		inquiries  []*models.Inquiry
		quotations []*models.Quotation
		orders     []*models.Order
		ratings    []*models.Rating
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		inquiries, err = f.inquiries(gctx)
		return err
	})
	g.Go(func() (err error) {
		quotations, err = f.quotations(gctx)
		return err
	})
	g.Go(func() (err error) {
		orders, err = f.orders(gctx)
		return err
	})
	g.Go(func() (err error) {
		ratings, err = f.ratings(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("failed to fetch dashboard", logger.String("kind", string(kind)), logger.Error(err))
		return nil, err
	}

	snap := &Snapshot{
		Inquiries:  make([]InquiryRow, 0, len(inquiries)),
		Quotations: make([]QuotationRow, 0, len(quotations)),
		Orders:     make([]OrderRow, 0, len(orders)),
		Ratings:    ratings,
	}
	if snap.Ratings == nil {
		snap.Ratings = []*models.Rating{}
	}
	for _, i := range inquiries {
		snap.Inquiries = append(snap.Inquiries, InquiryRow{Inquiry: i, View: i.DerivedStatus()})
	}
	for _, q := range quotations {
		snap.Quotations = append(snap.Quotations, QuotationRow{Quotation: q, View: q.DerivedStatus()})
	}
	for _, o := range orders {
		snap.Orders = append(snap.Orders, OrderRow{Order: o, View: o.DerivedStatus(), Payment: o.DerivedPaymentStatus()})
	}
	return snap, nil
}

func (s *dashboardService) deleter(kind models.ProviderKind, list models.ListName) (storage.IDeleter, error) {
	switch list {
	case models.ListInquiries:
		return s.stg.Inquiry(kind), nil
	case models.ListQuotations:
		return s.stg.Quotation(kind), nil
	case models.ListOrders:
		return s.stg.Order(kind), nil
	case models.ListRatings:
		return s.stg.Rating(kind), nil
	}
	return nil, invalid("list", "unknown list "+string(list))
}

func (s *dashboardService) Delete(ctx context.Context, kind models.ProviderKind, list models.ListName, manufacturerID, id int64) error {
	d, err := s.deleter(kind, list)
	if err != nil {
		return err
	}
	if err := d.Delete(ctx, manufacturerID, id); err != nil {
		err = translate(err)
		if !errors.Is(err, ErrNotFound) {
			s.log.Error("failed to delete record", logger.String("list", string(list)), logger.Int64("id", id), logger.Error(err))
		}
		return err
	}
	return nil
}

// DeleteMany removes the ids that belong to manufacturerID in one statement
// and returns how many rows went. Ids of other manufacturers are not counted.
func (s *dashboardService) DeleteMany(ctx context.Context, kind models.ProviderKind, list models.ListName, manufacturerID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, invalid("ids", "nothing selected")
	}
	d, err := s.deleter(kind, list)
	if err != nil {
		return 0, err
	}
	n, err := d.DeleteMany(ctx, manufacturerID, ids)
	if err != nil {
		s.log.Error("failed to bulk delete", logger.String("list", string(list)), logger.Int64s("ids", ids), logger.Error(err))
		return 0, err
	}
	return n, nil
}
