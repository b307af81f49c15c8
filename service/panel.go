package service

import (
	"context"
	"sync"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/pkg/selection"
)

// Panel is one manufacturer's dashboard for one provider kind: the last
// fetched snapshot plus a selection per list. Rows are never removed locally;
// only a successful refetch replaces them.
type Panel struct {
	dashboard DashboardService
	requests  RequestService
	log       logger.ILogger

	Kind           models.ProviderKind
	ManufacturerID int64

	mu         sync.Mutex
	snap       *Snapshot
	fetchGen   uint64
	snapGen    uint64
	selections map[models.ListName]*selection.List
	submitting bool
}

func NewPanel(svc IServiceManager, log logger.ILogger, kind models.ProviderKind, manufacturerID int64) *Panel {
	p := &Panel{
		dashboard:      svc.Dashboard(),
		requests:       svc.Request(),
		log:            log.With(logger.String("kind", string(kind)), logger.Int64("manufacturer", manufacturerID)),
		Kind:           kind,
		ManufacturerID: manufacturerID,
		snap:           &Snapshot{},
		selections:     make(map[models.ListName]*selection.List, len(models.Lists)),
	}
	for _, l := range models.Lists {
		p.selections[l] = selection.New()
	}
	return p
}

// Snapshot returns the last successfully fetched lists.
func (p *Panel) Snapshot() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Refresh refetches all four lists. On failure the previous snapshot is kept.
// When refreshes overlap, the one started last wins; an older result arriving
// late is dropped.
func (p *Panel) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.fetchGen++
	gen := p.fetchGen
	p.mu.Unlock()

	snap, err := p.dashboard.FetchAll(ctx, p.Kind, p.ManufacturerID)
	if err != nil {
		return err
	}
	p.mu.Lock()
	if gen < p.snapGen {
		p.mu.Unlock()
		p.log.Debug("dropping stale refresh")
		return nil
	}
	p.snapGen = gen
	p.snap = snap
	for _, s := range p.selections {
		if s.State() != selection.Deleting {
			s.Reset()
		}
	}
	p.mu.Unlock()
	return nil
}

func (p *Panel) Toggle(list models.ListName, id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.selections[list]; ok {
		s.Toggle(id)
	}
}

func (p *Panel) SelectAll(list models.ListName) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.selections[list]; ok {
		s.SelectAll(p.snap.IDs(list))
	}
}

func (p *Panel) Selected(list models.ListName) []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.selections[list]; ok {
		return s.IDs()
	}
	return nil
}

func (p *Panel) IsSelected(list models.ListName, id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.selections[list]
	return ok && s.Has(id)
}

// DeleteSelected issues one bulk delete for the selected rows of list. On
// success the selection is cleared and the lists are refetched once; on
// failure the selection is kept.
func (p *Panel) DeleteSelected(ctx context.Context, list models.ListName) (int, error) {
	p.mu.Lock()
	s, ok := p.selections[list]
	if !ok {
		p.mu.Unlock()
		return 0, invalid("list", "unknown list "+string(list))
	}
	ids, err := s.Begin()
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}

	deleted, err := p.dashboard.DeleteMany(ctx, p.Kind, list, p.ManufacturerID, ids)

	p.mu.Lock()
	s.Finish(err == nil && deleted > 0)
	p.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, ErrDeleteFailed
	}
	p.log.Info("bulk delete", logger.String("list", string(list)), logger.Int("selected", len(ids)), logger.Int64("deleted", deleted))
	if err := p.Refresh(ctx); err != nil {
		p.log.Warning("refetch after delete failed", logger.Error(err))
	}
	return int(deleted), nil
}

// DeleteOne removes a single row without touching the selection.
func (p *Panel) DeleteOne(ctx context.Context, list models.ListName, id int64) error {
	if err := p.dashboard.Delete(ctx, p.Kind, list, p.ManufacturerID, id); err != nil {
		return err
	}
	if err := p.Refresh(ctx); err != nil {
		p.log.Warning("refetch after delete failed", logger.Error(err))
	}
	return nil
}

func (p *Panel) SubmitInquiry(ctx context.Context, d InquiryDraft) (*models.Inquiry, error) {
	return submit(p, ctx, func() (*models.Inquiry, error) {
		return p.requests.SubmitInquiry(ctx, p.Kind, p.ManufacturerID, d)
	})
}

func (p *Panel) SubmitQuotation(ctx context.Context, d PurchaseDraft) (*models.Quotation, error) {
	return submit(p, ctx, func() (*models.Quotation, error) {
		return p.requests.SubmitQuotation(ctx, p.Kind, p.ManufacturerID, d)
	})
}

func (p *Panel) SubmitOrder(ctx context.Context, d PurchaseDraft) (*models.Order, error) {
	return submit(p, ctx, func() (*models.Order, error) {
		return p.requests.SubmitOrder(ctx, p.Kind, p.ManufacturerID, d)
	})
}

// SubmitRating resolves the order against the orders already loaded in the
// panel.
func (p *Panel) SubmitRating(ctx context.Context, d RatingDraft) (*models.Rating, error) {
	orders := p.Snapshot().OrderModels()
	return submit(p, ctx, func() (*models.Rating, error) {
		return p.requests.SubmitRating(ctx, p.Kind, p.ManufacturerID, d, orders)
	})
}

// submit allows one submission at a time per panel and refetches after a
// successful one.
func submit[T any](p *Panel, ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	p.mu.Lock()
	if p.submitting {
		p.mu.Unlock()
		return zero, ErrBusy
	}
	p.submitting = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.submitting = false
		p.mu.Unlock()
	}()

	out, err := fn()
	if err != nil {
		return zero, err
	}
	if err := p.Refresh(ctx); err != nil {
		p.log.Warning("refetch after submit failed", logger.Error(err))
	}
	return out, nil
}
