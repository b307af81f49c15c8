package service

import (
	"context"
	"strings"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/storage"
)

type ProviderService interface {
	Register(ctx context.Context, kind models.ProviderKind, ownerID int64, p *models.Provider) (*models.Provider, error)
	Update(ctx context.Context, kind models.ProviderKind, ownerID int64, p *models.Provider) (*models.Provider, error)
	Get(ctx context.Context, kind models.ProviderKind, id int64) (*models.Provider, error)
	Mine(ctx context.Context, kind models.ProviderKind, ownerID int64) ([]*models.Provider, error)
	List(ctx context.Context, kind models.ProviderKind, filter models.ProviderFilter) ([]*models.Provider, error)
}

type providerService struct {
	stg storage.IStorage
	log logger.ILogger
}

func NewProviderService(stg storage.IStorage, log logger.ILogger) ProviderService {
	return &providerService{stg: stg, log: log}
}

func validateProvider(p *models.Provider) error {
	p.BusinessName = strings.TrimSpace(p.BusinessName)
	p.ContactPerson = strings.TrimSpace(p.ContactPerson)
	p.Location = strings.TrimSpace(p.Location)

	switch {
	case p.BusinessName == "":
		return invalid("business_name", "business name is required")
	case p.ContactPerson == "":
		return invalid("contact_person", "contact person is required")
	case p.Location == "":
		return invalid("location", "location is required")
	}
	phone, err := NormalizePhone(p.Phone)
	if err != nil {
		return err
	}
	p.Phone = phone

	var offerings []string
	for _, o := range p.Offerings {
		if o = strings.TrimSpace(o); o != "" {
			offerings = append(offerings, o)
		}
	}
	if len(offerings) == 0 {
		return invalid("offerings", "select at least one type")
	}
	p.Offerings = offerings
	return nil
}

func (s *providerService) Register(ctx context.Context, kind models.ProviderKind, ownerID int64, p *models.Provider) (*models.Provider, error) {
	if err := validateProvider(p); err != nil {
		return nil, err
	}
	p.UserID = ownerID
	p.Kind = kind

	created, err := s.stg.Provider(kind).Create(ctx, p)
	if err != nil {
		s.log.Error("provider registration failed", logger.String("kind", string(kind)), logger.Int64("owner", ownerID), logger.Error(err))
		return nil, err
	}
	s.log.Info("provider registered", logger.String("kind", string(kind)), logger.Int64("id", created.ID))
	return created, nil
}

func (s *providerService) Update(ctx context.Context, kind models.ProviderKind, ownerID int64, p *models.Provider) (*models.Provider, error) {
	if err := validateProvider(p); err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, kind, ownerID, p.ID); err != nil {
		return nil, err
	}

	updated, err := s.stg.Provider(kind).Update(ctx, p)
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

func (s *providerService) Get(ctx context.Context, kind models.ProviderKind, id int64) (*models.Provider, error) {
	p, err := s.stg.Provider(kind).GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (s *providerService) Mine(ctx context.Context, kind models.ProviderKind, ownerID int64) ([]*models.Provider, error) {
	return s.stg.Provider(kind).GetByUserID(ctx, ownerID)
}

func (s *providerService) List(ctx context.Context, kind models.ProviderKind, filter models.ProviderFilter) ([]*models.Provider, error) {
	filter.Location = strings.TrimSpace(filter.Location)
	filter.ItemType = strings.TrimSpace(filter.ItemType)
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	return s.stg.Provider(kind).List(ctx, filter)
}

func (s *providerService) owned(ctx context.Context, kind models.ProviderKind, ownerID, providerID int64) (*models.Provider, error) {
	return ownedProvider(ctx, s.stg, kind, ownerID, providerID)
}

// ownedProvider loads a provider and checks that ownerID manages it.
func ownedProvider(ctx context.Context, stg storage.IStorage, kind models.ProviderKind, ownerID, providerID int64) (*models.Provider, error) {
	p, err := stg.Provider(kind).GetByID(ctx, providerID)
	if err != nil {
		return nil, translate(err)
	}
	if p.UserID != ownerID {
		return nil, ErrForbidden
	}
	return p, nil
}
