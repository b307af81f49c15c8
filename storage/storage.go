package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"kilnbazaar/pkg/models"
)

var ErrNotFound = errors.New("record not found")

type IStorage interface {
	User() IUserStorage
	OTP() IOTPStorage
	Provider(kind models.ProviderKind) IProviderStorage
	Inquiry(kind models.ProviderKind) IInquiryStorage
	Quotation(kind models.ProviderKind) IQuotationStorage
	Order(kind models.ProviderKind) IOrderStorage
	Rating(kind models.ProviderKind) IRatingStorage
	Close()
	GetPool() *pgxpool.Pool
}

type IUserStorage interface {
	GetOrCreateByPhone(ctx context.Context, phone, fullName, role string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByTelegramID(ctx context.Context, teleID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, fullName string, companyName *string) error
	SetTelegramID(ctx context.Context, id int64, teleID int64) error
}

type IOTPStorage interface {
	Upsert(ctx context.Context, otp *models.OTP) error
	Get(ctx context.Context, phone string) (*models.OTP, error)
	// IncrementAttempts bumps the attempt counter and returns its new value.
	IncrementAttempts(ctx context.Context, phone string) (int, error)
	Delete(ctx context.Context, phone string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type IProviderStorage interface {
	Create(ctx context.Context, p *models.Provider) (*models.Provider, error)
	Update(ctx context.Context, p *models.Provider) (*models.Provider, error)
	GetByID(ctx context.Context, id int64) (*models.Provider, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.Provider, error)
	List(ctx context.Context, filter models.ProviderFilter) ([]*models.Provider, error)
}

// IDeleter is shared by the four request lists. DeleteMany returns the number
// of rows removed, zero when nothing matched; it is one statement, so it either
// removes every matching row or none.
type IDeleter interface {
	Delete(ctx context.Context, manufacturerID, id int64) error
	DeleteMany(ctx context.Context, manufacturerID int64, ids []int64) (int64, error)
}

type IInquiryStorage interface {
	IDeleter
	Create(ctx context.Context, i *models.Inquiry) (*models.Inquiry, error)
	GetByID(ctx context.Context, id int64) (*models.Inquiry, error)
	GetByManufacturer(ctx context.Context, manufacturerID int64) ([]*models.Inquiry, error)
	GetByProvider(ctx context.Context, providerID int64) ([]*models.Inquiry, error)
	Respond(ctx context.Context, id int64, response, status string, at time.Time) error
}

type IQuotationStorage interface {
	IDeleter
	Create(ctx context.Context, q *models.Quotation) (*models.Quotation, error)
	GetByID(ctx context.Context, id int64) (*models.Quotation, error)
	GetByManufacturer(ctx context.Context, manufacturerID int64) ([]*models.Quotation, error)
	GetByProvider(ctx context.Context, providerID int64) ([]*models.Quotation, error)
	Respond(ctx context.Context, id int64, resp models.QuotationResponse) error
}

type IOrderStorage interface {
	IDeleter
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetByManufacturer(ctx context.Context, manufacturerID int64) ([]*models.Order, error)
	GetByProvider(ctx context.Context, providerID int64) ([]*models.Order, error)
	Confirm(ctx context.Context, id int64, conf models.OrderConfirmation) error
	MarkDelivered(ctx context.Context, id int64, at time.Time) error
	SetPaymentStatus(ctx context.Context, manufacturerID, id int64, status string) error
}

type IRatingStorage interface {
	IDeleter
	Create(ctx context.Context, r *models.Rating) (*models.Rating, error)
	GetByManufacturer(ctx context.Context, manufacturerID int64) ([]*models.Rating, error)
	GetByProvider(ctx context.Context, providerID int64) ([]*models.Rating, error)
}
