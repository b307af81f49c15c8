package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/storage"
)

type inquiryRepo struct {
	deleter
	kind models.ProviderKind
}

func NewInquiryRepo(db *pgxpool.Pool, log logger.ILogger, kind models.ProviderKind) storage.IInquiryStorage {
	return &inquiryRepo{
		deleter: deleter{db: db, log: log, table: kind.Table(models.ListInquiries)},
		kind:    kind,
	}
}

func (r *inquiryRepo) selectQuery(where string) string {
	return fmt.Sprintf(`
		SELECT i.id, i.manufacturer_id, i.provider_id, i.%s, i.quantity, i.unit, i.delivery_location, i.delivery_date,
		       i.budget, i.message, i.status, i.provider_response, i.responded_at, i.created_at, i.updated_at,
		       COALESCE(p.business_name, '') AS provider_name
		FROM %s i
		LEFT JOIN %s p ON p.id = i.provider_id
		WHERE %s
		ORDER BY i.created_at DESC
	`, r.kind.OfferingColumn(), r.table, r.kind.ProvidersTable(), where)
}

func (r *inquiryRepo) Create(ctx context.Context, i *models.Inquiry) (*models.Inquiry, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (manufacturer_id, provider_id, %s, quantity, unit, delivery_location, delivery_date, budget, message, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, r.table, r.kind.OfferingColumn())
	err := r.db.QueryRow(ctx, query,
		i.ManufacturerID,
		i.ProviderID,
		i.ItemType,
		i.Quantity,
		i.Unit,
		i.DeliveryLocation,
		i.DeliveryDate,
		i.Budget,
		i.Message,
		i.Status,
	).Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		r.log.Error("failed to create inquiry", logger.String("kind", string(r.kind)), logger.Error(err))
		return nil, err
	}
	return i, nil
}

func (r *inquiryRepo) GetByID(ctx context.Context, id int64) (*models.Inquiry, error) {
	list, err := r.scanInquiries(ctx, r.selectQuery("i.id = $1"), id)
	if err != nil {
		r.log.Error("failed to get inquiry by id", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	if len(list) == 0 {
		return nil, storage.ErrNotFound
	}
	return list[0], nil
}

func (r *inquiryRepo) GetByManufacturer(ctx context.Context, manufacturerID int64) ([]*models.Inquiry, error) {
	return r.scanInquiries(ctx, r.selectQuery("i.manufacturer_id = $1"), manufacturerID)
}

func (r *inquiryRepo) GetByProvider(ctx context.Context, providerID int64) ([]*models.Inquiry, error) {
	return r.scanInquiries(ctx, r.selectQuery("i.provider_id = $1"), providerID)
}

func (r *inquiryRepo) Respond(ctx context.Context, id int64, response, status string, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET provider_response = $1, status = $2, responded_at = $3, updated_at = NOW()
		WHERE id = $4
	`, r.table)
	res, err := r.db.Exec(ctx, query, response, status, at, id)
	if err != nil {
		r.log.Error("failed to respond to inquiry", logger.Int64("id", id), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *inquiryRepo) scanInquiries(ctx context.Context, query string, args ...interface{}) ([]*models.Inquiry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inquiries []*models.Inquiry
	for rows.Next() {
		var i models.Inquiry
		err := rows.Scan(
			&i.ID, &i.ManufacturerID, &i.ProviderID, &i.ItemType, &i.Quantity, &i.Unit, &i.DeliveryLocation, &i.DeliveryDate,
			&i.Budget, &i.Message, &i.Status, &i.ProviderResponse, &i.RespondedAt, &i.CreatedAt, &i.UpdatedAt,
			&i.ProviderName,
		)
		if err != nil {
			return nil, err
		}
		inquiries = append(inquiries, &i)
	}
	return inquiries, rows.Err()
}
