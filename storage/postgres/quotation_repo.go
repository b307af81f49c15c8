package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/storage"
)

type quotationRepo struct {
	deleter
	kind models.ProviderKind
}

func NewQuotationRepo(db *pgxpool.Pool, log logger.ILogger, kind models.ProviderKind) storage.IQuotationStorage {
	return &quotationRepo{
		deleter: deleter{db: db, log: log, table: kind.Table(models.ListQuotations)},
		kind:    kind,
	}
}

func (r *quotationRepo) selectQuery(where string) string {
	return fmt.Sprintf(`
		SELECT q.id, q.manufacturer_id, q.provider_id, q.inquiry_id, q.%s, q.quantity, q.unit, q.price_per_unit,
		       q.total_amount, q.delivery_location, q.delivery_date, q.status,
		       q.delivery_timeline, q.payment_terms, q.additional_notes, q.validity_period,
		       q.provider_response_date, q.responded_at, q.created_at, q.updated_at,
		       COALESCE(p.business_name, '') AS provider_name
		FROM %s q
		LEFT JOIN %s p ON p.id = q.provider_id
		WHERE %s
		ORDER BY q.created_at DESC
	`, r.kind.OfferingColumn(), r.table, r.kind.ProvidersTable(), where)
}

func (r *quotationRepo) Create(ctx context.Context, q *models.Quotation) (*models.Quotation, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (manufacturer_id, provider_id, inquiry_id, %s, quantity, unit, price_per_unit, total_amount,
		                delivery_location, delivery_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, r.table, r.kind.OfferingColumn())
	err := r.db.QueryRow(ctx, query,
		q.ManufacturerID,
		q.ProviderID,
		q.InquiryID,
		q.ItemType,
		q.Quantity,
		q.Unit,
		q.PricePerUnit,
		q.TotalAmount,
		q.DeliveryLocation,
		q.DeliveryDate,
		q.Status,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		r.log.Error("failed to create quotation", logger.String("kind", string(r.kind)), logger.Error(err))
		return nil, err
	}
	return q, nil
}

func (r *quotationRepo) GetByID(ctx context.Context, id int64) (*models.Quotation, error) {
	list, err := r.scanQuotations(ctx, r.selectQuery("q.id = $1"), id)
	if err != nil {
		r.log.Error("failed to get quotation by id", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	if len(list) == 0 {
		return nil, storage.ErrNotFound
	}
	return list[0], nil
}

func (r *quotationRepo) GetByManufacturer(ctx context.Context, manufacturerID int64) ([]*models.Quotation, error) {
	return r.scanQuotations(ctx, r.selectQuery("q.manufacturer_id = $1"), manufacturerID)
}

func (r *quotationRepo) GetByProvider(ctx context.Context, providerID int64) ([]*models.Quotation, error) {
	return r.scanQuotations(ctx, r.selectQuery("q.provider_id = $1"), providerID)
}

// Respond stamps both response timestamps with the same instant.
func (r *quotationRepo) Respond(ctx context.Context, id int64, resp models.QuotationResponse) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET delivery_timeline = $1, payment_terms = $2, additional_notes = $3, validity_period = $4,
		    provider_response_date = $5, responded_at = $5, updated_at = NOW()
		WHERE id = $6
	`, r.table)
	res, err := r.db.Exec(ctx, query,
		resp.DeliveryTimeline,
		resp.PaymentTerms,
		resp.AdditionalNotes,
		resp.ValidityPeriod,
		resp.RespondedAt,
		id,
	)
	if err != nil {
		r.log.Error("failed to respond to quotation", logger.Int64("id", id), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *quotationRepo) scanQuotations(ctx context.Context, query string, args ...interface{}) ([]*models.Quotation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotations []*models.Quotation
	for rows.Next() {
		var q models.Quotation
		err := rows.Scan(
			&q.ID, &q.ManufacturerID, &q.ProviderID, &q.InquiryID, &q.ItemType, &q.Quantity, &q.Unit, &q.PricePerUnit,
			&q.TotalAmount, &q.DeliveryLocation, &q.DeliveryDate, &q.Status,
			&q.DeliveryTimeline, &q.PaymentTerms, &q.AdditionalNotes, &q.ValidityPeriod,
			&q.ProviderResponseDate, &q.RespondedAt, &q.CreatedAt, &q.UpdatedAt,
			&q.ProviderName,
		)
		if err != nil {
			return nil, err
		}
		quotations = append(quotations, &q)
	}
	return quotations, rows.Err()
}
