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

type orderRepo struct {
	deleter
	kind models.ProviderKind
}

func NewOrderRepo(db *pgxpool.Pool, log logger.ILogger, kind models.ProviderKind) storage.IOrderStorage {
	return &orderRepo{
		deleter: deleter{db: db, log: log, table: kind.Table(models.ListOrders)},
		kind:    kind,
	}
}

func (r *orderRepo) selectQuery(where string) string {
	return fmt.Sprintf(`
		SELECT o.id, o.order_number, o.manufacturer_id, o.provider_id, o.quotation_id, o.%s, o.quantity, o.unit,
		       o.price_per_unit, o.total_amount, o.delivery_location, o.expected_delivery_date, o.notes,
		       o.order_status, o.payment_status,
		       o.provider_confirmation_date, o.provider_response_date, o.confirmed_by_provider,
		       o.provider_order_number, o.tracking_number, o.actual_delivery_date,
		       o.created_at, o.updated_at,
		       COALESCE(p.business_name, '') AS provider_name
		FROM %s o
		LEFT JOIN %s p ON p.id = o.provider_id
		WHERE %s
		ORDER BY o.created_at DESC
	`, r.kind.OfferingColumn(), r.table, r.kind.ProvidersTable(), where)
}

func (r *orderRepo) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (order_number, manufacturer_id, provider_id, quotation_id, %s, quantity, unit, price_per_unit,
		                total_amount, delivery_location, expected_delivery_date, notes, order_status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`, r.table, r.kind.OfferingColumn())
	err := r.db.QueryRow(ctx, query,
		o.OrderNumber,
		o.ManufacturerID,
		o.ProviderID,
		o.QuotationID,
		o.ItemType,
		o.Quantity,
		o.Unit,
		o.PricePerUnit,
		o.TotalAmount,
		o.DeliveryLocation,
		o.ExpectedDeliveryDate,
		o.Notes,
		o.OrderStatus,
		o.PaymentStatus,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		r.log.Error("failed to create order", logger.String("kind", string(r.kind)), logger.Error(err))
		return nil, err
	}
	return o, nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	list, err := r.scanOrders(ctx, r.selectQuery("o.id = $1"), id)
	if err != nil {
		r.log.Error("failed to get order by id", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	if len(list) == 0 {
		return nil, storage.ErrNotFound
	}
	return list[0], nil
}

func (r *orderRepo) GetByManufacturer(ctx context.Context, manufacturerID int64) ([]*models.Order, error) {
	return r.scanOrders(ctx, r.selectQuery("o.manufacturer_id = $1"), manufacturerID)
}

func (r *orderRepo) GetByProvider(ctx context.Context, providerID int64) ([]*models.Order, error) {
	return r.scanOrders(ctx, r.selectQuery("o.provider_id = $1"), providerID)
}

func (r *orderRepo) Confirm(ctx context.Context, id int64, conf models.OrderConfirmation) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET provider_confirmation_date = $1, provider_response_date = $1, confirmed_by_provider = TRUE,
		    provider_order_number = $2, tracking_number = $3, order_status = $4, updated_at = NOW()
		WHERE id = $5
	`, r.table)
	res, err := r.db.Exec(ctx, query, conf.ConfirmedAt, conf.ProviderOrderNumber, conf.TrackingNumber, conf.OrderStatus, id)
	if err != nil {
		r.log.Error("failed to confirm order", logger.Int64("id", id), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *orderRepo) MarkDelivered(ctx context.Context, id int64, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s SET actual_delivery_date = $1, order_status = 'delivered', updated_at = NOW()
		WHERE id = $2
	`, r.table)
	res, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		r.log.Error("failed to mark order delivered", logger.Int64("id", id), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *orderRepo) SetPaymentStatus(ctx context.Context, manufacturerID, id int64, status string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET payment_status = $1, updated_at = NOW()
		WHERE id = $2 AND manufacturer_id = $3
	`, r.table)
	res, err := r.db.Exec(ctx, query, status, id, manufacturerID)
	if err != nil {
		r.log.Error("failed to set payment status", logger.Int64("id", id), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *orderRepo) scanOrders(ctx context.Context, query string, args ...interface{}) ([]*models.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		var o models.Order
		err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.ManufacturerID, &o.ProviderID, &o.QuotationID, &o.ItemType, &o.Quantity, &o.Unit,
			&o.PricePerUnit, &o.TotalAmount, &o.DeliveryLocation, &o.ExpectedDeliveryDate, &o.Notes,
			&o.OrderStatus, &o.PaymentStatus,
			&o.ProviderConfirmationDate, &o.ProviderResponseDate, &o.ConfirmedByProvider,
			&o.ProviderOrderNumber, &o.TrackingNumber, &o.ActualDeliveryDate,
			&o.CreatedAt, &o.UpdatedAt,
			&o.ProviderName,
		)
		if err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}
