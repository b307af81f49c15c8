package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/storage"
)

type ratingRepo struct {
	deleter
	kind models.ProviderKind
}

func NewRatingRepo(db *pgxpool.Pool, log logger.ILogger, kind models.ProviderKind) storage.IRatingStorage {
	return &ratingRepo{
		deleter: deleter{db: db, log: log, table: kind.Table(models.ListRatings)},
		kind:    kind,
	}
}

func (r *ratingRepo) selectQuery(where string) string {
	return fmt.Sprintf(`
		SELECT r.id, r.manufacturer_id, r.provider_id, r.order_id, r.rating, r.quality_rating, r.delivery_rating,
		       r.service_rating, r.comment, r.would_recommend, r.created_at,
		       COALESCE(o.order_number, '') AS order_number,
		       COALESCE(p.business_name, '') AS provider_name
		FROM %s r
		LEFT JOIN %s o ON o.id = r.order_id
		LEFT JOIN %s p ON p.id = r.provider_id
		WHERE %s
		ORDER BY r.created_at DESC
	`, r.table, r.kind.Table(models.ListOrders), r.kind.ProvidersTable(), where)
}

func (r *ratingRepo) Create(ctx context.Context, rt *models.Rating) (*models.Rating, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (manufacturer_id, provider_id, order_id, rating, quality_rating, delivery_rating, service_rating,
		                comment, would_recommend)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, r.table)
	err := r.db.QueryRow(ctx, query,
		rt.ManufacturerID,
		rt.ProviderID,
		rt.OrderID,
		rt.Rating,
		rt.QualityRating,
		rt.DeliveryRating,
		rt.ServiceRating,
		rt.Comment,
		rt.WouldRecommend,
	).Scan(&rt.ID, &rt.CreatedAt)
	if err != nil {
		r.log.Error("failed to create rating", logger.String("kind", string(r.kind)), logger.Error(err))
		return nil, err
	}
	return rt, nil
}

func (r *ratingRepo) GetByManufacturer(ctx context.Context, manufacturerID int64) ([]*models.Rating, error) {
	return r.scanRatings(ctx, r.selectQuery("r.manufacturer_id = $1"), manufacturerID)
}

func (r *ratingRepo) GetByProvider(ctx context.Context, providerID int64) ([]*models.Rating, error) {
	return r.scanRatings(ctx, r.selectQuery("r.provider_id = $1"), providerID)
}

func (r *ratingRepo) scanRatings(ctx context.Context, query string, args ...interface{}) ([]*models.Rating, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []*models.Rating
	for rows.Next() {
		var rt models.Rating
		err := rows.Scan(
			&rt.ID, &rt.ManufacturerID, &rt.ProviderID, &rt.OrderID, &rt.Rating, &rt.QualityRating, &rt.DeliveryRating,
			&rt.ServiceRating, &rt.Comment, &rt.WouldRecommend, &rt.CreatedAt,
			&rt.OrderNumber, &rt.ProviderName,
		)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, &rt)
	}
	return ratings, rows.Err()
}
