package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/storage"
)

const providerColumns = `id, user_id, business_name, contact_person, phone, email, location, offerings,
	capacity, price_range, description, telegram_id, is_verified, created_at, updated_at`

type providerRepo struct {
	db    *pgxpool.Pool
	log   logger.ILogger
	kind  models.ProviderKind
	table string
}

func NewProviderRepo(db *pgxpool.Pool, log logger.ILogger, kind models.ProviderKind) storage.IProviderStorage {
	return &providerRepo{db: db, log: log, kind: kind, table: kind.ProvidersTable()}
}

func (r *providerRepo) Create(ctx context.Context, p *models.Provider) (*models.Provider, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, business_name, contact_person, phone, email, location, offerings, capacity, price_range, description, telegram_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, is_verified, created_at, updated_at
	`, r.table)
	err := r.db.QueryRow(ctx, query,
		p.UserID,
		p.BusinessName,
		p.ContactPerson,
		p.Phone,
		p.Email,
		p.Location,
		offerings(p.Offerings),
		p.Capacity,
		p.PriceRange,
		p.Description,
		p.TelegramID,
	).Scan(&p.ID, &p.IsVerified, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.log.Error("failed to create provider", logger.String("kind", string(r.kind)), logger.Error(err))
		return nil, err
	}
	p.Kind = r.kind
	return p, nil
}

func (r *providerRepo) Update(ctx context.Context, p *models.Provider) (*models.Provider, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET business_name = $1, contact_person = $2, phone = $3, email = $4, location = $5, offerings = $6,
			capacity = $7, price_range = $8, description = $9, telegram_id = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING user_id, is_verified, created_at, updated_at
	`, r.table)
	err := r.db.QueryRow(ctx, query,
		p.BusinessName,
		p.ContactPerson,
		p.Phone,
		p.Email,
		p.Location,
		offerings(p.Offerings),
		p.Capacity,
		p.PriceRange,
		p.Description,
		p.TelegramID,
		p.ID,
	).Scan(&p.UserID, &p.IsVerified, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to update provider", logger.Int64("id", p.ID), logger.Error(err))
		return nil, err
	}
	p.Kind = r.kind
	return p, nil
}

func (r *providerRepo) GetByID(ctx context.Context, id int64) (*models.Provider, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, providerColumns, r.table)
	providers, err := r.scanProviders(ctx, query, id)
	if err != nil {
		r.log.Error("failed to get provider by id", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	if len(providers) == 0 {
		return nil, storage.ErrNotFound
	}
	return providers[0], nil
}

func (r *providerRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Provider, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at ASC`, providerColumns, r.table)
	return r.scanProviders(ctx, query, userID)
}

// List applies the directory filters. Text filters are case-insensitive
// substring matches; ItemType must equal one of the provider's offerings.
func (r *providerRepo) List(ctx context.Context, filter models.ProviderFilter) ([]*models.Provider, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Location != "" {
		args = append(args, "%"+filter.Location+"%")
		where = append(where, fmt.Sprintf("location ILIKE $%d", len(args)))
	}
	if filter.ItemType != "" {
		args = append(args, filter.ItemType)
		where = append(where, fmt.Sprintf("$%d = ANY(offerings)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(business_name ILIKE $%d OR COALESCE(description, '') ILIKE $%d)", len(args), len(args)))
	}
	if filter.VerifiedOnly {
		where = append(where, "is_verified")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, providerColumns, r.table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY is_verified DESC, business_name ASC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	providers, err := r.scanProviders(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list providers", logger.String("kind", string(r.kind)), logger.Error(err))
		return nil, err
	}
	return providers, nil
}

func (r *providerRepo) scanProviders(ctx context.Context, query string, args ...interface{}) ([]*models.Provider, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []*models.Provider
	for rows.Next() {
		p := models.Provider{Kind: r.kind}
		err := rows.Scan(
			&p.ID, &p.UserID, &p.BusinessName, &p.ContactPerson, &p.Phone, &p.Email, &p.Location, &p.Offerings,
			&p.Capacity, &p.PriceRange, &p.Description, &p.TelegramID, &p.IsVerified, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		providers = append(providers, &p)
	}
	return providers, rows.Err()
}

// offerings keeps the column NOT NULL.
func offerings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
