package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/storage"
)

const userColumns = `id, phone, full_name, role, company_name, telegram_id, created_at, updated_at`

type userRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewUserRepo(db *pgxpool.Pool, log logger.ILogger) storage.IUserStorage {
	return &userRepo{db: db, log: log}
}

func (r *userRepo) GetOrCreateByPhone(ctx context.Context, phone, fullName, role string) (*models.User, error) {
	var user models.User
	query := `
		INSERT INTO users (phone, full_name, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE
		SET updated_at = NOW()
		RETURNING ` + userColumns
	err := r.db.QueryRow(ctx, query, phone, fullName, role).Scan(
		&user.ID, &user.Phone, &user.FullName, &user.Role, &user.CompanyName, &user.TelegramID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		r.log.Error("failed to get or create user", logger.Error(err))
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
}

func (r *userRepo) GetByTelegramID(ctx context.Context, teleID int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, teleID)
}

func (r *userRepo) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Phone, &user.FullName, &user.Role, &user.CompanyName, &user.TelegramID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to get user", logger.Error(err))
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, id int64, fullName string, companyName *string) error {
	res, err := r.db.Exec(ctx, "UPDATE users SET full_name=$1, company_name=$2, updated_at=NOW() WHERE id=$3", fullName, companyName, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *userRepo) SetTelegramID(ctx context.Context, id int64, teleID int64) error {
	_, err := r.db.Exec(ctx, "UPDATE users SET telegram_id=$1, updated_at=NOW() WHERE id=$2", teleID, id)
	return err
}
