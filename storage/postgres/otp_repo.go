package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/storage"
)

type otpRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewOTPRepo(db *pgxpool.Pool, log logger.ILogger) storage.IOTPStorage {
	return &otpRepo{db: db, log: log}
}

// Upsert replaces any outstanding code for the phone and resets attempts.
func (r *otpRepo) Upsert(ctx context.Context, otp *models.OTP) error {
	query := `
		INSERT INTO otp_codes (phone, code_hash, attempts, expires_at)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (phone) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
			attempts = 0,
			expires_at = EXCLUDED.expires_at,
			created_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, otp.Phone, otp.CodeHash, otp.ExpiresAt)
	if err != nil {
		r.log.Error("failed to store otp", logger.Error(err))
		return err
	}
	return nil
}

func (r *otpRepo) Get(ctx context.Context, phone string) (*models.OTP, error) {
	var otp models.OTP
	query := `SELECT phone, code_hash, attempts, expires_at, created_at FROM otp_codes WHERE phone = $1`
	err := r.db.QueryRow(ctx, query, phone).Scan(&otp.Phone, &otp.CodeHash, &otp.Attempts, &otp.ExpiresAt, &otp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to get otp", logger.Error(err))
		return nil, err
	}
	return &otp, nil
}

func (r *otpRepo) IncrementAttempts(ctx context.Context, phone string) (int, error) {
	var attempts int
	query := `UPDATE otp_codes SET attempts = attempts + 1 WHERE phone = $1 RETURNING attempts`
	if err := r.db.QueryRow(ctx, query, phone).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		r.log.Error("failed to count otp attempt", logger.Error(err))
		return 0, err
	}
	return attempts, nil
}

func (r *otpRepo) Delete(ctx context.Context, phone string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM otp_codes WHERE phone = $1", phone)
	return err
}

func (r *otpRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, "DELETE FROM otp_codes WHERE expires_at < $1", now)
	if err != nil {
		r.log.Error("failed to purge expired otp codes", logger.Error(err))
		return 0, err
	}
	return res.RowsAffected(), nil
}
