package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"kilnbazaar/config"
	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/storage"
)

type Store struct {
	pool *pgxpool.Pool
	log  logger.ILogger
}

func New(ctx context.Context, cfg config.Config, log logger.ILogger) (storage.IStorage, error) {
	url := cfg.PostgresURL()

	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		log.Error("error while parsing Postgres config", logger.Error(err))
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error("failed to connect Postgres", logger.Error(err))
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		log.Error("failed to ping Postgres", logger.Error(err))
		pool.Close()
		return nil, err
	}

	if err := migrateUp(url, migrationsPath(cfg), log); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("Postgres connected")

	return &Store{
		pool: pool,
		log:  log,
	}, nil
}

func migrationsPath(cfg config.Config) string {
	if cfg.MigrationsPath != "" {
		return cfg.MigrationsPath
	}
	cwd, _ := os.Getwd()
	mPath := filepath.Join(cwd, "migrations")
	if _, err := os.Stat(filepath.Join(mPath, "postgres")); err == nil {
		mPath = filepath.Join(mPath, "postgres")
	}
	return mPath
}

func migrateUp(url, path string, log logger.ILogger) error {
	m, err := migrate.New("file://"+path, url)
	if err != nil {
		log.Error("migration init error or no migrations found", logger.String("path", path), logger.Error(err))
		return nil
	}
	defer m.Close()

	if err = m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to apply")
			return nil
		}
		log.Error("migration up error", logger.Error(err))
		return err
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) User() storage.IUserStorage { return NewUserRepo(s.pool, s.log) }
func (s *Store) OTP() storage.IOTPStorage   { return NewOTPRepo(s.pool, s.log) }

func (s *Store) Provider(kind models.ProviderKind) storage.IProviderStorage {
	return NewProviderRepo(s.pool, s.log, kind)
}

func (s *Store) Inquiry(kind models.ProviderKind) storage.IInquiryStorage {
	return NewInquiryRepo(s.pool, s.log, kind)
}

func (s *Store) Quotation(kind models.ProviderKind) storage.IQuotationStorage {
	return NewQuotationRepo(s.pool, s.log, kind)
}

func (s *Store) Order(kind models.ProviderKind) storage.IOrderStorage {
	return NewOrderRepo(s.pool, s.log, kind)
}

func (s *Store) Rating(kind models.ProviderKind) storage.IRatingStorage {
	return NewRatingRepo(s.pool, s.log, kind)
}
