package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/storage"
)

// deleter implements storage.IDeleter for one request table. Rows are always
// scoped to the manufacturer that owns them.
type deleter struct {
	db    *pgxpool.Pool
	log   logger.ILogger
	table string
}

func (d deleter) Delete(ctx context.Context, manufacturerID, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND manufacturer_id = $2`, d.table)
	res, err := d.db.Exec(ctx, query, id, manufacturerID)
	if err != nil {
		d.log.Error("failed to delete row", logger.String("table", d.table), logger.Int64("id", id), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (d deleter) DeleteMany(ctx context.Context, manufacturerID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE manufacturer_id = $1 AND id = ANY($2)`, d.table)
	res, err := d.db.Exec(ctx, query, manufacturerID, ids)
	if err != nil {
		d.log.Error("failed to bulk delete rows", logger.String("table", d.table), logger.Int64s("ids", ids), logger.Error(err))
		return 0, err
	}
	return res.RowsAffected(), nil
}
