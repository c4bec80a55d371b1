package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// CursorRepo keeps a crawl's next id in the crawl_state table, one row per
// named crawl. It satisfies the same load/store contract as the file cursor.
type CursorRepo struct {
	db    *sqlx.DB
	name  string
	start int64
}

func NewCursorRepo(db *sqlx.DB, name string, start int64) *CursorRepo {
	return &CursorRepo{db: db, name: name, start: start}
}

// Load returns the stored next id, or the start id if this crawl never ran.
func (r *CursorRepo) Load(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.GetContext(ctx, &next, r.db.Rebind(`SELECT next_id FROM crawl_state WHERE name=?`), r.name)
	if errors.Is(err, sql.ErrNoRows) {
		return r.start, nil
	}
	return next, err
}

func (r *CursorRepo) Store(ctx context.Context, next int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
	  INSERT INTO crawl_state(name, next_id, updated_at) VALUES(?, ?, ?)
	  ON CONFLICT(name) DO UPDATE SET next_id=excluded.next_id, updated_at=excluded.updated_at
	`), r.name, next, time.Now().UTC().Format(time.RFC3339))
	return err
}
