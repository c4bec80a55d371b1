package repos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenDB connects to the store and ensures the schema exists. SQLite is held
// to a single connection: the pipeline has one writer, and an in-memory
// database only exists on the connection that created it.
func OpenDB(driver, dsn string) (*sqlx.DB, error) {
	if driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// sqliteDSN turns on foreign keys for every connection the pool opens, not
// just the one that ran the schema.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// WithTx runs fn inside one transaction, committing only if fn succeeds.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func ensureSchema(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == DriverPostgres {
		schema = postgresSchema
	}
	_, err := db.Exec(schema)
	return err
}

const sqliteSchema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS users(
  id INTEGER PRIMARY KEY,
  username TEXT,
  height INTEGER,
  weight INTEGER,
  location TEXT,
  purchase_count INTEGER,
  would_sell_to_again_count INTEGER,
  sold_count INTEGER,
  would_buy_from_again_count INTEGER,
  item_as_described_average REAL,
  fast_shipping_average REAL,
  communication_average REAL,
  seller_feedback_count INTEGER,
  transaction_count INTEGER,
  listings_for_sale_count INTEGER,
  unread_buying_count INTEGER,
  unread_selling_count INTEGER,
  is_banned BOOLEAN,
  is_blocked BOOLEAN,
  is_admin BOOLEAN,
  is_curator BOOLEAN
);

CREATE TABLE IF NOT EXISTS listings(
  id INTEGER PRIMARY KEY,
  title TEXT,
  created_at DATETIME,
  price INTEGER,
  currency TEXT,
  ship_cost INTEGER,
  ship_to TEXT,
  fee REAL,
  designer_name TEXT,
  designer_id INTEGER,
  description TEXT,
  size TEXT,
  category TEXT,
  followed BOOLEAN,
  buy_now BOOLEAN,
  make_offer BOOLEAN,
  accept_binding_offers BOOLEAN,
  sold BOOLEAN,
  sold_price INTEGER,
  sold_at DATETIME,
  dropped BOOLEAN,
  price_drops TEXT NOT NULL DEFAULT '',
  price_updated_at DATETIME,
  strata TEXT,
  follower_count INTEGER,
  num_photos INTEGER NOT NULL DEFAULT 0,
  buyer_id INTEGER NULL REFERENCES users(id),
  seller_id INTEGER NOT NULL REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_listings_buyer  ON listings(buyer_id);
CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller_id);

CREATE TABLE IF NOT EXISTS photos(
  id INTEGER PRIMARY KEY,
  listing_id INTEGER NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  url TEXT,
  width INTEGER,
  height INTEGER,
  image_api TEXT,
  rotate INTEGER
);
CREATE INDEX IF NOT EXISTS idx_photos_listing ON photos(listing_id);

CREATE TABLE IF NOT EXISTS listing_follows(
  listing_id INTEGER NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  PRIMARY KEY (listing_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_listing_follows_user ON listing_follows(user_id);

CREATE TABLE IF NOT EXISTS crawl_state(
  name TEXT PRIMARY KEY,
  next_id INTEGER NOT NULL,
  updated_at TEXT
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users(
  id BIGINT PRIMARY KEY,
  username TEXT,
  height BIGINT,
  weight BIGINT,
  location TEXT,
  purchase_count BIGINT,
  would_sell_to_again_count BIGINT,
  sold_count BIGINT,
  would_buy_from_again_count BIGINT,
  item_as_described_average DOUBLE PRECISION,
  fast_shipping_average DOUBLE PRECISION,
  communication_average DOUBLE PRECISION,
  seller_feedback_count BIGINT,
  transaction_count BIGINT,
  listings_for_sale_count BIGINT,
  unread_buying_count BIGINT,
  unread_selling_count BIGINT,
  is_banned BOOLEAN,
  is_blocked BOOLEAN,
  is_admin BOOLEAN,
  is_curator BOOLEAN
);

CREATE TABLE IF NOT EXISTS listings(
  id BIGINT PRIMARY KEY,
  title TEXT,
  created_at TIMESTAMP,
  price BIGINT,
  currency TEXT,
  ship_cost BIGINT,
  ship_to TEXT,
  fee DOUBLE PRECISION,
  designer_name TEXT,
  designer_id BIGINT,
  description TEXT,
  size TEXT,
  category TEXT,
  followed BOOLEAN,
  buy_now BOOLEAN,
  make_offer BOOLEAN,
  accept_binding_offers BOOLEAN,
  sold BOOLEAN,
  sold_price BIGINT,
  sold_at TIMESTAMP,
  dropped BOOLEAN,
  price_drops TEXT NOT NULL DEFAULT '',
  price_updated_at TIMESTAMP,
  strata TEXT,
  follower_count BIGINT,
  num_photos BIGINT NOT NULL DEFAULT 0,
  buyer_id BIGINT NULL REFERENCES users(id),
  seller_id BIGINT NOT NULL REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_listings_buyer  ON listings(buyer_id);
CREATE INDEX IF NOT EXISTS idx_listings_seller ON listings(seller_id);

CREATE TABLE IF NOT EXISTS photos(
  id BIGINT PRIMARY KEY,
  listing_id BIGINT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  url TEXT,
  width BIGINT,
  height BIGINT,
  image_api TEXT,
  rotate BIGINT
);
CREATE INDEX IF NOT EXISTS idx_photos_listing ON photos(listing_id);

CREATE TABLE IF NOT EXISTS listing_follows(
  listing_id BIGINT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
  user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  PRIMARY KEY (listing_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_listing_follows_user ON listing_follows(user_id);

CREATE TABLE IF NOT EXISTS crawl_state(
  name TEXT PRIMARY KEY,
  next_id BIGINT NOT NULL,
  updated_at TEXT
);
`
