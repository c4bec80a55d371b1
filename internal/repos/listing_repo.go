package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"grailed/internal/domain"
)

type ListingRepo struct{ db *sqlx.DB }

func NewListingRepo(db *sqlx.DB) *ListingRepo { return &ListingRepo{db: db} }

const listingColumns = `
    id, title, created_at, price, currency, ship_cost, ship_to, fee,
    designer_name, designer_id, description, size, category, followed,
    buy_now, make_offer, accept_binding_offers, sold, sold_price, sold_at,
    dropped, price_drops, price_updated_at, strata, follower_count, num_photos,
    buyer_id, seller_id`

// Upsert inserts the listing or overwrites every scalar column of the existing
// row with the same id. Follow rows are left alone.
func (r *ListingRepo) Upsert(ctx context.Context, tx *sqlx.Tx, l domain.Listing) error {
	_, err := tx.NamedExecContext(ctx, `
	  INSERT INTO listings(`+listingColumns+`)
	  VALUES(
	    :id, :title, :created_at, :price, :currency, :ship_cost, :ship_to, :fee,
	    :designer_name, :designer_id, :description, :size, :category, :followed,
	    :buy_now, :make_offer, :accept_binding_offers, :sold, :sold_price, :sold_at,
	    :dropped, :price_drops, :price_updated_at, :strata, :follower_count, :num_photos,
	    :buyer_id, :seller_id)
	  ON CONFLICT(id) DO UPDATE SET
	    title=excluded.title, created_at=excluded.created_at, price=excluded.price,
	    currency=excluded.currency, ship_cost=excluded.ship_cost, ship_to=excluded.ship_to,
	    fee=excluded.fee, designer_name=excluded.designer_name, designer_id=excluded.designer_id,
	    description=excluded.description, size=excluded.size, category=excluded.category,
	    followed=excluded.followed, buy_now=excluded.buy_now, make_offer=excluded.make_offer,
	    accept_binding_offers=excluded.accept_binding_offers, sold=excluded.sold,
	    sold_price=excluded.sold_price, sold_at=excluded.sold_at, dropped=excluded.dropped,
	    price_drops=excluded.price_drops, price_updated_at=excluded.price_updated_at,
	    strata=excluded.strata, follower_count=excluded.follower_count,
	    num_photos=excluded.num_photos, buyer_id=excluded.buyer_id, seller_id=excluded.seller_id
	`, l)
	return err
}

// ReplacePhotos makes photos the complete photo set of listingID.
func (r *ListingRepo) ReplacePhotos(ctx context.Context, tx *sqlx.Tx, listingID int64, photos []domain.Photo) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM photos WHERE listing_id=?`), listingID); err != nil {
		return err
	}
	for _, p := range photos {
		// a photo id seen under another listing moves to this one
		if _, err := tx.NamedExecContext(ctx, `
		  INSERT INTO photos(id, listing_id, url, width, height, image_api, rotate)
		  VALUES(:id, :listing_id, :url, :width, :height, :image_api, :rotate)
		  ON CONFLICT(id) DO UPDATE SET
		    listing_id=excluded.listing_id, url=excluded.url, width=excluded.width,
		    height=excluded.height, image_api=excluded.image_api, rotate=excluded.rotate
		`, p); err != nil {
			return err
		}
	}
	return nil
}

// ExistingIDs returns the subset of ids that have a listing row, in input order.
func (r *ListingRepo) ExistingIDs(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id FROM listings WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var found []int64
	if err := tx.SelectContext(ctx, &found, tx.Rebind(query), args...); err != nil {
		return nil, err
	}
	present := make(map[int64]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	out := make([]int64, 0, len(found))
	for _, id := range ids {
		if _, ok := present[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// Get returns the listing row with id, or sql.ErrNoRows.
func (r *ListingRepo) Get(ctx context.Context, id int64) (domain.Listing, error) {
	var l domain.Listing
	err := r.db.GetContext(ctx, &l, r.db.Rebind(`SELECT `+listingColumns+` FROM listings WHERE id=?`), id)
	return l, err
}

func (r *ListingRepo) Photos(ctx context.Context, listingID int64) ([]domain.Photo, error) {
	var out []domain.Photo
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
	  SELECT id, listing_id, url, width, height, image_api, rotate
	  FROM photos
	  WHERE listing_id = ?
	  ORDER BY id
	`), listingID)
	return out, err
}

// Exists reports whether a listing row with id is stored.
func (r *ListingRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, r.db.Rebind(`SELECT 1 FROM listings WHERE id=?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *ListingRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM listings`)
	return n, err
}
