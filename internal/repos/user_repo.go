package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"grailed/internal/domain"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `
    id, username, height, weight, location, purchase_count,
    would_sell_to_again_count, sold_count, would_buy_from_again_count,
    item_as_described_average, fast_shipping_average, communication_average,
    seller_feedback_count, transaction_count, listings_for_sale_count,
    unread_buying_count, unread_selling_count,
    is_banned, is_blocked, is_admin, is_curator`

// EnsureStub creates an id-only row for a referenced user unless one exists.
func (r *UserRepo) EnsureStub(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`
	  INSERT INTO users(id) VALUES(?)
	  ON CONFLICT(id) DO NOTHING
	`), id)
	return err
}

// ExistsTx reports whether a row with id is visible inside tx.
func (r *UserRepo) ExistsTx(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error) {
	var one int
	err := tx.GetContext(ctx, &one, tx.Rebind(`SELECT 1 FROM users WHERE id=?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *UserRepo) Insert(ctx context.Context, tx *sqlx.Tx, u domain.User) error {
	_, err := tx.NamedExecContext(ctx, `
	  INSERT INTO users(`+userColumns+`)
	  VALUES(
	    :id, :username, :height, :weight, :location, :purchase_count,
	    :would_sell_to_again_count, :sold_count, :would_buy_from_again_count,
	    :item_as_described_average, :fast_shipping_average, :communication_average,
	    :seller_feedback_count, :transaction_count, :listings_for_sale_count,
	    :unread_buying_count, :unread_selling_count,
	    :is_banned, :is_blocked, :is_admin, :is_curator)
	`, u)
	return err
}

// Update overwrites the scalar columns of an existing user row in place.
func (r *UserRepo) Update(ctx context.Context, tx *sqlx.Tx, u domain.User) error {
	_, err := tx.NamedExecContext(ctx, `
	  UPDATE users SET
	    username=:username, height=:height, weight=:weight, location=:location,
	    purchase_count=:purchase_count, would_sell_to_again_count=:would_sell_to_again_count,
	    sold_count=:sold_count, would_buy_from_again_count=:would_buy_from_again_count,
	    item_as_described_average=:item_as_described_average,
	    fast_shipping_average=:fast_shipping_average,
	    communication_average=:communication_average,
	    seller_feedback_count=:seller_feedback_count, transaction_count=:transaction_count,
	    listings_for_sale_count=:listings_for_sale_count,
	    unread_buying_count=:unread_buying_count, unread_selling_count=:unread_selling_count,
	    is_banned=:is_banned, is_blocked=:is_blocked, is_admin=:is_admin, is_curator=:is_curator
	  WHERE id=:id
	`, u)
	return err
}

// AddFollows records that userID follows each listing. Existing pairs are kept,
// so the relation only grows. It returns how many pairs were new.
func (r *UserRepo) AddFollows(ctx context.Context, tx *sqlx.Tx, userID int64, listingIDs []int64) (int64, error) {
	var added int64
	for _, lid := range listingIDs {
		res, err := tx.ExecContext(ctx, tx.Rebind(`
		  INSERT INTO listing_follows(listing_id, user_id) VALUES(?, ?)
		  ON CONFLICT(listing_id, user_id) DO NOTHING
		`), lid, userID)
		if err != nil {
			return added, err
		}
		n, _ := res.RowsAffected()
		added += n
	}
	return added, nil
}

// ByID returns the user row with id, or sql.ErrNoRows.
func (r *UserRepo) ByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`SELECT `+userColumns+` FROM users WHERE id=?`), id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Following lists the listing ids userID follows, ascending.
func (r *UserRepo) Following(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.DB.SelectContext(ctx, &ids, r.DB.Rebind(`
	  SELECT listing_id FROM listing_follows WHERE user_id=? ORDER BY listing_id
	`), userID)
	return ids, err
}

// Followers lists the user ids following listingID, ascending.
func (r *UserRepo) Followers(ctx context.Context, listingID int64) ([]int64, error) {
	var ids []int64
	err := r.DB.SelectContext(ctx, &ids, r.DB.Rebind(`
	  SELECT user_id FROM listing_follows WHERE listing_id=? ORDER BY user_id
	`), listingID)
	return ids, err
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}
