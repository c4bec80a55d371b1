package domain

import (
	"strings"
	"time"
)

// Listing mirrors one row of the listings table. Optional columns are pointers
// so an absent source field persists as NULL rather than a zero value.
type Listing struct {
	ID                  int64      `db:"id"`
	Title               *string    `db:"title"`
	CreatedAt           *time.Time `db:"created_at"`
	Price               *int64     `db:"price"`
	Currency            *string    `db:"currency"`
	ShipCost            *int64     `db:"ship_cost"`
	ShipTo              *string    `db:"ship_to"`
	Fee                 *float64   `db:"fee"`
	DesignerName        *string    `db:"designer_name"`
	DesignerID          *int64     `db:"designer_id"`
	Description         *string    `db:"description"`
	Size                *string    `db:"size"`
	Category            *string    `db:"category"`
	Followed            *bool      `db:"followed"`
	BuyNow              *bool      `db:"buy_now"`
	MakeOffer           *bool      `db:"make_offer"`
	AcceptBindingOffers *bool      `db:"accept_binding_offers"`
	Sold                *bool      `db:"sold"`
	SoldPrice           *int64     `db:"sold_price"`
	SoldAt              *time.Time `db:"sold_at"`
	Dropped             *bool      `db:"dropped"`
	PriceDrops          string     `db:"price_drops"`
	PriceUpdatedAt      *time.Time `db:"price_updated_at"`
	Strata              *string    `db:"strata"`
	FollowerCount       *int64     `db:"follower_count"`
	NumPhotos           int64      `db:"num_photos"`
	BuyerID             *int64     `db:"buyer_id"`
	SellerID            int64      `db:"seller_id"`
}

type Photo struct {
	ID        int64   `db:"id"`
	ListingID int64   `db:"listing_id"`
	URL       *string `db:"url"`
	Width     *int64  `db:"width"`
	Height    *int64  `db:"height"`
	ImageAPI  *string `db:"image_api"`
	Rotate    *int64  `db:"rotate"`
}

// User mirrors one row of the users table. A stub row carries only ID.
type User struct {
	ID                     int64    `db:"id"`
	Username               *string  `db:"username"`
	Height                 *int64   `db:"height"`
	Weight                 *int64   `db:"weight"`
	Location               *string  `db:"location"`
	PurchaseCount          *int64   `db:"purchase_count"`
	WouldSellToAgainCount  *int64   `db:"would_sell_to_again_count"`
	SoldCount              *int64   `db:"sold_count"`
	WouldBuyFromAgainCount *int64   `db:"would_buy_from_again_count"`
	ItemAsDescribedAverage *float64 `db:"item_as_described_average"`
	FastShippingAverage    *float64 `db:"fast_shipping_average"`
	CommunicationAverage   *float64 `db:"communication_average"`
	SellerFeedbackCount    *int64   `db:"seller_feedback_count"`
	TransactionCount       *int64   `db:"transaction_count"`
	ListingsForSaleCount   *int64   `db:"listings_for_sale_count"`
	UnreadBuyingCount      *int64   `db:"unread_buying_count"`
	UnreadSellingCount     *int64   `db:"unread_selling_count"`
	IsBanned               *bool    `db:"is_banned"`
	IsBlocked              *bool    `db:"is_blocked"`
	IsAdmin                *bool    `db:"is_admin"`
	IsCurator              *bool    `db:"is_curator"`
}

// IsStub reports whether u has only been created to satisfy a buyer/seller reference.
func (u User) IsStub() bool {
	return u.Username == nil && u.TransactionCount == nil
}

// DecodePriceDrops splits the stored price_drops text back into its values, in order.
func DecodePriceDrops(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
