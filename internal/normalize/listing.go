package normalize

import (
	"encoding/json"
	"fmt"

	"grailed/internal/domain"
)

type rawDesigner struct {
	ID   *int64  `json:"id"`
	Name *string `json:"name"`
}

type rawSeller struct {
	ID *int64 `json:"id"`
}

type rawPhoto struct {
	ID       *int64  `json:"id"`
	URL      *string `json:"url"`
	Width    *int64  `json:"width"`
	Height   *int64  `json:"height"`
	ImageAPI *string `json:"image_api"`
	Rotate   *int64  `json:"rotate"`
}

type rawListing struct {
	ID                  *int64        `json:"id"`
	Title               *string       `json:"title"`
	CreatedAt           *string       `json:"created_at"`
	Price               *int64        `json:"price"`
	Currency            *string       `json:"currency"`
	ShipCost            *int64        `json:"ship_cost"`
	ShipTo              *string       `json:"ship_to"`
	Fee                 *float64      `json:"fee"`
	Designer            *rawDesigner  `json:"designer"`
	Description         *string       `json:"description"`
	Size                *string       `json:"size"`
	Category            *string       `json:"category"`
	Followed            *bool         `json:"followed"`
	BuyNow              *bool         `json:"buy_now"`
	MakeOffer           *bool         `json:"make_offer"`
	AcceptBindingOffers *bool         `json:"accept_binding_offers"`
	Sold                *bool         `json:"sold"`
	SoldPrice           *int64        `json:"sold_price"`
	SoldAt              *string       `json:"sold_at"`
	Dropped             *bool         `json:"dropped"`
	PriceDrops          []json.Number `json:"price_drops"`
	PriceUpdatedAt      *string       `json:"price_updated_at"`
	Strata              *string       `json:"strata"`
	FollowerCount       *int64        `json:"follower_count"`
	Photos              []rawPhoto    `json:"photos"`
	BuyerID             *int64        `json:"buyer_id"`
	Seller              *rawSeller    `json:"seller"`
}

// Listing normalizes one listing response envelope into a record ready for
// upsert. It returns ErrNoData for error or empty envelopes and a *FieldError
// when a required nested field is absent or a value cannot be decoded.
func Listing(raw []byte) (domain.ListingRecord, error) {
	data, err := unwrap(raw)
	if err != nil {
		return domain.ListingRecord{}, err
	}

	var in rawListing
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.ListingRecord{}, &FieldError{Field: "data", Err: err}
	}
	if in.ID == nil {
		return domain.ListingRecord{}, missing("id")
	}
	if in.Designer == nil {
		return domain.ListingRecord{}, missing("designer")
	}
	if in.Seller == nil {
		return domain.ListingRecord{}, missing("seller")
	}
	if in.Seller.ID == nil {
		return domain.ListingRecord{}, missing("seller.id")
	}
	if in.Photos == nil {
		return domain.ListingRecord{}, missing("photos")
	}

	l := domain.Listing{
		ID:                  *in.ID,
		Title:               in.Title,
		Price:               in.Price,
		Currency:            in.Currency,
		ShipCost:            in.ShipCost,
		ShipTo:              in.ShipTo,
		Fee:                 in.Fee,
		DesignerName:        in.Designer.Name,
		DesignerID:          in.Designer.ID,
		Description:         in.Description,
		Size:                in.Size,
		Category:            in.Category,
		Followed:            in.Followed,
		BuyNow:              in.BuyNow,
		MakeOffer:           in.MakeOffer,
		AcceptBindingOffers: in.AcceptBindingOffers,
		Sold:                in.Sold,
		SoldPrice:           in.SoldPrice,
		Dropped:             in.Dropped,
		PriceDrops:          JoinPriceDrops(in.PriceDrops),
		Strata:              in.Strata,
		FollowerCount:       in.FollowerCount,
		SellerID:            *in.Seller.ID,
	}
	// a zero buyer id means nobody has bought the item
	if in.BuyerID != nil && *in.BuyerID != 0 {
		l.BuyerID = in.BuyerID
	}

	if l.CreatedAt, err = parseTime("created_at", in.CreatedAt); err != nil {
		return domain.ListingRecord{}, err
	}
	if l.SoldAt, err = parseTime("sold_at", in.SoldAt); err != nil {
		return domain.ListingRecord{}, err
	}
	if l.PriceUpdatedAt, err = parseTime("price_updated_at", in.PriceUpdatedAt); err != nil {
		return domain.ListingRecord{}, err
	}

	photos := make([]domain.Photo, 0, len(in.Photos))
	for i, p := range in.Photos {
		if p.ID == nil {
			return domain.ListingRecord{}, missing(fmt.Sprintf("photos[%d].id", i))
		}
		photos = append(photos, domain.Photo{
			ID:        *p.ID,
			ListingID: l.ID,
			URL:       p.URL,
			Width:     p.Width,
			Height:    p.Height,
			ImageAPI:  p.ImageAPI,
			Rotate:    p.Rotate,
		})
	}
	l.NumPhotos = int64(len(photos))

	return domain.ListingRecord{Listing: l, Photos: photos}, nil
}
