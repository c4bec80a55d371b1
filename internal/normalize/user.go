package normalize

import (
	"encoding/json"

	"grailed/internal/domain"
)

type rawBuyerScore struct {
	PurchaseCount         *int64 `json:"purchase_count"`
	WouldSellToAgainCount *int64 `json:"would_sell_to_again_count"`
}

type rawSellerScore struct {
	SoldCount              *int64   `json:"sold_count"`
	WouldBuyFromAgainCount *int64   `json:"would_buy_from_again_count"`
	ItemAsDescribedAverage *float64 `json:"item_as_described_average"`
	FastShippingAverage    *float64 `json:"fast_shipping_average"`
	CommunicationAverage   *float64 `json:"communication_average"`
	SellerFeedbackCount    *int64   `json:"seller_feedback_count"`
}

type rawUser struct {
	ID                   *int64          `json:"id"`
	Username             *string         `json:"username"`
	Height               *int64          `json:"height"`
	Weight               *int64          `json:"weight"`
	Location             *string         `json:"location"`
	BuyerScore           *rawBuyerScore  `json:"buyer_score"`
	SellerScore          *rawSellerScore `json:"seller_score"`
	ListingsForSaleCount *int64          `json:"listings_for_sale_count"`
	IsBanned             *bool           `json:"is_banned"`
	IsBlocked            *bool           `json:"is_blocked"`
	IsAdmin              *bool           `json:"is_admin"`
	IsCurator            *bool           `json:"is_curator"`
	FollowedListings     []int64         `json:"followed_listings"`
}

// User normalizes one user response envelope. The purchase and sold counters
// default to zero when absent from their score objects; the score objects
// themselves are required.
func User(raw []byte) (domain.UserRecord, error) {
	data, err := unwrap(raw)
	if err != nil {
		return domain.UserRecord{}, err
	}

	var in rawUser
	if err := json.Unmarshal(data, &in); err != nil {
		return domain.UserRecord{}, &FieldError{Field: "data", Err: err}
	}
	if in.ID == nil {
		return domain.UserRecord{}, missing("id")
	}
	if in.BuyerScore == nil {
		return domain.UserRecord{}, missing("buyer_score")
	}
	if in.SellerScore == nil {
		return domain.UserRecord{}, missing("seller_score")
	}

	purchases := counter(in.BuyerScore.PurchaseCount)
	sold := counter(in.SellerScore.SoldCount)
	transactions := purchases + sold

	u := domain.User{
		ID:                     *in.ID,
		Username:               in.Username,
		Height:                 in.Height,
		Weight:                 in.Weight,
		Location:               in.Location,
		PurchaseCount:          &purchases,
		WouldSellToAgainCount:  in.BuyerScore.WouldSellToAgainCount,
		SoldCount:              &sold,
		WouldBuyFromAgainCount: in.SellerScore.WouldBuyFromAgainCount,
		ItemAsDescribedAverage: in.SellerScore.ItemAsDescribedAverage,
		FastShippingAverage:    in.SellerScore.FastShippingAverage,
		CommunicationAverage:   in.SellerScore.CommunicationAverage,
		SellerFeedbackCount:    in.SellerScore.SellerFeedbackCount,
		TransactionCount:       &transactions,
		ListingsForSaleCount:   in.ListingsForSaleCount,
		IsBanned:               in.IsBanned,
		IsBlocked:              in.IsBlocked,
		IsAdmin:                in.IsAdmin,
		IsCurator:              in.IsCurator,
	}

	return domain.UserRecord{User: u, Following: dedupe(in.FollowedListings)}, nil
}

func counter(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
