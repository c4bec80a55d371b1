package domain

// ListingRecord is the normalized aggregate for one listing document: the row,
// its owned photos and the users it references.
type ListingRecord struct {
	Listing Listing
	Photos  []Photo
}

// UserRefs returns the ids that must exist in users before the listing row
// can be written. The seller always comes first.
func (r ListingRecord) UserRefs() []int64 {
	ids := []int64{r.Listing.SellerID}
	if r.Listing.BuyerID != nil && *r.Listing.BuyerID != r.Listing.SellerID {
		ids = append(ids, *r.Listing.BuyerID)
	}
	return ids
}

// UserRecord is the normalized aggregate for one user document. Following holds
// the listing ids named by the document; ids without a stored listing are
// dropped when the record is applied.
type UserRecord struct {
	User      User
	Following []int64
}
