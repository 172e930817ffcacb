package trade

import "fmt"

// Request is a proposed trade: the buyer pays CoinPrice coins to the seller
// and receives GoodsQuantity goods in return.
type Request struct {
	BuyerID       uint  `json:"buyer_id"`
	SellerID      uint  `json:"seller_id"`
	GoodsQuantity int64 `json:"goods"`
	CoinPrice     int64 `json:"coins"`
}

func (r Request) String() string {
	return fmt.Sprintf("buyer=%d seller=%d goods=%d coins=%d", r.BuyerID, r.SellerID, r.GoodsQuantity, r.CoinPrice)
}

// lockOrder returns the two player ids in the order their rows are locked.
// Every trade locks by ascending id, whatever the roles, so two trades over
// the same pair always queue on the same row first and cannot deadlock.
func (r Request) lockOrder() [2]uint {
	if r.SellerID <= r.BuyerID {
		return [2]uint{r.SellerID, r.BuyerID}
	}
	return [2]uint{r.BuyerID, r.SellerID}
}

// checkRequest rejects requests that are wrong regardless of any balance.
func checkRequest(r Request) *RejectionError {
	switch {
	case r.BuyerID == r.SellerID:
		return reject(ReasonSameParty, StateValidating)
	case r.GoodsQuantity <= 0:
		return reject(ReasonInvalidQuantity, StateValidating)
	case r.CoinPrice <= 0:
		return reject(ReasonInvalidPrice, StateValidating)
	}
	return nil
}
