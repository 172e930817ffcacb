package models

import "time"

// Trade is a ledger entry written in the same transaction as a committed trade.
type Trade struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BuyerID   uint      `gorm:"index;not null" json:"buyer_id"`
	SellerID  uint      `gorm:"index;not null" json:"seller_id"`
	Goods     int64     `gorm:"not null" json:"goods"`
	Coins     int64     `gorm:"not null" json:"coins"`
	CreatedAt time.Time `json:"created_at"`
}
