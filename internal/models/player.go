package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
)

const (
	// MaxNameLength is the longest name a player may carry.
	MaxNameLength = 32
	// DefaultCoins is the coin balance a new player starts with.
	DefaultCoins int64 = 100
	// DefaultGoods is the goods balance a new player starts with.
	DefaultGoods int64 = 1
)

var (
	ErrNameRequired    = errors.New("This field is required.")
	ErrNameTooLong     = fmt.Errorf("Ensure this value has at most %d characters.", MaxNameLength)
	ErrNegativeBalance = errors.New("Ensure this value is greater than or equal to 0.")
)

// ValidationError ties a validation failure to the field that caused it.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Player is a record holding a coin and goods balance.
// Balances are only changed by the trade engine through delta updates.
type Player struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:32;not null" json:"name"`
	Coins     int64     `gorm:"not null" json:"coins"`
	Goods     int64     `gorm:"not null" json:"goods"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the table name stable regardless of gorm naming strategy.
func (Player) TableName() string {
	return "players"
}

// NewPlayer returns a player with the default balances.
func NewPlayer(name string) Player {
	return Player{Name: name, Coins: DefaultCoins, Goods: DefaultGoods}
}

// Validate checks the fields a user can edit. Balances only ever move
// through trades, which keep them non-negative, so a negative one is invalid.
func (p *Player) Validate() error {
	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		return &ValidationError{Field: "name", Err: ErrNameRequired}
	case utf8.RuneCountInString(name) > MaxNameLength:
		return &ValidationError{Field: "name", Err: ErrNameTooLong}
	case p.Coins < 0:
		return &ValidationError{Field: "coins", Err: ErrNegativeBalance}
	case p.Goods < 0:
		return &ValidationError{Field: "goods", Err: ErrNegativeBalance}
	}
	return nil
}

// BeforeSave runs Validate on every create and full save.
func (p *Player) BeforeSave(tx *gorm.DB) error {
	return p.Validate()
}

func (p Player) String() string {
	return fmt.Sprintf("%s(id: %d, coins: %d, goods: %d)", p.Name, p.ID, p.Coins, p.Goods)
}

// AsValidationError returns the ValidationError carried by err, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
