package repository

import (
	"context"
	"errors"

	"player-trade/internal/models"
)

var (
	// ErrNotFound is returned when a player id does not match a stored row.
	ErrNotFound = errors.New("player not found")
	// ErrConflict marks a unit of work that failed on lock contention
	// (lock timeout, deadlock, busy database). Nothing was persisted.
	ErrConflict = errors.New("store conflict")
)

// Players is the generic record store used by the outer surfaces.
type Players interface {
	Get(ctx context.Context, id uint) (models.Player, error)
	List(ctx context.Context) ([]models.Player, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, p *models.Player) error
	BulkCreate(ctx context.Context, players []models.Player) ([]models.Player, error)
	Update(ctx context.Context, p *models.Player) error
	Delete(ctx context.Context, id uint) error
	DeleteAll(ctx context.Context) (int64, error)
}

// PlayerTx is the view of the store available inside a unit of work.
type PlayerTx interface {
	// GetForUpdate reads a player and holds an exclusive lock on its row
	// until the enclosing transaction ends.
	GetForUpdate(ctx context.Context, id uint) (models.Player, error)
	// AdjustBalances applies relative changes, never overwriting with a cached value.
	AdjustBalances(ctx context.Context, id uint, coinsDelta, goodsDelta int64) error
	RecordTrade(ctx context.Context, t *models.Trade) error
}

// TradeStore is what the trade engine needs from the record store.
type TradeStore interface {
	Get(ctx context.Context, id uint) (models.Player, error)
	// InTx commits when fn returns nil and rolls back on error or panic.
	InTx(ctx context.Context, fn func(tx PlayerTx) error) error
}

// Trades lists the ledger of committed trades.
type Trades interface {
	ListTrades(ctx context.Context, limit int) ([]models.Trade, error)
}
