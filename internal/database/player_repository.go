package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"player-trade/internal/models"
	"player-trade/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlayerRepository is the gorm-backed record store for players and the trade ledger.
type PlayerRepository struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

var (
	_ repository.Players    = (*PlayerRepository)(nil)
	_ repository.TradeStore = (*PlayerRepository)(nil)
	_ repository.Trades     = (*PlayerRepository)(nil)
)

// NewPlayerRepository creates a repository on top of an open database.
// lockTimeout bounds row lock waits inside InTx on drivers that support it.
func NewPlayerRepository(db *gorm.DB, lockTimeout time.Duration) *PlayerRepository {
	return &PlayerRepository{db: db, lockTimeout: lockTimeout}
}

// Get returns the player with the given id.
func (r *PlayerRepository) Get(ctx context.Context, id uint) (models.Player, error) {
	var p models.Player
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return models.Player{}, notFound(err, id)
	}
	return p, nil
}

// List returns every player ordered by id.
func (r *PlayerRepository) List(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	if err := r.db.WithContext(ctx).Order("id asc").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

func (r *PlayerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Player{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return n, nil
}

// Create inserts a player. The model hook rejects an empty or overlong name.
func (r *PlayerRepository) Create(ctx context.Context, p *models.Player) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

// BulkCreate inserts all players in one statement batch.
func (r *PlayerRepository) BulkCreate(ctx context.Context, players []models.Player) ([]models.Player, error) {
	if len(players) == 0 {
		return players, nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&players, 100).Error; err != nil {
		return nil, fmt.Errorf("failed to bulk create players: %w", err)
	}
	return players, nil
}

// Update overwrites the editable fields of an existing player.
func (r *PlayerRepository) Update(ctx context.Context, p *models.Player) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(p).
		Select("name", "coins", "goods", "updated_at").
		Updates(p)
	if res.Error != nil {
		return fmt.Errorf("failed to update player %d: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("player %d: %w", p.ID, repository.ErrNotFound)
	}
	return nil
}

func (r *PlayerRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Player{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete player %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("player %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

// DeleteAll removes every player and returns how many rows went away.
func (r *PlayerRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.Player{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete players: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListTrades returns the most recent committed trades first.
func (r *PlayerRepository) ListTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	q := r.db.WithContext(ctx).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// InTx runs fn in a single database transaction. It commits when fn returns
// nil and rolls back on any error or panic. Lock contention is reported as
// repository.ErrConflict.
func (r *PlayerRepository) InTx(ctx context.Context, fn func(tx repository.PlayerTx) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.applyLockTimeout(tx); err != nil {
			return err
		}
		return fn(&playerTx{db: tx})
	})
	if err != nil && isConflict(err) {
		return fmt.Errorf("%w: %w", repository.ErrConflict, err)
	}
	return err
}

func (r *PlayerRepository) applyLockTimeout(tx *gorm.DB) error {
	if r.lockTimeout <= 0 || tx.Dialector.Name() != DriverPostgres {
		return nil
	}
	// SET does not take bind parameters.
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
	if err := tx.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}
	return nil
}

// playerTx implements repository.PlayerTx on an open gorm transaction.
type playerTx struct {
	db *gorm.DB
}

func (t *playerTx) GetForUpdate(ctx context.Context, id uint) (models.Player, error) {
	q := t.db.WithContext(ctx)
	// SQLite has no row locks; the transaction already holds the write lock.
	if q.Dialector.Name() != DriverSQLite {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var p models.Player
	if err := q.First(&p, id).Error; err != nil {
		return models.Player{}, notFound(err, id)
	}
	return p, nil
}

func (t *playerTx) AdjustBalances(ctx context.Context, id uint, coinsDelta, goodsDelta int64) error {
	res := t.db.WithContext(ctx).Model(&models.Player{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"coins":      gorm.Expr("coins + ?", coinsDelta),
			"goods":      gorm.Expr("goods + ?", goodsDelta),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to adjust balances of player %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("player %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (t *playerTx) RecordTrade(ctx context.Context, tr *models.Trade) error {
	if err := t.db.WithContext(ctx).Create(tr).Error; err != nil {
		return fmt.Errorf("failed to record trade: %w", err)
	}
	return nil
}

func notFound(err error, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("player %d: %w", id, repository.ErrNotFound)
	}
	return fmt.Errorf("failed to get player %d: %w", id, err)
}
