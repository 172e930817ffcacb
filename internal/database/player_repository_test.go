package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"player-trade/internal/config"
	"player-trade/internal/models"
	"player-trade/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RepositorySuite struct {
	suite.Suite
	repo *PlayerRepository
	ctx  context.Context
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	cfg := config.Database{
		Driver:      DriverSQLite,
		DSN:         filepath.Join(s.T().TempDir(), "repo.db"),
		LockTimeout: time.Second,
	}
	db, err := NewDatabase(cfg)
	s.Require().NoError(err)
	s.T().Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	s.repo = NewPlayerRepository(db, cfg.LockTimeout)
	s.ctx = context.Background()
}

func (s *RepositorySuite) create(name string, coins, goods int64) models.Player {
	p := models.Player{Name: name, Coins: coins, Goods: goods}
	s.Require().NoError(s.repo.Create(s.ctx, &p))
	return p
}

func (s *RepositorySuite) TestCreateAndGet() {
	p := s.create("Alice", 0, 3)
	s.NotZero(p.ID)
	s.False(p.CreatedAt.IsZero())

	got, err := s.repo.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Alice", got.Name)
	s.Equal(int64(0), got.Coins, "zero balances are stored as given")
	s.Equal(int64(3), got.Goods)
}

func (s *RepositorySuite) TestCreateRejectsInvalidName() {
	err := s.repo.Create(s.ctx, &models.Player{Name: "  "})
	s.ErrorIs(err, models.ErrNameRequired)

	err = s.repo.Create(s.ctx, &models.Player{Name: strings.Repeat("x", models.MaxNameLength+1)})
	s.ErrorIs(err, models.ErrNameTooLong)

	n, err := s.repo.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *RepositorySuite) TestCreateRejectsNegativeBalances() {
	err := s.repo.Create(s.ctx, &models.Player{Name: "Debtor", Coins: -1})
	s.ErrorIs(err, models.ErrNegativeBalance)
	ve, ok := models.AsValidationError(err)
	s.Require().True(ok)
	s.Equal("coins", ve.Field)

	_, err = s.repo.BulkCreate(s.ctx, []models.Player{{Name: "Ok"}, {Name: "Debtor", Goods: -1}})
	s.ErrorIs(err, models.ErrNegativeBalance)

	p := s.create("Heidi", 10, 1)
	p.Goods = -3
	s.ErrorIs(s.repo.Update(s.ctx, &p), models.ErrNegativeBalance)

	got, err := s.repo.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), got.Goods)
}

func (s *RepositorySuite) TestGetNotFound() {
	_, err := s.repo.Get(s.ctx, 404)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *RepositorySuite) TestBulkCreateAndList() {
	batch := make([]models.Player, 10)
	for i := range batch {
		batch[i] = models.NewPlayer(fmt.Sprintf("Player %d", i))
	}
	created, err := s.repo.BulkCreate(s.ctx, batch)
	s.Require().NoError(err)
	s.Len(created, 10)
	for _, p := range created {
		s.NotZero(p.ID)
	}

	all, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 10)
	s.Equal("Player 0", all[0].Name)
	s.Equal(models.DefaultCoins, all[0].Coins)
	s.Equal(models.DefaultGoods, all[0].Goods)
}

func (s *RepositorySuite) TestUpdate() {
	p := s.create("Bob", 100, 1)

	p.Name, p.Coins, p.Goods = "Robert", 7, 8
	s.Require().NoError(s.repo.Update(s.ctx, &p))

	got, err := s.repo.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Robert", got.Name)
	s.Equal(int64(7), got.Coins)
	s.Equal(int64(8), got.Goods)

	missing := models.Player{ID: p.ID + 1, Name: "Ghost"}
	s.ErrorIs(s.repo.Update(s.ctx, &missing), repository.ErrNotFound)

	p.Name = ""
	s.ErrorIs(s.repo.Update(s.ctx, &p), models.ErrNameRequired)
}

func (s *RepositorySuite) TestDelete() {
	p := s.create("Carol", 100, 1)

	s.ErrorIs(s.repo.Delete(s.ctx, p.ID+1), repository.ErrNotFound)
	s.Require().NoError(s.repo.Delete(s.ctx, p.ID))
	_, err := s.repo.Get(s.ctx, p.ID)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *RepositorySuite) TestDeleteAll() {
	s.create("A", 1, 1)
	s.create("B", 1, 1)

	n, err := s.repo.DeleteAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	count, err := s.repo.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *RepositorySuite) TestInTx_CommitAppliesDeltas() {
	p := s.create("Dave", 100, 1)

	err := s.repo.InTx(s.ctx, func(tx repository.PlayerTx) error {
		locked, err := tx.GetForUpdate(s.ctx, p.ID)
		if err != nil {
			return err
		}
		s.Equal(int64(100), locked.Coins)
		if err := tx.AdjustBalances(s.ctx, p.ID, -30, 2); err != nil {
			return err
		}
		return tx.RecordTrade(s.ctx, &models.Trade{BuyerID: p.ID, SellerID: p.ID + 1, Goods: 2, Coins: 30})
	})
	s.Require().NoError(err)

	got, err := s.repo.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(70), got.Coins)
	s.Equal(int64(3), got.Goods)
	s.False(got.UpdatedAt.Before(p.UpdatedAt))

	trades, err := s.repo.ListTrades(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(trades, 1)
}

// A delta update must build on the stored value, not on a value read earlier.
func (s *RepositorySuite) TestInTx_DeltaDoesNotLoseConcurrentUpdate() {
	p := s.create("Erin", 100, 1)
	stale := p

	// Another writer changes the row after our snapshot was taken.
	p.Coins = 500
	s.Require().NoError(s.repo.Update(s.ctx, &p))

	err := s.repo.InTx(s.ctx, func(tx repository.PlayerTx) error {
		return tx.AdjustBalances(s.ctx, stale.ID, -stale.Coins, 0)
	})
	s.Require().NoError(err)

	got, err := s.repo.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(400), got.Coins)
}

func (s *RepositorySuite) TestInTx_RollbackOnError() {
	p := s.create("Frank", 100, 1)
	boom := errors.New("boom")

	err := s.repo.InTx(s.ctx, func(tx repository.PlayerTx) error {
		if err := tx.AdjustBalances(s.ctx, p.ID, -100, 0); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	got, err := s.repo.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(100), got.Coins)
}

func (s *RepositorySuite) TestInTx_RollbackOnPanic() {
	p := s.create("Grace", 100, 1)

	s.Panics(func() {
		_ = s.repo.InTx(s.ctx, func(tx repository.PlayerTx) error {
			_ = tx.AdjustBalances(s.ctx, p.ID, -100, 0)
			panic("unexpected")
		})
	})

	got, err := s.repo.Get(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(100), got.Coins)
}

func (s *RepositorySuite) TestInTx_MissingRows() {
	err := s.repo.InTx(s.ctx, func(tx repository.PlayerTx) error {
		_, err := tx.GetForUpdate(s.ctx, 99)
		return err
	})
	s.ErrorIs(err, repository.ErrNotFound)

	err = s.repo.InTx(s.ctx, func(tx repository.PlayerTx) error {
		return tx.AdjustBalances(s.ctx, 99, 1, 1)
	})
	s.ErrorIs(err, repository.ErrNotFound)
}

func TestSQLiteDSN(t *testing.T) {
	dsn := sqliteDSN(config.Database{DSN: "players.db", LockTimeout: 2 * time.Second})
	assert.Equal(t, "players.db?_txlock=immediate&_foreign_keys=on&_busy_timeout=2000&_journal_mode=WAL", dsn)

	dsn = sqliteDSN(config.Database{DSN: "file::memory:?cache=shared"})
	assert.Equal(t, "file::memory:?cache=shared&_txlock=immediate&_foreign_keys=on", dsn)
}

func TestNewDatabase_UnknownDriver(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestIsConflict(t *testing.T) {
	assert.True(t, isConflict(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: pgLockNotAvailable})))
	assert.True(t, isConflict(&pgconn.PgError{Code: pgDeadlockDetected}))
	assert.False(t, isConflict(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isConflict(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.False(t, isConflict(errors.New("plain")))
}
