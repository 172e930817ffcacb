package trade

import (
	"context"
	"errors"
	"math"
	"time"

	"player-trade/internal/models"
	"player-trade/internal/repository"

	"go.uber.org/zap"
)

// Outcome is the caller-visible result class of a submitted trade.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Result is what Submit hands back to a caller.
type Result struct {
	Outcome Outcome `json:"outcome"`
	State   State   `json:"-"`
	Reason  Reason  `json:"reason,omitempty"`
	// Message is safe to show to an end user.
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	// Err is the internal cause; it is logged and never shown to users.
	Err error `json:"-"`
}

// Recorder receives one observation per submitted trade.
type Recorder interface {
	ObserveTrade(outcome, reason string, elapsed time.Duration)
}

// Engine validates trades and applies them as atomic balance transfers.
type Engine struct {
	store    repository.TradeStore
	logger   *zap.Logger
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder reports every Submit outcome to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// NewEngine creates a trade engine on top of store.
func NewEngine(store repository.TradeStore, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		logger: logger.Named("trade"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate is the advisory pre-check against snapshots that may be stale.
// It fails fast with the first applicable reason; Execute decides for real.
func (e *Engine) Validate(req Request, buyer, seller models.Player) error {
	if rej := e.validate(req, buyer, seller); rej != nil {
		return rej
	}
	return nil
}

func (e *Engine) validate(req Request, buyer, seller models.Player) *RejectionError {
	if rej := checkRequest(req); rej != nil {
		return rej
	}
	if buyer.Coins < req.CoinPrice {
		return reject(ReasonInsufficientCoins, StateValidating)
	}
	if seller.Goods < req.GoodsQuantity {
		return reject(ReasonInsufficientGoods, StateValidating)
	}
	return nil
}

// Execute applies req in one transaction. Both rows are locked in ascending id
// order, then the seller's goods and the buyer's coins are checked again
// against the locked state before the four relative updates are issued.
//
// It returns nil on commit, a *RejectionError when the locked state does not
// allow the trade, or a *FailureError for anything unexpected. In both error
// cases nothing was persisted.
func (e *Engine) Execute(ctx context.Context, req Request) error {
	if rej := checkRequest(req); rej != nil {
		return rej
	}

	l := e.logger.With(zap.Uint("buyer_id", req.BuyerID), zap.Uint("seller_id", req.SellerID))
	state := StateValidating

	err := e.store.InTx(ctx, func(tx repository.PlayerTx) error {
		locked := make(map[uint]models.Player, 2)
		for _, id := range req.lockOrder() {
			state = req.lockingState(id)
			l.Debug("Acquiring row lock", zap.Uint("player_id", id), zap.Stringer("state", state))

			p, err := tx.GetForUpdate(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				return reject(ReasonUnknownPlayer, state)
			}
			if err != nil {
				return err
			}
			locked[id] = p
		}

		seller, buyer := locked[req.SellerID], locked[req.BuyerID]
		if seller.Goods < req.GoodsQuantity {
			return reject(ReasonInsufficientGoods, StateLockingSeller)
		}
		if buyer.Coins < req.CoinPrice {
			return reject(ReasonInsufficientCoins, StateLockingBuyer)
		}
		if seller.Coins > math.MaxInt64-req.CoinPrice || buyer.Goods > math.MaxInt64-req.GoodsQuantity {
			return errBalanceOverflow
		}
		// The checks above cover the balances that shrink. The ones that grow
		// can only end up negative if the stored row already was.
		if seller.Coins+req.CoinPrice < 0 || buyer.Goods+req.GoodsQuantity < 0 {
			return errNegativeBalance
		}

		state = StateApplying
		l.Debug("Applying balance transfer", zap.Stringer("state", state))
		if err := tx.AdjustBalances(ctx, seller.ID, req.CoinPrice, -req.GoodsQuantity); err != nil {
			return err
		}
		if err := tx.AdjustBalances(ctx, buyer.ID, -req.CoinPrice, req.GoodsQuantity); err != nil {
			return err
		}
		return tx.RecordTrade(ctx, &models.Trade{
			BuyerID:  buyer.ID,
			SellerID: seller.ID,
			Goods:    req.GoodsQuantity,
			Coins:    req.CoinPrice,
		})
	})
	if err == nil {
		return nil
	}

	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej
	}
	return &FailureError{State: state, Err: err, Retryable: errors.Is(err, repository.ErrConflict)}
}

// Submit runs the whole flow for one trade: stateless checks, the advisory
// check against fresh snapshots, then Execute. It never retries.
func (e *Engine) Submit(ctx context.Context, req Request) Result {
	start := time.Now()
	res := e.submit(ctx, req)
	if e.recorder != nil {
		e.recorder.ObserveTrade(string(res.Outcome), string(res.Reason), time.Since(start))
	}
	return res
}

func (e *Engine) submit(ctx context.Context, req Request) Result {
	l := e.logger.With(
		zap.Uint("buyer_id", req.BuyerID),
		zap.Uint("seller_id", req.SellerID),
		zap.Int64("goods", req.GoodsQuantity),
		zap.Int64("coins", req.CoinPrice),
	)
	l.Debug("Trade submitted", zap.Stringer("state", StatePending))

	if rej := checkRequest(req); rej != nil {
		return e.rejected(l, rej)
	}

	buyer, err := e.store.Get(ctx, req.BuyerID)
	if err != nil {
		return e.snapshotFailed(l, err)
	}
	seller, err := e.store.Get(ctx, req.SellerID)
	if err != nil {
		return e.snapshotFailed(l, err)
	}

	if rej := e.validate(req, buyer, seller); rej != nil {
		return e.rejected(l, rej)
	}

	err = e.Execute(ctx, req)
	var rej *RejectionError
	var fail *FailureError
	switch {
	case err == nil:
		l.Info("Trade committed")
		return Result{Outcome: OutcomeOK, State: StateCommitted}
	case errors.As(err, &rej):
		return e.rejected(l, rej)
	case errors.As(err, &fail):
		return e.failed(l, fail)
	default:
		return e.failed(l, &FailureError{State: StateApplying, Err: err})
	}
}

func (e *Engine) snapshotFailed(l *zap.Logger, err error) Result {
	if errors.Is(err, repository.ErrNotFound) {
		return e.rejected(l, reject(ReasonUnknownPlayer, StateValidating))
	}
	return e.failed(l, &FailureError{State: StateValidating, Err: err, Retryable: errors.Is(err, repository.ErrConflict)})
}

func (e *Engine) rejected(l *zap.Logger, rej *RejectionError) Result {
	l.Info("Trade rejected", zap.String("reason", string(rej.Reason)), zap.Stringer("state", rej.State))
	return Result{
		Outcome: OutcomeRejected,
		State:   StateRejected,
		Reason:  rej.Reason,
		Message: rej.Reason.Message(),
		Err:     rej,
	}
}

func (e *Engine) failed(l *zap.Logger, fail *FailureError) Result {
	l.Error("Trade could not be completed",
		zap.Error(fail.Err),
		zap.Stringer("state", fail.State),
		zap.Bool("retryable", fail.Retryable),
		zap.Stack("stack"),
	)
	return Result{
		Outcome:   OutcomeFailed,
		State:     StateFailed,
		Message:   FailureMessage,
		Retryable: fail.Retryable,
		Err:       fail,
	}
}

// lockingState names the step in which the row of id is locked.
func (r Request) lockingState(id uint) State {
	if id == r.SellerID {
		return StateLockingSeller
	}
	return StateLockingBuyer
}
