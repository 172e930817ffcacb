package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"

	"player-trade/internal/config"
	"player-trade/internal/models"
	"player-trade/internal/repository"
	"player-trade/internal/trade"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Submitter runs a trade to completion. *trade.Engine implements it.
type Submitter interface {
	Submit(ctx context.Context, req trade.Request) trade.Result
}

// Handler holds dependencies for the API endpoints.
type Handler struct {
	log      *zap.Logger
	players  repository.Players
	trades   repository.Trades
	engine   Submitter
	defaults config.Players
}

// NewHandler creates a new Handler.
func NewHandler(log *zap.Logger, players repository.Players, trades repository.Trades, engine Submitter, defaults config.Players) *Handler {
	return &Handler{log: log, players: players, trades: trades, engine: engine, defaults: defaults}
}

const (
	msgRequired    = "This field is required."
	msgWholeNumber = "Enter a whole number."
	msgNotFound    = "Not found."
)

type playerRequest struct {
	Name  string `json:"name"`
	Coins *int64 `json:"coins"`
	Goods *int64 `json:"goods"`
}

// ListPlayers returns all players.
func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.List(r.Context())
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if players == nil {
		players = []models.Player{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"players": players})
}

// CreatePlayer creates one player; omitted balances take the configured defaults.
func (h *Handler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p := models.Player{Name: req.Name, Coins: h.defaults.DefaultCoins, Goods: h.defaults.DefaultGoods}
	if req.Coins != nil {
		p.Coins = *req.Coins
	}
	if req.Goods != nil {
		p.Goods = *req.Goods
	}
	if err := p.Validate(); err != nil {
		h.storeError(w, r, err)
		return
	}

	if err := h.players.Create(r.Context(), &p); err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// BulkCreatePlayers creates the configured batch of default players.
func (h *Handler) BulkCreatePlayers(w http.ResponseWriter, r *http.Request) {
	batch := make([]models.Player, 0, h.defaults.BulkCreateCount)
	for i := 0; i < h.defaults.BulkCreateCount; i++ {
		batch = append(batch, models.Player{
			Name:  fmt.Sprintf("Player %d", i),
			Coins: h.defaults.DefaultCoins,
			Goods: h.defaults.DefaultGoods,
		})
	}

	created, err := h.players.BulkCreate(r.Context(), batch)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"players": created})
}

// DeleteAllPlayers removes every player.
func (h *Handler) DeleteAllPlayers(w http.ResponseWriter, r *http.Request) {
	n, err := h.players.DeleteAll(r.Context())
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	p, err := h.players.Get(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdatePlayer replaces name and balances; omitted balances are kept.
func (h *Handler) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req playerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.players.Get(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	p.Name = req.Name
	if req.Coins != nil {
		p.Coins = *req.Coins
	}
	if req.Goods != nil {
		p.Goods = *req.Goods
	}
	if err := p.Validate(); err != nil {
		h.storeError(w, r, err)
		return
	}

	if err := h.players.Update(r.Context(), &p); err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.players.Delete(r.Context(), id); err != nil {
		h.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTrades returns the ledger, newest first. ?limit= caps the result.
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeFieldError(w, "limit", msgWholeNumber)
			return
		}
		limit = n
	}

	trades, err := h.trades.ListTrades(r.Context(), limit)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trades": trades})
}

// TradeEligibility tells a client whether a trade form makes sense yet.
func (h *Handler) TradeEligibility(w http.ResponseWriter, r *http.Request) {
	n, err := h.players.Count(r.Context())
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"has_enough_players": n >= 2,
		"player_count":       n,
	})
}

type tradeRequest struct {
	BuyerID  *uint  `json:"buyer_id"`
	SellerID *uint  `json:"seller_id"`
	Goods    *int64 `json:"goods"`
	Coins    *int64 `json:"coins"`
}

// SubmitTrade runs a trade. Rejections are 422 with the reason message,
// unexpected failures 500 with a generic message.
func (h *Handler) SubmitTrade(w http.ResponseWriter, r *http.Request) {
	var body tradeRequest
	if !decodeBody(w, r, &body) {
		return
	}
	switch {
	case body.BuyerID == nil:
		writeFieldError(w, "buyer_id", msgRequired)
		return
	case body.SellerID == nil:
		writeFieldError(w, "seller_id", msgRequired)
		return
	case body.Goods == nil:
		writeFieldError(w, "goods", msgRequired)
		return
	case body.Coins == nil:
		writeFieldError(w, "coins", msgRequired)
		return
	}

	res := h.engine.Submit(r.Context(), trade.Request{
		BuyerID:       *body.BuyerID,
		SellerID:      *body.SellerID,
		GoodsQuantity: *body.Goods,
		CoinPrice:     *body.Coins,
	})

	switch res.Outcome {
	case trade.OutcomeOK:
		writeJSON(w, http.StatusOK, res)
	case trade.OutcomeRejected:
		writeJSON(w, http.StatusUnprocessableEntity, res)
	default:
		if res.Retryable {
			w.Header().Set("Retry-After", "1")
		}
		writeJSON(w, http.StatusInternalServerError, res)
	}
}

// storeError maps validation and repository errors to responses. Unknown errors are logged
// and hidden from the client.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := models.AsValidationError(err); ok {
		writeFieldError(w, ve.Field, ve.Err.Error())
		return
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", msgNotFound)
	default:
		h.log.Error("Store operation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFrom(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
	}
}


// parseID reads the {id} URL parameter. A malformed id is treated like an
// unknown one.
func parseID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", msgNotFound)
		return 0, false
	}
	return uint(id), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		msg := "Enter a valid value."
		switch typeErr.Type.Kind() {
		case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64:
			msg = msgWholeNumber
		}
		writeFieldError(w, typeErr.Field, msg)
		return false
	}
	writeError(w, http.StatusBadRequest, "bad_request", "Malformed request body.")
	return false
}
