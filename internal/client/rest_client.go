package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"player-trade/internal/config"
	"player-trade/internal/models"
	"player-trade/internal/trade"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RestClientInterface defines the operations tradectl needs from the server.
type RestClientInterface interface {
	Health(ctx context.Context) error
	ListPlayers(ctx context.Context) ([]models.Player, error)
	GetPlayer(ctx context.Context, id uint) (*models.Player, error)
	CreatePlayer(ctx context.Context, p CreatePlayerRequest) (*models.Player, error)
	BulkCreatePlayers(ctx context.Context) ([]models.Player, error)
	DeleteAllPlayers(ctx context.Context) (int64, error)
	SubmitTrade(ctx context.Context, req trade.Request) (*TradeResult, error)
	ListTrades(ctx context.Context, limit int) ([]models.Trade, error)
}

// RestClient is a client for the player-trade HTTP API.
// It implements the RestClientInterface.
type RestClient struct {
	client     *resty.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	maxRetries int
}

// ensure RestClient implements the interface
var _ RestClientInterface = (*RestClient)(nil)

// NewRestClient creates a new API client.
func NewRestClient(cfg *config.Client, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &RestClient{
		client:     client,
		logger:     logger,
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: maxRetries,
	}
}

// APIError is the error body returned by the server for non-2xx responses.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%d %s: %s: %s", e.Status, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// TradeResult mirrors the server's trade response.
type TradeResult struct {
	Outcome   trade.Outcome `json:"outcome"`
	Reason    trade.Reason  `json:"reason,omitempty"`
	Message   string        `json:"message,omitempty"`
	Retryable bool          `json:"retryable,omitempty"`
}

// CreatePlayerRequest leaves balances nil to take the server defaults.
type CreatePlayerRequest struct {
	Name  string `json:"name"`
	Coins *int64 `json:"coins,omitempty"`
	Goods *int64 `json:"goods,omitempty"`
}

// doRequest executes req with rate limiting. 429, 503 and any 5xx carrying
// Retry-After are retried with backoff; every other response is returned
// as is for the caller to interpret.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for i := 0; i < c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.SetContext(ctx).Execute(method, url)

		shouldRetry := false
		var retryAfter time.Duration

		if err != nil {
			shouldRetry = true
		} else {
			status := resp.StatusCode()
			header := resp.Header().Get("Retry-After")
			if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable ||
				(status >= 500 && header != "") {
				shouldRetry = true
				if seconds, err := strconv.Atoi(header); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			}
		}

		if !shouldRetry || i == c.maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			// Exponential backoff: 100ms, 200ms, 400ms
			retryAfter = time.Duration(math.Pow(2, float64(i))) * 100 * time.Millisecond
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, err)
	}
	return resp, nil
}

func apiError(resp *resty.Response) error {
	e := &APIError{Status: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), e); err != nil || e.Code == "" {
		e.Code = "http_error"
		e.Message = resp.Status()
	}
	return e
}

// Health checks that the server is up.
func (c *RestClient) Health(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", c.client.R())
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// ListPlayers fetches all players.
func (c *RestClient) ListPlayers(ctx context.Context) ([]models.Player, error) {
	var result struct {
		Players []models.Player `json:"players"`
	}
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/players", c.client.R().SetResult(&result))
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return result.Players, nil
}

func (c *RestClient) GetPlayer(ctx context.Context, id uint) (*models.Player, error) {
	var p models.Player
	resp, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/players/%d", id), c.client.R().SetResult(&p))
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &p, nil
}

// CreatePlayer creates a single player.
func (c *RestClient) CreatePlayer(ctx context.Context, p CreatePlayerRequest) (*models.Player, error) {
	var created models.Player
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(p).
		SetResult(&created)

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/players", req)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &created, nil
}

// BulkCreatePlayers asks the server to create its default batch of players.
func (c *RestClient) BulkCreatePlayers(ctx context.Context) ([]models.Player, error) {
	var result struct {
		Players []models.Player `json:"players"`
	}
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/players/bulk-create", c.client.R().SetResult(&result))
	if err != nil {
		return nil, fmt.Errorf("failed to bulk create players: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return result.Players, nil
}

// DeleteAllPlayers removes every player and returns the number deleted.
func (c *RestClient) DeleteAllPlayers(ctx context.Context) (int64, error) {
	var result struct {
		Deleted int64 `json:"deleted"`
	}
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/players/delete-all", c.client.R().SetResult(&result))
	if err != nil {
		return 0, fmt.Errorf("failed to delete players: %w", err)
	}
	if resp.IsError() {
		return 0, apiError(resp)
	}
	return result.Deleted, nil
}

// SubmitTrade submits a trade. Rejected and failed trades are returned as
// results, not errors; the error is reserved for transport problems and
// malformed requests.
func (c *RestClient) SubmitTrade(ctx context.Context, tr trade.Request) (*TradeResult, error) {
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(tr).
		SetResult(&TradeResult{}).
		SetError(&TradeResult{})

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/trades", req)
	if err != nil {
		c.logger.Error("Failed to submit trade", zap.Error(err), zap.Stringer("trade", tr))
		return nil, fmt.Errorf("failed to submit trade: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return resp.Result().(*TradeResult), nil
	case http.StatusUnprocessableEntity, http.StatusInternalServerError:
		if res, ok := resp.Error().(*TradeResult); ok && res.Outcome != "" {
			return res, nil
		}
	}

	var e APIError
	_ = json.Unmarshal(resp.Body(), &e)
	e.Status = resp.StatusCode()
	if e.Code == "" {
		e.Code, e.Message = "http_error", resp.Status()
	}
	return nil, &e
}

// ListTrades fetches the most recent trades.
func (c *RestClient) ListTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	var result struct {
		Trades []models.Trade `json:"trades"`
	}
	req := c.client.R().
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&result)

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/trades", req)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return result.Trades, nil
}
