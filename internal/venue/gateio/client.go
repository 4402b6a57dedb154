// Package gateio implements the venue.Exchange capability against the
// Gate.io v4 spot REST API.
package gateio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/sorbot/internal/crypto"
	"github.com/alanyoungcy/sorbot/internal/domain"
	"github.com/alanyoungcy/sorbot/internal/venue"
)

const apiPrefix = "/api/v4"

// Client is the REST client for the Gate.io spot API.
type Client struct {
	baseURL    string
	auth       *crypto.HMACAuth
	httpClient *http.Client
}

// NewClient creates a Gate.io client. baseURL is the API host, e.g.
// "https://api.gateio.ws"; auth may be nil for public-data use.
func NewClient(baseURL string, auth *crypto.HMACAuth) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Name returns the venue identifier.
func (c *Client) Name() string { return "gateio" }

// pair converts the adapter's slash symbol to Gate's underscore form.
func pair(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "_")
}

// FetchTicker returns the top of book. Gate's ticker endpoint carries no
// sizes, so this reads the first order-book level instead.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (venue.Ticker, error) {
	book, err := c.FetchOrderBook(ctx, symbol, 1)
	if err != nil {
		return venue.Ticker{}, err
	}
	bid, ask := book.BestBid(), book.BestAsk()
	return venue.Ticker{
		Bid:    bid.Price,
		BidQty: bid.Quantity,
		Ask:    ask.Price,
		AskQty: ask.Quantity,
	}, nil
}

// FetchOrderBook returns the spot order book, best levels first.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string, limit int) (domain.OrderBook, error) {
	params := url.Values{}
	params.Set("currency_pair", pair(symbol))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/spot/order_book", params, nil, false)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("gateio: order book %s: %w", symbol, err)
	}

	var resp struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("gateio: decode order book: %w", err)
	}

	return domain.OrderBook{
		Venue:     c.Name(),
		Symbol:    symbol,
		Bids:      parseLevels(resp.Bids),
		Asks:      parseLevels(resp.Asks),
		Timestamp: time.Now().UTC(),
	}, nil
}

type gateOrder struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       string `json:"amount"`
	Left         string `json:"left"`
	AvgDealPrice string `json:"avg_deal_price"`
	FilledTotal  string `json:"filled_total"`
}

// CreateLimitOrder submits a spot limit order.
func (c *Client) CreateLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, amount, price float64, tif domain.TimeInForce) (venue.Order, error) {
	req := map[string]string{
		"currency_pair": pair(symbol),
		"type":          "limit",
		"side":          string(side),
		"amount":        formatFloat(amount),
		"price":         formatFloat(price),
	}
	if tif != domain.TimeInForceNone {
		req["time_in_force"] = strings.ToLower(string(tif))
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/spot/orders", nil, req, true)
	if err != nil {
		return venue.Order{}, fmt.Errorf("gateio: create order: %w", err)
	}

	var ord gateOrder
	if err := json.Unmarshal(body, &ord); err != nil {
		return venue.Order{}, fmt.Errorf("gateio: decode order: %w", err)
	}
	return c.toOrder(ord), nil
}

// FetchOrder refreshes one order's status.
func (c *Client) FetchOrder(ctx context.Context, id, symbol string) (venue.Order, error) {
	params := url.Values{}
	params.Set("currency_pair", pair(symbol))

	body, err := c.doRequest(ctx, http.MethodGet, "/spot/orders/"+url.PathEscape(id), params, nil, true)
	if err != nil {
		return venue.Order{}, fmt.Errorf("gateio: fetch order %s: %w", id, err)
	}

	var ord gateOrder
	if err := json.Unmarshal(body, &ord); err != nil {
		return venue.Order{}, fmt.Errorf("gateio: decode order: %w", err)
	}
	return c.toOrder(ord), nil
}

// CancelOrder cancels one open order.
func (c *Client) CancelOrder(ctx context.Context, id, symbol string) error {
	params := url.Values{}
	params.Set("currency_pair", pair(symbol))

	_, err := c.doRequest(ctx, http.MethodDelete, "/spot/orders/"+url.PathEscape(id), params, nil, true)
	if err != nil {
		return fmt.Errorf("gateio: cancel order %s: %w", id, err)
	}
	return nil
}

// LoadMarkets fetches the tradable currency-pair catalogue, keyed by the
// adapter's slash symbol.
func (c *Client) LoadMarkets(ctx context.Context) (map[string]venue.Market, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/spot/currency_pairs", nil, nil, false)
	if err != nil {
		return nil, fmt.Errorf("gateio: load markets: %w", err)
	}

	var pairs []struct {
		ID            string `json:"id"`
		Base          string `json:"base"`
		Quote         string `json:"quote"`
		Fee           string `json:"fee"` // percent
		MinBaseAmount string `json:"min_base_amount"`
		MaxBaseAmount string `json:"max_base_amount"`
		TradeStatus   string `json:"trade_status"`
	}
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, fmt.Errorf("gateio: decode markets: %w", err)
	}

	markets := make(map[string]venue.Market, len(pairs))
	for _, p := range pairs {
		sym := p.Base + "/" + p.Quote
		markets[sym] = venue.Market{
			Symbol:    sym,
			Active:    p.TradeStatus == "tradable",
			MinAmount: parseFloat(p.MinBaseAmount),
			MaxAmount: parseFloat(p.MaxBaseAmount),
			TakerFee:  parseFloat(p.Fee) / 100,
		}
	}
	return markets, nil
}

func (c *Client) toOrder(ord gateOrder) venue.Order {
	amount := parseFloat(ord.Amount)
	left := parseFloat(ord.Left)
	filled := amount - left
	if filled < 0 {
		filled = 0
	}
	o := venue.Order{
		ID:      ord.ID,
		Status:  mapStatus(ord.Status, filled),
		Filled:  filled,
		Average: parseFloat(ord.AvgDealPrice),
		Cost:    parseFloat(ord.FilledTotal),
	}
	return o
}

func mapStatus(s string, filled float64) domain.OrderStatus {
	switch s {
	case "closed":
		return domain.OrderStatusFilled
	case "cancelled":
		return domain.OrderStatusCancelled
	case "open":
		if filled > 0 {
			return domain.OrderStatusPartiallyFilled
		}
		return domain.OrderStatusOpen
	default:
		return domain.OrderStatus(s)
	}
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doRequest builds, optionally signs, sends and reads one API request.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, reqBody any, signed bool) ([]byte, error) {
	var bodyBytes []byte
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	query := params.Encode()
	fullPath := apiPrefix + path
	fullURL := c.baseURL + fullPath
	if query != "" {
		fullURL += "?" + query
	}

	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = bytes.NewReader(bodyBytes)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if signed {
		if !c.auth.Configured() {
			return nil, fmt.Errorf("gateio: API credentials not configured")
		}
		for k, v := range c.auth.GateHeaders(method, fullPath, query, string(bodyBytes)) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Label   string `json:"label"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &apiErr)
		return nil, &venue.APIError{
			Venue:   c.Name(),
			Status:  resp.StatusCode,
			Code:    apiErr.Label,
			Message: apiErr.Message,
		}
	}
	return respBody, nil
}

func parseLevels(raw [][2]string) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, r := range raw {
		levels = append(levels, domain.PriceLevel{
			Price:    parseFloat(r[0]),
			Quantity: parseFloat(r[1]),
		})
	}
	return levels
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func formatFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 8, 64), "0"), ".")
}
