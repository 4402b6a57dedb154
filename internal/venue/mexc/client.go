// Package mexc implements the venue.Exchange capability against the
// MEXC spot v3 REST API (Binance-style endpoints and signing).
package mexc

import (
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

const recvWindow = "5000"

// Client is the REST client for the MEXC spot API.
type Client struct {
	baseURL    string
	auth       *crypto.HMACAuth
	httpClient *http.Client
}

// NewClient creates a MEXC client. baseURL is the API host, e.g.
// "https://api.mexc.com"; auth may be nil for public-data use.
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
func (c *Client) Name() string { return "mexc" }

// FetchTicker returns the best bid/ask from the bookTicker endpoint.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (venue.Ticker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.doRequest(ctx, http.MethodGet, "/api/v3/ticker/bookTicker", params, false)
	if err != nil {
		return venue.Ticker{}, fmt.Errorf("mexc: book ticker %s: %w", symbol, err)
	}

	var resp struct {
		BidPrice string `json:"bidPrice"`
		BidQty   string `json:"bidQty"`
		AskPrice string `json:"askPrice"`
		AskQty   string `json:"askQty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return venue.Ticker{}, fmt.Errorf("mexc: decode book ticker: %w", err)
	}
	return venue.Ticker{
		Bid:    parseFloat(resp.BidPrice),
		BidQty: parseFloat(resp.BidQty),
		Ask:    parseFloat(resp.AskPrice),
		AskQty: parseFloat(resp.AskQty),
	}, nil
}

// FetchOrderBook returns the spot depth, best levels first.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string, limit int) (domain.OrderBook, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/api/v3/depth", params, false)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("mexc: depth %s: %w", symbol, err)
	}

	var resp struct {
		Bids [][2]string `json:"bids"`
		Asks [][2]string `json:"asks"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("mexc: decode depth: %w", err)
	}
	return domain.OrderBook{
		Venue:     c.Name(),
		Symbol:    symbol,
		Bids:      parseLevels(resp.Bids),
		Asks:      parseLevels(resp.Asks),
		Timestamp: time.Now().UTC(),
	}, nil
}

type mexcOrder struct {
	OrderID             json.Number `json:"orderId"`
	Status              string      `json:"status"`
	ExecutedQty         string      `json:"executedQty"`
	CummulativeQuoteQty string      `json:"cummulativeQuoteQty"`
}

// CreateLimitOrder submits a spot limit order.
func (c *Client) CreateLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, amount, price float64, tif domain.TimeInForce) (venue.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", strings.ToUpper(string(side)))
	params.Set("type", "LIMIT")
	params.Set("quantity", formatFloat(amount))
	params.Set("price", formatFloat(price))
	if tif != domain.TimeInForceNone {
		params.Set("timeInForce", string(tif))
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/api/v3/order", params, true)
	if err != nil {
		return venue.Order{}, fmt.Errorf("mexc: create order: %w", err)
	}

	var ord mexcOrder
	if err := json.Unmarshal(body, &ord); err != nil {
		return venue.Order{}, fmt.Errorf("mexc: decode order: %w", err)
	}
	return toOrder(ord), nil
}

// FetchOrder refreshes one order's status.
func (c *Client) FetchOrder(ctx context.Context, id, symbol string) (venue.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", id)

	body, err := c.doRequest(ctx, http.MethodGet, "/api/v3/order", params, true)
	if err != nil {
		return venue.Order{}, fmt.Errorf("mexc: fetch order %s: %w", id, err)
	}

	var ord mexcOrder
	if err := json.Unmarshal(body, &ord); err != nil {
		return venue.Order{}, fmt.Errorf("mexc: decode order: %w", err)
	}
	return toOrder(ord), nil
}

// CancelOrder cancels one open order.
func (c *Client) CancelOrder(ctx context.Context, id, symbol string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", id)

	if _, err := c.doRequest(ctx, http.MethodDelete, "/api/v3/order", params, true); err != nil {
		return fmt.Errorf("mexc: cancel order %s: %w", id, err)
	}
	return nil
}

// LoadMarkets fetches the spot symbol catalogue.
func (c *Client) LoadMarkets(ctx context.Context) (map[string]venue.Market, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/v3/exchangeInfo", nil, false)
	if err != nil {
		return nil, fmt.Errorf("mexc: exchange info: %w", err)
	}

	var resp struct {
		Symbols []struct {
			Symbol              string `json:"symbol"`
			Status              string `json:"status"`
			IsSpotTradingAllowed bool  `json:"isSpotTradingAllowed"`
			TakerCommission     string `json:"takerCommission"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("mexc: decode exchange info: %w", err)
	}

	markets := make(map[string]venue.Market, len(resp.Symbols))
	for _, s := range resp.Symbols {
		markets[s.Symbol] = venue.Market{
			Symbol:   s.Symbol,
			Active:   s.IsSpotTradingAllowed || s.Status == "1" || s.Status == "ENABLED",
			TakerFee: parseFloat(s.TakerCommission),
		}
	}
	return markets, nil
}

func toOrder(ord mexcOrder) venue.Order {
	filled := parseFloat(ord.ExecutedQty)
	cost := parseFloat(ord.CummulativeQuoteQty)
	o := venue.Order{
		ID:     ord.OrderID.String(),
		Status: mapStatus(ord.Status),
		Filled: filled,
		Cost:   cost,
	}
	if filled > 0 && cost > 0 {
		o.Average = cost / filled
	}
	return o
}

func mapStatus(s string) domain.OrderStatus {
	switch s {
	case "NEW":
		return domain.OrderStatusOpen
	case "PARTIALLY_FILLED":
		return domain.OrderStatusPartiallyFilled
	case "FILLED":
		return domain.OrderStatusFilled
	case "CANCELED", "PARTIALLY_CANCELED":
		return domain.OrderStatusCancelled
	case "EXPIRED":
		return domain.OrderStatusExpired
	case "REJECTED":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatus(strings.ToLower(s))
	}
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doRequest builds, optionally signs, sends and reads one API request.
// Signed requests carry the timestamp and HMAC signature in the query
// string per the Binance-style scheme.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if signed {
		if !c.auth.Configured() {
			return nil, fmt.Errorf("mexc: API credentials not configured")
		}
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("recvWindow", recvWindow)
		params.Set("signature", c.auth.MEXCSignature(params.Encode()))
	}

	fullURL := c.baseURL + path
	if enc := params.Encode(); enc != "" {
		fullURL += "?" + enc
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if signed {
		req.Header.Set("X-MEXC-APIKEY", c.auth.Key)
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
			Code any    `json:"code"`
			Msg  string `json:"msg"`
		}
		_ = json.Unmarshal(respBody, &apiErr)
		return nil, &venue.APIError{
			Venue:   c.Name(),
			Status:  resp.StatusCode,
			Code:    fmt.Sprint(apiErr.Code),
			Message: apiErr.Msg,
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
