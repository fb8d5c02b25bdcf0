// Package commerce is the client for the connected store platform's API:
// orders, custom fields, coupons, webhooks and the OAuth token exchange.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/storelink/affbridge/internal/config"
	"github.com/storelink/affbridge/internal/models"
	"github.com/storelink/affbridge/internal/store"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

type Client struct {
	httpc  HTTPClient
	tokens store.TokenStore
	cfg    config.Config
	log    *slog.Logger
}

func NewClient(httpc HTTPClient, tokens store.TokenStore, cfg config.Config, log *slog.Logger) *Client {
	return &Client{httpc: httpc, tokens: tokens, cfg: cfg, log: log}
}

func (c *Client) apiBase(storeID string) string {
	return fmt.Sprintf("%s/%s/%s", c.cfg.CommerceAPIBase, c.cfg.CommerceAPIVersion, storeID)
}

func (c *Client) doJSON(ctx context.Context, method, url, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authentication", "bearer "+token)
	}
	req.Header.Set("User-Agent", c.cfg.CommerceUserAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("commerce api: non-2xx %d body=%s", e.Status, e.Body)
}

func (c *Client) token(ctx context.Context, storeID string) (string, error) {
	tok, ok, err := c.tokens.Get(ctx, storeID)
	if err != nil {
		return "", fmt.Errorf("token lookup: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("no token for store %s", storeID)
	}
	return tok, nil
}

// ExchangeCode trades an OAuth install code for a store token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (storeID, token string, err error) {
	in := map[string]string{
		"client_id":     c.cfg.CommerceClientID,
		"client_secret": c.cfg.CommerceClientSecret,
		"grant_type":    "authorization_code",
		"code":          code,
	}
	var out struct {
		AccessToken string `json:"access_token"`
		UserID      int64  `json:"user_id"`
		Scope       string `json:"scope"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.cfg.CommerceTokenURL, "", in, &out); err != nil {
		return "", "", fmt.Errorf("token exchange: %w", err)
	}
	c.log.Info("oauth token exchanged", slog.Int64("store", out.UserID), slog.String("scopes", out.Scope))
	return strconv.FormatInt(out.UserID, 10), out.AccessToken, nil
}

func (c *Client) GetStore(ctx context.Context, storeID string) (map[string]any, error) {
	tok, err := c.token(ctx, storeID)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodGet, c.apiBase(storeID)+"/store", tok, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder fetches the authoritative order record; webhook payloads only
// carry the id.
func (c *Client) GetOrder(ctx context.Context, storeID string, orderID int64) (models.Order, error) {
	var order models.Order
	tok, err := c.token(ctx, storeID)
	if err != nil {
		return order, err
	}
	url := fmt.Sprintf("%s/orders/%d", c.apiBase(storeID), orderID)
	if err := c.doJSON(ctx, http.MethodGet, url, tok, nil, &order); err != nil {
		return order, fmt.Errorf("get order %d: %w", orderID, err)
	}
	return order, nil
}

func (c *Client) ListCustomFields(ctx context.Context, storeID string) ([]models.CustomField, error) {
	tok, err := c.token(ctx, storeID)
	if err != nil {
		return nil, err
	}
	var out []models.CustomField
	if err := c.doJSON(ctx, http.MethodGet, c.apiBase(storeID)+"/orders/custom-fields", tok, nil, &out); err != nil {
		return nil, fmt.Errorf("list custom fields: %w", err)
	}
	return out, nil
}

func (c *Client) CreateCustomField(ctx context.Context, storeID, name, valueType string) (models.CustomField, error) {
	var created models.CustomField
	tok, err := c.token(ctx, storeID)
	if err != nil {
		return created, err
	}
	in := models.CustomField{Name: name, ValueType: valueType, ReadOnly: false, Values: []string{}}
	if err := c.doJSON(ctx, http.MethodPost, c.apiBase(storeID)+"/orders/custom-fields", tok, in, &created); err != nil {
		return created, fmt.Errorf("create custom field %q: %w", name, err)
	}
	return created, nil
}

// EnsureCustomFields queries the store's custom-field definitions and creates
// any of the required ones that are missing. Safe to call repeatedly: an
// existing definition is reused, never duplicated.
func (c *Client) EnsureCustomFields(ctx context.Context, storeID string, required []string) (map[string]int64, error) {
	existing, err := c.ListCustomFields(ctx, storeID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int64, len(existing))
	for _, cf := range existing {
		byName[cf.Name] = cf.ID
	}
	ids := make(map[string]int64, len(required))
	for _, name := range required {
		if id, ok := byName[name]; ok {
			ids[name] = id
			continue
		}
		created, err := c.CreateCustomField(ctx, storeID, name, "text")
		if err != nil {
			return nil, err
		}
		ids[name] = created.ID
	}
	return ids, nil
}

func (c *Client) SetOrderCustomFieldValues(ctx context.Context, storeID string, orderID int64, values []models.CustomFieldValue) error {
	tok, err := c.token(ctx, storeID)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/orders/%d/custom-fields/values", c.apiBase(storeID), orderID)
	if err := c.doJSON(ctx, http.MethodPut, url, tok, values, nil); err != nil {
		return fmt.Errorf("set custom field values: %w", err)
	}
	return nil
}

func (c *Client) CreateCoupon(ctx context.Context, storeID string, spec models.CouponSpec) error {
	tok, err := c.token(ctx, storeID)
	if err != nil {
		return err
	}
	if err := c.doJSON(ctx, http.MethodPost, c.apiBase(storeID)+"/coupons", tok, spec, nil); err != nil {
		return fmt.Errorf("create coupon %q: %w", spec.Code, err)
	}
	return nil
}

// RegisterWebhook subscribes url to event. The platform answers 422 when the
// subscription already exists; that counts as success.
func (c *Client) RegisterWebhook(ctx context.Context, storeID, event, url string) error {
	tok, err := c.token(ctx, storeID)
	if err != nil {
		return err
	}
	in := map[string]string{"event": event, "url": url}
	err = c.doJSON(ctx, http.MethodPost, c.apiBase(storeID)+"/webhooks", tok, in, nil)
	var apiErr *APIError
	if err != nil && errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
		c.log.Debug("webhook already registered", slog.String("event", event))
		return nil
	}
	if err != nil {
		return fmt.Errorf("register webhook %s: %w", event, err)
	}
	return nil
}

func (c *Client) AssociateScript(ctx context.Context, storeID string, scriptID int64) error {
	tok, err := c.token(ctx, storeID)
	if err != nil {
		return err
	}
	in := map[string]any{"script_id": scriptID, "query_params": "{}"}
	if err := c.doJSON(ctx, http.MethodPost, c.apiBase(storeID)+"/scripts", tok, in, nil); err != nil {
		return fmt.Errorf("associate script %d: %w", scriptID, err)
	}
	return nil
}

func (c *Client) ListProducts(ctx context.Context, storeID string, perPage int) ([]map[string]any, error) {
	tok, err := c.token(ctx, storeID)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/products?per_page=%d", c.apiBase(storeID), perPage)
	var out []map[string]any
	if err := c.doJSON(ctx, http.MethodGet, url, tok, nil, &out); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}
