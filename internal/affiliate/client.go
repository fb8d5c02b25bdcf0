// Package affiliate is the client for the affiliate platform's admin API.
package affiliate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/storelink/affbridge/internal/models"
)

const accessTokenHeader = "X-Goaffpro-Access-Token"

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

type Client struct {
	httpc HTTPClient
	base  string
	token string
	log   *slog.Logger
}

func NewClient(httpc HTTPClient, base, token string, log *slog.Logger) *Client {
	return &Client{httpc: httpc, base: base, token: token, log: log}
}

func (c *Client) post(ctx context.Context, path string, in any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set(accessTokenHeader, c.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("affiliate api: non-2xx %d body=%s", resp.StatusCode, string(body))
	}
	return nil
}

// SendOrder pushes a paid/created order for attribution. Without a configured
// token the push is skipped, not failed.
func (c *Client) SendOrder(ctx context.Context, push models.OrderPush) error {
	if c.token == "" {
		c.log.Warn("affiliate access token missing, skipping order push", slog.Int64("order", push.OrderID))
		return nil
	}
	if err := c.post(ctx, "/admin/orders", push); err != nil {
		return fmt.Errorf("send order %d: %w", push.OrderID, err)
	}
	return nil
}

// AssignCoupon registers code against the affiliate so the platform can
// attribute orders carrying it.
func (c *Client) AssignCoupon(ctx context.Context, affiliateID json.Number, code string) error {
	if c.token == "" {
		c.log.Warn("affiliate access token missing, skipping coupon assign", slog.String("code", code))
		return nil
	}
	path := fmt.Sprintf("/admin/affiliates/%s/coupons", affiliateID.String())
	in := map[string]string{"code": code}
	if err := c.post(ctx, path, in); err != nil {
		return fmt.Errorf("assign coupon %s to affiliate %s: %w", code, affiliateID, err)
	}
	return nil
}

// Ping hits the admin ping endpoint; used by the diagnostics route only.
func (c *Client) Ping(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/admin/ping", nil)
	if err != nil {
		return err
	}
	req.Header.Set(accessTokenHeader, c.token)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("affiliate api: ping non-2xx %d", resp.StatusCode)
	}
	return nil
}
