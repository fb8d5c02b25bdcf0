package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Platform string

const (
	PlatformCommerce  Platform = "commerce"
	PlatformAffiliate Platform = "affiliate"
)

// AttributionRecord is the last set of marketing tags observed for an email.
// Last write wins.
type AttributionRecord struct {
	Email      string            `json:"email"`
	Tags       map[string]string `json:"tags"`
	CapturedAt time.Time         `json:"captured_at"`
}

// WebhookEvent is the decoded, classified form of an inbound delivery.
// Transient, never persisted.
type WebhookEvent struct {
	Platform  Platform
	Kind      string
	StoreID   string
	SubjectID int64
	Raw       []byte
}

// Order is the authoritative order record fetched from the commerce
// platform. Read-only here; the webhook payload itself may be minimal.
type Order struct {
	ID       int64           `json:"id"`
	Coupon   string          `json:"coupon"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
	Customer struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// Affiliate as delivered by the affiliate platform's webhooks. The id shows
// up both as a number and as a string in the wild, hence json.Number.
type Affiliate struct {
	ID    json.Number `json:"id"`
	Name  string      `json:"name"`
	Code  string      `json:"code"`
	Email string      `json:"email"`
}

// CouponSpec is the coupon-creation payload for the commerce platform.
// Value is a fixed-point string ("10.00") on the wire.
type CouponSpec struct {
	Code                       string `json:"code"`
	Type                       string `json:"type"`
	Value                      string `json:"value"`
	MaxUses                    int    `json:"max_uses"`
	CombinesWithOtherDiscounts bool   `json:"combines_with_other_discounts"`
}

// CustomField is an order extension attribute definition.
type CustomField struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	ValueType string   `json:"value_type"`
	ReadOnly  bool     `json:"read_only"`
	Values    []string `json:"values"`
}

// CustomFieldValue is one entry of a bulk custom-field-values write.
type CustomFieldValue struct {
	CustomFieldID int64  `json:"custom_field_id"`
	Value         string `json:"value"`
}

// OrderPush is the record forwarded to the affiliate platform for
// attribution. Coupon/email stay null when the order has none so the
// affiliate side can run its own matching.
type OrderPush struct {
	OrderID  int64           `json:"order_id"`
	Coupon   *string         `json:"coupon"`
	Email    *string         `json:"email"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
	StoreID  string          `json:"store_id"`
}
