// Package bridge holds the cross-system pipeline: the order-sync and
// affiliate-sync handlers and the attribution join between them.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storelink/affbridge/internal/affiliate"
	"github.com/storelink/affbridge/internal/commerce"
	"github.com/storelink/affbridge/internal/config"
	"github.com/storelink/affbridge/internal/metrics"
	"github.com/storelink/affbridge/internal/models"
	"github.com/storelink/affbridge/internal/retry"
	"github.com/storelink/affbridge/internal/store"
)

// RequiredCustomFields is the order schema the attribution join writes into.
// Ensured idempotently per tenant before any value write.
var RequiredCustomFields = []string{
	"UTM Source",
	"UTM Medium",
	"UTM Campaign",
	"UTM Content",
	"UTM Term",
	"Affiliate Coupon",
	"Affiliate ID",
}

// utmFields maps captured tag names to their custom-field names, in write
// order.
var utmFields = []struct{ tag, field string }{
	{"utm_source", "UTM Source"},
	{"utm_medium", "UTM Medium"},
	{"utm_campaign", "UTM Campaign"},
	{"utm_content", "UTM Content"},
	{"utm_term", "UTM Term"},
}

var defaultCouponPercent = decimal.NewFromInt(10)

type Service struct {
	commerce  *commerce.Client
	affiliate *affiliate.Client
	attrib    store.AttributionStore
	tokens    store.TokenStore
	tenants   TenantSelector
	queue     retry.Queue
	m         *metrics.Metrics
	cfg       config.Config
	log       *slog.Logger
}

func NewService(cc *commerce.Client, ac *affiliate.Client, attrib store.AttributionStore, tokens store.TokenStore, tenants TenantSelector, queue retry.Queue, m *metrics.Metrics, cfg config.Config, log *slog.Logger) *Service {
	return &Service{
		commerce:  cc,
		affiliate: ac,
		attrib:    attrib,
		tokens:    tokens,
		tenants:   tenants,
		queue:     queue,
		m:         m,
		cfg:       cfg,
		log:       log,
	}
}

// CaptureAttribution records the tags reported by the storefront script for
// an email. Overwrites any earlier capture for the same address.
func (s *Service) CaptureAttribution(ctx context.Context, email string, tags map[string]string) error {
	key := strings.ToLower(strings.TrimSpace(email))
	rec := models.AttributionRecord{Email: key, Tags: tags, CapturedAt: time.Now().UTC()}
	return s.attrib.Put(ctx, key, rec)
}

// HandleOrderEvent runs the order sync for a qualifying webhook. It never
// returns an error: once the delivery is authenticated the upstream platform
// gets its 200 regardless, and failed side effects go to the retry queue.
func (s *Service) HandleOrderEvent(ctx context.Context, storeID string, orderID int64) {
	order, err := s.commerce.GetOrder(ctx, storeID, orderID)
	if err != nil {
		s.m.RemoteFailures.WithLabelValues("commerce", "get_order").Inc()
		s.log.Error("order fetch failed", slog.String("store", storeID), slog.Int64("order", orderID), slog.String("err", err.Error()))
		s.queue.Enqueue("order sync", func(ctx context.Context) error {
			o, err := s.commerce.GetOrder(ctx, storeID, orderID)
			if err != nil {
				return err
			}
			return s.processOrder(ctx, storeID, o)
		})
		return
	}

	if err := s.attachAttribution(ctx, storeID, order); err != nil {
		s.m.RemoteFailures.WithLabelValues("commerce", "custom_fields").Inc()
		s.log.Error("attribution write failed", slog.String("store", storeID), slog.Int64("order", order.ID), slog.String("err", err.Error()))
		s.queue.Enqueue("order custom fields", func(ctx context.Context) error {
			return s.attachAttribution(ctx, storeID, order)
		})
	}

	if err := s.forwardOrder(ctx, storeID, order); err != nil {
		s.m.RemoteFailures.WithLabelValues("affiliate", "send_order").Inc()
		s.log.Error("order forward failed", slog.String("store", storeID), slog.Int64("order", order.ID), slog.String("err", err.Error()))
		s.queue.Enqueue("affiliate order push", func(ctx context.Context) error {
			return s.forwardOrder(ctx, storeID, order)
		})
	}
}

// processOrder is the retry-path variant: both halves of the sync, first
// error wins but both are attempted.
func (s *Service) processOrder(ctx context.Context, storeID string, order models.Order) error {
	return errors.Join(
		s.attachAttribution(ctx, storeID, order),
		s.forwardOrder(ctx, storeID, order),
	)
}

// attachAttribution joins the order with any stored capture for its customer
// email and writes the result onto the order as custom-field values. Missing
// email or missing capture skips the write and is not an error.
func (s *Service) attachAttribution(ctx context.Context, storeID string, order models.Order) error {
	email := strings.ToLower(strings.TrimSpace(order.Customer.Email))
	if email == "" {
		return nil
	}
	rec, ok, err := s.attrib.Get(ctx, email)
	if err != nil {
		return fmt.Errorf("attribution lookup: %w", err)
	}
	if !ok {
		return nil
	}

	ids, err := s.commerce.EnsureCustomFields(ctx, storeID, RequiredCustomFields)
	if err != nil {
		return err
	}

	var values []models.CustomFieldValue
	for _, f := range utmFields {
		if v := rec.Tags[f.tag]; v != "" {
			values = append(values, models.CustomFieldValue{CustomFieldID: ids[f.field], Value: v})
		}
	}
	if order.Coupon != "" {
		values = append(values, models.CustomFieldValue{CustomFieldID: ids["Affiliate Coupon"], Value: order.Coupon})
	}
	if len(values) == 0 {
		return nil
	}
	if err := s.commerce.SetOrderCustomFieldValues(ctx, storeID, order.ID, values); err != nil {
		return err
	}
	s.log.Info("attribution attached", slog.String("store", storeID), slog.Int64("order", order.ID), slog.Int("fields", len(values)))
	return nil
}

// forwardOrder always pushes the order to the affiliate platform, with or
// without a coupon/email, so its own attribution logic gets a chance.
func (s *Service) forwardOrder(ctx context.Context, storeID string, order models.Order) error {
	push := models.OrderPush{
		OrderID:  order.ID,
		Total:    order.Total,
		Currency: order.Currency,
		StoreID:  storeID,
	}
	if order.Coupon != "" {
		push.Coupon = &order.Coupon
	}
	if email := order.Customer.Email; email != "" {
		push.Email = &email
	}
	return s.affiliate.SendOrder(ctx, push)
}

// HandleAffiliateEvent creates the affiliate's coupon in the selected store
// and registers it back on the affiliate platform. The two writes are
// independent: a failed registration leaves the coupon in place and is
// retried in the background.
func (s *Service) HandleAffiliateEvent(ctx context.Context, aff models.Affiliate) (string, error) {
	code := CouponCode(aff)

	storeID, err := s.tenants.Select(ctx)
	if err != nil {
		return "", err
	}
	spec := models.CouponSpec{
		Code:    code,
		Type:    "percentage",
		Value:   defaultCouponPercent.StringFixed(2),
		MaxUses: 0, // unlimited
	}
	if err := s.commerce.CreateCoupon(ctx, storeID, spec); err != nil {
		s.m.RemoteFailures.WithLabelValues("commerce", "create_coupon").Inc()
		return "", err
	}
	s.log.Info("coupon created", slog.String("store", storeID), slog.String("code", code))

	if err := s.affiliate.AssignCoupon(ctx, aff.ID, code); err != nil {
		s.m.RemoteFailures.WithLabelValues("affiliate", "assign_coupon").Inc()
		s.log.Error("coupon assignment failed", slog.String("code", code), slog.String("err", err.Error()))
		s.queue.Enqueue("affiliate coupon assign", func(ctx context.Context) error {
			return s.affiliate.AssignCoupon(ctx, aff.ID, code)
		})
	}
	return code, nil
}

// CreateManualCoupon backs the admin endpoint. Unlike the webhook path,
// errors surface to the caller.
func (s *Service) CreateManualCoupon(ctx context.Context, code string, percent decimal.Decimal) error {
	storeID, err := s.tenants.Select(ctx)
	if err != nil {
		return err
	}
	spec := models.CouponSpec{
		Code:    strings.ToUpper(code),
		Type:    "percentage",
		Value:   percent.StringFixed(2),
		MaxUses: 0,
	}
	return s.commerce.CreateCoupon(ctx, storeID, spec)
}

// InstallSetup runs the post-OAuth store setup: webhook subscriptions, the
// custom-field schema, and the storefront script association. Each step is
// best-effort, an installed store with partial setup still works.
func (s *Service) InstallSetup(ctx context.Context, storeID string) {
	for _, ev := range []string{"order/paid", "app/uninstalled"} {
		if err := s.commerce.RegisterWebhook(ctx, storeID, ev, s.publicURL("/webhooks/commerce")); err != nil {
			s.log.Warn("webhook registration failed", slog.String("event", ev), slog.String("err", err.Error()))
			continue
		}
		s.log.Info("webhook registered", slog.String("event", ev))
	}

	if _, err := s.commerce.EnsureCustomFields(ctx, storeID, RequiredCustomFields); err != nil {
		s.log.Warn("custom field setup failed", slog.String("store", storeID), slog.String("err", err.Error()))
	}

	if s.cfg.CommerceScriptID != "" {
		id, err := strconv.ParseInt(s.cfg.CommerceScriptID, 10, 64)
		if err != nil {
			s.log.Warn("bad script id", slog.String("value", s.cfg.CommerceScriptID))
			return
		}
		if err := s.commerce.AssociateScript(ctx, storeID, id); err != nil {
			s.log.Warn("script association failed", slog.String("err", err.Error()))
			return
		}
		s.log.Info("script associated", slog.Int64("script", id))
	}
}

// AdminTest pings both platforms with whatever credentials exist.
func (s *Service) AdminTest(ctx context.Context) error {
	if storeID, err := s.tenants.Select(ctx); err == nil {
		if _, err := s.commerce.GetStore(ctx, storeID); err != nil {
			return fmt.Errorf("commerce ping: %w", err)
		}
	}
	if err := s.affiliate.Ping(ctx); err != nil {
		s.log.Warn("affiliate ping failed", slog.String("err", err.Error()))
	}
	return nil
}

// CompleteInstall finishes the OAuth handshake: exchanges the code, stores
// the tenant credential, and runs the install setup.
func (s *Service) CompleteInstall(ctx context.Context, code string) (string, error) {
	storeID, token, err := s.commerce.ExchangeCode(ctx, code)
	if err != nil {
		return "", err
	}
	if err := s.tokens.Set(ctx, storeID, token); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	s.InstallSetup(ctx, storeID)
	return storeID, nil
}

// ListSampleProducts fetches a handful of products from the selected tenant.
// Diagnostics only, confirms the token and its scopes work.
func (s *Service) ListSampleProducts(ctx context.Context) ([]map[string]any, error) {
	storeID, err := s.tenants.Select(ctx)
	if err != nil {
		return nil, err
	}
	return s.commerce.ListProducts(ctx, storeID, 5)
}

// publicURL rebuilds a path on the origin of the configured redirect URL,
// which is the only public base URL the app knows about.
func (s *Service) publicURL(pathname string) string {
	u, err := url.Parse(s.cfg.CommerceRedirectURL)
	if err != nil || u.Scheme == "" {
		return pathname
	}
	return u.Scheme + "://" + u.Host + pathname
}
