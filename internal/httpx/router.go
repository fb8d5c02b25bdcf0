package httpx

import (
	"embed"
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/storelink/affbridge/internal/bridge"
	"github.com/storelink/affbridge/internal/config"
	"github.com/storelink/affbridge/internal/metrics"
	"github.com/storelink/affbridge/internal/models"
	"github.com/storelink/affbridge/internal/utils"
	"github.com/storelink/affbridge/internal/webhook"
)

const (
	commerceSignatureHeader = "x-linkedstore-hmac-sha256"
	affiliateEventHeader    = "x-goaffpro-event"
)

//go:embed public
var publicFS embed.FS

type Server struct {
	log *slog.Logger
	cfg config.Config
	svc *bridge.Service
	m   *metrics.Metrics
}

func NewRouter(log *slog.Logger, cfg config.Config, svc *bridge.Service, m *metrics.Metrics) http.Handler {
	s := &Server{log: log, cfg: cfg, svc: svc, m: m}

	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	mux.Handle("/metrics", m.Handler())

	sub, _ := fs.Sub(publicFS, "public")
	mux.Handle("/public/*", http.StripPrefix("/public/", http.FileServer(http.FS(sub))))

	mux.Post("/webhooks/commerce", s.handleCommerceWebhook)
	mux.Post("/webhooks/affiliate", s.handleAffiliateWebhook)
	mux.Post("/session/utm", s.handleSessionUTM)
	mux.Get("/auth/callback", s.handleAuthCallback)

	mux.Get("/admin/test", s.handleAdminTest)
	mux.Post("/admin/test", s.handleAdminTest)
	mux.Post("/admin/create-coupon", s.handleCreateCoupon)
	mux.Get("/products", s.handleProducts)

	return mux
}

// handleCommerceWebhook verifies the delivery signature over the raw body,
// classifies the event, and runs the order sync. Once the signature checks
// out the response is 200 no matter what happens downstream, so the platform
// never retry-storms on our internal errors.
func (s *Server) handleCommerceWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if !webhook.VerifySignature(body, r.Header.Get(commerceSignatureHeader), s.cfg.CommerceClientSecret) {
		s.m.WebhooksReceived.WithLabelValues("commerce", "rejected").Inc()
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var p struct {
		StoreID int64  `json:"store_id"`
		Event   string `json:"event"`
		ID      int64  `json:"id"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		s.m.WebhooksReceived.WithLabelValues("commerce", "malformed").Inc()
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	storeID := strconv.FormatInt(p.StoreID, 10)
	s.log.Info("commerce webhook", slog.String("event", p.Event), slog.String("store", storeID), slog.Int64("id", p.ID))

	switch webhook.ClassifyCommerce(p.Event) {
	case webhook.KindOrderSync:
		s.svc.HandleOrderEvent(r.Context(), storeID, p.ID)
		s.m.WebhooksReceived.WithLabelValues("commerce", "processed").Inc()
	default:
		s.m.WebhooksReceived.WithLabelValues("commerce", "ignored").Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleAffiliateWebhook authenticates by shared-secret query parameter. The
// event name may arrive in a header or in the body, and the affiliate record
// under several keys; both quirks belong to the affiliate platform.
func (s *Server) handleAffiliateWebhook(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("secret") != s.cfg.AffiliateWebhookSecret {
		s.m.WebhooksReceived.WithLabelValues("affiliate", "rejected").Inc()
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, _ := io.ReadAll(r.Body)
	var p struct {
		Event     string          `json:"event"`
		Type      string          `json:"type"`
		Affiliate json.RawMessage `json:"affiliate"`
		Data      json.RawMessage `json:"data"`
		Payload   json.RawMessage `json:"payload"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &p); err != nil {
			s.m.WebhooksReceived.WithLabelValues("affiliate", "malformed").Inc()
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	event := r.Header.Get(affiliateEventHeader)
	if event == "" {
		event = p.Event
	}
	if event == "" {
		event = p.Type
	}
	if event == "" {
		event = "unknown"
	}

	// the affiliate record shows up under different keys depending on the
	// webhook topic; take the first candidate that decodes
	var aff *models.Affiliate
	for _, raw := range []json.RawMessage{p.Affiliate, p.Data, p.Payload} {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var a models.Affiliate
		if err := json.Unmarshal(raw, &a); err == nil {
			aff = &a
			break
		}
	}
	s.log.Info("affiliate webhook", slog.String("event", event), slog.Bool("has_affiliate", aff != nil))

	if webhook.ClassifyAffiliate(event) == webhook.KindAffiliateSync && aff != nil {
		code, err := s.svc.HandleAffiliateEvent(r.Context(), *aff)
		if err != nil {
			s.m.WebhooksReceived.WithLabelValues("affiliate", "failed").Inc()
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		s.m.WebhooksReceived.WithLabelValues("affiliate", "processed").Inc()
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "coupon": code})
		return
	}

	s.m.WebhooksReceived.WithLabelValues("affiliate", "ignored").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleSessionUTM is the producer side of the attribution store: the
// storefront script posts the captured tags keyed by the checkout email.
func (s *Server) handleSessionUTM(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid json"})
		return
	}
	email, _ := raw["email"].(string)
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "missing email"})
		return
	}
	tags := make(map[string]string, len(raw))
	for k, v := range raw {
		if k == "email" {
			continue
		}
		if sv, ok := v.(string); ok && sv != "" {
			tags[k] = sv
		}
	}
	if err := s.svc.CaptureAttribution(r.Context(), email, tags); err != nil {
		s.log.Error("attribution capture failed", slog.String("err", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "store error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	if _, err := s.svc.CompleteInstall(r.Context(), code); err != nil {
		s.log.Error("oauth install failed", slog.String("err", err.Error()))
		http.Error(w, "oauth error", http.StatusInternalServerError)
		return
	}
	w.Write([]byte("App installed! You can close this window."))
}

func (s *Server) handleAdminTest(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.AdminTest(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	p := struct {
		Code    string  `json:"code"`
		Percent float64 `json:"percent"`
	}{Code: "TEST10", Percent: 10}
	// body is optional, defaults above apply
	json.NewDecoder(r.Body).Decode(&p)

	if err := s.svc.CreateManualCoupon(r.Context(), p.Code, decimal.NewFromFloat(p.Percent)); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "code": p.Code})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.svc.ListSampleProducts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(products), "sample": products})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
