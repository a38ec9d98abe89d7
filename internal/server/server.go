// Package server exposes the HTTP JSON surface: subscription lifecycle,
// status and schedule queries, admin operations and the health check. The
// handlers are mounted on the prefab server from cmd/server.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/alertmtl/server/internal/ratelimit"
	"github.com/alertmtl/server/internal/resolver"
	"github.com/alertmtl/server/internal/services"
	"github.com/alertmtl/server/internal/sources"
	"github.com/alertmtl/server/internal/store"
)

// Server holds the handler dependencies.
type Server struct {
	store      *store.Store
	dispatcher *services.Dispatcher
	batch      *services.Batch
	geobase    *services.Geobase
	resolver   services.LocationResolver
	snowGate   *ratelimit.Gate
	adminToken string
	startedAt  time.Time
}

// New creates the server.
func New(st *store.Store, d *services.Dispatcher, b *services.Batch, g *services.Geobase,
	res services.LocationResolver, snowGate *ratelimit.Gate, adminToken string) *Server {
	return &Server{
		store:      st,
		dispatcher: d,
		batch:      b,
		geobase:    g,
		resolver:   res,
		snowGate:   snowGate,
		adminToken: adminToken,
		startedAt:  time.Now(),
	}
}

// Routes returns the handler for each mounted path prefix.
func (s *Server) Routes() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"/api/subscribe":      s.handleSubscribe,
		"/api/unsubscribe":    s.handleUnsubscribe,
		"/api/snow-status":    s.handleSnowStatus,
		"/api/waste-schedule": s.handleWasteSchedule,
		"/api/resolve":        s.handleResolve,
		"/api/streets":        s.handleStreetSearch,
		"/api/admin/":         s.handleAdmin,
		"/healthz":            s.handleHealth,
	}
}

// ---------------------------------------------------------------------------
// Error envelope

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

// writeDomainError maps the closed error taxonomy onto HTTP codes. Anything
// unmapped is an internal error; raw error text for those stays in the logs.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, resolver.ErrInvalidPostalCode):
		writeError(w, http.StatusBadRequest, "invalid_input", "Postal code is not valid.")
	case errors.Is(err, resolver.ErrUnsupportedCity):
		writeError(w, http.StatusBadRequest, "invalid_input", "Only Montreal (H) and Quebec City (G) postal codes are supported.")
	case errors.Is(err, resolver.ErrNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, sources.ErrNotCovered):
		writeError(w, http.StatusNotFound, "not_found", "No data found for this location.")
	case errors.Is(err, sources.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "Upstream data source is currently unavailable.")
	case errors.Is(err, store.ErrAddressLimit):
		writeError(w, http.StatusConflict, "limit_reached", "This subscriber already tracks the maximum number of addresses.")
	default:
		logging.Errorw(ctx, "server: request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "Internal error.")
	}
}

// ---------------------------------------------------------------------------
// Subscriptions

type subscribeRequest struct {
	Email   string `json:"email"`
	Address struct {
		PostalCode  string `json:"postal_code"`
		StreetName  string `json:"street_name"`
		CivicNumber int    `json:"civic_number"`
		Label       string `json:"label"`
		SnowAlerts  *bool  `json:"snow_alerts"`
		WasteAlerts *bool  `json:"waste_alerts"`
	} `json:"address"`
}

type subscribeResponse struct {
	SubscriberID uint   `json:"subscriber_id"`
	AddressID    uint   `json:"address_id"`
	City         string `json:"city"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "invalid_input", "POST required.")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "Malformed JSON body.")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid_input", "A valid email address is required.")
		return
	}

	location, err := s.resolver.Resolve(r.Context(), req.Address.PostalCode)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	sub, err := s.store.Subscribe(req.Email)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	addr := &store.Address{
		City:        location.CityTag,
		PostalCode:  location.PostalCode,
		StreetName:  req.Address.StreetName,
		CivicNumber: req.Address.CivicNumber,
		Latitude:    &location.Point.Latitude,
		Longitude:   &location.Point.Longitude,
		Label:       req.Address.Label,
		SnowAlerts:  boolOrDefault(req.Address.SnowAlerts, true),
		WasteAlerts: boolOrDefault(req.Address.WasteAlerts, true),
	}

	// Pin Montreal addresses to their street segment up front so the batch
	// never re-resolves them.
	if location.CityTag == "montreal" && req.Address.StreetName != "" {
		query := req.Address.StreetName
		if req.Address.CivicNumber > 0 {
			query = strconv.Itoa(req.Address.CivicNumber) + " " + query
		}
		if segment, err := s.geobase.LookupAddress(query); err == nil {
			addr.SegmentID = &segment.SegmentID
			addr.StreetSide = segment.StreetSide
			addr.Borough = segment.Borough
		}
	}

	if err := s.store.AddAddress(sub.ID, addr); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, subscribeResponse{
		SubscriberID: sub.ID,
		AddressID:    addr.ID,
		City:         addr.City,
	})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "Unsubscribe token is required.")
		return
	}

	if _, err := s.store.Unsubscribe(token); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

// ---------------------------------------------------------------------------
// Status queries

func (s *Server) handleSnowStatus(w http.ResponseWriter, r *http.Request) {
	query := services.SnowQuery{
		PostalCode: r.URL.Query().Get("postal_code"),
		Address:    r.URL.Query().Get("address"),
	}
	if raw := r.URL.Query().Get("segment_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "segment_id must be an integer.")
			return
		}
		query.SegmentID = id
	}

	report, err := s.dispatcher.SnowStatus(r.Context(), query)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleWasteSchedule(w http.ResponseWriter, r *http.Request) {
	postalCode := r.URL.Query().Get("postal_code")
	civicNumber, _ := strconv.Atoi(r.URL.Query().Get("civic_number"))

	schedule, err := s.dispatcher.WasteSchedule(r.Context(), postalCode, civicNumber)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	location, err := s.resolver.Resolve(r.Context(), r.URL.Query().Get("postal_code"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

func (s *Server) handleStreetSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "Query parameter q is required.")
		return
	}

	segments, err := s.geobase.Search(query, 20)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": segments})
}

// ---------------------------------------------------------------------------
// Admin

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	if s.adminToken == "" || r.Header.Get("X-Admin-Token") != s.adminToken {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Valid admin token required.")
		return
	}

	switch {
	case r.URL.Path == "/api/admin/run/snow" && r.Method == http.MethodPost:
		writeJSON(w, http.StatusOK, s.batch.CheckSnowStatuses(r.Context()))
	case r.URL.Path == "/api/admin/run/waste" && r.Method == http.MethodPost:
		writeJSON(w, http.StatusOK, s.batch.SendWasteReminders(r.Context()))
	case r.URL.Path == "/api/admin/run/geobase" && r.Method == http.MethodPost:
		count, err := s.geobase.Refresh(r.Context())
		if err != nil {
			writeDomainError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"segments": count})
	case r.URL.Path == "/api/admin/stats" && r.Method == http.MethodGet:
		days, _ := strconv.Atoi(r.URL.Query().Get("days"))
		if days <= 0 {
			days = 7
		}
		summary, err := s.store.SummarizeAlerts(days, time.Now())
		if err != nil {
			writeDomainError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	default:
		writeError(w, http.StatusNotFound, "not_found", "Unknown admin operation.")
	}
}

// ---------------------------------------------------------------------------
// Health

type healthResponse struct {
	Status          string  `json:"status"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	Database        string  `json:"database"`
	GeobaseSegments int64   `json:"geobase_segments"`
	SnowGateWaitSec float64 `json:"snow_gate_wait_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		Database:      "ok",
	}
	if err := s.store.Ping(); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
	}
	if count, err := s.store.SegmentCount(); err == nil {
		resp.GeobaseSegments = count
	}
	if s.snowGate != nil {
		resp.SnowGateWaitSec = s.snowGate.Remaining().Seconds()
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
