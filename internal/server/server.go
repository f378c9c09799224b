package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/youmna-rabie/incident-relay/internal/broker"
	"github.com/youmna-rabie/incident-relay/internal/config"
	"github.com/youmna-rabie/incident-relay/internal/delivery"
	"github.com/youmna-rabie/incident-relay/internal/relay"
	"github.com/youmna-rabie/incident-relay/internal/types"
)

const (
	msgPublished     = "Live UI updated"
	msgNotConfigured = "Received (Pusher not configured)"
	msgFailed        = "Failed to process request"

	defaultEventsLimit = 50
)

// Server is the relay's HTTP surface: the voice agent's webhook, the
// dashboard page and socket, and operator endpoints.
type Server struct {
	cfg        *config.Config
	deliveries delivery.Store
	channel    types.Channel
	relay      *relay.Publisher
	subscriber broker.Subscriber
	router     chi.Router
	logger     *slog.Logger
	now        func() time.Time
}

// NewServer creates a Server wired with the given dependencies. sub may be
// nil when the subscribe side is not configured; dashboards then stay
// disconnected.
func NewServer(
	cfg *config.Config,
	deliveries delivery.Store,
	ch types.Channel,
	pub *relay.Publisher,
	sub broker.Subscriber,
	logger *slog.Logger,
) *Server {
	s := &Server{
		cfg:        cfg,
		deliveries: deliveries,
		channel:    ch,
		relay:      pub,
		subscriber: sub,
		logger:     logger,
		now:        time.Now,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(logger))
	r.Use(Recovery(logger))

	r.Post("/api/update-call", s.handleUpdateCall)
	r.Get("/api/client-config", s.handleClientConfig)
	r.Get("/api/dashboard/ws", s.handleDashboardSocket)
	r.Get("/health", s.handleHealth)
	r.Get("/admin/events", s.handleAdminEvents)
	r.Handle("/*", http.FileServer(staticFiles()))

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
}

// handleUpdateCall processes POST /api/update-call.
// Pipeline: parse → record → stamp → publish → respond.
func (s *Server) handleUpdateCall(w http.ResponseWriter, r *http.Request) {
	d, err := s.channel.ParseRequest(r)
	if err != nil {
		s.recordFailure()
		s.logger.Error("webhook parse failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeJSON(w, http.StatusInternalServerError, failure())
		return
	}
	s.record(*d)

	if !s.relay.IsConfigured() {
		s.skip(w, d)
		return
	}

	body, err := types.DecodeObject(d.RawBody)
	if err != nil {
		s.fail(w, r, d, err)
		return
	}
	types.StampTimestamp(body, s.now())

	if err := s.relay.Trigger(r.Context(), body); err != nil {
		if errors.Is(err, broker.ErrNotConfigured) {
			s.skip(w, d)
			return
		}
		s.fail(w, r, d, err)
		return
	}

	s.setStatus(d, types.DeliveryStatusPublished)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msgPublished})
}

func (s *Server) skip(w http.ResponseWriter, d *types.Delivery) {
	s.logger.Warn("broker publish credentials missing, update not published", "delivery_id", d.ID)
	s.setStatus(d, types.DeliveryStatusSkipped)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msgNotConfigured})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, d *types.Delivery, err error) {
	s.logger.Error("webhook processing failed",
		"error", err,
		"delivery_id", d.ID,
		"request_id", RequestIDFromContext(r.Context()),
	)
	s.setStatus(d, types.DeliveryStatusFailed)
	writeJSON(w, http.StatusInternalServerError, failure())
}

func failure() map[string]any {
	return map[string]any{"success": false, "error": msgFailed}
}

func (s *Server) record(d types.Delivery) {
	if err := s.deliveries.Record(d); err != nil {
		s.logger.Error("failed to record delivery", "error", err, "delivery_id", d.ID)
	}
}

// recordFailure logs a request whose body could not be read as JSON.
func (s *Server) recordFailure() {
	s.record(types.Delivery{
		ID:        uuid.New(),
		ChannelID: s.channel.Name(),
		Timestamp: s.now(),
		Status:    types.DeliveryStatusFailed,
	})
}

func (s *Server) setStatus(d *types.Delivery, status types.DeliveryStatus) {
	d.Status = status
	if err := s.deliveries.SetStatus(d.ID, status); err != nil && !errors.Is(err, delivery.ErrNotFound) {
		s.logger.Error("failed to update delivery status", "error", err, "delivery_id", d.ID)
	}
}

// handleClientConfig responds to GET /api/client-config with what the
// dashboard page needs to start the call widget.
func (s *Server) handleClientConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id":     s.cfg.Voice.AgentID,
		"live_updates": s.subscriber != nil,
	})
}

// handleHealth responds to GET /health with a simple liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAdminEvents responds to GET /admin/events with recent deliveries.
func (s *Server) handleAdminEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("invalid limit: %q", v),
			})
			return
		}
		limit = n
	}

	deliveries, err := s.deliveries.Recent(limit, 0)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list deliveries",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": deliveries,
		"count":  len(deliveries),
		"stats":  s.deliveries.Stats(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
