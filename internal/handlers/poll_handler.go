package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/veridian-identity/setpoll/internal/auth"
	"github.com/veridian-identity/setpoll/internal/httputil"
	"github.com/veridian-identity/setpoll/internal/logging"
	"github.com/veridian-identity/setpoll/internal/metrics"
	"github.com/veridian-identity/setpoll/internal/service"
	"github.com/veridian-identity/setpoll/internal/telemetry"
	"github.com/veridian-identity/setpoll/internal/timebucket"
)

// PollDeliverer prepares one bucket's delivery. Satisfied by
// service.PollService.
type PollDeliverer interface {
	Deliver(ctx context.Context, bucket time.Time) (*service.Delivery, error)
}

type AttemptsHandler struct {
	auth      *auth.Authenticator
	service   PollDeliverer
	telemetry telemetry.Sink
	enabled   bool
	logger    *logging.Logger
}

func NewAttemptsHandler(authenticator *auth.Authenticator, svc PollDeliverer, sink telemetry.Sink, enabled bool, logger *logging.Logger) *AttemptsHandler {
	return &AttemptsHandler{
		auth:      authenticator,
		service:   svc,
		telemetry: sink,
		enabled:   enabled,
		logger:    logger,
	}
}

// HandlePoll serves the poll endpoint. Every request, whatever its
// outcome, emits exactly one telemetry record.
func (h *AttemptsHandler) HandlePoll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	rawTimestamp := r.URL.Query().Get("timestamp")

	// When the endpoint is disabled it is indistinguishable from an
	// unknown path.
	if !h.enabled {
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodPost {
		httputil.WriteStatus(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method Not Allowed")
		return
	}

	ok, err := h.auth.Authenticate(ctx, r.Header.Get("Authorization"))
	if err != nil {
		h.logger.ErrorContext(ctx, "credential verification failed", logging.Error(err))
		metrics.PollRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		httputil.WriteStatus(w, http.StatusInternalServerError, "internal_server_error", "Internal Server Error")
		return
	}
	if !ok {
		metrics.AuthFailuresTotal.Inc()
		metrics.PollRequestsTotal.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
		h.emit(ctx, telemetry.NewRecord(0, rawTimestamp, 0, false, false))
		httputil.WriteStatus(w, http.StatusUnauthorized, http.StatusUnauthorized, "Unauthorized")
		return
	}

	bucket, ok := timebucket.Parse(rawTimestamp)
	if !ok {
		metrics.PollRequestsTotal.WithLabelValues(metrics.OutcomeUnprocessable).Inc()
		h.emit(ctx, telemetry.NewRecord(0, rawTimestamp, h.elapsed(start), true, false))
		httputil.WriteStatus(w, http.StatusUnprocessableEntity, "unprocessable_entity", "Invalid timestamp parameter")
		return
	}

	delivery, err := h.service.Deliver(ctx, bucket)
	if errors.Is(err, service.ErrNoArchive) {
		metrics.PollRequestsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		h.emit(ctx, telemetry.NewRecord(0, rawTimestamp, h.elapsed(start), true, false))
		httputil.WriteStatus(w, http.StatusNotFound, "not_found", "File not found for Timestamp")
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "delivery failed",
			logging.Bucket(timebucket.Key(bucket)), logging.Error(err))
		metrics.PollRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		h.emit(ctx, telemetry.NewRecord(0, rawTimestamp, h.elapsed(start), true, false))
		httputil.WriteStatus(w, http.StatusInternalServerError, "internal_server_error", "Internal Server Error")
		return
	}

	w.Header().Set("X-Payload-Key", delivery.EncryptedKey)
	w.Header().Set("X-Payload-IV", delivery.IV)
	w.Header().Set("Content-Type", delivery.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("filename=%s", delivery.Filename))
	w.WriteHeader(http.StatusOK)

	if err := delivery.WriteBody(w); err != nil {
		// Status already sent; nothing to do but log and count.
		h.logger.ErrorContext(ctx, "body write failed",
			logging.Filename(delivery.Filename), logging.Error(err))
		metrics.PollRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		h.emit(ctx, telemetry.NewRecord(delivery.EventCount, rawTimestamp, h.elapsed(start), true, false))
		return
	}

	metrics.PollRequestsTotal.WithLabelValues(metrics.OutcomeServed).Inc()
	metrics.PollRequestDuration.Observe(time.Since(start).Seconds())
	h.logger.InfoContext(ctx, "bundle delivered",
		logging.Bucket(timebucket.Key(bucket)),
		logging.Filename(delivery.Filename),
		logging.Duration(time.Since(start).Milliseconds()))
	h.emit(ctx, telemetry.NewRecord(delivery.EventCount, rawTimestamp, h.elapsed(start), true, true))
}

func (h *AttemptsHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (h *AttemptsHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	code := http.StatusOK
	if !h.enabled {
		status = "disabled"
	}
	httputil.WriteJSON(w, code, map[string]string{
		"status": status,
	})
}

func (h *AttemptsHandler) elapsed(start time.Time) float64 {
	return time.Since(start).Seconds()
}

func (h *AttemptsHandler) emit(ctx context.Context, rec telemetry.Record) {
	if h.telemetry != nil {
		h.telemetry.Record(ctx, rec)
	}
}
