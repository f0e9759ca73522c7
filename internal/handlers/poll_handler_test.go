package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridian-identity/setpoll/internal/auth"
	"github.com/veridian-identity/setpoll/internal/logging"
	"github.com/veridian-identity/setpoll/internal/service"
	"github.com/veridian-identity/setpoll/internal/telemetry"
)

const (
	testClientID = "poll-client"
	testToken    = "super-secret-token"
	testCost     = "1024$8$1$"
)

type mockDeliverer struct {
	delivery *service.Delivery
	err      error
	buckets  []time.Time
}

func (m *mockDeliverer) Deliver(_ context.Context, bucket time.Time) (*service.Delivery, error) {
	m.buckets = append(m.buckets, bucket)
	return m.delivery, m.err
}

type recordingSink struct {
	mu      sync.Mutex
	records []telemetry.Record
}

func (s *recordingSink) Record(_ context.Context, rec telemetry.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

func (s *recordingSink) all() []telemetry.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

func testAuthenticator() *auth.Authenticator {
	return auth.NewAuthenticator(testClientID, []string{testToken}, testCost, time.Hour, auth.NewCache(auth.NewMemoryStore()))
}

func testHandler(deliverer *mockDeliverer, sink *recordingSink, enabled bool) *AttemptsHandler {
	logger := logging.New(slog.LevelError, "json")
	return NewAttemptsHandler(testAuthenticator(), deliverer, sink, enabled, logger)
}

func successDelivery() *service.Delivery {
	return &service.Delivery{
		EncryptedKey: "a2V5",
		IV:           "aXY=",
		Filename:     "20240101T0000Z_poll_events.gz",
		ContentType:  "application/octet-stream",
		EventCount:   3,
		WriteBody: func(w io.Writer) error {
			_, err := w.Write([]byte("ciphertext"))
			return err
		},
	}
}

func pollRequest(timestamp, authHeader string) *http.Request {
	target := "/api/security_events"
	if timestamp != "" {
		target += "?timestamp=" + timestamp
	}
	req := httptest.NewRequest(http.MethodPost, target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	return req
}

func validAuthHeader() string {
	return "Bearer " + testClientID + " " + testToken
}

func decodeStatusBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandlePoll_Success(t *testing.T) {
	deliverer := &mockDeliverer{delivery: successDelivery()}
	sink := &recordingSink{}
	handler := testHandler(deliverer, sink, true)

	rec := httptest.NewRecorder()
	handler.HandlePoll(rec, pollRequest("2024-01-01T00:00:00%2B00:00", validAuthHeader()))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a2V5", rec.Header().Get("X-Payload-Key"))
	assert.Equal(t, "aXY=", rec.Header().Get("X-Payload-IV"))
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "filename=20240101T0000Z_poll_events.gz", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "ciphertext", rec.Body.String())

	require.Len(t, deliverer.buckets, 1)
	assert.True(t, deliverer.buckets[0].Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	records := sink.all()
	require.Len(t, records, 1)
	assert.True(t, records[0].Authenticated)
	assert.True(t, records[0].Success)
	assert.Equal(t, 3, records[0].RenderedEventCount)
	assert.NotEmpty(t, records[0].EventID)
}

func TestHandlePoll_Unauthorized(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + testClientID + " " + testToken},
		{"wrong client", "Bearer other-client " + testToken},
		{"wrong credential", "Bearer " + testClientID + " bogus"},
		{"missing credential", "Bearer " + testClientID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deliverer := &mockDeliverer{delivery: successDelivery()}
			sink := &recordingSink{}
			handler := testHandler(deliverer, sink, true)

			rec := httptest.NewRecorder()
			handler.HandlePoll(rec, pollRequest("2024-01-01T00:00:00%2B00:00", tt.header))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			body := decodeStatusBody(t, rec)
			assert.Equal(t, float64(401), body["status"])
			assert.Equal(t, "Unauthorized", body["description"])

			// Never reaches delivery.
			assert.Empty(t, deliverer.buckets)

			records := sink.all()
			require.Len(t, records, 1)
			assert.False(t, records[0].Authenticated)
			assert.False(t, records[0].Success)
			assert.Zero(t, records[0].ElapsedTime)
		})
	}
}

func TestHandlePoll_MissingTimestamp(t *testing.T) {
	deliverer := &mockDeliverer{delivery: successDelivery()}
	sink := &recordingSink{}
	handler := testHandler(deliverer, sink, true)

	rec := httptest.NewRecorder()
	handler.HandlePoll(rec, pollRequest("", validAuthHeader()))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeStatusBody(t, rec)
	assert.Equal(t, "unprocessable_entity", body["status"])
	assert.Equal(t, "Invalid timestamp parameter", body["description"])
	assert.Empty(t, deliverer.buckets)

	records := sink.all()
	require.Len(t, records, 1)
	assert.True(t, records[0].Authenticated)
	assert.False(t, records[0].Success)
}

func TestHandlePoll_MalformedTimestamp(t *testing.T) {
	for _, raw := range []string{"not-a-time", "2024-01-01T00:00:00Z", "2024-13-40T99:00:00%2B00:00"} {
		t.Run(raw, func(t *testing.T) {
			deliverer := &mockDeliverer{delivery: successDelivery()}
			handler := testHandler(deliverer, &recordingSink{}, true)

			rec := httptest.NewRecorder()
			handler.HandlePoll(rec, pollRequest(raw, validAuthHeader()))

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Empty(t, deliverer.buckets)
		})
	}
}

func TestHandlePoll_ArchiveMiss(t *testing.T) {
	deliverer := &mockDeliverer{err: service.ErrNoArchive}
	sink := &recordingSink{}
	handler := testHandler(deliverer, sink, true)

	rec := httptest.NewRecorder()
	handler.HandlePoll(rec, pollRequest("2024-01-01T00:00:00%2B00:00", validAuthHeader()))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeStatusBody(t, rec)
	assert.Equal(t, "not_found", body["status"])
	assert.Equal(t, "File not found for Timestamp", body["description"])

	records := sink.all()
	require.Len(t, records, 1)
	assert.True(t, records[0].Authenticated)
	assert.False(t, records[0].Success)
}

func TestHandlePoll_DeliveryError(t *testing.T) {
	deliverer := &mockDeliverer{err: errors.New("redis down")}
	sink := &recordingSink{}
	handler := testHandler(deliverer, sink, true)

	rec := httptest.NewRecorder()
	handler.HandlePoll(rec, pollRequest("2024-01-01T00:00:00%2B00:00", validAuthHeader()))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, sink.all(), 1)
}

func TestHandlePoll_Disabled(t *testing.T) {
	deliverer := &mockDeliverer{delivery: successDelivery()}
	sink := &recordingSink{}
	handler := testHandler(deliverer, sink, false)

	rec := httptest.NewRecorder()
	handler.HandlePoll(rec, pollRequest("2024-01-01T00:00:00%2B00:00", validAuthHeader()))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, deliverer.buckets)
	assert.Empty(t, sink.all())
}

func TestHandlePoll_MethodNotAllowed(t *testing.T) {
	handler := testHandler(&mockDeliverer{}, &recordingSink{}, true)

	req := httptest.NewRequest(http.MethodGet, "/api/security_events", nil)
	rec := httptest.NewRecorder()
	handler.HandlePoll(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	handler := testHandler(&mockDeliverer{}, &recordingSink{}, true)

	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}
