package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name              string
		existingRequestID string
		expectNewID       bool
	}{
		{
			name:              "generates new request ID when not present",
			existingRequestID: "",
			expectNewID:       true,
		},
		{
			name:              "propagates existing request ID",
			existingRequestID: "existing-req-123",
			expectNewID:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedRequestID string

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedRequestID = GetRequestID(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest("POST", "http://example.com/api/security_events", nil)
			if tt.existingRequestID != "" {
				req.Header.Set("X-Request-ID", tt.existingRequestID)
			}

			w := httptest.NewRecorder()
			RequestID(handler).ServeHTTP(w, req)

			responseRequestID := w.Header().Get("X-Request-ID")
			if responseRequestID == "" {
				t.Error("expected X-Request-ID header in response")
			}

			if capturedRequestID != responseRequestID {
				t.Errorf("context request ID %q does not match response header %q",
					capturedRequestID, responseRequestID)
			}

			if tt.expectNewID {
				if _, err := uuid.Parse(responseRequestID); err != nil {
					t.Errorf("expected generated UUID, got %q", responseRequestID)
				}
			} else if responseRequestID != tt.existingRequestID {
				t.Errorf("expected propagated ID %q, got %q", tt.existingRequestID, responseRequestID)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com/", nil)
	if got := GetRequestID(req.Context()); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}
}
