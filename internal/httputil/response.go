package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code and data.
// It properly checks for encoding errors and logs them.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// StatusBody is the JSON error body returned by the poll endpoint for
// non-success outcomes.
type StatusBody struct {
	Status      interface{} `json:"status"`
	Description string      `json:"description"`
}

// WriteStatus writes the endpoint's standard error body. The status field
// carries the numeric code for 401 and the symbolic name otherwise, matching
// the wire format existing receivers parse.
func WriteStatus(w http.ResponseWriter, httpStatus int, status interface{}, description string) {
	WriteJSON(w, httpStatus, StatusBody{Status: status, Description: description})
}
