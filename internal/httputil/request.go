package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ParseJSON decodes JSON from the request body into the given destination.
// The body is capped well above the resource payload ceiling; oversized
// requests fail with a clear error instead of exhausting memory.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	// Uploads arrive base64-encoded in JSON, so allow some headroom.
	r.Body = http.MaxBytesReader(w, r.Body, 32<<20)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}
