package summarize

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxBodySize = 1 << 20

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	if detail == "" {
		detail = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}

// readJSON decodifica exatamente um objeto JSON de até maxBodySize bytes.
func readJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("invalid JSON body: empty")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize+1))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("invalid JSON body: empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.InputOffset() > maxBodySize {
		return errors.New("invalid JSON body: too large")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON body: unexpected data after object")
	}
	return nil
}
