package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
)

// timeFormat is the UTC timestamp layout used in every response.
const timeFormat = "2006-01-02T15:04:05Z"

var (
	errNotJSON = errors.New("Content-Type must be application/json")
	errBadBody = errors.New("request body is not a valid JSON object")
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON encodes data as the body with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are gone by now; the client has hung up or the value
		// cannot be encoded.
		slog.Debug("response encode failed", "error", err)
	}
}

// WriteError writes the {"error", "message"} envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorResponse{Error: code, Message: message})
}

// ParseJSON decodes exactly one JSON object from the body into v. Unknown
// top-level fields and trailing values are rejected.
func ParseJSON(r *http.Request, v any) error {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		return errNotJSON
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after the object", errBadBody)
	}
	return nil
}

// money converts an amount to a float rounded to cents.
func money(d decimal.Decimal) float64 {
	return domain.Float(domain.Round2(d))
}
