package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/artmarket-backend/pkg/errors"
)

const maxQueryValueLength = 64

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParsePathID reads a positive integer chi URL parameter.
func ParsePathID(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter required").WithDetails(map[string]any{"field": key})
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a positive integer").WithDetails(map[string]any{"field": key, "value": raw})
	}
	return value, nil
}

// QueryMap flattens the query string to the first value of each key. Values
// are trimmed and capped; repeated keys keep the first occurrence.
func QueryMap(r *http.Request, skip ...string) map[string]string {
	out := map[string]string{}
	skipped := make(map[string]struct{}, len(skip))
	for _, key := range skip {
		skipped[strings.ToLower(key)] = struct{}{}
	}
	for key, values := range r.URL.Query() {
		if _, ok := skipped[strings.ToLower(key)]; ok || len(values) == 0 {
			continue
		}
		out[key] = SanitizeString(values[0], maxQueryValueLength)
	}
	return out
}
