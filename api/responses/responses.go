package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/angelmondragon/artmarket-backend/pkg/errors"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
	"github.com/angelmondragon/artmarket-backend/pkg/types"
)

// RequestIDHeader is set by the request id middleware and echoed in error bodies.
const RequestIDHeader = "X-Request-Id"

// detailLogKeys are lifted from error details onto the log line.
var detailLogKeys = []string{"field", "source_type", "current_status", "required_status"}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.Success[any]{Data: data})
}

// WriteError renders err with the status of its code. Untyped errors become
// CodeInternal. Only client faults expose their own message; server faults
// answer with the public message of the code.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	body := types.ErrorBody{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		RequestID: w.Header().Get(RequestIDHeader),
	}
	if msg := typed.Message(); meta.ClientFault() && msg != "" {
		body.Message = msg
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}

	if logg != nil {
		logFailure(ctx, logg, err, typed, meta)
	}
	writeJSON(w, meta.HTTPStatus, types.Failure{Error: body})
}

// logFailure warns on client faults and dumps the full chain for everything else.
func logFailure(ctx context.Context, logg *logger.Logger, err error, typed *pkgerrors.Error, meta pkgerrors.Metadata) {
	fields := map[string]any{
		"error_code":  string(typed.Code()),
		"http_status": meta.HTTPStatus,
	}
	if details, ok := typed.Details().(map[string]any); ok {
		for _, key := range detailLogKeys {
			if v, ok := details[key]; ok {
				fields[key] = v
			}
		}
	}

	if meta.ClientFault() {
		fields["error"] = err.Error()
		logg.Warn(logg.WithFields(ctx, fields), "request.rejected")
		return
	}
	for key, value := range pkgerrors.Dump(err).LogFields() {
		fields[key] = value
	}
	logg.Error(logg.WithFields(ctx, fields), "request.error", err)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// headers are already out; an encode failure here means the client went away
	_ = json.NewEncoder(w).Encode(payload)
}
