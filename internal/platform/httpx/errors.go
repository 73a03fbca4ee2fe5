package httpx

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/hrforms/internal/shared"
)

// ErrorDetail is one entry of the error envelope result list.
type ErrorDetail struct {
	Message string         `json:"message"`
	Context shared.Context `json:"context,omitempty"`
}

// ErrorEnvelope is the failure response body.
type ErrorEnvelope struct {
	Message string        `json:"message"`
	Result  []ErrorDetail `json:"result"`
	Status  int           `json:"status"`
}

// RespondError maps typed errors to the error envelope. Database and untyped
// errors are logged and reported with a generic message.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	typed, ok := shared.AsError(err)
	if !ok || typed.Kind == shared.KindInternal || typed.Kind == shared.KindDatabase {
		if logger != nil {
			attrs := []any{slog.Any("error", err)}
			if ok && typed.Context != nil {
				attrs = append(attrs, slog.Any("context", typed.Context))
			}
			logger.Error("request failed", attrs...)
		}
		status := http.StatusInternalServerError
		JSON(w, status, ErrorEnvelope{
			Message: "Internal server error",
			Result:  []ErrorDetail{{Message: "Internal server error"}},
			Status:  status,
		})
		return
	}

	status := typed.Status()
	details := make([]ErrorDetail, 0, len(typed.Fields)+1)
	if typed.Kind == shared.KindValidation {
		for _, f := range typed.Fields {
			details = append(details, ErrorDetail{Message: f.Message, Context: shared.Context{"field": f.Field}})
		}
	} else {
		details = append(details, ErrorDetail{Message: typed.Message, Context: typed.Context})
	}
	JSON(w, status, ErrorEnvelope{Message: typed.Message, Result: details, Status: status})
}
