package api

import (
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/event-planner/internal/store"
)

// Envelope is the body of every response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// maxBody caps request bodies.
const maxBody = 1 << 20

func respond(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{ //nolint:errcheck
		Success: status < 400,
		Message: message,
		Data:    data,
	})
}

func fail(w http.ResponseWriter, status int, message string) {
	respond(w, status, message, nil)
}

// failErr maps collaborator errors to a status. Unknown errors are
// logged with their full chain and reported without it.
func failErr(w http.ResponseWriter, err error, action string) {
	switch {
	case eris.Is(err, store.ErrNotFound):
		fail(w, http.StatusNotFound, "not found")
	case eris.Is(err, store.ErrEmailTaken):
		fail(w, http.StatusConflict, "email already registered")
	case eris.Is(err, store.ErrInvalidCredentials):
		fail(w, http.StatusUnauthorized, "invalid email or password")
	default:
		zap.L().Error("api: "+action+" failed", zap.Error(err))
		fail(w, http.StatusInternalServerError, action+" failed: "+eris.Cause(err).Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
