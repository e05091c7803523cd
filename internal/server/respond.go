package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/console"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/identifier"
	"github.com/geoffreymagana/Tiny-Tasks-VA-sub000/pkg/storage"
)

// actionResult is the body of every response.
type actionResult struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	ID         string      `json:"id,omitempty"`
	Identifier string      `json:"identifier,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload actionResult) {
	response, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		response = []byte(`{"success":false,"message":"operation failed"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, actionResult{Message: message})
}

// respondFailure maps err to a status. Unknown errors are logged and reported
// without detail.
func respondFailure(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, console.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, console.ErrInvalidInput), errors.Is(err, identifier.ErrEmptyCandidate):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, console.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, identifier.ErrTaken),
		errors.Is(err, identifier.ErrExhausted),
		errors.Is(err, storage.ErrCollisionIdentifier),
		errors.Is(err, storage.ErrConcurrentModification):
		respondError(w, http.StatusConflict, err.Error())
	default:
		tflog.Error(ctx, fmt.Sprintf("request failed: %s", err.Error()))
		respondError(w, http.StatusInternalServerError, "operation failed")
	}
}

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: request body: %s", console.ErrInvalidInput, err.Error())
	}
	return nil
}
