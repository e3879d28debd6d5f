package progress

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/dmv-trainer/internal/auth"
	httperrors "github.com/gokatarajesh/dmv-trainer/pkg/http/errors"
)

// HTTPHandler exposes REST endpoints for lifetime progress.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandler constructs a progress HTTP handler.
func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "progress_http").Logger(),
	}
}

// HandleGet responds with the learner's lifetime weaknesses and recent results.
// Route: GET /v1/progress?limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := auth.LearnerID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	summary, err := h.svc.Summary(r.Context(), learnerID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("learner_id", learnerID.String()).Msg("progress fetch failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeProgressFetchFailed, "Failed to fetch progress")
		return
	}

	writeJSON(w, map[string]interface{}{
		"learner_id":  learnerID.String(),
		"weaknesses":  summary.Weaknesses,
		"recent":      summary.Recent,
		"source":      summary.Source,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
