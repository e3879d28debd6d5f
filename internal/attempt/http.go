package attempt

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/dmv-trainer/internal/attempt/scoring"
	"github.com/gokatarajesh/dmv-trainer/internal/auth"
	"github.com/gokatarajesh/dmv-trainer/internal/question"
	httperrors "github.com/gokatarajesh/dmv-trainer/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for the learner's current attempt.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for attempt endpoints.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		logger:  logger.With().Str("component", "attempt_http").Logger(),
	}
}

// StartAttemptRequest is the body of POST /v1/attempts.
type StartAttemptRequest struct {
	Mode           string `json:"mode"`
	Difficulty     string `json:"difficulty"`
	ConfidenceMode bool   `json:"confidence_mode"`
	Category       string `json:"category,omitempty"`
	Weakest        bool   `json:"weakest,omitempty"`
}

// AnswerRequest is the body of POST /v1/attempts/current/answers.
type AnswerRequest struct {
	ChoiceIndex *int `json:"choice_index"`
}

type questionView struct {
	ID          string              `json:"id"`
	Question    string              `json:"question"`
	Choices     []string            `json:"choices"`
	Category    question.Category   `json:"category"`
	Difficulty  question.Difficulty `json:"difficulty"`
	AnswerIndex *int                `json:"answer_index,omitempty"`
	Rationale   string              `json:"rationale,omitempty"`
	HandbookRef string              `json:"handbook_ref,omitempty"`
}

type sessionView struct {
	AttemptID          uuid.UUID                   `json:"attempt_id"`
	Mode               Mode                        `json:"mode"`
	ConfidenceMode     bool                        `json:"confidence_mode"`
	SelectedDifficulty question.SelectedDifficulty `json:"selected_difficulty"`
	DifficultyLabel    string                      `json:"difficulty_label"`
	CategoryDrill      *question.Category          `json:"category_drill,omitempty"`
	TotalQuestions     int                         `json:"total_questions"`
	CurrentIndex       int                         `json:"current_index"`
	Answered           int                         `json:"answered"`
	Current            questionView                `json:"current"`
	CurrentAnswer      *AnswerRecord               `json:"current_answer,omitempty"`
	StartedAt          time.Time                   `json:"started_at"`
}

// newSessionView hides the key of the current question until it is answered.
// The rationale is only revealed in practice mode.
func newSessionView(s *Session) sessionView {
	a := s.Attempt
	q, _ := s.CurrentQuestion()
	view := sessionView{
		AttemptID:          a.ID,
		Mode:               a.Mode,
		ConfidenceMode:     a.ConfidenceMode,
		SelectedDifficulty: a.SelectedDifficulty,
		DifficultyLabel:    a.SelectedDifficulty.Label(),
		CategoryDrill:      a.CategoryDrill,
		TotalQuestions:     a.TotalQuestions,
		CurrentIndex:       s.CurrentIndex,
		Answered:           len(s.Answers),
		Current: questionView{
			ID:         q.ID,
			Question:   q.Prompt,
			Choices:    q.Choices,
			Category:   q.Category,
			Difficulty: q.Difficulty,
		},
		StartedAt: a.StartedAt,
	}
	if record, ok := s.AnswerFor(q.ID); ok {
		view.CurrentAnswer = &record
		answerIndex := q.AnswerIndex
		view.Current.AnswerIndex = &answerIndex
		if a.Mode == ModePractice {
			view.Current.Rationale = q.Rationale
			view.Current.HandbookRef = q.HandbookRef
		}
	}
	return view
}

// Start handles POST /v1/attempts
func (h *HTTPHandlers) Start(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := auth.LearnerID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var req StartAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	difficulty, err := question.ParseSelectedDifficulty(req.Difficulty)
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeUnknownDifficulty, err.Error(), "difficulty")
		return
	}

	startReq := StartRequest{
		Mode:           Mode(req.Mode),
		Difficulty:     difficulty,
		ConfidenceMode: req.ConfidenceMode,
		Weakest:        req.Weakest,
	}
	if req.Weakest && req.Category != "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "weakest and category cannot be combined", "category")
		return
	}
	if req.Category != "" {
		category, err := question.ParseCategory(req.Category)
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeUnknownCategory, err.Error(), "category")
			return
		}
		startReq.Category = &category
	}

	session, err := h.service.Start(r.Context(), learnerID, startReq)
	if err != nil {
		h.respondServiceError(w, learnerID, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, newSessionView(session))
}

// Current handles GET /v1/attempts/current
func (h *HTTPHandlers) Current(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := auth.LearnerID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	session, err := h.service.Current(r.Context(), learnerID)
	if err != nil {
		h.respondServiceError(w, learnerID, err)
		return
	}

	h.respondJSON(w, http.StatusOK, newSessionView(session))
}

// Discard handles DELETE /v1/attempts/current
func (h *HTTPHandlers) Discard(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := auth.LearnerID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	if err := h.service.Discard(r.Context(), learnerID); err != nil {
		h.respondServiceError(w, learnerID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Answer handles POST /v1/attempts/current/answers
func (h *HTTPHandlers) Answer(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := auth.LearnerID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.ChoiceIndex == nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "choice_index is required", "choice_index")
		return
	}

	outcome, err := h.service.Answer(r.Context(), learnerID, *req.ChoiceIndex)
	if err != nil {
		h.respondServiceError(w, learnerID, err)
		return
	}

	resp := map[string]interface{}{
		"question_id":    outcome.Record.QuestionID,
		"selected_index": outcome.Record.SelectedIndex,
		"correct":        outcome.Record.Correct,
		"correct_index":  outcome.CorrectIndex,
		"is_last":        outcome.IsLast,
	}
	if outcome.Rationale != "" {
		resp["rationale"] = outcome.Rationale
		resp["handbook_ref"] = outcome.HandbookRef
	}
	h.respondJSON(w, http.StatusOK, resp)
}

// Next handles POST /v1/attempts/current/next
func (h *HTTPHandlers) Next(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := auth.LearnerID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	outcome, err := h.service.Next(r.Context(), learnerID)
	if err != nil {
		h.respondServiceError(w, learnerID, err)
		return
	}

	if outcome.Report != nil {
		h.respondJSON(w, http.StatusOK, map[string]interface{}{
			"finished": true,
			"report":   outcome.Report,
		})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"finished": false,
		"attempt":  newSessionView(outcome.Session),
	})
}

// Report handles GET /v1/attempts/current/report
func (h *HTTPHandlers) Report(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := auth.LearnerID(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	report, err := h.service.Report(r.Context(), learnerID)
	if err != nil {
		h.respondServiceError(w, learnerID, err)
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}

// Categories handles GET /v1/categories
func (h *HTTPHandlers) Categories(w http.ResponseWriter, r *http.Request) {
	type categoryView struct {
		Category question.Category `json:"category"`
		Label    string            `json:"label"`
		Bullets  []string          `json:"bullets"`
	}
	out := make([]categoryView, 0, len(question.Categories))
	for _, c := range question.Categories {
		out = append(out, categoryView{Category: c, Label: c.Label(), Bullets: scoring.Bullets(c)})
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"categories": out})
}

func (h *HTTPHandlers) respondServiceError(w http.ResponseWriter, learnerID uuid.UUID, err error) {
	var poolErr *PoolError
	switch {
	case errors.As(err, &poolErr):
		httperrors.RespondUnprocessable(w, httperrors.ErrCodePoolInsufficient, poolErr.Message(), map[string]interface{}{
			"pool": poolErr.Pool,
			"need": poolErr.Need,
			"have": poolErr.Have,
		})
	case errors.Is(err, ErrNoWeakArea):
		httperrors.RespondUnprocessable(w, httperrors.ErrCodeNoWeakArea, "Finish an attempt before practicing weak areas", nil)
	case errors.Is(err, ErrNoSavedAttempt):
		httperrors.RespondNotFound(w, httperrors.ErrCodeNoSavedAttempt, "No attempt in progress")
	case errors.Is(err, ErrInvalidMode):
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidMode, "mode must be practice or exam", "mode")
	case errors.Is(err, ErrInvalidChoice):
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidChoice, "choice_index is out of range", "choice_index")
	case errors.Is(err, ErrAlreadyAnswered):
		httperrors.RespondConflict(w, httperrors.ErrCodeAlreadyAnswered, "Question already answered")
	case errors.Is(err, ErrNotAnswered):
		httperrors.RespondConflict(w, httperrors.ErrCodeNotAnswered, "Answer the current question first")
	case errors.Is(err, ErrSlotBusy):
		httperrors.RespondConflict(w, httperrors.ErrCodeAttemptBusy, "Another request is updating this attempt")
	default:
		h.logger.Error().Err(err).Str("learner_id", learnerID.String()).Msg("attempt request failed")
		httperrors.RespondInternalError(w, "Attempt request failed")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
