package worker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	gormdb "github.com/thebtf/decision-fitness/internal/db/gorm"
	"github.com/thebtf/decision-fitness/internal/journal"
	"github.com/thebtf/decision-fitness/internal/playbook"
	"github.com/thebtf/decision-fitness/pkg/models"
)

// DefaultDecisionsLimit is the default page size of GET /api/decisions.
const DefaultDecisionsLimit = 50

// writeJSON writes a 200 JSON response.
func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, errorResponse{Error: msg})
}

// writeServiceError maps journal and request errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, errBadRequest),
		errors.Is(err, journal.ErrInvalidDraft),
		errors.Is(err, journal.ErrInvalidFollowUp),
		errors.Is(err, journal.ErrInvalidCheckIn):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, journal.ErrDecisionNotFound),
		errors.Is(err, journal.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, journal.ErrPlanFull):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, journal.ErrQuotaExceeded):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", GetRequestID(r.Context())).
			Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// handleHealth answers immediately, even during initialization.
// Use /api/ready for the readiness check.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "starting"
	resp := map[string]any{
		"version":     s.version,
		"uptime":      time.Since(s.startTime).Round(time.Second).String(),
		"sse_clients": s.sseBroadcaster.ClientCount(),
	}

	switch {
	case s.ready.Load():
		status = "ready"
		b := s.currentBackend()
		resp["backend"] = b.Name
		if b.Stats != nil {
			resp["storage"] = b.Stats()
		}
		if rem := s.currentReminders(); rem != nil {
			resp["reminders"] = rem.Stats()
		}
		resp["journals_loaded"] = s.Journal().Loaded()
		if b.Health != nil {
			if err := b.Health(r.Context()); err != nil {
				status = "degraded"
				resp["storage_error"] = err.Error()
			}
		}
	case s.GetInitError() != nil:
		status = "error"
	}

	resp["rate_limit"] = s.limiter.Stats()
	resp["status"] = status
	writeJSON(w, resp)
}

// handleVersion returns the worker version.
func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"version": s.version,
	})
}

// handleReady returns 200 only when fully initialized, 503 otherwise.
func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		if err := s.GetInitError(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, "service initializing")
		return
	}
	writeJSON(w, map[string]string{"status": "ready"})
}

// requireReady is middleware that returns 503 if service isn't ready.
func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			if err := s.GetInitError(); err != nil {
				writeError(w, http.StatusInternalServerError, "service initialization failed: "+err.Error())
				return
			}
			writeError(w, http.StatusServiceUnavailable, "service initializing")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validateDecisionID rejects malformed {id} URL parameters.
func validateDecisionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := ValidateID(chi.URLParam(r, "id")); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DecisionView is a saved decision plus the values derived from it for
// display.
type DecisionView struct {
	models.SavedDecision
	Labels       playbook.Labels     `json:"labels"`
	InputDisplay models.InputDisplay `json:"inputDisplay"`
	Replay       string              `json:"replay,omitempty"`
	ActionLabel  string              `json:"actionLabel,omitempty"`
	OutcomeLabel string              `json:"outcomeLabel,omitempty"`
	CheckInDay   int                 `json:"checkInDay"`
	CheckInDue   bool                `json:"checkInDue"`
}

func (s *Service) view(j *journal.Service, d models.SavedDecision) DecisionView {
	book := j.Playbook()
	now := j.Now()
	labels, _ := book.Labels(d.Recommendation)

	v := DecisionView{
		SavedDecision: d,
		Labels:        labels,
		InputDisplay:  d.Input.Display(),
		CheckInDay:    journal.CheckInDay(d.Created(), now),
		CheckInDue:    journal.CheckInDue(d, now),
	}
	if fu := d.FollowUp; fu != nil {
		v.Replay = playbook.ReplayEvaluation(d.Recommendation, fu.ActionTaken, fu.Outcome)
		v.ActionLabel = book.ActionLabel(fu.ActionTaken)
		v.OutcomeLabel = book.OutcomeLabel(fu.Outcome)
	}
	return v
}

// DecisionPage is the body of GET /api/decisions.
type DecisionPage struct {
	Decisions []DecisionView `json:"decisions"`
	Total     int            `json:"total"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
}

func (s *Service) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var draft models.Draft
	if err := s.validator.Decode(r, schemaDraft, &draft); err != nil {
		writeServiceError(w, r, err)
		return
	}
	preview, err := s.Journal().Preview(draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, preview)
}

func (s *Service) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())
	j := s.Journal()

	decisions, err := j.List(r.Context(), owner.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	page := gormdb.ParsePaginationParams(r, DefaultDecisionsLimit)
	start, end := page.Window(len(decisions))

	views := make([]DecisionView, 0, end-start)
	for _, d := range decisions[start:end] {
		views = append(views, s.view(j, d))
	}
	writeJSON(w, DecisionPage{
		Decisions: views,
		Total:     len(decisions),
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
}

func (s *Service) handleCreateDecision(w http.ResponseWriter, r *http.Request) {
	var draft models.Draft
	if err := s.validator.Decode(r, schemaDraft, &draft); err != nil {
		writeServiceError(w, r, err)
		return
	}
	owner, _ := OwnerFromContext(r.Context())
	j := s.Journal()

	saved, err := j.Save(r.Context(), owner, draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, s.view(j, saved))
}

// handleGetDecision returns one decision, creating its action plan from the
// recommendation template on first access.
func (s *Service) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())
	j := s.Journal()

	d, err := j.Get(r.Context(), owner.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, s.view(j, d))
}

func (s *Service) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	var in journal.FollowUpInput
	if err := s.validator.Decode(r, schemaFollowUp, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMutation(w, r, http.StatusOK, func(ctx context.Context, j *journal.Service, userID, id string) (models.SavedDecision, error) {
		return j.RecordFollowUp(ctx, userID, id, in)
	})
}

func (s *Service) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var in journal.CheckInInput
	if err := s.validator.Decode(r, schemaCheckIn, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMutation(w, r, http.StatusOK, func(ctx context.Context, j *journal.Service, userID, id string) (models.SavedDecision, error) {
		return j.RecordCheckIn(ctx, userID, id, in)
	})
}

// planItemRequest is the body of POST /plan/items.
type planItemRequest struct {
	Text string `json:"text"`
}

func (s *Service) handleAddPlanItem(w http.ResponseWriter, r *http.Request) {
	var in planItemRequest
	if err := s.validator.Decode(r, schemaPlanItem, &in); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMutation(w, r, http.StatusCreated, func(ctx context.Context, j *journal.Service, userID, id string) (models.SavedDecision, error) {
		return j.AddPlanItem(ctx, userID, id, in.Text)
	})
}

func (s *Service) handleUpdatePlanItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if err := ValidateID(itemID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var patch journal.PlanItemPatch
	if err := s.validator.Decode(r, schemaPlanItemPatch, &patch); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.respondMutation(w, r, http.StatusOK, func(ctx context.Context, j *journal.Service, userID, id string) (models.SavedDecision, error) {
		return j.UpdatePlanItem(ctx, userID, id, itemID, patch)
	})
}

func (s *Service) handleRestorePlan(w http.ResponseWriter, r *http.Request) {
	s.respondMutation(w, r, http.StatusOK, func(ctx context.Context, j *journal.Service, userID, id string) (models.SavedDecision, error) {
		return j.RestorePlanTemplate(ctx, userID, id)
	})
}

// respondMutation runs a write against the decision named in the URL and
// writes the updated view.
func (s *Service) respondMutation(w http.ResponseWriter, r *http.Request, status int,
	fn func(ctx context.Context, j *journal.Service, userID, decisionID string) (models.SavedDecision, error),
) {
	owner, _ := OwnerFromContext(r.Context())
	j := s.Journal()

	d, err := fn(r.Context(), j, owner.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, status, s.view(j, d))
}

// handleDashboard computes the user's dashboard. Concurrent requests for the
// same user share one computation.
func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())
	j := s.Journal()

	// The shared computation outlives any single caller's request.
	ch := s.dashboards.DoChan(owner.UserID, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), DefaultHTTPTimeout)
		defer cancel()
		return j.Dashboard(ctx, owner.UserID)
	})

	select {
	case <-r.Context().Done():
		return
	case res := <-ch:
		if res.Err != nil {
			writeServiceError(w, r, res.Err)
			return
		}
		writeJSON(w, res.Val)
	}
}

// handleEvents streams dashboard_updated events for the caller's journal
// until the client disconnects or the worker shuts down.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	s.sseBroadcaster.HandleSSE(owner.UserID, w, r.WithContext(ctx))
}
