// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/aldicoding12/frontend-ulil-sub000/internal/apperr"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/calendar"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/model"
	"github.com/aldicoding12/frontend-ulil-sub000/internal/service"
)

// ReservationHandler holds all HTTP handlers for the reservation API.
type ReservationHandler struct {
	svc *service.ReservationService
	now func() time.Time
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc, now: time.Now}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindCapacityExceeded, apperr.KindConflict, apperr.KindDuplicate, apperr.KindStateTransition:
		return http.StatusConflict
	case apperr.KindPassed, apperr.KindNotBookable, apperr.KindNotRegistrable, apperr.KindNotLendable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error: model.ErrorBody{Code: "internal", Message: "internal server error"},
		})
		return
	}
	writeJSON(w, statusFor(e.Kind), model.ErrorResponse{Error: model.ErrorBody{
		Code:     string(e.Kind),
		Message:  e.Message,
		Field:    e.Field,
		Conflict: e.Conflict,
	}})
}

func writeBadBody(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: model.ErrorBody{
		Code:    string(apperr.KindValidation),
		Message: "invalid request body: " + err.Error(),
	}})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeOptionalJSON is decodeJSON that accepts an empty body.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// parseTimeParam accepts RFC 3339 or a YYYY-MM-DD date key.
func (h *ReservationHandler) parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := calendar.ParseDateKey(v, h.svc.Location())
	if err != nil {
		return nil, apperr.Validation(name, "must be RFC 3339 or YYYY-MM-DD")
	}
	return &t, nil
}

// activityView adds the free seat count to an activity.
type activityView struct {
	model.Activity
	Remaining int `json:"remaining"`
}

func (h *ReservationHandler) view(a model.Activity) activityView {
	return activityView{Activity: a, Remaining: h.svc.Remaining(a)}
}

// ─── Activities ───────────────────────────────────────────────────────────────

// CreateActivity handles POST /activities
func (h *ReservationHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req model.CreateActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	a, err := h.svc.CreateActivity(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.view(*a))
}

// ListActivities handles GET /activities?from=&to=&category=&status=
// Only published activities are listed unless status is given; status=all
// lists every status.
func (h *ReservationHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.ActivityFilter{Category: q.Get("category"), Status: model.ActivityPublished}

	var err error
	if f.From, err = h.parseTimeParam(r, "from"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.To, err = h.parseTimeParam(r, "to"); err != nil {
		writeError(w, r, err)
		return
	}
	switch s := q.Get("status"); s {
	case "":
	case "all":
		f.Status = ""
	default:
		f.Status = model.ActivityStatus(s)
	}

	list, err := h.svc.ListActivitiesInRange(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]activityView, 0, len(list))
	for _, a := range list {
		out = append(out, h.view(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetActivity handles GET /activities/{id}
func (h *ReservationHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(*a))
}

// UpdateActivity handles PUT /activities/{id}
func (h *ReservationHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	a, err := h.svc.UpdateActivity(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(*a))
}

// DeleteActivity handles DELETE /activities/{id}
func (h *ReservationHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteActivity(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Register handles POST /activities/{id}/register
// Performs a concurrency-safe registration for the specified activity.
func (h *ReservationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	res, err := h.svc.RegisterForActivity(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListRegistrations handles GET /activities/{id}/registrations
func (h *ReservationHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListRegistrations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// ─── Calendar ─────────────────────────────────────────────────────────────────

// MonthGrid handles GET /calendar/{year}/{month}?category=
func (h *ReservationHandler) MonthGrid(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, r, apperr.Validation("year", "must be a number"))
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, r, apperr.Validation("month", "must be a number"))
		return
	}

	cells, err := h.svc.MonthGrid(r.Context(), year, time.Month(month), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cells)
}

// ActivitiesOnDate handles GET /calendar/day/{date}
func (h *ReservationHandler) ActivitiesOnDate(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetActivitiesOnDate(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]activityView, 0, len(list))
	for _, a := range list {
		out = append(out, h.view(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// ─── Conflicts ────────────────────────────────────────────────────────────────

// CheckConflict handles POST /conflicts/check
func (h *ReservationHandler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	var req model.ConflictCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadBody(w, err)
		return
	}

	res, err := h.svc.CheckConflict(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
