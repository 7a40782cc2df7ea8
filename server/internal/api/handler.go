package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alertcore/alertcore/pkg/types"
	"github.com/alertcore/alertcore/server/internal/alerts"
	"github.com/alertcore/alertcore/server/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	mgr *alerts.Manager
	mux *http.ServeMux
}

// New creates a Handler wired to the given alert manager and registers all routes.
func New(mgr *alerts.Manager) http.Handler {
	h := &Handler{mgr: mgr, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)
	h.mux.HandleFunc("/api/v1/alerts/", h.alert) // subtree: {id} and {id}/state
	h.mux.HandleFunc("/api/v1/descriptors", h.descriptors)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: alert counts and notification stats.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s := h.mgr.Summary()
	resp := HealthResponse{
		State:         "ok",
		AlertCount:    s.Total,
		PendingCount:  s.Pending,
		ByState:       make(map[string]int, len(s.ByState)),
		ByLevel:       make(map[string]int, len(s.ByLevel)),
		Descriptors:   len(h.mgr.Descriptors()),
		Notifications: h.mgr.DispatchStats(),
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if s.Pending > 0 {
		resp.State = "attention"
	}
	for st, n := range s.ByState {
		resp.ByState[st.String()] = n
	}
	for lvl, n := range s.ByLevel {
		resp.ByLevel[lvl.String()] = n
	}
	jsonResp(w, http.StatusOK, resp)
}

// alerts serves GET /api/v1/alerts (optionally ?since=RFC3339 or ?after=id)
// and POST /api/v1/alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listAlerts(w, r)
	case http.MethodPost:
		h.createAlert(w, r)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	since, after := q.Get("since"), q.Get("after")

	var it *store.Iterator
	switch {
	case since != "" && after != "":
		jsonErr(w, http.StatusBadRequest, "since and after are mutually exclusive")
		return

	case since != "":
		ts, err := time.Parse(time.RFC3339Nano, since)
		if err != nil {
			jsonErr(w, http.StatusBadRequest, "since: want RFC3339 timestamp")
			return
		}
		it = h.mgr.AlertsSince(ts)

	case after != "":
		id, err := h.mgr.Resolve(after)
		if err != nil {
			jsonErr(w, errStatus(err), err.Error())
			return
		}
		if it, err = h.mgr.AlertsAfter(id); err != nil {
			jsonErr(w, errStatus(err), err.Error())
			return
		}

	default:
		it = h.mgr.Alerts()
	}

	jsonResp(w, http.StatusOK, store.Drain(it))
}

func (h *Handler) createAlert(w http.ResponseWriter, r *http.Request) {
	var req CreateAlertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		jsonErr(w, http.StatusBadRequest, "type is required")
		return
	}
	level := types.LevelInfo
	if req.Level != "" {
		var err error
		if level, err = types.ParseLevel(req.Level); err != nil {
			jsonErr(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	a := h.mgr.Create(req.Type, level, req.Description, req.Content)
	jsonResp(w, http.StatusCreated, a)
}

// alert serves GET and DELETE /api/v1/alerts/{id} and
// POST /api/v1/alerts/{id}/state.
func (h *Handler) alert(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	if rest == "" {
		// Bare /api/v1/alerts/ behaves like the collection.
		h.alerts(w, r)
		return
	}

	idStr, sub, _ := strings.Cut(rest, "/")
	id, err := h.mgr.Resolve(idStr)
	if err != nil {
		jsonErr(w, errStatus(err), err.Error())
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		a, err := h.mgr.Get(id)
		if err != nil {
			jsonErr(w, errStatus(err), err.Error())
			return
		}
		jsonResp(w, http.StatusOK, a)

	case sub == "" && r.Method == http.MethodDelete:
		a, err := h.mgr.Remove(id)
		if err != nil {
			jsonErr(w, errStatus(err), err.Error())
			return
		}
		jsonResp(w, http.StatusOK, a)

	case sub == "state" && r.Method == http.MethodPost:
		h.changeState(w, r, id)

	case sub == "" || sub == "state":
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")

	default:
		jsonErr(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) changeState(w http.ResponseWriter, r *http.Request, id types.AlertID) {
	var req ChangeStateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	state, err := types.ParseState(req.State)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	current, err := h.mgr.Get(id)
	if err != nil {
		jsonErr(w, errStatus(err), err.Error())
		return
	}
	updated, err := h.mgr.ChangeState(current, state, req.Message)
	if err != nil {
		jsonErr(w, errStatus(err), err.Error())
		return
	}
	jsonResp(w, http.StatusOK, updated)
}

// descriptors serves GET and POST /api/v1/descriptors. Registering a type
// that already exists answers 409 and leaves the original in place.
func (h *Handler) descriptors(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jsonResp(w, http.StatusOK, h.mgr.Descriptors())

	case http.MethodPost:
		var d types.Descriptor
		if !decodeBody(w, r, &d) {
			return
		}
		if strings.TrimSpace(d.AlertType()) == "" {
			jsonErr(w, http.StatusBadRequest, "alert_type is required")
			return
		}
		if !h.mgr.AddDescriptor(d) {
			jsonErr(w, http.StatusConflict, "descriptor already registered")
			return
		}
		jsonResp(w, http.StatusCreated, d)

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// decodeBody reads a JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// errStatus maps manager errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrMalformedID):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
