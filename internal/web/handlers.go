package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"pdfrag/internal/domain"
	"pdfrag/internal/session"
)

// SessionCookie names the cookie that binds a browser to its session.
const SessionCookie = "pdfrag_session"

// Handler holds the dependencies for HTTP handlers.
type Handler struct {
	sessions *session.Manager
	title    string
	logger   *slog.Logger
}

// NewHandler creates a Handler over the given session manager.
func NewHandler(sessions *session.Manager, title string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sessions: sessions, title: title, logger: logger}
}

type reportView struct {
	Documents int     `json:"documents"`
	Pages     int     `json:"pages"`
	Chunks    int     `json:"chunks"`
	Summary   string  `json:"summary,omitempty"`
	ElapsedMS int64   `json:"elapsed_ms"`
	BuiltAt   string  `json:"built_at"`
	Seconds   float64 `json:"-"`
}

type sessionView struct {
	ID     string      `json:"id"`
	State  string      `json:"state"`
	Stale  bool        `json:"stale"`
	Report *reportView `json:"report,omitempty"`
}

type passageView struct {
	Source string  `json:"source"`
	Page   int     `json:"page,omitempty"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

type answerView struct {
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	ElapsedMS int64         `json:"elapsed_ms"`
	Seconds   float64       `json:"-"`
	Passages  []passageView `json:"passages"`
}

type askRequest struct {
	Question string `json:"question"`
}

func newReportView(r session.Report) *reportView {
	return &reportView{
		Documents: r.Documents,
		Pages:     r.Pages,
		Chunks:    r.Chunks,
		Summary:   r.Summary,
		ElapsedMS: r.Elapsed.Milliseconds(),
		BuiltAt:   r.BuiltAt.UTC().Format(time.RFC3339),
		Seconds:   r.Elapsed.Seconds(),
	}
}

func newSessionView(s *session.Session) sessionView {
	v := sessionView{ID: s.ID(), State: s.State().String(), Stale: s.Stale()}
	if s.IsReady() {
		v.Report = newReportView(s.Report())
	}
	return v
}

func newAnswerView(a *domain.Answer) *answerView {
	v := &answerView{
		Question:  a.Question,
		Answer:    a.Text,
		ElapsedMS: a.Elapsed.Milliseconds(),
		Seconds:   a.Elapsed.Seconds(),
		Passages:  make([]passageView, 0, len(a.Context)),
	}
	for _, r := range a.Context {
		v.Passages = append(v.Passages, passageView{
			Source: filepath.Base(r.Chunk.Source),
			Page:   r.Chunk.Page,
			Score:  r.Score,
			Text:   r.Chunk.Text,
		})
	}
	return v
}

// HandleHealth handles GET /healthz requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": len(h.sessions.List()),
	})
}

// HandleCreateSession handles POST /api/sessions requests.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	h.logger.Debug("session created", "session", s.ID())
	sendJSON(w, http.StatusCreated, newSessionView(s))
}

// HandleGetSession handles GET /api/sessions/{id} requests.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, newSessionView(s))
}

// HandleDeleteSession handles DELETE /api/sessions/{id} requests.
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(mux.Vars(r)["id"]); err != nil {
		h.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBuild handles POST /api/sessions/{id}/build requests.
func (h *Handler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, err)
		return
	}
	report, err := s.Build(r.Context())
	if err != nil {
		h.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, newReportView(report))
}

// HandleAsk handles POST /api/sessions/{id}/ask requests.
func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, err)
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON: " + err.Error()})
		return
	}
	ans, err := s.Ask(r.Context(), req.Question)
	if err != nil {
		h.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, newAnswerView(ans))
}

// HandleIndex handles GET / requests.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	s := h.browserSession(w, r)
	h.render(w, http.StatusOK, h.pageData(s))
}

// HandleForm handles POST / requests: it builds the session index when
// needed, then answers the submitted question. action=build only builds.
func (h *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	s := h.browserSession(w, r)
	data := h.pageData(s)
	if err := r.ParseForm(); err != nil {
		data.Error = "Invalid form: " + err.Error()
		h.render(w, http.StatusBadRequest, data)
		return
	}
	data.Question = strings.TrimSpace(r.PostFormValue("question"))
	buildOnly := r.PostFormValue("action") == "build"

	if !buildOnly && data.Question == "" {
		data.Error = "Type a question first."
		h.render(w, http.StatusBadRequest, data)
		return
	}

	if !s.IsReady() {
		report, err := s.Build(r.Context())
		if err != nil {
			data.Error = err.Error()
			h.render(w, statusFor(err), data)
			return
		}
		data.Report = newReportView(report)
		data.JustBuilt = true
	}
	data.State = s.State().String()
	if buildOnly {
		h.render(w, http.StatusOK, data)
		return
	}

	ans, err := s.Ask(r.Context(), data.Question)
	if err != nil {
		data.Error = err.Error()
		h.render(w, statusFor(err), data)
		return
	}
	data.Answer = newAnswerView(ans)
	h.render(w, http.StatusOK, data)
}

// browserSession returns the session bound to the request cookie,
// creating one and setting the cookie when needed.
func (h *Handler) browserSession(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	s, created := h.sessions.GetOrCreate(id)
	if created {
		h.logger.Debug("browser session created", "session", s.ID())
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    s.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s
}

func (h *Handler) pageData(s *session.Session) pageData {
	d := pageData{Title: h.title, State: s.State().String(), Stale: s.Stale()}
	if s.IsReady() {
		d.Report = newReportView(s.Report())
	}
	return d
}

func (h *Handler) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("render page", "error", err)
	}
}

func (h *Handler) sendError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	sendJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotBuilt), errors.Is(err, domain.ErrBuildInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEmbeddingService), errors.Is(err, domain.ErrGenerationService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// sendJSON writes a JSON response with the given status code.
func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
