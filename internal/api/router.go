// Package api exposes the HTTP surface: student submission endpoints,
// roster operations and the therapist dashboard. Handlers stay thin;
// behavior lives in internal/services.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/campuswell/sentinel/internal/middleware"
	"github.com/campuswell/sentinel/internal/services"
)

type Router struct {
	roster  *services.RosterLedger
	analyze *services.AnalyzeService
	session *services.TherapistSession
	history *services.SubmissionHistory
	vault   *services.AlertVault
}

type Deps struct {
	Roster  *services.RosterLedger
	Analyze *services.AnalyzeService
	Session *services.TherapistSession
	History *services.SubmissionHistory
	Vault   *services.AlertVault
}

func NewRouter(deps Deps) *Router {
	return &Router{
		roster:  deps.Roster,
		analyze: deps.Analyze,
		session: deps.Session,
		history: deps.History,
		vault:   deps.Vault,
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/validate-student", rt.handleValidateStudent) // POST
	mux.HandleFunc("/api/analyze", rt.handleAnalyze)                  // POST
	mux.HandleFunc("/api/consent", rt.handleConsent)                  // POST
	mux.HandleFunc("/api/extra-credit", rt.handleExtraCredit)         // POST
	mux.HandleFunc("/api/therapist/login", rt.handleLogin)            // POST
	mux.HandleFunc("/api/therapist/logout", rt.handleLogout)          // POST
	mux.HandleFunc("/api/therapist/history", rt.handleHistory)        // GET
	mux.HandleFunc("/api/therapist/alerts", rt.handleAlerts)          // GET
}

// POST /api/validate-student — { student_id }
func (rt *Router) handleValidateStudent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		StudentID string `json:"student_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entry, err := rt.roster.Validate(req.StudentID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"valid":      true,
		"student_id": entry.StudentID,
		"first_name": entry.FirstName,
		"consent":    entry.Consent,
		"has_extra":  entry.HasExtra,
		"classes":    entry.Classes,
	})
}

// POST /api/analyze — { student_id, text, consent? }
func (rt *Router) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		StudentID string `json:"student_id"`
		Text      string `json:"text"`
		Consent   bool   `json:"consent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.analyze.Analyze(r.Context(), services.AnalyzeRequest{
		StudentID: req.StudentID,
		Text:      req.Text,
		Consent:   req.Consent,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, res)
}

// POST /api/consent — { student_id, consent }
func (rt *Router) handleConsent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		StudentID string `json:"student_id"`
		Consent   bool   `json:"consent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := rt.roster.SetConsent(req.StudentID, req.Consent); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "consent": req.Consent})
}

// POST /api/extra-credit — { student_id, class }
func (rt *Router) handleExtraCredit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		StudentID string `json:"student_id"`
		Class     string `json:"class"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	granted, alreadyHad, err := rt.roster.GrantExtraCredit(req.StudentID, req.Class)
	if err != nil {
		writeErr(w, err)
		return
	}
	entry, err := rt.roster.Validate(req.StudentID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"granted":     granted,
		"already_had": alreadyHad,
		"classes":     entry.Classes,
	})
}

// POST /api/therapist/login — { username, password }
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	token, err := rt.session.Login(req.Username, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"token":       token,
		"ttl_seconds": int(rt.session.TokenTTL().Seconds()),
	})
}

// POST /api/therapist/logout — bearer token
func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rt.session.Logout(middleware.BearerToken(r))
	writeJSON(w, map[string]any{"ok": true})
}

// GET /api/therapist/history?limit=n — bearer token. Student identities
// are redacted for therapists outside the first-responder group.
func (rt *Router) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := rt.session.Authorize(middleware.BearerToken(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
	}
	type outEntry struct {
		StudentID string                   `json:"student_id,omitempty"`
		Result    *services.AnalysisResult `json:"result"`
		Decision  *services.RiskDecision   `json:"decision"`
		Timestamp string                   `json:"timestamp"`
	}
	entries := rt.history.Recent(limit)
	out := make([]outEntry, 0, len(entries))
	for _, e := range entries {
		oe := outEntry{Result: e.Result, Decision: e.Decision, Timestamp: e.Timestamp.Format(time.RFC3339)}
		if id.FirstResponder {
			oe.StudentID = e.StudentID
		}
		out = append(out, oe)
	}
	writeJSON(w, map[string]any{"entries": out, "redacted": !id.FirstResponder})
}

// GET /api/therapist/alerts — bearer token, first responders only.
func (rt *Router) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := rt.session.Authorize(middleware.BearerToken(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	if !id.FirstResponder {
		writeErr(w, services.NewForbiddenError("alert records are restricted to first responders"))
		return
	}
	writeJSON(w, map[string]any{
		"encryption_enabled": rt.vault.EncryptionEnabled(),
		"alerts":             rt.vault.Records(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	code := services.ErrorCode("internal")
	if se, ok := services.AsServiceError(err); ok {
		msg = se.Message
		code = se.Code
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		case services.ErrorMalformedScore:
			status = http.StatusBadGateway
		case services.ErrorScoringUnavailable:
			status = http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg, "code": code})
}
