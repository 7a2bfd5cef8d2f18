package app

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"newsletter/api/internal/editor"
	"newsletter/api/internal/newsletter"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.service.ActiveSessions()})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/themes" {
		writeJSON(w, http.StatusOK, map[string]any{"themes": newsletter.Themes()})
		return
	}

	if r.URL.Path == "/api/newsletter" {
		s.handleNewsletter(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/newsletter/search" {
		query := r.URL.Query()
		limit, _ := strconv.Atoi(query.Get("limit"))
		offset, _ := strconv.Atoi(query.Get("offset"))
		writeJSON(w, http.StatusOK, s.service.SearchNewsletters(r.Context(), strings.TrimSpace(query.Get("q")), limit, offset))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/assistant/key" {
		setupToken := strings.TrimSpace(r.Header.Get("x-newsletter-setup-token"))
		if !validSetupToken(setupToken, s.service.SetupToken()) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		var body struct {
			APIKey string `json:"apiKey"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.ConfigureAssistant(strings.TrimSpace(body.APIKey)); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/sessions" {
		var body struct {
			DocumentID string `json:"documentId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		state, err := s.service.OpenSession(r.Context(), body.DocumentID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, state)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "sessions" {
		s.handleSession(w, r, parts[2], parts[3:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// handleNewsletter serves the persistence API.
func (s *HTTPServer) handleNewsletter(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if id := r.URL.Query().Get("id"); id != "" {
			doc, err := s.service.GetNewsletter(r.Context(), id)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			// null when nothing is stored under id
			writeJSON(w, http.StatusOK, doc)
			return
		}
		docs, err := s.service.ListNewsletters(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	case http.MethodPost:
		var doc newsletter.Document
		if err := decodeBody(r, &doc); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		saved, err := s.service.SaveNewsletter(r.Context(), doc)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request, sessionID string, parts []string) {
	session, err := s.service.Session(sessionID)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, session.State())
		case http.MethodDelete:
			if err := s.service.CloseSession(r.Context(), sessionID); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	switch {
	case r.Method == http.MethodGet && len(parts) == 1 && parts[0] == "events":
		s.handleEvents(w, r, session)
		return

	case parts[0] == "blocks":
		s.handleBlocks(w, r, session, parts[1:])
		return

	case r.Method == http.MethodPut && len(parts) == 1 && parts[0] == "theme":
		var body struct {
			Key string `json:"key"`
			newsletter.Theme
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		theme := body.Theme
		if strings.TrimSpace(body.Key) != "" {
			builtIn, ok := newsletter.LookupTheme(body.Key)
			if !ok {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown theme", map[string]any{"key": body.Key})
				return
			}
			theme = builtIn
		}
		if strings.TrimSpace(theme.FontFamily) == "" || strings.TrimSpace(theme.PrimaryColor) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "theme key or fontFamily and primaryColor are required", nil)
			return
		}
		writeState(w)(session.ApplyTheme(theme))
		return

	case r.Method == http.MethodPut && len(parts) == 1 && parts[0] == "title":
		var body struct {
			Title string `json:"title"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		writeState(w)(session.SetTitle(body.Title))
		return

	case r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "undo":
		writeState(w)(session.Undo())
		return

	case r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "redo":
		writeState(w)(session.Redo())
		return

	case r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "select":
		var body struct {
			BlockID string `json:"blockId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		writeState(w)(session.Select(body.BlockID))
		return

	case r.Method == http.MethodPut && len(parts) == 1 && parts[0] == "view":
		var body struct {
			Tab     string `json:"tab"`
			Preview string `json:"preview"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		s.handleView(w, session, body.Tab, body.Preview)
		return

	case r.Method == http.MethodPost && len(parts) == 1 && parts[0] == "save":
		state, err := session.Save(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "SAVE_FAILED", "Failed to save newsletter", map[string]any{"state": state})
			return
		}
		writeJSON(w, http.StatusOK, state)
		return

	case r.Method == http.MethodPost && len(parts) == 2 && parts[0] == "ai":
		s.handleAI(w, r, sessionID, parts[1])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleBlocks(w http.ResponseWriter, r *http.Request, session *editor.Session, parts []string) {
	switch {
	case r.Method == http.MethodPost && len(parts) == 0:
		var body struct {
			Type string `json:"type"`
			newsletter.BlockInput
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		blockType, err := newsletter.ParseBlockType(body.Type)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		state, err := session.Add(blockType, body.BlockInput)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, state)

	case r.Method == http.MethodPatch && len(parts) == 1:
		var patch newsletter.BlockPatch
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		writeState(w)(session.Update(parts[0], patch))

	case r.Method == http.MethodDelete && len(parts) == 1:
		writeState(w)(session.Remove(parts[0]))

	case r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "move":
		var body struct {
			Direction string `json:"direction"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		direction := newsletter.Direction(strings.ToLower(strings.TrimSpace(body.Direction)))
		if direction != newsletter.DirectionUp && direction != newsletter.DirectionDown {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "direction must be up or down", nil)
			return
		}
		writeState(w)(session.Move(parts[0], direction))

	case r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "duplicate":
		writeState(w)(session.Duplicate(parts[0]))

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleView(w http.ResponseWriter, session *editor.Session, tab, preview string) {
	var (
		state editor.State
		err   error
	)
	if strings.TrimSpace(tab) != "" {
		parsed, parseErr := editor.ParseTab(tab)
		if parseErr != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", parseErr.Error(), nil)
			return
		}
		if state, err = session.SetTab(parsed); err != nil {
			writeMappedError(w, err)
			return
		}
	}
	if strings.TrimSpace(preview) != "" {
		parsed, parseErr := editor.ParsePreviewMode(preview)
		if parseErr != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", parseErr.Error(), nil)
			return
		}
		if state, err = session.SetPreview(parsed); err != nil {
			writeMappedError(w, err)
			return
		}
	}
	if state.SessionID == "" {
		state = session.State()
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *HTTPServer) handleAI(w http.ResponseWriter, r *http.Request, sessionID, action string) {
	var body struct {
		Prompt      string `json:"prompt"`
		Tier        string `json:"tier"`
		AspectRatio string `json:"aspectRatio"`
	}
	if action != "subjects" {
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
	}

	switch action {
	case "copy":
		state, err := s.service.GenerateCopy(r.Context(), sessionID, body.Prompt, body.Tier)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	case "image":
		state, err := s.service.GenerateImage(r.Context(), sessionID, body.Prompt, body.AspectRatio)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	case "subjects":
		subjects, err := s.service.SuggestSubjects(r.Context(), sessionID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		logrus.WithFields(logrus.Fields{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      writer.status,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("request")
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the event stream upgrade through the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func validSetupToken(given, expected string) bool {
	if given == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Newsletter-Setup-Token")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

// writeState returns a writer for the (state, error) pair every session
// operation produces.
func writeState(w http.ResponseWriter) func(editor.State, error) {
	return func(state editor.State, err error) {
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, editor.ErrSessionNotFound) || errors.Is(err, editor.ErrSessionClosed) {
		return http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found", nil
	}
	if errors.Is(err, editor.ErrGenerationInProgress) {
		return http.StatusConflict, "GENERATION_IN_PROGRESS", "A generation request is already running", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
