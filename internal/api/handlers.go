package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/problemradar/problem-radar/internal/accounts"
	"github.com/problemradar/problem-radar/internal/alerts"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/query"
	"github.com/sirupsen/logrus"
)

// SessionHeader names the search session of a request
const SessionHeader = "X-Session-ID"

// ProblemView is a problem with its display badges
type ProblemView struct {
	models.Problem
	UrgencyBadge  query.UrgencyBand `json:"urgency_badge"`
	SentimentTone query.Tone        `json:"sentiment_tone"`
	KeywordsShown []string          `json:"keywords_shown"`
	KeywordsMore  int               `json:"keywords_more"`
}

// SearchResponse is the body of GET /problems
type SearchResponse struct {
	Results []ProblemView `json:"results"`
	Total   int           `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) view(p models.Problem) ProblemView {
	shown, more := query.SplitKeywords(p.Keywords, query.MaxShownKeywords)
	if shown == nil {
		shown = []string{}
	}
	return ProblemView{
		Problem:       p,
		UrgencyBadge:  s.classifier.UrgencyBadge(p.UrgencyScore),
		SentimentTone: query.SentimentTone(p.Sentiment),
		KeywordsShown: shown,
		KeywordsMore:  more,
	}
}

func (s *Server) views(problems []models.Problem) []ProblemView {
	out := make([]ProblemView, 0, len(problems))
	for _, p := range problems {
		out = append(out, s.view(p))
	}
	return out
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().Format(time.RFC3339),
	})
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if s.metrics == nil {
		w.Write([]byte(`{}`))
		return
	}
	w.Write([]byte(s.metrics.GetMetrics()))
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.repository.Metrics())
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	category, err := query.ParseCategoryFilter(params.Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	platform, err := query.ParsePlatformFilter(params.Get("platform"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	band, err := query.ParseUrgencyBand(params.Get("urgency"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := query.ParseSortKey(params.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	spec := query.FilterSpec{
		Text:     params.Get("q"),
		Category: category,
		Platform: platform,
		Urgency:  band,
	}

	var results []models.Problem
	if session := r.Header.Get(SessionHeader); session != "" {
		results, err = s.coordinator(session).Search(r.Context(), spec, key)
		switch {
		case errors.Is(err, query.ErrSuperseded):
			writeError(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			logrus.Errorf("Search for session %s failed: %v", session, err)
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
	} else {
		results = s.engine.Run(s.repository.GetAll(), spec, key)
	}

	writeJSON(w, http.StatusOK, SearchResponse{Results: s.views(results), Total: len(results)})
}

func (s *Server) problemHandler(w http.ResponseWriter, r *http.Request) {
	problem, ok := s.repository.GetByID(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "problem not found")
		return
	}
	writeJSON(w, http.StatusOK, s.view(problem))
}

func (s *Server) relatedHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultRelatedLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	problem, ok := s.repository.GetByID(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "problem not found")
		return
	}

	related := s.repository.GetRelated(problem, limit)
	writeJSON(w, http.StatusOK, SearchResponse{Results: s.views(related), Total: len(related)})
}

func (s *Server) listAlertsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.alerts.List())
}

func (s *Server) createAlertHandler(w http.ResponseWriter, r *http.Request) {
	var draft models.AlertDraft
	if !decodeJSON(w, r, &draft) {
		return
	}

	alert, err := s.alerts.Create(draft)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

func (s *Server) toggleAlertHandler(w http.ResponseWriter, r *http.Request) {
	alert, err := s.alerts.Toggle(mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (s *Server) deleteAlertHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.alerts.Delete(mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var form accounts.RegistrationForm
	if !decodeJSON(w, r, &form) {
		return
	}

	user, err := s.accounts.Register(form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.accounts.User())
}

func (s *Server) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var form accounts.ProfileForm
	if !decodeJSON(w, r, &form) {
		return
	}

	user, err := s.accounts.UpdateProfile(form)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) changePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var form accounts.PasswordForm
	if !decodeJSON(w, r, &form) {
		return
	}

	if err := s.accounts.ChangePassword(form); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultNotificationLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recent := []models.Notification{}
	if s.feed != nil {
		if n := s.feed.Recent(limit); n != nil {
			recent = n
		}
	}
	writeJSON(w, http.StatusOK, recent)
}

func (s *Server) triggerHandler(w http.ResponseWriter, r *http.Request) {
	if s.discovery == nil {
		writeError(w, http.StatusServiceUnavailable, "discovery is not configured")
		return
	}

	go func() {
		if err := s.discovery.RunDiscovery(context.Background()); err != nil {
			logrus.Errorf("Manual discovery trigger failed: %v", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Discovery triggered successfully"})
}

func intParam(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name + ": " + raw)
	}
	return value, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var alertErr *alerts.ValidationError
	var accountErr *accounts.ValidationError
	switch {
	case errors.As(err, &alertErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: alertErr.Message, Field: alertErr.Field})
	case errors.As(err, &accountErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: accountErr.Message, Field: accountErr.Field})
	case errors.Is(err, alerts.ErrAlertNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logrus.Errorf("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("Handled request")
	})
}
