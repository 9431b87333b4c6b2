// Package api exposes the problem dataset, alerts and account forms over HTTP.
package api

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/problemradar/problem-radar/internal/accounts"
	"github.com/problemradar/problem-radar/internal/alerts"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/problems"
	"github.com/problemradar/problem-radar/internal/query"
	"github.com/sirupsen/logrus"
)

const (
	defaultRelatedLimit      = 3
	defaultNotificationLimit = 20
	maxSessions              = 1024
)

// Discovery triggers a discovery pass followed by an alert refresh
type Discovery interface {
	RunDiscovery(ctx context.Context) error
}

// MetricsReporter renders discovery run metrics as JSON
type MetricsReporter interface {
	GetMetrics() string
}

// FeedReader returns the most recent notifications, newest first
type FeedReader interface {
	Recent(limit int) []models.Notification
}

// Options wires the services behind the HTTP API
type Options struct {
	Repository problems.Repository
	Engine     query.Engine
	Classifier query.Classifier
	Alerts     *alerts.Service
	Accounts   *accounts.Service
	Feed       FeedReader
	Discovery  Discovery
	Metrics    MetricsReporter

	// Loader feeds session searches; defaults to the repository contents
	Loader query.Loader
}

// Server holds the handler dependencies
type Server struct {
	repository problems.Repository
	engine     query.Engine
	classifier query.Classifier
	alerts     *alerts.Service
	accounts   *accounts.Service
	feed       FeedReader
	discovery  Discovery
	metrics    MetricsReporter
	loader     query.Loader
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*query.Coordinator
}

// NewServer creates a server from opts
func NewServer(opts Options) *Server {
	s := &Server{
		repository: opts.Repository,
		engine:     opts.Engine,
		classifier: opts.Classifier,
		alerts:     opts.Alerts,
		accounts:   opts.Accounts,
		feed:       opts.Feed,
		discovery:  opts.Discovery,
		metrics:    opts.Metrics,
		loader:     opts.Loader,
		now:        time.Now,
		sessions:   make(map[string]*query.Coordinator),
	}
	if s.loader == nil {
		s.loader = func(ctx context.Context) ([]models.Problem, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return s.repository.GetAll(), nil
		}
	}
	return s
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	router.HandleFunc("/health", s.healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", s.metricsHandler).Methods("GET")
	router.HandleFunc("/dashboard", s.dashboardHandler).Methods("GET")

	router.HandleFunc("/problems", s.searchHandler).Methods("GET")
	router.HandleFunc("/problems/{id}", s.problemHandler).Methods("GET")
	router.HandleFunc("/problems/{id}/related", s.relatedHandler).Methods("GET")

	router.HandleFunc("/alerts", s.listAlertsHandler).Methods("GET")
	router.HandleFunc("/alerts", s.createAlertHandler).Methods("POST")
	router.HandleFunc("/alerts/{id}/toggle", s.toggleAlertHandler).Methods("POST")
	router.HandleFunc("/alerts/{id}", s.deleteAlertHandler).Methods("DELETE")

	router.HandleFunc("/register", s.registerHandler).Methods("POST")
	router.HandleFunc("/profile", s.profileHandler).Methods("GET")
	router.HandleFunc("/profile", s.updateProfileHandler).Methods("PUT")
	router.HandleFunc("/profile/password", s.changePasswordHandler).Methods("POST")

	router.HandleFunc("/notifications", s.notificationsHandler).Methods("GET")
	router.HandleFunc("/discovery/trigger", s.triggerHandler).Methods("POST")

	return router
}

// coordinator returns the search coordinator of a session, creating it on
// first use. The table is reset once it grows past maxSessions.
func (s *Server) coordinator(session string) *query.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.sessions[session]; ok {
		return c
	}
	if len(s.sessions) >= maxSessions {
		logrus.Debugf("Resetting %d search sessions", len(s.sessions))
		s.sessions = make(map[string]*query.Coordinator)
	}
	c := query.NewCoordinator(s.engine, s.loader)
	s.sessions[session] = c
	return c
}
