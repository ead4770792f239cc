// Package rpcsurface implements the minimal read-only HTTP+WS snapshot
// surface (spec.md §4.Q): workspace_home, the review inbox, and a run
// monitor, plus the one mutating endpoint — resolving a pending review.
// It replaces the teacher's dashboard server with a thin projection over
// internal/index and internal/review; there is no server-held state
// beyond the broadcast hub.
package rpcsurface

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/CLIAIMONITOR/internal/index"
	"github.com/CLIAIMONITOR/internal/review"
	"github.com/CLIAIMONITOR/internal/types"
)

var errMissingQuery = errors.New("rpcsurface: project_id or status query parameter is required")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the HTTP+WS surface bound to one workspace root.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	hub        *Hub

	root   string
	store  *index.Store
	review *review.Service
}

// NewServer builds a Server for root, backed by store and reviewSvc.
// Call Serve to start accepting connections; its Hub must be run
// separately (callers typically `go server.Hub().Run()` once at startup).
func NewServer(root string, store *index.Store, reviewSvc *review.Service) *Server {
	s := &Server{
		router: mux.NewRouter(),
		hub:    NewHub(),
		root:   root,
		store:  store,
		review: reviewSvc,
	}
	s.routes()
	return s
}

// Hub returns the server's broadcast hub so callers can run it and push
// updates (e.g. from the sync worker or the notify bridge).
func (s *Server) Hub() *Hub { return s.hub }

// Router exposes the underlying mux so callers can mount additional
// handlers (e.g. the MCP tool surface) on the same listener.
func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) routes() {
	s.router.Use(securityHeadersMiddleware)
	s.router.HandleFunc("/api/workspace_home", s.handleWorkspaceHome).Methods(http.MethodGet)
	s.router.HandleFunc("/api/reviews/pending", s.handlePendingReviews).Methods(http.MethodGet)
	s.router.HandleFunc("/api/reviews/recent", s.handleRecentDecisions).Methods(http.MethodGet)
	s.router.HandleFunc("/api/reviews/resolve", s.handleResolveReview).Methods(http.MethodPost)
	s.router.HandleFunc("/api/runs", s.handleRunMonitor).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebsocket)
}

// Serve starts the HTTP server on addr. It blocks until the server stops
// (Shutdown is called or it errors), mirroring http.Server.ListenAndServe.
func (s *Server) Serve(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// workspaceHome is the snapshot returned by /api/workspace_home: just
// enough to render a landing page without walking the tree client-side.
type workspaceHome struct {
	Company        types.Company `json:"company"`
	ProjectCount   int           `json:"project_count"`
	PendingReviews int           `json:"pending_reviews"`
}

func (s *Server) handleWorkspaceHome(w http.ResponseWriter, r *http.Request) {
	var company types.Company
	data, err := os.ReadFile(filepath.Join(s.root, "company", "company.yaml"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := types.StrictUnmarshalYAML(data, &company); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	projectCount := 0
	if entries, err := os.ReadDir(filepath.Join(s.root, "work", "projects")); err == nil {
		for _, e := range entries {
			if e.IsDir() {
				projectCount++
			}
		}
	}

	pending, err := s.review.Pending()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, workspaceHome{Company: company, ProjectCount: projectCount, PendingReviews: len(pending)})
}

func (s *Server) handlePendingReviews(w http.ResponseWriter, r *http.Request) {
	pending, err := s.review.Pending()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (s *Server) handleRecentDecisions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	decisions, err := s.review.RecentDecisions(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, decisions)
}

func (s *Server) handleResolveReview(w http.ResponseWriter, r *http.Request) {
	var req review.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rv, err := s.review.Resolve(req)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}

	s.hub.BroadcastJSON(types.WSTypeReviewInbox, rv)
	writeJSON(w, http.StatusOK, rv)
}

func (s *Server) handleRunMonitor(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	status := r.URL.Query().Get("status")

	var runs []types.Run
	var err error
	switch {
	case projectID != "":
		runs, err = s.store.RunsByProject(projectID)
	case status != "":
		runs, err = s.store.RunsByStatus(types.RunStatus(status))
	default:
		writeError(w, http.StatusBadRequest, errMissingQuery)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	c := &client{hub: s.hub, conn: conn, send: make(chan []byte, websocketBufferSize)}
	s.hub.register <- c
	go c.writePump()
	go c.readPump()
}
