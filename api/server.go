package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wricardo/chess-referee/game/service"
	"github.com/wricardo/chess-referee/game/session"
)

// WebSocketHandler upgrades /ws requests.
type WebSocketHandler interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// Server represents the REST API server
type Server struct {
	service service.GameService
	ws      WebSocketHandler
	router  *mux.Router
}

// NewServer creates a new API server. ws may be nil, in which case /ws is
// not mounted.
func NewServer(gameService service.GameService, ws WebSocketHandler) *Server {
	s := &Server{
		service: gameService,
		ws:      ws,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("", s.handleIndex).Methods("GET")
	api.HandleFunc("/", s.handleIndex).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/players", s.handleListPlayers).Methods("GET")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")

	if s.ws != nil {
		s.router.HandleFunc("/ws", s.ws.ServeWS)
	}
}

// Router exposes the mux router so callers can mount more handlers.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.Status(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"server": status,
		"endpoints": map[string]string{
			"health":   "/api/health",
			"players":  "/api/players",
			"sessions": "/api/sessions",
			"session":  "/api/sessions/{id}",
			"ws":       "/ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.service.ListPlayers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"players": players,
		"count":   len(players),
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if player := r.URL.Query().Get("player"); player != "" {
		filtered := make([]*session.Snapshot, 0, 1)
		for _, snap := range list.Sessions {
			if snap.White == player || snap.Black == player {
				filtered = append(filtered, snap)
			}
		}
		list = &service.SessionList{Sessions: filtered, Count: len(filtered)}
	}

	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	snap, err := s.service.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, snap)
}
