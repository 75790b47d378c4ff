package store

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ldi/tend/pkg/models"
)

// Server exposes the store over the REST contract the client speaks:
// GET/POST /todos and PUT/DELETE /todos/{id}, JSON bodies, plain-text
// error responses.
type Server struct {
	store  *Store
	server *http.Server
}

func NewServer(store *Store) *Server {
	return &Server{store: store}
}

// Handler returns the route table, exported so tests can drive it through
// httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/todos", s.handleCollection)
	mux.HandleFunc("/todos/", s.handleItem)
	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tasks, err := s.store.ListTodos(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.respond(w, http.StatusOK, tasks)

	case http.MethodPost:
		var body struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.Title) == "" {
			http.Error(w, "title must not be empty", http.StatusBadRequest)
			return
		}

		t := models.Task{
			Title:       strings.TrimSpace(body.Title),
			Description: body.Description,
		}
		if err := s.store.CreateTodo(r.Context(), &t); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.respond(w, http.StatusCreated, t)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/todos/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var body struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Completed   bool   `json:"completed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.Title) == "" {
			http.Error(w, "title must not be empty", http.StatusBadRequest)
			return
		}

		fields := models.TaskFields{
			Title:       strings.TrimSpace(body.Title),
			Description: body.Description,
			Completed:   body.Completed,
		}
		replaced, err := s.store.ReplaceTodo(r.Context(), id, fields)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if replaced == nil {
			http.Error(w, "todo not found: "+id, http.StatusNotFound)
			return
		}
		s.respond(w, http.StatusOK, replaced)

	case http.MethodDelete:
		found, err := s.store.DeleteTodo(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "todo not found: "+id, http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
