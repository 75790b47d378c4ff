package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ldi/tend/pkg/models"
)

func TestListDecodesCollection(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/todos" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]models.Task{
			{ID: "1", Title: "A", CreatedAt: created},
			{ID: "2", Title: "B", Completed: true, CreatedAt: created},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	tasks, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "1" || !tasks[0].CreatedAt.Equal(created) {
		t.Errorf("Unexpected first task %+v", tasks[0])
	}
}

func TestCreateSendsTitleAndDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/todos" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if body["title"] != "Buy milk" || body["description"] != "semi-skimmed" {
			t.Errorf("Unexpected body %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Task{ID: "3", Title: body["title"], Description: body["description"]})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	created, err := client.Create(context.Background(), "Buy milk", "semi-skimmed")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != "3" {
		t.Errorf("Expected store-assigned id 3, got %s", created.ID)
	}
}

func TestReplaceSendsFullFieldSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/todos/7" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		var fields models.TaskFields
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if fields.Title != "A" || !fields.Completed {
			t.Errorf("Unexpected fields %+v", fields)
		}
		json.NewEncoder(w).Encode(models.Task{ID: "7", Title: fields.Title, Completed: fields.Completed})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	replaced, err := client.Replace(context.Background(), "7", models.TaskFields{Title: "A", Completed: true})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if !replaced.Completed {
		t.Error("Expected completed in response")
	}
}

func TestRemoveAcceptsNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/todos/7" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	if err := client.Remove(context.Background(), "7"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
}

func TestNonSuccessBecomesRemoteError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{"body text wins", http.StatusInternalServerError, "database on fire", "database on fire"},
		{"status text fallback", http.StatusNotFound, "", "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, tt.body, tt.status)
			}))
			defer srv.Close()

			client := NewClient(srv.URL, nil)
			_, err := client.List(context.Background())
			if err == nil {
				t.Fatal("Expected error")
			}

			var remoteErr *RemoteError
			if !errors.As(err, &remoteErr) {
				t.Fatalf("Expected *RemoteError, got %T", err)
			}
			if remoteErr.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, remoteErr.StatusCode)
			}
			if remoteErr.Message != tt.wantMessage {
				t.Errorf("Expected message %q, got %q", tt.wantMessage, remoteErr.Message)
			}
		})
	}
}

func TestTransportFaultHasStatusZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, nil)
	err := client.Remove(context.Background(), "1")
	if err == nil {
		t.Fatal("Expected error")
	}

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("Expected *RemoteError, got %T", err)
	}
	if remoteErr.StatusCode != 0 {
		t.Errorf("Expected status 0 for transport fault, got %d", remoteErr.StatusCode)
	}
}

func TestBaseURLTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/todos" {
			t.Errorf("Expected /todos, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]models.Task{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", nil)
	if _, err := client.List(context.Background()); err != nil {
		t.Fatalf("List failed: %v", err)
	}
}
