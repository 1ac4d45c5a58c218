package trello

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fentz26/taskscribe/internal/board"
	"github.com/fentz26/taskscribe/internal/models"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := New(Config{
		APIKey:  "key",
		Token:   "token",
		BoardID: "board1",
		BaseURL: server.URL,
	})
	return client, server
}

func TestSnapshot(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "key" || r.URL.Query().Get("token") != "token" {
			t.Errorf("Missing auth params on %s", r.URL.Path)
		}
		switch r.URL.Path {
		case "/boards/board1/lists":
			json.NewEncoder(w).Encode([]map[string]string{
				{"id": "l1", "name": "To Do"},
				{"id": "l2", "name": "Done"},
			})
		case "/boards/board1/cards":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{
					"id": "c1", "name": "Write docs", "idList": "l1",
					"due":     "2024-03-01T12:00:00.000Z",
					"labels":  []map[string]string{{"id": "lb1", "name": "Roadmap", "color": "green"}},
					"members": []map[string]string{{"id": "m1", "fullName": "Priya Sharma", "username": "priya_s"}},
				},
			})
		case "/boards/board1/checklists":
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{
					"id": "cl1", "name": "Steps", "idCard": "c1",
					"checkItems": []map[string]string{
						{"id": "i1", "name": "Draft", "state": "complete"},
						{"id": "i2", "name": "Review", "state": "incomplete"},
					},
				},
			})
		case "/boards/board1/members":
			json.NewEncoder(w).Encode([]map[string]string{
				{"id": "m1", "fullName": "Priya Sharma", "username": "priya_s"},
			})
		case "/boards/board1/labels":
			json.NewEncoder(w).Encode([]map[string]string{
				{"id": "lb1", "name": "Roadmap", "color": "green"},
			})
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})
	defer server.Close()

	snap, err := client.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap.Statuses) != 2 || snap.Statuses[0] != "To Do" {
		t.Errorf("Unexpected statuses: %v", snap.Statuses)
	}
	if len(snap.Tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(snap.Tasks))
	}
	task := snap.Tasks[0]
	if task.Status != "To Do" {
		t.Errorf("Expected list name as status, got %q", task.Status)
	}
	if task.Deadline != "2024-03-01" {
		t.Errorf("Expected date-only deadline, got %q", task.Deadline)
	}
	if task.Label != "Roadmap" {
		t.Errorf("Expected label, got %q", task.Label)
	}
	if len(task.Checklists) != 1 || len(task.Checklists[0].Items) != 2 {
		t.Fatalf("Expected checklist with 2 items, got %+v", task.Checklists)
	}
	if task.Checklists[0].Items[0].State != models.ItemComplete {
		t.Errorf("Expected first item complete, got %s", task.Checklists[0].Items[0].State)
	}
	if len(snap.Members) != 1 || snap.Members[0].Username != "priya_s" {
		t.Errorf("Unexpected members: %+v", snap.Members)
	}
}

func TestCreateTaskResolvesListAlias(t *testing.T) {
	var createdParams map[string]string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/boards/board1/lists":
			json.NewEncoder(w).Encode([]map[string]string{
				{"id": "l1", "name": "To Do"},
			})
		case r.URL.Path == "/cards" && r.Method == http.MethodPost:
			createdParams = map[string]string{
				"name":   r.URL.Query().Get("name"),
				"idList": r.URL.Query().Get("idList"),
				"due":    r.URL.Query().Get("due"),
				"pos":    r.URL.Query().Get("pos"),
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "c9"})
		default:
			http.NotFound(w, r)
		}
	})
	defer server.Close()

	// "Not started" has no literal list; the alias chain lands on "To Do".
	id, err := client.CreateTask(context.Background(), board.CreateTaskRequest{
		Name:     "Ship v1",
		Status:   "Not started",
		Deadline: "2024-06-01",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if id != "c9" {
		t.Errorf("Expected card ID c9, got %q", id)
	}
	if createdParams["idList"] != "l1" {
		t.Errorf("Expected aliased list l1, got %q", createdParams["idList"])
	}
	if createdParams["due"] != "2024-06-01T12:00:00.000Z" {
		t.Errorf("Expected noon due stamp, got %q", createdParams["due"])
	}
	if createdParams["pos"] != "top" {
		t.Errorf("Expected top position, got %q", createdParams["pos"])
	}
}

func TestLabelCreatedWithFirstUnusedColor(t *testing.T) {
	var labelColor string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/boards/board1/labels":
			json.NewEncoder(w).Encode([]map[string]string{
				{"id": "lb1", "name": "Existing", "color": "green"},
			})
		case r.URL.Path == "/labels" && r.Method == http.MethodPost:
			labelColor = r.URL.Query().Get("color")
			json.NewEncoder(w).Encode(map[string]string{"id": "lb2"})
		default:
			http.NotFound(w, r)
		}
	})
	defer server.Close()

	if err := client.CreateLabel(context.Background(), "Roadmap"); err != nil {
		t.Fatalf("CreateLabel failed: %v", err)
	}
	// Green is taken; yellow is next in the palette.
	if labelColor != "yellow" {
		t.Errorf("Expected yellow, got %q", labelColor)
	}
}

func TestCreateLabelIdempotent(t *testing.T) {
	creates := 0
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/boards/board1/labels":
			json.NewEncoder(w).Encode([]map[string]string{
				{"id": "lb1", "name": "Roadmap", "color": "green"},
			})
		case r.URL.Path == "/labels" && r.Method == http.MethodPost:
			creates++
			json.NewEncoder(w).Encode(map[string]string{"id": "lb2"})
		default:
			http.NotFound(w, r)
		}
	})
	defer server.Close()

	if err := client.CreateLabel(context.Background(), "roadmap"); err != nil {
		t.Fatalf("CreateLabel failed: %v", err)
	}
	if creates != 0 {
		t.Errorf("Expected no create for existing label, got %d", creates)
	}
}

func TestErrorCarriesProviderMessage(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid id", http.StatusBadRequest)
	})
	defer server.Close()

	err := client.DeleteTask(context.Background(), "nope")
	if err == nil {
		t.Fatal("Expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "trello error (400)") || !strings.Contains(err.Error(), "invalid id") {
		t.Errorf("Expected provider message in error, got %q", err)
	}
}
