package line

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mbnotifier/internal/domain"
	"mbnotifier/internal/report"
)

var pushDay = time.Date(2026, time.February, 22, 0, 0, 0, 0, time.UTC)

func dueAt(month time.Month, day, hour, minute int) *time.Time {
	d := time.Date(2026, month, day, hour, minute, 0, 0, time.UTC)
	return &d
}

func testNotifier(t *testing.T, apiBase string) *Notifier {
	t.Helper()
	n := NewNotifier("channel-token", "group-123",
		map[string]string{"111": "#FF0000"}, report.Options{},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.apiBase = apiBase
	return n
}

func reportableChildren() []domain.ChildProfile {
	return []domain.ChildProfile{{
		Name: "Alice Wang (Grade 8)",
		ID:   "111",
		Assignments: []domain.Assignment{
			{
				Title: "Worksheet Ch.5", Subject: "Mathematics",
				DueDate: dueAt(time.February, 20, 23, 55), Status: domain.StatusOverdue,
				Tags: []string{"Summative"},
			},
			{
				Title: "Lab Report", Subject: "Science",
				DueDate: dueAt(time.February, 24, 11, 55), Status: domain.StatusPending,
			},
		},
	}}
}

func TestPublishReport(t *testing.T) {
	t.Parallel()

	var auth string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)

	n := testNotifier(t, srv.URL)
	if err := n.PublishReport(context.Background(), reportableChildren(), pushDay); err != nil {
		t.Fatalf("PublishReport: %v", err)
	}

	if auth != "Bearer channel-token" {
		t.Fatalf("authorization = %q", auth)
	}
	if payload["to"] != "group-123" {
		t.Fatalf("to = %v", payload["to"])
	}

	messages := payload["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	message := messages[0].(map[string]any)
	if message["type"] != "flex" {
		t.Fatalf("message type = %v", message["type"])
	}
	carousel := message["contents"].(map[string]any)
	if got := len(carousel["contents"].([]any)); got != 1 {
		t.Fatalf("carousel has %d bubbles, want 1", got)
	}
}

func TestPublishReportNothingToSend(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	t.Cleanup(srv.Close)

	children := []domain.ChildProfile{{Name: "Bob", ID: "222"}}
	n := testNotifier(t, srv.URL)
	if err := n.PublishReport(context.Background(), children, pushDay); err != nil {
		t.Fatalf("PublishReport: %v", err)
	}
	if calls != 0 {
		t.Fatal("no push expected when nothing is reportable")
	}
}

func TestPublishReportAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Invalid channel access token"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	n := testNotifier(t, srv.URL)
	err := n.PublishReport(context.Background(), reportableChildren(), pushDay)
	if err == nil {
		t.Fatal("expected an error from a 401 response")
	}
}

func TestChildBubble(t *testing.T) {
	t.Parallel()

	child := reportableChildren()[0]
	bubble := childBubble(child, pushDay, report.Options{}, map[string]string{"111": "#FF0000"})
	if bubble == nil {
		t.Fatal("expected a bubble")
	}

	header := bubble["header"].(map[string]any)
	if header["backgroundColor"] != "#FF0000" {
		t.Fatalf("header color = %v", header["backgroundColor"])
	}
	title := header["contents"].([]map[string]any)[0]
	if title["text"] != "Alice Wang" {
		t.Fatalf("header text = %v, parenthetical should be cut", title["text"])
	}

	// Unknown child falls back to the default header color.
	bubble = childBubble(child, pushDay, report.Options{}, nil)
	header = bubble["header"].(map[string]any)
	if header["backgroundColor"] != defaultHeaderColor {
		t.Fatalf("fallback header color = %v", header["backgroundColor"])
	}
}

func TestChildBubbleEmpty(t *testing.T) {
	t.Parallel()

	child := domain.ChildProfile{Name: "Bob", ID: "222", Assignments: []domain.Assignment{
		{Title: "Done Quiz", Subject: "Mathematics", DueDate: dueAt(time.February, 23, 8, 0), Status: domain.StatusSubmitted},
	}}
	if bubble := childBubble(child, pushDay, report.Options{}, nil); bubble != nil {
		t.Fatalf("expected nil bubble, got %v", bubble)
	}
}
