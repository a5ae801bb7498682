package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookNotifier(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	pct := 61
	ev := ScoreEvent{
		ID:           "ev1",
		AttemptID:    "at1",
		AssessmentID: "as1",
		ScoreID:      "sc1",
		Percentage:   &pct,
		TierID:       "t2",
		OccurredAt:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	if err := n.Notify(context.Background(), ev); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type = %q", gotContentType)
	}

	var payload map[string]any
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if payload["type"] != "score.computed" {
		t.Fatalf("type = %v", payload["type"])
	}
	if payload["attempt_id"] != "at1" || payload["score_id"] != "sc1" {
		t.Fatalf("payload = %v", payload)
	}
	if payload["percentage"] != float64(61) {
		t.Fatalf("percentage = %v", payload["percentage"])
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Notify(context.Background(), ScoreEvent{ID: "ev1"}); err == nil {
		t.Fatalf("expected error for 503 response")
	}
}

func TestWebhookNotifierUnreachable(t *testing.T) {
	n := NewWebhookNotifier("http://127.0.0.1:1/hook")
	if err := n.Notify(context.Background(), ScoreEvent{ID: "ev1"}); err == nil {
		t.Fatalf("expected connection error")
	}
}
