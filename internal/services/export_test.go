package services

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/tallylabs/tally/internal/models"
)

func TestExportScoresCSV(t *testing.T) {
	categories := []*models.Category{
		{ID: "c2", Name: "Team & People", Position: 2},
		{ID: "c1", Name: "Strategy", Position: 1},
	}
	p61, p80, p100 := 61, 80, 100
	rows := []ScoreRow{
		{
			AttemptID:  "at2",
			Respondent: "lee@example.com",
			Points:     8, Possible: 10, Percentage: &p80,
			TierLabel:    "Leading",
			ComputedAt:   "2026-03-14T10:00:00Z",
			CategoryPcts: map[string]*int{"c1": &p80, "c2": &p100},
		},
		{
			AttemptID:  "at1",
			Respondent: "kim@example.com",
			Points:     11, Possible: 18, Percentage: &p61,
			TierLabel:    "Developing",
			ComputedAt:   "2026-03-14T09:30:00Z",
			CategoryPcts: map[string]*int{"c1": &p61},
		},
	}

	data, err := ExportScoresCSV(rows, categories)
	if err != nil {
		t.Fatalf("ExportScoresCSV failed: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}

	wantHeader := "attempt_id,respondent,points,possible,percentage,tier,strategy_pct,team___people_pct,computed_at"
	if got := strings.Join(records[0], ","); got != wantHeader {
		t.Fatalf("header = %q, want %q", got, wantHeader)
	}
	// Rows sort by attempt id regardless of input order.
	if records[1][0] != "at1" || records[2][0] != "at2" {
		t.Fatalf("row order = %s, %s", records[1][0], records[2][0])
	}
	wantRow := []string{"at1", "kim@example.com", "11", "18", "61", "Developing", "61", "", "2026-03-14T09:30:00Z"}
	for i, want := range wantRow {
		if records[1][i] != want {
			t.Fatalf("row[%d] = %q, want %q", i, records[1][i], want)
		}
	}
}

func TestExportScores(t *testing.T) {
	store := newScoringFixture()
	svc := newTestScoreService(store, nil)
	if _, err := svc.ComputeScore(context.Background(), "at1"); err != nil {
		t.Fatalf("ComputeScore failed: %v", err)
	}
	store.scores = []*models.Score{store.savedScore}
	store.attempts = []*models.Attempt{store.attempt}

	data, err := svc.ExportScores(context.Background(), "as1")
	if err != nil {
		t.Fatalf("ExportScores failed: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want header + 1 row", len(records))
	}
	row := records[1]
	if row[0] != "at1" || row[1] != "kim@example.com" || row[4] != "61" || row[5] != "Developing" {
		t.Fatalf("row = %v", row)
	}
	wantAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC).Format(time.RFC3339)
	if row[len(row)-1] != wantAt {
		t.Fatalf("computed_at = %q, want %q", row[len(row)-1], wantAt)
	}
}

func TestExportScoresAssessmentNotFound(t *testing.T) {
	svc := newTestScoreService(newScoringFixture(), nil)
	_, err := svc.ExportScores(context.Background(), "ghost")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorNotFound {
		t.Fatalf("err = %v, want not_found", err)
	}
}

func TestColumnName(t *testing.T) {
	cases := map[string]string{
		"Strategy":        "strategy",
		"Team & People":   "team___people",
		"  Finance 101  ": "finance_101",
	}
	for in, want := range cases {
		if got := columnName(in); got != want {
			t.Fatalf("columnName(%q) = %q, want %q", in, got, want)
		}
	}
}
