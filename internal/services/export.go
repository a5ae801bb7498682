package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tallylabs/tally/internal/models"
)

// ScoreRow is one exported line: an attempt's overall result plus one
// percentage column per category.
type ScoreRow struct {
	AttemptID    string
	Respondent   string
	Points       int
	Possible     int
	Percentage   *int
	TierLabel    string
	ComputedAt   string // RFC3339
	CategoryPcts map[string]*int
}

// ExportScoresCSV renders rows with one percentage column per category,
// categories ordered by position, rows ordered by attempt id for stable
// output.
func ExportScoresCSV(rows []ScoreRow, categories []*models.Category) ([]byte, error) {
	ordered := make([]*models.Category, len(categories))
	copy(ordered, categories)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Position == ordered[j].Position {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Position < ordered[j].Position
	})
	sorted := make([]ScoreRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AttemptID < sorted[j].AttemptID })

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"attempt_id", "respondent", "points", "possible", "percentage", "tier"}
	for _, c := range ordered {
		header = append(header, columnName(c.Name)+"_pct")
	}
	header = append(header, "computed_at")
	_ = w.Write(header)

	for _, r := range sorted {
		rec := []string{
			r.AttemptID,
			r.Respondent,
			strconv.Itoa(r.Points),
			strconv.Itoa(r.Possible),
			pctString(r.Percentage),
			r.TierLabel,
		}
		for _, c := range ordered {
			rec = append(rec, pctString(r.CategoryPcts[c.ID]))
		}
		rec = append(rec, r.ComputedAt)
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportScores assembles the CSV of every stored score for an assessment.
func (s *ScoreService) ExportScores(ctx context.Context, assessmentID string) ([]byte, error) {
	assessmentID = strings.TrimSpace(assessmentID)
	if assessmentID == "" {
		return nil, NewInvalidError("assessment id required")
	}
	assessment, err := s.store.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, s.exportFail(assessmentID, "load assessment", err)
	}
	if assessment == nil {
		return nil, NewNotFoundError("assessment not found")
	}
	categories, err := s.store.ListCategories(ctx, assessmentID)
	if err != nil {
		return nil, s.exportFail(assessmentID, "load categories", err)
	}
	tiers, err := s.store.ListTiers(ctx, assessmentID)
	if err != nil {
		return nil, s.exportFail(assessmentID, "load score tiers", err)
	}
	scores, err := s.store.ListScores(ctx, assessmentID)
	if err != nil {
		return nil, s.exportFail(assessmentID, "load scores", err)
	}
	attempts, err := s.store.ListAttempts(ctx, assessmentID)
	if err != nil {
		return nil, s.exportFail(assessmentID, "load attempts", err)
	}

	emailByAttempt := make(map[string]string, len(attempts))
	for _, a := range attempts {
		emailByAttempt[a.ID] = a.RespondentEmail
	}
	rows := make([]ScoreRow, 0, len(scores))
	for _, sc := range scores {
		row := ScoreRow{
			AttemptID:    sc.AttemptID,
			Respondent:   emailByAttempt[sc.AttemptID],
			Points:       sc.Points,
			Possible:     sc.Possible,
			Percentage:   sc.Percentage,
			ComputedAt:   sc.ComputedAt.Format("2006-01-02T15:04:05Z07:00"),
			CategoryPcts: map[string]*int{},
		}
		if t := findTier(tiers, sc.TierID); t != nil {
			row.TierLabel = t.Label
		}
		for catID, cr := range sc.Categories {
			row.CategoryPcts[catID] = cr.Percentage
		}
		rows = append(rows, row)
	}
	return ExportScoresCSV(rows, categories)
}

func (s *ScoreService) exportFail(assessmentID, op string, err error) error {
	s.log.WithFields(logrus.Fields{"assessment_id": assessmentID, "op": op}).WithError(err).Error("score export failed")
	return NewInternalError("export failed")
}

func pctString(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// columnName flattens a category name into a CSV-friendly header token.
func columnName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
