// Package db implements the service's persistence on SQLite.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tallylabs/tally/internal/models"
)

type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Entry
}

// Open opens the SQLite database file and applies the schema migrations.
func Open(path string) (*sql.DB, error) {
	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}
	if err := Migrate(sqldb); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return sqldb, nil
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, errors.Wrapf(err, "apply sqlite pragma %q", stmt)
		}
	}
	return &SQLiteStore{db: db, log: logrus.WithField("component", "store")}, nil
}

func (s *SQLiteStore) GetAttempt(ctx context.Context, id string) (*models.Attempt, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, assessment_id, respondent_email, started_at, completed_at, score_id
		FROM attempts WHERE id = ?`, id)
	var a models.Attempt
	var completed sql.NullTime
	var scoreID sql.NullString
	err := row.Scan(&a.ID, &a.AssessmentID, &a.RespondentEmail, &a.StartedAt, &completed, &scoreID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get attempt")
	}
	if completed.Valid {
		t := completed.Time
		a.CompletedAt = &t
	}
	a.ScoreID = scoreID.String
	return &a, nil
}

func (s *SQLiteStore) GetAssessment(ctx context.Context, id string) (*models.Assessment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM assessments WHERE id = ?`, id)
	var a models.Assessment
	err := row.Scan(&a.ID, &a.Name, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get assessment")
	}
	return &a, nil
}

func (s *SQLiteStore) ListCategories(ctx context.Context, assessmentID string) ([]*models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assessment_id, name, position, include_in_total
		FROM categories WHERE assessment_id = ? ORDER BY position, id`, assessmentID)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	defer rows.Close()
	var out []*models.Category
	for rows.Next() {
		var c models.Category
		var include int64
		if err := rows.Scan(&c.ID, &c.AssessmentID, &c.Name, &c.Position, &include); err != nil {
			return nil, errors.Wrap(err, "scan category")
		}
		c.IncludeInTotal = include != 0
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListQuestions(ctx context.Context, assessmentID string) ([]*models.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assessment_id, category_id, type, prompt, position, settings
		FROM questions WHERE assessment_id = ? ORDER BY position, id`, assessmentID)
	if err != nil {
		return nil, errors.Wrap(err, "list questions")
	}
	defer rows.Close()
	var out []*models.Question
	for rows.Next() {
		var q models.Question
		var qtype string
		var settings sql.NullString
		if err := rows.Scan(&q.ID, &q.AssessmentID, &q.CategoryID, &qtype, &q.Prompt, &q.Position, &settings); err != nil {
			return nil, errors.Wrap(err, "scan question")
		}
		q.Type = models.QuestionType(qtype)
		if settings.Valid {
			q.Settings = []byte(settings.String)
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListOptions(ctx context.Context, assessmentID string) ([]*models.AnswerOption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.label, o.points, o.position
		FROM answer_options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.assessment_id = ? ORDER BY o.question_id, o.position, o.id`, assessmentID)
	if err != nil {
		return nil, errors.Wrap(err, "list answer options")
	}
	defer rows.Close()
	var out []*models.AnswerOption
	for rows.Next() {
		var o models.AnswerOption
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Label, &o.Points, &o.Position); err != nil {
			return nil, errors.Wrap(err, "scan answer option")
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListTiers(ctx context.Context, assessmentID string) ([]*models.ScoreTier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assessment_id, label, color, min_pct, max_pct
		FROM score_tiers WHERE assessment_id = ? ORDER BY min_pct, id`, assessmentID)
	if err != nil {
		return nil, errors.Wrap(err, "list score tiers")
	}
	defer rows.Close()
	var out []*models.ScoreTier
	for rows.Next() {
		var t models.ScoreTier
		if err := rows.Scan(&t.ID, &t.AssessmentID, &t.Label, &t.Color, &t.MinPct, &t.MaxPct); err != nil {
			return nil, errors.Wrap(err, "scan score tier")
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListResponses(ctx context.Context, attemptID string) ([]*models.Response, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, attempt_id, question_id, selected_option_ids, free_text, points_awarded
		FROM responses WHERE attempt_id = ?`, attemptID)
	if err != nil {
		return nil, errors.Wrap(err, "list responses")
	}
	defer rows.Close()
	var out []*models.Response
	for rows.Next() {
		var r models.Response
		var selected, text sql.NullString
		if err := rows.Scan(&r.ID, &r.AttemptID, &r.QuestionID, &selected, &text, &r.PointsAwarded); err != nil {
			return nil, errors.Wrap(err, "scan response")
		}
		r.SelectedOptionIDs = decodeStringSlice(selected, s.log)
		r.Text = text.String
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetScoreByAttempt(ctx context.Context, attemptID string) (*models.Score, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, attempt_id, assessment_id, points, possible, percentage, tier_id, categories, computed_at
		FROM scores WHERE attempt_id = ?`, attemptID)
	sc, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get score")
	}
	return sc, nil
}

func (s *SQLiteStore) ListScores(ctx context.Context, assessmentID string) ([]*models.Score, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, attempt_id, assessment_id, points, possible, percentage, tier_id, categories, computed_at
		FROM scores WHERE assessment_id = ? ORDER BY attempt_id`, assessmentID)
	if err != nil {
		return nil, errors.Wrap(err, "list scores")
	}
	defer rows.Close()
	var out []*models.Score
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan score")
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListAttempts(ctx context.Context, assessmentID string) ([]*models.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assessment_id, respondent_email, started_at, completed_at, score_id
		FROM attempts WHERE assessment_id = ? ORDER BY started_at, id`, assessmentID)
	if err != nil {
		return nil, errors.Wrap(err, "list attempts")
	}
	defer rows.Close()
	var out []*models.Attempt
	for rows.Next() {
		var a models.Attempt
		var completed sql.NullTime
		var scoreID sql.NullString
		if err := rows.Scan(&a.ID, &a.AssessmentID, &a.RespondentEmail, &a.StartedAt, &completed, &scoreID); err != nil {
			return nil, errors.Wrap(err, "scan attempt")
		}
		if completed.Valid {
			t := completed.Time
			a.CompletedAt = &t
		}
		a.ScoreID = scoreID.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

// SaveScore upserts the score keyed by attempt in a single transaction,
// writes resolved points back onto the responses and marks the attempt
// completed. The unique constraint on attempt_id makes concurrent duplicate
// triggers converge on one row, last writer wins.
func (s *SQLiteStore) SaveScore(ctx context.Context, sc *models.Score, pointsByResponse map[string]int) (*models.Score, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin save score")
	}
	defer func() { _ = tx.Rollback() }()

	cats, err := encodeJSON(sc.Categories)
	if err != nil {
		return nil, errors.Wrap(err, "encode category results")
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO scores (id, attempt_id, assessment_id, points, possible, percentage, tier_id, categories, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(attempt_id) DO UPDATE SET
			points = excluded.points,
			possible = excluded.possible,
			percentage = excluded.percentage,
			tier_id = excluded.tier_id,
			categories = excluded.categories,
			computed_at = excluded.computed_at`,
		sc.ID, sc.AttemptID, sc.AssessmentID, sc.Points, sc.Possible,
		toNullIntPtr(sc.Percentage), toNullString(sc.TierID), cats, sc.ComputedAt)
	if err != nil {
		return nil, errors.Wrap(err, "upsert score")
	}

	// The row keeps its original id on replace; read back the stored one.
	var storedID string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM scores WHERE attempt_id = ?`, sc.AttemptID).Scan(&storedID); err != nil {
		return nil, errors.Wrap(err, "read stored score id")
	}

	for respID, points := range pointsByResponse {
		if _, err := tx.ExecContext(ctx, `UPDATE responses SET points_awarded = ? WHERE id = ?`, points, respID); err != nil {
			return nil, errors.Wrap(err, "cache response points")
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE attempts SET score_id = ?, completed_at = COALESCE(completed_at, ?) WHERE id = ?`,
		storedID, sc.ComputedAt, sc.AttemptID)
	if err != nil {
		return nil, errors.Wrap(err, "complete attempt")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit save score")
	}
	out := *sc
	out.ID = storedID
	return &out, nil
}

// AddDiagnostic is best effort; a failed insert is only logged.
func (s *SQLiteStore) AddDiagnostic(ctx context.Context, d *models.Diagnostic) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO diagnostics (attempt_id, message, detail, created_at)
		VALUES (?, ?, ?, ?)`, d.AttemptID, d.Message, toNullString(d.Detail), d.At)
	if err != nil {
		s.log.WithError(err).Warn("record diagnostic")
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScore(row rowScanner) (*models.Score, error) {
	var sc models.Score
	var pct sql.NullInt64
	var tierID, cats sql.NullString
	err := row.Scan(&sc.ID, &sc.AttemptID, &sc.AssessmentID, &sc.Points, &sc.Possible, &pct, &tierID, &cats, &sc.ComputedAt)
	if err != nil {
		return nil, err
	}
	if pct.Valid {
		v := int(pct.Int64)
		sc.Percentage = &v
	}
	sc.TierID = tierID.String
	if cats.Valid && strings.TrimSpace(cats.String) != "" {
		if err := json.Unmarshal([]byte(cats.String), &sc.Categories); err != nil {
			return nil, errors.Wrap(err, "decode category results")
		}
	}
	return &sc, nil
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toNullIntPtr(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func encodeJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeStringSlice(ns sql.NullString, log *logrus.Entry) []string {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		log.WithError(err).Warn("decode selected option ids")
		return nil
	}
	return out
}
