package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tallylabs/tally/internal/metrics"
	"github.com/tallylabs/tally/internal/models"
)

// ScoreStore abstracts the persistence operations ScoreService needs.
type ScoreStore interface {
	GetAttempt(ctx context.Context, id string) (*models.Attempt, error)
	GetAssessment(ctx context.Context, id string) (*models.Assessment, error)
	ListCategories(ctx context.Context, assessmentID string) ([]*models.Category, error)
	ListQuestions(ctx context.Context, assessmentID string) ([]*models.Question, error)
	ListOptions(ctx context.Context, assessmentID string) ([]*models.AnswerOption, error)
	ListTiers(ctx context.Context, assessmentID string) ([]*models.ScoreTier, error)
	ListResponses(ctx context.Context, attemptID string) ([]*models.Response, error)
	GetScoreByAttempt(ctx context.Context, attemptID string) (*models.Score, error)
	ListScores(ctx context.Context, assessmentID string) ([]*models.Score, error)
	ListAttempts(ctx context.Context, assessmentID string) ([]*models.Attempt, error)

	// SaveScore atomically upserts the score keyed by attempt, denormalizes
	// per-response points and marks the attempt completed. It returns the
	// persisted score, whose ID is stable across recomputations.
	SaveScore(ctx context.Context, score *models.Score, pointsByResponse map[string]int) (*models.Score, error)

	// AddDiagnostic records a failure for offline triage. Best effort.
	AddDiagnostic(ctx context.Context, d *models.Diagnostic)
}

// EventPublisher accepts score events for downstream delivery without
// blocking the caller.
type EventPublisher interface {
	Publish(ev ScoreEvent) bool
}

// ScoreResult is what ComputeScore returns to the trigger.
type ScoreResult struct {
	Score             *models.Score
	Categories        map[string]models.CategoryResult
	OverallPercentage *int
	OverallTier       *models.ScoreTier
}

// ScoreService turns a completed attempt's raw answers into a persisted
// Score. It is stateless between invocations; recomputation is the same
// call over current inputs.
type ScoreService struct {
	store  ScoreStore
	events EventPublisher
	log    *logrus.Entry
	now    func() time.Time
	idGen  func() string
}

func NewScoreService(store ScoreStore, events EventPublisher) *ScoreService {
	return &ScoreService{
		store:  store,
		events: events,
		log:    logrus.WithField("component", "scoring"),
		now:    func() time.Time { return time.Now().UTC() },
		idGen:  defaultScoreID,
	}
}

func defaultScoreID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ComputeScore resolves, aggregates, classifies and persists the score for
// one attempt, then enqueues a ScoreComputed event. Nothing is written when
// any step fails.
func (s *ScoreService) ComputeScore(ctx context.Context, attemptID string) (*ScoreResult, error) {
	start := time.Now()
	res, err := s.computeScore(ctx, attemptID)
	metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	switch se, ok := AsServiceError(err); {
	case err == nil:
		metrics.ScoringRuns.WithLabelValues("ok").Inc()
	case ok && se.Code == ErrorNotFound:
		metrics.ScoringRuns.WithLabelValues("not_found").Inc()
	default:
		metrics.ScoringRuns.WithLabelValues("error").Inc()
	}
	return res, err
}

func (s *ScoreService) computeScore(ctx context.Context, attemptID string) (*ScoreResult, error) {
	attemptID = strings.TrimSpace(attemptID)
	if attemptID == "" {
		return nil, NewInvalidError("attempt id required")
	}

	attempt, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, s.fail(ctx, attemptID, "load attempt", err)
	}
	if attempt == nil {
		return nil, NewNotFoundError("attempt not found")
	}
	assessment, err := s.store.GetAssessment(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, s.fail(ctx, attemptID, "load assessment", err)
	}
	if assessment == nil {
		return nil, NewNotFoundError("assessment not found")
	}

	categories, err := s.store.ListCategories(ctx, assessment.ID)
	if err != nil {
		return nil, s.fail(ctx, attemptID, "load categories", err)
	}
	questions, err := s.store.ListQuestions(ctx, assessment.ID)
	if err != nil {
		return nil, s.fail(ctx, attemptID, "load questions", err)
	}
	options, err := s.store.ListOptions(ctx, assessment.ID)
	if err != nil {
		return nil, s.fail(ctx, attemptID, "load answer options", err)
	}
	tiers, err := s.store.ListTiers(ctx, assessment.ID)
	if err != nil {
		return nil, s.fail(ctx, attemptID, "load score tiers", err)
	}
	responses, err := s.store.ListResponses(ctx, attemptID)
	if err != nil {
		return nil, s.fail(ctx, attemptID, "load responses", err)
	}

	optionsByQuestion := make(map[string][]*models.AnswerOption, len(questions))
	for _, opt := range options {
		optionsByQuestion[opt.QuestionID] = append(optionsByQuestion[opt.QuestionID], opt)
	}
	responseByQuestion := make(map[string]*models.Response, len(responses))
	for _, r := range responses {
		responseByQuestion[r.QuestionID] = r
	}

	scoresByCategory := make(map[string][]QuestionScore, len(categories))
	pointsByResponse := make(map[string]int, len(responses))
	for _, q := range questions {
		resolved := ResolveQuestion(q, optionsByQuestion[q.ID], responseByQuestion[q.ID])
		scoresByCategory[q.CategoryID] = append(scoresByCategory[q.CategoryID], resolved)
		if r := responseByQuestion[q.ID]; r != nil {
			pointsByResponse[r.ID] = resolved.Points
		}
	}

	catResults := make(map[string]models.CategoryResult, len(categories))
	for _, c := range categories {
		catResults[c.ID] = Aggregate(scoresByCategory[c.ID], tiers)
	}
	overall := AggregateOverall(categories, catResults, tiers)

	score := &models.Score{
		ID:           s.idGen(),
		AttemptID:    attemptID,
		AssessmentID: assessment.ID,
		Points:       overall.Points,
		Possible:     overall.Possible,
		Percentage:   overall.Percentage,
		TierID:       overall.TierID,
		Categories:   catResults,
		ComputedAt:   s.now(),
	}
	stored, err := s.store.SaveScore(ctx, score, pointsByResponse)
	if err != nil {
		return nil, s.fail(ctx, attemptID, "persist score", err)
	}

	if s.events != nil {
		s.events.Publish(ScoreEvent{
			AttemptID:    attemptID,
			AssessmentID: assessment.ID,
			ScoreID:      stored.ID,
			Percentage:   stored.Percentage,
			TierID:       stored.TierID,
			OccurredAt:   stored.ComputedAt,
		})
	}

	s.log.WithFields(logrus.Fields{
		"attempt_id":    attemptID,
		"assessment_id": assessment.ID,
		"score_id":      stored.ID,
	}).Info("score computed")

	return &ScoreResult{
		Score:             stored,
		Categories:        catResults,
		OverallPercentage: stored.Percentage,
		OverallTier:       findTier(tiers, stored.TierID),
	}, nil
}

// GetScore returns the stored score for an attempt.
func (s *ScoreService) GetScore(ctx context.Context, attemptID string) (*models.Score, error) {
	attemptID = strings.TrimSpace(attemptID)
	if attemptID == "" {
		return nil, NewInvalidError("attempt id required")
	}
	score, err := s.store.GetScoreByAttempt(ctx, attemptID)
	if err != nil {
		return nil, s.fail(ctx, attemptID, "load score", err)
	}
	if score == nil {
		return nil, NewNotFoundError("score not found")
	}
	return score, nil
}

// fail records a diagnostic keyed by attempt, logs the detail and hands the
// caller an opaque failure. An existing score is never touched by a failed
// run.
func (s *ScoreService) fail(ctx context.Context, attemptID, op string, err error) error {
	s.store.AddDiagnostic(ctx, &models.Diagnostic{
		AttemptID: attemptID,
		Message:   op,
		Detail:    err.Error(),
		At:        s.now(),
	})
	s.log.WithFields(logrus.Fields{"attempt_id": attemptID, "op": op}).WithError(err).Error("score computation failed")
	return NewInternalError("score computation failed")
}

func findTier(tiers []*models.ScoreTier, id string) *models.ScoreTier {
	if id == "" {
		return nil
	}
	for _, t := range tiers {
		if t.ID == id {
			return t
		}
	}
	return nil
}
