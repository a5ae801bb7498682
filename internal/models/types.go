package models

import "time"

// QuestionType is the closed set of question kinds the scoring engine
// understands. Anything else in storage is a data bug, not a runtime case.
type QuestionType string

const (
	QuestionYesNo          QuestionType = "yes_no"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionImageSelect    QuestionType = "image_select"
	QuestionCheckbox       QuestionType = "checkbox"
	QuestionSlidingScale   QuestionType = "sliding_scale"
	QuestionRatingScale    QuestionType = "rating_scale"
	QuestionOpenText       QuestionType = "open_text"
)

// Assessment is a named questionnaire owning categories, questions and tiers.
type Assessment struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Category is a scoring dimension grouping related questions.
// IncludeInTotal controls whether it contributes to the overall score.
type Category struct {
	ID             string
	AssessmentID   string
	Name           string
	Position       int
	IncludeInTotal bool
}

// Question belongs to exactly one category. Settings is a raw JSON blob
// interpreted only for scale-typed questions.
type Question struct {
	ID           string
	AssessmentID string
	CategoryID   string
	Type         QuestionType
	Prompt       string
	Position     int
	Settings     []byte
}

// AnswerOption carries the points awarded when a choice-based question
// selects it.
type AnswerOption struct {
	ID         string
	QuestionID string
	Label      string
	Points     int
	Position   int
}

// Response is one respondent's answer to one question. The engine mutates
// only PointsAwarded; the selection and text fields are owned by the
// response-collection flow. Scale answers encode their numeric value as the
// single entry of SelectedOptionIDs.
type Response struct {
	ID                string
	AttemptID         string
	QuestionID        string
	SelectedOptionIDs []string
	Text              string
	PointsAwarded     int
}

// ScoreTier is an inclusive [MinPct, MaxPct] percentage band with a label.
// Tiers are expected to partition [0,100]; the engine does not enforce it.
type ScoreTier struct {
	ID           string
	AssessmentID string
	Label        string
	Color        string
	MinPct       int
	MaxPct       int
}

// Attempt is one respondent's run through an assessment.
type Attempt struct {
	ID              string
	AssessmentID    string
	RespondentEmail string
	StartedAt       time.Time
	CompletedAt     *time.Time
	ScoreID         string
}

// CategoryResult holds the four derived fields for one category or for the
// whole assessment. Percentage is nil when nothing scorable contributed.
type CategoryResult struct {
	Points     int    `json:"points"`
	Possible   int    `json:"possible"`
	Percentage *int   `json:"percentage"`
	TierID     string `json:"tier_id,omitempty"`
}

// Score is the cached scoring artifact, one per attempt, replaced in place
// on recomputation.
type Score struct {
	ID           string
	AttemptID    string
	AssessmentID string
	Points       int
	Possible     int
	Percentage   *int
	TierID       string
	Categories   map[string]CategoryResult
	ComputedAt   time.Time
}

// Diagnostic is a persisted failure record keyed by attempt for offline
// triage.
type Diagnostic struct {
	AttemptID string
	Message   string
	Detail    string
	At        time.Time
}
