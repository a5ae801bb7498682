package services

import (
	"testing"

	"github.com/tallylabs/tally/internal/models"
)

func opt(id string, points int) *models.AnswerOption {
	return &models.AnswerOption{ID: id, QuestionID: "Q1", Points: points}
}

func selection(ids ...string) *models.Response {
	return &models.Response{ID: "R1", AttemptID: "A1", QuestionID: "Q1", SelectedOptionIDs: ids}
}

func TestResolveOpenTextAlwaysZero(t *testing.T) {
	q := &models.Question{ID: "Q1", Type: models.QuestionOpenText}
	for _, resp := range []*models.Response{nil, {ID: "R1", Text: "a long essay"}} {
		got := ResolveQuestion(q, nil, resp)
		if got.Points != 0 || got.Possible != 0 {
			t.Fatalf("open text scored (%d,%d), want (0,0)", got.Points, got.Possible)
		}
	}
}

func TestResolveSingleSelect(t *testing.T) {
	// Scenario: options A(3) B(2) C(1), respondent selects B.
	q := &models.Question{ID: "Q1", Type: models.QuestionMultipleChoice}
	options := []*models.AnswerOption{opt("A", 3), opt("B", 2), opt("C", 1)}

	got := ResolveQuestion(q, options, selection("B"))
	if got.Points != 2 || got.Possible != 3 {
		t.Fatalf("resolved (%d,%d), want (2,3)", got.Points, got.Possible)
	}

	if got := ResolveQuestion(q, options, nil); got.Points != 0 || got.Possible != 3 {
		t.Fatalf("absent response resolved (%d,%d), want (0,3)", got.Points, got.Possible)
	}
	if got := ResolveQuestion(q, options, selection("ZZZ")); got.Points != 0 || got.Possible != 3 {
		t.Fatalf("unknown selection resolved (%d,%d), want (0,3)", got.Points, got.Possible)
	}
	if got := ResolveQuestion(q, nil, selection("A")); got.Points != 0 || got.Possible != 0 {
		t.Fatalf("no options resolved (%d,%d), want (0,0)", got.Points, got.Possible)
	}
}

func TestResolveYesNo(t *testing.T) {
	q := &models.Question{ID: "Q1", Type: models.QuestionYesNo}
	options := []*models.AnswerOption{opt("yes", 1), opt("no", 0)}
	got := ResolveQuestion(q, options, selection("yes"))
	if got.Points != 1 || got.Possible != 1 {
		t.Fatalf("resolved (%d,%d), want (1,1)", got.Points, got.Possible)
	}
}

func TestResolveCheckbox(t *testing.T) {
	// Scenario: P(+2) Q(+3) R(0), respondent selects P and R.
	q := &models.Question{ID: "Q1", Type: models.QuestionCheckbox}
	options := []*models.AnswerOption{opt("P", 2), opt("Q", 3), opt("R", 0)}

	got := ResolveQuestion(q, options, selection("P", "R"))
	if got.Points != 2 || got.Possible != 5 {
		t.Fatalf("resolved (%d,%d), want (2,5)", got.Points, got.Possible)
	}
}

func TestResolveCheckboxNegativeOption(t *testing.T) {
	// Negative options are excluded from possible but subtract if selected.
	q := &models.Question{ID: "Q1", Type: models.QuestionCheckbox}
	options := []*models.AnswerOption{opt("P", 2), opt("N", -1)}

	got := ResolveQuestion(q, options, selection("P", "N"))
	if got.Possible != 2 {
		t.Fatalf("possible = %d, want 2", got.Possible)
	}
	if got.Points != 1 {
		t.Fatalf("points = %d, want 1", got.Points)
	}
}

func TestResolveCheckboxDuplicateSelection(t *testing.T) {
	// A malformed row repeating an id awards its points once, so points can
	// never outgrow possible.
	q := &models.Question{ID: "Q1", Type: models.QuestionCheckbox}
	options := []*models.AnswerOption{opt("P", 2), opt("Q", 3)}

	got := ResolveQuestion(q, options, selection("P", "P", "Q"))
	if got.Points != 5 || got.Possible != 5 {
		t.Fatalf("resolved (%d,%d), want (5,5)", got.Points, got.Possible)
	}
}

func TestResolveSlidingScale(t *testing.T) {
	// Scenario: configured max=10, respondent value "7".
	q := &models.Question{ID: "Q1", Type: models.QuestionSlidingScale, Settings: []byte(`{"min":0,"max":10}`)}

	got := ResolveQuestion(q, nil, selection("7"))
	if got.Points != 7 || got.Possible != 10 {
		t.Fatalf("resolved (%d,%d), want (7,10)", got.Points, got.Possible)
	}

	if got := ResolveQuestion(q, nil, nil); got.Points != 0 || got.Possible != 10 {
		t.Fatalf("absent response resolved (%d,%d), want (0,10)", got.Points, got.Possible)
	}
	if got := ResolveQuestion(q, nil, selection("not-a-number")); got.Points != 0 || got.Possible != 10 {
		t.Fatalf("unparsable value resolved (%d,%d), want (0,10)", got.Points, got.Possible)
	}
}

func TestResolveSlidingScaleDefaultMax(t *testing.T) {
	q := &models.Question{ID: "Q1", Type: models.QuestionSlidingScale}
	if got := ResolveQuestion(q, nil, selection("4")); got.Points != 4 || got.Possible != 10 {
		t.Fatalf("resolved (%d,%d), want (4,10)", got.Points, got.Possible)
	}
}

func TestResolveRatingScale(t *testing.T) {
	q := &models.Question{ID: "Q1", Type: models.QuestionRatingScale, Settings: []byte(`{"min":1,"max":5}`)}
	options := []*models.AnswerOption{opt("r1", 1), opt("r2", 2), opt("r3", 3), opt("r4", 4), opt("r5", 5)}

	got := ResolveQuestion(q, options, selection("r4"))
	if got.Points != 4 || got.Possible != 5 {
		t.Fatalf("resolved (%d,%d), want (4,5)", got.Points, got.Possible)
	}
}

func TestResolveRatingScalePossibleFromSettings(t *testing.T) {
	// The denominator always comes from the configured bounds, not from the
	// best option on offer.
	q := &models.Question{ID: "Q1", Type: models.QuestionRatingScale, Settings: []byte(`{"min":1,"max":5}`)}
	options := []*models.AnswerOption{opt("r1", 1), opt("bonus", 7)}

	got := ResolveQuestion(q, options, selection("bonus"))
	if got.Points != 7 || got.Possible != 5 {
		t.Fatalf("resolved (%d,%d), want (7,5)", got.Points, got.Possible)
	}
	if got := ResolveQuestion(q, nil, nil); got.Points != 0 || got.Possible != 5 {
		t.Fatalf("no options resolved (%d,%d), want (0,5)", got.Points, got.Possible)
	}
}

func TestResolveUnknownTypeScoresNothing(t *testing.T) {
	q := &models.Question{ID: "Q1", Type: models.QuestionType("hologram")}
	got := ResolveQuestion(q, []*models.AnswerOption{opt("A", 3)}, selection("A"))
	if got.Points != 0 || got.Possible != 0 {
		t.Fatalf("unknown type resolved (%d,%d), want (0,0)", got.Points, got.Possible)
	}
}
