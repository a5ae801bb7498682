package services

import (
	"strconv"
	"strings"

	"github.com/tallylabs/tally/internal/models"
)

// QuestionScore is the resolved outcome for a single question.
type QuestionScore struct {
	Points   int
	Possible int
}

// ResolveQuestion computes the (points, possible) pair for one question
// given its ordered options and the respondent's response. resp is nil when
// the respondent skipped the question; a skipped question scores zero.
func ResolveQuestion(q *models.Question, options []*models.AnswerOption, resp *models.Response) QuestionScore {
	switch q.Type {
	case models.QuestionOpenText:
		// Open text never contributes to any total.
		return QuestionScore{}
	case models.QuestionYesNo, models.QuestionMultipleChoice, models.QuestionImageSelect:
		return resolveSingleSelect(options, resp)
	case models.QuestionCheckbox:
		return resolveCheckbox(options, resp)
	case models.QuestionSlidingScale:
		return resolveSlidingScale(q, resp)
	case models.QuestionRatingScale:
		return resolveRatingScale(q, options, resp)
	}
	// The type set is closed; an unknown value is corrupt data. Score it as
	// nothing rather than abort the whole run.
	return QuestionScore{}
}

// resolveSingleSelect awards the points of the single selected option.
// Possible is the best option on offer.
func resolveSingleSelect(options []*models.AnswerOption, resp *models.Response) QuestionScore {
	var score QuestionScore
	if len(options) > 0 {
		best := options[0].Points
		for _, opt := range options[1:] {
			if opt.Points > best {
				best = opt.Points
			}
		}
		score.Possible = best
	}
	if resp == nil || len(resp.SelectedOptionIDs) == 0 {
		return score
	}
	selected := resp.SelectedOptionIDs[0]
	for _, opt := range options {
		if opt.ID == selected {
			score.Points = opt.Points
			break
		}
	}
	return score
}

// resolveCheckbox sums selected option points. Only positive-point options
// count toward possible, but a selected negative option still subtracts.
func resolveCheckbox(options []*models.AnswerOption, resp *models.Response) QuestionScore {
	var score QuestionScore
	byID := make(map[string]*models.AnswerOption, len(options))
	for _, opt := range options {
		byID[opt.ID] = opt
		if opt.Points > 0 {
			score.Possible += opt.Points
		}
	}
	if resp == nil {
		return score
	}
	// Count each option once even if the stored row repeats an id.
	for _, id := range resp.SelectedOptionIDs {
		if opt, ok := byID[id]; ok {
			score.Points += opt.Points
			delete(byID, id)
		}
	}
	return score
}

// resolveSlidingScale parses the numeric value encoded as the selected
// identifier. Absent or unparsable values score zero.
func resolveSlidingScale(q *models.Question, resp *models.Response) QuestionScore {
	cfg := ParseScaleSettings(q.Settings)
	score := QuestionScore{Possible: cfg.Max}
	if resp == nil || len(resp.SelectedOptionIDs) == 0 {
		return score
	}
	if n, err := strconv.Atoi(strings.TrimSpace(resp.SelectedOptionIDs[0])); err == nil {
		score.Points = n
	}
	return score
}

// resolveRatingScale matches the selected option like a single-select, but
// the denominator comes from the configured scale bounds.
func resolveRatingScale(q *models.Question, options []*models.AnswerOption, resp *models.Response) QuestionScore {
	score := resolveSingleSelect(options, resp)
	cfg := ParseScaleSettings(q.Settings)
	score.Possible = cfg.Max
	return score
}
