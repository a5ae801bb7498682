package services

import (
	"math"

	"github.com/tallylabs/tally/internal/models"
)

// Aggregate sums resolved question scores for one category and derives the
// percentage and tier.
func Aggregate(scores []QuestionScore, tiers []*models.ScoreTier) models.CategoryResult {
	var out models.CategoryResult
	for _, s := range scores {
		out.Points += s.Points
		out.Possible += s.Possible
	}
	out.Percentage = percentageOf(out.Points, out.Possible)
	if t := ClassifyTier(out.Percentage, tiers); t != nil {
		out.TierID = t.ID
	}
	return out
}

// AggregateOverall folds category results into the assessment-level result.
// Categories not flagged include-in-total contribute neither numerator nor
// denominator.
func AggregateOverall(categories []*models.Category, results map[string]models.CategoryResult, tiers []*models.ScoreTier) models.CategoryResult {
	var out models.CategoryResult
	for _, c := range categories {
		if !c.IncludeInTotal {
			continue
		}
		r, ok := results[c.ID]
		if !ok {
			continue
		}
		out.Points += r.Points
		out.Possible += r.Possible
	}
	out.Percentage = percentageOf(out.Points, out.Possible)
	if t := ClassifyTier(out.Percentage, tiers); t != nil {
		out.TierID = t.ID
	}
	return out
}

// percentageOf rounds points/possible to a whole percentage. A denominator
// of zero yields nil, never a division by zero.
func percentageOf(points, possible int) *int {
	if possible <= 0 {
		return nil
	}
	pct := int(math.Round(float64(points) / float64(possible) * 100))
	return &pct
}
