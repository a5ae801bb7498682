package services

import (
	"fmt"
	"sort"

	"github.com/tallylabs/tally/internal/models"
)

// ClassifyTier maps a percentage onto the first tier, in ascending MinPct
// order, whose inclusive band contains it. A nil percentage (nothing
// scorable) yields a nil tier, as does a percentage no band covers.
// First match is the documented tie-break when bands overlap.
func ClassifyTier(pct *int, tiers []*models.ScoreTier) *models.ScoreTier {
	if pct == nil {
		return nil
	}
	for _, t := range sortTiers(tiers) {
		if *pct >= t.MinPct && *pct <= t.MaxPct {
			return t
		}
	}
	return nil
}

// ValidateTiers reports whether the tiers partition [0,100] with no gaps or
// overlaps. The engine never rejects a run on a bad partition; authoring
// surfaces use this to warn before it becomes consumer-visible.
func ValidateTiers(tiers []*models.ScoreTier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("no tiers defined")
	}
	next := 0
	for _, t := range sortTiers(tiers) {
		if t.MinPct > t.MaxPct {
			return fmt.Errorf("tier %q has min %d above max %d", t.Label, t.MinPct, t.MaxPct)
		}
		if t.MinPct > next {
			return fmt.Errorf("gap in tier coverage before %d%%", t.MinPct)
		}
		if t.MinPct < next {
			return fmt.Errorf("tier %q overlaps previous band at %d%%", t.Label, t.MinPct)
		}
		next = t.MaxPct + 1
	}
	if next <= 100 {
		return fmt.Errorf("tier coverage stops at %d%%", next-1)
	}
	return nil
}

func sortTiers(tiers []*models.ScoreTier) []*models.ScoreTier {
	ordered := make([]*models.ScoreTier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].MinPct < ordered[j].MinPct })
	return ordered
}
