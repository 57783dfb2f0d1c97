package store

import (
	"context"
	"slices"

	"github.com/nvandessel/sense/internal/metric"
	"github.com/nvandessel/sense/internal/models"
)

// ScoreLister is implemented by stores that can read headline scores
// without loading full records.
type ScoreLister interface {
	Scores(ctx context.Context) ([]metric.ScenarioScore, error)
}

// Scores returns the headline score of every stored record, ordered by
// scenario id.
func Scores(ctx context.Context, s RecordStore) ([]metric.ScenarioScore, error) {
	if sl, ok := s.(ScoreLister); ok {
		return sl.Scores(ctx)
	}
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	scores := make([]metric.ScenarioScore, len(recs))
	for i, rec := range recs {
		scores[i] = metric.ScoreOf(rec)
	}
	return scores, nil
}

func sortScores(scores []metric.ScenarioScore) {
	slices.SortFunc(scores, func(a, b metric.ScenarioScore) int {
		return models.CompareScenarioIDs(models.ScenarioID(a.ScenarioID), models.ScenarioID(b.ScenarioID))
	})
}
