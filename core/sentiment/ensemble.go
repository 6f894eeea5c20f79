package sentiment

import (
	"log/slog"
	"math"

	"github.com/siherrmann/trendsense/model"
)

// Ensemble combines several independent scorers into one sentiment result.
// Scoring never fails: scorers that error on a text are excluded from the
// mean, and if all of them fail the result is an explicitly flagged neutral.
type Ensemble struct {
	scorers   []Scorer
	threshold float64
	log       *slog.Logger
}

// NewEnsemble creates an ensemble over the given scorers with the
// documented labeling threshold
func NewEnsemble(scorers []Scorer, threshold float64, logger *slog.Logger) *Ensemble {
	return &Ensemble{
		scorers:   scorers,
		threshold: threshold,
		log:       logger,
	}
}

// DefaultScorers returns the standard two-scorer ensemble members
func DefaultScorers() []Scorer {
	return []Scorer{
		{Name: "lexicon", Score: LexiconScorer()},
		{Name: "polarity", Score: PolarityScorer()},
	}
}

// Score scores a text with every scorer and combines the survivors.
// The final score is the mean of the per-scorer scores, each clamped to
// [-1, 1]; agreement is true iff all surviving scorers produce the same
// label under the shared threshold.
func (e *Ensemble) Score(text string) *model.SentimentResult {
	perScorer := make(model.ScorerScores, len(e.scorers))

	total := 0.0
	for _, scorer := range e.scorers {
		score, err := scorer.Score(text)
		if err != nil {
			e.log.Debug("Scorer failed, excluding from ensemble", slog.String("scorer", scorer.Name), slog.String("error", err.Error()))
			continue
		}
		score = clamp(score)
		perScorer[scorer.Name] = score
		total += score
	}

	if len(perScorer) == 0 {
		return &model.SentimentResult{
			Label:            model.SentimentNeutral,
			Score:            0,
			PerScorerScores:  perScorer,
			AllScorersFailed: true,
		}
	}

	mean := total / float64(len(perScorer))

	agreement := true
	var firstLabel model.SentimentLabel
	first := true
	for _, score := range perScorer {
		label := model.LabelForScore(score, e.threshold)
		if first {
			firstLabel = label
			first = false
			continue
		}
		if label != firstLabel {
			agreement = false
			break
		}
	}

	return &model.SentimentResult{
		Label:           model.LabelForScore(mean, e.threshold),
		Score:           mean,
		PerScorerScores: perScorer,
		Agreement:       agreement,
	}
}

func clamp(score float64) float64 {
	return math.Max(-1, math.Min(1, score))
}
