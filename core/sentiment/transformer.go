package sentiment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knights-analytics/hugot"

	"github.com/siherrmann/trendsense/helper"
)

// TransformerScorer creates a scorer backed by a hugot text-classification
// pipeline. Uses the distilbert SST-2 model; its POSITIVE/NEGATIVE
// confidence maps linearly to [-1, 1].
func TransformerScorer() (ScoreFunc, error) {
	modelName := "distilbert/distilbert-base-uncased-finetuned-sst-2-english"
	modelPath, err := helper.PrepareModel(modelName)
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      "sentiment-pipeline",
	}
	classificationPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create classification pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create classification pipeline: %w", err)
	}

	return func(text string) (float64, error) {
		if strings.TrimSpace(text) == "" {
			return 0, errors.New("empty text")
		}

		result, err := classificationPipeline.RunPipeline([]string{text})
		if err != nil {
			return 0, fmt.Errorf("failed to classify text: %w", err)
		}
		if len(result.ClassificationOutputs) == 0 || len(result.ClassificationOutputs[0]) == 0 {
			return 0, errors.New("no classification generated")
		}

		best := result.ClassificationOutputs[0][0]
		score := float64(best.Score)
		if strings.EqualFold(best.Label, "negative") {
			score = -score
		}
		return score, nil
	}, nil
}
