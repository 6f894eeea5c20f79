package sentiment

// ScoreFunc scores a text, returning a value in [-1, 1].
// An error excludes the scorer from the ensemble for that text.
type ScoreFunc func(text string) (float64, error)

// Scorer is one named member of the ensemble
type Scorer struct {
	Name  string
	Score ScoreFunc
}
