package sentiment

import "errors"

// polarity maps words directly to a polarity in [-1, 1], the role the
// pattern-style scorer plays next to the valence lexicon: a second,
// independently-derived signal over the same text.
var polarity = map[string]float64{
	"amazing": 0.8, "awesome": 0.9, "awful": -0.9, "bad": -0.7,
	"beautiful": 0.85, "best": 1.0, "better": 0.5, "boring": -0.5,
	"brilliant": 0.9, "broken": -0.4, "cheap": -0.3, "clean": 0.4,
	"dangerous": -0.6, "dead": -0.8, "difficult": -0.4, "dirty": -0.6,
	"disappointing": -0.7, "disgusting": -1.0, "easy": 0.4, "excellent": 1.0,
	"exciting": 0.7, "fail": -0.7, "fake": -0.6, "fantastic": 0.9,
	"fast": 0.3, "fine": 0.4, "free": 0.4, "fresh": 0.3,
	"good": 0.7, "great": 0.8, "happy": 0.8, "hard": -0.3,
	"hate": -0.8, "horrible": -1.0, "important": 0.2, "impressive": 0.75,
	"innovative": 0.6, "interesting": 0.5, "love": 0.7, "lucky": 0.6,
	"new": 0.1, "nice": 0.6, "old": -0.1, "perfect": 1.0,
	"poor": -0.6, "popular": 0.4, "sad": -0.7, "safe": 0.5,
	"secure": 0.5, "serious": -0.3, "significant": 0.3, "slow": -0.3,
	"strong": 0.45, "stupid": -0.8, "terrible": -1.0, "useful": 0.6,
	"useless": -0.8, "weak": -0.5, "wonderful": 0.9, "worst": -1.0,
	"wrong": -0.5,
}

// PolarityScorer averages the polarity of all matched words.
// Texts with no matched word score neutral.
func PolarityScorer() ScoreFunc {
	return func(text string) (float64, error) {
		tokens := tokenize(text)
		if len(tokens) == 0 {
			return 0, errors.New("no scorable tokens")
		}

		total := 0.0
		hits := 0
		for _, tok := range tokens {
			if p, ok := polarity[tok]; ok {
				total += p
				hits++
			}
		}

		if hits == 0 {
			return 0, nil
		}
		return total / float64(hits), nil
	}
}
