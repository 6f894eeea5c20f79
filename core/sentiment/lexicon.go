package sentiment

import (
	"errors"
	"math"
	"strings"
	"unicode"
)

// valence holds the lexicon of word valences on the usual -4..+4 scale
var valence = map[string]float64{
	"abandon": -1.9, "abuse": -3.2, "accident": -2.1, "achieve": 2.4,
	"amazing": 2.8, "anger": -2.7, "angry": -2.3, "attack": -2.0,
	"awesome": 3.1, "awful": -3.0, "bad": -2.5, "ban": -2.0,
	"beautiful": 2.9, "best": 3.2, "better": 1.9, "breach": -2.4,
	"breakthrough": 2.6, "broken": -1.9, "cancel": -1.6, "celebrate": 2.7,
	"chaos": -2.6, "cheap": -0.8, "collapse": -2.9, "crash": -2.7,
	"crime": -2.5, "crisis": -3.1, "cut": -1.1, "damage": -2.2,
	"danger": -2.4, "dead": -3.3, "death": -2.9, "decline": -1.6,
	"delay": -1.4, "disaster": -3.1, "disappointing": -2.2, "drop": -1.2,
	"excellent": 3.0, "exciting": 2.4, "fail": -2.5, "failure": -2.6,
	"fake": -2.1, "fall": -1.1, "fantastic": 2.9, "fear": -2.2,
	"fine": 0.8, "fraud": -3.0, "free": 1.6, "gain": 1.7,
	"good": 1.9, "great": 3.1, "grow": 1.4, "growth": 1.6,
	"happy": 2.7, "hate": -2.7, "help": 1.7, "hope": 1.9,
	"horrible": -2.8, "improve": 2.0, "improvement": 1.9, "increase": 0.9,
	"innovative": 2.1, "jail": -2.3, "kill": -3.6, "launch": 1.2,
	"layoff": -2.4, "lose": -2.0, "loss": -1.9, "love": 3.2,
	"lucky": 2.2, "nice": 1.8, "opportunity": 1.9, "optimistic": 2.0,
	"pain": -2.4, "panic": -2.6, "perfect": 3.0, "poor": -2.1,
	"problem": -1.7, "profit": 1.8, "progress": 1.9, "promising": 2.0,
	"protest": -1.3, "raise": 1.0, "record": 1.1, "recover": 1.6,
	"rise": 0.9, "risk": -1.5, "sad": -2.1, "safe": 1.8,
	"scam": -2.9, "scandal": -2.7, "secure": 1.6, "slow": -1.0,
	"strong": 1.9, "succeed": 2.4, "success": 2.7, "successful": 2.6,
	"support": 1.7, "terrible": -3.0, "threat": -2.3, "thrive": 2.4,
	"trouble": -2.0, "warning": -1.6, "weak": -1.6, "win": 2.8,
	"wonderful": 2.9, "worst": -3.1, "wrong": -2.1,
}

// negations flip the valence of the following sentiment-bearing word
var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "neither": {}, "nobody": {},
	"none": {}, "cannot": {}, "cant": {}, "dont": {}, "doesnt": {},
	"didnt": {}, "wont": {}, "isnt": {}, "wasnt": {}, "without": {},
}

// boosters amplify or dampen the valence of the following word
var boosters = map[string]float64{
	"very": 0.3, "extremely": 0.4, "really": 0.3, "incredibly": 0.4,
	"absolutely": 0.3, "totally": 0.3, "highly": 0.25, "hugely": 0.35,
	"slightly": -0.3, "somewhat": -0.25, "barely": -0.4, "hardly": -0.4,
}

// normalization constant for the compound score, keeps it in (-1, 1)
const lexiconAlpha = 15.0

// LexiconScorer scores text with a valence lexicon, handling negation and
// intensity boosters, and normalizes the summed valence to [-1, 1].
func LexiconScorer() ScoreFunc {
	return func(text string) (float64, error) {
		tokens := tokenize(text)
		if len(tokens) == 0 {
			return 0, errors.New("no scorable tokens")
		}

		total := 0.0
		hits := 0
		for i, tok := range tokens {
			v, ok := valence[tok]
			if !ok {
				continue
			}
			hits++

			if i > 0 {
				prev := tokens[i-1]
				if boost, ok := boosters[prev]; ok {
					if v > 0 {
						v += boost
					} else {
						v -= boost
					}
				}
				if _, negated := negations[prev]; negated {
					v = -v * 0.74
				} else if i > 1 {
					if _, negated := negations[tokens[i-2]]; negated {
						v = -v * 0.74
					}
				}
			}

			total += v
		}

		if hits == 0 {
			return 0, nil
		}

		return total / math.Sqrt(total*total+lexiconAlpha), nil
	}
}

// tokenize lowercases and splits text into word tokens, dropping punctuation
func tokenize(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}
