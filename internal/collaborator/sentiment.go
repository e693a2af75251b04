package collaborator

import (
	"regexp"
	"strings"
)

var sentimentWordPattern = regexp.MustCompile(`[\w']+`)

var positiveWords = map[string]struct{}{
	"love": {}, "loved": {}, "great": {}, "happy": {}, "glad": {}, "fun": {},
	"excited": {}, "wonderful": {}, "amazing": {}, "sweet": {}, "thanks": {},
	"thank": {}, "appreciate": {}, "miss": {}, "beautiful": {}, "proud": {},
	"enjoy": {}, "enjoyed": {}, "best": {}, "awesome": {},
}

var negativeWords = map[string]struct{}{
	"angry": {}, "sad": {}, "upset": {}, "hate": {}, "annoyed": {}, "tired": {},
	"frustrated": {}, "sorry": {}, "worried": {}, "stressed": {}, "hurt": {},
	"disappointed": {}, "lonely": {}, "awful": {}, "terrible": {}, "worst": {},
	"never": {}, "fight": {}, "argue": {},
}

// LexiconSentiment is the deterministic sentiment heuristic used when the
// language model is unavailable. It scores a draft by counting lexicon hits.
type LexiconSentiment struct{}

// NewLexiconSentiment constructs the heuristic scorer.
func NewLexiconSentiment() *LexiconSentiment {
	return &LexiconSentiment{}
}

// Score labels the text positive, negative, or neutral and reports the
// estimated probability that the tone is positive.
func (s *LexiconSentiment) Score(text string) (string, float64) {
	words := sentimentWordPattern.FindAllString(strings.ToLower(text), -1)

	positive, negative := 0, 0
	for _, word := range words {
		if _, ok := positiveWords[word]; ok {
			positive++
		}
		if _, ok := negativeWords[word]; ok {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return "neutral", 0.5
	}

	probability := float64(positive) / float64(total)
	switch {
	case probability > 0.6:
		return "positive", probability
	case probability < 0.4:
		return "negative", probability
	default:
		return "neutral", probability
	}
}
