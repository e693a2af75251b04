package collaborator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLexiconSentimentScore(t *testing.T) {
	scorer := NewLexiconSentiment()

	label, prob := scorer.Score("I loved our amazing evening, thank you")
	require.Equal(t, "positive", label)
	require.Greater(t, prob, 0.6)

	label, prob = scorer.Score("I am upset and frustrated about the fight")
	require.Equal(t, "negative", label)
	require.Less(t, prob, 0.4)

	label, prob = scorer.Score("See you at the station at six")
	require.Equal(t, "neutral", label)
	require.Equal(t, 0.5, prob)

	// Even mix stays neutral.
	label, _ = scorer.Score("happy but sad")
	require.Equal(t, "neutral", label)
}

func TestLexiconSentimentIsCaseInsensitive(t *testing.T) {
	scorer := NewLexiconSentiment()

	label, _ := scorer.Score("LOVED IT, GREAT day")
	require.Equal(t, "positive", label)
}
