package corpus

import "math/rand/v2"

// Resample draws len(sentences) sentences with replacement. The returned
// slice shares sentence storage with the input. An empty input yields nil.
func Resample(sentences [][]string, rng *rand.Rand) [][]string {
	if len(sentences) == 0 {
		return nil
	}
	out := make([][]string, len(sentences))
	for i := range out {
		out[i] = sentences[rng.IntN(len(sentences))]
	}
	return out
}
