package embedding

import (
	"math/rand/v2"

	"diachron/internal/space"
)

// Model is a trained word-vector model.
type Model interface {
	// Space returns a snapshot of the current input vectors.
	Space() *space.Space
}

// Trainer trains word-vector models from tokenized sentences.
// Implementations may draw all of their randomness from rng.
type Trainer interface {
	Name() string
	// Train builds a vocabulary from sentences and trains a fresh model.
	Train(sentences [][]string, rng *rand.Rand) (Model, error)
	// Update continues training m in place on sentences, keeping its vocabulary.
	Update(m Model, sentences [][]string, rng *rand.Rand) error
}
