package embedding

import (
	"context"
	"hash/fnv"
	"math/rand"
)

// DeterministicClient produces a stable pseudo-random unit vector from a
// content hash. It exists so the service keeps working with no embedding
// model configured; vectors are only comparable to other vectors it made.
type DeterministicClient struct {
	dim int
}

func NewDeterministicClient(dim int) *DeterministicClient {
	return &DeterministicClient{dim: dim}
}

func (c *DeterministicClient) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	v := make([]float32, c.dim)
	for i := range v {
		// Signed bits keep the distribution centered on zero.
		v[i] = 1
		if rng.Intn(2) == 0 {
			v[i] = -1
		}
	}
	return Normalize(v), nil
}

func (c *DeterministicClient) Dimension() int { return c.dim }

func (c *DeterministicClient) Deterministic() bool { return true }
