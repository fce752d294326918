package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_\-]+`)

// HashEmbedder is a local bag-of-words embedder. Each lowercased token is
// hashed into a signed bucket. It needs no network and is deterministic.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hashing embedder with the given dimensions.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Embed(_ context.Context, text string) (Vector, error) {
	vec := make(Vector, e.dims)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		vec[sum%uint64(e.dims)] += sign
	}
	normalize(vec)
	return vec, nil
}

func (e *HashEmbedder) Dims() int { return e.dims }

func normalize(vec Vector) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
}
