package embedding

import (
	"context"
	"crypto/md5"
	"math/big"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// HashingProvider is a deterministic bag-of-words embedding using signed feature
// hashing. Relevance is poor but it needs no model and never fails.
type HashingProvider struct {
	dim int
}

var _ EmbeddingProvider = (*HashingProvider)(nil)

func NewHashingProvider(dim int) *HashingProvider {
	return &HashingProvider{dim: dim}
}

func (p *HashingProvider) Dimensions() int   { return p.dim }
func (p *HashingProvider) ModelName() string { return "feature-hashing-md5" }

func (p *HashingProvider) Embed(_ context.Context, text string) ([]float32, error) {
	return p.embed(text), nil
}

func (p *HashingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.embed(text)
	}
	return out, nil
}

// embed hashes each lowercased word token with MD5, read as a 128-bit big-endian
// integer h. The token lands in bucket h mod dim with sign taken from bit 8 of h.
func (p *HashingProvider) embed(text string) []float32 {
	vec := make([]float32, p.dim)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return vec
	}

	modulus := big.NewInt(int64(p.dim))
	h := new(big.Int)
	idx := new(big.Int)
	for _, tok := range tokens {
		sum := md5.Sum([]byte(tok))
		h.SetBytes(sum[:])
		idx.Mod(h, modulus)

		sign := float32(1)
		// bit 8 of a big-endian 128-bit value is the low bit of byte 14
		if sum[14]&1 == 1 {
			sign = -1
		}
		vec[idx.Int64()] += sign
	}

	return normalizeVector(vec)
}
