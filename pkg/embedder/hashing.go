package embedder

import (
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// HashingEmbedder is a deterministic bag-of-words embedder used as the
// local fallback model. Tokens are hashed into a fixed number of buckets
// and term frequencies are L2-normalized, so any two processes produce the
// same vector for the same text without a vocabulary preparation phase.
// It is read-only after construction and safe for concurrent Encode calls.
type HashingEmbedder struct {
	dim          int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return &HashingEmbedder{
		dim:          dim,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

func (e *HashingEmbedder) Name() string {
	return fmt.Sprintf("hashing-%d", e.dim)
}

func (e *HashingEmbedder) Dimensions() int { return e.dim }

// Encode embeds each text independently. Texts with no usable tokens yield
// zero vectors rather than an error.
func (e *HashingEmbedder) Encode(texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *HashingEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dim)

	tokens := e.tokenize(text)
	if len(tokens) == 0 {
		return vec
	}

	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		sum := h.Sum32()
		bucket := int(sum % uint32(e.dim))
		// Half the tokens subtract instead of add, which keeps unrelated
		// texts near-orthogonal despite bucket collisions.
		if sum&0x80000000 != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}

	return vec
}

func (e *HashingEmbedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are",
		"was", "were", "be", "been", "being", "it", "this", "that",
		"these", "those", "from", "so", "such", "into", "about",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
