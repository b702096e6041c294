// Package sampler selects a bounded random subset of candidate URLs.
package sampler

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Sampler draws uniform samples without replacement using reservoir sampling.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Sampler. A nil seed yields a non-deterministic source; a
// fixed seed makes Select reproducible.
func New(seed *uint64) *Sampler {
	var src rand.Source
	if seed != nil {
		src = rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Sampler{rng: rand.New(src)}
}

// Select returns min(n, len(candidates)) distinct elements of candidates.
// Duplicate candidates are collapsed before sampling. The input is not
// modified and the order of the result is not meaningful.
func (s *Sampler) Select(candidates []string, n int) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample size must be non-negative, got %d", n)
	}
	pool := dedupe(candidates)
	if n >= len(pool) {
		return pool, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reservoir := make([]string, n)
	copy(reservoir, pool[:n])
	for i := n; i < len(pool); i++ {
		j := s.rng.IntN(i + 1)
		if j < n {
			reservoir[j] = pool[i]
		}
	}
	return reservoir, nil
}

func dedupe(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
