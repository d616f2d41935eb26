package util

import (
	"math/rand"
	"sync"
	"time"
)

// RandomSource 生成测试实例时使用的随机源
type RandomSource interface {
	// Intn returns a uniform integer in [0, n).
	Intn(n int) int
	// Sample returns k distinct integers from [0, n) in random order.
	Sample(n, k int) []int
}

type lockedRandom struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource seed 为 0 时使用当前时间
func NewRandomSource(seed int64) RandomSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRandom{rng: rand.New(rand.NewSource(seed))}
}

func (r *lockedRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *lockedRandom) Sample(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return []int{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	// partial Fisher-Yates
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + r.rng.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}
