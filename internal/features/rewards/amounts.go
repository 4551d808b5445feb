// Package rewards — amounts.go: источник случайной суммы награды.
// Вынесен в интерфейс, чтобы в тестах подставлять фиксированные суммы.
package rewards

import (
	"math/rand"
	"sync"
	"time"
)

// AmountSource выдаёт сумму награды за просмотр рекламы (в пайсах).
type AmountSource interface {
	Next() int64
}

// RandAmountSource — псевдослучайный источник в закрытом диапазоне
// [min, max]. Потокобезопасный: просмотры завершаются параллельно.
type RandAmountSource struct {
	mu  sync.Mutex
	rng *rand.Rand
	min int64
	max int64
}

// NewRandAmountSource создаёт источник для диапазона [min, max] пайс.
func NewRandAmountSource(min, max int64) *RandAmountSource {
	return &RandAmountSource{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		min: min,
		max: max,
	}
}

// Next возвращает случайную сумму, границы включительно.
func (s *RandAmountSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.min + s.rng.Int63n(s.max-s.min+1)
}
