package ai

import "math/rand/v2"

const maxSeed = 1_000_000

// SeedSource выдаёт seed для генерации изображений, если клиент его не передал.
type SeedSource interface {
	NextSeed() int64
}

type randomSeedSource struct{}

// NewRandomSeedSource возвращает источник случайных seed в диапазоне [0, 1000000).
func NewRandomSeedSource() SeedSource { return randomSeedSource{} }

func (randomSeedSource) NextSeed() int64 { return rand.Int64N(maxSeed) }

// FixedSeed всегда возвращает одно и то же значение. Используется в тестах.
type FixedSeed int64

func (s FixedSeed) NextSeed() int64 { return int64(s) }
