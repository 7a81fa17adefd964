package model

import (
	"math/rand/v2"
	"sync/atomic"
)

// CallIDSource hands out monotonically increasing call ids.
type CallIDSource struct {
	last atomic.Int64
}

// NewCallIDSource returns a source whose first id is seed+1.
func NewCallIDSource(seed int64) *CallIDSource {
	s := &CallIDSource{}
	s.last.Store(seed)
	return s
}

// NewRandomCallIDSource returns a source seeded at a random offset so ids of
// separate runs do not collide.
func NewRandomCallIDSource() *CallIDSource {
	return NewCallIDSource(1000 + rand.Int64N(9_000_000))
}

// Next returns a fresh id.
func (s *CallIDSource) Next() int64 { return s.last.Add(1) }
