package chat

import "sync/atomic"

// IDGenerator hands out message ids. Ids start at 1 and strictly increase
// for the lifetime of the generator.
type IDGenerator struct {
	last atomic.Uint64
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

func (g *IDGenerator) Next() MessageID {
	return MessageID(g.last.Add(1))
}
