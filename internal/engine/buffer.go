package engine

// BufferPair holds two backlog slots. One slot is lent to a producer (the
// worker pushing future work) and the other to a consumer (the partitioner
// draining it). Handles are only obtained from Flip, and every Flip
// invalidates the handles it returned before.
type BufferPair[T any] struct {
	slots [2][]T
	front int
	gen   uint64
}

// Producer is the push-only side of a BufferPair.
type Producer[T any] struct {
	pair *BufferPair[T]
	slot int
	gen  uint64
}

// Consumer is the drain-only side of a BufferPair.
type Consumer[T any] struct {
	pair *BufferPair[T]
	slot int
	gen  uint64
}

// Flip swaps the roles of the two slots and returns fresh handles. It must
// only be called while neither side is using its handle.
func (b *BufferPair[T]) Flip() (Producer[T], Consumer[T]) {
	b.front ^= 1
	b.gen++
	return Producer[T]{pair: b, slot: b.front, gen: b.gen},
		Consumer[T]{pair: b, slot: b.front ^ 1, gen: b.gen}
}

func (b *BufferPair[T]) check(gen uint64) {
	if b == nil {
		panic("engine: buffer handle used before the first flip")
	}
	if gen != b.gen {
		panic("engine: stale buffer handle used after flip")
	}
}

// Push appends v to the producer's slot.
func (p Producer[T]) Push(v T) {
	p.pair.check(p.gen)
	p.pair.slots[p.slot] = append(p.pair.slots[p.slot], v)
}

// Len is the number of items pushed into the producer's slot so far.
func (p Producer[T]) Len() int {
	p.pair.check(p.gen)
	return len(p.pair.slots[p.slot])
}

// Len is the number of items waiting in the consumer's slot.
func (c Consumer[T]) Len() int {
	c.pair.check(c.gen)
	return len(c.pair.slots[c.slot])
}

// DrainInto appends the consumer's items to dst and empties the slot,
// keeping its capacity for the next round.
func (c Consumer[T]) DrainInto(dst []T) []T {
	c.pair.check(c.gen)
	s := c.pair.slots[c.slot]
	dst = append(dst, s...)
	clear(s)
	c.pair.slots[c.slot] = s[:0]
	return dst
}
