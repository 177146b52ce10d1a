package storage

// ringBuffer is a fixed-capacity ring. When full, the oldest item is
// overwritten. Not safe for concurrent use; MemoryStore guards it.
type ringBuffer[T any] struct {
	items []T
	cap   int
	head  int // index of the oldest element
	count int
}

func newRingBuffer[T any](capacity int) *ringBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer[T]{
		items: make([]T, capacity),
		cap:   capacity,
	}
}

func (rb *ringBuffer[T]) add(v T) {
	if rb.count == rb.cap {
		rb.items[rb.head] = v
		rb.head = (rb.head + 1) % rb.cap
		return
	}
	rb.items[(rb.head+rb.count)%rb.cap] = v
	rb.count++
}

// list returns the items oldest first.
func (rb *ringBuffer[T]) list() []T {
	out := make([]T, rb.count)
	for i := 0; i < rb.count; i++ {
		out[i] = rb.items[(rb.head+i)%rb.cap]
	}
	return out
}
