package history

// Stack is a bounded LIFO over a fixed-capacity ring buffer. Pushing onto a
// full stack evicts the oldest element; nothing grows and nothing errors.
type Stack[T any] struct {
	buf  []T
	head int // slot of the oldest element
	size int
	ops  int
}

func NewStack[T any](capacity int) *Stack[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Stack[T]{buf: make([]T, capacity)}
}

func (s *Stack[T]) Push(v T) {
	s.ops++
	if s.size == len(s.buf) {
		// Overwrite the oldest slot; it becomes the new top.
		s.buf[s.head] = v
		s.head = (s.head + 1) % len(s.buf)
		return
	}
	s.buf[(s.head+s.size)%len(s.buf)] = v
	s.size++
}

func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if s.size == 0 {
		return zero, false
	}
	s.ops++
	top := (s.head + s.size - 1) % len(s.buf)
	v := s.buf[top]
	s.buf[top] = zero
	s.size--
	return v, true
}

func (s *Stack[T]) Peek() (T, bool) {
	if s.size == 0 {
		var zero T
		return zero, false
	}
	return s.buf[(s.head+s.size-1)%len(s.buf)], true
}

func (s *Stack[T]) Len() int { return s.size }

func (s *Stack[T]) Cap() int { return len(s.buf) }

func (s *Stack[T]) Full() bool { return s.size == len(s.buf) }

// Ops counts pushes, successful pops, and clears over the stack's lifetime.
func (s *Stack[T]) Ops() int { return s.ops }

func (s *Stack[T]) Clear() {
	var zero T
	for i := range s.buf {
		s.buf[i] = zero
	}
	s.head = 0
	s.size = 0
	s.ops++
}

// Search returns the distance from the top of the first element matching,
// 0 for the top itself, or -1 when nothing matches.
func (s *Stack[T]) Search(match func(T) bool) int {
	for i := s.size - 1; i >= 0; i-- {
		if match(s.buf[(s.head+i)%len(s.buf)]) {
			return s.size - 1 - i
		}
	}
	return -1
}

// Recent returns up to n most recently pushed elements, oldest first.
func (s *Stack[T]) Recent(n int) []T {
	if n > s.size {
		n = s.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, 0, n)
	for i := s.size - n; i < s.size; i++ {
		out = append(out, s.buf[(s.head+i)%len(s.buf)])
	}
	return out
}

// Items returns every element top to bottom.
func (s *Stack[T]) Items() []T {
	out := make([]T, 0, s.size)
	for i := s.size - 1; i >= 0; i-- {
		out = append(out, s.buf[(s.head+i)%len(s.buf)])
	}
	return out
}
