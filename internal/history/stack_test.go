package history_test

import (
	"testing"

	"tasktrail/internal/history"
)

func TestStackPushPopPeek(t *testing.T) {
	s := history.NewStack[int](5)
	s.Push(1)
	s.Push(2)
	s.Push(3)
	if got, ok := s.Peek(); !ok || got != 3 {
		t.Fatalf("Peek = %d %v, want 3", got, ok)
	}
	if s.Len() != 3 {
		t.Fatalf("peek changed len to %d", s.Len())
	}
	for _, want := range []int{3, 2, 1} {
		got, ok := s.Pop()
		if !ok || got != want {
			t.Fatalf("Pop = %d %v, want %d", got, ok, want)
		}
	}
	if _, ok := s.Pop(); ok {
		t.Fatalf("empty pop should report false")
	}
	if _, ok := s.Peek(); ok {
		t.Fatalf("empty peek should report false")
	}
}

func TestStackEvictsOldestWhenFull(t *testing.T) {
	s := history.NewStack[int](3)
	for i := 1; i <= 4; i++ {
		s.Push(i)
	}
	if !s.Full() || s.Len() != 3 {
		t.Fatalf("len = %d full = %v, want 3 true", s.Len(), s.Full())
	}
	for _, want := range []int{4, 3, 2} {
		got, ok := s.Pop()
		if !ok || got != want {
			t.Fatalf("Pop = %d %v, want %d", got, ok, want)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("len = %d after draining", s.Len())
	}
}

func TestStackEvictionKeepsOrderAcrossWraps(t *testing.T) {
	s := history.NewStack[int](3)
	for i := 1; i <= 9; i++ {
		s.Push(i)
	}
	items := s.Items()
	for i, want := range []int{9, 8, 7} {
		if items[i] != want {
			t.Fatalf("items = %v, want [9 8 7]", items)
		}
	}
}

func TestStackSearch(t *testing.T) {
	s := history.NewStack[int](5)
	s.Push(10)
	s.Push(20)
	s.Push(30)
	eq := func(want int) func(int) bool {
		return func(v int) bool { return v == want }
	}
	if d := s.Search(eq(30)); d != 0 {
		t.Fatalf("Search(top) = %d, want 0", d)
	}
	if d := s.Search(eq(10)); d != 2 {
		t.Fatalf("Search(bottom) = %d, want 2", d)
	}
	if d := s.Search(eq(99)); d != -1 {
		t.Fatalf("Search(miss) = %d, want -1", d)
	}
}

func TestStackRecent(t *testing.T) {
	s := history.NewStack[int](4)
	for i := 1; i <= 4; i++ {
		s.Push(i)
	}
	got := s.Recent(2)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("Recent(2) = %v, want [3 4]", got)
	}
	got = s.Recent(10)
	if len(got) != 4 || got[0] != 1 {
		t.Fatalf("Recent(10) = %v, want [1 2 3 4]", got)
	}
	if got := s.Recent(0); got != nil {
		t.Fatalf("Recent(0) = %v, want nil", got)
	}
}

func TestStackOps(t *testing.T) {
	s := history.NewStack[int](2)
	s.Push(1)
	s.Push(2)
	s.Push(3) // eviction still counts as one push
	if s.Ops() != 3 {
		t.Fatalf("ops = %d after pushes, want 3", s.Ops())
	}
	s.Pop()
	s.Pop()
	if _, ok := s.Pop(); ok {
		t.Fatalf("pop on empty stack succeeded")
	}
	if s.Ops() != 5 {
		t.Fatalf("ops = %d, want 5; failed pops do not count", s.Ops())
	}
	s.Clear()
	if s.Ops() != 6 {
		t.Fatalf("ops = %d after clear, want 6", s.Ops())
	}
}

func TestStackClearAndCapacityFloor(t *testing.T) {
	s := history.NewStack[int](0)
	if s.Cap() != 1 {
		t.Fatalf("cap = %d, want floor of 1", s.Cap())
	}
	s.Push(1)
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("len = %d after clear", s.Len())
	}
	s.Push(7)
	if got, ok := s.Peek(); !ok || got != 7 {
		t.Fatalf("Peek after clear = %d %v, want 7", got, ok)
	}
}
