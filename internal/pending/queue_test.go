package pending

import "testing"

func TestQueuePushDrainOrder(t *testing.T) {
	q := NewQueue[int]()
	q.Push(1)
	q.Push(2)
	q.Push(3)

	got := q.DrainAll()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestQueueDrainEmptyReturnsNil(t *testing.T) {
	q := NewQueue[int]()
	if got := q.DrainAll(); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestQueueDrainIsIdempotentBetweenPushes(t *testing.T) {
	q := NewQueue[int]()
	q.Push(1)
	first := q.DrainAll()
	if len(first) != 1 {
		t.Fatalf("first drain = %v, want one item", first)
	}
	second := q.DrainAll()
	if len(second) != 0 {
		t.Fatalf("second drain = %v, want empty", second)
	}
	q.Push(2)
	third := q.DrainAll()
	if len(third) != 1 || third[0] != 2 {
		t.Fatalf("third drain = %v, want [2]", third)
	}
}

func TestQueueLen(t *testing.T) {
	q := NewQueue[string]()
	if q.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", q.Len())
	}
	q.Push("a")
	q.Push("b")
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
	q.DrainAll()
	if q.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after drain", q.Len())
	}
}
