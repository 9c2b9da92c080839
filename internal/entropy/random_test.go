package entropy

import "testing"

func TestXorShiftDeterministic(t *testing.T) {
	a := NewXorShift(99)
	b := NewXorShift(99)
	for i := 0; i < 1000; i++ {
		if x, y := a.Uint64(), b.Uint64(); x != y {
			t.Fatalf("step %d: %d != %d", i, x, y)
		}
	}
}

func TestXorShiftSeedsDiffer(t *testing.T) {
	a := NewXorShift(1)
	b := NewXorShift(2)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Uint32() == b.Uint32() {
			same++
		}
	}
	if same > 1 {
		t.Fatalf("expected independent streams, %d of 100 matched", same)
	}
}

func TestXorShiftReseed(t *testing.T) {
	s := NewXorShift(5)
	first := s.Uint64()
	s.Uint64()
	s.Seed(5)
	if got := s.Uint64(); got != first {
		t.Fatalf("reseeded stream starts at %d, want %d", got, first)
	}
}

func TestFloat64Range(t *testing.T) {
	s := NewXorShift(123)
	for i := 0; i < 10000; i++ {
		f := s.Float64()
		if f < 0 || f >= 1 {
			t.Fatalf("Float64() = %v out of [0,1)", f)
		}
	}
}

func TestRandBackedBySource(t *testing.T) {
	a := New(7)
	b := New(7)
	for i := 0; i < 100; i++ {
		if x, y := a.Intn(1000), b.Intn(1000); x != y {
			t.Fatalf("Intn diverged at %d: %d vs %d", i, x, y)
		}
	}
}

func TestRandomSeedNonZero(t *testing.T) {
	for i := 0; i < 10; i++ {
		if RandomSeed() <= 0 {
			t.Fatal("RandomSeed returned non-positive seed")
		}
	}
}
