package kutil

import "testing"

func TestIsPowerOfTwo(t *testing.T) {
	cases := map[int]bool{
		0: false, 1: true, 2: true, 3: false, 4: true,
		1023: false, 1024: true, -8: false,
	}
	for n, want := range cases {
		if got := IsPowerOfTwo(n); got != want {
			t.Errorf("IsPowerOfTwo(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestLog2Exact(t *testing.T) {
	cases := map[int]int{1: 0, 2: 1, 4: 2, 1024: 10, 16384: 14, 3: -1, 0: -1}
	for n, want := range cases {
		if got := Log2Exact(n); got != want {
			t.Errorf("Log2Exact(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestPageRounding(t *testing.T) {
	const pageSize = 4096
	if got := PageRoundUp(1, pageSize); got != pageSize {
		t.Errorf("PageRoundUp(1) = %d, want %d", got, pageSize)
	}
	if got := PageRoundUp(pageSize, pageSize); got != pageSize {
		t.Errorf("PageRoundUp(pageSize) = %d, want %d", got, pageSize)
	}
	if got := PageRoundDown(pageSize+1, pageSize); got != pageSize {
		t.Errorf("PageRoundDown(pageSize+1) = %d, want %d", got, pageSize)
	}
}

func TestAssertPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Assert to panic")
		}
	}()
	Assert(false, "boom %d", 1)
}
