package buddy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govetachun/kbuddy/pkg/kutil"
)

const testPageSize = 4096

// smallConfig returns a Config small enough for fast, exhaustive tests
// (64 pages, depth 7) while preserving every structural invariant of the
// full-size reference configuration (16384 pages, depth 15).
func smallConfig() Config {
	return Config{PageSize: testPageSize, Pages: 64, MaxAllocPages: 32}
}

func newTestAllocator(t *testing.T, cfg Config) (*Allocator, uintptr) {
	t.Helper()
	a := New(t.Name(), cfg)
	const end = uintptr(0x80000000)
	physTop := end + uintptr(cfg.Pages)*cfg.PageSize
	a.Init(end, physTop)
	return a, kutil.PageRoundUp(end, cfg.PageSize)
}

func TestInitSeedsRootFree(t *testing.T) {
	a, _ := newTestAllocator(t, smallConfig())
	s := a.Stats()
	assert.Equal(t, 64, s.TotalPages)
	assert.Equal(t, 0, s.UsedPages)
	assert.Equal(t, 64, s.FreePages)
	top := len(s.PerLevel) - 1
	assert.Equal(t, 1, s.PerLevel[top].Free)
	for lvl := 0; lvl < top; lvl++ {
		assert.Equal(t, 0, s.PerLevel[lvl].Free)
	}
}

func TestAllocSingleReturnsBase(t *testing.T) {
	a, base := newTestAllocator(t, smallConfig())
	addr := a.Alloc(1)
	require.Equal(t, base, addr)

	s := a.Stats()
	depth := len(s.PerLevel)
	for lvl := 0; lvl < depth-1; lvl++ {
		assert.Equal(t, 1, s.PerLevel[lvl].Free, "level %d", lvl)
	}
	assert.Equal(t, 0, s.PerLevel[depth-1].Free)
}

func TestAllocTwiceThenFreeRestoresState(t *testing.T) {
	a, base := newTestAllocator(t, smallConfig())
	first := a.Alloc(1)
	second := a.Alloc(1)
	require.Equal(t, base, first)
	require.Equal(t, base+testPageSize, second)

	before := a.Stats()

	a.Free(second)
	a.Free(first)

	after := a.Stats()
	assert.Equal(t, before.TotalPages, after.TotalPages)
	top := len(after.PerLevel) - 1
	for lvl, ls := range after.PerLevel {
		if lvl == top {
			assert.Equal(t, 1, ls.Free)
		} else {
			assert.Equal(t, 0, ls.Free)
		}
	}
}

func TestAllocRejectsNonPowerOfTwo(t *testing.T) {
	a, _ := newTestAllocator(t, smallConfig())
	before := a.Stats()

	addr := a.Alloc(3)
	assert.Equal(t, uintptr(0), addr)

	// Each Stats call takes the lock itself, so the lock counters advance by
	// exactly that one acquisition; the tree's counts must not move at all.
	after := a.Stats()
	assert.Equal(t, before.UsedPages, after.UsedPages, "state must be unchanged on a soft-rejected request")
	assert.Equal(t, before.PerLevel, after.PerLevel, "state must be unchanged on a soft-rejected request")
	assert.Equal(t, before.Lock.Acquisitions+1, after.Lock.Acquisitions, "a soft-rejected request must not take the lock")
}

func TestAllocRejectsNonPositiveAndOverCap(t *testing.T) {
	a, _ := newTestAllocator(t, smallConfig())
	assert.Equal(t, uintptr(0), a.Alloc(0))
	assert.Equal(t, uintptr(0), a.Alloc(-4))
	assert.Equal(t, uintptr(0), a.Alloc(a.cfg.maxCap()*2))
}

func TestAllocSplitThenFreeCoalesces(t *testing.T) {
	a, base := newTestAllocator(t, smallConfig())
	addr := a.Alloc(2)
	require.Equal(t, base, addr)

	s := a.Stats()
	assert.Equal(t, 1, s.PerLevel[1].Free, "splitting level 2 should leave one free node at level 1")

	a.Free(addr)
	s = a.Stats()
	top := len(s.PerLevel) - 1
	assert.Equal(t, 1, s.PerLevel[top].Free)
	for lvl := 0; lvl < top; lvl++ {
		assert.Equal(t, 0, s.PerLevel[lvl].Free, "level %d should have coalesced away", lvl)
	}
}

func TestFillThenDrainRestoresInitialState(t *testing.T) {
	cfg := smallConfig()
	a, base := newTestAllocator(t, cfg)

	seen := make(map[uintptr]bool, cfg.Pages)
	addrs := make([]uintptr, 0, cfg.Pages)
	for i := 0; i < cfg.Pages; i++ {
		addr := a.Alloc(1)
		require.NotZero(t, addr, "alloc %d of %d should succeed", i, cfg.Pages)
		require.False(t, seen[addr], "address %#x allocated twice", addr)
		seen[addr] = true
		require.Zero(t, (addr-base)%testPageSize, "address must be page-aligned")
		addrs = append(addrs, addr)
	}
	assert.Equal(t, uintptr(0), a.Alloc(1), "arena is exhausted, next alloc must fail")

	for i := len(addrs) - 1; i >= 0; i-- {
		a.Free(addrs[i])
	}
	s := a.Stats()
	assert.Equal(t, 0, s.UsedPages)
	top := len(s.PerLevel) - 1
	assert.Equal(t, 1, s.PerLevel[top].Free)
}

func TestDoubleFreeIsFatal(t *testing.T) {
	a, _ := newTestAllocator(t, smallConfig())
	addr := a.Alloc(1)
	require.NotZero(t, addr)
	a.Free(addr)
	assert.Panics(t, func() { a.Free(addr) })
}

func TestFreeRejectsUnknownAddress(t *testing.T) {
	a, base := newTestAllocator(t, smallConfig())
	assert.Panics(t, func() { a.Free(0) })
	assert.Panics(t, func() { a.Free(base + 1) })            // misaligned
	assert.Panics(t, func() { a.Free(base - testPageSize) }) // below arena
}

func TestExhaustionRecoverability(t *testing.T) {
	cfg := Config{PageSize: testPageSize, Pages: 8, MaxAllocPages: 8}
	a, _ := newTestAllocator(t, cfg)

	var held []uintptr
	for {
		addr := a.Alloc(4)
		if addr == 0 {
			break
		}
		held = append(held, addr)
	}
	require.NotEmpty(t, held)
	require.Equal(t, uintptr(0), a.Alloc(4), "arena should now be exhausted at level 2")

	a.Free(held[0])
	require.NotZero(t, a.Alloc(4), "freeing a same-size block must unblock a subsequent alloc")
}

func TestDisjointAllocations(t *testing.T) {
	a, _ := newTestAllocator(t, smallConfig())
	type span struct{ lo, hi uintptr }
	var spans []span
	sizes := []int{1, 2, 4, 1, 8, 2}
	for _, n := range sizes {
		addr := a.Alloc(n)
		require.NotZero(t, addr)
		spans = append(spans, span{addr, addr + uintptr(n)*testPageSize})
	}
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			disjoint := spans[i].hi <= spans[j].lo || spans[j].hi <= spans[i].lo
			assert.True(t, disjoint, "spans %v and %v overlap", spans[i], spans[j])
		}
	}
}

func TestNoSiblingsSimultaneouslyFree(t *testing.T) {
	a, _ := newTestAllocator(t, smallConfig())
	// Drive a mix of allocations and frees to exercise splitting and
	// coalescing, then assert the eager-coalescing invariant directly
	// against the node array.
	a1 := a.Alloc(1)
	a2 := a.Alloc(1)
	_ = a.Alloc(4)
	a.Free(a1)
	a.Free(a2)

	for id := range a.nodes {
		n := &a.nodes[id]
		if id == 0 || n.state != Free {
			continue
		}
		buddy := &a.nodes[n.neighbour]
		assert.NotEqual(t, Free, buddy.state, "node %d and its buddy %d are both free", id, n.neighbour)
	}
}
