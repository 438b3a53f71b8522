package buddy

import (
	"govetachun/kbuddy/internal/klock"
	"govetachun/kbuddy/pkg/kerrors"
	"govetachun/kbuddy/pkg/kutil"
)

// Config configures one Allocator instance. The reference's module-global
// buddy system (spec.md §9 "global state") is parameterized here instead,
// per the spec's own note that this changes nothing algorithmic.
type Config struct {
	// PageSize is the compile-time page size in bytes.
	PageSize uintptr
	// Pages is the total number of pages managed; must be a power of two.
	Pages int
	// MaxAllocPages caps the largest single Alloc request, resolving the
	// spec's §9 Open Question: the reference hard-codes 512 even though
	// the tree supports requests up to Pages/2. Default, when zero, is
	// Pages/32 to match the reference's ratio.
	MaxAllocPages int
}

func (c Config) depth() int   { return kutil.Log2Exact(c.Pages) + 1 }
func (c Config) nodes() int   { return 2*c.Pages - 1 }
func (c Config) maxCap() int {
	if c.MaxAllocPages > 0 {
		return c.MaxAllocPages
	}
	return c.Pages / 32
}

// Allocator is one binary-buddy arena. The zero value is not usable; build
// one with New and call Init before any Alloc/Free.
type Allocator struct {
	cfg Config

	base uintptr // page_align_up(end): the arena's first byte
	end  uintptr // exclusive upper bound this arena instance validates against

	nodes []node
	free  []freeLevel // indexed by level, length == depth

	lock *klock.Lock
}

// New constructs an Allocator for cfg, named for diagnostics (the name is
// given to its lock). It does not touch the arena; call Init to do that.
func New(name string, cfg Config) *Allocator {
	kutil.Assert(kutil.IsPowerOfTwo(cfg.Pages), "buddy: Pages must be a power of two, got %d", cfg.Pages)
	kutil.Assert(cfg.PageSize > 0, "buddy: PageSize must be positive")
	return &Allocator{
		cfg:  cfg,
		lock: klock.New(name),
	}
}

// Init materializes the tree over the arena beginning at end (rounded up
// to page alignment) and extending for cfg.Pages pages, per spec.md §4.1.
// physTop is the exclusive upper bound later used to validate Free
// addresses (spec.md §6's PHYSTOP). Must be called exactly once before any
// other operation.
func (a *Allocator) Init(end uintptr, physTop uintptr) {
	a.base = kutil.PageRoundUp(end, a.cfg.PageSize)
	a.end = physTop

	depth := a.cfg.depth()
	n := a.cfg.nodes()
	a.nodes = make([]node, n)
	a.free = make([]freeLevel, depth)
	a.flInit()

	for id := range a.nodes {
		a.initNode(id, depth)
	}

	a.flPushFront(depth-1, 0) // seed the root as the sole top-level Free block
}

// initNode fixes the structural fields of node id for the lifetime of the
// allocator (spec.md §4.1's "assignment rules during init"); state is set
// separately (node 0 becomes Free via flPushFront, everything else starts
// Nonexistent, which is node's zero value).
func (a *Allocator) initNode(id int, depth int) {
	n := &a.nodes[id]
	n.id = id
	n.lvl = depth - 1 - levelDepthFromID(id)
	n.size = 1 << n.lvl
	n.prev, n.next = noLink, noLink

	if id == 0 {
		n.parent = 0
		n.neighbour = 0
		n.memory = a.base
	} else {
		n.parent = parentID(id)
		if isLeftChild(id) {
			n.neighbour = id + 1
			n.memory = a.nodes[n.parent].memory
		} else {
			n.neighbour = id - 1
			n.memory = a.nodes[n.parent].memory + uintptr(a.nodes[n.parent].size/2)*a.cfg.PageSize
		}
	}

	if rightChildID(id) < len(a.nodes) {
		n.left = leftChildID(id)
		n.right = rightChildID(id)
	} else {
		n.left, n.right = noLink, noLink
	}
}

// levelDepthFromID returns a node's depth from the root (root = 0),
// derived purely from its heap index: id+1 is in [2^depth, 2^(depth+1)).
func levelDepthFromID(id int) int {
	depth := 0
	for v := id + 1; v > 1; v >>= 1 {
		depth++
	}
	return depth
}

// Alloc requests n contiguous pages and returns the base address of a
// naturally aligned block, or 0 on failure (spec.md §4.2). Invalid
// requests (n<=0, not a power of two, or over the configured cap) are
// rejected without touching the lock or any state (spec.md §7 class 2).
func (a *Allocator) Alloc(n int) uintptr {
	if n <= 0 || !kutil.IsPowerOfTwo(n) || n > a.cfg.maxCap() {
		return 0
	}
	lvl := kutil.Log2Exact(n)

	a.lock.Acquire()
	defer a.lock.Release()

	splitLvl := -1
	for l := lvl; l < len(a.free); l++ {
		if a.free[l].count > 0 {
			splitLvl = l
			break
		}
	}
	if splitLvl == -1 {
		return 0 // out of memory, soft failure, state unchanged
	}

	id, ok := a.flPopFront(splitLvl)
	kutil.Assert(ok, "buddy: free list count/head mismatch at level %d", splitLvl)

	for a.nodes[id].lvl > lvl {
		a.nodes[id].state = Inner
		right := a.nodes[id].right
		a.flPushFront(a.nodes[id].lvl-1, right)
		id = a.nodes[id].left
	}
	a.nodes[id].state = Used
	return a.nodes[id].memory
}

// TryAlloc is Alloc with a typed error in place of the bare 0 sentinel,
// for diagnostic callers (the HTTP /alloc endpoint) that want to
// distinguish "bad request" from "exhausted". It does not change Alloc's
// contract; Alloc remains the spec entry point and TryAlloc simply wraps
// it, re-deriving which soft-error class applies.
func (a *Allocator) TryAlloc(n int) (uintptr, error) {
	if n <= 0 || !kutil.IsPowerOfTwo(n) {
		return 0, kerrors.NewInvalidRequest("n must be a positive power of two, got %d", n)
	}
	if n > a.cfg.maxCap() {
		return 0, kerrors.NewInvalidRequest("n=%d exceeds the configured cap of %d pages", n, a.cfg.maxCap())
	}
	if addr := a.Alloc(n); addr != 0 {
		return addr, nil
	}
	return 0, kerrors.NewOutOfMemory("no free block at or above level %d", kutil.Log2Exact(n))
}

// Free releases the block at addr, which must be the exact address
// returned by a prior Alloc (spec.md §4.3). Any other address is a caller
// bug and is fatal, per spec.md §7 class 1.
func (a *Allocator) Free(addr uintptr) {
	kutil.Assert(addr != 0 && addr%a.cfg.PageSize == 0 && addr >= a.base && addr < a.end,
		"buddy: Free called with invalid address %#x", addr)

	a.lock.Acquire()
	defer a.lock.Release()

	id := 0
	for a.nodes[id].state == Inner {
		right := a.nodes[id].right
		if a.nodes[right].memory > addr {
			id = a.nodes[id].left
		} else {
			id = right
		}
	}
	kutil.Assert(a.nodes[id].state == Used && a.nodes[id].memory == addr,
		"buddy: Free called on non-allocated address %#x (double free or mid-block address)", addr)

	for id != 0 {
		buddy := a.nodes[id].neighbour
		if a.nodes[buddy].state != Free {
			break
		}
		lvl := a.nodes[id].lvl
		a.flUnlink(lvl, buddy)
		a.nodes[id].state = Nonexistent
		a.nodes[buddy].state = Nonexistent
		id = a.nodes[id].parent
	}
	a.flPushFront(a.nodes[id].lvl, id)
}
