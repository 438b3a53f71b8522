package buddy

// freeLevel is the per-level free-list index (spec.md §3.3): a doubly
// linked list, by node id, of nodes currently Free at this level, plus a
// count. Insertion is always at the head; removal is O(1) given the node's
// own prev/next. Order within a level carries no semantic guarantee.
type freeLevel struct {
	head  int
	count int
}

// flInit resets every level's free list to empty.
func (a *Allocator) flInit() {
	for l := range a.free {
		a.free[l] = freeLevel{head: noLink}
	}
}

// flPushFront links node id onto the head of level lvl's free list and
// marks it Free. Used by Init (seeding the root) and by Alloc (when a
// split produces a new free right child) and Free (re-inserting the
// coalesced ancestor).
func (a *Allocator) flPushFront(lvl, id int) {
	n := &a.nodes[id]
	n.state = Free
	n.prev = noLink
	n.next = a.free[lvl].head
	if a.free[lvl].head != noLink {
		a.nodes[a.free[lvl].head].prev = id
	}
	a.free[lvl].head = id
	a.free[lvl].count++
}

// flPopFront removes and returns the head of level lvl's free list, or
// (0, false) if the level is empty. The caller is responsible for changing
// the returned node's state away from Free.
func (a *Allocator) flPopFront(lvl int) (int, bool) {
	id := a.free[lvl].head
	if id == noLink {
		return 0, false
	}
	a.flUnlink(lvl, id)
	return id, true
}

// flUnlink removes node id from level lvl's free list without touching its
// state, for the case where the caller already knows the node's identity
// (coalescing a buddy that may not be the list head).
func (a *Allocator) flUnlink(lvl, id int) {
	n := &a.nodes[id]
	if n.prev != noLink {
		a.nodes[n.prev].next = n.next
	} else {
		a.free[lvl].head = n.next
	}
	if n.next != noLink {
		a.nodes[n.next].prev = n.prev
	}
	n.prev, n.next = noLink, noLink
	a.free[lvl].count--
}
