package wlist

import (
	"fmt"
	"iter"
)

const (
	pageShift = 6
	pageSize  = 1 << pageShift
	pageMask  = pageSize - 1
)

type slotState uint8

const (
	slotFree slotState = iota
	slotHead
	slotDetached
	slotLinked
)

func (s slotState) String() string {
	switch s {
	case slotFree:
		return "free"
	case slotHead:
		return "head"
	case slotDetached:
		return "detached"
	case slotLinked:
		return "linked"
	default:
		return "unknown"
	}
}

// Node is a handle to one slot of an Arena. The zero Node refers to nothing.
//
// A Node carries the generation of its slot, so a handle kept past
// Release is rejected instead of silently aliasing a reused slot.
type Node struct {
	idx uint32
	gen uint32
}

// IsZero reports whether n is the zero handle.
func (n Node) IsZero() bool {
	return n.idx == 0
}

func (n Node) String() string {
	if n.IsZero() {
		return "wlist.Node(nil)"
	}
	return fmt.Sprintf("wlist.Node(%d@%d)", n.idx, n.gen)
}

type slot[T any] struct {
	prev  uint32
	next  uint32
	gen   uint32
	state slotState
	value T
}

type page[T any] [pageSize]slot[T]

// Arena stores list heads and element links for one relationship.
//
// Heads and elements share the index space: a head is a slot without a
// value, an element is a slot carrying the owner reference T. Slots live in
// fixed-size pages, so pointers returned by Value stay valid while the slot
// is allocated.
//
// Arena is not safe for concurrent use.
type Arena[T any] struct {
	pages []*page[T]
	next  uint32
	free  []uint32
	live  int
}

// NewArena returns an empty arena. The zero Arena is also ready to use.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{}
}

// NewHead allocates a sentinel head with an empty ring.
func (a *Arena[T]) NewHead() Node {
	i := a.alloc()
	s := a.at(i)
	s.state = slotHead
	s.prev, s.next = i, i
	return Node{idx: i, gen: s.gen}
}

// New allocates a detached element link owned by v.
func (a *Arena[T]) New(v T) Node {
	i := a.alloc()
	s := a.at(i)
	s.state = slotDetached
	s.prev, s.next = i, i
	s.value = v
	return Node{idx: i, gen: s.gen}
}

// Release frees the slot behind n. Elements must be detached and heads
// must be empty; anything else would leave dangling neighbors.
func (a *Arena[T]) Release(n Node) {
	s := a.slot(n)
	switch s.state {
	case slotLinked:
		panic(fmt.Sprintf("wlist: release of linked %s", n))
	case slotHead:
		if s.next != n.idx {
			panic(fmt.Sprintf("wlist: release of non-empty head %s", n))
		}
	}
	var zero T
	s.value = zero
	s.state = slotFree
	s.gen++
	s.prev, s.next = 0, 0
	a.free = append(a.free, n.idx)
	a.live--
}

// Init resets n to a self-referential ring. It is a no-op on an empty head
// or a detached element and panics on a linked element or a non-empty head.
func (a *Arena[T]) Init(n Node) {
	s := a.slot(n)
	switch s.state {
	case slotLinked:
		panic(fmt.Sprintf("wlist: init of linked %s", n))
	case slotHead:
		if s.next != n.idx {
			panic(fmt.Sprintf("wlist: init of non-empty head %s", n))
		}
	}
	s.prev, s.next = n.idx, n.idx
}

// InsertAfter splices n into the ring right after anchor. With anchor being
// a head, n becomes the first element.
func (a *Arena[T]) InsertAfter(anchor, n Node) {
	as := a.ringMember(anchor)
	ns := a.slot(n)
	switch ns.state {
	case slotHead:
		panic(fmt.Sprintf("wlist: insert of head %s as element", n))
	case slotLinked:
		panic(fmt.Sprintf("wlist: insert of already linked %s", n))
	}
	after := as.next
	ns.prev = anchor.idx
	ns.next = after
	ns.state = slotLinked
	as.next = n.idx
	a.at(after).prev = n.idx
}

// InsertBefore splices n into the ring right before anchor. With anchor
// being a head, n becomes the last element.
func (a *Arena[T]) InsertBefore(anchor, n Node) {
	as := a.ringMember(anchor)
	a.InsertAfter(a.node(as.prev), n)
}

// PushFront inserts n as the first element of head.
func (a *Arena[T]) PushFront(head, n Node) {
	a.headSlot(head)
	a.InsertAfter(head, n)
}

// PushBack inserts n as the last element of head.
func (a *Arena[T]) PushBack(head, n Node) {
	a.headSlot(head)
	a.InsertBefore(head, n)
}

// Remove unlinks n from its ring and leaves it detached. Removing a node
// that is already detached is a no-op.
func (a *Arena[T]) Remove(n Node) {
	s := a.slot(n)
	switch s.state {
	case slotHead:
		panic(fmt.Sprintf("wlist: remove of head %s", n))
	case slotDetached:
		return
	}
	a.at(s.prev).next = s.next
	a.at(s.next).prev = s.prev
	s.prev, s.next = n.idx, n.idx
	s.state = slotDetached
}

// Linked reports whether the element n currently sits in a ring.
func (a *Arena[T]) Linked(n Node) bool {
	return a.slot(n).state == slotLinked
}

// Len counts the elements of head. It is O(n).
func (a *Arena[T]) Len(head Node) int {
	h := a.headSlot(head)
	count := 0
	for i := h.next; i != head.idx; i = a.at(i).next {
		count++
	}
	return count
}

// Empty reports whether head has no elements. It is O(1).
func (a *Arena[T]) Empty(head Node) bool {
	return a.headSlot(head).next == head.idx
}

// Front returns the first element of head.
func (a *Arena[T]) Front(head Node) (Node, bool) {
	h := a.headSlot(head)
	if h.next == head.idx {
		return Node{}, false
	}
	return a.node(h.next), true
}

// Back returns the last element of head.
func (a *Arena[T]) Back(head Node) (Node, bool) {
	h := a.headSlot(head)
	if h.prev == head.idx {
		return Node{}, false
	}
	return a.node(h.prev), true
}

// SpliceAll moves every element of other to right after anchor, keeping
// their order, and leaves other empty.
//
// anchor must not be an element of other; only anchor == other is caught.
func (a *Arena[T]) SpliceAll(anchor, other Node) {
	if anchor == other {
		panic(fmt.Sprintf("wlist: splice of %s into itself", other))
	}
	as := a.ringMember(anchor)
	oh := a.headSlot(other)
	if oh.next == other.idx {
		return
	}
	first, last := oh.next, oh.prev
	after := as.next

	a.at(first).prev = anchor.idx
	as.next = first
	a.at(last).next = after
	a.at(after).prev = last

	oh.prev, oh.next = other.idx, other.idx
}

// Value returns the owner reference stored with element n.
func (a *Arena[T]) Value(n Node) *T {
	s := a.slot(n)
	if s.state == slotHead {
		panic(fmt.Sprintf("wlist: value of head %s", n))
	}
	return &s.value
}

// Size returns the number of allocated slots, heads included.
func (a *Arena[T]) Size() int {
	return a.live
}

// All walks head front to back. The current element must not be removed
// during the walk; use AllSafe for that.
func (a *Arena[T]) All(head Node) iter.Seq2[Node, *T] {
	return func(yield func(Node, *T) bool) {
		a.headSlot(head)
		for i := a.at(head.idx).next; i != head.idx; {
			s := a.at(i)
			if !yield(a.node(i), &s.value) {
				return
			}
			if s.state != slotLinked {
				panic("wlist: element removed during All; use AllSafe")
			}
			i = s.next
		}
	}
}

// Backward walks head back to front with the same rules as All.
func (a *Arena[T]) Backward(head Node) iter.Seq2[Node, *T] {
	return func(yield func(Node, *T) bool) {
		a.headSlot(head)
		for i := a.at(head.idx).prev; i != head.idx; {
			s := a.at(i)
			if !yield(a.node(i), &s.value) {
				return
			}
			if s.state != slotLinked {
				panic("wlist: element removed during Backward; use BackwardSafe")
			}
			i = s.prev
		}
	}
}

// AllSafe walks head front to back, reading the next cursor before each
// step so the current element may be removed or released. Removing any
// other element during the walk panics when the walk reaches it.
func (a *Arena[T]) AllSafe(head Node) iter.Seq2[Node, *T] {
	return a.safeWalk(head, func(s *slot[T]) uint32 { return s.next })
}

// BackwardSafe is AllSafe in reverse order.
func (a *Arena[T]) BackwardSafe(head Node) iter.Seq2[Node, *T] {
	return a.safeWalk(head, func(s *slot[T]) uint32 { return s.prev })
}

func (a *Arena[T]) safeWalk(head Node, step func(*slot[T]) uint32) iter.Seq2[Node, *T] {
	return func(yield func(Node, *T) bool) {
		a.headSlot(head)
		i := step(a.at(head.idx))
		for i != head.idx {
			s := a.at(i)
			if s.state != slotLinked {
				panic("wlist: element ahead of the cursor was removed")
			}
			following := step(s)
			if !yield(a.node(i), &s.value) {
				return
			}
			i = following
		}
	}
}

func (a *Arena[T]) alloc() uint32 {
	a.live++
	if n := len(a.free); n > 0 {
		i := a.free[n-1]
		a.free = a.free[:n-1]
		return i
	}
	if a.next == 0 {
		// index 0 backs the zero Node and is never handed out
		a.pages = append(a.pages, new(page[T]))
		a.next = 1
	}
	i := a.next
	if int(i>>pageShift) == len(a.pages) {
		a.pages = append(a.pages, new(page[T]))
	}
	a.next++
	return i
}

func (a *Arena[T]) at(i uint32) *slot[T] {
	return &a.pages[i>>pageShift][i&pageMask]
}

func (a *Arena[T]) node(i uint32) Node {
	return Node{idx: i, gen: a.at(i).gen}
}

func (a *Arena[T]) slot(n Node) *slot[T] {
	if n.IsZero() || n.idx >= a.next {
		panic(fmt.Sprintf("wlist: invalid %s", n))
	}
	s := a.at(n.idx)
	if s.gen != n.gen || s.state == slotFree {
		panic(fmt.Sprintf("wlist: stale %s", n))
	}
	return s
}

func (a *Arena[T]) headSlot(n Node) *slot[T] {
	s := a.slot(n)
	if s.state != slotHead {
		panic(fmt.Sprintf("wlist: %s is %s, not a head", n, s.state))
	}
	return s
}

// ringMember returns the slot of a node that can anchor an insertion.
func (a *Arena[T]) ringMember(n Node) *slot[T] {
	s := a.slot(n)
	if s.state == slotDetached {
		panic(fmt.Sprintf("wlist: anchor %s is not in a ring", n))
	}
	return s
}
