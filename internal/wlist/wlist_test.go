package wlist

import (
	"math/rand"
	"testing"

	"github.com/danmuck/wlcore/internal/logs"
	"github.com/danmuck/wlcore/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func collect(a *Arena[string], head Node) []string {
	out := []string{}
	for _, v := range a.All(head) {
		out = append(out, *v)
	}
	return out
}

func collectBackward(a *Arena[string], head Node) []string {
	out := []string{}
	for _, v := range a.Backward(head) {
		out = append(out, *v)
	}
	return out
}

func TestNewHeadIsEmptyRing(t *testing.T) {
	testlog.Start(t)
	a := NewArena[string]()
	head := a.NewHead()
	require.True(t, a.Empty(head))
	require.Zero(t, a.Len(head))
	_, ok := a.Front(head)
	require.False(t, ok, "empty head must have no front")

	a.Init(head)
	a.Init(head)
	require.True(t, a.Empty(head), "init must be idempotent")
}

func TestInsertAfterHeadPrependsAndAfterElementPlaces(t *testing.T) {
	testlog.Start(t)
	a := NewArena[string]()
	head := a.NewHead()
	e1, e2, e3 := a.New("e1"), a.New("e2"), a.New("e3")

	a.InsertAfter(head, e1)
	a.InsertAfter(head, e2)
	a.InsertAfter(e2, e3)

	got := collect(a, head)
	require.Equal(t, []string{"e2", "e3", "e1"}, got)
	require.Equal(t, []string{"e1", "e3", "e2"}, collectBackward(a, head))
	last, _ := a.Back(head)
	require.Equal(t, "e1", *a.Value(last))
	logs.Logf("wlist/insert: order=%v", got)
}

func TestPushBackAndInsertBefore(t *testing.T) {
	testlog.Start(t)
	a := NewArena[string]()
	head := a.NewHead()
	x, y, z := a.New("x"), a.New("y"), a.New("z")
	a.PushBack(head, x)
	a.PushBack(head, z)
	a.InsertBefore(z, y)
	require.Equal(t, []string{"x", "y", "z"}, collect(a, head))

	w := a.New("w")
	a.PushFront(head, w)
	front, _ := a.Front(head)
	require.Equal(t, "w", *a.Value(front))
}

func TestLengthTracksRandomInsertRemove(t *testing.T) {
	testlog.Start(t)
	a := NewArena[string]()
	head := a.NewHead()
	rng := rand.New(rand.NewSource(7))

	nodes := make([]Node, 32)
	for i := range nodes {
		nodes[i] = a.New(string(rune('a' + i%26)))
	}
	inserted := 0
	for step := 0; step < 500; step++ {
		n := nodes[rng.Intn(len(nodes))]
		if a.Linked(n) {
			a.Remove(n)
			inserted--
		} else {
			anchor := head
			if f, ok := a.Front(head); ok && rng.Intn(2) == 0 {
				anchor = f
			}
			a.InsertAfter(anchor, n)
			inserted++
		}
		require.Equal(t, inserted, a.Len(head), "step %d", step)
		require.Equal(t, inserted == 0, a.Empty(head), "step %d", step)
	}
	logs.Logf("wlist/random: final len=%d", inserted)
}

func TestRemoveLeavesNodeDetached(t *testing.T) {
	testlog.Start(t)
	a := NewArena[string]()
	head := a.NewHead()
	n := a.New("n")
	a.PushBack(head, n)
	a.Remove(n)
	a.Remove(n)
	require.False(t, a.Linked(n))
	require.True(t, a.Empty(head))

	a.PushBack(head, n)
	require.Equal(t, 1, a.Len(head), "detached node must be reinsertable")
}

func TestSafeWalkRemovesEveryElementOnce(t *testing.T) {
	testlog.Start(t)
	for _, size := range []int{0, 1, 2, 17} {
		a := NewArena[int]()
		head := a.NewHead()
		want := []int{}
		for i := 0; i < size; i++ {
			a.PushBack(head, a.New(i))
			want = append(want, i)
		}

		visited := []int{}
		for n, v := range a.AllSafe(head) {
			visited = append(visited, *v)
			a.Remove(n)
			a.Release(n)
		}
		require.Equal(t, want, visited, "size %d", size)
		require.True(t, a.Empty(head), "size %d", size)

		for i := 0; i < size; i++ {
			a.PushBack(head, a.New(i))
		}
		visited = visited[:0]
		for n, v := range a.BackwardSafe(head) {
			visited = append(visited, *v)
			a.Remove(n)
		}
		require.Len(t, visited, size)
		if size > 0 {
			require.Equal(t, size-1, visited[0], "size %d", size)
		}
	}
}

func TestUnsafeWalkPanicsOnCurrentRemoval(t *testing.T) {
	testlog.Start(t)
	a := NewArena[string]()
	head := a.NewHead()
	a.PushBack(head, a.New("a"))
	a.PushBack(head, a.New("b"))
	require.Panics(t, func() {
		for n := range a.All(head) {
			a.Remove(n)
		}
	})
}

func TestSafeWalkPanicsWhenNextIsRemoved(t *testing.T) {
	testlog.Start(t)
	a := NewArena[string]()
	head := a.NewHead()
	first, second := a.New("a"), a.New("b")
	a.PushBack(head, first)
	a.PushBack(head, second)
	a.PushBack(head, a.New("c"))
	require.Panics(t, func() {
		for n := range a.AllSafe(head) {
			if n == first {
				a.Remove(second)
			}
		}
	})
}

func TestWalkStopsEarly(t *testing.T) {
	testlog.Start(t)
	a := NewArena[string]()
	head := a.NewHead()
	for _, s := range []string{"a", "b", "c"} {
		a.PushBack(head, a.New(s))
	}
	seen := 0
	for range a.All(head) {
		seen++
		if seen == 2 {
			break
		}
	}
	require.Equal(t, 2, seen)
}

func TestSpliceAllPreservesOrder(t *testing.T) {
	testlog.Start(t)
	a := NewArena[string]()
	target := a.NewHead()
	other := a.NewHead()
	x := a.New("x")
	a.PushBack(target, x)
	a.PushBack(target, a.New("y"))
	for _, s := range []string{"a", "b", "c"} {
		a.PushBack(other, a.New(s))
	}

	a.SpliceAll(x, other)

	require.Equal(t, []string{"x", "a", "b", "c", "y"}, collect(a, target))
	require.True(t, a.Empty(other), "other must be left empty")

	a.Init(other)
	a.PushBack(other, a.New("z"))
	require.Equal(t, 1, a.Len(other))
	require.Equal(t, 5, a.Len(target))
	logs.Logf("wlist/splice: target=%v", collect(a, target))
}

func TestSpliceAllEmptyOtherIsNoop(t *testing.T) {
	testlog.Start(t)
	a := NewArena[string]()
	target, other := a.NewHead(), a.NewHead()
	a.PushBack(target, a.New("x"))
	a.SpliceAll(target, other)
	require.Equal(t, 1, a.Len(target))
	require.True(t, a.Empty(other))
}

func TestMultipleMembershipsPerOwner(t *testing.T) {
	testlog.Start(t)
	type owner struct {
		name     string
		byClient Node
		byKind   Node
	}
	a := NewArena[*owner]()
	clientHead, kindHead := a.NewHead(), a.NewHead()

	o := &owner{name: "surface"}
	o.byClient = a.New(o)
	o.byKind = a.New(o)
	a.PushBack(clientHead, o.byClient)
	a.PushBack(kindHead, o.byKind)

	a.Remove(o.byClient)
	require.Zero(t, a.Len(clientHead))
	require.Equal(t, 1, a.Len(kindHead))
	front, _ := a.Front(kindHead)
	require.Same(t, o, *a.Value(front))
}

func TestMisusePanics(t *testing.T) {
	testlog.Start(t)
	a := NewArena[string]()
	head := a.NewHead()
	n := a.New("n")
	a.PushBack(head, n)

	require.Panics(t, func() { a.PushBack(head, n) }, "double insert")
	require.Panics(t, func() { a.InsertAfter(n, a.NewHead()) }, "insert head")
	require.Panics(t, func() { a.Remove(head) }, "remove head")
	require.Panics(t, func() { a.Release(n) }, "release linked")
	require.Panics(t, func() { a.Release(head) }, "release non-empty head")
	require.Panics(t, func() { a.Init(n) }, "init linked")
	require.Panics(t, func() { a.Len(Node{}) }, "zero node")
	require.Panics(t, func() { a.SpliceAll(head, head) }, "splice self")
	require.Panics(t, func() { a.InsertAfter(a.New("d"), a.New("e")) }, "detached anchor")

	a.Remove(n)
	a.Release(n)
	require.Panics(t, func() { a.Value(n) }, "stale handle")

	reused := a.New("reused")
	require.Equal(t, n.idx, reused.idx, "expected slot reuse")
	require.Panics(t, func() { a.PushBack(head, n) }, "stale handle after reuse")
	logs.Logf("wlist/misuse: panics raised for every contract violation")
}

func TestValuePointersSurviveGrowth(t *testing.T) {
	testlog.Start(t)
	a := NewArena[int]()
	head := a.NewHead()
	first := a.New(1)
	a.PushBack(head, first)
	p := a.Value(first)
	for i := 0; i < 4*pageSize; i++ {
		a.PushBack(head, a.New(i))
	}
	*p = 42
	require.Equal(t, 42, *a.Value(first), "value pointer must stay valid across arena growth")
	require.Equal(t, 4*pageSize+2, a.Size())
}
