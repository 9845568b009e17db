package objects

import (
	"sync"
	"sync/atomic"

	"github.com/danmuck/wlcore/internal/wlist"
)

type NotifyFunc func(data any)

// Listener is one registration on a Signal.
type Listener struct {
	Notify NotifyFunc

	signal atomic.Pointer[Signal]
	node   wlist.Node
}

// Signal is an ordered listener chain stored in an arena shared with its
// owner. mu is the owner's lock and guards the arena; it is never held while
// a listener runs. A listener may remove itself while it is being notified;
// removing a listener that has not been notified yet during Emit panics.
type Signal struct {
	mu    *sync.Mutex
	arena *wlist.Arena[*Listener]
	head  wlist.Node
	fired bool
}

// newSignal allocates a head in arena. The caller holds mu or has not
// published the arena yet.
func newSignal(mu *sync.Mutex, arena *wlist.Arena[*Listener]) Signal {
	return Signal{mu: mu, arena: arena, head: arena.NewHead()}
}

// Add appends l. Adding to a signal that has already fired leaves l
// detached.
func (s *Signal) Add(l *Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.signal.Load() != nil {
		panic("objects: listener added twice")
	}
	if s.fired {
		return
	}
	l.node = s.arena.New(l)
	s.arena.PushBack(s.head, l.node)
	l.signal.Store(s)
}

func (s *Signal) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired {
		return 0
	}
	return s.arena.Len(s.head)
}

// Emit notifies listeners in registration order.
func (s *Signal) Emit(data any) {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return
	}
	for _, lp := range s.arena.AllSafe(s.head) {
		l := *lp
		s.mu.Unlock()
		l.Notify(data)
		s.mu.Lock()
		if s.fired {
			break
		}
	}
	s.mu.Unlock()
}

// finalEmit detaches every listener and releases the head, then notifies
// the detached listeners in order. Remove on them is a no-op and Add on s
// is refused from then on.
func (s *Signal) finalEmit(data any) {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return
	}
	s.fired = true
	var pending []*Listener
	for {
		n, ok := s.arena.Front(s.head)
		if !ok {
			break
		}
		l := *s.arena.Value(n)
		s.arena.Remove(n)
		s.arena.Release(n)
		l.node = wlist.Node{}
		l.signal.Store(nil)
		pending = append(pending, l)
	}
	s.arena.Release(s.head)
	s.head = wlist.Node{}
	s.mu.Unlock()

	for _, l := range pending {
		l.Notify(data)
	}
}

// Remove detaches l from its signal. Removing a detached listener is a no-op.
func (l *Listener) Remove() {
	s := l.signal.Load()
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.signal.Load() != s {
		return
	}
	s.arena.Remove(l.node)
	s.arena.Release(l.node)
	l.signal.Store(nil)
	l.node = wlist.Node{}
}
