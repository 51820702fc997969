package server

import (
	"container/list"
	"sync"
	"time"

	"github.com/o0olele/breadcrumbs-go/route"
)

// session is one client's controller. The controller is not safe for
// concurrent use, so every access goes through mu.
type session struct {
	id      string
	key     string
	created time.Time

	mu     sync.Mutex
	ctrl   *route.Controller
	closed bool // saved for the last time; no longer in the table
}

// acquire locks the session. It reports false, with the lock released, if
// the session was closed after it was looked up.
func (s *session) acquire() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	return true
}

// sessionTable is an LRU of sessions. When capacity is exceeded the least
// recently used session is removed and handed to onEvict.
type sessionTable struct {
	capacity int
	ll       *list.List               // front is most recently used
	index    map[string]*list.Element // id -> element holding *session
	mu       sync.Mutex
	onEvict  func(*session)
}

func newSessionTable(capacity int, onEvict func(*session)) *sessionTable {
	if capacity <= 0 {
		capacity = 1
	}
	return &sessionTable{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[string]*list.Element),
		onEvict:  onEvict,
	}
}

// get returns the session and marks it most recently used.
func (t *sessionTable) get(id string) (*session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	el, ok := t.index[id]
	if !ok {
		return nil, false
	}
	t.ll.MoveToFront(el)
	return el.Value.(*session), true
}

// put adds s, evicting the oldest session if the table is full.
func (t *sessionTable) put(s *session) {
	var evicted *session

	t.mu.Lock()
	if el, ok := t.index[s.id]; ok {
		el.Value = s
		t.ll.MoveToFront(el)
	} else {
		t.index[s.id] = t.ll.PushFront(s)
		if t.ll.Len() > t.capacity {
			evicted = t.removeOldest()
		}
	}
	t.mu.Unlock()

	// outside the table lock: eviction saves to disk
	if evicted != nil && t.onEvict != nil {
		t.onEvict(evicted)
	}
}

func (t *sessionTable) removeOldest() *session {
	el := t.ll.Back()
	if el == nil {
		return nil
	}
	t.ll.Remove(el)
	s := el.Value.(*session)
	delete(t.index, s.id)
	return s
}

// remove deletes the session without calling onEvict.
func (t *sessionTable) remove(id string) (*session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	el, ok := t.index[id]
	if !ok {
		return nil, false
	}
	t.ll.Remove(el)
	delete(t.index, id)
	return el.Value.(*session), true
}

// drain empties the table and returns every session, oldest first.
func (t *sessionTable) drain() []*session {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*session, 0, t.ll.Len())
	for el := t.ll.Back(); el != nil; el = el.Prev() {
		out = append(out, el.Value.(*session))
	}
	t.ll.Init()
	clear(t.index)
	return out
}

func (t *sessionTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ll.Len()
}
