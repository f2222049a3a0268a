// Package tokens tracks submission tokens so a form is analyzed at most once.
package tokens

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrMalformedToken is returned for tokens that are not UUIDs.
var ErrMalformedToken = errors.New("malformed submission token")

// Ledger records claimed submission tokens.
type Ledger interface {
	// Issue returns a fresh token for a rendered form.
	Issue() string

	// Claim atomically marks token as used.
	// Returns true if the token was newly claimed, false if it was already used.
	Claim(ctx context.Context, token string) (bool, error)

	// Release forgets a claim so the same form can be submitted again.
	// Used when a submission fails before reaching the analyzer.
	Release(ctx context.Context, token string)

	Size() int64
}

// entry is a node in the claim-order list.
type entry struct {
	token      string
	prev, next *entry
}

// reset clears the entry state for reuse
func (e *entry) reset() {
	e.token = ""
	e.prev = nil
	e.next = nil
}

// inMemoryLedger keeps claims in a map plus a doubly linked list in claim
// order, evicting the oldest claim once maxSize is reached.
// maxSize <= 0 means unbounded.
type inMemoryLedger struct {
	mu        sync.Mutex
	claimed   map[string]*entry
	head      *entry // newest
	tail      *entry // oldest
	maxSize   int
	size      atomic.Int64
	entryPool sync.Pool
}

// NewInMemoryLedger creates a ledger with configuration options.
func NewInMemoryLedger(opts ...Option) Ledger {
	l := &inMemoryLedger{
		maxSize: 10_000,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.claimed = make(map[string]*entry)
	l.entryPool = sync.Pool{
		New: func() interface{} {
			return &entry{}
		},
	}
	return l
}

// Issue returns a new random UUID.
func (l *inMemoryLedger) Issue() string {
	return uuid.NewString()
}

// Claim marks token as used.
func (l *inMemoryLedger) Claim(_ context.Context, token string) (bool, error) {
	id, err := uuid.Parse(token)
	if err != nil {
		return false, ErrMalformedToken
	}
	key := id.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.claimed[key]; exists {
		return false, nil
	}

	if l.maxSize > 0 && len(l.claimed) >= l.maxSize {
		l.evictOldest()
	}

	e := l.entryPool.Get().(*entry)
	e.token = key
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	}
	l.head = e
	if l.tail == nil {
		l.tail = e
	}
	l.claimed[key] = e
	l.size.Add(1)
	return true, nil
}

// Release forgets a claim.
func (l *inMemoryLedger) Release(_ context.Context, token string) {
	id, err := uuid.Parse(token)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if e, exists := l.claimed[id.String()]; exists {
		l.remove(e)
	}
}

// evictOldest drops the tail. Must be called with l.mu held.
func (l *inMemoryLedger) evictOldest() {
	if l.tail != nil {
		l.remove(l.tail)
	}
}

// remove unlinks e and returns it to the pool. Must be called with l.mu held.
func (l *inMemoryLedger) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	delete(l.claimed, e.token)
	e.reset()
	l.entryPool.Put(e)
	l.size.Add(-1)
}

// Size returns the number of remembered claims.
func (l *inMemoryLedger) Size() int64 {
	return l.size.Load()
}
