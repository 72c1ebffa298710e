package session

import (
	"errors"
	"sync"
	"time"

	"github.com/salesline-ai/salesline/internal/profile"
)

// ErrUnknownSession is returned when an operation references a call id that
// was never created. This is a sequencing error in the webhook adapter, not
// a recoverable condition.
var ErrUnknownSession = errors.New("unknown session")

// LookupFunc resolves the caller profile for a session being created.
// The store invokes it exactly once per new session, under the call's lock.
type LookupFunc func() (profile.Profile, error)

// Store abstracts session persistence (in-memory map or SQLite).
//
// Concurrency contract: Lock serializes all work for one call id — the
// webhook handler holds the call's lock across its whole read-classify-
// generate-write cycle, so two transcript deliveries for the same call can
// never interleave their history updates. Different call ids never block
// each other. Individual methods are additionally safe for concurrent use.
type Store interface {
	// GetOrCreate returns the session for callID, creating it when absent.
	// created reports whether this call created the session.
	GetOrCreate(callID string, lookup LookupFunc) (s *Session, created bool, err error)

	// Get returns the session, or ErrUnknownSession.
	Get(callID string) (*Session, error)

	// Append adds turns to the session's log, or ErrUnknownSession.
	Append(callID string, turns ...Turn) error

	// ReplaceTurns atomically replaces the whole turn sequence.
	// A concurrent reader sees either the old or the new sequence, never a mix.
	ReplaceTurns(callID string, turns []Turn) error

	// Close marks the session CLOSED. Idempotent; unknown ids are a no-op
	// (a status callback can arrive for a call that never produced a session).
	Close(callID string) error

	// ResetAll clears every session (operator reset control).
	ResetAll() error

	// PurgeClosed deletes CLOSED sessions not updated within keep.
	// Returns the number of sessions removed.
	PurgeClosed(keep time.Duration) (int, error)

	// Lock acquires the per-call lock and returns its release func.
	Lock(callID string) (unlock func())

	// Shutdown releases underlying resources (database handles).
	Shutdown() error
}

// callLocks hands out one mutex per call id. Entries are never reaped:
// swapping a mutex instance out from under a holder would break the
// serialization guarantee.
type callLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCallLocks() *callLocks {
	return &callLocks{locks: make(map[string]*sync.Mutex)}
}

func (c *callLocks) Lock(callID string) (unlock func()) {
	c.mu.Lock()
	l, ok := c.locks[callID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[callID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}
