package balance

import (
	"sync"

	"github.com/moby/locker"
)

// Locker serializes total updates for one key. The returned func releases it.
type Locker interface {
	Lock(key string) func()
}

// NoopLocker lets concurrent updates of the same category interleave. Two
// overlapping read-modify-write sequences can then lose one increment.
type NoopLocker struct{}

func (NoopLocker) Lock(string) func() { return func() {} }

// KeyedLocker holds one mutex per key for as long as somebody is waiting on
// it. It only serializes callers inside this process.
type KeyedLocker struct {
	locks *locker.Locker
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: locker.New()}
}

// Lock blocks until key is free. Calling the release func more than once is
// a no-op.
func (l *KeyedLocker) Lock(key string) func() {
	l.locks.Lock(key)

	var once sync.Once
	return func() {
		once.Do(func() {
			// Unlock only fails for a key that is not held, which once rules out.
			_ = l.locks.Unlock(key)
		})
	}
}
