package service

import "sync"

// KeyedMutex serializes work per key. Entries are reference counted and dropped once no
// goroutine holds or waits for them.
type KeyedMutex struct {
	mutex sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mutex sync.Mutex
	refs  int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mutex.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mutex.Unlock()

	l.mutex.Lock()

	return func() {
		l.mutex.Unlock()

		k.mutex.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mutex.Unlock()
	}
}

func (k *KeyedMutex) len() int {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	return len(k.locks)
}
