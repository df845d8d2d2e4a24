package keylock

import (
	"sync"
	"testing"
	"time"
)

func TestLock_SerializesSameKey(t *testing.T) {
	l := New()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("code:123456")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected at most 1 holder, saw %d", maxSeen)
	}
	if l.Len() != 0 {
		t.Fatalf("expected no keys left, got %d", l.Len())
	}
}

func TestLock_DifferentKeysDoNotBlock(t *testing.T) {
	l := New()

	unlockA := l.Lock("group:a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := l.Lock("group:b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("lock on a different key blocked")
	}
}
