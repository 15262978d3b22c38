package atomicio

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/agentmail/atm/internal/atmerr"
)

func TestAcquire_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	l, err := Acquire(path, DefaultMaxRetries)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestAcquire_Sequential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	l1, err := Acquire(path, DefaultMaxRetries)
	if err != nil {
		t.Fatal(err)
	}
	if err := l1.Close(); err != nil {
		t.Fatal(err)
	}

	l2, err := Acquire(path, DefaultMaxRetries)
	if err != nil {
		t.Fatal(err)
	}
	if err := l2.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestAcquire_TimeoutWhenHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	held, err := Acquire(path, DefaultMaxRetries)
	if err != nil {
		t.Fatal(err)
	}
	defer held.Close()

	_, err = Acquire(path, 1)
	var lockTimeout *atmerr.LockTimeout
	if !errors.As(err, &lockTimeout) {
		t.Fatalf("expected *atmerr.LockTimeout, got %T: %v", err, err)
	}
}

func TestAcquire_ConcurrentSecondSucceedsAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		l, err := Acquire(path, DefaultMaxRetries)
		if err != nil {
			t.Error(err)
			return
		}
		time.Sleep(100 * time.Millisecond)
		l.Close()
	}()

	time.Sleep(20 * time.Millisecond)
	l2, err := Acquire(path, DefaultMaxRetries)
	if err != nil {
		t.Fatal(err)
	}
	l2.Close()
	wg.Wait()
}
