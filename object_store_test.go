package go_seos

import (
	"errors"
	"testing"
)

// TestObjectStoreBasics verifies put/get/remove and kind discrimination.
func TestObjectStoreBasics(t *testing.T) {
	s := newObjectStore()
	obj := &keyObject{}

	h := s.put(kindKey, obj)
	if h == nilHandle {
		t.Fatal("put returned the nil handle")
	}
	got, err := s.get(h, kindKey)
	if err != nil || got != obj {
		t.Fatalf("get = %v, %v", got, err)
	}
	if _, err := s.get(h, kindDigest); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("wrong kind: got %v, want ErrInvalidHandle", err)
	}
	if s.count(kindKey) != 1 {
		t.Errorf("count = %d, want 1", s.count(kindKey))
	}

	if _, err := s.remove(h, kindKey); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.count(kindKey) != 0 {
		t.Errorf("count after remove = %d, want 0", s.count(kindKey))
	}
}

// TestObjectStoreStaleHandle verifies that a freed handle never aliases a
// newer object in the reused slot.
func TestObjectStoreStaleHandle(t *testing.T) {
	s := newObjectStore()
	old := s.put(kindKey, &keyObject{})
	if _, err := s.remove(old, kindKey); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// the slot is reused; the old handle must stay dead
	fresh := s.put(kindKey, &keyObject{})
	if fresh == old {
		t.Fatal("reused slot produced an identical handle")
	}
	if _, err := s.get(old, kindKey); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("stale handle: got %v, want ErrInvalidHandle", err)
	}
	if _, err := s.remove(old, kindKey); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("stale double free: got %v, want ErrInvalidHandle", err)
	}
	if _, err := s.get(fresh, kindKey); err != nil {
		t.Errorf("fresh handle: %v", err)
	}
}

// TestObjectStoreInvalidHandles verifies zero and out-of-range handles.
func TestObjectStoreInvalidHandles(t *testing.T) {
	s := newObjectStore()
	s.put(kindKey, &keyObject{})

	for _, h := range []Handle{nilHandle, makeHandle(100, 0), makeHandle(0, 42)} {
		if _, err := s.get(h, kindKey); !errors.Is(err, ErrInvalidHandle) {
			t.Errorf("handle %#x: got %v, want ErrInvalidHandle", uint64(h), err)
		}
	}
}

// TestObjectStoreTeardown verifies that teardown visits every object and
// kills all handles.
func TestObjectStoreTeardown(t *testing.T) {
	s := newObjectStore()
	h1 := s.put(kindKey, &keyObject{})
	h2 := s.put(kindDigest, &digestObject{})

	visited := 0
	s.teardown(func(kind objectKind, obj interface{}) {
		visited++
	})
	if visited != 2 {
		t.Errorf("teardown visited %d objects, want 2", visited)
	}
	if _, err := s.get(h1, kindKey); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("key handle after teardown: got %v", err)
	}
	if _, err := s.get(h2, kindDigest); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("digest handle after teardown: got %v", err)
	}
	if s.count(kindKey) != 0 || s.count(kindDigest) != 0 {
		t.Error("counts not reset by teardown")
	}
}
