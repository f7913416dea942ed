package go_seos

// Handle identifies an object managed by a Crypto instance. Handles are
// opaque to callers; the zero Handle is never valid. A Handle encodes a slot
// index and a per-slot generation counter, so a freed handle can never
// silently alias a newer object in the same slot.
type Handle uint64

// nilHandle marks "no object", e.g. the absent key of a verify-only
// signature object.
const nilHandle Handle = 0

func makeHandle(index, gen uint32) Handle {
	// index+1 keeps the zero Handle permanently invalid
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

func (h Handle) split() (index, gen uint32, ok bool) {
	low := uint32(h)
	if low == 0 {
		return 0, 0, false
	}
	return low - 1, uint32(h >> 32), true
}

// objectKind discriminates the object classes in the store. A handle is only
// valid for the kind it was created as.
type objectKind int

const (
	kindKey objectKind = iota + 1
	kindDigest
	kindMac
	kindCipher
	kindSignature
	kindAgreement
)

func (k objectKind) String() string {
	switch k {
	case kindKey:
		return "key"
	case kindDigest:
		return "digest"
	case kindMac:
		return "mac"
	case kindCipher:
		return "cipher"
	case kindSignature:
		return "signature"
	case kindAgreement:
		return "agreement"
	}
	return "unknown"
}

type storeSlot struct {
	gen  uint32
	kind objectKind
	obj  interface{} // nil when the slot is free
}

// objectStore is a generation-checked arena of live objects. It is the
// library backend's source of truth: every handle handed out by a library
// instance resolves here, and tearing the store down invalidates all of them
// deterministically.
//
// The store is not safe for concurrent use; it inherits the instance-level
// serialization requirement of the API.
type objectStore struct {
	slots  []storeSlot
	free   []uint32
	counts map[objectKind]int
}

func newObjectStore() *objectStore {
	return &objectStore{
		counts: make(map[objectKind]int),
	}
}

// put registers an object and returns its handle.
func (s *objectStore) put(kind objectKind, obj interface{}) Handle {
	var index uint32
	if n := len(s.free); n > 0 {
		index = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		index = uint32(len(s.slots))
		s.slots = append(s.slots, storeSlot{})
	}
	slot := &s.slots[index]
	slot.kind = kind
	slot.obj = obj
	s.counts[kind]++
	return makeHandle(index, slot.gen)
}

// get resolves a handle to the stored object. Stale, foreign and wrong-kind
// handles fail with ErrInvalidHandle.
func (s *objectStore) get(h Handle, kind objectKind) (interface{}, error) {
	index, gen, ok := h.split()
	if !ok || int(index) >= len(s.slots) {
		return nil, newHandleError(kind.String(), "lookup", ErrInvalidHandle)
	}
	slot := &s.slots[index]
	if slot.obj == nil || slot.gen != gen || slot.kind != kind {
		return nil, newHandleError(kind.String(), "lookup", ErrInvalidHandle)
	}
	return slot.obj, nil
}

// remove frees a handle and returns the object it held. The slot's
// generation advances, so the handle (and any copy of it) is dead from here
// on.
func (s *objectStore) remove(h Handle, kind objectKind) (interface{}, error) {
	obj, err := s.get(h, kind)
	if err != nil {
		return nil, err
	}
	index, _, _ := h.split()
	slot := &s.slots[index]
	slot.obj = nil
	slot.gen++
	s.free = append(s.free, index)
	s.counts[kind]--
	return obj, nil
}

// count returns the number of live objects of a kind.
func (s *objectStore) count(kind objectKind) int {
	return s.counts[kind]
}

// teardown removes every live object, invoking fn on each so key material
// can be zeroized. All outstanding handles become invalid.
func (s *objectStore) teardown(fn func(kind objectKind, obj interface{})) {
	for i := range s.slots {
		slot := &s.slots[i]
		if slot.obj == nil {
			continue
		}
		if fn != nil {
			fn(slot.kind, slot.obj)
		}
		slot.obj = nil
		slot.gen++
		s.counts[slot.kind]--
		s.free = append(s.free, uint32(i))
	}
}
