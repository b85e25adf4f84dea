package anamnesis

import "sync/atomic"

// idSequence hands out monotonic, process-wide unique integer ids for every
// entity kind (Subject, Belief, State, Mind). A single shared sequence
// (rather than one per entity kind) keeps every _id in a save file globally
// unique, so the JSON codec's two-pass load can key its allocation table on
// _id alone without also carrying _type.
type idSequence struct {
	next atomic.Int64
}

// nextID returns the next unused id, starting at 1 (0 is reserved so a zero
// Value int field in Go can double as "no id" without an extra pointer).
func (s *idSequence) nextID() int {
	return int(s.next.Add(1))
}

// reset rewinds the sequence to zero. Used only by ResetRegistries.
func (s *idSequence) reset() {
	s.next.Store(0)
}

// observe advances the sequence past id if id is higher than anything handed
// out so far, so that ids loaded from a saved mind are never reissued.
func (s *idSequence) observe(id int) {
	for {
		cur := s.next.Load()
		if int64(id) <= cur {
			return
		}
		if s.next.CompareAndSwap(cur, int64(id)) {
			return
		}
	}
}
